// Package station owns the catalogue of Chilean weather stations served by the
// upstream weather API. Every other package refers to stations through it.
package station

import "strings"

type Station struct {
	Code   string `json:"code"`
	City   string `json:"city"`
	Region string `json:"region"`
}

// UnknownRegion is reported for readings whose station is not in the catalogue.
const UnknownRegion = "Chile"

var stations = []Station{
	{Code: "SCAR", City: "Arica", Region: "Arica y Parinacota"},
	{Code: "SCDA", City: "Iquique", Region: "Tarapacá"},
	{Code: "SCFA", City: "Antofagasta", Region: "Antofagasta"},
	{Code: "SCCF", City: "Calama", Region: "Antofagasta"},
	{Code: "SCSE", City: "La Serena", Region: "Coquimbo"},
	{Code: "SCQN", City: "Santiago", Region: "Metropolitana"},
	{Code: "SCEL", City: "Santiago (Aeropuerto)", Region: "Metropolitana"},
	{Code: "SCVM", City: "Viña del Mar", Region: "Valparaíso"},
	{Code: "SCRD", City: "Rancagua", Region: "O'Higgins"},
	{Code: "SCTL", City: "Talca", Region: "Maule"},
	{Code: "SCCH", City: "Chillán", Region: "Ñuble"},
	{Code: "SCIE", City: "Concepción", Region: "Biobío"},
	{Code: "SCGE", City: "Los Ángeles", Region: "Biobío"},
	{Code: "SCTO", City: "Temuco", Region: "La Araucanía"},
	{Code: "SCVD", City: "Valdivia", Region: "Los Ríos"},
	{Code: "SCJO", City: "Osorno", Region: "Los Lagos"},
	{Code: "SCTE", City: "Puerto Montt", Region: "Los Lagos"},
	{Code: "SCCY", City: "Coyhaique", Region: "Aysén"},
	{Code: "SCBA", City: "Balmaceda", Region: "Aysén"},
	{Code: "SCCI", City: "Punta Arenas", Region: "Magallanes"},
	{Code: "SCFM", City: "Porvenir", Region: "Magallanes"},
	{Code: "SCGZ", City: "Puerto Williams", Region: "Magallanes"},
	{Code: "SCIR", City: "Isla Robinson Crusoe", Region: "Juan Fernández"},
	{Code: "SCIP", City: "Isla de Pascua", Region: "Rapa Nui"},
	{Code: "SCRM", City: "Base Antártica", Region: "Antártica Chilena"},
}

var byCode = func() map[string]Station {
	m := make(map[string]Station, len(stations))
	for _, s := range stations {
		m[s.Code] = s
	}
	return m
}()

// All returns a copy of the catalogue, so callers can never mutate it.
func All() []Station {
	out := make([]Station, len(stations))
	copy(out, stations)
	return out
}

func Lookup(code string) (Station, bool) {
	s, ok := byCode[Normalize(code)]
	return s, ok
}

// RegionFor returns the catalogue region for code, or UnknownRegion.
func RegionFor(code string) string {
	if s, ok := Lookup(code); ok {
		return s.Region
	}
	return UnknownRegion
}

func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidCode reports whether code is exactly four ASCII letters or digits.
// Case does not matter.
func IsValidCode(code string) bool {
	if len(code) != 4 {
		return false
	}

	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		default:
			return false
		}
	}

	return true
}
