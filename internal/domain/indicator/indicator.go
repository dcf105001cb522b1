package indicator

import "strings"

// Types is the set of economic indicators the upstream API exposes.
var Types = []string{"dolar", "euro", "uf", "utm", "ipc"}

func Normalize(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

func IsValid(t string) bool {
	n := Normalize(t)
	for _, v := range Types {
		if v == n {
			return true
		}
	}
	return false
}
