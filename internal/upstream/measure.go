package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Measure is a numeric reading. The upstream sends some numbers as JSON
// numbers and others as strings ("25", "25,3"); both decode to a float.
// null and "" decode to zero with Valid unset.
type Measure struct {
	Value float64
	Valid bool
}

func M(v float64) Measure {
	return Measure{Value: v, Valid: true}
}

func (m *Measure) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*m = Measure{}
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*m = Measure{}
			return nil
		}
		s = trimUnit(s)
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("measure %q: not a number", s)
		}
		*m = M(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("measure %s: not a number", b)
	}
	*m = M(f)
	return nil
}

func (m Measure) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, m.Value, 'f', -1, 64), nil
}

var units = []string{"%", "°C", "°", "km"}

func trimUnit(s string) string {
	lower := strings.ToLower(s)
	for _, u := range units {
		if strings.HasSuffix(lower, strings.ToLower(u)) {
			return strings.TrimSpace(s[:len(s)-len(u)])
		}
	}
	return s
}
