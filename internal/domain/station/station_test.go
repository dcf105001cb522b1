package station

import "testing"

func TestCatalogue(t *testing.T) {
	all := All()
	if len(all) != 25 {
		t.Fatalf("expected 25 stations, got %d", len(all))
	}

	seen := map[string]bool{}
	for _, s := range all {
		if s.Code == "" || s.City == "" || s.Region == "" {
			t.Fatalf("incomplete station: %+v", s)
		}
		if seen[s.Code] {
			t.Fatalf("duplicate code %s", s.Code)
		}
		seen[s.Code] = true
	}

	santiago, ok := Lookup("scqn")
	if !ok || santiago.City != "Santiago" || santiago.Region != "Metropolitana" {
		t.Fatalf("lookup SCQN: %+v ok=%v", santiago, ok)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	a := All()
	a[0].City = "mutated"

	if All()[0].City == "mutated" {
		t.Fatalf("All must not expose the backing slice")
	}
}

func TestRegionFor(t *testing.T) {
	if got := RegionFor("SCIE"); got != "Biobío" {
		t.Fatalf("got %q", got)
	}
	if got := RegionFor("ZZZZ"); got != UnknownRegion {
		t.Fatalf("unknown code should map to %q, got %q", UnknownRegion, got)
	}
}

func TestIsValidCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"SCQN", true},
		{"scqn", true},
		{"ScQn", true},
		{"AB12", true},
		{"1234", true},
		{"", false},
		{"SCQ", false},
		{"SCQNX", false},
		{"SC-N", false},
		{"SC N", false},
		{"SCÑN", false},
		{"../x", false},
	}

	for _, tt := range tests {
		if got := IsValidCode(tt.code); got != tt.want {
			t.Errorf("IsValidCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
