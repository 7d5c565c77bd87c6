package qa

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"trims and strips fullwidth question mark", "  什么是二次根式？  ", "什么是二次根式"},
		{"strips ascii question mark", "what is a radical?", "what is a radical"},
		{"strips only one trailing question mark", "really??", "really?"},
		{"strips one fullwidth mark from a stacked pair", "？？", "？"},
		{"collapses whitespace runs", "a  b\t c\nd", "a b c d"},
		{"question mark inside text survives", "为什么？因为", "为什么？因为"},
		{"empty input", "", ""},
		{"only punctuation", "？", ""},
		{"whitespace only", "   \t  ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.in); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

// Stacked trailing question marks are excluded here: each pass strips
// exactly one mark, so "？？" keeps peeling under repeated normalization.
func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"  什么是二次根式？  ",
		"what   is \t a function ? ",
		"",
		"勾股定理 怎么 证明？",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}
