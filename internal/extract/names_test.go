package extract

import (
	"testing"

	"github.com/joseph-ayodele/order-intake/constants"
)

func TestSplitName(t *testing.T) {
	cases := []struct {
		in          string
		policy      constants.NameSplitPolicy
		first, last string
		ok          bool
	}{
		{"John Smith", constants.SplitLastToken, "John", "Smith", true},
		{"Mary Ann Evans", constants.SplitLastToken, "Mary Ann", "Evans", true},
		{"Mary Ann Evans", constants.SplitFirstToken, "Mary", "Ann Evans", true},
		{"Evans, Mary Ann", constants.SplitFirstToken, "Mary Ann", "Evans", true},
		{"O'Brien-Smith, Seán", constants.SplitLastToken, "Seán", "O'Brien-Smith", true},
		{"John Smith Jr.", constants.SplitLastToken, "John", "Smith Jr.", true},
		{"John Smith 123 Main St", constants.SplitLastToken, "John", "Smith", true},
		{"Cher", constants.SplitLastToken, "", "", false},
		{"Smith,", constants.SplitLastToken, "", "", false},
		{"12345", constants.SplitLastToken, "", "", false},
		{"", constants.SplitLastToken, "", "", false},
	}
	for _, tc := range cases {
		first, last, ok := SplitName(tc.in, tc.policy)
		if ok != tc.ok || first != tc.first || last != tc.last {
			t.Errorf("SplitName(%q, %s) = %q, %q, %v; want %q, %q, %v",
				tc.in, tc.policy, first, last, ok, tc.first, tc.last, tc.ok)
		}
	}
}

func TestParseSplitPolicy(t *testing.T) {
	if p, err := ParseSplitPolicy(""); err != nil || p != constants.SplitLastToken {
		t.Fatalf("empty = %q, %v", p, err)
	}
	if p, err := ParseSplitPolicy(" First "); err != nil || p != constants.SplitFirstToken {
		t.Fatalf("first = %q, %v", p, err)
	}
	if _, err := ParseSplitPolicy("middle"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}
