package suggest

import (
	"reflect"
	"testing"
)

func TestClosest(t *testing.T) {
	candidates := []string{"klingon", "vulcan", "romulan", "ferengi", "andorian", "bajoran"}
	cases := []struct {
		in   string
		want []string
	}{
		{"vulcn", []string{"vulcan"}},
		{"klingo", []string{"klingon"}},
		{"Ferengy", []string{"ferengi"}},
		{"an", []string{"andorian"}},
		{"vulcan", nil},
		{"", nil},
		{"tribble", nil},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			if got := Closest(tc.in, candidates); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Closest(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestClosest_Caps(t *testing.T) {
	got := Closest("skin", []string{"skin-1", "skin-2", "skin-3", "skin-4", "skin-5"})
	if len(got) != MaxSuggestions {
		t.Fatalf("got %v", got)
	}
	if got[0] != "skin-1" {
		t.Errorf("ties should sort by value, got %v", got)
	}
}

func TestHint(t *testing.T) {
	if h := Hint("haiir", []string{"hair", "hat"}); h != "did you mean hair?" {
		t.Errorf("Hint = %q", h)
	}
	if h := Hint("zzzz", []string{"hair"}); h != "" {
		t.Errorf("Hint = %q", h)
	}
}
