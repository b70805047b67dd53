package forced

import (
	"reflect"
	"testing"

	"github.com/kokistudios/trekicon/internal/catalog"
	"github.com/kokistudios/trekicon/internal/selection"
)

func TestFeatures(t *testing.T) {
	cat := catalog.MustLoad()
	cases := []struct {
		name string
		st   selection.State
		want []string
	}{
		{"andorian", selection.State{BodyShape: "humanoid", Species: "andorian"}, []string{"andorian-antennae"}},
		{"ferengi", selection.State{BodyShape: "humanoid", Species: "ferengi"}, []string{"ferengi-brow", "ferengi-nose"}},
		{"klingon sub-selector", selection.State{BodyShape: "humanoid", Species: "klingon", KlingonRidges: "klingon-ridges-dsc"}, []string{"klingon-ridges-dsc"}},
		{"tellarite toggle off", selection.State{BodyShape: "humanoid", Species: "tellarite", TellariteNose: "tellarite-nose-classic"}, []string{"tellarite-nose-classic"}},
		{"tellarite toggle on", selection.State{BodyShape: "humanoid", Species: "tellarite", TellariteNose: "tellarite-nose-classic", Tusks: true}, []string{"tellarite-nose-classic", "tellarite-tusks"}},
		{"romulan v", selection.State{BodyShape: "humanoid", Species: "romulan", RomulanV: true}, []string{"romulan-v"}},
		{"human", selection.State{BodyShape: "humanoid", Species: "human"}, nil},
		{"custom", selection.State{BodyShape: "humanoid", Species: "custom"}, nil},
		{"non-humanoid keeps nothing", selection.State{BodyShape: "medusan", Species: "andorian"}, nil},
		{"unknown species", selection.State{BodyShape: "humanoid", Species: "vogon"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Features(cat, tc.st)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Features = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestChips_ExcludeForced(t *testing.T) {
	cat := catalog.MustLoad()
	// andorian-antennae is stored from an earlier custom session; it is forced
	// now and must not show up as a removable chip.
	st := selection.State{
		BodyShape:    "humanoid",
		Species:      "andorian",
		Ears:         "round",
		Uniform:      "tng",
		HeadFeatures: []string{"freckles", "andorian-antennae"},
	}
	got := Chips(cat, st, catalog.HeadFeatures)
	if !reflect.DeepEqual(got, []string{"freckles"}) {
		t.Errorf("Chips = %v, want [freckles]", got)
	}
}

func TestChips_CustomShowsTraits(t *testing.T) {
	cat := catalog.MustLoad()
	st := selection.State{
		BodyShape:    "humanoid",
		Species:      "custom",
		Ears:         "round",
		Uniform:      "tng",
		HeadFeatures: []string{"andorian-antennae", "trill-spots"},
	}
	got := Chips(cat, st, catalog.HeadFeatures)
	if !reflect.DeepEqual(got, []string{"andorian-antennae", "trill-spots"}) {
		t.Errorf("Chips = %v", got)
	}
}

func TestUnion(t *testing.T) {
	got := Union([]string{"freckles", "andorian-antennae"}, []string{"andorian-antennae", "trill-spots"})
	want := []string{"freckles", "andorian-antennae", "trill-spots"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Union = %v, want %v", got, want)
	}
	if Union(nil, nil) != nil {
		t.Error("empty union should be nil")
	}
}
