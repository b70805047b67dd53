package pipeline

import (
	"errors"
	"io"
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/kokistudios/trekicon/internal/catalog"
	"github.com/kokistudios/trekicon/internal/compose"
	"github.com/kokistudios/trekicon/internal/selection"
	"github.com/kokistudios/trekicon/internal/visibility"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	return New(catalog.MustLoad(), Config{
		Rand:   rand.New(rand.NewPCG(7, 11)),
		Logger: log.New(io.Discard),
	})
}

func mustSet(t *testing.T, e *Engine, res Result, field, value string) Result {
	t.Helper()
	next, err := e.Set(res.State, res.Memory, field, value)
	if err != nil {
		t.Fatalf("Set(%s, %s): %v", field, value, err)
	}
	return next
}

func visibleSets(r visibility.Report) map[catalog.ControlID][]string {
	out := make(map[catalog.ControlID][]string)
	for _, cs := range r.Controls {
		out[cs.ID] = r.VisibleValues(cs.ID)
	}
	return out
}

func renderedFeatures(out compose.Output) map[string]bool {
	m := make(map[string]bool)
	for _, l := range out.Layers {
		if l.Slot == compose.SlotHeadFeature && !l.Empty() {
			m[l.Value] = true
		}
	}
	return m
}

func TestDefault(t *testing.T) {
	e := newEngine(t)
	res := e.Default()
	if res.State.BodyShape != "humanoid" {
		t.Errorf("body shape = %s", res.State.BodyShape)
	}
	if len(res.Output.Layers) == 0 {
		t.Error("no layers")
	}
}

func TestSet_UnknownField(t *testing.T) {
	e := newEngine(t)
	res := e.Default()
	if _, err := e.Set(res.State, res.Memory, "warpFactor", "9"); !errors.Is(err, selection.ErrUnknownField) {
		t.Errorf("err = %v", err)
	}
}

func TestNoStaleSelectionsAfterArchetypeSwitch(t *testing.T) {
	e := newEngine(t)
	cat := e.Catalog()
	start := e.Default()
	start = mustSet(t, e, start, "species", "custom")
	start = mustSet(t, e, start, "headFeatures", "andorian-antennae,freckles,cardassian-neck")
	start = mustSet(t, e, start, "jewelry", "hoop-earrings,necklace")
	start = mustSet(t, e, start, "hat", "beret")
	start = mustSet(t, e, start, "hairMirror", "true")

	for _, a := range cat.Archetypes() {
		t.Run(string(a.Value), func(t *testing.T) {
			res := mustSet(t, e, start, "bodyShape", string(a.Value))
			for _, ctl := range cat.Controls() {
				switch ctl.Kind {
				case catalog.KindSingle, catalog.KindOptional:
					if v := res.State.Value(ctl.ID); v != "" && !res.Visibility.IsVisible(ctl.ID, v) {
						t.Errorf("%s: stale %q", ctl.ID, v)
					}
				case catalog.KindMulti:
					for _, v := range res.State.Values(ctl.ID) {
						if !res.Visibility.IsVisible(ctl.ID, v) {
							t.Errorf("%s: stale %q", ctl.ID, v)
						}
					}
				case catalog.KindToggle:
					if res.State.Flag(ctl.ID) && !res.Visibility.ControlVisible(ctl.ID) {
						t.Errorf("%s: hidden toggle still on", ctl.ID)
					}
				}
			}
		})
	}
}

func TestArchetypeRoundTripHasNoHysteresis(t *testing.T) {
	e := newEngine(t)
	cat := e.Catalog()
	for _, a := range cat.Archetypes() {
		for _, b := range cat.Archetypes() {
			fresh := mustSet(t, e, e.Default(), "bodyShape", string(a.Value))
			via := mustSet(t, e, fresh, "bodyShape", string(b.Value))
			back := mustSet(t, e, via, "bodyShape", string(a.Value))

			if !reflect.DeepEqual(visibleSets(back.Visibility), visibleSets(fresh.Visibility)) {
				t.Errorf("%s->%s->%s: visible sets differ", a.Value, b.Value, a.Value)
			}
			if !reflect.DeepEqual(back.Forced, fresh.Forced) {
				t.Errorf("%s->%s->%s: forced %v, want %v", a.Value, b.Value, a.Value, back.Forced, fresh.Forced)
			}
		}
	}
}

func TestForcedFeaturesRenderedNeverChips(t *testing.T) {
	e := newEngine(t)
	cat := e.Catalog()
	for _, sp := range cat.SpeciesList() {
		t.Run(sp.Value, func(t *testing.T) {
			res := mustSet(t, e, e.Default(), "species", sp.Value)
			// An explicit copy of a forced feature must not turn it into a chip.
			for _, f := range res.Forced {
				res = e.Toggle(res.State, res.Memory, catalog.HeadFeatures, f)
			}
			rendered := renderedFeatures(res.Output)
			for _, f := range res.Forced {
				if !rendered[f] {
					t.Errorf("forced %s not rendered", f)
				}
				for _, chip := range res.Chips[catalog.HeadFeatures] {
					if chip == f {
						t.Errorf("forced %s shown as chip", f)
					}
				}
			}
		})
	}
}

func TestFerengiThenCustom(t *testing.T) {
	e := newEngine(t)
	res := mustSet(t, e, e.Default(), "species", "ferengi")
	if res.State.Ears != "ferengi" {
		t.Errorf("ears = %s", res.State.Ears)
	}
	if !renderedFeatures(res.Output)["ferengi-brow"] {
		t.Error("ferengi-brow not rendered")
	}
	if res.Visibility.ControlVisible(catalog.Nose) {
		t.Error("nose control should be hidden for ferengi")
	}

	res = mustSet(t, e, res, "species", "custom")
	if !res.Visibility.IsVisible(catalog.Nose, "cat-nose") {
		t.Error("cat-nose should be visible again")
	}
	if renderedFeatures(res.Output)["ferengi-brow"] {
		t.Error("ferengi-brow leaked into custom")
	}
}

func TestAndorianHook(t *testing.T) {
	e := newEngine(t)
	res := mustSet(t, e, e.Default(), "species", "andorian")
	if !renderedFeatures(res.Output)["andorian-antennae"] {
		t.Error("antennae not rendered")
	}
	if !reflect.DeepEqual(res.Output.Hooks, []string{"has-antennae"}) {
		t.Errorf("hooks = %v", res.Output.Hooks)
	}
	for _, sp := range e.Catalog().SpeciesList() {
		if sp.Value == "andorian" {
			continue
		}
		next := mustSet(t, e, res, "species", sp.Value)
		for _, h := range next.Output.Hooks {
			if h == "has-antennae" {
				t.Errorf("%s still has the antennae hook", sp.Value)
			}
		}
	}
}

func TestMirrorFlipsOnlyItsLayer(t *testing.T) {
	e := newEngine(t)
	res := mustSet(t, e, e.Default(), "rearHair", "ponytail")

	res = mustSet(t, e, res, "hairMirror", "true")
	hair, _ := res.Output.Layer(compose.SlotHair)
	rear, _ := res.Output.Layer(compose.SlotRearHair)
	if !hair.Mirrored || rear.Mirrored {
		t.Errorf("hair mirror: hair=%v rear=%v", hair.Mirrored, rear.Mirrored)
	}

	res = mustSet(t, e, res, "hairMirror", "false")
	res = mustSet(t, e, res, "rearHairMirror", "true")
	hair, _ = res.Output.Layer(compose.SlotHair)
	rear, _ = res.Output.Layer(compose.SlotRearHair)
	if hair.Mirrored || !rear.Mirrored {
		t.Errorf("rear mirror: hair=%v rear=%v", hair.Mirrored, rear.Mirrored)
	}
	if rear.Transform != compose.MirrorTransform(e.Canvas().Width) {
		t.Errorf("transform = %s", rear.Transform)
	}
}

func TestJewelryVisibilityRestored(t *testing.T) {
	cases := []struct {
		name  string
		setup [][2]string
	}{
		{"ferengi", [][2]string{{"species", "ferengi"}}},
		{"caitian", [][2]string{{"species", "caitian"}}},
		{"custom caitian ears", [][2]string{{"species", "custom"}, {"ears", "caitian"}}},
		{"cetaceous", [][2]string{{"bodyShape", "cetaceous"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEngine(t)
			res := e.Default()
			for _, kv := range tc.setup {
				res = mustSet(t, e, res, kv[0], kv[1])
			}
			if res.Visibility.IsVisible(catalog.Jewelry, "hoop-earrings") {
				t.Fatal("hoop earrings should be hidden in the setup state")
			}
			if tc.setup[0][0] == "bodyShape" {
				res = mustSet(t, e, res, "bodyShape", "humanoid")
			}
			res = mustSet(t, e, res, "species", "denobulan")
			for _, v := range []string{"bajoran-earring", "stud-earrings", "hoop-earrings", "nose-ring", "necklace"} {
				if !res.Visibility.IsVisible(catalog.Jewelry, v) {
					t.Errorf("%s hidden after switching to denobulan (ears %s)", v, res.State.Ears)
				}
			}
		})
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	e := newEngine(t)
	res := mustSet(t, e, e.Default(), "species", "klingon")
	again := e.Apply(res.State, res.Memory, "")
	if !reflect.DeepEqual(again.State, res.State) {
		t.Errorf("state changed on reapply:\n%+v\n%+v", res.State, again.State)
	}
	if !reflect.DeepEqual(again.Output, res.Output) {
		t.Error("output changed on reapply")
	}
}

func TestKlingonSubSelector(t *testing.T) {
	e := newEngine(t)
	res := mustSet(t, e, e.Default(), "species", "klingon")
	res = mustSet(t, e, res, "klingonRidges", "klingon-ridges-dsc")
	if !reflect.DeepEqual(res.Forced, []string{"klingon-ridges-dsc"}) {
		t.Errorf("forced = %v", res.Forced)
	}
	if !renderedFeatures(res.Output)["klingon-ridges-dsc"] {
		t.Error("chosen ridge variant not rendered")
	}
}
