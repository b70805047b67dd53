// Package reconcile restores the Selection State invariant after a change:
// every stored value must be a currently visible option of its control.
// Invalid, unknown and now-hidden values are all treated the same way.
package reconcile

import (
	"fmt"
	"math/rand/v2"

	"github.com/kokistudios/trekicon/internal/catalog"
	"github.com/kokistudios/trekicon/internal/palette"
	"github.com/kokistudios/trekicon/internal/selection"
	"github.com/kokistudios/trekicon/internal/visibility"
)

// HueRotateVar is the archetype-scoped style override for medusans.
const HueRotateVar = "--medusan-hue-rotate"

// Neutral values of every archetype-scoped override.
var neutralOverrides = map[string]string{
	HueRotateVar: "0deg",
}

// Correction records one automatic change.
type Correction struct {
	Control catalog.ControlID `json:"control"`
	From    string            `json:"from"`
	To      string            `json:"to"`
	Reason  string            `json:"reason"`
}

func (c Correction) String() string {
	return fmt.Sprintf("%s: %q -> %q (%s)", c.Control, c.From, c.To, c.Reason)
}

// Correction reasons.
const (
	ReasonUnset   = "unset"
	ReasonUnknown = "unknown value"
	ReasonHidden  = "hidden"
	ReasonForced  = "forced by species"
	ReasonControl = "control hidden"
)

// Result is the reconciled state plus the side outputs of the pass.
type Result struct {
	State         selection.State
	Memory        selection.Memory
	Overrides     map[string]string
	NoColorChoice bool
	Corrections   []Correction
}

// Reconciler applies the fallback policy. The random source is only used for
// the uniform color fallback.
type Reconciler struct {
	cat *catalog.Catalog
	rng *rand.Rand
}

// New creates a Reconciler. A nil rng gets a randomly seeded source.
func New(cat *catalog.Catalog, rng *rand.Rand) *Reconciler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Reconciler{cat: cat, rng: rng}
}

// Reconcile runs all four steps. changed names the field the user edited, or
// is empty for a plain recomputation; it only affects what gets remembered.
func (r *Reconciler) Reconcile(in selection.State, mem selection.Memory, changed string) Result {
	st := in.Clone()
	res := Result{Memory: mem.Clone()}

	// Step 1: single-value controls, in catalog order. Visibility is resolved
	// again before each control so later controls see earlier fixes.
	for _, ctl := range r.cat.Controls() {
		if ctl.Kind != catalog.KindSingle {
			continue
		}
		report := visibility.Resolve(r.cat, st)
		r.fixSingle(ctl, report, &st, res.Memory, &res.Corrections)
	}

	// Step 2: optional, multi and toggle controls against the final
	// visibility. Nothing is auto-selected here.
	report := visibility.Resolve(r.cat, st)
	for _, ctl := range r.cat.Controls() {
		switch ctl.Kind {
		case catalog.KindOptional:
			cur := st.Value(ctl.ID)
			if cur != "" && !report.IsVisible(ctl.ID, cur) {
				st.SetValue(ctl.ID, "")
				res.Corrections = append(res.Corrections, Correction{ctl.ID, cur, "", reasonFor(ctl, cur)})
			}
		case catalog.KindMulti:
			st.SetValues(ctl.ID, r.filterMulti(ctl, report, st.Values(ctl.ID), &res.Corrections))
		case catalog.KindToggle:
			if st.Flag(ctl.ID) && !report.ControlVisible(ctl.ID) {
				st.SetFlag(ctl.ID, false)
				res.Corrections = append(res.Corrections, Correction{ctl.ID, "true", "false", ReasonControl})
			}
		}
	}

	// Step 3: reset every archetype-scoped override, then re-apply the ones
	// the current archetype uses.
	res.Overrides = make(map[string]string, len(neutralOverrides))
	for k, v := range neutralOverrides {
		res.Overrides[k] = v
	}
	if info, ok := r.cat.Archetype(st.Archetype()); ok && info.HueRotate {
		base, _ := palette.ColorHex(r.cat, catalog.BodyColor, info.DefaultBodyColor, "")
		deg := palette.HueRotation(base, palette.BodyHex(r.cat, st))
		res.Overrides[HueRotateVar] = fmt.Sprintf("%ddeg", deg)
	}

	// Step 4: color continuity.
	res.NoColorChoice = r.cat.HasTag(catalog.Uniform, st.Uniform, catalog.TagNoColorChoice)
	if st.BodyColor != catalog.CustomColor || res.NoColorChoice {
		res.Memory.RememberBodyColor(st.BodyShape, st.BodyColor, customHex(st.BodyColor, st.BodyColorHex))
	}

	r.rememberDeliberate(in, st, &res.Memory, changed)

	res.State = st
	return res
}

// rememberDeliberate records valid user color choices.
func (r *Reconciler) rememberDeliberate(in, out selection.State, mem *selection.Memory, changed string) {
	switch changed {
	case string(catalog.UniformColor):
		if out.UniformColor != "" && out.UniformColor == in.UniformColor {
			if o, ok := r.cat.Option(catalog.UniformColor, out.UniformColor); ok && len(o.Departments) > 0 {
				mem.UniformDepartments = append([]string{}, o.Departments...)
			}
		}
	case string(catalog.BodyColor), "bodyColorHex":
		if out.BodyColor != "" && out.BodyColor == in.BodyColor {
			mem.RememberBodyColor(out.BodyShape, out.BodyColor, customHex(out.BodyColor, out.BodyColorHex))
		}
	}
}

func customHex(value, hex string) string {
	if value != catalog.CustomColor {
		return ""
	}
	return hex
}

func (r *Reconciler) fixSingle(ctl *catalog.Control, report visibility.Report, st *selection.State, mem selection.Memory, out *[]Correction) {
	cur := st.Value(ctl.ID)
	if !report.ControlVisible(ctl.ID) {
		if cur != "" {
			st.SetValue(ctl.ID, "")
			*out = append(*out, Correction{ctl.ID, cur, "", ReasonControl})
		}
		return
	}

	// A species ear mapping always wins over whatever was chosen.
	if ctl.ID == catalog.Ears {
		if info, ok := r.cat.SpeciesInfo(st.Species); ok && info.Ears != "" && report.IsVisible(ctl.ID, info.Ears) {
			if cur != info.Ears {
				st.SetValue(ctl.ID, info.Ears)
				*out = append(*out, Correction{ctl.ID, cur, info.Ears, ReasonForced})
			}
			return
		}
	}

	if r.valid(ctl.ID, cur, report, *st) {
		return
	}
	next := r.fallback(ctl, report, st, mem)
	if next == cur {
		return
	}
	st.SetValue(ctl.ID, next)
	*out = append(*out, Correction{ctl.ID, cur, next, reasonFor(ctl, cur)})
}

// valid treats a custom color without a usable hex as invalid.
func (r *Reconciler) valid(id catalog.ControlID, value string, report visibility.Report, st selection.State) bool {
	if !report.IsVisible(id, value) {
		return false
	}
	if value != catalog.CustomColor {
		return true
	}
	switch id {
	case catalog.BodyColor:
		return palette.ValidHex(st.BodyColorHex)
	case catalog.HairColor:
		return palette.ValidHex(st.HairColorHex)
	}
	return true
}

func reasonFor(ctl *catalog.Control, cur string) string {
	if cur == "" {
		return ReasonUnset
	}
	if _, ok := ctl.Option(cur); !ok {
		return ReasonUnknown
	}
	return ReasonHidden
}

func (r *Reconciler) fallback(ctl *catalog.Control, report visibility.Report, st *selection.State, mem selection.Memory) string {
	visible := report.VisibleValues(ctl.ID)
	if len(visible) == 0 {
		return ""
	}
	isVisible := func(v string) bool { return v != "" && report.IsVisible(ctl.ID, v) }

	switch ctl.ID {
	case catalog.BodyShape:
		if isVisible(string(r.cat.DefaultArchetype)) {
			return string(r.cat.DefaultArchetype)
		}

	case catalog.Ears:
		// A species-tagged ear option, excluding the catch-all custom tag.
		if st.Species != catalog.CustomSpecies {
			for _, o := range ctl.Options {
				if isVisible(o.Value) && contains(o.Species, st.Species) {
					return o.Value
				}
			}
		}
		if isVisible("round") {
			return "round"
		}

	case catalog.Uniform:
		if def := r.cat.DefaultUniformFor(st.Archetype()); isVisible(def) {
			return def
		}

	case catalog.UniformColor:
		for _, v := range visible {
			o, _ := ctl.Option(v)
			if intersects(o.Departments, mem.UniformDepartments) {
				return v
			}
		}
		// Deliberately random rather than a fixed first option.
		return visible[r.rng.IntN(len(visible))]

	case catalog.BodyColor:
		if v, hex, ok := mem.LastBodyColor(st.BodyShape); ok && isVisible(v) {
			if v != catalog.CustomColor {
				return v
			}
			if palette.ValidHex(hex) {
				st.BodyColorHex = hex
				return v
			}
		}
		if info, ok := r.cat.Archetype(st.Archetype()); ok && isVisible(info.DefaultBodyColor) {
			return info.DefaultBodyColor
		}
	}

	if isVisible(ctl.Default) {
		return ctl.Default
	}
	for _, v := range visible {
		// Skip custom colors as an automatic pick; they need a hex.
		if v != catalog.CustomColor {
			return v
		}
	}
	return visible[0]
}

func (r *Reconciler) filterMulti(ctl *catalog.Control, report visibility.Report, values []string, out *[]Correction) []string {
	kept := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		if !report.IsVisible(ctl.ID, v) {
			*out = append(*out, Correction{ctl.ID, v, "", reasonFor(ctl, v)})
			continue
		}
		kept = append(kept, v)
	}
	return kept
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, x := range a {
		if contains(b, x) {
			return true
		}
	}
	return false
}
