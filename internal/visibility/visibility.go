// Package visibility computes, for every option of every control, whether it
// is currently selectable. Each call recomputes everything from the catalog
// and the given state; nothing is cached between calls.
package visibility

import (
	"github.com/kokistudios/trekicon/internal/catalog"
	"github.com/kokistudios/trekicon/internal/selection"
)

// OptionState is one option and its current availability.
type OptionState struct {
	Value   string `json:"value"`
	Label   string `json:"label"`
	Group   string `json:"group,omitempty"`
	Visible bool   `json:"visible"`
}

// ControlState is one control and its options. A control is visible when it
// applies to the context and, if it has options, at least one is visible.
type ControlState struct {
	ID      catalog.ControlID   `json:"id"`
	Kind    catalog.ControlKind `json:"kind"`
	Label   string              `json:"label"`
	Visible bool                `json:"visible"`
	Options []OptionState       `json:"options,omitempty"`
}

// Report is the result of one full resolution pass.
type Report struct {
	Context  catalog.Context `json:"context"`
	Controls []ControlState  `json:"controls"`

	index map[catalog.ControlID]int
}

// ContextOf derives the predicate context from a state.
func ContextOf(cat *catalog.Catalog, st selection.State) catalog.Context {
	ctx := catalog.Context{Archetype: st.Archetype()}
	if ctx.Archetype == catalog.Humanoid {
		ctx.Species = st.Species
		ctx.Ears = st.Ears
	}
	if o, ok := cat.Option(catalog.Uniform, st.Uniform); ok {
		ctx.Filter = o.Filter
	}
	return ctx
}

// Resolve runs the full pass over every control.
func Resolve(cat *catalog.Catalog, st selection.State) Report {
	ctx := ContextOf(cat, st)
	r := Report{
		Context: ctx,
		index:   make(map[catalog.ControlID]int),
	}
	for _, ctl := range cat.Controls() {
		cs := ControlState{ID: ctl.ID, Kind: ctl.Kind, Label: ctl.Label}
		applies := cat.ControlApplies(ctl.ID, ctx)
		pred := cat.VisibleFor(ctl.ID, ctx)
		anyVisible := false
		for _, o := range ctl.Options {
			v := applies && pred(o)
			anyVisible = anyVisible || v
			cs.Options = append(cs.Options, OptionState{Value: o.Value, Label: o.Label, Group: o.Group, Visible: v})
		}
		cs.Visible = applies && (len(ctl.Options) == 0 || anyVisible)
		r.index[ctl.ID] = len(r.Controls)
		r.Controls = append(r.Controls, cs)
	}
	return r
}

// Control returns the resolved state of one control.
func (r Report) Control(id catalog.ControlID) (ControlState, bool) {
	i, ok := r.index[id]
	if !ok {
		return ControlState{}, false
	}
	return r.Controls[i], true
}

// ControlVisible reports whether a control is shown at all.
func (r Report) ControlVisible(id catalog.ControlID) bool {
	cs, ok := r.Control(id)
	return ok && cs.Visible
}

// IsVisible reports whether value is a currently selectable option of id.
// Values not in the catalog are never visible.
func (r Report) IsVisible(id catalog.ControlID, value string) bool {
	cs, ok := r.Control(id)
	if !ok || !cs.Visible {
		return false
	}
	for _, o := range cs.Options {
		if o.Value == value {
			return o.Visible
		}
	}
	return false
}

// VisibleValues lists the currently selectable values of a control in catalog
// order.
func (r Report) VisibleValues(id catalog.ControlID) []string {
	cs, ok := r.Control(id)
	if !ok || !cs.Visible {
		return nil
	}
	var out []string
	for _, o := range cs.Options {
		if o.Visible {
			out = append(out, o.Value)
		}
	}
	return out
}

// Hidden lists the options of a control that are currently not selectable.
func (r Report) Hidden(id catalog.ControlID) []string {
	cs, ok := r.Control(id)
	if !ok {
		return nil
	}
	var out []string
	for _, o := range cs.Options {
		if !o.Visible {
			out = append(out, o.Value)
		}
	}
	return out
}
