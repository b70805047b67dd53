// Package selection holds the Selection State value object and the last-used
// color memory that persists across archetype switches.
package selection

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kokistudios/trekicon/internal/catalog"
)

// SchemaVersion is the record version written by this build.
const SchemaVersion = 3

var ErrUnknownField = errors.New("unknown field")

// State is the full record of current values for every control. It is the
// JSON record exchanged with the persistence, share and randomizer
// collaborators.
type State struct {
	Version int `json:"version"`

	BodyShape     string `json:"bodyShape"`
	Species       string `json:"species,omitempty"`
	Ears          string `json:"ears,omitempty"`
	Nose          string `json:"nose,omitempty"`
	KlingonRidges string `json:"klingonRidges,omitempty"`
	TellariteNose string `json:"tellariteNose,omitempty"`
	Tusks         bool   `json:"tusks,omitempty"`
	RomulanV      bool   `json:"romulanV,omitempty"`
	MedusanBox    bool   `json:"medusanBox,omitempty"`

	Hair           string `json:"hair,omitempty"`
	RearHair       string `json:"rearHair,omitempty"`
	FacialHair     string `json:"facialHair,omitempty"`
	HairMirror     bool   `json:"hairMirror,omitempty"`
	RearHairMirror bool   `json:"rearHairMirror,omitempty"`

	HeadFeatures []string `json:"headFeatures"`
	Jewelry      []string `json:"jewelry"`
	Hat          string   `json:"hat,omitempty"`
	Eyewear      string   `json:"eyewear,omitempty"`

	Uniform      string `json:"uniform"`
	UniformColor string `json:"uniformColor,omitempty"`

	BodyColor    string `json:"bodyColor"`
	BodyColorHex string `json:"bodyColorHex,omitempty"`
	HairColor    string `json:"hairColor,omitempty"`
	HairColorHex string `json:"hairColorHex,omitempty"`
	HairSync     bool   `json:"hairSync,omitempty"`

	AntennaeColor string `json:"antennaeColor,omitempty"`
	AntennaeSync  bool   `json:"antennaeSync,omitempty"`
	TuftColor     string `json:"tuftColor,omitempty"`
	TuftSync      bool   `json:"tuftSync,omitempty"`
	WhiskersColor string `json:"whiskersColor,omitempty"`
	WhiskersSync  bool   `json:"whiskersSync,omitempty"`
}

// Default builds the startup state from catalog defaults. The result is not
// reconciled; run it through the pipeline before use.
func Default(cat *catalog.Catalog) State {
	st := State{
		Version:   SchemaVersion,
		BodyShape: string(cat.DefaultArchetype),
		Uniform:   cat.DefaultUniformFor(cat.DefaultArchetype),
	}
	if info, ok := cat.Archetype(cat.DefaultArchetype); ok {
		st.BodyColor = info.DefaultBodyColor
	}
	for _, ctl := range cat.Controls() {
		if ctl.Default == "" {
			continue
		}
		if p := st.str(ctl.ID); p != nil && *p == "" {
			*p = ctl.Default
		}
	}
	return st
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	if s.HeadFeatures != nil {
		out.HeadFeatures = append([]string{}, s.HeadFeatures...)
	}
	if s.Jewelry != nil {
		out.Jewelry = append([]string{}, s.Jewelry...)
	}
	return out
}

// Archetype returns the active archetype.
func (s State) Archetype() catalog.Archetype {
	return catalog.Archetype(s.BodyShape)
}

func (s *State) str(id catalog.ControlID) *string {
	switch id {
	case catalog.BodyShape:
		return &s.BodyShape
	case catalog.Species:
		return &s.Species
	case catalog.Ears:
		return &s.Ears
	case catalog.Nose:
		return &s.Nose
	case catalog.KlingonRidges:
		return &s.KlingonRidges
	case catalog.TellariteNose:
		return &s.TellariteNose
	case catalog.Hair:
		return &s.Hair
	case catalog.RearHair:
		return &s.RearHair
	case catalog.FacialHair:
		return &s.FacialHair
	case catalog.Hat:
		return &s.Hat
	case catalog.Eyewear:
		return &s.Eyewear
	case catalog.Uniform:
		return &s.Uniform
	case catalog.UniformColor:
		return &s.UniformColor
	case catalog.BodyColor:
		return &s.BodyColor
	case catalog.HairColor:
		return &s.HairColor
	}
	return nil
}

func (s *State) list(id catalog.ControlID) *[]string {
	switch id {
	case catalog.HeadFeatures:
		return &s.HeadFeatures
	case catalog.Jewelry:
		return &s.Jewelry
	}
	return nil
}

func (s *State) flag(id catalog.ControlID) *bool {
	switch id {
	case catalog.Tusks:
		return &s.Tusks
	case catalog.RomulanV:
		return &s.RomulanV
	case catalog.MedusanBox:
		return &s.MedusanBox
	case catalog.HairMirror:
		return &s.HairMirror
	case catalog.RearHairMirror:
		return &s.RearHairMirror
	}
	return nil
}

// Value returns a single-valued control's value.
func (s *State) Value(id catalog.ControlID) string {
	if p := s.str(id); p != nil {
		return *p
	}
	return ""
}

// SetValue stores a single-valued control's value.
func (s *State) SetValue(id catalog.ControlID, v string) {
	if p := s.str(id); p != nil {
		*p = v
	}
}

// Values returns a multi-valued control's values.
func (s *State) Values(id catalog.ControlID) []string {
	if p := s.list(id); p != nil {
		return *p
	}
	return nil
}

// SetValues stores a multi-valued control's values.
func (s *State) SetValues(id catalog.ControlID, v []string) {
	if p := s.list(id); p != nil {
		*p = v
	}
}

// Flag returns a toggle control's value.
func (s *State) Flag(id catalog.ControlID) bool {
	if p := s.flag(id); p != nil {
		return *p
	}
	return false
}

// SetFlag stores a toggle control's value.
func (s *State) SetFlag(id catalog.ControlID, v bool) {
	if p := s.flag(id); p != nil {
		*p = v
	}
}

// Toggle adds value to a multi control, or removes it when present.
func (s *State) Toggle(id catalog.ControlID, value string) {
	p := s.list(id)
	if p == nil {
		return
	}
	for i, v := range *p {
		if v == value {
			*p = append((*p)[:i:i], (*p)[i+1:]...)
			return
		}
	}
	*p = append(*p, value)
}

// Has reports whether a multi control holds value.
func (s *State) Has(id catalog.ControlID, value string) bool {
	for _, v := range s.Values(id) {
		if v == value {
			return true
		}
	}
	return false
}

// Color and sync fields that are not catalog controls but are still settable
// by name.
var extraStrings = map[string]func(*State) *string{
	"bodyColorHex":  func(s *State) *string { return &s.BodyColorHex },
	"hairColorHex":  func(s *State) *string { return &s.HairColorHex },
	"antennaeColor": func(s *State) *string { return &s.AntennaeColor },
	"tuftColor":     func(s *State) *string { return &s.TuftColor },
	"whiskersColor": func(s *State) *string { return &s.WhiskersColor },
}

var extraFlags = map[string]func(*State) *bool{
	"hairSync":     func(s *State) *bool { return &s.HairSync },
	"antennaeSync": func(s *State) *bool { return &s.AntennaeSync },
	"tuftSync":     func(s *State) *bool { return &s.TuftSync },
	"whiskersSync": func(s *State) *bool { return &s.WhiskersSync },
}

// Fields lists every settable field name, sorted.
func Fields(cat *catalog.Catalog) []string {
	var out []string
	for _, ctl := range cat.Controls() {
		out = append(out, string(ctl.ID))
	}
	for k := range extraStrings {
		out = append(out, k)
	}
	for k := range extraFlags {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Set assigns a field from its textual form. Multi fields take a comma
// separated list; "+v" and "-v" add or remove one value instead. Values are
// not validated against the catalog here, the reconciler does that.
func (s *State) Set(field, raw string) error {
	raw = strings.TrimSpace(raw)
	id := catalog.ControlID(field)
	if p := s.str(id); p != nil {
		*p = raw
		return nil
	}
	if p := s.list(id); p != nil {
		switch {
		case strings.HasPrefix(raw, "+"):
			if v := strings.TrimPrefix(raw, "+"); !s.Has(id, v) {
				*p = append(*p, v)
			}
		case strings.HasPrefix(raw, "-"):
			v := strings.TrimPrefix(raw, "-")
			if s.Has(id, v) {
				s.Toggle(id, v)
			}
		default:
			*p = splitList(raw)
		}
		return nil
	}
	if p := s.flag(id); p != nil {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s expects true or false: %w", field, err)
		}
		*p = b
		return nil
	}
	if f, ok := extraStrings[field]; ok {
		*f(s) = raw
		return nil
	}
	if f, ok := extraFlags[field]; ok {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s expects true or false: %w", field, err)
		}
		*f(s) = b
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownField, field)
}

// Get returns a field's textual form.
func (s *State) Get(field string) (string, error) {
	id := catalog.ControlID(field)
	if p := s.str(id); p != nil {
		return *p, nil
	}
	if p := s.list(id); p != nil {
		return strings.Join(*p, ","), nil
	}
	if p := s.flag(id); p != nil {
		return strconv.FormatBool(*p), nil
	}
	if f, ok := extraStrings[field]; ok {
		return *f(s), nil
	}
	if f, ok := extraFlags[field]; ok {
		return strconv.FormatBool(*f(s)), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownField, field)
}

func splitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
