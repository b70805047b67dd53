// Package catalog holds the static option catalog: which controls exist, which
// options each control offers, and the predicates that decide when an option
// applies to the active archetype and species.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embedded []byte

type Archetype string

const (
	Humanoid   Archetype = "humanoid"
	Cetaceous  Archetype = "cetaceous"
	Medusan    Archetype = "medusan"
	CalMirran  Archetype = "cal-mirran"
	Qofuari    Archetype = "qofuari"
	Sukhabelan Archetype = "sukhabelan"
	Exocomp    Archetype = "exocomp"
)

// CustomSpecies is the humanoid variant with nothing specified.
const CustomSpecies = "custom"

// None is the sentinel option value that renders nothing.
const None = "none"

type ControlID string

const (
	BodyShape      ControlID = "bodyShape"
	Species        ControlID = "species"
	Ears           ControlID = "ears"
	Nose           ControlID = "nose"
	KlingonRidges  ControlID = "klingonRidges"
	TellariteNose  ControlID = "tellariteNose"
	Tusks          ControlID = "tusks"
	RomulanV       ControlID = "romulanV"
	MedusanBox     ControlID = "medusanBox"
	Hair           ControlID = "hair"
	RearHair       ControlID = "rearHair"
	FacialHair     ControlID = "facialHair"
	HairMirror     ControlID = "hairMirror"
	RearHairMirror ControlID = "rearHairMirror"
	HeadFeatures   ControlID = "headFeatures"
	Jewelry        ControlID = "jewelry"
	Hat            ControlID = "hat"
	Eyewear        ControlID = "eyewear"
	Uniform        ControlID = "uniform"
	UniformColor   ControlID = "uniformColor"
	BodyColor      ControlID = "bodyColor"
	HairColor      ControlID = "hairColor"
)

type ControlKind string

const (
	KindSingle   ControlKind = "single"   // exactly one value, replaced when invalid
	KindOptional ControlKind = "optional" // one value or empty, cleared when invalid
	KindMulti    ControlKind = "multi"    // set of values, filtered when invalid
	KindToggle   ControlKind = "toggle"   // checkbox, reset when the control is hidden
)

// Catalog tags.
const (
	TagNoColorChoice = "no-color-choice"
	TagUnderUniform  = "under-uniform"
	TagAccentPrefix  = "requires-accent:"
)

// CustomColor is the color option that defers to a free hex value.
const CustomColor = "custom"

var (
	ErrUnknownControl = errors.New("unknown control")
	ErrUnknownOption  = errors.New("unknown option")
)

// Option is one selectable value of a control.
type Option struct {
	Value         string   `yaml:"value"`
	Label         string   `yaml:"label"`
	Group         string   `yaml:"group,omitempty"`
	Archetypes    []string `yaml:"archetypes,omitempty"`
	Species       []string `yaml:"species,omitempty"`
	ExceptSpecies []string `yaml:"exceptSpecies,omitempty"`
	Ears          []string `yaml:"ears,omitempty"`
	Filter        string   `yaml:"filter,omitempty"`
	Tags          []string `yaml:"tags,omitempty"`
	Departments   []string `yaml:"departments,omitempty"`
	Asset         string   `yaml:"asset,omitempty"`
	Overlay       string   `yaml:"overlay,omitempty"`
	Underlay      string   `yaml:"underlay,omitempty"`
	Hex           string   `yaml:"hex,omitempty"`
	Undershirt    string   `yaml:"undershirt,omitempty"`
	Hook          string   `yaml:"hook,omitempty"`
}

// HasTag reports whether the option carries tag.
func (o Option) HasTag(tag string) bool {
	for _, t := range o.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Accents returns the accent color variables this option requires.
func (o Option) Accents() []string {
	var out []string
	for _, t := range o.Tags {
		if strings.HasPrefix(t, TagAccentPrefix) {
			out = append(out, strings.TrimPrefix(t, TagAccentPrefix))
		}
	}
	return out
}

// Control is a named group of options backed by one Selection State field.
type Control struct {
	ID            ControlID   `yaml:"id"`
	Kind          ControlKind `yaml:"kind"`
	Label         string      `yaml:"label"`
	Archetypes    []string    `yaml:"archetypes,omitempty"`
	Species       []string    `yaml:"species,omitempty"`
	ExceptSpecies []string    `yaml:"exceptSpecies,omitempty"`
	Default       string      `yaml:"default,omitempty"`
	AssetDir      string      `yaml:"assetDir,omitempty"`
	GroupFilter   bool        `yaml:"groupFilter,omitempty"`
	Options       []Option    `yaml:"options,omitempty"`
}

// Option looks up an option by value.
func (c *Control) Option(value string) (Option, bool) {
	for _, o := range c.Options {
		if o.Value == value {
			return o, true
		}
	}
	return Option{}, false
}

// ArchetypeInfo describes one body archetype.
type ArchetypeInfo struct {
	Value            Archetype `yaml:"value"`
	Label            string    `yaml:"label"`
	Weight           int       `yaml:"weight"`
	Body             string    `yaml:"body"`
	BodyOverlay      string    `yaml:"bodyOverlay,omitempty"`
	Box              string    `yaml:"box,omitempty"`
	HueRotate        bool      `yaml:"hueRotate,omitempty"`
	DefaultUniform   string    `yaml:"defaultUniform,omitempty"`
	DefaultBodyColor string    `yaml:"defaultBodyColor,omitempty"`
}

// SpeciesInfo describes one humanoid species and what it forces.
type SpeciesInfo struct {
	Value        string               `yaml:"value"`
	Label        string               `yaml:"label"`
	Weight       int                  `yaml:"weight"`
	Ears         string               `yaml:"ears,omitempty"`
	Forced       []string             `yaml:"forced,omitempty"`
	SubSelectors []ControlID          `yaml:"subSelectors,omitempty"`
	Toggles      map[ControlID]string `yaml:"toggles,omitempty"`
}

type document struct {
	Version          int             `yaml:"version"`
	DefaultArchetype Archetype       `yaml:"defaultArchetype"`
	DefaultUniform   string          `yaml:"defaultUniform"`
	EmptyAssets      []string        `yaml:"emptyAssets"`
	Archetypes       []ArchetypeInfo `yaml:"archetypes"`
	Species          []SpeciesInfo   `yaml:"species"`
	Controls         []Control       `yaml:"controls"`
}

// Catalog is the parsed, validated option catalog. It is read-only after
// Parse returns.
type Catalog struct {
	Version          int
	DefaultArchetype Archetype
	DefaultUniform   string

	emptyAssets map[string]bool
	archetypes  []ArchetypeInfo
	species     []SpeciesInfo
	controls    []*Control
	byID        map[ControlID]*Control
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(embedded)
}

// MustLoad is Load for package-level initialisation and tests.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid catalog yaml: %w", err)
	}

	c := &Catalog{
		Version:          doc.Version,
		DefaultArchetype: doc.DefaultArchetype,
		DefaultUniform:   doc.DefaultUniform,
		emptyAssets:      make(map[string]bool),
		archetypes:       doc.Archetypes,
		species:          doc.Species,
		byID:             make(map[ControlID]*Control),
	}
	for _, a := range doc.EmptyAssets {
		c.emptyAssets[a] = true
	}

	// bodyShape and species options are generated from their tables.
	shape := &Control{ID: BodyShape, Kind: KindSingle, Label: "Body shape", Default: string(doc.DefaultArchetype)}
	for _, a := range doc.Archetypes {
		shape.Options = append(shape.Options, Option{Value: string(a.Value), Label: a.Label})
	}
	c.controls = append(c.controls, shape)
	c.byID[BodyShape] = shape

	for i := range doc.Controls {
		ctl := &doc.Controls[i]
		if ctl.ID == Species {
			for _, s := range doc.Species {
				ctl.Options = append(ctl.Options, Option{Value: s.Value, Label: s.Label})
			}
		}
		if _, dup := c.byID[ctl.ID]; dup {
			return nil, fmt.Errorf("duplicate control %q", ctl.ID)
		}
		c.controls = append(c.controls, ctl)
		c.byID[ctl.ID] = ctl
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	if _, ok := c.Archetype(c.DefaultArchetype); !ok {
		return fmt.Errorf("default archetype %q is not declared", c.DefaultArchetype)
	}
	archetypes := make(map[string]bool)
	for _, a := range c.archetypes {
		archetypes[string(a.Value)] = true
	}
	species := make(map[string]bool)
	for _, s := range c.species {
		species[s.Value] = true
	}

	checkRefs := func(where string, archs, specs []string) error {
		for _, a := range archs {
			if !archetypes[a] {
				return fmt.Errorf("%s: unknown archetype %q", where, a)
			}
		}
		for _, s := range specs {
			if !species[s] {
				return fmt.Errorf("%s: unknown species %q", where, s)
			}
		}
		return nil
	}

	for _, ctl := range c.controls {
		switch ctl.Kind {
		case KindSingle, KindOptional, KindMulti, KindToggle:
		default:
			return fmt.Errorf("control %s: unknown kind %q", ctl.ID, ctl.Kind)
		}
		if err := checkRefs("control "+string(ctl.ID), ctl.Archetypes, append(append([]string{}, ctl.Species...), ctl.ExceptSpecies...)); err != nil {
			return err
		}
		seen := make(map[string]bool)
		for _, o := range ctl.Options {
			if o.Value == "" {
				return fmt.Errorf("control %s: option with empty value", ctl.ID)
			}
			if seen[o.Value] {
				return fmt.Errorf("control %s: duplicate option %q", ctl.ID, o.Value)
			}
			seen[o.Value] = true
			where := fmt.Sprintf("control %s option %s", ctl.ID, o.Value)
			if err := checkRefs(where, o.Archetypes, append(append([]string{}, o.Species...), o.ExceptSpecies...)); err != nil {
				return err
			}
		}
		if ctl.Default != "" && !seen[ctl.Default] {
			return fmt.Errorf("control %s: default %q is not an option", ctl.ID, ctl.Default)
		}
	}

	uniform := c.byID[Uniform]
	bodyColor := c.byID[BodyColor]
	if uniform == nil || bodyColor == nil {
		return fmt.Errorf("catalog must declare %s and %s controls", Uniform, BodyColor)
	}
	if _, ok := uniform.Option(c.DefaultUniform); !ok {
		return fmt.Errorf("default uniform %q is not an option", c.DefaultUniform)
	}
	for _, a := range c.archetypes {
		if a.DefaultUniform != "" {
			if _, ok := uniform.Option(a.DefaultUniform); !ok {
				return fmt.Errorf("archetype %s: default uniform %q is not an option", a.Value, a.DefaultUniform)
			}
		}
		if a.DefaultBodyColor != "" {
			if _, ok := bodyColor.Option(a.DefaultBodyColor); !ok {
				return fmt.Errorf("archetype %s: default body color %q is not an option", a.Value, a.DefaultBodyColor)
			}
		}
	}
	ears := c.byID[Ears]
	for _, s := range c.species {
		if s.Ears != "" && ears != nil {
			if _, ok := ears.Option(s.Ears); !ok {
				return fmt.Errorf("species %s: ear style %q is not an option", s.Value, s.Ears)
			}
		}
		for _, id := range s.SubSelectors {
			if _, ok := c.byID[id]; !ok {
				return fmt.Errorf("species %s: unknown sub-selector %q", s.Value, id)
			}
		}
		for id := range s.Toggles {
			if ctl, ok := c.byID[id]; !ok || ctl.Kind != KindToggle {
				return fmt.Errorf("species %s: %q is not a toggle control", s.Value, id)
			}
		}
	}
	return nil
}

// Controls returns every control in reconciliation order.
func (c *Catalog) Controls() []*Control {
	return c.controls
}

// Control looks up a control by id.
func (c *Catalog) Control(id ControlID) (*Control, error) {
	ctl, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownControl, id)
	}
	return ctl, nil
}

// Option looks up one option of a control.
func (c *Catalog) Option(id ControlID, value string) (Option, bool) {
	ctl, ok := c.byID[id]
	if !ok {
		return Option{}, false
	}
	return ctl.Option(value)
}

// HasTag reports whether the option value of control id carries tag.
func (c *Catalog) HasTag(id ControlID, value, tag string) bool {
	o, ok := c.Option(id, value)
	return ok && o.HasTag(tag)
}

// Archetypes returns the archetype table in declaration order.
func (c *Catalog) Archetypes() []ArchetypeInfo {
	return c.archetypes
}

// Archetype looks up one archetype.
func (c *Catalog) Archetype(a Archetype) (ArchetypeInfo, bool) {
	for _, info := range c.archetypes {
		if info.Value == a {
			return info, true
		}
	}
	return ArchetypeInfo{}, false
}

// SpeciesList returns the species table in declaration order.
func (c *Catalog) SpeciesList() []SpeciesInfo {
	return c.species
}

// SpeciesInfo looks up one species.
func (c *Catalog) SpeciesInfo(value string) (SpeciesInfo, bool) {
	for _, s := range c.species {
		if s.Value == value {
			return s, true
		}
	}
	return SpeciesInfo{}, false
}

// DefaultUniformFor returns the archetype's designated uniform, falling back to
// the global default for archetypes without an entry.
func (c *Catalog) DefaultUniformFor(a Archetype) string {
	if info, ok := c.Archetype(a); ok && info.DefaultUniform != "" {
		return info.DefaultUniform
	}
	return c.DefaultUniform
}

// ForcedFeaturesFor returns the features the species mandates: the static
// list, then chosen sub-selector values, then active toggle features. subChoices
// maps sub-selector and toggle control ids to their current value ("true" for
// an active toggle).
func (c *Catalog) ForcedFeaturesFor(a Archetype, species string, subChoices map[ControlID]string) []string {
	if a != Humanoid {
		return nil
	}
	info, ok := c.SpeciesInfo(species)
	if !ok {
		return nil
	}
	out := append([]string(nil), info.Forced...)
	for _, id := range info.SubSelectors {
		if v := subChoices[id]; v != "" {
			out = append(out, v)
		}
	}
	// Toggle order follows the toggle controls' catalog order so the result
	// does not depend on map iteration.
	for _, ctl := range c.controls {
		feature, ok := info.Toggles[ctl.ID]
		if ok && subChoices[ctl.ID] == "true" {
			out = append(out, feature)
		}
	}
	return out
}

// Extras are the bonus assets an option carries besides its own layer.
type Extras struct {
	Overlay  string
	Underlay string
}

// ExtraAssetsFor returns the overlay/underlay references of an option.
func (c *Catalog) ExtraAssetsFor(id ControlID, value string) Extras {
	o, ok := c.Option(id, value)
	if !ok {
		return Extras{}
	}
	return Extras{Overlay: o.Overlay, Underlay: o.Underlay}
}

// IsEmptyAsset reports whether an asset reference is a known always-empty
// placeholder or ends in the none sentinel.
func (c *Catalog) IsEmptyAsset(path string) bool {
	if path == "" {
		return true
	}
	base := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		base = path[i+1:]
	}
	if c.emptyAssets[base] {
		return true
	}
	name := strings.TrimSuffix(base, ".svg")
	return name == None
}

// AssetFor resolves the asset reference for an option, defaulting to
// <assetDir>/<value>.svg.
func (c *Catalog) AssetFor(id ControlID, value string) string {
	if value == "" || value == None {
		return ""
	}
	ctl, ok := c.byID[id]
	if !ok {
		return ""
	}
	if o, ok := ctl.Option(value); ok && o.Asset != "" {
		return o.Asset
	}
	dir := ctl.AssetDir
	if dir == "" {
		dir = string(id)
	}
	return dir + "/" + value + ".svg"
}
