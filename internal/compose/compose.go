// Package compose maps a reconciled selection to an ordered layer stack and
// the color variables the stylesheet binds.
package compose

import (
	"fmt"
	"sort"

	"github.com/kokistudios/trekicon/internal/catalog"
	"github.com/kokistudios/trekicon/internal/forced"
	"github.com/kokistudios/trekicon/internal/palette"
	"github.com/kokistudios/trekicon/internal/selection"
)

// Slot names, in stacking order.
const (
	SlotBody        = "body"
	SlotBodyOverlay = "body-overlay"
	SlotUniform     = "uniform"
	SlotEars        = "ears"
	SlotNose        = "nose"
	SlotHair        = "hair"
	SlotRearHair    = "rear-hair"
	SlotFacialHair  = "facial-hair"
	SlotHeadFeature = "head-feature"
	SlotJewelry     = "jewelry"
	SlotEyewear     = "eyewear"
	SlotHat         = "hat"
	SlotUnderlay    = "extra-underlay"
	SlotOverlay     = "extra-overlay"
	SlotBox         = "box"
)

// Color variable names.
const (
	VarBody       = "--body-color"
	VarHair       = "--hair-color"
	VarUniform    = "--uniform-color"
	VarUndershirt = "--uniform-undershirt-color"
	VarAntennae   = "--antennae-color"
	VarTuft       = "--tuft-color"
	VarWhiskers   = "--whiskers-color"
)

// undershirtShade is how much darker a derived undershirt is.
const undershirtShade = 0.18

// Config is the canvas the layers are placed on.
type Config struct {
	Width  int
	Height int
}

// DefaultConfig returns a 512x512 canvas.
func DefaultConfig() Config {
	return Config{Width: 512, Height: 512}
}

// Layer is one asset reference at a fixed stacking position. An empty
// AssetPath renders nothing but keeps its slot.
type Layer struct {
	Slot      string `json:"slot"`
	Value     string `json:"value,omitempty"`
	AssetPath string `json:"assetPath"`
	CSSClass  string `json:"cssClass"`
	ZOrder    int    `json:"z"`
	Mirrored  bool   `json:"mirrored,omitempty"`
	Transform string `json:"transform,omitempty"`
}

// Empty reports whether the layer renders nothing.
func (l Layer) Empty() bool {
	return l.AssetPath == ""
}

// Output is everything handed to the renderer and stylesheet injector.
type Output struct {
	Width  int               `json:"width"`
	Height int               `json:"height"`
	Layers []Layer           `json:"layers"`
	Colors map[string]string `json:"colors"`
	Hooks  []string          `json:"hooks,omitempty"`
}

// ColorNames returns the color variable names in sorted order.
func (o Output) ColorNames() []string {
	names := make([]string, 0, len(o.Colors))
	for k := range o.Colors {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Layer returns the first layer in slot.
func (o Output) Layer(slot string) (Layer, bool) {
	for _, l := range o.Layers {
		if l.Slot == slot {
			return l, true
		}
	}
	return Layer{}, false
}

// MirrorTransform flips horizontally about the canvas midpoint.
func MirrorTransform(width int) string {
	half := float64(width) / 2
	return fmt.Sprintf("translate(%g 0) scale(-1 1) translate(%g 0)", half, -half)
}

type composer struct {
	cat    *catalog.Catalog
	cfg    Config
	layers []Layer
}

func (c *composer) add(slot, value, asset string) int {
	if c.cat.IsEmptyAsset(asset) {
		asset = ""
	}
	class := "slot " + slot
	if value != "" {
		class += " " + slot + "-" + value
	}
	c.layers = append(c.layers, Layer{
		Slot:      slot,
		Value:     value,
		AssetPath: asset,
		CSSClass:  class,
		ZOrder:    len(c.layers),
	})
	return len(c.layers) - 1
}

func (c *composer) control(slot string, id catalog.ControlID, value string) int {
	return c.add(slot, value, c.cat.AssetFor(id, value))
}

func (c *composer) mirror(i int) {
	c.layers[i].Mirrored = true
	c.layers[i].Transform = MirrorTransform(c.cfg.Width)
}

func (c *composer) clear(slots ...string) {
	for i := range c.layers {
		for _, s := range slots {
			if c.layers[i].Slot == s {
				c.layers[i].AssetPath = ""
			}
		}
	}
}

// Compose builds the layer stack for a reconciled state. forcedFeatures is
// the derived forced set; overrides are the archetype-scoped style values
// produced by the reconciler.
func Compose(cat *catalog.Catalog, st selection.State, forcedFeatures []string, overrides map[string]string, cfg Config) Output {
	c := &composer{cat: cat, cfg: cfg}
	info, _ := cat.Archetype(st.Archetype())
	humanoid := st.Archetype() == catalog.Humanoid

	c.add(SlotBody, string(info.Value), info.Body)
	c.add(SlotBodyOverlay, "", info.BodyOverlay)
	c.control(SlotUniform, catalog.Uniform, st.Uniform)
	c.control(SlotEars, catalog.Ears, st.Ears)
	c.control(SlotNose, catalog.Nose, st.Nose)

	if humanoid {
		if i := c.control(SlotHair, catalog.Hair, st.Hair); st.HairMirror {
			c.mirror(i)
		}
		if i := c.control(SlotRearHair, catalog.RearHair, st.RearHair); st.RearHairMirror {
			c.mirror(i)
		}
		c.control(SlotFacialHair, catalog.FacialHair, st.FacialHair)
	} else {
		c.add(SlotHair, "", "")
		c.add(SlotRearHair, "", "")
		c.add(SlotFacialHair, "", "")
	}

	features := orderedFeatures(cat, forced.Union(st.HeadFeatures, forcedFeatures))
	var hooks []string
	var underlays []string
	for _, f := range features {
		c.control(SlotHeadFeature, catalog.HeadFeatures, f)
		o, _ := cat.Option(catalog.HeadFeatures, f)
		if o.Hook != "" {
			hooks = append(hooks, o.Hook)
		}
		if o.HasTag(catalog.TagUnderUniform) && o.Underlay != "" {
			underlays = append(underlays, o.Underlay)
		}
	}
	for _, j := range st.Jewelry {
		c.control(SlotJewelry, catalog.Jewelry, j)
	}
	if st.Eyewear != "" {
		c.control(SlotEyewear, catalog.Eyewear, st.Eyewear)
	}
	if st.Hat != "" {
		c.control(SlotHat, catalog.Hat, st.Hat)
	}
	for _, u := range underlays {
		c.add(SlotUnderlay, "", u)
	}
	c.add(SlotOverlay, st.Uniform, cat.ExtraAssetsFor(catalog.Uniform, st.Uniform).Overlay)

	if st.MedusanBox && info.Box != "" {
		c.clear(SlotBody, SlotBodyOverlay, SlotUniform, SlotOverlay, SlotEars, SlotHair, SlotRearHair, SlotFacialHair)
		c.add(SlotBox, string(info.Value), info.Box)
	}

	return Output{
		Width:  cfg.Width,
		Height: cfg.Height,
		Layers: c.layers,
		Colors: colors(cat, st, overrides),
		Hooks:  hooks,
	}
}

// orderedFeatures sorts features into catalog-declared order. Values the
// catalog does not know keep their relative order at the end.
func orderedFeatures(cat *catalog.Catalog, features []string) []string {
	ctl, err := cat.Control(catalog.HeadFeatures)
	if err != nil {
		return features
	}
	rank := make(map[string]int, len(ctl.Options))
	for i, o := range ctl.Options {
		rank[o.Value] = i
	}
	out := append([]string(nil), features...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, oki := rank[out[i]]
		rj, okj := rank[out[j]]
		switch {
		case oki && okj:
			return ri < rj
		case oki:
			return true
		default:
			return false
		}
	})
	return out
}

func colors(cat *catalog.Catalog, st selection.State, overrides map[string]string) map[string]string {
	body := palette.BodyHex(cat, st)
	out := map[string]string{VarBody: body}

	switch {
	case st.HairSync:
		out[VarHair] = body
	default:
		hex, ok := palette.ColorHex(cat, catalog.HairColor, st.HairColor, st.HairColorHex)
		if !ok {
			hex = defaultHex(cat, catalog.HairColor)
		}
		out[VarHair] = hex
	}

	uniform, undershirt := uniformColors(cat, st)
	out[VarUniform] = uniform
	out[VarUndershirt] = undershirt

	out[VarAntennae] = accent(body, st.AntennaeColor, st.AntennaeSync)
	out[VarTuft] = accent(body, st.TuftColor, st.TuftSync)
	out[VarWhiskers] = accent(body, st.WhiskersColor, st.WhiskersSync)

	for k, v := range overrides {
		out[k] = v
	}
	return out
}

func uniformColors(cat *catalog.Catalog, st selection.State) (string, string) {
	uo, _ := cat.Option(catalog.Uniform, st.Uniform)
	co, hasColor := cat.Option(catalog.UniformColor, st.UniformColor)

	uniform := palette.Fallback
	switch {
	case uo.Hex != "":
		uniform = uo.Hex
	case hasColor && co.Hex != "":
		uniform = co.Hex
	}

	var undershirt string
	switch {
	case uo.Undershirt != "":
		undershirt = uo.Undershirt
	case hasColor && co.Undershirt != "":
		undershirt = co.Undershirt
	default:
		undershirt = palette.Darken(uniform, undershirtShade)
	}
	return normalizeOr(uniform), normalizeOr(undershirt)
}

// accent mirrors the body color when synced or when no valid color is set.
func accent(body, hex string, synced bool) string {
	if synced || !palette.ValidHex(hex) {
		return body
	}
	return normalizeOr(hex)
}

func normalizeOr(hex string) string {
	if n, err := palette.Normalize(hex); err == nil {
		return n
	}
	return palette.Fallback
}

func defaultHex(cat *catalog.Catalog, id catalog.ControlID) string {
	ctl, err := cat.Control(id)
	if err != nil {
		return palette.Fallback
	}
	if hex, ok := palette.ColorHex(cat, id, ctl.Default, ""); ok {
		return hex
	}
	return palette.Fallback
}
