// Package palette resolves color controls to hex values and does the little
// color math the engine needs.
package palette

import (
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/kokistudios/trekicon/internal/catalog"
	"github.com/kokistudios/trekicon/internal/selection"
)

// Fallback is used when nothing else yields a color.
const Fallback = "#808080"

// ValidHex reports whether s is a #rgb or #rrggbb color.
func ValidHex(s string) bool {
	if !strings.HasPrefix(s, "#") || (len(s) != 4 && len(s) != 7) {
		return false
	}
	_, err := colorful.Hex(s)
	return err == nil
}

// Normalize returns the lowercase #rrggbb form of a valid hex color.
func Normalize(s string) (string, error) {
	if !ValidHex(s) {
		return "", fmt.Errorf("invalid hex color %q", s)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return "", fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return c.Clamped().Hex(), nil
}

// ColorHex resolves a color control value: the option's hex, or the free hex
// when the value is the custom option.
func ColorHex(cat *catalog.Catalog, id catalog.ControlID, value, customHex string) (string, bool) {
	if value == catalog.CustomColor {
		if n, err := Normalize(customHex); err == nil {
			return n, true
		}
		return "", false
	}
	o, ok := cat.Option(id, value)
	if !ok || o.Hex == "" {
		return "", false
	}
	return strings.ToLower(o.Hex), true
}

// BodyHex is the rendered body color of a state.
func BodyHex(cat *catalog.Catalog, st selection.State) string {
	if hex, ok := ColorHex(cat, catalog.BodyColor, st.BodyColor, st.BodyColorHex); ok {
		return hex
	}
	if info, ok := cat.Archetype(st.Archetype()); ok {
		if hex, ok := ColorHex(cat, catalog.BodyColor, info.DefaultBodyColor, ""); ok {
			return hex
		}
	}
	return Fallback
}

// Darken lowers the lightness of a hex color by amount (0..1).
func Darken(hex string, amount float64) string {
	c, err := colorful.Hex(hex)
	if err != nil {
		return hex
	}
	h, s, l := c.Hsl()
	l = math.Max(0, l-amount)
	return colorful.Hsl(h, s, l).Clamped().Hex()
}

// HueRotation returns the degrees that rotate the hue of base onto target,
// in [0, 360). Achromatic or invalid inputs yield 0.
func HueRotation(base, target string) int {
	b, err := colorful.Hex(base)
	if err != nil {
		return 0
	}
	t, err := colorful.Hex(target)
	if err != nil {
		return 0
	}
	bh, bs, _ := b.Hsl()
	th, ts, _ := t.Hsl()
	if bs == 0 || ts == 0 {
		return 0
	}
	d := math.Mod(th-bh, 360)
	if d < 0 {
		d += 360
	}
	return int(math.Round(d)) % 360
}
