// Package forced derives the species-mandated feature set. Forced features are
// never stored in the Selection State; they are unioned with the explicit
// selection only when layers are composed.
package forced

import (
	"strconv"

	"github.com/kokistudios/trekicon/internal/catalog"
	"github.com/kokistudios/trekicon/internal/selection"
	"github.com/kokistudios/trekicon/internal/visibility"
)

// Features returns the ordered, de-duplicated forced feature set for a state.
func Features(cat *catalog.Catalog, st selection.State) []string {
	info, ok := cat.SpeciesInfo(st.Species)
	if !ok || st.Archetype() != catalog.Humanoid {
		return nil
	}
	sub := make(map[catalog.ControlID]string)
	for _, id := range info.SubSelectors {
		sub[id] = st.Value(id)
	}
	for id := range info.Toggles {
		sub[id] = strconv.FormatBool(st.Flag(id))
	}
	seen := make(map[string]bool)
	var out []string
	for _, f := range cat.ForcedFeaturesFor(st.Archetype(), st.Species, sub) {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// Chips returns the multi-select values shown to the user as removable chips:
// stored values that are visible and not forced.
func Chips(cat *catalog.Catalog, st selection.State, id catalog.ControlID) []string {
	report := visibility.Resolve(cat, st)
	forcedSet := make(map[string]bool)
	for _, f := range Features(cat, st) {
		forcedSet[f] = true
	}
	var out []string
	for _, v := range st.Values(id) {
		if forcedSet[v] || !report.IsVisible(id, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Union combines explicit selections with forced features, explicit first,
// without duplicates.
func Union(explicit, forcedFeatures []string) []string {
	seen := make(map[string]bool, len(explicit)+len(forcedFeatures))
	var out []string
	for _, list := range [][]string{explicit, forcedFeatures} {
		for _, v := range list {
			if seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
