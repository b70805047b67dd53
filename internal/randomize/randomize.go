// Package randomize generates random but always valid characters. Archetype
// and species are drawn from the catalog weight tables; everything else is
// drawn from the currently visible options, and the result is run through the
// pipeline before it is returned.
package randomize

import (
	"math/rand/v2"

	"github.com/kokistudios/trekicon/internal/catalog"
	"github.com/kokistudios/trekicon/internal/pipeline"
	"github.com/kokistudios/trekicon/internal/selection"
	"github.com/kokistudios/trekicon/internal/visibility"
)

// Probabilities for optional picks.
const (
	optionalChance = 0.5
	multiChance    = 0.2
	toggleChance   = 0.3
)

// Randomizer draws characters from one engine's catalog.
type Randomizer struct {
	engine *pipeline.Engine
	rng    *rand.Rand
}

// New creates a Randomizer. A seed of 0 picks a random seed.
func New(engine *pipeline.Engine, seed uint64) *Randomizer {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Randomizer{engine: engine, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Archetype draws a weighted archetype.
func (r *Randomizer) Archetype() catalog.Archetype {
	list := r.engine.Catalog().Archetypes()
	weights := make([]int, len(list))
	for i, a := range list {
		weights[i] = a.Weight
	}
	if i := r.pick(weights); i >= 0 {
		return list[i].Value
	}
	return r.engine.Catalog().DefaultArchetype
}

// Species draws a weighted species. Species with no weight, including the
// unspecified variant, are never drawn.
func (r *Randomizer) Species() string {
	list := r.engine.Catalog().SpeciesList()
	weights := make([]int, len(list))
	for i, s := range list {
		weights[i] = s.Weight
	}
	if i := r.pick(weights); i >= 0 {
		return list[i].Value
	}
	return ""
}

// pick returns a weighted index, or -1 when all weights are zero.
func (r *Randomizer) pick(weights []int) int {
	total := 0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return -1
	}
	n := r.rng.IntN(total)
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		if n < w {
			return i
		}
		n -= w
	}
	return -1
}

// Generate returns a fully reconciled random character. mem carries color
// memory across draws.
func (r *Randomizer) Generate(mem selection.Memory) pipeline.Result {
	cat := r.engine.Catalog()
	st := selection.Default(cat)
	st.BodyShape = string(r.Archetype())
	if st.Archetype() == catalog.Humanoid {
		st.Species = r.Species()
	}
	st.Uniform = ""
	st.BodyColor = ""

	for _, ctl := range cat.Controls() {
		if ctl.ID == catalog.BodyShape || ctl.ID == catalog.Species {
			continue
		}
		report := visibility.Resolve(cat, st)
		if !report.ControlVisible(ctl.ID) {
			continue
		}
		visible := drawable(report.VisibleValues(ctl.ID))
		switch ctl.Kind {
		case catalog.KindSingle:
			if len(visible) > 0 {
				st.SetValue(ctl.ID, visible[r.rng.IntN(len(visible))])
			}
		case catalog.KindOptional:
			v := ""
			if len(visible) > 0 && r.rng.Float64() < optionalChance {
				v = visible[r.rng.IntN(len(visible))]
			}
			st.SetValue(ctl.ID, v)
		case catalog.KindMulti:
			picked := []string{}
			for _, v := range visible {
				if r.rng.Float64() < multiChance {
					picked = append(picked, v)
				}
			}
			st.SetValues(ctl.ID, picked)
		case catalog.KindToggle:
			st.SetFlag(ctl.ID, r.rng.Float64() < toggleChance)
		}
	}
	return r.engine.Apply(st, mem, "")
}

// drawable drops the free-hex custom color from random draws.
func drawable(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == catalog.CustomColor {
			continue
		}
		out = append(out, v)
	}
	return out
}
