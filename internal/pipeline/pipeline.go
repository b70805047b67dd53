// Package pipeline runs one synchronous recomputation pass: visibility,
// forced features, reconciliation and layer composition. Every user edit goes
// through exactly one pass; nothing is shared between passes except the state
// and memory values handed back to the caller.
package pipeline

import (
	"math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/kokistudios/trekicon/internal/catalog"
	"github.com/kokistudios/trekicon/internal/compose"
	"github.com/kokistudios/trekicon/internal/forced"
	"github.com/kokistudios/trekicon/internal/reconcile"
	"github.com/kokistudios/trekicon/internal/selection"
	"github.com/kokistudios/trekicon/internal/visibility"
)

// Config wires an Engine. Zero values get sensible defaults.
type Config struct {
	Canvas compose.Config
	Rand   *rand.Rand
	Logger *log.Logger
}

// Engine is the resolution pipeline over one catalog.
type Engine struct {
	cat    *catalog.Catalog
	rec    *reconcile.Reconciler
	canvas compose.Config
	logger *log.Logger
}

// Result is the outcome of one pass.
type Result struct {
	State         selection.State                `json:"state"`
	Memory        selection.Memory               `json:"memory"`
	Visibility    visibility.Report              `json:"visibility"`
	Forced        []string                       `json:"forced,omitempty"`
	Chips         map[catalog.ControlID][]string `json:"chips,omitempty"`
	Output        compose.Output                 `json:"output"`
	NoColorChoice bool                           `json:"noColorChoice,omitempty"`
	Corrections   []reconcile.Correction         `json:"corrections,omitempty"`
}

// New creates an Engine.
func New(cat *catalog.Catalog, cfg Config) *Engine {
	if cfg.Canvas.Width <= 0 || cfg.Canvas.Height <= 0 {
		cfg.Canvas = compose.DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Engine{
		cat:    cat,
		rec:    reconcile.New(cat, cfg.Rand),
		canvas: cfg.Canvas,
		logger: cfg.Logger,
	}
}

// Catalog returns the engine's catalog.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.cat
}

// Canvas returns the canvas layers are composed on.
func (e *Engine) Canvas() compose.Config {
	return e.canvas
}

// Default returns the reconciled startup state.
func (e *Engine) Default() Result {
	return e.Apply(selection.Default(e.cat), selection.Memory{}, "")
}

// Apply runs one pass. change names the edited field, or is empty for a plain
// recomputation. Inputs are not modified.
func (e *Engine) Apply(st selection.State, mem selection.Memory, change string) Result {
	rec := e.rec.Reconcile(st, mem, change)
	for _, c := range rec.Corrections {
		e.logger.Debug("reconciled", "control", c.Control, "from", c.From, "to", c.To, "reason", c.Reason)
	}

	report := visibility.Resolve(e.cat, rec.State)
	forcedSet := forced.Features(e.cat, rec.State)
	chips := make(map[catalog.ControlID][]string)
	for _, ctl := range e.cat.Controls() {
		if ctl.Kind == catalog.KindMulti {
			chips[ctl.ID] = forced.Chips(e.cat, rec.State, ctl.ID)
		}
	}

	return Result{
		State:         rec.State,
		Memory:        rec.Memory,
		Visibility:    report,
		Forced:        forcedSet,
		Chips:         chips,
		Output:        compose.Compose(e.cat, rec.State, forcedSet, rec.Overrides, e.canvas),
		NoColorChoice: rec.NoColorChoice,
		Corrections:   rec.Corrections,
	}
}

// Set applies one user edit by field name, then runs a pass. Unknown fields
// are errors; unknown values are accepted and corrected by the pass.
func (e *Engine) Set(st selection.State, mem selection.Memory, field, value string) (Result, error) {
	next := st.Clone()
	if err := next.Set(field, value); err != nil {
		return Result{}, err
	}
	return e.Apply(next, mem, field), nil
}

// Toggle flips one value of a multi control, then runs a pass.
func (e *Engine) Toggle(st selection.State, mem selection.Memory, id catalog.ControlID, value string) Result {
	next := st.Clone()
	next.Toggle(id, value)
	return e.Apply(next, mem, string(id))
}
