// Package editor is the interactive terminal editor. Every key press that
// edits the character runs exactly one pipeline pass and reports the new
// state through OnChange, which the caller wires to the autosave debouncer.
package editor

import (
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kokistudios/trekicon/internal/catalog"
	"github.com/kokistudios/trekicon/internal/pipeline"
	"github.com/kokistudios/trekicon/internal/randomize"
	"github.com/kokistudios/trekicon/internal/selection"
	"github.com/kokistudios/trekicon/internal/ui"
	"github.com/kokistudios/trekicon/internal/visibility"
)

// Snapshot is what gets persisted after an edit.
type Snapshot struct {
	State  selection.State
	Memory selection.Memory
}

// Latest holds the most recent snapshot for readers on other goroutines.
type Latest struct {
	mu   sync.Mutex
	snap Snapshot
}

// Set replaces the held snapshot.
func (l *Latest) Set(s Snapshot) {
	l.mu.Lock()
	l.snap = Snapshot{State: s.State.Clone(), Memory: s.Memory.Clone()}
	l.mu.Unlock()
}

// Get returns a copy of the held snapshot.
func (l *Latest) Get() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{State: l.snap.State.Clone(), Memory: l.snap.Memory.Clone()}
}

// Options configures a Model.
type Options struct {
	Engine     *pipeline.Engine
	Randomizer *randomize.Randomizer
	Initial    pipeline.Result
	OnChange   func(Snapshot)
}

// Model is the bubbletea model for the editor.
type Model struct {
	engine   *pipeline.Engine
	rnd      *randomize.Randomizer
	onChange func(Snapshot)

	res      pipeline.Result
	cursor   int
	optIndex map[catalog.ControlID]int
	status   string
	quitting bool
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	labelStyle    = lipgloss.NewStyle().Width(18)
	chipStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	forcedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	highlightChip = lipgloss.NewStyle().Underline(true)
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

// New creates a Model.
func New(opts Options) Model {
	return Model{
		engine:   opts.Engine,
		rnd:      opts.Randomizer,
		onChange: opts.OnChange,
		res:      opts.Initial,
		optIndex: make(map[catalog.ControlID]int),
	}
}

// Result returns the latest pipeline result.
func (m Model) Result() pipeline.Result { return m.res }

// Quitting reports whether the user asked to leave.
func (m Model) Quitting() bool { return m.quitting }

func (m Model) Init() tea.Cmd { return nil }

// controls returns the currently visible controls in catalog order.
func (m Model) controls() []visibility.ControlState {
	var out []visibility.ControlState
	for _, cs := range m.res.Visibility.Controls {
		if cs.Visible {
			out = append(out, cs)
		}
	}
	return out
}

func (m Model) current() (visibility.ControlState, bool) {
	ctls := m.controls()
	if len(ctls) == 0 {
		return visibility.ControlState{}, false
	}
	return ctls[clamp(m.cursor, len(ctls))], true
}

// Focus moves the cursor to a control if it is visible.
func (m *Model) Focus(id catalog.ControlID) bool {
	for i, cs := range m.controls() {
		if cs.ID == id {
			m.cursor = i
			return true
		}
	}
	return false
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "left", "h":
		m.cycle(-1)
	case "right", "l":
		m.cycle(1)
	case " ", "enter":
		m.activate()
	case "m":
		m.mirror()
	case "r":
		m.randomize()
	}
	return m, nil
}

func (m *Model) move(dir int) {
	n := len(m.controls())
	if n == 0 {
		return
	}
	m.cursor = (clamp(m.cursor, n) + dir + n) % n
	m.status = ""
}

func (m *Model) cycle(dir int) {
	cs, ok := m.current()
	if !ok {
		return
	}
	switch cs.Kind {
	case catalog.KindToggle:
		m.apply(string(cs.ID), fmt.Sprint(!m.res.State.Flag(cs.ID)))
	case catalog.KindMulti:
		values := m.res.Visibility.VisibleValues(cs.ID)
		if len(values) > 0 {
			m.optIndex[cs.ID] = (clamp(m.optIndex[cs.ID], len(values)) + dir + len(values)) % len(values)
		}
	default:
		values := m.res.Visibility.VisibleValues(cs.ID)
		if cs.Kind == catalog.KindOptional {
			values = append([]string{""}, values...)
		}
		if len(values) == 0 {
			return
		}
		i := indexOf(values, m.res.State.Value(cs.ID))
		if i < 0 && dir < 0 {
			i = 0
		}
		m.apply(string(cs.ID), values[(i+dir+len(values))%len(values)])
	}
}

func (m *Model) activate() {
	cs, ok := m.current()
	if !ok {
		return
	}
	switch cs.Kind {
	case catalog.KindToggle:
		m.apply(string(cs.ID), fmt.Sprint(!m.res.State.Flag(cs.ID)))
	case catalog.KindMulti:
		values := m.res.Visibility.VisibleValues(cs.ID)
		if len(values) == 0 {
			return
		}
		v := values[clamp(m.optIndex[cs.ID], len(values))]
		if indexOf(m.res.Forced, v) >= 0 && !m.res.State.Has(cs.ID, v) {
			m.status = fmt.Sprintf("%s is fixed by the current species", v)
			return
		}
		m.change(m.engine.Toggle(m.res.State, m.res.Memory, cs.ID, v))
	}
}

func (m *Model) mirror() {
	field := catalog.HairMirror
	if cs, ok := m.current(); ok && cs.ID == catalog.RearHair {
		field = catalog.RearHairMirror
	}
	if !m.res.Visibility.ControlVisible(field) {
		m.status = "nothing to mirror"
		return
	}
	m.apply(string(field), fmt.Sprint(!m.res.State.Flag(field)))
}

func (m *Model) randomize() {
	if m.rnd == nil {
		return
	}
	m.change(m.rnd.Generate(m.res.Memory))
	m.cursor = 0
	m.status = "randomized"
}

func (m *Model) apply(field, value string) {
	res, err := m.engine.Set(m.res.State, m.res.Memory, field, value)
	if err != nil {
		m.status = err.Error()
		return
	}
	m.change(res)
}

func (m *Model) change(res pipeline.Result) {
	m.res = res
	m.status = ""
	if n := len(res.Corrections); n > 0 {
		parts := make([]string, 0, n)
		for _, c := range res.Corrections {
			parts = append(parts, c.String())
		}
		m.status = strings.Join(parts, "; ")
	}
	if n := len(m.controls()); n > 0 {
		m.cursor = clamp(m.cursor, n)
	}
	if m.onChange != nil {
		m.onChange(Snapshot{State: res.State, Memory: res.Memory})
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	st := m.res.State
	title := st.BodyShape
	if st.Species != "" {
		title += " · " + st.Species
	}
	b.WriteString(titleStyle.Render("trekicon  "+title) + "\n\n")

	cur, _ := m.current()
	for _, cs := range m.controls() {
		prefix := "  "
		label := labelStyle.Render(cs.Label)
		if cs.ID == cur.ID {
			prefix = cursorStyle.Render("▸ ")
			label = cursorStyle.Inherit(labelStyle).Render(cs.Label)
		}
		b.WriteString(prefix + label + " " + m.valueView(cs, cs.ID == cur.ID) + "\n")
	}

	b.WriteString("\n")
	for _, name := range m.res.Output.ColorNames() {
		b.WriteString(fmt.Sprintf("  %-12s %s\n", name, ui.Swatch(m.res.Output.Colors[name])))
	}
	if m.res.NoColorChoice {
		b.WriteString(helpStyle.Render("  uniform color is fixed for this uniform") + "\n")
	}
	if m.status != "" {
		b.WriteString("\n" + helpStyle.Render("  "+m.status) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("  ↑/↓ control • ←/→ value • space toggle • m mirror • r random • q quit") + "\n")
	return b.String()
}

func (m Model) valueView(cs visibility.ControlState, focused bool) string {
	st := m.res.State
	switch cs.Kind {
	case catalog.KindToggle:
		if st.Flag(cs.ID) {
			return "[x]"
		}
		return "[ ]"
	case catalog.KindMulti:
		var parts []string
		for _, f := range m.res.Forced {
			if _, ok := m.engine.Catalog().Option(cs.ID, f); ok {
				parts = append(parts, forcedStyle.Render(f+"*"))
			}
		}
		for _, v := range m.res.Chips[cs.ID] {
			parts = append(parts, chipStyle.Render(v))
		}
		if focused {
			values := m.res.Visibility.VisibleValues(cs.ID)
			if len(values) > 0 {
				parts = append(parts, highlightChip.Render("+"+values[clamp(m.optIndex[cs.ID], len(values))]))
			}
		}
		if len(parts) == 0 {
			return helpStyle.Render("none")
		}
		return strings.Join(parts, " ")
	}
	v := st.Value(cs.ID)
	if v == "" {
		return helpStyle.Render("none")
	}
	for _, o := range cs.Options {
		if o.Value == v {
			return o.Label
		}
	}
	return v
}

// Run starts the full-screen program and returns the final result.
func Run(opts Options) (pipeline.Result, error) {
	p := tea.NewProgram(New(opts), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return opts.Initial, err
	}
	return final.(Model).Result(), nil
}

func indexOf(list []string, v string) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
