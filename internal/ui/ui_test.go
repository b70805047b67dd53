package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

func TestBold_ContainsText(t *testing.T) {
	Init(false)
	result := Bold("hello")
	if !strings.Contains(result, "hello") {
		t.Errorf("Bold output should contain 'hello', got %q", result)
	}
}

func TestColorDisabled_PlainText(t *testing.T) {
	Init(true) // no color
	defer Init(false)

	if Bold("hello") != "hello" {
		t.Errorf("expected plain text when color disabled, got %q", Bold("hello"))
	}
	if Red("error") != "error" {
		t.Errorf("expected plain text, got %q", Red("error"))
	}
	if Green("ok") != "ok" {
		t.Errorf("expected plain text, got %q", Green("ok"))
	}
	if Yellow("warn") != "warn" {
		t.Errorf("expected plain text, got %q", Yellow("warn"))
	}
	if Dim("dim") != "dim" {
		t.Errorf("expected plain text, got %q", Dim("dim"))
	}
	if Swatch("#aa8866") != "#aa8866" {
		t.Errorf("expected bare hex, got %q", Swatch("#aa8866"))
	}
}

func TestSwatch_ContainsHex(t *testing.T) {
	Init(false)
	if s := Swatch("#336699"); !strings.Contains(s, "#336699") {
		t.Errorf("Swatch = %q", s)
	}
	if Swatch("") != "" {
		t.Error("empty hex should render nothing")
	}
}

func TestLoggerInitialized(t *testing.T) {
	Init(false)
	if Logger == nil {
		t.Fatal("Logger should be initialized after Init()")
	}
	SetVerbose(true)
	if Logger.GetLevel() != log.DebugLevel {
		t.Errorf("level = %v", Logger.GetLevel())
	}
	SetVerbose(false)
	if Logger.GetLevel() != log.InfoLevel {
		t.Errorf("level = %v", Logger.GetLevel())
	}
}

func TestLogo_NoErrors(t *testing.T) {
	Init(false)
	// Logo writes to stderr; just verify no panic
	Logo()
	LogoWithTagline("test tagline")
}

func TestConfirmModel(t *testing.T) {
	Init(false)
	var m tea.Model = confirmModel{prompt: "Delete?"}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	got := m.(confirmModel)
	if !got.decided || got.accepted {
		t.Errorf("expected decided no, got %+v", got)
	}
	if cmd == nil {
		t.Error("expected quit command")
	}

	m, _ = confirmModel{}.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	if !m.(confirmModel).accepted {
		t.Error("y should accept")
	}
}

func TestRenderMarkdown(t *testing.T) {
	Init(true)
	defer Init(false)

	var b strings.Builder
	RenderMarkdown(&b, "# Ears\n\n- round\n")
	if b.String() != "# Ears\n\n- round\n" {
		t.Errorf("plain render = %q", b.String())
	}

	Init(false)
	b.Reset()
	RenderMarkdown(&b, "# Ears\n\n- round\n")
	if !strings.Contains(b.String(), "round") {
		t.Errorf("styled render = %q", b.String())
	}
}
