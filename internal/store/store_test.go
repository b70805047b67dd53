package store

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kokistudios/trekicon/internal/selection"
)

func initHome(t *testing.T) string {
	t.Helper()
	home := filepath.Join(t.TempDir(), ".trekicon")
	if err := Init(home, false); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return home
}

func TestInit(t *testing.T) {
	home := initHome(t)

	info, err := os.Stat(filepath.Join(home, "exports"))
	if err != nil {
		t.Error("expected exports directory to exist")
	} else if !info.IsDir() {
		t.Error("expected exports to be a directory")
	}

	if _, err := os.Stat(filepath.Join(home, "config.yaml")); err != nil {
		t.Error("expected config.yaml to exist")
	}

	// Second init should fail without force
	if err := Init(home, false); err == nil {
		t.Error("expected error on duplicate init")
	}

	if err := Init(home, true); err != nil {
		t.Errorf("expected force init to succeed: %v", err)
	}
}

func TestLoad(t *testing.T) {
	home := initHome(t)

	s, err := Load(home)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Home != home {
		t.Errorf("expected Home=%s, got %s", home, s.Home)
	}
	if !reflect.DeepEqual(s.Config, DefaultConfig()) {
		t.Errorf("config = %+v, want defaults", s.Config)
	}
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	home := initHome(t)
	os.WriteFile(filepath.Join(home, "config.yaml"), []byte("canvas:\n  width: 256\n"), 0644)

	s, err := Load(home)
	if err != nil {
		t.Fatal(err)
	}
	if s.Config.Canvas.Width != 256 {
		t.Errorf("width = %d", s.Config.Canvas.Width)
	}
	if s.Config.Canvas.Height != 512 || s.Config.Editor.AutosaveDelay != 500*time.Millisecond {
		t.Errorf("defaults lost: %+v", s.Config)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	home := initHome(t)
	t.Setenv("TREKICON_ASSET_BASE", "https://cdn.example.org/icons")
	t.Setenv("TREKICON_AUTOSAVE_DELAY", "2s")

	s, err := Load(home)
	if err != nil {
		t.Fatal(err)
	}
	if s.Config.Assets.Base != "https://cdn.example.org/icons" {
		t.Errorf("asset base = %s", s.Config.Assets.Base)
	}
	if s.Config.Editor.AutosaveDelay != 2*time.Second {
		t.Errorf("autosave delay = %s", s.Config.Editor.AutosaveDelay)
	}
}

func TestLoad_BadEnv(t *testing.T) {
	home := initHome(t)
	t.Setenv("TREKICON_AUTOSAVE_DELAY", "soon")
	if _, err := Load(home); err == nil {
		t.Error("expected error for unparseable duration")
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing home")
	}
}

func TestLoadOrDefault(t *testing.T) {
	s, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatal(err)
	}
	if s.Config.Canvas.Width != 512 {
		t.Errorf("config = %+v", s.Config)
	}
}

func TestHome(t *testing.T) {
	t.Setenv("TREKICON_HOME", "/tmp/somewhere")
	if got := Home(); got != "/tmp/somewhere" {
		t.Errorf("Home() = %s", got)
	}
	t.Setenv("TREKICON_HOME", "")
	if got := Home(); !strings.HasSuffix(got, ".trekicon") {
		t.Errorf("Home() = %s", got)
	}
}

func TestPath(t *testing.T) {
	s := &Store{Home: "/tmp/.trekicon"}
	got := s.Path("exports", "kira.svg")
	want := filepath.Join("/tmp/.trekicon", "exports", "kira.svg")
	if got != want {
		t.Errorf("Path() = %s, want %s", got, want)
	}
	if s.ExportsPath("kira.svg") != want {
		t.Errorf("ExportsPath() = %s", s.ExportsPath("kira.svg"))
	}
}

func TestSetConfigValue(t *testing.T) {
	home := initHome(t)
	s, _ := Load(home)

	if err := s.SetConfigValue("canvas.width", "1024"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetConfigValue("editor.autosave_delay", "750ms"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetConfigValue("editor.default_archetype", "exocomp"); err != nil {
		t.Fatal(err)
	}

	reloaded, err := Load(home)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Config.Canvas.Width != 1024 {
		t.Errorf("width = %d", reloaded.Config.Canvas.Width)
	}
	if reloaded.Config.Editor.AutosaveDelay != 750*time.Millisecond {
		t.Errorf("delay = %s", reloaded.Config.Editor.AutosaveDelay)
	}
	if v, _ := reloaded.ConfigValue("editor.default_archetype"); v != "exocomp" {
		t.Errorf("archetype = %s", v)
	}
}

func TestSetConfigValue_Invalid(t *testing.T) {
	home := initHome(t)
	s, _ := Load(home)

	for _, tc := range [][2]string{
		{"canvas.width", "wide"},
		{"canvas.height", "0"},
		{"editor.autosave_delay", "later"},
		{"editor.default_archetype", "tribble"},
		{"editor.random_seed", "-4"},
	} {
		if err := s.SetConfigValue(tc[0], tc[1]); err == nil {
			t.Errorf("SetConfigValue(%s, %s) should fail", tc[0], tc[1])
		}
	}

	err := s.SetConfigValue("canvas.depth", "3")
	if err == nil || !strings.Contains(err.Error(), "Valid keys:") {
		t.Errorf("unknown key err = %v", err)
	}
	if _, err := s.ConfigValue("canvas.depth"); err == nil {
		t.Error("ConfigValue should reject unknown key")
	}
}

func TestCurrentRoundTrip(t *testing.T) {
	home := initHome(t)
	s, _ := Load(home)

	if _, err := s.LoadCurrent(); !errors.Is(err, ErrNoCurrent) {
		t.Fatalf("LoadCurrent before save err = %v", err)
	}

	st := selection.State{
		BodyShape:    "humanoid",
		Species:      "vulcan",
		Ears:         "vulcan",
		HeadFeatures: []string{},
		Jewelry:      []string{},
		Uniform:      "tng",
		UniformColor: "blue",
		BodyColor:    "skin-3",
	}
	if err := s.SaveCurrent(st); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadCurrent()
	if err != nil {
		t.Fatal(err)
	}
	st.Version = selection.SchemaVersion
	if !reflect.DeepEqual(got, st) {
		t.Errorf("got %+v\nwant %+v", got, st)
	}

	// No stray temp files
	entries, _ := os.ReadDir(home)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".current.json") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestLoadCurrent_Migrates(t *testing.T) {
	home := initHome(t)
	s, _ := Load(home)
	os.WriteFile(s.Path("current.json"), []byte(`{"bodyShape":"cetacean"}`), 0644)

	got, err := s.LoadCurrent()
	if err != nil {
		t.Fatal(err)
	}
	if got.BodyShape != "cetaceous" {
		t.Errorf("body shape = %s", got.BodyShape)
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	home := initHome(t)
	s, _ := Load(home)

	empty, err := s.LoadMemory()
	if err != nil {
		t.Fatal(err)
	}
	if len(empty.BodyColor) != 0 {
		t.Errorf("expected empty memory, got %+v", empty)
	}

	var mem selection.Memory
	mem.RememberBodyColor("humanoid", "custom", "#aa8866")
	mem.UniformDepartments = []string{"science"}
	if err := s.SaveMemory(mem); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadMemory()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, mem) {
		t.Errorf("got %+v, want %+v", got, mem)
	}
}

func TestCheckHealth(t *testing.T) {
	home := initHome(t)

	if issues := CheckHealth(home); len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}

	os.RemoveAll(filepath.Join(home, "exports"))
	os.WriteFile(filepath.Join(home, "current.json"), []byte("not json"), 0644)
	issues := CheckHealth(home)
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %v", issues)
	}
	if issues[0].Severity != "error" || issues[1].Severity != "warning" {
		t.Errorf("severities = %v", issues)
	}
}

func TestFixIssues(t *testing.T) {
	home := initHome(t)
	os.RemoveAll(filepath.Join(home, "exports"))
	os.Remove(filepath.Join(home, "config.yaml"))
	os.WriteFile(filepath.Join(home, "current.json"), []byte("[1,2]"), 0644)

	fixed := FixIssues(home)
	if len(fixed) != 3 {
		t.Errorf("expected 3 fixes, got %v", fixed)
	}
	if issues := CheckHealth(home); len(issues) != 0 {
		t.Errorf("expected no issues after fix, got %v", issues)
	}
	if _, err := os.Stat(filepath.Join(home, "current.json.bad")); err != nil {
		t.Error("expected bad record to be kept aside")
	}
}
