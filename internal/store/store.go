package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/kokistudios/trekicon/internal/catalog"
	"github.com/kokistudios/trekicon/internal/migrate"
	"github.com/kokistudios/trekicon/internal/selection"
)

// File names within TREKICON_HOME.
const (
	configFile  = "config.yaml"
	currentFile = "current.json"
	memoryFile  = "memory.yaml"
	galleryFile = "gallery.db"
	exportsDir  = "exports"
)

// ErrNoCurrent is returned when no character has been autosaved yet.
var ErrNoCurrent = errors.New("no saved character")

// CanvasConfig holds the render canvas size.
type CanvasConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// AssetConfig holds where layer assets and share links point.
type AssetConfig struct {
	Base      string `yaml:"base" env:"TREKICON_ASSET_BASE"`
	ShareBase string `yaml:"share_base,omitempty" env:"TREKICON_SHARE_BASE"`
}

// EditorConfig holds interactive editing settings.
type EditorConfig struct {
	AutosaveDelay    time.Duration `yaml:"autosave_delay" env:"TREKICON_AUTOSAVE_DELAY"`
	DefaultArchetype string        `yaml:"default_archetype" env:"TREKICON_DEFAULT_ARCHETYPE"`
	RandomSeed       uint64        `yaml:"random_seed,omitempty" env:"TREKICON_RANDOM_SEED"`
}

// Config holds trekicon configuration.
type Config struct {
	Version string       `yaml:"version"`
	Canvas  CanvasConfig `yaml:"canvas"`
	Assets  AssetConfig  `yaml:"assets"`
	Editor  EditorConfig `yaml:"editor"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Version: "1",
		Canvas: CanvasConfig{
			Width:  512,
			Height: 512,
		},
		Assets: AssetConfig{
			Base: "assets",
		},
		Editor: EditorConfig{
			AutosaveDelay:    500 * time.Millisecond,
			DefaultArchetype: string(catalog.Humanoid),
		},
	}
}

// Store represents a loaded TREKICON_HOME.
type Store struct {
	Home   string
	Config Config
}

// Issue represents a health check finding.
type Issue struct {
	Severity string // "warning" or "error"
	Message  string
}

// Home returns the TREKICON_HOME path, respecting the TREKICON_HOME env var.
func Home() string {
	if h := os.Getenv("TREKICON_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".trekicon")
	}
	return filepath.Join(home, ".trekicon")
}

// Init creates the TREKICON_HOME directory structure.
func Init(home string, force bool) error {
	if _, err := os.Stat(home); err == nil && !force {
		return fmt.Errorf("TREKICON_HOME already exists at %s (use --force to reinitialize)", home)
	}

	for _, d := range []string{home, filepath.Join(home, exportsDir)} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", d, err)
		}
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(home, configFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Load reads an existing TREKICON_HOME. Missing config fields are filled from
// defaults, then environment overrides are applied.
func Load(home string) (*Store, error) {
	cfgPath := filepath.Join(home, configFile)
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read TREKICON_HOME config at %s: %w", cfgPath, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config.yaml: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Store{Home: home, Config: cfg}, nil
}

// LoadOrDefault loads TREKICON_HOME, or returns an unsaved store with default
// config when it has not been initialized.
func LoadOrDefault(home string) (*Store, error) {
	if _, err := os.Stat(filepath.Join(home, configFile)); errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		if err := env.Parse(&cfg); err != nil {
			return nil, fmt.Errorf("parse env: %w", err)
		}
		return &Store{Home: home, Config: cfg}, nil
	}
	return Load(home)
}

func (c Config) validate() error {
	if c.Canvas.Width < 1 || c.Canvas.Height < 1 {
		return fmt.Errorf("canvas size must be positive, got %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Editor.AutosaveDelay < 0 {
		return fmt.Errorf("editor.autosave_delay must not be negative")
	}
	return nil
}

// SaveConfig writes the current config to config.yaml.
func (s *Store) SaveConfig() error {
	data, err := yaml.Marshal(s.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(s.Path(configFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ConfigKeys lists the keys accepted by SetConfigValue.
var ConfigKeys = []string{
	"canvas.width",
	"canvas.height",
	"assets.base",
	"assets.share_base",
	"editor.autosave_delay",
	"editor.default_archetype",
	"editor.random_seed",
}

// ConfigValue returns a config value by dot-path key.
func (s *Store) ConfigValue(key string) (string, error) {
	switch key {
	case "canvas.width":
		return fmt.Sprint(s.Config.Canvas.Width), nil
	case "canvas.height":
		return fmt.Sprint(s.Config.Canvas.Height), nil
	case "assets.base":
		return s.Config.Assets.Base, nil
	case "assets.share_base":
		return s.Config.Assets.ShareBase, nil
	case "editor.autosave_delay":
		return s.Config.Editor.AutosaveDelay.String(), nil
	case "editor.default_archetype":
		return s.Config.Editor.DefaultArchetype, nil
	case "editor.random_seed":
		return fmt.Sprint(s.Config.Editor.RandomSeed), nil
	}
	return "", unknownKey(key)
}

// SetConfigValue sets a config value by dot-path key (e.g. "canvas.width").
func (s *Store) SetConfigValue(key, value string) error {
	switch key {
	case "canvas.width", "canvas.height":
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err != nil || n < 1 {
			return fmt.Errorf("%s must be a positive integer", key)
		}
		if key == "canvas.width" {
			s.Config.Canvas.Width = n
		} else {
			s.Config.Canvas.Height = n
		}
	case "assets.base":
		s.Config.Assets.Base = value
	case "assets.share_base":
		s.Config.Assets.ShareBase = value
	case "editor.autosave_delay":
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return fmt.Errorf("editor.autosave_delay must be a duration such as 500ms")
		}
		s.Config.Editor.AutosaveDelay = d
	case "editor.default_archetype":
		cat, err := catalog.Load()
		if err != nil {
			return err
		}
		if _, ok := cat.Archetype(catalog.Archetype(value)); !ok {
			return fmt.Errorf("editor.default_archetype: unknown archetype %q", value)
		}
		s.Config.Editor.DefaultArchetype = value
	case "editor.random_seed":
		var n uint64
		if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
			return fmt.Errorf("editor.random_seed must be a non-negative integer")
		}
		s.Config.Editor.RandomSeed = n
	default:
		return unknownKey(key)
	}
	return s.SaveConfig()
}

func unknownKey(key string) error {
	return fmt.Errorf("unknown config key: %s\nValid keys: %s", key, strings.Join(ConfigKeys, ", "))
}

// Path resolves a path within TREKICON_HOME.
func (s *Store) Path(parts ...string) string {
	all := append([]string{s.Home}, parts...)
	return filepath.Join(all...)
}

// GalleryPath is the saved-characters database.
func (s *Store) GalleryPath() string {
	return s.Path(galleryFile)
}

// ExportsPath is where rendered files go by default.
func (s *Store) ExportsPath(parts ...string) string {
	return s.Path(append([]string{exportsDir}, parts...)...)
}

// writeAtomic writes through a temp file so a crash never leaves a partial
// record behind.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// SaveCurrent writes the autosave record.
func (s *Store) SaveCurrent(st selection.State) error {
	st.Version = selection.SchemaVersion
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode character: %w", err)
	}
	if err := writeAtomic(s.Path(currentFile), append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write %s: %w", currentFile, err)
	}
	return nil
}

// LoadCurrent reads the autosave record, migrating older versions. It
// returns ErrNoCurrent when nothing has been saved.
func (s *Store) LoadCurrent() (selection.State, error) {
	data, err := os.ReadFile(s.Path(currentFile))
	if errors.Is(err, os.ErrNotExist) {
		return selection.State{}, ErrNoCurrent
	}
	if err != nil {
		return selection.State{}, fmt.Errorf("cannot read %s: %w", currentFile, err)
	}
	st, err := migrate.Decode(data)
	if err != nil {
		return selection.State{}, fmt.Errorf("%s: %w", currentFile, err)
	}
	return st, nil
}

// SaveMemory writes the last-used color memory.
func (s *Store) SaveMemory(mem selection.Memory) error {
	data, err := yaml.Marshal(mem)
	if err != nil {
		return fmt.Errorf("failed to encode memory: %w", err)
	}
	if err := writeAtomic(s.Path(memoryFile), data); err != nil {
		return fmt.Errorf("failed to write %s: %w", memoryFile, err)
	}
	return nil
}

// LoadMemory reads the last-used color memory. A missing file is empty memory.
func (s *Store) LoadMemory() (selection.Memory, error) {
	var mem selection.Memory
	data, err := os.ReadFile(s.Path(memoryFile))
	if errors.Is(err, os.ErrNotExist) {
		return mem, nil
	}
	if err != nil {
		return mem, fmt.Errorf("cannot read %s: %w", memoryFile, err)
	}
	if err := yaml.Unmarshal(data, &mem); err != nil {
		return selection.Memory{}, fmt.Errorf("invalid %s: %w", memoryFile, err)
	}
	return mem, nil
}

// CheckHealth verifies TREKICON_HOME structure integrity.
func CheckHealth(home string) []Issue {
	var issues []Issue

	p := filepath.Join(home, exportsDir)
	info, err := os.Stat(p)
	if err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("missing directory: %s", p)})
	} else if !info.IsDir() {
		issues = append(issues, Issue{"error", fmt.Sprintf("expected directory but found file: %s", p)})
	}

	data, err := os.ReadFile(filepath.Join(home, configFile))
	if err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("cannot read config.yaml: %v", err)})
	} else {
		cfg := DefaultConfig()
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			issues = append(issues, Issue{"error", fmt.Sprintf("config.yaml is not valid YAML: %v", err)})
		} else if err := cfg.validate(); err != nil {
			issues = append(issues, Issue{"error", fmt.Sprintf("config.yaml: %v", err)})
		} else if cfg.Editor.DefaultArchetype != "" {
			if cat, err := catalog.Load(); err == nil {
				if _, ok := cat.Archetype(catalog.Archetype(cfg.Editor.DefaultArchetype)); !ok {
					issues = append(issues, Issue{"warning", fmt.Sprintf("config.yaml: unknown default archetype %q", cfg.Editor.DefaultArchetype)})
				}
			}
		}
	}

	if data, err := os.ReadFile(filepath.Join(home, currentFile)); err == nil {
		if _, err := migrate.Decode(data); err != nil {
			issues = append(issues, Issue{"warning", fmt.Sprintf("%s is unreadable and will be replaced with defaults: %v", currentFile, err)})
		}
	}

	if data, err := os.ReadFile(filepath.Join(home, memoryFile)); err == nil {
		var mem selection.Memory
		if err := yaml.Unmarshal(data, &mem); err != nil {
			issues = append(issues, Issue{"warning", fmt.Sprintf("%s is not valid YAML: %v", memoryFile, err)})
		}
	}

	return issues
}

// FixIssues attempts to repair simple issues in TREKICON_HOME.
func FixIssues(home string) []string {
	var fixed []string

	p := filepath.Join(home, exportsDir)
	if _, err := os.Stat(p); err != nil {
		if err := os.MkdirAll(p, 0755); err == nil {
			fixed = append(fixed, fmt.Sprintf("recreated missing directory: %s", exportsDir))
		}
	}

	cfgPath := filepath.Join(home, configFile)
	if _, err := os.Stat(cfgPath); err != nil {
		data, _ := yaml.Marshal(DefaultConfig())
		if os.WriteFile(cfgPath, data, 0644) == nil {
			fixed = append(fixed, "recreated missing config.yaml with defaults")
		}
	}

	current := filepath.Join(home, currentFile)
	if data, err := os.ReadFile(current); err == nil {
		if _, err := migrate.Decode(data); err != nil {
			if os.Rename(current, current+".bad") == nil {
				fixed = append(fixed, fmt.Sprintf("moved unreadable %s aside to %s.bad", currentFile, currentFile))
			}
		}
	}

	mem := filepath.Join(home, memoryFile)
	if data, err := os.ReadFile(mem); err == nil {
		var m selection.Memory
		if yaml.Unmarshal(data, &m) != nil && os.Remove(mem) == nil {
			fixed = append(fixed, fmt.Sprintf("removed invalid %s", memoryFile))
		}
	}

	return fixed
}
