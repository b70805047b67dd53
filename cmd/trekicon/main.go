package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kokistudios/trekicon/internal/catalog"
	"github.com/kokistudios/trekicon/internal/compose"
	trekmcp "github.com/kokistudios/trekicon/internal/mcp"
	"github.com/kokistudios/trekicon/internal/pipeline"
	"github.com/kokistudios/trekicon/internal/store"
	"github.com/kokistudios/trekicon/internal/ui"
)

// Set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func buildVersion() string {
	if commit == "none" {
		return version
	}
	return fmt.Sprintf("%s (%s, %s)", version, commit, date)
}

func main() {
	var noColor, verbose bool

	rootCmd := &cobra.Command{
		Use:   "trekicon",
		Short: "Starfleet character icon builder",
		Long:  "Build character icons from a catalog of archetypes, species and features. Every edit is resolved so the character is always valid and renderable.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.Init(noColor)
			ui.SetVerbose(verbose)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Version = buildVersion()
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every correction the engine makes")

	rootCmd.AddGroup(
		&cobra.Group{ID: "character", Title: "Character Commands:"},
		&cobra.Group{ID: "gallery", Title: "Gallery Commands:"},
		&cobra.Group{ID: "config", Title: "Configuration:"},
	)

	for _, c := range []*cobra.Command{
		controlsCmd(), optionsCmd(), setCmd(), showCmd(), renderCmd(), describeCmd(),
		randomCmd(), resetCmd(), editCmd(), shareCmd(), migrateCmd(),
	} {
		c.GroupID = "character"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{saveCmd(), loadCmd(), listCmd(), deleteCmd()} {
		c.GroupID = "gallery"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{initCmd(), doctorCmd(), configCmd()} {
		c.GroupID = "config"
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(mcpCmd())
	rootCmd.AddCommand(completionCmd())

	if err := rootCmd.Execute(); err != nil {
		ui.Error(err.Error())
		os.Exit(1)
	}
}

// loadStore returns the configured home. Character commands work without
// init; defaults are used until config.yaml exists.
func loadStore() (*store.Store, error) {
	return store.LoadOrDefault(store.Home())
}

func requireStore() (*store.Store, error) {
	s, err := store.Load(store.Home())
	if err != nil {
		return nil, fmt.Errorf("trekicon not initialized, run 'trekicon init' first: %w", err)
	}
	return s, nil
}

// newEngine builds the pipeline from config.
func newEngine(s *store.Store) (*pipeline.Engine, error) {
	cat, err := catalog.Load()
	if err != nil {
		return nil, err
	}
	cfg := pipeline.Config{
		Canvas: compose.Config{Width: s.Config.Canvas.Width, Height: s.Config.Canvas.Height},
		Logger: ui.Logger,
	}
	if seed := s.Config.Editor.RandomSeed; seed != 0 {
		cfg.Rand = rand.New(rand.NewPCG(seed, seed))
	}
	return pipeline.New(cat, cfg), nil
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "init",
		Short:   "Initialize TREKICON_HOME directory structure",
		Long:    "Create the TREKICON_HOME directory (~/.trekicon by default) with exports/ and config.yaml.",
		Example: "  trekicon init\n  trekicon init --force",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()
			if err := store.Init(home, force); err != nil {
				return err
			}
			ui.LogoWithTagline("character icon builder")
			ui.Success("trekicon initialized")
			ui.Detail("Home:", home)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Reinitialize even if TREKICON_HOME already exists")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and edit trekicon configuration",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configGetCmd())
	cmd.AddCommand(configSetCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(s.Config)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Print(string(data))
			return nil
		},
	}
}

func configGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "get <key>",
		Short:     "Print one configuration value",
		Args:      cobra.ExactArgs(1),
		ValidArgs: store.ConfigKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			v, err := s.ConfigValue(args[0])
			if err != nil {
				return err
			}
			fmt.Println(v)
			return nil
		},
	}
}

func configSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  "Set a trekicon configuration value. Valid keys: canvas.width, canvas.height, assets.base, assets.share_base, editor.autosave_delay, editor.default_archetype, editor.random_seed.",
		Example: `  trekicon config set canvas.width 1024
  trekicon config set assets.share_base https://icons.example.org
  trekicon config set editor.autosave_delay 750ms`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: store.ConfigKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := requireStore()
			if err != nil {
				return err
			}
			if err := s.SetConfigValue(args[0], args[1]); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Set %s = %s", args[0], args[1]))
			return nil
		},
	}
}

func doctorCmd() *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check health of TREKICON_HOME",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()
			if _, err := os.Stat(home); err != nil {
				return fmt.Errorf("trekicon not initialized, run 'trekicon init' first: %w", err)
			}

			if fix {
				ui.CommandBanner("DOCTOR", "repair mode")
				fixed := store.FixIssues(home)
				for _, f := range fixed {
					ui.Success(fmt.Sprintf("[FIXED] %s", f))
				}
				if len(fixed) == 0 {
					ui.EmptyState("Nothing to fix.")
				}
			} else {
				ui.CommandBanner("DOCTOR", "health check")
			}

			issues := store.CheckHealth(home)
			if _, err := catalog.Load(); err != nil {
				issues = append(issues, store.Issue{Severity: "error", Message: fmt.Sprintf("catalog: %v", err)})
			}

			if len(issues) == 0 {
				ui.Success("Everything looks good")
				return nil
			}

			hasError := false
			for _, issue := range issues {
				if issue.Severity == "error" {
					ui.Error(fmt.Sprintf("[ERR]  %s", issue.Message))
					hasError = true
				} else {
					ui.Warning(fmt.Sprintf("[WARN] %s", issue.Message))
				}
			}

			if hasError {
				os.Exit(2)
			}
			os.Exit(1)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "Repair missing directories and config, and set aside unreadable saves")
	return cmd
}

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Model Context Protocol server",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run trekicon as an MCP server over stdio",
		Long:  "Start trekicon as a Model Context Protocol (MCP) server over stdio so assistants can list options, render and share characters.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			engine, err := newEngine(s)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			return trekmcp.NewServer(s, engine, version).Run(ctx)
		},
	})
	return cmd
}

func completionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish]",
		Short:     "Generate shell completion scripts",
		Long:      "Generate shell completion scripts for bash, zsh, or fish. Output the script to stdout for sourcing in your shell profile.",
		Example:   "  trekicon completion bash > ~/.bashrc.d/trekicon\n  trekicon completion zsh > ~/.zfunc/_trekicon\n  trekicon completion fish > ~/.config/fish/completions/trekicon.fish",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			default:
				return fmt.Errorf("unsupported shell: %s (use bash, zsh, or fish)", args[0])
			}
		},
	}
}
