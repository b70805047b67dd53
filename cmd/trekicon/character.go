package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kokistudios/trekicon/internal/autosave"
	"github.com/kokistudios/trekicon/internal/catalog"
	"github.com/kokistudios/trekicon/internal/compose"
	"github.com/kokistudios/trekicon/internal/editor"
	"github.com/kokistudios/trekicon/internal/gallery"
	"github.com/kokistudios/trekicon/internal/migrate"
	"github.com/kokistudios/trekicon/internal/pipeline"
	"github.com/kokistudios/trekicon/internal/randomize"
	"github.com/kokistudios/trekicon/internal/selection"
	"github.com/kokistudios/trekicon/internal/share"
	"github.com/kokistudios/trekicon/internal/store"
	"github.com/kokistudios/trekicon/internal/suggest"
	"github.com/kokistudios/trekicon/internal/ui"
	"github.com/kokistudios/trekicon/internal/visibility"
)

// workspace is the current character with everything needed to edit it.
type workspace struct {
	store  *store.Store
	engine *pipeline.Engine
	res    pipeline.Result
}

// openWorkspace loads the autosaved character. A missing or unreadable save
// falls back to a fresh default character, never a partial one.
func openWorkspace() (*workspace, error) {
	s, err := loadStore()
	if err != nil {
		return nil, err
	}
	engine, err := newEngine(s)
	if err != nil {
		return nil, err
	}
	w := &workspace{store: s, engine: engine}

	mem, err := s.LoadMemory()
	if err != nil {
		ui.Warning(fmt.Sprintf("%v (starting with empty color memory)", err))
		mem = selection.Memory{}
	}
	st, err := s.LoadCurrent()
	switch {
	case err == nil:
		w.res = engine.Apply(st, mem, "")
	case errors.Is(err, store.ErrNoCurrent):
		w.res = w.fresh(mem)
	default:
		ui.Warning(fmt.Sprintf("%v (starting from defaults)", err))
		w.res = w.fresh(mem)
	}
	return w, nil
}

// fresh returns the default character for the configured archetype.
func (w *workspace) fresh(mem selection.Memory) pipeline.Result {
	cat := w.engine.Catalog()
	st := selection.Default(cat)
	if a := w.store.Config.Editor.DefaultArchetype; a != "" && a != st.BodyShape {
		if _, ok := cat.Archetype(catalog.Archetype(a)); ok {
			st.BodyShape = a
			return w.engine.Apply(st, mem, string(catalog.BodyShape))
		}
	}
	return w.engine.Apply(st, mem, "")
}

// persist autosaves the character and its color memory. Without an
// initialized home nothing is written.
func (w *workspace) persist() error {
	return w.save(w.res.State, w.res.Memory)
}

func (w *workspace) save(st selection.State, mem selection.Memory) error {
	if _, err := os.Stat(w.store.Home); err != nil {
		ui.Logger.Debug("not saving, home not initialized", "home", w.store.Home)
		return nil
	}
	if err := w.store.SaveCurrent(st); err != nil {
		return err
	}
	return w.store.SaveMemory(mem)
}

func (w *workspace) reportCorrections() {
	for _, c := range w.res.Corrections {
		ui.Info(c.String())
	}
}

func (w *workspace) openGallery() (*gallery.Gallery, error) {
	if _, err := os.Stat(w.store.Home); err != nil {
		return nil, fmt.Errorf("trekicon not initialized, run 'trekicon init' first: %w", err)
	}
	return gallery.Open(w.store.GalleryPath())
}

func controlIDs(cat *catalog.Catalog) []string {
	var ids []string
	for _, c := range cat.Controls() {
		ids = append(ids, string(c.ID))
	}
	return ids
}

func controlsCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "controls",
		Short: "List the controls available for the current character",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace()
			if err != nil {
				return err
			}
			var rows [][]string
			for _, cs := range w.res.Visibility.Controls {
				if !cs.Visible && !all {
					continue
				}
				val, _ := w.res.State.Get(string(cs.ID))
				if !cs.Visible {
					val = ui.Dim("hidden")
				}
				rows = append(rows, []string{string(cs.ID), string(cs.Kind), cs.Label, val})
			}
			ui.Table([]string{"CONTROL", "KIND", "LABEL", "VALUE"}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include controls hidden for this character")
	return cmd
}

func optionsCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:     "options <control>",
		Short:   "List the options of one control",
		Long:    "List the options of a control for the current character. Hidden options are only shown with --all.",
		Example: "  trekicon options ears\n  trekicon options headFeatures --all",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace()
			if err != nil {
				return err
			}
			id := catalog.ControlID(args[0])
			cs, ok := w.res.Visibility.Control(id)
			if !ok {
				err := fmt.Errorf("%w: %s", catalog.ErrUnknownControl, args[0])
				if hint := suggest.Hint(args[0], controlIDs(w.engine.Catalog())); hint != "" {
					return fmt.Errorf("%w (%s)", err, hint)
				}
				return err
			}
			if !cs.Visible {
				ui.Warning(fmt.Sprintf("%s is not available for this character", cs.Label))
				if !all {
					return nil
				}
			}
			var rows [][]string
			for _, o := range cs.Options {
				if !o.Visible && !all {
					continue
				}
				mark := ""
				switch {
				case w.res.State.Has(id, o.Value), w.res.State.Value(id) == o.Value:
					mark = ui.Green("●")
				case containsString(w.res.Forced, o.Value):
					mark = ui.Accent("◆")
				case !o.Visible:
					mark = ui.Dim("hidden")
				}
				rows = append(rows, []string{o.Value, o.Label, o.Group, mark})
			}
			if len(rows) == 0 {
				ui.EmptyState("No options.")
				return nil
			}
			ui.Table([]string{"VALUE", "LABEL", "GROUP", ""}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include hidden options")
	return cmd
}

func setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <field> <value>",
		Short: "Change one field of the current character",
		Long: `Change one field of the current character and resolve everything that depends on it.

Multi-value fields (headFeatures, jewelry) take a comma separated list, or
+value / -value to add or remove one entry. Unavailable values are corrected,
and each correction is reported.`,
		Example: `  trekicon set species andorian
  trekicon set headFeatures +scar
  trekicon set bodyColor custom && trekicon set bodyColorHex '#6a4b3a'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace()
			if err != nil {
				return err
			}
			res, err := w.engine.Set(w.res.State, w.res.Memory, args[0], args[1])
			if errors.Is(err, selection.ErrUnknownField) {
				if hint := suggest.Hint(args[0], selection.Fields(w.engine.Catalog())); hint != "" {
					return fmt.Errorf("%w (%s)", err, hint)
				}
			}
			if err != nil {
				return err
			}
			w.res = res
			w.reportCorrections()
			if err := w.persist(); err != nil {
				return err
			}
			got, _ := w.res.State.Get(args[0])
			ui.Success(fmt.Sprintf("%s = %s", args[0], got))
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current character",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace()
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(os.Stdout, w.res.State)
			}
			printCharacter(w.res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the character record as JSON")
	return cmd
}

func printCharacter(res pipeline.Result) {
	ui.SectionHeader("CHARACTER")
	for _, cs := range res.Visibility.Controls {
		if !cs.Visible {
			continue
		}
		val, _ := res.State.Get(string(cs.ID))
		switch cs.Kind {
		case catalog.KindMulti:
			val = strings.Join(res.Chips[cs.ID], ", ")
		case catalog.KindToggle:
			if !res.State.Flag(cs.ID) {
				continue
			}
		}
		if val == "" {
			val = ui.Dim("none")
		}
		ui.KeyValue(fmt.Sprintf("%-16s", cs.Label), val)
	}
	if len(res.Forced) > 0 {
		ui.KeyValue(fmt.Sprintf("%-16s", "Species traits"), ui.Accent(strings.Join(res.Forced, ", ")))
	}

	ui.SectionHeader("COLORS")
	for _, name := range res.Output.ColorNames() {
		ui.KeyValue(fmt.Sprintf("%-26s", name), ui.Swatch(res.Output.Colors[name]))
	}
	if res.NoColorChoice {
		ui.EmptyState("Uniform color is fixed for this uniform.")
	}
}

func renderCmd() *cobra.Command {
	var svg, asJSON bool
	var outPath string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Compose the current character's layer stack",
		Long:  "Print the ordered layer stack of the current character, or write it as SVG (--svg) or JSON (--json).",
		Example: `  trekicon render
  trekicon render --svg -o kira.svg
  trekicon render --json | jq '.layers[].slot'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace()
			if err != nil {
				return err
			}
			out := w.res.Output

			var dst io.Writer = os.Stdout
			if outPath != "" {
				if !filepath.IsAbs(outPath) && filepath.Dir(outPath) == "." && (svg || asJSON) {
					if _, err := os.Stat(w.store.ExportsPath()); err == nil {
						outPath = w.store.ExportsPath(outPath)
					}
				}
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", outPath, err)
				}
				defer f.Close()
				dst = f
			}

			switch {
			case svg:
				if err := compose.WriteSVG(dst, out, w.store.Config.Assets.Base); err != nil {
					return err
				}
			case asJSON:
				if err := writeJSON(dst, out); err != nil {
					return err
				}
			default:
				var rows [][]string
				for _, l := range out.Layers {
					asset := l.AssetPath
					if l.Empty() {
						asset = ui.Dim("(empty)")
					}
					if l.Mirrored {
						asset += " " + ui.Dim("[mirrored]")
					}
					rows = append(rows, []string{fmt.Sprint(l.ZOrder), l.Slot, l.Value, asset})
				}
				ui.Table([]string{"Z", "SLOT", "VALUE", "ASSET"}, rows)
				if len(out.Hooks) > 0 {
					ui.Detail("Hooks:", strings.Join(out.Hooks, " "))
				}
			}
			if outPath != "" {
				ui.Success(fmt.Sprintf("Wrote %s", outPath))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&svg, "svg", false, "Write an SVG document")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Write the layer stack and colors as JSON")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write to a file (bare names go to TREKICON_HOME/exports)")
	cmd.MarkFlagsMutuallyExclusive("svg", "json")
	return cmd
}

func describeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Describe the current character in prose",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace()
			if err != nil {
				return err
			}
			ui.RenderMarkdown(os.Stdout, describeMarkdown(w.engine.Catalog(), w.res))
			return nil
		},
	}
}

// describeMarkdown summarizes a resolved character as a markdown document.
func describeMarkdown(cat *catalog.Catalog, res pipeline.Result) string {
	var b strings.Builder
	st := res.State

	title := st.BodyShape
	if info, ok := cat.Archetype(st.Archetype()); ok {
		title = info.Label
	}
	if st.Species != "" {
		if sp, ok := cat.SpeciesInfo(st.Species); ok {
			title += " · " + sp.Label
		}
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	b.WriteString("| Control | Value |\n|---|---|\n")
	for _, cs := range res.Visibility.Controls {
		if !cs.Visible || cs.ID == catalog.BodyShape || cs.ID == catalog.Species {
			continue
		}
		var val string
		switch cs.Kind {
		case catalog.KindMulti:
			var labels []string
			for _, v := range res.Chips[cs.ID] {
				labels = append(labels, optionLabel(cs.Options, v))
			}
			val = strings.Join(labels, ", ")
		case catalog.KindToggle:
			if res.State.Flag(cs.ID) {
				val = "yes"
			}
		default:
			val = optionLabel(cs.Options, st.Value(cs.ID))
		}
		if val == "" {
			continue
		}
		fmt.Fprintf(&b, "| %s | %s |\n", cs.Label, val)
	}

	if len(res.Forced) > 0 {
		fmt.Fprintf(&b, "\n**Species traits:** %s\n", strings.Join(res.Forced, ", "))
	}
	if len(res.Output.Colors) > 0 {
		b.WriteString("\n**Colors:**\n\n")
		for _, name := range res.Output.ColorNames() {
			fmt.Fprintf(&b, "- `%s` %s\n", name, res.Output.Colors[name])
		}
	}
	return b.String()
}

func optionLabel(opts []visibility.OptionState, value string) string {
	for _, o := range opts {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}

func randomCmd() *cobra.Command {
	var seed uint64
	var dryRun bool
	cmd := &cobra.Command{
		Use:     "random",
		Short:   "Replace the current character with a random one",
		Example: "  trekicon random\n  trekicon random --seed 1701",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace()
			if err != nil {
				return err
			}
			if seed == 0 {
				seed = w.store.Config.Editor.RandomSeed
			}
			w.res = randomize.New(w.engine, seed).Generate(w.res.Memory)
			if !dryRun {
				if err := w.persist(); err != nil {
					return err
				}
			}
			printCharacter(w.res)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for a repeatable draw")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print without replacing the current character")
	return cmd
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Start over from the default character",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace()
			if err != nil {
				return err
			}
			w.res = w.fresh(w.res.Memory)
			if err := w.persist(); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Reset to default %s", w.res.State.BodyShape))
			return nil
		},
	}
}

func editCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Edit the current character interactively",
		Long:  "Open the full-screen editor. Changes are saved automatically shortly after you stop typing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace()
			if err != nil {
				return err
			}

			latest := &editor.Latest{}
			latest.Set(editor.Snapshot{State: w.res.State, Memory: w.res.Memory})
			saver := autosave.New(w.store.Config.Editor.AutosaveDelay, latest.Get,
				func(snap editor.Snapshot) error { return w.save(snap.State, snap.Memory) },
				func(err error) { ui.Logger.Error("autosave failed", "err", err) },
			)

			final, runErr := editor.Run(editor.Options{
				Engine:     w.engine,
				Randomizer: randomize.New(w.engine, w.store.Config.Editor.RandomSeed),
				Initial:    w.res,
				OnChange: func(snap editor.Snapshot) {
					latest.Set(snap)
					saver.Touch()
				},
			})
			if err := saver.Stop(); err != nil {
				return fmt.Errorf("failed to save character: %w", err)
			}
			if runErr != nil {
				return runErr
			}
			ui.SanitizeTerminal()
			ui.Success(fmt.Sprintf("Saved %s", describeShort(final.State)))
			return nil
		},
	}
}

func describeShort(st selection.State) string {
	if st.Species != "" {
		return st.BodyShape + " (" + st.Species + ")"
	}
	return st.BodyShape
}

func shareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Encode or decode share links",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "encode",
		Short: "Print a share token and link for the current character",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace()
			if err != nil {
				return err
			}
			token, err := share.Encode(w.res.State)
			if err != nil {
				return err
			}
			if base := w.store.Config.Assets.ShareBase; base != "" {
				fmt.Println(share.URL(base, token))
				return nil
			}
			fmt.Println(token)
			return nil
		},
	})

	var printOnly bool
	decode := &cobra.Command{
		Use:   "decode <token-or-link>",
		Short: "Load a character from a share token or link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace()
			if err != nil {
				return err
			}
			st, err := share.Decode(args[0])
			if err != nil {
				return err
			}
			w.res = w.engine.Apply(st, w.res.Memory, "")
			w.reportCorrections()
			if printOnly {
				return writeJSON(os.Stdout, w.res.State)
			}
			if err := w.persist(); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Loaded shared %s", describeShort(w.res.State)))
			return nil
		},
	}
	decode.Flags().BoolVar(&printOnly, "print", false, "Print the record instead of replacing the current character")
	cmd.AddCommand(decode)
	return cmd
}

func migrateCmd() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:     "migrate <file>",
		Short:   "Upgrade a saved character record to the current format",
		Example: "  trekicon migrate old.json\n  trekicon migrate old.json --write",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("cannot read %s: %w", args[0], err)
			}
			from := migrate.Version(data)
			out, err := migrate.Migrate(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if !write {
				fmt.Println(string(out))
				return nil
			}
			if from == selection.SchemaVersion {
				ui.Info(fmt.Sprintf("%s is already version %d", args[0], from))
				return nil
			}
			if err := os.WriteFile(args[0], append(out, '\n'), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", args[0], err)
			}
			ui.Success(fmt.Sprintf("Migrated %s from version %d to %d", args[0], from, selection.SchemaVersion))
			return nil
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "Rewrite the file in place")
	return cmd
}

func saveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <name>",
		Short: "Save the current character to the gallery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace()
			if err != nil {
				return err
			}
			g, err := w.openGallery()
			if err != nil {
				return err
			}
			defer g.Close()
			if err := g.Put(context.Background(), args[0], w.res.State); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Saved %s", args[0]))
			return nil
		},
	}
}

func loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <name>",
		Short: "Make a saved character current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace()
			if err != nil {
				return err
			}
			g, err := w.openGallery()
			if err != nil {
				return err
			}
			defer g.Close()
			ctx := context.Background()
			entry, err := g.Get(ctx, args[0])
			if errors.Is(err, gallery.ErrNotFound) {
				if names := galleryNames(ctx, g); len(names) > 0 {
					if hint := suggest.Hint(args[0], names); hint != "" {
						return fmt.Errorf("%w (%s)", err, hint)
					}
				}
			}
			if err != nil {
				return err
			}
			w.res = w.engine.Apply(entry.State, w.res.Memory, "")
			w.reportCorrections()
			if err := w.persist(); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Loaded %s", entry.Name))
			return nil
		},
	}
}

func galleryNames(ctx context.Context, g *gallery.Gallery) []string {
	list, err := g.List(ctx)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(list))
	for _, s := range list {
		names = append(names, s.Name)
	}
	return names
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved characters",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace()
			if err != nil {
				return err
			}
			g, err := w.openGallery()
			if err != nil {
				return err
			}
			defer g.Close()
			list, err := g.List(context.Background())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				ui.EmptyState("No saved characters. Use 'trekicon save <name>' to add one.")
				return nil
			}
			var rows [][]string
			for _, s := range list {
				rows = append(rows, []string{s.Name, s.BodyShape, s.Species, s.UpdatedAt.Local().Format("2006-01-02 15:04")})
			}
			ui.Table([]string{"NAME", "BODY", "SPECIES", "UPDATED"}, rows)
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a saved character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace()
			if err != nil {
				return err
			}
			g, err := w.openGallery()
			if err != nil {
				return err
			}
			defer g.Close()
			if !yes {
				proceed, err := ui.Confirm(fmt.Sprintf("Delete %s?", args[0]))
				if err != nil {
					return err
				}
				if !proceed {
					ui.Info("Cancelled.")
					return nil
				}
			}
			if err := g.Delete(context.Background(), args[0]); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Deleted %s", args[0]))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func containsString(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
