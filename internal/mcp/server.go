package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kokistudios/trekicon/internal/catalog"
	"github.com/kokistudios/trekicon/internal/compose"
	"github.com/kokistudios/trekicon/internal/migrate"
	"github.com/kokistudios/trekicon/internal/pipeline"
	"github.com/kokistudios/trekicon/internal/randomize"
	"github.com/kokistudios/trekicon/internal/selection"
	"github.com/kokistudios/trekicon/internal/share"
	"github.com/kokistudios/trekicon/internal/store"
	"github.com/kokistudios/trekicon/internal/suggest"
)

// Server wraps the MCP server with the resolution engine.
type Server struct {
	store  *store.Store
	engine *pipeline.Engine
	server *mcp.Server
}

// NewServer creates a new trekicon MCP server.
func NewServer(st *store.Store, engine *pipeline.Engine, version string) *Server {
	s := &Server{store: st, engine: engine}

	impl := &mcp.Implementation{
		Name:    "trekicon",
		Version: version,
	}

	s.server = mcp.NewServer(impl, nil)
	s.registerTools()

	return s
}

// Run starts the MCP server on stdio.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "trekicon_options",
		Description: "List the controls and options currently selectable for a character. " +
			"Pass a character record (or share token) to see what its archetype and species allow; " +
			"omit it to see the default humanoid. Hidden options are listed separately so you can explain why a value is unavailable.",
	}, s.handleOptions)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "trekicon_render",
		Description: "Resolve a character and return its layer stack, CSS color variables and any corrections the engine made. " +
			"Edits are applied in order as field=value strings (e.g. 'species=vulcan', 'headFeatures=+scar'); " +
			"invalid values are corrected, not rejected. Set svg=true to also get the composed SVG document.",
	}, s.handleRender)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "trekicon_randomize",
		Description: "Generate a random valid character. A non-zero seed makes the draw repeatable.",
	}, s.handleRandomize)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "trekicon_migrate",
		Description: "Upgrade a saved character record of any older schema version to the current one. Returns the migrated JSON record.",
	}, s.handleMigrate)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "trekicon_share",
		Description: "Encode a character record into a share token and link, or decode a token or link back into a record. " +
			"Provide exactly one of record or token.",
	}, s.handleShare)
}

// loadState resolves a tool's character input: a JSON record, a share token
// or link, or nothing for the default character.
func (s *Server) loadState(record, token string) (selection.State, error) {
	switch {
	case record != "" && token != "":
		return selection.State{}, errors.New("provide record or token, not both")
	case record != "":
		st, err := migrate.Decode([]byte(record))
		if err != nil {
			return selection.State{}, fmt.Errorf("invalid record: %w", err)
		}
		return st, nil
	case token != "":
		return share.Decode(token)
	}
	return s.engine.Default().State, nil
}

// applyEdits runs one pipeline pass per edit.
func (s *Server) applyEdits(st selection.State, mem selection.Memory, edits []string) (pipeline.Result, error) {
	res := s.engine.Apply(st, mem, "")
	for _, e := range edits {
		field, value, ok := strings.Cut(e, "=")
		if !ok {
			return pipeline.Result{}, fmt.Errorf("edit %q must look like field=value", e)
		}
		field = strings.TrimSpace(field)
		next, err := s.engine.Set(res.State, res.Memory, field, value)
		if errors.Is(err, selection.ErrUnknownField) {
			if hint := suggest.Hint(field, selection.Fields(s.engine.Catalog())); hint != "" {
				return pipeline.Result{}, fmt.Errorf("%w (%s)", err, hint)
			}
		}
		if err != nil {
			return pipeline.Result{}, err
		}
		res = next
	}
	return res, nil
}

// OptionsArgs defines input for trekicon_options.
type OptionsArgs struct {
	Record  string `json:"record,omitempty" jsonschema:"Character record as JSON (any schema version). Optional."`
	Token   string `json:"token,omitempty" jsonschema:"Share token or share link. Optional, alternative to record."`
	Control string `json:"control,omitempty" jsonschema:"Limit output to one control id (e.g. ears, headFeatures)"`
}

// ControlOptions is one control in trekicon_options output.
type ControlOptions struct {
	ID      string   `json:"id"`
	Kind    string   `json:"kind"`
	Label   string   `json:"label"`
	Current []string `json:"current,omitempty"`
	Forced  []string `json:"forced,omitempty"`
	Visible []string `json:"visible"`
	Hidden  []string `json:"hidden,omitempty"`
}

// OptionsResult is the output of trekicon_options.
type OptionsResult struct {
	BodyShape string           `json:"body_shape"`
	Species   string           `json:"species,omitempty"`
	Controls  []ControlOptions `json:"controls"`
}

func (s *Server) handleOptions(ctx context.Context, req *mcp.CallToolRequest, args OptionsArgs) (*mcp.CallToolResult, any, error) {
	st, err := s.loadState(args.Record, args.Token)
	if err != nil {
		return nil, nil, err
	}
	cat := s.engine.Catalog()
	if args.Control != "" {
		if _, err := cat.Control(catalog.ControlID(args.Control)); err != nil {
			var ids []string
			for _, c := range cat.Controls() {
				ids = append(ids, string(c.ID))
			}
			if hint := suggest.Hint(args.Control, ids); hint != "" {
				return nil, nil, fmt.Errorf("%w (%s)", err, hint)
			}
			return nil, nil, err
		}
	}

	res := s.engine.Apply(st, selection.Memory{}, "")
	out := OptionsResult{BodyShape: res.State.BodyShape, Species: res.State.Species}
	for _, cs := range res.Visibility.Controls {
		if !cs.Visible || (args.Control != "" && string(cs.ID) != args.Control) {
			continue
		}
		co := ControlOptions{
			ID:      string(cs.ID),
			Kind:    string(cs.Kind),
			Label:   cs.Label,
			Visible: res.Visibility.VisibleValues(cs.ID),
			Hidden:  res.Visibility.Hidden(cs.ID),
		}
		if co.Visible == nil {
			co.Visible = []string{}
		}
		switch cs.Kind {
		case catalog.KindMulti:
			co.Current = res.Chips[cs.ID]
			for _, f := range res.Forced {
				if _, ok := cat.Option(cs.ID, f); ok {
					co.Forced = append(co.Forced, f)
				}
			}
		case catalog.KindToggle:
			co.Current = []string{fmt.Sprint(res.State.Flag(cs.ID))}
		default:
			if v := res.State.Value(cs.ID); v != "" {
				co.Current = []string{v}
			}
		}
		out.Controls = append(out.Controls, co)
	}
	return nil, out, nil
}

// RenderArgs defines input for trekicon_render.
type RenderArgs struct {
	Record string   `json:"record,omitempty" jsonschema:"Character record as JSON (any schema version). Optional; defaults to the default character."`
	Token  string   `json:"token,omitempty" jsonschema:"Share token or share link. Optional, alternative to record."`
	Set    []string `json:"set,omitempty" jsonschema:"Edits applied in order, each 'field=value'. Multi fields accept a comma list, '+value' or '-value'."`
	SVG    bool     `json:"svg,omitempty" jsonschema:"If true, include the composed SVG document"`
}

// RenderResult is the output of trekicon_render.
type RenderResult struct {
	Record      selection.State   `json:"record"`
	Layers      []compose.Layer   `json:"layers"`
	Colors      map[string]string `json:"colors"`
	Hooks       []string          `json:"hooks,omitempty"`
	Forced      []string          `json:"forced,omitempty"`
	Corrections []string          `json:"corrections,omitempty"`
	SVG         string            `json:"svg,omitempty"`
}

func (s *Server) handleRender(ctx context.Context, req *mcp.CallToolRequest, args RenderArgs) (*mcp.CallToolResult, any, error) {
	st, err := s.loadState(args.Record, args.Token)
	if err != nil {
		return nil, nil, err
	}
	res, err := s.applyEdits(st, selection.Memory{}, args.Set)
	if err != nil {
		return nil, nil, err
	}
	out := RenderResult{
		Record: res.State,
		Layers: res.Output.Layers,
		Colors: res.Output.Colors,
		Hooks:  res.Output.Hooks,
		Forced: res.Forced,
	}
	for _, c := range res.Corrections {
		out.Corrections = append(out.Corrections, c.String())
	}
	if args.SVG {
		var b strings.Builder
		if err := compose.WriteSVG(&b, res.Output, s.store.Config.Assets.Base); err != nil {
			return nil, nil, fmt.Errorf("failed to write svg: %w", err)
		}
		out.SVG = b.String()
	}
	return nil, out, nil
}

// RandomizeArgs defines input for trekicon_randomize.
type RandomizeArgs struct {
	Seed uint64 `json:"seed,omitempty" jsonschema:"Seed for a repeatable draw (0 = random)"`
}

// RandomizeResult is the output of trekicon_randomize.
type RandomizeResult struct {
	Record selection.State `json:"record"`
	Token  string          `json:"token"`
	Link   string          `json:"link,omitempty"`
}

func (s *Server) handleRandomize(ctx context.Context, req *mcp.CallToolRequest, args RandomizeArgs) (*mcp.CallToolResult, any, error) {
	res := randomize.New(s.engine, args.Seed).Generate(selection.Memory{})
	token, err := share.Encode(res.State)
	if err != nil {
		return nil, nil, err
	}
	out := RandomizeResult{Record: res.State, Token: token}
	if base := s.store.Config.Assets.ShareBase; base != "" {
		out.Link = share.URL(base, token)
	}
	return nil, out, nil
}

// MigrateArgs defines input for trekicon_migrate.
type MigrateArgs struct {
	Record string `json:"record" jsonschema:"Character record as JSON"`
}

// MigrateResult is the output of trekicon_migrate.
type MigrateResult struct {
	FromVersion int    `json:"from_version"`
	ToVersion   int    `json:"to_version"`
	Record      string `json:"record"`
}

func (s *Server) handleMigrate(ctx context.Context, req *mcp.CallToolRequest, args MigrateArgs) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Record) == "" {
		return nil, nil, fmt.Errorf("record is required")
	}
	from := migrate.Version([]byte(args.Record))
	data, err := migrate.Migrate([]byte(args.Record))
	if err != nil {
		return nil, nil, err
	}
	return nil, MigrateResult{FromVersion: from, ToVersion: selection.SchemaVersion, Record: string(data)}, nil
}

// ShareArgs defines input for trekicon_share.
type ShareArgs struct {
	Record string `json:"record,omitempty" jsonschema:"Character record as JSON to encode"`
	Token  string `json:"token,omitempty" jsonschema:"Share token or link to decode"`
}

// ShareResult is the output of trekicon_share.
type ShareResult struct {
	Token  string           `json:"token,omitempty"`
	Link   string           `json:"link,omitempty"`
	Record *selection.State `json:"record,omitempty"`
}

func (s *Server) handleShare(ctx context.Context, req *mcp.CallToolRequest, args ShareArgs) (*mcp.CallToolResult, any, error) {
	switch {
	case args.Record != "" && args.Token != "":
		return nil, nil, fmt.Errorf("provide record or token, not both")
	case args.Token != "":
		st, err := share.Decode(args.Token)
		if err != nil {
			return nil, nil, err
		}
		return nil, ShareResult{Record: &st}, nil
	case args.Record != "":
		st, err := migrate.Decode([]byte(args.Record))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid record: %w", err)
		}
		token, err := share.Encode(st)
		if err != nil {
			return nil, nil, err
		}
		out := ShareResult{Token: token}
		if base := s.store.Config.Assets.ShareBase; base != "" {
			out.Link = share.URL(base, token)
		}
		return nil, out, nil
	}
	return nil, nil, fmt.Errorf("record or token is required")
}
