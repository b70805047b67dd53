package main

import (
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/kokistudios/trekicon/internal/catalog"
	"github.com/kokistudios/trekicon/internal/pipeline"
)

func TestDescribeMarkdown(t *testing.T) {
	cat := catalog.MustLoad()
	engine := pipeline.New(cat, pipeline.Config{Logger: log.New(io.Discard)})

	res, err := engine.Set(engine.Default().State, engine.Default().Memory, "species", "trill")
	if err != nil {
		t.Fatal(err)
	}
	md := describeMarkdown(cat, res)
	for _, want := range []string{"# Humanoid · Trill", "| Ears |", "**Species traits:** trill-spots", "--body-color"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "| Species |") {
		t.Error("species belongs in the title, not the table")
	}
}

func TestDescribeMarkdown_NonHumanoid(t *testing.T) {
	cat := catalog.MustLoad()
	engine := pipeline.New(cat, pipeline.Config{Logger: log.New(io.Discard)})
	def := engine.Default()

	res, err := engine.Set(def.State, def.Memory, "bodyShape", "exocomp")
	if err != nil {
		t.Fatal(err)
	}
	md := describeMarkdown(cat, res)
	if !strings.HasPrefix(md, "# Exocomp\n") {
		t.Errorf("title = %q", strings.SplitN(md, "\n", 2)[0])
	}
	if strings.Contains(md, "| Ears |") {
		t.Error("exocomps have no ears")
	}
}

func TestDescribeShort(t *testing.T) {
	cat := catalog.MustLoad()
	engine := pipeline.New(cat, pipeline.Config{Logger: log.New(io.Discard)})
	if got := describeShort(engine.Default().State); got != "humanoid (human)" {
		t.Errorf("describeShort = %q", got)
	}
}
