package gallery

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/kokistudios/trekicon/internal/selection"
)

func openGallery(t *testing.T) *Gallery {
	t.Helper()
	g, err := Open(filepath.Join(t.TempDir(), "nested", "gallery.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestPutGet(t *testing.T) {
	g := openGallery(t)
	ctx := context.Background()
	st := selection.State{
		Version:      selection.SchemaVersion,
		BodyShape:    "humanoid",
		Species:      "bajoran",
		Ears:         "round",
		HeadFeatures: []string{"freckles"},
		Jewelry:      []string{"bajoran-earring"},
		Uniform:      "ds9",
		BodyColor:    "skin-2",
	}
	if err := g.Put(ctx, "  Kira ", st); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := g.Get(ctx, "Kira")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got.State, st) {
		t.Errorf("state = %+v\nwant %+v", got.State, st)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
}

func TestPut_Replaces(t *testing.T) {
	g := openGallery(t)
	ctx := context.Background()
	if err := g.Put(ctx, "odo", selection.State{BodyShape: "humanoid"}); err != nil {
		t.Fatal(err)
	}
	if err := g.Put(ctx, "odo", selection.State{BodyShape: "medusan"}); err != nil {
		t.Fatal(err)
	}
	got, err := g.Get(ctx, "odo")
	if err != nil {
		t.Fatal(err)
	}
	if got.State.BodyShape != "medusan" {
		t.Errorf("body shape = %s", got.State.BodyShape)
	}
	list, err := g.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("list = %+v", list)
	}
}

func TestList(t *testing.T) {
	g := openGallery(t)
	ctx := context.Background()
	if list, err := g.List(ctx); err != nil || len(list) != 0 {
		t.Fatalf("empty list = %v, %v", list, err)
	}
	g.Put(ctx, "first", selection.State{BodyShape: "humanoid", Species: "vulcan"})
	time.Sleep(2 * time.Millisecond)
	g.Put(ctx, "second", selection.State{BodyShape: "exocomp"})

	list, err := g.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("list = %+v", list)
	}
	if list[0].Name != "second" || list[1].Name != "first" {
		t.Errorf("order = %s, %s", list[0].Name, list[1].Name)
	}
	if list[1].Species != "vulcan" || list[0].BodyShape != "exocomp" {
		t.Errorf("summaries = %+v", list)
	}
}

func TestDelete(t *testing.T) {
	g := openGallery(t)
	ctx := context.Background()
	g.Put(ctx, "data", selection.State{BodyShape: "humanoid"})
	if err := g.Delete(ctx, "data"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := g.Get(ctx, "data"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete err = %v", err)
	}
	if err := g.Delete(ctx, "data"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestInvalidName(t *testing.T) {
	g := openGallery(t)
	ctx := context.Background()
	if err := g.Put(ctx, "   ", selection.State{}); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Put err = %v", err)
	}
	if _, err := g.Get(ctx, ""); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Get err = %v", err)
	}
}

func TestGet_MigratesLegacyPayload(t *testing.T) {
	g := openGallery(t)
	ctx := context.Background()
	_, err := g.db.ExecContext(ctx, `INSERT INTO characters (name, body_shape, species, payload, updated_at) VALUES (?, ?, ?, ?, ?)`,
		"old", "human", "", []byte(`{"bodyShape":"human","features":["scar"]}`), time.Now().UnixNano())
	if err != nil {
		t.Fatal(err)
	}
	got, err := g.Get(ctx, "old")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State.BodyShape != "humanoid" || !reflect.DeepEqual(got.State.HeadFeatures, []string{"scar"}) {
		t.Errorf("not migrated: %+v", got.State)
	}
}
