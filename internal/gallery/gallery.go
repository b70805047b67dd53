// Package gallery keeps named characters in a SQLite database under the
// trekicon home. Records are stored as JSON and migrated on read, so saves
// from older builds remain loadable.
package gallery

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/kokistudios/trekicon/internal/migrate"
	"github.com/kokistudios/trekicon/internal/selection"
)

var ErrNotFound = errors.New("character not found")

// ErrInvalidName is returned for empty or whitespace-only names.
var ErrInvalidName = errors.New("invalid character name")

// Entry is one saved character.
type Entry struct {
	Name      string
	State     selection.State
	UpdatedAt time.Time
}

// Summary is the listing form of an Entry.
type Summary struct {
	Name      string
	BodyShape string
	Species   string
	UpdatedAt time.Time
}

// Gallery is a SQLite-backed character store.
type Gallery struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the gallery database at path.
func Open(path string) (*Gallery, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS characters (
		name TEXT PRIMARY KEY,
		body_shape TEXT NOT NULL,
		species TEXT NOT NULL DEFAULT '',
		payload BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create characters table: %w", err)
	}
	return &Gallery{db: db, path: path}, nil
}

// Path returns the database file path.
func (g *Gallery) Path() string {
	return g.path
}

// Close closes the database.
func (g *Gallery) Close() error {
	return g.db.Close()
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidName
	}
	return name, nil
}

// Put saves or replaces a character.
func (g *Gallery) Put(ctx context.Context, name string, st selection.State) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	st.Version = selection.SchemaVersion
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode character: %w", err)
	}
	_, err = g.db.ExecContext(ctx, `INSERT INTO characters (name, body_shape, species, payload, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			body_shape = excluded.body_shape,
			species = excluded.species,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		name, st.BodyShape, st.Species, payload, time.Now().UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("save character %s: %w", name, err)
	}
	return nil
}

// Get loads a character by name.
func (g *Gallery) Get(ctx context.Context, name string) (Entry, error) {
	name, err := cleanName(name)
	if err != nil {
		return Entry{}, err
	}
	var payload []byte
	var updated int64
	err = g.db.QueryRowContext(ctx, `SELECT payload, updated_at FROM characters WHERE name = ?`, name).Scan(&payload, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("load character %s: %w", name, err)
	}
	st, err := migrate.Decode(payload)
	if err != nil {
		return Entry{}, fmt.Errorf("decode character %s: %w", name, err)
	}
	return Entry{Name: name, State: st, UpdatedAt: time.Unix(0, updated).UTC()}, nil
}

// List returns every saved character, most recently updated first.
func (g *Gallery) List(ctx context.Context) ([]Summary, error) {
	rows, err := g.db.QueryContext(ctx, `SELECT name, body_shape, species, updated_at FROM characters ORDER BY updated_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Summary
	for rows.Next() {
		var s Summary
		var updated int64
		if err := rows.Scan(&s.Name, &s.BodyShape, &s.Species, &updated); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		s.UpdatedAt = time.Unix(0, updated).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes a character.
func (g *Gallery) Delete(ctx context.Context, name string) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	res, err := g.db.ExecContext(ctx, `DELETE FROM characters WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete character %s: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}
