// Package migrate normalizes saved and shared records written by older
// builds into the current selection schema. It works on raw JSON so that
// fields the current State no longer has can still be read.
package migrate

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/kokistudios/trekicon/internal/selection"
)

var ErrInvalid = errors.New("invalid record")

// ErrTooNew is returned for records written by a newer build.
var ErrTooNew = errors.New("record version is newer than this build")

// Renamed archetype values.
var archetypeRenames = map[string]string{
	"human":     "humanoid",
	"cetacean":  "cetaceous",
	"medusa":    "medusan",
	"calmirran": "cal-mirran",
	"qofuarian": "qofuari",
}

// Renamed species values.
var speciesRenames = map[string]string{
	"":            "custom",
	"none":        "custom",
	"unspecified": "custom",
}

// Renamed feature values across every multi list.
var featureRenames = map[string]string{
	"antennae": "andorian-antennae",
	"spots":    "trill-spots",
	"ridges":   "klingon-ridges-tng",
	"spoon":    "cardassian-spoon",
	"earring":  "bajoran-earring",
	"studs":    "stud-earrings",
}

// Renamed single values, by field.
var valueRenames = map[string]map[string]string{
	"hat":      {"helmet": "away-helmet"},
	"uniform":  {"ld": "lower-decks", "next-gen": "tng"},
	"eyewear":  {"geordi-visor": "visor"},
	"rearHair": {"pony": "ponytail"},
}

type step struct {
	from  int
	apply func([]byte) ([]byte, error)
}

var steps = []step{
	{from: 1, apply: v1ToV2},
	{from: 2, apply: v2ToV3},
}

// Version reads a record's schema version. Records without one are version 1.
func Version(data []byte) int {
	v := gjson.GetBytes(data, "version")
	if !v.Exists() || v.Int() < 1 {
		return 1
	}
	return int(v.Int())
}

// Migrate upgrades a raw record to the current schema version.
func Migrate(data []byte) ([]byte, error) {
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, ErrInvalid
	}
	v := Version(data)
	if v > selection.SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrTooNew, v)
	}
	out := data
	for _, s := range steps {
		if v > s.from {
			continue
		}
		var err error
		if out, err = s.apply(out); err != nil {
			return nil, fmt.Errorf("migrate from v%d: %w", s.from, err)
		}
		v = s.from + 1
	}
	return sjson.SetBytes(out, "version", selection.SchemaVersion)
}

// Decode migrates a raw record and decodes it into a State.
func Decode(data []byte) (selection.State, error) {
	migrated, err := Migrate(data)
	if err != nil {
		return selection.State{}, err
	}
	var st selection.State
	if err := json.Unmarshal(migrated, &st); err != nil {
		return selection.State{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return st, nil
}

// v1ToV2 renames archetypes and species and splits the combined feature list.
func v1ToV2(data []byte) ([]byte, error) {
	out, err := renameValue(data, "bodyShape", archetypeRenames)
	if err != nil {
		return nil, err
	}
	if gjson.GetBytes(out, "bodyShape").String() == "humanoid" {
		if out, err = renameValue(out, "species", speciesRenames); err != nil {
			return nil, err
		}
	}

	// The combined list is duplicated into both lists; reconciliation drops
	// whatever does not belong in each.
	features := gjson.GetBytes(out, "features")
	if features.IsArray() {
		values := stringsOf(features)
		for _, path := range []string{"headFeatures", "jewelry"} {
			if gjson.GetBytes(out, path).Exists() {
				continue
			}
			if out, err = sjson.SetBytes(out, path, values); err != nil {
				return nil, err
			}
		}
		if out, err = sjson.DeleteBytes(out, "features"); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// v2ToV3 applies value renames.
func v2ToV3(data []byte) ([]byte, error) {
	out := data
	var err error
	for _, path := range []string{"headFeatures", "jewelry"} {
		list := gjson.GetBytes(out, path)
		if !list.IsArray() {
			continue
		}
		values := stringsOf(list)
		for i, v := range values {
			if r, ok := featureRenames[v]; ok {
				values[i] = r
			}
		}
		if out, err = sjson.SetBytes(out, path, values); err != nil {
			return nil, err
		}
	}
	for field, renames := range valueRenames {
		if out, err = renameValue(out, field, renames); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func renameValue(data []byte, path string, renames map[string]string) ([]byte, error) {
	v := gjson.GetBytes(data, path)
	if v.Exists() && v.Type != gjson.String {
		return data, nil
	}
	// A missing field matches the "" rename, if there is one.
	to, ok := renames[v.String()]
	if !ok {
		return data, nil
	}
	return sjson.SetBytes(data, path, to)
}

func stringsOf(list gjson.Result) []string {
	out := []string{}
	list.ForEach(func(_, v gjson.Result) bool {
		if s := v.String(); s != "" {
			out = append(out, s)
		}
		return true
	})
	return out
}
