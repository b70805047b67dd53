// Package share encodes a selection into a URL-safe token and back.
// Tokens are deflated JSON in unpadded base64url.
package share

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/kokistudios/trekicon/internal/migrate"
	"github.com/kokistudios/trekicon/internal/selection"
)

// MaxTokenLen bounds decoded input.
const MaxTokenLen = 8 << 10

// maxRecordLen bounds the inflated record.
const maxRecordLen = 64 << 10

var ErrBadToken = errors.New("invalid share token")

// Encode returns the share token for a state. The token always carries the
// current schema version.
func Encode(st selection.State) (string, error) {
	st.Version = selection.SchemaVersion
	raw, err := json.Marshal(st)
	if err != nil {
		return "", fmt.Errorf("encode state: %w", err)
	}
	var buf bytes.Buffer
	zw, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", fmt.Errorf("compress state: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		return "", fmt.Errorf("compress state: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode parses a share token, accepting either the bare token or a URL whose
// last path segment or "c" query parameter carries it. Older records are
// migrated.
func Decode(token string) (selection.State, error) {
	token = extract(token)
	if token == "" || len(token) > MaxTokenLen {
		return selection.State{}, ErrBadToken
	}
	compressed, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return selection.State{}, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	zr := flate.NewReader(bytes.NewReader(compressed))
	defer zr.Close()
	raw, err := io.ReadAll(io.LimitReader(zr, maxRecordLen+1))
	if err != nil {
		return selection.State{}, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	if len(raw) > maxRecordLen {
		return selection.State{}, fmt.Errorf("%w: record too large", ErrBadToken)
	}
	st, err := migrate.Decode(raw)
	if err != nil {
		return selection.State{}, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	return st, nil
}

// URL joins a base share URL and a token.
func URL(base, token string) string {
	if base == "" {
		return token
	}
	return strings.TrimSuffix(base, "/") + "/?c=" + token
}

func extract(s string) string {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "/?") {
		return s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	if c := u.Query().Get("c"); c != "" {
		return c
	}
	return path.Base(strings.TrimSuffix(u.Path, "/"))
}
