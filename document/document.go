// Package document decodes input documents (JSON, YAML, TOML) into the
// map[string]any shape schemas consume, and encodes results back to text.
//
// Decoders are strict about duplicate keys and keep numbers exact: JSON
// numbers stay json.Number, YAML and TOML integers become int64.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format names a document syntax.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	TOML Format = "toml"
)

var (
	ErrUnknownFormat = errors.New("document: unknown format")
	ErrNotObject     = errors.New("document: top-level value is not an object")
)

// ParseFormat accepts a format name ("json", "yaml"/"yml", "toml").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "toml":
		return TOML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatOf derives the format from a file extension.
func FormatOf(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %q has no extension", ErrUnknownFormat, path)
	}
	return ParseFormat(ext)
}

// Decode reads one document of format f. The top-level value must be an
// object.
func Decode(r io.Reader, f Format) (map[string]any, error) {
	switch f {
	case JSON:
		return DecodeJSON(r)
	case YAML:
		return DecodeYAML(r)
	case TOML:
		return DecodeTOML(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// DecodeBytes is Decode over a byte slice.
func DecodeBytes(b []byte, f Format) (map[string]any, error) {
	return Decode(bytes.NewReader(b), f)
}

// DecodeFile reads path, choosing the decoder from its extension. "-" reads
// JSON from stdin.
func DecodeFile(path string) (map[string]any, Format, error) {
	if path == "-" {
		m, err := DecodeJSON(os.Stdin)
		return m, JSON, err
	}
	f, err := FormatOf(path)
	if err != nil {
		return nil, "", err
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer fh.Close()
	m, err := Decode(fh, f)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return m, f, nil
}

// DuplicateKeyError reports a key repeated within one object. Line and Col
// are zero when the decoder has no positions (JSON).
type DuplicateKeyError struct {
	Path string
	Key  string
	Line int
	Col  int
}

func (e *DuplicateKeyError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("document: duplicate key %q at %s (%d:%d)", e.Key, e.Path, e.Line, e.Col)
	}
	return fmt.Sprintf("document: duplicate key %q at %s", e.Key, e.Path)
}

func asObject(v any) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotObject, v)
	}
	return m, nil
}
