package document

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	j "github.com/goccy/go-json"

	"github.com/reoring/ciri/internal/pointer"
)

// DecodeJSON reads a single JSON object. Numbers are kept as json.Number and
// duplicate keys are rejected.
func DecodeJSON(r io.Reader) (map[string]any, error) {
	dec := j.NewDecoder(r)
	dec.UseNumber()
	v, err := readJSONValue(dec, "/")
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("document: empty JSON input: %w", io.ErrUnexpectedEOF)
		}
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("document: trailing data after JSON value")
	}
	return asObject(v)
}

func readJSONValue(dec *j.Decoder, path string) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch v := tok.(type) {
	case j.Delim:
		switch v {
		case '{':
			return readJSONObject(dec, path)
		case '[':
			return readJSONArray(dec, path)
		}
		return nil, fmt.Errorf("document: unexpected %q at %s", v, path)
	case j.Number:
		return v, nil
	case float64:
		// not produced with UseNumber; kept for decoders that ignore it
		return j.Number(strconv.FormatFloat(v, 'g', -1, 64)), nil
	default:
		return v, nil
	}
}

func readJSONObject(dec *j.Decoder, path string) (map[string]any, error) {
	out := map[string]any{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("document: expected object key at %s, got %v", path, tok)
		}
		p := pointer.Child(path, key)
		if _, dup := out[key]; dup {
			return nil, &DuplicateKeyError{Path: p, Key: key}
		}
		v, err := readJSONValue(dec, p)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func readJSONArray(dec *j.Decoder, path string) ([]any, error) {
	out := []any{}
	for i := 0; dec.More(); i++ {
		v, err := readJSONValue(dec, pointer.Child(path, strconv.Itoa(i)))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

// EncodeJSON writes v as indented JSON followed by a newline.
func EncodeJSON(w io.Writer, v any) error {
	b, err := j.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}
