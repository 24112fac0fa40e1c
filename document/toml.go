package document

import (
	"io"

	"github.com/pelletier/go-toml/v2"
)

// DecodeTOML reads a TOML document. Tables become map[string]any and
// integers int64.
func DecodeTOML(r io.Reader) (map[string]any, error) {
	var m map[string]any
	if err := toml.NewDecoder(r).Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// EncodeTOML writes v as TOML. v must be an object; TOML has no null, so nil
// entries are dropped.
func EncodeTOML(w io.Writer, v any) error {
	p := Plain(v)
	if _, err := asObject(p); err != nil {
		return err
	}
	return toml.NewEncoder(w).Encode(dropNulls(p))
}

func dropNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			if e == nil {
				continue
			}
			out[k] = dropNulls(e)
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, e := range t {
			if e == nil {
				continue
			}
			out = append(out, dropNulls(e))
		}
		return out
	}
	return v
}
