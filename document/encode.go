package document

import (
	"encoding"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strconv"
)

// Encode writes v in format f.
func Encode(w io.Writer, v any, f Format) error {
	switch f {
	case JSON:
		return EncodeJSON(w, v)
	case YAML:
		return EncodeYAML(w, v)
	case TOML:
		return EncodeTOML(w, v)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Plain rewrites v into plain data: json.Number becomes int64 or float64,
// text marshalers become strings, and any string-keyed map or slice is copied
// into map[string]any / []any.
func Plain(v any) any {
	switch t := v.(type) {
	case nil, string, bool, int64, float64:
		return v
	case json.Number:
		if i, err := strconv.ParseInt(string(t), 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(string(t), 64); err == nil {
			return f
		}
		return string(t)
	case encoding.TextMarshaler:
		b, err := t.MarshalText()
		if err != nil {
			return v
		}
		return string(b)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Plain(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Plain(e)
		}
		return out
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = Plain(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Plain(rv.Index(i).Interface())
		}
		return out
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return int64(rv.Uint())
	case reflect.Float32:
		return rv.Float()
	}
	return v
}
