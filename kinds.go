package ciri

import (
	"context"
	"encoding/json"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"

	js "github.com/reoring/ciri/jsonschema"
)

// Kind is the type constraint of a field. Custom kinds plug into the same
// pipeline through Of.
type Kind interface {
	// Name is used in message templates ("string", "integer", ...).
	Name() string
	// Accepts is the type/shape predicate applied after the pre hooks.
	Accepts(v any) bool
	// IsEmpty reports whether v counts as empty for AllowEmpty(false).
	IsEmpty(v any) bool
	// Convert produces the output value for the call's mode. Returning a
	// *FieldValidationError rejects the value.
	Convert(ctx context.Context, c *Call, v any) (any, error)
	JSONSchema() (*js.Schema, error)
}

// ---------------- String ----------------

type stringKind struct{}

func (stringKind) Name() string { return "string" }

func (stringKind) Accepts(v any) bool {
	_, ok := v.(string)
	return ok
}

func (stringKind) IsEmpty(v any) bool { return v == "" }

func (stringKind) Convert(_ context.Context, _ *Call, v any) (any, error) { return v, nil }

func (stringKind) JSONSchema() (*js.Schema, error) { return &js.Schema{Type: "string"}, nil }

// ---------------- Integer ----------------

type integerKind struct{}

func (integerKind) Name() string { return "integer" }

func (integerKind) Accepts(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case json.Number:
		_, err := strconv.ParseInt(string(n), 10, 64)
		return err == nil
	default:
		return false
	}
}

func (integerKind) IsEmpty(any) bool { return false }

// Convert keeps native integers as they are and turns json.Number (decoded
// documents) into int64.
func (integerKind) Convert(_ context.Context, c *Call, v any) (any, error) {
	if n, ok := v.(json.Number); ok {
		i, err := strconv.ParseInt(string(n), 10, 64)
		if err != nil {
			return nil, Reject(c.field, KeyInvalid)
		}
		return i, nil
	}
	return v, nil
}

func (integerKind) JSONSchema() (*js.Schema, error) { return &js.Schema{Type: "integer"}, nil }

// ---------------- Boolean ----------------

type booleanKind struct{}

func (booleanKind) Name() string { return "boolean" }

func (booleanKind) Accepts(v any) bool {
	_, ok := v.(bool)
	return ok
}

func (booleanKind) IsEmpty(any) bool { return false }

func (booleanKind) Convert(_ context.Context, _ *Call, v any) (any, error) { return v, nil }

func (booleanKind) JSONSchema() (*js.Schema, error) { return &js.Schema{Type: "boolean"}, nil }

// ---------------- Dict ----------------

type dictKind struct{}

func (dictKind) Name() string { return "mapping" }

// Accepts any map keyed by strings, including named map types.
func (dictKind) Accepts(v any) bool { return isStringMap(v) }

func (dictKind) IsEmpty(v any) bool { return reflect.ValueOf(v).Len() == 0 }

func (dictKind) Convert(_ context.Context, c *Call, v any) (any, error) {
	m, ok := toStringMap(v)
	if !ok {
		return nil, Reject(c.field, KeyInvalid)
	}
	return m, nil
}

func (dictKind) JSONSchema() (*js.Schema, error) { return &js.Schema{Type: "object"}, nil }

// ---------------- List ----------------

type listKind struct {
	inner *Field
}

func (listKind) Name() string { return "list" }

func (listKind) Accepts(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	default:
		return false
	}
}

func (listKind) IsEmpty(v any) bool { return reflect.ValueOf(v).Len() == 0 }

// Convert runs every element through the inner field's pipeline. Element
// failures are reported under their index.
func (k listKind) Convert(ctx context.Context, c *Call, v any) (any, error) {
	if !k.Accepts(v) {
		return nil, Reject(c.field, KeyInvalid)
	}
	rv := reflect.ValueOf(v)
	out := make([]any, 0, rv.Len())
	var errs ErrorMap
	for i := 0; i < rv.Len(); i++ {
		ev, err := c.child(k.inner, c.path.index(i)).run(ctx, rv.Index(i).Interface())
		if err != nil {
			fe, ferr := foldFieldError(k.inner, err)
			if ferr != nil {
				return nil, ferr
			}
			if errs == nil {
				errs = ErrorMap{}
			}
			errs[strconv.Itoa(i)] = fe.entry()
			if IsHaltOnError(ctx) {
				break
			}
			continue
		}
		out = append(out, ev)
	}
	if len(errs) > 0 {
		fe := NewFieldError(c.field, KeyInvalid)
		fe.Errors = errs
		return nil, &FieldValidationError{FieldError: fe}
	}
	return out, nil
}

func (k listKind) JSONSchema() (*js.Schema, error) {
	items, err := k.inner.jsonSchema()
	if err != nil {
		return nil, err
	}
	return &js.Schema{Type: "array", Items: items}, nil
}

// ---------------- Nested ----------------

type nestedKind struct {
	def *Definition
}

func (k nestedKind) Name() string { return k.def.name }

// Accepts instances of the nested definition (or one extending it) and
// string-keyed maps.
func (k nestedKind) Accepts(v any) bool {
	if s, ok := v.(*Schema); ok {
		return s != nil && s.def.IsA(k.def)
	}
	return isStringMap(v)
}

func (k nestedKind) IsEmpty(v any) bool {
	if s, ok := v.(*Schema); ok {
		return len(s.attrs) == 0
	}
	return reflect.ValueOf(v).Len() == 0
}

// Convert delegates to the nested schema. An instance is processed from its
// own attributes; a map is processed by a fresh instance.
func (k nestedKind) Convert(ctx context.Context, c *Call, v any) (any, error) {
	sub, ok := v.(*Schema)
	var data map[string]any
	if !ok {
		if data, ok = toStringMap(v); !ok {
			return nil, Reject(c.field, KeyInvalid)
		}
		sub = k.def.New(nil)
	} else if sub == nil {
		return nil, Reject(c.field, KeyInvalid)
	}
	out, err := sub.run(ctx, data, c.mode)
	c.mergeWarnings(sub.Warnings())
	if err != nil {
		errs, ok := ErrorsOf(err)
		if !ok {
			return nil, err
		}
		fe := NewFieldError(c.field, KeyInvalid)
		fe.Errors = errs
		return nil, &FieldValidationError{FieldError: fe}
	}
	switch c.mode {
	case ModeDeserialize:
		inst := sub.def.New(out)
		inst.config = sub.config
		return inst, nil
	case ModeValidate:
		return v, nil
	default:
		return out, nil
	}
}

func (k nestedKind) JSONSchema() (*js.Schema, error) { return k.def.JSONSchema() }

// ---------------- UUID ----------------

type uuidKind struct{}

func (uuidKind) Name() string { return "uuid" }

func (uuidKind) Accepts(v any) bool {
	switch t := v.(type) {
	case uuid.UUID:
		return true
	case string:
		_, err := uuid.Parse(t)
		return err == nil
	default:
		return false
	}
}

func (uuidKind) IsEmpty(v any) bool {
	if u, ok := v.(uuid.UUID); ok {
		return u == uuid.Nil
	}
	return v == uuid.Nil.String()
}

// Convert emits the canonical string form when serializing and a uuid.UUID
// when deserializing.
func (uuidKind) Convert(_ context.Context, c *Call, v any) (any, error) {
	var u uuid.UUID
	switch t := v.(type) {
	case uuid.UUID:
		u = t
	case string:
		p, err := uuid.Parse(t)
		if err != nil {
			return nil, Reject(c.field, KeyInvalid)
		}
		u = p
	default:
		return nil, Reject(c.field, KeyInvalid)
	}
	if c.mode == ModeDeserialize {
		return u, nil
	}
	return u.String(), nil
}

func (uuidKind) JSONSchema() (*js.Schema, error) {
	return &js.Schema{Type: "string", Format: "uuid"}, nil
}

// ---------------- DateTime ----------------

type dateTimeKind struct{}

func (dateTimeKind) Name() string { return "datetime" }

func (dateTimeKind) Accepts(v any) bool {
	switch t := v.(type) {
	case time.Time:
		return true
	case string:
		_, err := parseRFC3339(t)
		return err == nil
	default:
		return false
	}
}

func (dateTimeKind) IsEmpty(v any) bool {
	t, ok := v.(time.Time)
	return ok && t.IsZero()
}

// Convert emits canonical RFC 3339 (UTC, trailing zeros trimmed) when
// serializing and a time.Time when deserializing.
func (dateTimeKind) Convert(_ context.Context, c *Call, v any) (any, error) {
	var t time.Time
	switch x := v.(type) {
	case time.Time:
		t = x
	case string:
		p, err := parseRFC3339(x)
		if err != nil {
			return nil, Reject(c.field, KeyInvalid)
		}
		t = p
	default:
		return nil, Reject(c.field, KeyInvalid)
	}
	if c.mode == ModeDeserialize {
		return t, nil
	}
	return t.UTC().Format(time.RFC3339Nano), nil
}

func (dateTimeKind) JSONSchema() (*js.Schema, error) {
	return &js.Schema{Type: "string", Format: "date-time"}, nil
}

func parseRFC3339(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		if t2, err2 := time.Parse(time.RFC3339, s); err2 == nil {
			return t2, nil
		}
		return time.Time{}, err
	}
	return t, nil
}

// ---- helpers ----

func isStringMap(v any) bool {
	if v == nil {
		return false
	}
	t := reflect.TypeOf(v)
	return t.Kind() == reflect.Map && t.Key().Kind() == reflect.String
}

// toStringMap copies any string-keyed map into a map[string]any.
func toStringMap(v any) (map[string]any, bool) {
	if !isStringMap(v) {
		return nil, false
	}
	if m, ok := v.(map[string]any); ok {
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}
