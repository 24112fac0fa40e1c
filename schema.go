package ciri

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
)

// Schema is an instance of a Definition. It holds attribute values for
// Serialize/Validate without explicit data and the state of the latest call.
//
// A Schema is not safe for concurrent use: every call resets Errors,
// RawErrors and Warnings.
type Schema struct {
	def    *Definition
	attrs  map[string]any
	config *SchemaOptions
	state  callState
}

// callState is rebuilt at the start of every call.
type callState struct {
	errors   ErrorMap
	raw      map[string]*FieldError
	warnings Issues
}

// New creates an instance of def with the given attributes.
func New(def *Definition, attrs map[string]any) *Schema { return def.New(attrs) }

// Definition returns the instance's definition.
func (s *Schema) Definition() *Definition { return s.def }

// Get returns an attribute value.
func (s *Schema) Get(attr string) (any, bool) {
	v, ok := s.attrs[attr]
	return v, ok
}

// Set assigns an attribute value.
func (s *Schema) Set(attr string, v any) *Schema {
	s.attrs[attr] = v
	return s
}

// Attrs returns a copy of the attribute values.
func (s *Schema) Attrs() map[string]any {
	out := make(map[string]any, len(s.attrs))
	for k, v := range s.attrs {
		out[k] = v
	}
	return out
}

// Config applies per-instance settings. They take precedence over the
// definition's options for subsequent calls.
func (s *Schema) Config(c Config) *Schema {
	if c.Options != nil {
		o := *c.Options
		s.config = &o
	}
	return s
}

// Options returns the effective options: Config, then the definition, then
// the library defaults.
func (s *Schema) Options() SchemaOptions {
	if s.config != nil {
		return *s.config
	}
	return s.def.Options()
}

// Errors returns the error map of the latest call (empty on success).
func (s *Schema) Errors() ErrorMap {
	if s.state.errors == nil {
		return ErrorMap{}
	}
	return s.state.errors
}

// RawErrors returns the FieldErrors of the latest call keyed by attribute
// name (or input key for unknown keys).
func (s *Schema) RawErrors() map[string]*FieldError {
	if s.state.raw == nil {
		return map[string]*FieldError{}
	}
	return s.state.raw
}

// Warnings returns advisory issues of the latest call (failing legacy
// validators).
func (s *Schema) Warnings() Issues { return s.state.warnings }

// Serialize validates data and returns it keyed by serialized names. A nil
// data map serializes the instance attributes.
func (s *Schema) Serialize(ctx context.Context, data map[string]any, opts ...CallOpt) (map[string]any, error) {
	if s == nil || s.def == nil {
		return nil, ErrNilSchema
	}
	return s.run(applyCallOpts(ctx, opts), data, ModeSerialize)
}

// Validate runs the validation pipeline over data (or the instance
// attributes when data is nil) and discards the output.
func (s *Schema) Validate(ctx context.Context, data map[string]any, opts ...CallOpt) error {
	if s == nil || s.def == nil {
		return ErrNilSchema
	}
	_, err := s.run(applyCallOpts(ctx, opts), data, ModeValidate)
	return err
}

// Deserialize reads data keyed by serialized names and returns a new
// instance whose attributes hold the deserialized values. Nested schemas are
// deserialized into *Schema values.
func (s *Schema) Deserialize(ctx context.Context, data map[string]any, opts ...CallOpt) (*Schema, error) {
	if s == nil || s.def == nil {
		return nil, ErrNilSchema
	}
	out, err := s.run(applyCallOpts(ctx, opts), data, ModeDeserialize)
	if err != nil {
		return nil, err
	}
	inst := s.def.New(out)
	inst.config = s.config
	return inst, nil
}

// run is the orchestration shared by all entry points. Field errors are
// aggregated (or halt the pass); faults are returned as is.
func (s *Schema) run(ctx context.Context, data map[string]any, mode Mode) (map[string]any, error) {
	s.state = callState{}
	log := zerolog.Ctx(ctx)
	halt := IsHaltOnError(ctx)
	opts := s.Options()

	src := data
	fromAttrs := data == nil
	if fromAttrs {
		src = s.attrs
	}

	out := make(map[string]any, len(s.def.fields))
	known := make(map[string]struct{}, len(s.def.fields))
	var root fieldPath
	for _, decl := range s.def.fields {
		inKey, outKey := decl.attr, decl.attr
		switch {
		case mode == ModeSerialize:
			outKey = decl.field.SerializedName(decl.attr)
		case mode == ModeDeserialize && !fromAttrs:
			inKey = decl.field.SerializedName(decl.attr)
		}
		known[inKey] = struct{}{}

		raw, present := src[inKey]
		c := &Call{schema: s, field: decl.field, mode: mode, path: root.key(decl.attr), opts: opts}
		v, emit, err := c.resolve(ctx, raw, present)
		if err != nil {
			fe, fault := foldFieldError(decl.field, err)
			if fault != nil {
				log.Debug().Err(fault).Str("schema", s.def.name).Str("field", decl.attr).Msg("ciri: field fault")
				return nil, fault
			}
			fe.Name = decl.attr
			s.record(decl.attr, fe)
			log.Debug().Str("schema", s.def.name).Str("field", decl.attr).Str("key", fe.Key).Msg("ciri: field rejected")
			if halt {
				log.Debug().Str("schema", s.def.name).Msg("ciri: halting on first error")
				break
			}
			continue
		}
		if emit {
			out[outKey] = v
		}
	}

	if !fromAttrs && opts.Unknown == UnknownStrict && !(halt && len(s.state.errors) > 0) {
		s.checkUnknown(src, known, halt)
	}

	log.Debug().Str("schema", s.def.name).Stringer("mode", mode).Int("errors", len(s.state.errors)).Int("warnings", len(s.state.warnings)).Msg("ciri: call finished")
	if len(s.state.errors) > 0 {
		if mode == ModeDeserialize {
			return nil, &SerializationError{Errors: s.state.errors}
		}
		return nil, &ValidationError{Errors: s.state.errors}
	}
	return out, nil
}

func (s *Schema) checkUnknown(src map[string]any, known map[string]struct{}, halt bool) {
	var uks []string
	for k := range src {
		if _, ok := known[k]; !ok {
			uks = append(uks, k)
		}
	}
	sort.Strings(uks)
	for _, k := range uks {
		fe := NewFieldError(nil, KeyUnknown)
		fe.Name = k
		s.record(k, fe)
		if halt {
			return
		}
	}
}

func (s *Schema) record(name string, fe *FieldError) {
	if s.state.errors == nil {
		s.state.errors = ErrorMap{}
		s.state.raw = map[string]*FieldError{}
	}
	s.state.errors[name] = fe.entry()
	s.state.raw[name] = fe
}
