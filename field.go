package ciri

import (
	"github.com/reoring/ciri/i18n"
)

// HookFunc is a pipeline hook. It returns the (possibly transformed) value, or
// a *FieldValidationError (see Reject) to refuse it. Any other error is treated
// as a programming fault and aborts the whole call.
type HookFunc func(s *Schema, f *Field, v any) (any, error)

// Validator is a legacy boolean predicate. Failing validators are reported as
// warnings and never fail a call.
type Validator func(s *Schema, f *Field, v any) bool

// DefaultFunc computes a default for an absent field.
type DefaultFunc func(s *Schema, f *Field) any

// Hook is either a free function or the name of a method registered on the
// owning Definition.
type Hook struct {
	fn     HookFunc
	method string
}

// Func wraps a free function as a Hook.
func Func(fn HookFunc) Hook { return Hook{fn: fn} }

// Method refers to a method registered with DefinitionBuilder.Method. It is
// resolved against the invoking schema when the field is processed.
func Method(name string) Hook { return Hook{method: name} }

func (h Hook) String() string {
	if h.method != "" {
		return "method:" + h.method
	}
	return "func"
}

func (h Hook) resolve(s *Schema) (HookFunc, error) {
	if h.fn != nil {
		return h.fn, nil
	}
	if fn, ok := s.def.method(h.method); ok {
		return fn, nil
	}
	return nil, unknownHook(s.def.name, h.method)
}

// Messages maps error keys to message templates.
type Messages map[string]string

// Get returns the template for key, falling back to the key itself.
func (m Messages) Get(key string) string {
	if msg, ok := m[key]; ok {
		return msg
	}
	return key
}

func defaultMessages(kind string) Messages {
	data := map[string]string{"kind": kind}
	if kind == "" {
		data = nil
	}
	return Messages{
		KeyRequired:  i18n.T(KeyRequired, data),
		KeyInvalid:   i18n.T(KeyInvalid, data),
		KeyUnknown:   i18n.T(KeyUnknown, data),
		KeyValidator: i18n.T(KeyValidator, data),
	}
}

type defaultValue struct {
	set    bool
	static any
	fn     DefaultFunc
}

func (d defaultValue) resolve(s *Schema, f *Field) any {
	if d.fn != nil {
		return d.fn(s, f)
	}
	return d.static
}

// Field declares one named slot of a schema. Fields are configured with
// chained setters and become read-only once their Definition is built.
type Field struct {
	kind       Kind
	required   bool
	allowNone  *bool
	allowEmpty bool
	def        defaultValue
	name       string
	messages   Messages
	validators []Validator

	preValidate     []Hook
	postValidate    []Hook
	preSerialize    []Hook
	postSerialize   []Hook
	preDeserialize  []Hook
	postDeserialize []Hook
}

// Of creates a field of a custom kind.
func Of(k Kind) *Field { return &Field{kind: k, allowEmpty: true} }

// String declares a string field.
func String() *Field { return Of(stringKind{}) }

// Integer declares an integer field.
func Integer() *Field { return Of(integerKind{}) }

// Boolean declares a boolean field.
func Boolean() *Field { return Of(booleanKind{}) }

// Dict declares a field holding a string-keyed map.
func Dict() *Field { return Of(dictKind{}) }

// List declares a sequence whose elements are processed by inner.
func List(inner *Field) *Field { return Of(listKind{inner: inner}) }

// Nested declares a field holding an instance of another schema.
func Nested(def *Definition) *Field { return Of(nestedKind{def: def}) }

// UUID declares a field holding a UUID in canonical string form.
func UUID() *Field { return Of(uuidKind{}) }

// DateTime accepts time.Time values and RFC 3339 strings.
func DateTime() *Field { return Of(dateTimeKind{}) }

// Required marks the field as required.
func (f *Field) Required() *Field { f.required = true; return f }

// AllowNone controls whether nil is accepted. When unset the schema options
// decide.
func (f *Field) AllowNone(v bool) *Field { f.allowNone = &v; return f }

// AllowEmpty controls whether empty strings and collections are accepted
// (default true).
func (f *Field) AllowEmpty(v bool) *Field { f.allowEmpty = v; return f }

// Default sets a static default for an absent field.
func (f *Field) Default(v any) *Field { f.def = defaultValue{set: true, static: v}; return f }

// DefaultFunc sets a computed default for an absent field.
func (f *Field) DefaultFunc(fn DefaultFunc) *Field {
	f.def = defaultValue{set: true, fn: fn}
	return f
}

// Name sets the serialized name.
func (f *Field) Name(name string) *Field { f.name = name; return f }

// Message overrides the template for a message key.
func (f *Field) Message(key, template string) *Field {
	if f.messages == nil {
		f.messages = Messages{}
	}
	f.messages[key] = template
	return f
}

// Validators appends legacy predicates.
func (f *Field) Validators(vs ...Validator) *Field {
	f.validators = append(f.validators, vs...)
	return f
}

// PreValidate appends hooks that run before the type check, in every mode.
func (f *Field) PreValidate(hs ...Hook) *Field {
	f.preValidate = append(f.preValidate, hs...)
	return f
}

// PostValidate appends hooks that run after the type and empty checks, in every mode.
func (f *Field) PostValidate(hs ...Hook) *Field {
	f.postValidate = append(f.postValidate, hs...)
	return f
}

// PreSerialize appends hooks that run before the kind's conversion when serializing.
func (f *Field) PreSerialize(hs ...Hook) *Field {
	f.preSerialize = append(f.preSerialize, hs...)
	return f
}

// PostSerialize appends hooks that run on the converted value when serializing.
func (f *Field) PostSerialize(hs ...Hook) *Field {
	f.postSerialize = append(f.postSerialize, hs...)
	return f
}

// PreDeserialize appends hooks that run first when deserializing, before the PreValidate hooks.
func (f *Field) PreDeserialize(hs ...Hook) *Field {
	f.preDeserialize = append(f.preDeserialize, hs...)
	return f
}

// PostDeserialize appends hooks that run on the converted value when deserializing.
func (f *Field) PostDeserialize(hs ...Hook) *Field {
	f.postDeserialize = append(f.postDeserialize, hs...)
	return f
}

// Kind returns the field's type constraint.
func (f *Field) Kind() Kind { return f.kind }

// IsRequired reports whether the field is required.
func (f *Field) IsRequired() bool { return f.required }

// HasDefault reports whether a static or computed default is declared.
func (f *Field) HasDefault() bool { return f.def.set }

// SerializedName returns the external key for a field declared as attr.
func (f *Field) SerializedName(attr string) string {
	if f.name != "" {
		return f.name
	}
	return attr
}

// Messages returns the effective templates: per-field overrides on top of the
// current translator's defaults for the field kind.
func (f *Field) Messages() Messages {
	kind := ""
	if f.kind != nil {
		kind = f.kind.Name()
	}
	m := defaultMessages(kind)
	for k, v := range f.messages {
		m[k] = v
	}
	return m
}

func (f *Field) allowsNone(opts SchemaOptions) bool {
	if f.allowNone != nil {
		return *f.allowNone
	}
	return opts.AllowNone
}

// clone copies the declaration so that later builder calls on the original do
// not leak into a built Definition.
func (f *Field) clone() *Field {
	c := *f
	if f.allowNone != nil {
		v := *f.allowNone
		c.allowNone = &v
	}
	if f.messages != nil {
		c.messages = make(Messages, len(f.messages))
		for k, v := range f.messages {
			c.messages[k] = v
		}
	}
	c.validators = append([]Validator(nil), f.validators...)
	c.preValidate = append([]Hook(nil), f.preValidate...)
	c.postValidate = append([]Hook(nil), f.postValidate...)
	c.preSerialize = append([]Hook(nil), f.preSerialize...)
	c.postSerialize = append([]Hook(nil), f.postSerialize...)
	c.preDeserialize = append([]Hook(nil), f.preDeserialize...)
	c.postDeserialize = append([]Hook(nil), f.postDeserialize...)
	if lk, ok := f.kind.(listKind); ok && lk.inner != nil {
		c.kind = listKind{inner: lk.inner.clone()}
	}
	return &c
}

// check reports declaration faults (missing kind, nil list element, ...).
func (f *Field) check(attr string) error {
	if f == nil || f.kind == nil {
		return invalidField(attr, "missing kind")
	}
	switch k := f.kind.(type) {
	case listKind:
		if k.inner == nil {
			return invalidField(attr, "list without element field")
		}
		return k.inner.check(attr + "[]")
	case nestedKind:
		if k.def == nil {
			return invalidField(attr, "nested schema without definition")
		}
		if !k.def.built {
			return invalidField(attr, ErrNotBuilt.Error())
		}
	}
	for _, hs := range [][]Hook{f.preValidate, f.postValidate, f.preSerialize, f.postSerialize, f.preDeserialize, f.postDeserialize} {
		for _, h := range hs {
			if h.fn == nil && h.method == "" {
				return invalidField(attr, "empty hook")
			}
		}
	}
	return nil
}
