package ciri

import (
	"fmt"
	"sort"

	js "github.com/reoring/ciri/jsonschema"
)

// Definition is a built, immutable schema declaration: an ordered set of
// named fields plus the method table used by Method hooks. Definitions are
// safe to share between goroutines; instances (Schema) are not.
type Definition struct {
	name    string
	parent  *Definition
	fields  []declared
	index   map[string]int
	methods map[string]HookFunc
	options *SchemaOptions
	built   bool
}

type declared struct {
	attr  string
	field *Field
}

// DefinitionBuilder collects declarations until Build.
type DefinitionBuilder struct {
	name    string
	parent  *Definition
	fields  []declared
	methods map[string]HookFunc
	options *SchemaOptions
}

// Define starts a definition without a parent.
func Define(name string) *DefinitionBuilder {
	return &DefinitionBuilder{name: name, methods: map[string]HookFunc{}}
}

// Extend starts a definition that inherits parent's fields, methods and
// options. Redeclared fields replace the parent's in place.
func Extend(parent *Definition, name string) *DefinitionBuilder {
	b := Define(name)
	b.parent = parent
	return b
}

// Field declares attr. Declaring the same attr twice on one builder keeps the
// last declaration at the first position.
func (b *DefinitionBuilder) Field(attr string, f *Field) *DefinitionBuilder {
	b.fields = append(b.fields, declared{attr: attr, field: f})
	return b
}

// Method registers a named hook for Method(name) references.
func (b *DefinitionBuilder) Method(name string, fn HookFunc) *DefinitionBuilder {
	b.methods[name] = fn
	return b
}

// Options sets definition-level options, overriding inherited ones.
func (b *DefinitionBuilder) Options(o SchemaOptions) *DefinitionBuilder {
	b.options = &o
	return b
}

// Build validates the declarations and merges them with the parent's.
func (b *DefinitionBuilder) Build() (*Definition, error) {
	if b.parent != nil && !b.parent.built {
		return nil, fmt.Errorf("%w: parent of %q", ErrNotBuilt, b.name)
	}
	d := &Definition{
		name:    b.name,
		parent:  b.parent,
		index:   map[string]int{},
		methods: map[string]HookFunc{},
		options: b.options,
	}
	if b.parent != nil {
		d.fields = append(d.fields, b.parent.fields...)
		for k, i := range b.parent.index {
			d.index[k] = i
		}
		for k, fn := range b.parent.methods {
			d.methods[k] = fn
		}
		if d.options == nil {
			d.options = b.parent.options
		}
	}
	for k, fn := range b.methods {
		if fn == nil {
			return nil, fmt.Errorf("%w: method %q of %q is nil", ErrInvalidField, k, b.name)
		}
		d.methods[k] = fn
	}
	for _, decl := range b.fields {
		if decl.attr == "" {
			return nil, invalidField(decl.attr, "empty attribute name")
		}
		if err := decl.field.check(decl.attr); err != nil {
			return nil, err
		}
		nd := declared{attr: decl.attr, field: decl.field.clone()}
		if i, ok := d.index[decl.attr]; ok {
			d.fields[i] = nd
			continue
		}
		d.index[decl.attr] = len(d.fields)
		d.fields = append(d.fields, nd)
	}
	seen := map[string]string{}
	for _, decl := range d.fields {
		sn := decl.field.SerializedName(decl.attr)
		if other, dup := seen[sn]; dup {
			return nil, invalidField(decl.attr, fmt.Sprintf("serialized name %q already used by %q", sn, other))
		}
		seen[sn] = decl.attr
	}
	d.built = true
	return d, nil
}

// MustBuild is like Build but panics on error.
func (b *DefinitionBuilder) MustBuild() *Definition {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}
	return d
}

// Name returns the definition name.
func (d *Definition) Name() string { return d.name }

// Parent returns the definition this one extends, if any.
func (d *Definition) Parent() *Definition { return d.parent }

// Attrs returns the declared attribute names in declaration order.
func (d *Definition) Attrs() []string {
	out := make([]string, len(d.fields))
	for i, decl := range d.fields {
		out[i] = decl.attr
	}
	return out
}

// Lookup returns the field declared as attr.
func (d *Definition) Lookup(attr string) (*Field, bool) {
	i, ok := d.index[attr]
	if !ok {
		return nil, false
	}
	return d.fields[i].field, true
}

// Options returns the definition's effective options (own, inherited or the
// library defaults).
func (d *Definition) Options() SchemaOptions {
	if d.options != nil {
		return *d.options
	}
	return DefaultOptions()
}

// IsA reports whether d is other or extends it.
func (d *Definition) IsA(other *Definition) bool {
	for cur := d; cur != nil; cur = cur.parent {
		if cur == other {
			return true
		}
	}
	return false
}

// New creates an instance whose attributes are copied from attrs.
func (d *Definition) New(attrs map[string]any) *Schema {
	s := &Schema{def: d, attrs: make(map[string]any, len(attrs))}
	for k, v := range attrs {
		s.attrs[k] = v
	}
	return s
}

func (d *Definition) method(name string) (HookFunc, bool) {
	fn, ok := d.methods[name]
	return fn, ok
}

// JSONSchema projects the definition into a JSON Schema object keyed by
// serialized names.
func (d *Definition) JSONSchema() (*js.Schema, error) {
	props := make(map[string]*js.Schema, len(d.fields))
	var req []string
	opts := d.Options()
	for _, decl := range d.fields {
		ps, err := decl.field.jsonSchema()
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", d.name, decl.attr, err)
		}
		if decl.field.allowsNone(opts) {
			ps.Nullable = true
		}
		sn := decl.field.SerializedName(decl.attr)
		props[sn] = ps
		if decl.field.required {
			req = append(req, sn)
		}
	}
	sort.Strings(req)
	var additional any = true
	if opts.Unknown == UnknownStrict {
		additional = false
	}
	return &js.Schema{Type: "object", Title: d.name, Properties: props, Required: req, AdditionalProperties: additional}, nil
}

func (f *Field) jsonSchema() (*js.Schema, error) {
	s, err := f.kind.JSONSchema()
	if err != nil {
		return nil, err
	}
	if s == nil {
		s = &js.Schema{}
	}
	if f.def.set && f.def.fn == nil {
		s.Default = f.def.static
	}
	if !f.allowEmpty {
		one := 1
		switch s.Type {
		case "string":
			s.MinLength = &one
		case "array":
			s.MinItems = &one
		case "object":
			s.MinProperties = &one
		}
	}
	if f.allowNone != nil && *f.allowNone {
		s.Nullable = true
	}
	return s, nil
}

func invalidField(attr, reason string) error {
	return fmt.Errorf("%w: %q: %s", ErrInvalidField, attr, reason)
}

func unknownHook(schema, name string) error {
	return fmt.Errorf("%w: %q on %q", ErrUnknownHook, name, schema)
}
