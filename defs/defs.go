// Package defs compiles declarative definition files (YAML or JSON) into
// ciri definitions held by a registry.
//
// A file declares file-wide options and a set of named schemas. Schemas may
// extend each other and reference each other as nested fields; they are built
// in dependency order. Hooks are expr-lang expressions evaluated with
// `value`, `field`, `attrs` and `schema` in scope:
//
//	schemas:
//	  Person:
//	    fields:
//	      name:
//	        type: string
//	        required: true
//	        pre_validate: [{check: "value != 'fiona'"}]
//	        post_serialize: [{transform: "upper(value)"}]
package defs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/reoring/ciri"
	"github.com/reoring/ciri/document"
	"github.com/reoring/ciri/registry"
)

var (
	ErrInvalid          = errors.New("defs: invalid definition")
	ErrUnknownReference = errors.New("defs: unknown schema reference")
	ErrCycle            = errors.New("defs: schema reference cycle")
)

// Parse reads a definition file. Unknown keys are rejected at every level.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrInvalid)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return &f, nil
}

// ParseFile is Parse over a file path.
func ParseFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	f, err := Parse(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Load parses r and compiles every schema into a fresh registry.
func Load(r io.Reader) (*registry.Registry, error) {
	f, err := Parse(r)
	if err != nil {
		return nil, err
	}
	reg := registry.New()
	if err := f.Compile(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// LoadFile is Load over a file path.
func LoadFile(path string) (*registry.Registry, error) {
	f, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	reg := registry.New()
	if err := f.Compile(reg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// Compile builds the file's schemas into reg. References that the file does
// not declare are resolved against definitions already in reg.
func (f *File) Compile(reg *registry.Registry) error {
	order, err := f.buildOrder(reg)
	if err != nil {
		return err
	}
	for _, name := range order {
		def, err := f.build(name, f.Schemas[name], reg)
		if err != nil {
			return fmt.Errorf("schema %q: %w", name, err)
		}
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// buildOrder sorts the declared schemas so that every schema comes after the
// schemas it extends or nests.
func (f *File) buildOrder(reg *registry.Registry) ([]string, error) {
	names := make([]string, 0, len(f.Schemas))
	for name := range f.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(names))
	order := make([]string, 0, len(names))
	var stack []string
	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: %s -> %s", ErrCycle, strings.Join(stack, " -> "), name)
		}
		state[name] = visiting
		stack = append(stack, name)
		for _, dep := range f.Schemas[name].references() {
			if _, local := f.Schemas[dep]; local {
				if err := visit(dep); err != nil {
					return err
				}
				continue
			}
			if _, err := reg.Lookup(dep); err != nil {
				return fmt.Errorf("%w: %q referenced by %q", ErrUnknownReference, dep, name)
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		order = append(order, name)
		return nil
	}
	for _, name := range names {
		if f.Schemas[name] == nil {
			return nil, fmt.Errorf("%w: schema %q is empty", ErrInvalid, name)
		}
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// references lists the schema names s depends on, sorted.
func (s *SchemaSpec) references() []string {
	set := map[string]struct{}{}
	if s.Extends != "" {
		set[s.Extends] = struct{}{}
	}
	for _, nf := range s.Fields {
		for fs := nf.Spec; fs != nil; fs = fs.Items {
			if fs.Schema != "" {
				set[fs.Schema] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (f *File) build(name string, s *SchemaSpec, reg *registry.Registry) (*ciri.Definition, error) {
	var b *ciri.DefinitionBuilder
	var base ciri.SchemaOptions
	setOpts := false
	if s.Extends != "" {
		parent, err := reg.Lookup(s.Extends)
		if err != nil {
			return nil, err
		}
		b = ciri.Extend(parent, name)
		base = parent.Options()
	} else {
		b = ciri.Define(name)
		base = ciri.DefaultOptions()
		if f.Options != nil {
			o, err := applyOptions(base, f.Options)
			if err != nil {
				return nil, err
			}
			base, setOpts = o, true
		}
	}
	if s.Options != nil {
		o, err := applyOptions(base, s.Options)
		if err != nil {
			return nil, err
		}
		base, setOpts = o, true
	}
	if setOpts {
		b.Options(base)
	}

	methods := make([]string, 0, len(s.Methods))
	for m := range s.Methods {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	for _, m := range methods {
		h := s.Methods[m]
		if h.Method != "" {
			return nil, fmt.Errorf("%w: method %q cannot refer to another method", ErrInvalid, m)
		}
		fn, err := compileExpr(h)
		if err != nil {
			return nil, fmt.Errorf("method %q: %w", m, err)
		}
		b.Method(m, fn)
	}

	for _, nf := range s.Fields {
		fld, err := buildField(nf.Spec, reg)
		if err != nil {
			return nil, fmt.Errorf("field %q (line %d): %w", nf.Attr, nf.Line, err)
		}
		b.Field(nf.Attr, fld)
	}
	return b.Build()
}

func applyOptions(base ciri.SchemaOptions, o *OptionsSpec) (ciri.SchemaOptions, error) {
	if o.AllowNone != nil {
		base.AllowNone = *o.AllowNone
	}
	if o.Unknown != "" {
		p, err := ciri.ParseUnknownPolicy(o.Unknown)
		if err != nil {
			return base, err
		}
		base.Unknown = p
	}
	return base, nil
}

func buildField(fs *FieldSpec, reg *registry.Registry) (*ciri.Field, error) {
	if fs == nil {
		return nil, fmt.Errorf("%w: empty field", ErrInvalid)
	}
	if fs.Items != nil && fs.Type != "list" {
		return nil, fmt.Errorf("%w: items only apply to lists", ErrInvalid)
	}
	if fs.Schema != "" && fs.Type != "schema" {
		return nil, fmt.Errorf("%w: schema only applies to nested schemas", ErrInvalid)
	}

	var fld *ciri.Field
	switch fs.Type {
	case "string":
		fld = ciri.String()
	case "integer", "int":
		fld = ciri.Integer()
	case "boolean", "bool":
		fld = ciri.Boolean()
	case "dict", "mapping":
		fld = ciri.Dict()
	case "uuid":
		fld = ciri.UUID()
	case "datetime":
		fld = ciri.DateTime()
	case "list":
		if fs.Items == nil {
			return nil, fmt.Errorf("%w: list without items", ErrInvalid)
		}
		inner, err := buildField(fs.Items, reg)
		if err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
		fld = ciri.List(inner)
	case "schema":
		if fs.Schema == "" {
			return nil, fmt.Errorf("%w: nested field without schema", ErrInvalid)
		}
		def, err := reg.Lookup(fs.Schema)
		if err != nil {
			return nil, err
		}
		fld = ciri.Nested(def)
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrInvalid)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalid, fs.Type)
	}

	if fs.Required {
		fld.Required()
	}
	if fs.AllowNone != nil {
		fld.AllowNone(*fs.AllowNone)
	}
	if fs.AllowEmpty != nil {
		fld.AllowEmpty(*fs.AllowEmpty)
	}
	if fs.Name != "" {
		fld.Name(fs.Name)
	}
	if fs.Default != nil {
		v, err := document.FromYAMLNode(fs.Default)
		if err != nil {
			return nil, err
		}
		fld.Default(v)
	}
	for k, t := range fs.Messages {
		fld.Message(k, t)
	}

	stages := []struct {
		specs []HookSpec
		add   func(...ciri.Hook) *ciri.Field
	}{
		{fs.PreValidate, fld.PreValidate},
		{fs.PostValidate, fld.PostValidate},
		{fs.PreSerialize, fld.PreSerialize},
		{fs.PostSerialize, fld.PostSerialize},
		{fs.PreDeserialize, fld.PreDeserialize},
		{fs.PostDeserialize, fld.PostDeserialize},
	}
	for _, st := range stages {
		for _, hs := range st.specs {
			h, err := compileHook(hs)
			if err != nil {
				return nil, err
			}
			st.add(h)
		}
	}
	return fld, nil
}
