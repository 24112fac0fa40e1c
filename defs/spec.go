package defs

import (
	"fmt"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is a parsed definition file.
type File struct {
	Options *OptionsSpec           `yaml:"options"`
	Schemas map[string]*SchemaSpec `yaml:"schemas"`
}

// OptionsSpec mirrors ciri.SchemaOptions. Unset entries are inherited.
type OptionsSpec struct {
	AllowNone *bool  `yaml:"allow_none"`
	Unknown   string `yaml:"unknown"`
}

// SchemaSpec declares one schema.
type SchemaSpec struct {
	Extends string              `yaml:"extends"`
	Options *OptionsSpec        `yaml:"options"`
	Methods map[string]HookSpec `yaml:"methods"`
	Fields  Fields              `yaml:"fields"`
}

// Fields keeps field declarations in document order.
type Fields []NamedField

// NamedField is one entry of a fields mapping.
type NamedField struct {
	Attr string
	Spec *FieldSpec
	Line int
}

// FieldSpec declares a field.
type FieldSpec struct {
	Type       string            `yaml:"type"`
	Required   bool              `yaml:"required"`
	AllowNone  *bool             `yaml:"allow_none"`
	AllowEmpty *bool             `yaml:"allow_empty"`
	Name       string            `yaml:"name"`
	Default    *yaml.Node        `yaml:"default"`
	Items      *FieldSpec        `yaml:"items"`
	Schema     string            `yaml:"schema"`
	Messages   map[string]string `yaml:"messages"`

	PreValidate     []HookSpec `yaml:"pre_validate"`
	PostValidate    []HookSpec `yaml:"post_validate"`
	PreSerialize    []HookSpec `yaml:"pre_serialize"`
	PostSerialize   []HookSpec `yaml:"post_serialize"`
	PreDeserialize  []HookSpec `yaml:"pre_deserialize"`
	PostDeserialize []HookSpec `yaml:"post_deserialize"`

	Line int `yaml:"-"`
}

// HookSpec is exactly one of an expression check, an expression transform
// or a reference to a schema method.
type HookSpec struct {
	Check     string `yaml:"check"`
	Transform string `yaml:"transform"`
	Method    string `yaml:"method"`
	// Message is the error key used when a check fails ("invalid" by default).
	Message string `yaml:"message"`
	// Text replaces the message template for this rejection.
	Text string `yaml:"text"`

	Line int `yaml:"-"`
}

func (fs *Fields) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: fields must be a mapping", n.Line)
	}
	seen := map[string]bool{}
	out := make(Fields, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if seen[k.Value] {
			return fmt.Errorf("line %d: field %q declared twice", k.Line, k.Value)
		}
		seen[k.Value] = true
		spec := &FieldSpec{}
		if err := v.Decode(spec); err != nil {
			return fmt.Errorf("field %q: %w", k.Value, err)
		}
		out = append(out, NamedField{Attr: k.Value, Spec: spec, Line: k.Line})
	}
	*fs = out
	return nil
}

func (f *FieldSpec) UnmarshalYAML(n *yaml.Node) error {
	type plain FieldSpec
	if err := knownKeys(n, reflect.TypeOf(plain{})); err != nil {
		return err
	}
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	// a null default is kept; only an absent key means "no default"
	p.Default = nil
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == "default" {
			p.Default = n.Content[i+1]
		}
	}
	p.Line = n.Line
	*f = FieldSpec(p)
	return nil
}

func (h *HookSpec) UnmarshalYAML(n *yaml.Node) error {
	type plain HookSpec
	if err := knownKeys(n, reflect.TypeOf(plain{})); err != nil {
		return err
	}
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	set := 0
	for _, s := range []string{p.Check, p.Transform, p.Method} {
		if s != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("line %d: hook needs exactly one of check, transform or method", n.Line)
	}
	if (p.Message != "" || p.Text != "") && p.Check == "" {
		return fmt.Errorf("line %d: message and text only apply to check hooks", n.Line)
	}
	p.Line = n.Line
	*h = HookSpec(p)
	return nil
}

func (o *OptionsSpec) UnmarshalYAML(n *yaml.Node) error {
	type plain OptionsSpec
	if err := knownKeys(n, reflect.TypeOf(plain{})); err != nil {
		return err
	}
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*o = OptionsSpec(p)
	return nil
}

// knownKeys rejects mapping keys without a matching yaml tag on t. Nodes
// decoded through custom unmarshalers do not inherit the decoder's
// KnownFields setting.
func knownKeys(n *yaml.Node, t reflect.Type) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", n.Line)
	}
	allowed := map[string]bool{}
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("yaml")
		if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
			allowed[name] = true
		}
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i]
		if !allowed[k.Value] {
			return fmt.Errorf("line %d: unknown key %q", k.Line, k.Value)
		}
	}
	return nil
}
