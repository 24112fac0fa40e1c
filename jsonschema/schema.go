package jsonschema

// Schema is a minimal JSON Schema representation used for export.
type Schema struct {
	// Core
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Format   string `json:"format,omitempty" yaml:"format,omitempty"`
	Default  any    `json:"default,omitempty" yaml:"default,omitempty"`
	Nullable bool   `json:"nullable,omitempty" yaml:"nullable,omitempty"`

	// String
	MinLength *int `json:"minLength,omitempty" yaml:"minLength,omitempty"`

	// Object
	Properties           map[string]*Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required             []string           `json:"required,omitempty" yaml:"required,omitempty"`
	AdditionalProperties any                `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
	MinProperties        *int               `json:"minProperties,omitempty" yaml:"minProperties,omitempty"`

	// Array
	Items    *Schema `json:"items,omitempty" yaml:"items,omitempty"`
	MinItems *int    `json:"minItems,omitempty" yaml:"minItems,omitempty"`
}
