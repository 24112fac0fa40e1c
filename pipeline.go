package ciri

import (
	"context"
	"errors"
	"fmt"
)

// Mode selects which hooks run and what Convert produces.
type Mode uint8

const (
	ModeValidate Mode = iota
	ModeSerialize
	ModeDeserialize
)

func (m Mode) String() string {
	switch m {
	case ModeSerialize:
		return "serialize"
	case ModeDeserialize:
		return "deserialize"
	default:
		return "validate"
	}
}

// Call is the per-field view of an in-flight Serialize/Deserialize/Validate
// call handed to kinds.
type Call struct {
	schema *Schema
	field  *Field
	mode   Mode
	path   fieldPath
	opts   SchemaOptions
}

func (c *Call) Schema() *Schema        { return c.schema }
func (c *Call) Field() *Field          { return c.field }
func (c *Call) Mode() Mode             { return c.mode }
func (c *Call) Options() SchemaOptions { return c.opts }

// Path is the JSON Pointer of the value being processed.
func (c *Call) Path() string { return c.path.String() }

func (c *Call) child(f *Field, p fieldPath) *Call {
	return &Call{schema: c.schema, field: f, mode: c.mode, path: p, opts: c.opts}
}

// resolve handles presence before the value pipeline runs. It reports whether
// the field contributes to the output.
func (c *Call) resolve(ctx context.Context, raw any, present bool) (any, bool, error) {
	f := c.field
	if !present {
		if f.required {
			return nil, false, Reject(f, KeyRequired)
		}
		if f.allowsNone(c.opts) {
			return nil, true, nil
		}
		if f.def.set {
			// defaults are trusted and bypass validation
			return f.def.resolve(c.schema, f), true, nil
		}
		return nil, false, nil
	}
	v, err := c.run(ctx, raw)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// run applies the value pipeline to a present value:
// pre hooks -> type check -> empty check -> validators -> post_validate ->
// mode stage (serialize / deserialize hooks around Convert).
func (c *Call) run(ctx context.Context, v any) (any, error) {
	f := c.field
	if v == nil {
		if f.allowsNone(c.opts) {
			return nil, nil
		}
		return nil, Reject(f, KeyInvalid)
	}
	var err error
	if c.mode == ModeDeserialize {
		if v, err = c.hooks(f.preDeserialize, v); err != nil {
			return nil, err
		}
	}
	if v, err = c.hooks(f.preValidate, v); err != nil {
		return nil, err
	}
	if v == nil && f.allowsNone(c.opts) {
		return nil, nil
	}
	if !f.kind.Accepts(v) {
		return nil, Reject(f, KeyInvalid)
	}
	if !f.allowEmpty && f.kind.IsEmpty(v) {
		return nil, Reject(f, KeyInvalid)
	}
	c.validators(v)
	if v, err = c.hooks(f.postValidate, v); err != nil {
		return nil, err
	}

	switch c.mode {
	case ModeSerialize:
		if v, err = c.hooks(f.preSerialize, v); err != nil {
			return nil, err
		}
		if v, err = c.convert(ctx, v); err != nil {
			return nil, err
		}
		return c.hooks(f.postSerialize, v)
	case ModeDeserialize:
		if v, err = c.convert(ctx, v); err != nil {
			return nil, err
		}
		return c.hooks(f.postDeserialize, v)
	default:
		// convert for the nested checks only; validate keeps the input value
		if _, err = c.convert(ctx, v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// convert re-checks the kind before Convert: hooks between the type check
// and the mode stage may have replaced the value.
func (c *Call) convert(ctx context.Context, v any) (any, error) {
	f := c.field
	if v == nil && f.allowsNone(c.opts) {
		return nil, nil
	}
	if !f.kind.Accepts(v) {
		return nil, Reject(f, KeyInvalid)
	}
	return f.kind.Convert(ctx, c, v)
}

func (c *Call) hooks(hs []Hook, v any) (any, error) {
	for _, h := range hs {
		fn, err := h.resolve(c.schema)
		if err != nil {
			return nil, err
		}
		if v, err = fn(c.schema, c.field, v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// validators runs the legacy predicates. Failures become warnings only.
func (c *Call) validators(v any) {
	for i, fn := range c.field.validators {
		if fn == nil || fn(c.schema, c.field, v) {
			continue
		}
		c.schema.state.warnings = AppendIssues(c.schema.state.warnings, Issue{
			Path:    c.path.String(),
			Code:    KeyValidator,
			Message: c.field.Messages().Get(KeyValidator),
			Rule:    fmt.Sprintf("validators[%d]", i),
		})
	}
}

// mergeWarnings rebases a nested schema's warnings under the current path.
func (c *Call) mergeWarnings(iss Issues) {
	base := c.path.String()
	for _, it := range iss {
		p := it.Path
		switch {
		case p == "" || p == "/":
			p = base
		case base != "/":
			p = base + p
		}
		it.Path = p
		c.schema.state.warnings = AppendIssues(c.schema.state.warnings, it)
	}
}

// foldFieldError turns a hook or kind rejection into a FieldError. Any other
// error is returned unchanged as a fault.
func foldFieldError(f *Field, err error) (*FieldError, error) {
	var fve *FieldValidationError
	if !errors.As(err, &fve) || fve.FieldError == nil {
		return nil, err
	}
	fe := *fve.FieldError
	if fe.Field == nil {
		fe.Field = f
	}
	if fe.Key == "" {
		fe.Key = KeyInvalid
	}
	if fe.Message == "" {
		fe.Message = f.Messages().Get(fe.Key)
	}
	return &fe, nil
}
