package ciri

import (
	"context"
	"fmt"
	"strings"
)

// UnknownPolicy controls how input keys without a declared field are handled.
type UnknownPolicy int

const (
	UnknownStrip  UnknownPolicy = iota // Ignore unknown keys.
	UnknownStrict                      // Report an "unknown" error per key.
)

func (p UnknownPolicy) String() string {
	if p == UnknownStrict {
		return "strict"
	}
	return "strip"
}

// ParseUnknownPolicy maps "strip"/"strict" to an UnknownPolicy.
func ParseUnknownPolicy(s string) (UnknownPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strip":
		return UnknownStrip, nil
	case "strict":
		return UnknownStrict, nil
	default:
		return UnknownStrip, fmt.Errorf("%w: unknown policy %q", ErrInvalidOptions, s)
	}
}

// SchemaOptions is the schema-level configuration record.
type SchemaOptions struct {
	// AllowNone is the fallback for fields that do not set AllowNone
	// themselves. It also makes absent fields serialize as nil.
	AllowNone bool
	Unknown   UnknownPolicy
}

// DefaultOptions returns the library defaults.
func DefaultOptions() SchemaOptions { return SchemaOptions{} }

// Config carries per-instance settings applied with Schema.Config.
type Config struct {
	Options *SchemaOptions
}

// CallOpt bundles per-call options.
type CallOpt struct {
	// HaltOnError stops at the first failing field. Nested schemas and list
	// elements honor it too.
	HaltOnError bool
}

type contextKey int

const (
	_ctxKeyHaltOnError contextKey = iota
)

// WithHaltOnError returns a child context that marks halt-on-error processing.
// Serialize, Deserialize and Validate set it from CallOpt and nested schemas
// consume it.
func WithHaltOnError(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, _ctxKeyHaltOnError, enabled)
}

// IsHaltOnError reports whether the current call should stop on the first
// field error.
func IsHaltOnError(ctx context.Context) bool {
	v := ctx.Value(_ctxKeyHaltOnError)
	b, _ := v.(bool)
	return b
}

func applyCallOpts(ctx context.Context, opts []CallOpt) context.Context {
	if len(opts) == 0 {
		return ctx
	}
	return WithHaltOnError(ctx, opts[len(opts)-1].HaltOnError)
}
