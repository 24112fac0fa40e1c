package ciri

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Message keys (exported consts for IDE completion and type safety by convention)
const (
	KeyRequired = "required"
	KeyInvalid  = "invalid"
	KeyUnknown  = "unknown"
	// KeyValidator marks advisory warnings from legacy validators.
	KeyValidator = "validator"
)

// Sentinel errors for declaration and usage faults. These are never folded
// into an ErrorMap; they propagate to the caller as ordinary errors.
var (
	ErrUnknownHook    = errors.New("ciri: unknown hook method")
	ErrNotBuilt       = errors.New("ciri: definition is not built")
	ErrInvalidField   = errors.New("ciri: invalid field declaration")
	ErrNilSchema      = errors.New("ciri: nil schema")
	ErrBindTarget     = errors.New("ciri: bind target must be a struct")
	ErrInvalidOptions = errors.New("ciri: invalid schema options")
)

// FieldError is a single field failure collected during a call. Field refers
// back to the declaration that produced it.
type FieldError struct {
	Field   *Field
	Name    string // Declared attribute name.
	Key     string // Message key (required, invalid, ...).
	Message string // Resolved message template.
	Errors  ErrorMap
}

func (e *FieldError) Error() string {
	if e == nil {
		return ""
	}
	if e.Name == "" {
		return e.Key + ": " + e.Message
	}
	return e.Name + ": " + e.Message
}

// entry projects the error into its public ErrorMap form.
func (e *FieldError) entry() ErrorEntry {
	return ErrorEntry{Key: e.Key, Message: e.Message, Errors: e.Errors}
}

// FieldValidationError is returned by hooks to reject a value. The pipeline
// folds it into the aggregate instead of propagating it.
type FieldValidationError struct {
	FieldError *FieldError
}

func (e *FieldValidationError) Error() string {
	if e == nil || e.FieldError == nil {
		return "field validation failed"
	}
	return e.FieldError.Error()
}

func (e *FieldValidationError) Unwrap() error {
	if e == nil || e.FieldError == nil {
		return nil
	}
	return e.FieldError
}

// NewFieldError builds a FieldError for f using the field's template for key.
func NewFieldError(f *Field, key string) *FieldError {
	fe := &FieldError{Field: f, Key: key}
	if f != nil {
		fe.Message = f.Messages().Get(key)
	} else {
		fe.Message = defaultMessages("").Get(key)
	}
	return fe
}

// Reject is the usual way for a hook to refuse a value:
//
//	return nil, ciri.Reject(f, ciri.KeyInvalid)
func Reject(f *Field, key string) error {
	return &FieldValidationError{FieldError: NewFieldError(f, key)}
}

// RejectWith is like Reject but with an explicit message instead of the
// field's template.
func RejectWith(f *Field, key, msg string) error {
	fe := NewFieldError(f, key)
	fe.Message = msg
	return &FieldValidationError{FieldError: fe}
}

// ErrorEntry is one field's error in an ErrorMap. Errors is set for nested
// schemas and lists.
type ErrorEntry struct {
	Key     string   `json:"-" yaml:"-"`
	Message string   `json:"message" yaml:"message"`
	Errors  ErrorMap `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// ErrorMap maps field names (or list indexes) to their errors.
type ErrorMap map[string]ErrorEntry

// Keys returns the map keys in ascending order.
func (m ErrorMap) Keys() []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

// Issues flattens the tree into Issues with JSON Pointer paths. Entries that
// carry nested errors contribute their leaves only.
func (m ErrorMap) Issues() Issues {
	var iss Issues
	m.collect(nil, &iss)
	return iss
}

func (m ErrorMap) collect(base fieldPath, iss *Issues) {
	for _, k := range m.Keys() {
		e := m[k]
		p := base.key(k)
		if len(e.Errors) > 0 {
			e.Errors.collect(p, iss)
			continue
		}
		*iss = AppendIssues(*iss, Issue{Path: p.String(), Code: e.Key, Message: e.Message})
	}
}

// ValidationError is the aggregate error returned by Validate and Serialize.
type ValidationError struct {
	Errors ErrorMap
}

func (e *ValidationError) Error() string { return "validation failed: " + summarize(e.Errors) }

// SerializationError is the aggregate error returned by Deserialize.
type SerializationError struct {
	Errors ErrorMap
}

func (e *SerializationError) Error() string {
	return "deserialization failed: " + summarize(e.Errors)
}

// AsValidationError extracts a *ValidationError using errors.As.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// AsSerializationError extracts a *SerializationError using errors.As.
func AsSerializationError(err error) (*SerializationError, bool) {
	var se *SerializationError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// ErrorsOf returns the ErrorMap of either aggregate error type.
func ErrorsOf(err error) (ErrorMap, bool) {
	if ve, ok := AsValidationError(err); ok {
		return ve.Errors, true
	}
	if se, ok := AsSerializationError(err); ok {
		return se.Errors, true
	}
	return nil, false
}

// summarize renders the first few field errors.
func summarize(m ErrorMap) string {
	const maxShown = 3
	keys := m.Keys()
	b := &strings.Builder{}
	lim := len(keys)
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(b, "%s: %s", keys[i], m[keys[i]].Message)
	}
	if len(keys) > lim {
		fmt.Fprintf(b, "; ... (total %d)", len(keys))
	}
	return b.String()
}

// Issue is a flattened error entry addressed by JSON Pointer.
type Issue struct {
	Path    string // JSON Pointer (for example: /items/2/name).
	Code    string
	Message string
	Rule    string // Optional: validator or hook that produced the issue.
}

// Issues is a collection of flattened entries that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}
