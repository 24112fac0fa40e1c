// Package ciri provides declarative schemas for validating, serializing and
// deserializing loosely typed data:
//
// - Field declarations (String, Integer, Boolean, Dict, List, Nested, UUID) with
// required / allow-none / allow-empty rules, defaults and serialized names
// - Ordered hooks per field: pre/post validate, serialize and deserialize
// - Definitions that extend other definitions, overriding fields in place
// - A stable error model: an ErrorMap per call, FieldErrors with a back
// reference to their field, and aggregate ValidationError/SerializationError
//
// Design policy:
// - Keep the public API in the root package; document I/O lives under
// document/, definition files under defs/, and the CLI under cmd/ciri.
// - Definitions are immutable once built; a Schema instance owns the state of
// its latest call and must not be shared between goroutines.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	person := ciri.Define("Person").
//		Field("name", ciri.String().Required()).
//		Field("age", ciri.Integer().AllowNone(true)).
//		MustBuild()
//
//	s := person.New(nil)
//	out, err := s.Serialize(ctx, map[string]any{"name": "ciri"})
//	if ve, ok := ciri.AsValidationError(err); ok {
//		fmt.Println(ve.Errors)
//	}
//
// Halt-on-error processing stops at the first failing field:
//
//	err := s.Validate(ctx, data, ciri.CallOpt{HaltOnError: true})
package ciri
