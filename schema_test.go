package ciri_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/reoring/ciri"
)

func TestEmptySchema_SerializeAndValidate(t *testing.T) {
	ctx := context.Background()
	s := ciri.Define("Empty").MustBuild().New(nil)

	out, err := s.Serialize(ctx, map[string]any{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(out) != 0 || len(s.Errors()) != 0 {
		t.Fatalf("expected empty output and errors, got out=%v errors=%v", out, s.Errors())
	}
	if err := s.Validate(ctx, map[string]any{}); err != nil {
		t.Fatalf("expected no validation error, got %v", err)
	}
	if len(s.Errors()) != 0 {
		t.Fatalf("expected empty errors, got %v", s.Errors())
	}
}

func TestDefault_StaticValue(t *testing.T) {
	s := ciri.Define("S").Field("active", ciri.Boolean().Default(true)).MustBuild().New(nil)
	out, err := s.Serialize(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"active": true}, out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestDefault_CallableReceivesSchemaAndField(t *testing.T) {
	var gotSchema *ciri.Schema
	var gotField *ciri.Field
	def := ciri.Define("S").
		Field("name", ciri.String().DefaultFunc(func(s *ciri.Schema, f *ciri.Field) any {
			gotSchema, gotField = s, f
			return "audrey"
		})).
		MustBuild()
	s := def.New(nil)
	out, err := s.Serialize(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"name": "audrey"}, out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	declared, _ := def.Lookup("name")
	if gotSchema != s || gotField != declared {
		t.Fatalf("expected default func to receive the instance and its field")
	}
}

func TestDefault_NotRevalidated(t *testing.T) {
	// a default of the wrong type is trusted as is
	s := ciri.Define("S").Field("age", ciri.Integer().Default("unknown")).MustBuild().New(nil)
	out, err := s.Serialize(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["age"] != "unknown" {
		t.Fatalf("expected default passed through, got %v", out)
	}
}

func TestRequiredField_Missing(t *testing.T) {
	s := ciri.Define("S").Field("name", ciri.String().Required()).MustBuild().New(nil)
	_, err := s.Serialize(context.Background(), map[string]any{})
	ve, ok := ciri.AsValidationError(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := ciri.String().Messages().Get(ciri.KeyRequired)
	if got := s.RawErrors()["name"]; got == nil || got.Message != want || got.Key != ciri.KeyRequired {
		t.Fatalf("expected required raw error %q, got %+v", want, got)
	}
	if ve.Errors["name"].Message != want {
		t.Fatalf("expected aggregate payload to carry %q, got %v", want, ve.Errors)
	}
	if s.RawErrors()["name"].Name != "name" || s.RawErrors()["name"].Field == nil {
		t.Fatalf("expected raw error to reference its field, got %+v", s.RawErrors()["name"])
	}
}

func TestAllowNone_ExplicitNil(t *testing.T) {
	s := ciri.Define("S").Field("age", ciri.Integer().AllowNone(true)).MustBuild().New(nil)
	out, err := s.Serialize(context.Background(), map[string]any{"name": 2, "age": nil})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"age": nil}, out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestAllowNone_MissingKey(t *testing.T) {
	s := ciri.Define("S").Field("age", ciri.Integer().AllowNone(true)).MustBuild().New(nil)
	out, err := s.Serialize(context.Background(), map[string]any{"name": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"age": nil}, out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestNil_RejectedWithoutAllowNone(t *testing.T) {
	s := ciri.Define("S").Field("age", ciri.Integer()).MustBuild().New(nil)
	_, err := s.Serialize(context.Background(), map[string]any{"age": nil})
	if _, ok := ciri.AsValidationError(err); !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if s.Errors()["age"].Key != ciri.KeyInvalid {
		t.Fatalf("expected invalid, got %v", s.Errors())
	}
}

func TestHaltOnError_StopsAtFirstField(t *testing.T) {
	s := ciri.Define("S").
		Field("name", ciri.String().Required()).
		Field("age", ciri.Integer().Required()).
		MustBuild().New(nil)

	err := s.Validate(context.Background(), nil, ciri.CallOpt{HaltOnError: true})
	if _, ok := ciri.AsValidationError(err); !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(s.Errors()) != 1 {
		t.Fatalf("expected exactly one error, got %v", s.Errors())
	}
	if _, ok := s.Errors()["name"]; !ok {
		t.Fatalf("expected the first declared field to fail, got %v", s.Errors())
	}
}

func TestWithoutHalt_AggregatesAllFields(t *testing.T) {
	s := ciri.Define("S").
		Field("name", ciri.String().Required()).
		Field("age", ciri.Integer().Required()).
		MustBuild().New(nil)

	_, err := s.Serialize(context.Background(), map[string]any{"name": 33, "age": "33"})
	ve, ok := ciri.AsValidationError(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := ciri.ErrorMap{
		"name": {Key: ciri.KeyInvalid, Message: ciri.String().Messages().Get(ciri.KeyInvalid)},
		"age":  {Key: ciri.KeyInvalid, Message: ciri.Integer().Messages().Get(ciri.KeyInvalid)},
	}
	if diff := cmp.Diff(want, ve.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, s.Errors()); diff != "" {
		t.Fatalf("Errors() mismatch (-want +got):\n%s", diff)
	}
}

func TestSchemaAttrs_SerializeWithoutData(t *testing.T) {
	sub := ciri.Define("Sub").Field("hello", ciri.String().Required()).MustBuild()
	def := ciri.Define("S").
		Field("name", ciri.String().Required()).
		Field("active", ciri.Boolean()).
		Field("sub", ciri.Nested(sub)).
		MustBuild()

	s := def.New(map[string]any{"name": "ciri", "active": true, "sub": sub.New(map[string]any{"hello": "testing"})})
	out, err := s.Serialize(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{"name": "ciri", "active": true, "sub": map[string]any{"hello": "testing"}}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestErrors_ResetBetweenCalls(t *testing.T) {
	s := ciri.Define("S").Field("name", ciri.String().Required()).MustBuild().New(nil)
	if _, err := s.Serialize(context.Background(), map[string]any{}); err == nil {
		t.Fatalf("expected error on first call")
	}
	if len(s.Errors()) != 1 {
		t.Fatalf("expected one error, got %v", s.Errors())
	}
	out, err := s.Serialize(context.Background(), map[string]any{"name": "pi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"name": "pi"}, out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	if len(s.Errors()) != 0 || len(s.RawErrors()) != 0 {
		t.Fatalf("expected errors to be reset, got %v / %v", s.Errors(), s.RawErrors())
	}
}

func TestSchemaOptions_Defaults(t *testing.T) {
	if ciri.DefaultOptions().AllowNone {
		t.Fatalf("expected AllowNone=false by default")
	}
	opts := ciri.SchemaOptions{AllowNone: true}
	if !opts.AllowNone {
		t.Fatalf("expected AllowNone override")
	}
}

func TestSchemaOptions_ConfigAtCallSite(t *testing.T) {
	opts := ciri.SchemaOptions{AllowNone: true}
	s := ciri.Define("S").Field("name", ciri.String()).MustBuild().New(nil)
	s.Config(ciri.Config{Options: &opts})
	out, err := s.Serialize(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"name": nil}, out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestSchemaOptions_OnDefinition(t *testing.T) {
	def := ciri.Define("S").
		Options(ciri.SchemaOptions{AllowNone: true}).
		Field("name", ciri.String()).
		MustBuild()
	out, err := def.New(nil).Serialize(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"name": nil}, out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestSchemaOptions_Precedence(t *testing.T) {
	base := ciri.Define("Base").Options(ciri.SchemaOptions{AllowNone: true}).Field("name", ciri.String()).MustBuild()
	child := ciri.Extend(base, "Child").MustBuild()
	if !child.Options().AllowNone {
		t.Fatalf("expected options inherited from the parent")
	}
	s := child.New(nil).Config(ciri.Config{Options: &ciri.SchemaOptions{}})
	out, err := s.Serialize(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := out["name"]; ok {
		t.Fatalf("expected Config to override definition options, got %v", out)
	}
	// field level AllowNone(false) wins over the schema option
	strict := ciri.Define("Strict").Options(ciri.SchemaOptions{AllowNone: true}).
		Field("name", ciri.String().AllowNone(false)).MustBuild().New(nil)
	if _, err := strict.Serialize(context.Background(), map[string]any{"name": nil}); err == nil {
		t.Fatalf("expected field-level AllowNone(false) to reject nil")
	}
}

func TestSerializedName(t *testing.T) {
	s := ciri.Define("S").Field("name", ciri.String().Name("first_name")).MustBuild().New(nil)
	out, err := s.Serialize(context.Background(), map[string]any{"name": "Tester"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"first_name": "Tester"}, out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestAllowEmpty(t *testing.T) {
	def := ciri.Define("S").
		Field("name", ciri.String().AllowEmpty(false)).
		Field("tags", ciri.List(ciri.String()).AllowEmpty(false)).
		Field("nick", ciri.String()).
		MustBuild()
	s := def.New(nil)
	_, err := s.Serialize(context.Background(), map[string]any{"name": "", "tags": []any{}, "nick": ""})
	if err == nil {
		t.Fatalf("expected empty values to be rejected")
	}
	if len(s.Errors()) != 2 || s.Errors()["name"].Key != ciri.KeyInvalid || s.Errors()["tags"].Key != ciri.KeyInvalid {
		t.Fatalf("expected name and tags invalid, got %v", s.Errors())
	}
}

func TestUnknownStrict(t *testing.T) {
	def := ciri.Define("S").
		Options(ciri.SchemaOptions{Unknown: ciri.UnknownStrict}).
		Field("name", ciri.String()).
		MustBuild()
	s := def.New(nil)
	_, err := s.Serialize(context.Background(), map[string]any{"name": "x", "zzz": 1, "yyy": 2})
	if err == nil {
		t.Fatalf("expected unknown keys to be rejected")
	}
	want := ciri.ErrorMap{
		"yyy": {Key: ciri.KeyUnknown, Message: "Unknown field"},
		"zzz": {Key: ciri.KeyUnknown, Message: "Unknown field"},
	}
	if diff := cmp.Diff(want, s.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	// attribute-backed calls ignore the policy
	if _, err := def.New(map[string]any{"name": "x", "extra": true}).Serialize(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error serializing attributes: %v", err)
	}
}

func TestDeserialize_UsesSerializedNamesAndReturnsInstance(t *testing.T) {
	def := ciri.Define("S").
		Field("name", ciri.String().Name("first_name")).
		Field("age", ciri.Integer()).
		MustBuild()
	inst, err := def.New(nil).Deserialize(context.Background(), map[string]any{"first_name": "Jack", "age": 52})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := inst.Get("name"); v != "Jack" {
		t.Fatalf("expected attribute name=Jack, got %v", inst.Attrs())
	}
	if inst.Definition() != def {
		t.Fatalf("expected instance of the same definition")
	}
}

func TestDeserialize_FailureIsSerializationError(t *testing.T) {
	s := ciri.Define("S").Field("age", ciri.Integer().Required()).MustBuild().New(nil)
	_, err := s.Deserialize(context.Background(), map[string]any{"age": "x"})
	se, ok := ciri.AsSerializationError(err)
	if !ok {
		t.Fatalf("expected SerializationError, got %v", err)
	}
	if se.Errors["age"].Key != ciri.KeyInvalid {
		t.Fatalf("expected invalid age, got %v", se.Errors)
	}
	if _, ok := ciri.AsValidationError(err); ok {
		t.Fatalf("expected deserialize failure to not be a ValidationError")
	}
}

func TestNilSchema(t *testing.T) {
	var s *ciri.Schema
	if _, err := s.Serialize(context.Background(), nil); !errors.Is(err, ciri.ErrNilSchema) {
		t.Fatalf("expected ErrNilSchema, got %v", err)
	}
}

func TestErrorMap_Issues(t *testing.T) {
	sub := ciri.Define("Sub").Field("hello", ciri.String().Required()).MustBuild()
	s := ciri.Define("S").
		Field("sub", ciri.Nested(sub)).
		Field("name", ciri.String().Required()).
		MustBuild().New(nil)
	_, err := s.Serialize(context.Background(), map[string]any{"sub": map[string]any{}})
	errs, ok := ciri.ErrorsOf(err)
	if !ok {
		t.Fatalf("expected aggregate error, got %v", err)
	}
	iss := errs.Issues()
	if len(iss) != 2 {
		t.Fatalf("expected two leaf issues, got %v", iss)
	}
	if iss[0].Path != "/name" || iss[1].Path != "/sub/hello" || iss[1].Code != ciri.KeyRequired {
		t.Fatalf("unexpected issues: %v", iss)
	}
	if iss.Error() == "" || err.Error() == "" {
		t.Fatalf("expected non-empty summaries")
	}
}
