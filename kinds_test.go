package ciri_test

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/reoring/ciri"
	js "github.com/reoring/ciri/jsonschema"
)

type orderedMap map[string]any

func TestDict_RejectsNonMappings(t *testing.T) {
	s := ciri.Define("S").Field("foo", ciri.Dict()).MustBuild().New(nil)
	cases := map[string]any{
		"int":        1,
		"string":     "1",
		"list":       []any{},
		"type":       reflect.TypeOf(map[string]any{}),
		"definition": ciri.Define("D").MustBuild(),
		"int keys":   map[int]any{1: "a"},
	}
	for name, v := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.Serialize(context.Background(), map[string]any{"foo": v})
			if err == nil {
				t.Fatalf("expected %T to be rejected", v)
			}
			want := ciri.ErrorMap{"foo": {Key: ciri.KeyInvalid, Message: "Field is not a valid mapping"}}
			if diff := cmp.Diff(want, s.Errors()); diff != "" {
				t.Fatalf("errors mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDict_AcceptsNamedMapTypes(t *testing.T) {
	s := ciri.Define("S").Field("foo", ciri.Dict()).MustBuild().New(nil)
	out, err := s.Serialize(context.Background(), map[string]any{"foo": orderedMap{"a": "b"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{"foo": map[string]any{"a": "b"}}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestDict_AllowEmpty(t *testing.T) {
	s := ciri.Define("S").Field("foo", ciri.Dict().AllowEmpty(false)).MustBuild().New(nil)
	if err := s.Validate(context.Background(), map[string]any{"foo": map[string]any{}}); err == nil {
		t.Fatalf("expected empty mapping to be rejected")
	}
	if err := s.Validate(context.Background(), map[string]any{"foo": map[string]string{"a": "b"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestList_NullableElements(t *testing.T) {
	s := ciri.Define("S").Field("items", ciri.List(ciri.Dict().AllowNone(true))).MustBuild().New(nil)
	out, err := s.Serialize(context.Background(), map[string]any{"items": []any{nil, map[string]any{"cup": "cake"}, nil}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{"items": []any{nil, map[string]any{"cup": "cake"}, nil}}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestList_ElementErrorsByIndex(t *testing.T) {
	s := ciri.Define("S").Field("tags", ciri.List(ciri.String())).MustBuild().New(nil)
	data := map[string]any{"tags": []any{"a", 1, "b", 2}}

	_, err := s.Serialize(context.Background(), data)
	if err == nil {
		t.Fatalf("expected element errors")
	}
	elem := ciri.ErrorEntry{Key: ciri.KeyInvalid, Message: "Field is not a valid string"}
	want := ciri.ErrorMap{"tags": {
		Key:     ciri.KeyInvalid,
		Message: "Field is not a valid list",
		Errors:  ciri.ErrorMap{"1": elem, "3": elem},
	}}
	if diff := cmp.Diff(want, s.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	_, _ = s.Serialize(context.Background(), data, ciri.CallOpt{HaltOnError: true})
	if got := s.Errors()["tags"].Errors; len(got) != 1 {
		t.Fatalf("expected halt to stop at the first element, got %v", got)
	}

	iss := s.Errors().Issues()
	if len(iss) != 1 || iss[0].Path != "/tags/1" {
		t.Fatalf("unexpected issues: %v", iss)
	}
}

func TestList_RejectsNonSequences(t *testing.T) {
	s := ciri.Define("S").Field("tags", ciri.List(ciri.String())).MustBuild().New(nil)
	for _, v := range []any{"abc", 1, map[string]any{}} {
		if err := s.Validate(context.Background(), map[string]any{"tags": v}); err == nil {
			t.Fatalf("expected %T to be rejected", v)
		}
	}
	if err := s.Validate(context.Background(), map[string]any{"tags": []string{"a", "b"}}); err != nil {
		t.Fatalf("typed slices are sequences: %v", err)
	}
}

func TestInteger_DocumentNumbers(t *testing.T) {
	def := ciri.Define("S").Field("n", ciri.Integer()).MustBuild()

	inst, err := def.New(nil).Deserialize(context.Background(), map[string]any{"n": json.Number("42")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := inst.Get("n"); n != int64(42) {
		t.Fatalf("expected int64(42), got %#v", n)
	}

	for _, v := range []any{json.Number("1.5"), 1.0, "1", true} {
		if err := def.New(nil).Validate(context.Background(), map[string]any{"n": v}); err == nil {
			t.Fatalf("expected %#v to be rejected", v)
		}
	}
}

func TestUUID_Modes(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	def := ciri.Define("S").Field("id", ciri.UUID().AllowEmpty(false)).MustBuild()

	out, err := def.New(map[string]any{"id": id}).Serialize(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["id"] != id.String() {
		t.Fatalf("expected canonical string, got %#v", out["id"])
	}

	inst, err := def.New(nil).Deserialize(context.Background(), map[string]any{"id": id.String()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := inst.Get("id"); got != id {
		t.Fatalf("expected uuid.UUID, got %#v", got)
	}

	for _, v := range []any{"not-a-uuid", uuid.Nil, 12} {
		if err := def.New(nil).Validate(context.Background(), map[string]any{"id": v}); err == nil {
			t.Fatalf("expected %#v to be rejected", v)
		}
	}
}

func TestDateTime_Modes(t *testing.T) {
	def := ciri.Define("S").Field("at", ciri.DateTime()).MustBuild()
	want := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	out, err := def.New(nil).Serialize(context.Background(), map[string]any{"at": "2025-01-01T18:00:00+09:00"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["at"] != "2025-01-01T09:00:00Z" {
		t.Fatalf("expected canonical UTC form, got %v", out["at"])
	}

	inst, err := def.New(nil).Deserialize(context.Background(), map[string]any{"at": "2025-01-01T09:00:00.000Z"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := inst.Get("at")
	if tm, ok := got.(time.Time); !ok || !tm.Equal(want) {
		t.Fatalf("expected %v, got %#v", want, got)
	}

	for _, v := range []any{"2025-01-01", "yesterday", 1735722000} {
		if err := def.New(nil).Validate(context.Background(), map[string]any{"at": v}); err == nil {
			t.Fatalf("expected %#v to be rejected", v)
		}
	}
}

type evenKind struct{}

func (evenKind) Name() string { return "even number" }
func (evenKind) Accepts(v any) bool {
	n, ok := v.(int)
	return ok && n%2 == 0
}
func (evenKind) IsEmpty(any) bool { return false }
func (evenKind) Convert(_ context.Context, c *ciri.Call, v any) (any, error) {
	if c.Mode() == ciri.ModeSerialize {
		return v.(int) / 2, nil
	}
	return v, nil
}
func (evenKind) JSONSchema() (*js.Schema, error) { return &js.Schema{Type: "integer"}, nil }

func TestOf_CustomKind(t *testing.T) {
	s := ciri.Define("S").Field("n", ciri.Of(evenKind{})).MustBuild().New(nil)
	out, err := s.Serialize(context.Background(), map[string]any{"n": 8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["n"] != 4 {
		t.Fatalf("expected converted value, got %v", out["n"])
	}
	_, _ = s.Serialize(context.Background(), map[string]any{"n": 3})
	if got := s.Errors()["n"].Message; got != "Field is not a valid even number" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestList_RetypedElementIsInvalid(t *testing.T) {
	five := ciri.Func(func(*ciri.Schema, *ciri.Field, any) (any, error) { return 5, nil })
	s := ciri.Define("S").Field("at", ciri.List(ciri.DateTime().PreSerialize(five))).MustBuild().New(nil)
	_, err := s.Serialize(context.Background(), map[string]any{"at": []any{"2024-05-01T10:00:00Z"}})
	errs, ok := ciri.ErrorsOf(err)
	if !ok {
		t.Fatalf("expected aggregate error, got %v", err)
	}
	if diff := cmp.Diff([]string{"0"}, errs["at"].Errors.Keys()); diff != "" {
		t.Fatalf("element keys mismatch (-want +got):\n%s", diff)
	}
	if got := errs["at"].Errors["0"].Key; got != ciri.KeyInvalid {
		t.Fatalf("expected invalid, got %q", got)
	}
}
