package ciri

import (
	"context"
	"fmt"
	"reflect"
)

// Bind copies the attributes of s into a new T, which must be a struct (or a
// pointer to one). Nested *Schema values bind into struct fields, []any into
// slices and string-keyed maps into maps.
func Bind[T any](s *Schema) (T, error) {
	var zero T
	if s == nil {
		return zero, ErrNilSchema
	}
	rt := reflect.TypeOf(zero)
	ptr := rt != nil && rt.Kind() == reflect.Pointer
	if ptr {
		rt = rt.Elem()
	}
	if rt == nil || rt.Kind() != reflect.Struct {
		return zero, fmt.Errorf("%w: %v", ErrBindTarget, rt)
	}
	rv := reflect.New(rt)
	if err := bindStruct(rv.Elem(), s.attrs, "/"); err != nil {
		return zero, err
	}
	if ptr {
		return rv.Interface().(T), nil
	}
	return rv.Elem().Interface().(T), nil
}

// DeserializeInto deserializes data with def and binds the result into T.
func DeserializeInto[T any](ctx context.Context, def *Definition, data map[string]any, opts ...CallOpt) (T, error) {
	var zero T
	inst, err := def.New(nil).Deserialize(ctx, data, opts...)
	if err != nil {
		return zero, err
	}
	return Bind[T](inst)
}

// FromStruct creates an instance of def whose attributes are read from the
// exported fields of v. Nested struct values become nested instances when the
// field is declared Nested.
func FromStruct(def *Definition, v any) (*Schema, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil pointer", ErrBindTarget)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %T", ErrBindTarget, v)
	}
	s := def.New(nil)
	for attr, i := range structKeys(rv.Type()) {
		f, ok := def.Lookup(attr)
		if !ok {
			continue
		}
		fv := rv.Field(i)
		if nk, ok := f.kind.(nestedKind); ok {
			sv := fv
			for sv.Kind() == reflect.Pointer && !sv.IsNil() {
				sv = sv.Elem()
			}
			if sv.Kind() == reflect.Struct {
				sub, err := FromStruct(nk.def, sv.Interface())
				if err != nil {
					return nil, err
				}
				s.attrs[attr] = sub
				continue
			}
		}
		if isNilValue(fv) {
			s.attrs[attr] = nil
			continue
		}
		s.attrs[attr] = fv.Interface()
	}
	return s, nil
}

func bindStruct(rv reflect.Value, attrs map[string]any, path string) error {
	for attr, i := range structKeys(rv.Type()) {
		val, ok := attrs[attr]
		if !ok {
			continue
		}
		if err := assign(rv.Field(i), val, path+attr); err != nil {
			return err
		}
	}
	return nil
}

func assign(fv reflect.Value, val any, path string) error {
	if !fv.CanSet() {
		return nil
	}
	if val == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	switch t := val.(type) {
	case *Schema:
		target := fv
		if fv.Kind() == reflect.Pointer && fv.Type().Elem().Kind() == reflect.Struct {
			fv.Set(reflect.New(fv.Type().Elem()))
			target = fv.Elem()
		}
		if target.Kind() == reflect.Struct {
			return bindStruct(target, t.attrs, path+"/")
		}
	case []any:
		if fv.Kind() == reflect.Slice {
			out := reflect.MakeSlice(fv.Type(), len(t), len(t))
			for i, ev := range t {
				if err := assign(out.Index(i), ev, fmt.Sprintf("%s/%d", path, i)); err != nil {
					return err
				}
			}
			fv.Set(out)
			return nil
		}
	case map[string]any:
		if fv.Kind() == reflect.Map && fv.Type().Key().Kind() == reflect.String {
			out := reflect.MakeMapWithSize(fv.Type(), len(t))
			for k, ev := range t {
				ev2 := reflect.New(fv.Type().Elem()).Elem()
				if err := assign(ev2, ev, path+"/"+k); err != nil {
					return err
				}
				out.SetMapIndex(reflect.ValueOf(k).Convert(fv.Type().Key()), ev2)
			}
			fv.Set(out)
			return nil
		}
	}
	vv := reflect.ValueOf(val)
	switch {
	case vv.Type().AssignableTo(fv.Type()):
		fv.Set(vv)
	case convertible(vv.Type(), fv.Type()):
		fv.Set(vv.Convert(fv.Type()))
	default:
		return fmt.Errorf("%w: cannot assign %T to %s at %s", ErrBindTarget, val, fv.Type(), path)
	}
	return nil
}

// convertible refuses number-to-string conversions that reflect would allow.
func convertible(from, to reflect.Type) bool {
	if !from.ConvertibleTo(to) {
		return false
	}
	if to.Kind() == reflect.String && from.Kind() != reflect.String {
		return false
	}
	return true
}

func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}
