package defs

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/reoring/ciri"
	"github.com/reoring/ciri/document"
)

// exprOptions are shared by every hook expression. upper, lower, trim and
// friends are expr builtins.
func exprOptions() []expr.Option {
	return []expr.Option{
		expr.Function("title", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("title requires 1 argument")
			}
			s, ok := params[0].(string)
			if !ok {
				return nil, fmt.Errorf("title expects a string, got %T", params[0])
			}
			return titleCase(s), nil
		}),
		expr.Function("empty", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("empty requires 1 argument")
			}
			switch v := params[0].(type) {
			case nil:
				return true, nil
			case string:
				return v == "", nil
			case []any:
				return len(v) == 0, nil
			case map[string]any:
				return len(v) == 0, nil
			}
			return false, nil
		}),
	}
}

// titleCase upper-cases the first rune of every word and lower-cases the rest.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, n := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToTitle(r)) + strings.ToLower(w[n:])
	}
	return strings.Join(words, " ")
}

// compileHook turns a HookSpec into a ciri.Hook.
func compileHook(h HookSpec) (ciri.Hook, error) {
	if h.Method != "" {
		return ciri.Method(h.Method), nil
	}
	fn, err := compileExpr(h)
	if err != nil {
		return ciri.Hook{}, err
	}
	return ciri.Func(fn), nil
}

// compileExpr compiles a check or transform expression once; evaluation
// happens per value.
func compileExpr(h HookSpec) (ciri.HookFunc, error) {
	src := h.Check
	if src == "" {
		src = h.Transform
	}
	prg, err := expr.Compile(src, exprOptions()...)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", h.Line, err)
	}
	if h.Check != "" {
		return checkHook(prg, h), nil
	}
	return transformHook(prg, h), nil
}

func checkHook(prg *vm.Program, h HookSpec) ciri.HookFunc {
	key := h.Message
	if key == "" {
		key = ciri.KeyInvalid
	}
	return func(s *ciri.Schema, f *ciri.Field, v any) (any, error) {
		out, err := expr.Run(prg, hookEnv(s, f, v))
		if err != nil {
			return nil, fmt.Errorf("check %q: %w", h.Check, err)
		}
		ok, isBool := out.(bool)
		if !isBool {
			return nil, fmt.Errorf("check %q returned %T, want bool", h.Check, out)
		}
		if ok {
			return v, nil
		}
		if h.Text != "" {
			return nil, ciri.RejectWith(f, key, h.Text)
		}
		return nil, ciri.Reject(f, key)
	}
}

func transformHook(prg *vm.Program, h HookSpec) ciri.HookFunc {
	return func(s *ciri.Schema, f *ciri.Field, v any) (any, error) {
		out, err := expr.Run(prg, hookEnv(s, f, v))
		if err != nil {
			return nil, fmt.Errorf("transform %q: %w", h.Transform, err)
		}
		return out, nil
	}
}

// hookEnv exposes the value being processed (as plain data), the attribute
// name of the field, the instance attributes and the schema name.
func hookEnv(s *ciri.Schema, f *ciri.Field, v any) map[string]any {
	return map[string]any{
		"value":  document.Plain(v),
		"field":  attrOf(s, f),
		"attrs":  document.Plain(s.Attrs()),
		"schema": s.Definition().Name(),
	}
}

// attrOf finds the attribute f is declared as. List element fields have no
// attribute of their own and yield "".
func attrOf(s *ciri.Schema, f *ciri.Field) string {
	def := s.Definition()
	for _, attr := range def.Attrs() {
		if got, _ := def.Lookup(attr); got == f {
			return attr
		}
	}
	return ""
}
