package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/reoring/ciri"
	"github.com/reoring/ciri/defs"
	"github.com/reoring/ciri/document"
)

// target is the schema selection shared by every subcommand.
type target struct {
	defsPath string
	schema   string
}

func (t *target) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&t.defsPath, "defs", "d", "", "definition file (yaml or json)")
	cmd.Flags().StringVarP(&t.schema, "schema", "s", "", "schema name")
	_ = cmd.MarkFlagRequired("defs")
	_ = cmd.MarkFlagRequired("schema")
}

func (t *target) definition(ctx context.Context) (*ciri.Definition, error) {
	reg, err := defs.LoadFile(t.defsPath)
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().Str("defs", t.defsPath).Strs("schemas", reg.Names()).Msg("definitions loaded")
	return reg.Lookup(t.schema)
}

// input decodes the document named by args (stdin as JSON when absent or "-").
func (a *app) input(args []string) (map[string]any, document.Format, error) {
	if len(args) == 0 || args[0] == "-" {
		m, err := document.DecodeJSON(a.stdin)
		return m, document.JSON, err
	}
	return document.DecodeFile(args[0])
}

func (a *app) callOpts() []ciri.CallOpt {
	return []ciri.CallOpt{{HaltOnError: a.cfg.HaltOnError}}
}

func (a *app) outputFormat() (document.Format, error) {
	return document.ParseFormat(a.cfg.Format)
}

// fail renders an aggregate error and turns it into exit code 1. Other errors
// are returned unchanged.
func (a *app) fail(err error) error {
	errs, ok := ciri.ErrorsOf(err)
	if !ok {
		return err
	}
	renderErrors(a.stderr, errs, newPalette(a.color))
	return &exitError{code: 1}
}

func (a *app) warn(s *ciri.Schema) {
	renderWarnings(a.stderr, s.Warnings(), newPalette(a.color))
}

func newValidateCmd(a *app) *cobra.Command {
	var t target
	cmd := &cobra.Command{
		Use:   "validate [input]",
		Short: "Validate a document against a schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := t.definition(cmd.Context())
			if err != nil {
				return err
			}
			data, _, err := a.input(args)
			if err != nil {
				return err
			}
			s := def.New(nil)
			err = s.Validate(cmd.Context(), data, a.callOpts()...)
			a.warn(s)
			if err != nil {
				return a.fail(err)
			}
			fmt.Fprintln(a.stdout, newPalette(a.color).ok("valid"))
			return nil
		},
	}
	t.bind(cmd)
	return cmd
}

func newSerializeCmd(a *app) *cobra.Command {
	var t target
	var showDiff bool
	cmd := &cobra.Command{
		Use:   "serialize [input]",
		Short: "Serialize a document with a schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := t.definition(cmd.Context())
			if err != nil {
				return err
			}
			format, err := a.outputFormat()
			if err != nil {
				return err
			}
			data, _, err := a.input(args)
			if err != nil {
				return err
			}
			s := def.New(nil)
			out, err := s.Serialize(cmd.Context(), data, a.callOpts()...)
			a.warn(s)
			if err != nil {
				return a.fail(err)
			}
			if !showDiff {
				return document.Encode(a.stdout, out, format)
			}
			before, err := encodeString(data, format)
			if err != nil {
				return err
			}
			after, err := encodeString(out, format)
			if err != nil {
				return err
			}
			renderDiff(a.stdout, before, after, newPalette(a.color))
			return nil
		},
	}
	t.bind(cmd)
	cmd.Flags().BoolVar(&showDiff, "diff", false, "show the difference between input and serialized output")
	return cmd
}

func newDeserializeCmd(a *app) *cobra.Command {
	var t target
	cmd := &cobra.Command{
		Use:   "deserialize [input]",
		Short: "Deserialize a document into schema attributes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := t.definition(cmd.Context())
			if err != nil {
				return err
			}
			format, err := a.outputFormat()
			if err != nil {
				return err
			}
			data, _, err := a.input(args)
			if err != nil {
				return err
			}
			s := def.New(nil)
			inst, err := s.Deserialize(cmd.Context(), data, a.callOpts()...)
			a.warn(s)
			if err != nil {
				return a.fail(err)
			}
			return document.Encode(a.stdout, attrsOf(inst), format)
		},
	}
	t.bind(cmd)
	return cmd
}

func newJSONSchemaCmd(a *app) *cobra.Command {
	var t target
	cmd := &cobra.Command{
		Use:   "jsonschema",
		Short: "Export a schema as JSON Schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			def, err := t.definition(cmd.Context())
			if err != nil {
				return err
			}
			format, err := a.outputFormat()
			if err != nil {
				return err
			}
			js, err := def.JSONSchema()
			if err != nil {
				return err
			}
			if format == document.JSON {
				return document.EncodeJSON(a.stdout, js)
			}
			// other formats go through the JSON field names
			var buf bytes.Buffer
			if err := document.EncodeJSON(&buf, js); err != nil {
				return err
			}
			m, err := document.DecodeJSON(&buf)
			if err != nil {
				return err
			}
			return document.Encode(a.stdout, m, format)
		},
	}
	t.bind(cmd)
	return cmd
}

// attrsOf flattens an instance and its nested instances into plain maps.
func attrsOf(s *ciri.Schema) map[string]any {
	out := s.Attrs()
	for k, v := range out {
		out[k] = unwrap(v)
	}
	return out
}

func unwrap(v any) any {
	switch t := v.(type) {
	case *ciri.Schema:
		return attrsOf(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = unwrap(e)
		}
		return out
	}
	return v
}

func encodeString(v any, f document.Format) (string, error) {
	var buf bytes.Buffer
	if err := document.Encode(&buf, v, f); err != nil {
		return "", err
	}
	return buf.String(), nil
}
