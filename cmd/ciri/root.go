package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reoring/ciri/i18n"
)

// exitError carries a non-zero exit code out of a RunE handler.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit status %d", e.code)
}

func (e *exitError) Unwrap() error { return e.err }

// settings are resolved from flags, CIRI_* environment variables and the
// optional config file, in that order of precedence.
type settings struct {
	HaltOnError bool
	Language    string
	Format      string
	Verbose     bool
}

func loadSettings(v *viper.Viper) settings {
	return settings{
		HaltOnError: v.GetBool("halt_on_error"),
		Language:    v.GetString("language"),
		Format:      v.GetString("format"),
		Verbose:     v.GetBool("verbose"),
	}
}

// app is the state shared by all subcommands of one invocation.
type app struct {
	v      *viper.Viper
	cfg    settings
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	color  bool
}

func newRootCmd(a *app) *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:           "ciri",
		Short:         "Validate and convert documents with declarative schemas",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cfgFile != "" {
				a.v.SetConfigFile(cfgFile)
				if err := a.v.ReadInConfig(); err != nil {
					return fmt.Errorf("read config: %w", err)
				}
			}
			a.cfg = loadSettings(a.v)
			i18n.SetLanguage(a.cfg.Language)

			level := zerolog.InfoLevel
			if a.cfg.Verbose {
				level = zerolog.DebugLevel
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: a.stderr, NoColor: !a.color}).
				Level(level).With().Timestamp().Logger()
			cmd.SetContext(logger.WithContext(cmd.Context()))
			return nil
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	pf.Bool("halt-on-error", false, "stop at the first failing field")
	pf.String("lang", "en", "message language (en, ja)")
	pf.StringP("output", "o", "json", "output format (json, yaml, toml)")
	pf.BoolP("verbose", "v", false, "enable debug logging")

	for key, flag := range map[string]string{
		"halt_on_error": "halt-on-error",
		"language":      "lang",
		"format":        "output",
		"verbose":       "verbose",
	} {
		_ = a.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		newValidateCmd(a),
		newSerializeCmd(a),
		newDeserializeCmd(a),
		newJSONSchemaCmd(a),
	)
	return root
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("CIRI")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("language", "en")
	v.SetDefault("format", "json")
	return v
}

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{
		v:      newViper(),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		color:  isTerminal(stdout),
	}
	root := newRootCmd(a)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			if ee.err != nil {
				fmt.Fprintln(stderr, "Error:", ee.err)
			}
			return ee.code
		}
		fmt.Fprintln(stderr, "Error:", err)
		return 2
	}
	return 0
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
