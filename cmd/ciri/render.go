package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/reoring/ciri"
)

type palette struct {
	key, msg, code, warn, ok, added, removed func(a ...any) string
}

// newPalette returns colored printers, or plain ones when enabled is false.
func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) func(a ...any) string {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return palette{
		key:     mk(color.Bold),
		msg:     mk(color.FgRed),
		code:    mk(color.FgHiBlack),
		warn:    mk(color.FgYellow),
		ok:      mk(color.FgGreen),
		added:   mk(color.FgGreen),
		removed: mk(color.FgRed),
	}
}

// renderErrors prints an error map as an indented tree, keys sorted:
//
//	name: This field is required [required]
//	child:
//	  age: Field is not a valid integer [invalid]
func renderErrors(w io.Writer, errs ciri.ErrorMap, p palette) {
	renderErrorLevel(w, errs, 0, p)
}

func renderErrorLevel(w io.Writer, errs ciri.ErrorMap, depth int, p palette) {
	indent := strings.Repeat("  ", depth)
	for _, k := range errs.Keys() {
		e := errs[k]
		if len(e.Errors) > 0 {
			fmt.Fprintf(w, "%s%s:\n", indent, p.key(k))
			renderErrorLevel(w, e.Errors, depth+1, p)
			continue
		}
		fmt.Fprintf(w, "%s%s: %s %s\n", indent, p.key(k), p.msg(e.Message), p.code("["+e.Key+"]"))
	}
}

func renderWarnings(w io.Writer, iss ciri.Issues, p palette) {
	for _, it := range iss {
		fmt.Fprintf(w, "%s %s: %s (%s)\n", p.warn("warning:"), it.Path, it.Message, it.Rule)
	}
}

// renderDiff prints a line diff of before and after. Unchanged lines are
// prefixed with two spaces, removed lines with "- " and added lines with "+ ".
func renderDiff(w io.Writer, before, after string, p palette) {
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	for _, d := range diffs {
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			line = strings.TrimSuffix(line, "\n")
			switch d.Type {
			case diffpatch.DiffInsert:
				fmt.Fprintln(w, p.added("+ "+line))
			case diffpatch.DiffDelete:
				fmt.Fprintln(w, p.removed("- "+line))
			default:
				fmt.Fprintln(w, "  "+line)
			}
		}
	}
}
