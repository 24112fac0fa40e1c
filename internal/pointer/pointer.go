// Package pointer builds RFC 6901 JSON Pointers.
package pointer

import "strings"

var escaper = strings.NewReplacer("~", "~0", "/", "~1")

// Escape encodes one reference token ('~' as "~0", '/' as "~1").
func Escape(tok string) string { return escaper.Replace(tok) }

// Child appends the escaped token to base. The root pointer is "/".
func Child(base, tok string) string {
	if base == "" || base == "/" {
		return "/" + Escape(tok)
	}
	return base + "/" + Escape(tok)
}
