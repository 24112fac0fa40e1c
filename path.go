package ciri

import (
	"strconv"
	"strings"

	"github.com/reoring/ciri/internal/pointer"
)

// fieldPath is a JSON Pointer held as escaped reference tokens.
type fieldPath []string

func (p fieldPath) key(name string) fieldPath {
	if name == "" {
		return p
	}
	return p.push(pointer.Escape(name))
}

func (p fieldPath) index(i int) fieldPath { return p.push(strconv.Itoa(i)) }

// push never aliases the receiver's backing array.
func (p fieldPath) push(tok string) fieldPath {
	out := make(fieldPath, len(p), len(p)+1)
	copy(out, p)
	return append(out, tok)
}

func (p fieldPath) String() string {
	if len(p) == 0 {
		return "/"
	}
	return "/" + strings.Join(p, "/")
}
