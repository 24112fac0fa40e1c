package pointer_test

import (
	"testing"

	"github.com/reoring/ciri/internal/pointer"
)

func TestChild(t *testing.T) {
	cases := []struct {
		base, tok, want string
	}{
		{"/", "a", "/a"},
		{"", "a", "/a"},
		{"/a", "b/c", "/a/b~1c"},
		{"/a", "m~n", "/a/m~0n"},
		{"/a", "~1", "/a/~01"},
	}
	for _, c := range cases {
		if got := pointer.Child(c.base, c.tok); got != c.want {
			t.Fatalf("Child(%q, %q): expected %q, got %q", c.base, c.tok, c.want, got)
		}
	}
}
