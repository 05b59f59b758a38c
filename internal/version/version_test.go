package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	s := String()
	if !strings.HasPrefix(s, "playcore "+Version) {
		t.Fatalf("unexpected version string: %q", s)
	}
	if !strings.Contains(s, Commit) {
		t.Fatalf("version string misses commit: %q", s)
	}
}
