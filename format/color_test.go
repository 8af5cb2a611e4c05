package format

import (
	"testing"

	"golang.org/x/term"
)

// Tests run under `go test`, whose stdout is never a terminal, so every
// Color formatter is exercised on its plain, escape-free branch.

func TestColorPlainWhenNotATerminal(t *testing.T) {
	if term.IsTerminal(1) {
		t.Skip("stdout is a terminal in this environment")
	}
	if got := Red("boom"); got != "boom" {
		t.Fatalf("Red(%q) = %q, want plain text", "boom", got)
	}
	if got := Faint("a", "b"); got != "ab" {
		t.Fatalf("Faint(a, b) = %q, want %q", got, "ab")
	}
}

func TestColorVariadicJoinsArguments(t *testing.T) {
	f := Color("[%s]")
	if got := f("x", 1, "y"); got != "x1 y" && got != "x1y" {
		// fmt.Sprint inserts a space between operands when neither is a
		// string; exact spacing isn't the point, just that everything made
		// it into the single formatted argument.
		t.Fatalf("unexpected Sprint join: %q", got)
	}
}
