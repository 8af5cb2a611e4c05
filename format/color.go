// Package format provides terminal-aware ANSI color helpers for the CLI
// driver's criterion/slice-summary output.
package format

import (
	"fmt"

	"golang.org/x/term"
)

var (
	// Faint renders dimmed text, used for secondary detail lines.
	Faint = Color("\033[2m%s\033[0m")
	// Red renders errors.
	Red = Color("\033[1;31m%s\033[0m")
	// Green renders success/kept-node output.
	Green = Color("\033[1;32m%s\033[0m")
	// Yellow renders warnings.
	Yellow = Color("\033[1;33m%s\033[0m")
	// Purple renders the slice-statistics summary line.
	Purple = Color("\033[1;35m%s\033[0m")
)

// Color builds a formatter that wraps its arguments in colorString when
// stdout is a terminal, and prints them plain otherwise so piped/redirected
// output stays free of escape codes.
func Color(colorString string) func(...interface{}) string {
	return func(args ...interface{}) string {
		if term.IsTerminal(1) {
			return fmt.Sprintf(colorString, fmt.Sprint(args...))
		}
		return fmt.Sprint(args...)
	}
}
