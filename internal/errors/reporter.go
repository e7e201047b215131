// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Reporter renders Analysis and NotSupported errors with Rust-style
// source snippets and carets. Only these two kinds are ever shown to a
// user (spec.md §7); every other kind is an internal-error message for
// the driver to log and abort on.
type Reporter struct {
	filename string
	lines    []string
}

// NewReporter builds a Reporter for one translation unit's source text.
func NewReporter(filename, source string) *Reporter {
	return &Reporter{filename: filename, lines: strings.Split(source, "\n")}
}

// Format renders err as a colorized, captioned source snippet. Errors
// whose Kind is neither Analysis nor NotSupported are rendered as a bare
// "internal error" line, since they carry no user-meaningful location.
func (r *Reporter) Format(err *Error) string {
	if err.Kind != Analysis && err.Kind != NotSupported {
		bold := color.New(color.FgRed, color.Bold).SprintFunc()
		return fmt.Sprintf("%s: %s\n", bold("internal error"), err.Message)
	}

	var b strings.Builder
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	levelColor := color.New(color.FgRed, color.Bold).SprintFunc()

	loc := err.Location
	b.WriteString(fmt.Sprintf("%s: %s\n", levelColor(string(err.Kind)), err.Message))

	width := lineNumberWidth(loc.Line)
	indent := strings.Repeat(" ", width)
	b.WriteString(fmt.Sprintf("%s %s %s\n", indent, dim("-->"), loc))
	b.WriteString(fmt.Sprintf("%s %s\n", indent, dim("│")))

	if loc.Line >= 1 && loc.Line <= len(r.lines) {
		b.WriteString(fmt.Sprintf("%s %s %s\n",
			bold(fmt.Sprintf("%*d", width, loc.Line)), dim("│"), r.lines[loc.Line-1]))
		marker := strings.Repeat(" ", max0(loc.Column-1)) + levelColor("^")
		b.WriteString(fmt.Sprintf("%s %s %s\n", indent, dim("│"), marker))
	}
	return b.String()
}

func lineNumberWidth(line int) int {
	w := len(fmt.Sprintf("%d", line))
	if w < 3 {
		w = 3
	}
	return w
}

func max0(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
