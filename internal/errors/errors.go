// SPDX-License-Identifier: Apache-2.0

// Package errors implements the kind taxonomy of spec.md §7: every core
// operation returns one of a closed set of error kinds, propagated
// upward by the caller rather than by panicking. Only Analysis and
// NotSupported are meant to reach an end user; the rest abort the
// compilation with an internal-error message (spec.md §7, last
// paragraph).
package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
	"kefir/internal/ast"
)

// Kind is one of the language-independent error tags from spec.md §7.
type Kind string

const (
	// InvalidParameter signals API misuse: a null input, an
	// out-of-bounds index, a call against a structure in the wrong
	// state.
	InvalidParameter Kind = "InvalidParameter"
	// InvalidState signals an internal consistency violation
	// discovered mid-pass (e.g. an unrecognized IR opcode).
	InvalidState Kind = "InvalidState"
	// Internal signals that the register allocator or ABI classifier
	// could not satisfy a request it is never expected to receive
	// from a well-formed emitter.
	Internal Kind = "InternalError"
	// Analysis is a user-visible source-level error: a duplicate case
	// label, a jump into a VLA scope, an unsupported type mix.
	Analysis Kind = "Analysis"
	// MemAllocFailure signals that the upstream allocator handle
	// (§6.3) returned a null pointer.
	MemAllocFailure Kind = "MemAllocFailure"
	// NotFound signals a lookup miss: a traversal predicate that
	// never matched, a common-ancestor search with no common ancestor.
	NotFound Kind = "NotFound"
	// NotSupported signals a feature outside the implemented subset
	// (e.g. a `_Atomic` type specifier, an atomic operand wider than
	// 16 bytes).
	NotSupported Kind = "NotSupported"
)

// Error is the concrete error value every core operation returns.
// Location is only meaningful for Analysis errors; it is the zero
// Position otherwise.
type Error struct {
	Kind     Kind
	Message  string
	Location ast.Position
	cause    error
}

func (e *Error) Error() string {
	if e.Kind == Analysis && !e.Location.IsZero() {
		return fmt.Sprintf("%s: %s: %s", e.Location, e.Kind, e.Message)
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// Format implements fmt.Formatter so that "%+v" on a wrapped Error
// prints the pkg/errors stack trace of its cause, the way reporter.go
// prints source context for an Analysis error.
func (e *Error) Format(s fmt.State, verb rune) {
	switch {
	case verb == 'v' && s.Flag('+'):
		fmt.Fprintf(s, "%s", e.Error())
		if e.cause != nil {
			fmt.Fprintf(s, "\ncaused by: %+v", e.cause)
		}
	default:
		fmt.Fprintf(s, "%s", e.Error())
	}
}

// New builds a plain Error of the given kind with no location and no
// wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// NewAnalysis builds a user-visible Analysis error at loc, matching the
// `Analysis(source_location, message)` tag of spec.md §7 and the
// exact wording spec.md §4.1 specifies for VLA-crossing jumps.
func NewAnalysis(loc ast.Position, message string) *Error {
	return &Error{Kind: Analysis, Message: message, Location: loc}
}

// Wrap lifts a lower-level Go error (a participle parse failure, a YAML
// decode error, an allocator-handle failure) into a core Error of the
// given kind, preserving a pkg/errors stack trace on cause so %+v keeps
// the original failure site visible.
func Wrap(kind Kind, cause error, message string) *Error {
	if cause == nil {
		return New(kind, message)
	}
	return &Error{Kind: kind, Message: message, cause: pkgerrors.Wrap(cause, message)}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !stdAs(err, &e) {
		return false
	}
	return e.Kind == kind
}

// stdAs is a hand-written errors.As for *Error: it follows the Unwrap
// chain from err and stores the first *Error it finds in target, so
// this package does not need to import the standard "errors" package
// under the same identifier as itself.
func stdAs(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
