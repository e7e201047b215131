// SPDX-License-Identifier: Apache-2.0

// Package ast holds the small pieces of the syntax-tree surface the
// middle end actually touches: source positions for diagnostics and an
// opaque node identity the flow-control tree and IR emitter key their
// side tables on. The C syntax tree itself, its parser, and its full
// node set are produced upstream and are not part of this package.
package ast

import "fmt"

// Position tracks a location in a translation unit's source text, used
// for diagnostics and for Analysis errors raised by the flow-control
// tree and SSA constructor.
type Position struct {
	Filename string
	Offset   int
	Line     int
	Column   int
}

// String renders a position as "file:line:column".
func (p Position) String() string {
	if p.Filename == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// IsZero reports whether p carries no location information.
func (p Position) IsZero() bool {
	return p == Position{}
}

// NodeID is an opaque, dense identity assigned to syntax-tree nodes by
// the front end. The middle end never interprets it beyond equality and
// uses it as a map key (e.g. VLA ids, flow-control point ancestry).
type NodeID uint32

// NodeTracker hands out NodeIDs in allocation order. It is the minimal
// stand-in for the front end's node registry: the flow-control tree and
// IR emitter are given NodeIDs rather than node pointers so that they
// never need to know the concrete syntax-tree representation.
type NodeTracker struct {
	next NodeID
}

// NewNodeTracker returns a tracker starting at id 1 (0 is reserved to
// mean "no node").
func NewNodeTracker() *NodeTracker {
	return &NodeTracker{next: 1}
}

// Allocate returns the next unused NodeID.
func (t *NodeTracker) Allocate() NodeID {
	id := t.next
	t.next++
	return id
}
