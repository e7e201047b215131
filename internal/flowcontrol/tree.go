// SPDX-License-Identifier: Apache-2.0

// Package flowcontrol implements spec.md §3.1/§4.1: the flow-control
// tree attached to the syntax tree during semantic analysis, recording
// every lexical scope, loop, switch, and jump target. Grounded on the
// teacher's internal/semantic/flow_analyzer.go traversal/error-emission
// style and on original_source's headers/kefir/ast/flow_control.h and
// source/ast/flow_control.c.
package flowcontrol

import (
	kerrors "kefir/internal/errors"
	"kefir/internal/semantic"
)

// Tag identifies a flow-control structure's kind (spec.md §3.1).
type Tag int

const (
	Block Tag = iota
	If
	Switch
	For
	While
	DoWhile
)

func (t Tag) String() string {
	switch t {
	case Block:
		return "Block"
	case If:
		return "If"
	case Switch:
		return "Switch"
	case For:
		return "For"
	case While:
		return "While"
	case DoWhile:
		return "DoWhile"
	default:
		return "Unknown"
	}
}

// Tree is the flow-control tree for one function body. The root is
// implicit (spec.md §3.1 invariant): Current is nil while positioned at
// the root, and the root's children are the function body's top-level
// structures.
type Tree struct {
	roots   []*Structure
	current *Structure
	points  []*Point
}

// NewTree returns a fresh, empty tree positioned at the root.
func NewTree() *Tree {
	return &Tree{}
}

// Top returns the current structure, or nil at the root.
func (t *Tree) Top() *Structure {
	return t.current
}

// Push starts a new structure of the given tag as a child of the
// current structure (or of the implicit root), and makes it current.
// It fails if scopes is the zero ScopePair, matching spec.md §4.1
// "fails if scopes missing".
func (t *Tree) Push(tag Tag, scopes semantic.ScopePair) (*Structure, error) {
	if scopes.Ordinary == nil || scopes.Tag == nil {
		return nil, kerrors.New(kerrors.InvalidParameter, "flowcontrol: Push requires both ordinary and tag scopes")
	}

	s := &Structure{
		tag:    tag,
		parent: t.current,
		scopes: scopes,
		tree:   t,
	}
	switch tag {
	case If:
		s.ifPayload = &ifPayload{}
	case Switch:
		s.switchPayload = newSwitchPayload()
	case For, While, DoWhile:
		s.loopPayload = &loopPayload{}
	case Block:
		s.blockPayload = &blockPayload{}
	}

	if t.current != nil {
		t.current.children = append(t.current.children, s)
	} else {
		t.roots = append(t.roots, s)
	}
	t.current = s
	return s, nil
}

// Pop closes the current structure, running its cleanup callback (if
// any) and making its parent current. It fails at the root (spec.md
// §4.1).
func (t *Tree) Pop() error {
	if t.current == nil {
		return kerrors.New(kerrors.InvalidState, "flowcontrol: Pop at root")
	}
	s := t.current
	if s.popped {
		return kerrors.New(kerrors.InvalidState, "flowcontrol: structure popped twice")
	}
	s.popped = true
	if s.cleanup != nil {
		s.cleanup()
	}
	t.current = s.parent
	return nil
}

// Traverse climbs the parent chain from the current structure, calling
// predicate on each, and returns the first structure for which it
// returns true. It returns a NotFound error if the root is reached
// without a match (spec.md §4.1).
func (t *Tree) Traverse(predicate func(*Structure) bool) (*Structure, error) {
	for s := t.current; s != nil; s = s.parent {
		if predicate(s) {
			return s, nil
		}
	}
	return nil, kerrors.New(kerrors.NotFound, "flowcontrol: Traverse found no matching structure")
}

// AllocPoint allocates a new, unresolved flow-control point owned by
// the tree. If parent is non-nil the point is bound to it immediately;
// otherwise it starts unbound and must be bound later with BindPoint.
func (t *Tree) AllocPoint(parent *Structure) *Point {
	p := &Point{id: len(t.points), structure: parent}
	t.points = append(t.points, p)
	return p
}

// BindPoint attaches a previously unbound point to parent. It fails if
// the point is already bound (spec.md §3.1 "a point's structure
// back-pointer never changes after first bind").
func (t *Tree) BindPoint(p *Point, parent *Structure) error {
	if p.structure != nil {
		return kerrors.New(kerrors.InvalidState, "flowcontrol: point already bound to a structure")
	}
	if parent == nil {
		return kerrors.New(kerrors.InvalidParameter, "flowcontrol: BindPoint requires a non-nil parent")
	}
	p.structure = parent
	return nil
}

// CommonParent returns the lowest structure that is an ancestor of (or
// equal to) both points' defining structures, walking up from the root
// implicitly represented by nil. It returns NotFound only in the
// impossible case of points from unrelated trees.
func (t *Tree) CommonParent(p1, p2 *Point) (*Structure, error) {
	// The implicit root (nil) is always a common ancestor of any two
	// points belonging to this tree, so it seeds the ancestor set.
	ancestors := map[*Structure]bool{nil: true}
	for s := p1.structure; s != nil; s = s.parent {
		ancestors[s] = true
	}
	for s := p2.structure; ; s = s.parent {
		if ancestors[s] {
			return s, nil
		}
		if s == nil {
			break
		}
	}
	return nil, kerrors.New(kerrors.NotFound, "flowcontrol: no common ancestor")
}

// PointParents returns the ancestors of p (innermost first) up to, but
// excluding, topBound, matching spec.md §4.1's
// point_parents(p, list, top_bound).
func (t *Tree) PointParents(p *Point, topBound *Structure) []*Structure {
	var out []*Structure
	for s := p.structure; s != nil && s != topBound; s = s.parent {
		out = append(out, s)
	}
	return out
}
