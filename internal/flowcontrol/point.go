// SPDX-License-Identifier: Apache-2.0

package flowcontrol

import kerrors "kefir/internal/errors"

// Point is a stable handle to a future machine-code position (spec.md
// §3.1). It starts unresolved; any number of IR/SSA instructions may
// reference it before resolution, and all references are patched when
// it resolves.
type Point struct {
	id        int
	structure *Structure
	resolved  bool
	index     int
	refs      []func(index int)
}

// Structure returns the point's defining structure (nil if bound to the
// implicit root, or if never bound).
func (p *Point) Structure() *Structure { return p.structure }

// Resolved reports whether Resolve has been called.
func (p *Point) Resolved() bool { return p.resolved }

// Index returns the resolved instruction index. It is only meaningful
// once Resolved is true.
func (p *Point) Index() int { return p.index }

// Reference registers patch to be invoked with the point's final
// instruction index once it resolves. If the point is already resolved,
// patch fires immediately.
func (p *Point) Reference(patch func(index int)) {
	if p.resolved {
		patch(p.index)
		return
	}
	p.refs = append(p.refs, patch)
}

// Resolve fixes the point to a concrete instruction index, firing every
// registered reference's patch callback. Resolving an already-resolved
// point is an InvalidState error.
func (p *Point) Resolve(index int) error {
	if p.resolved {
		return kerrors.New(kerrors.InvalidState, "flowcontrol: point resolved twice")
	}
	p.resolved = true
	p.index = index
	for _, patch := range p.refs {
		patch(index)
	}
	p.refs = nil
	return nil
}
