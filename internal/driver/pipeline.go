// SPDX-License-Identifier: Apache-2.0

// Package driver wires the middle-end's stages together in the order
// spec.md §5 fixes: flow-control tree finalization → IR emission → SSA
// construction → register allocation, each stage completely consuming
// the previous stage's output before the next starts (spec.md §5
// "Ordering guarantees"). It is a thin synchronous pipeline, not a
// scheduler: spec.md's concurrency model explicitly excludes
// suspension or cancellation within a single translation unit.
package driver

import (
	kerrors "kefir/internal/errors"
	"kefir/internal/lir"
	"kefir/internal/regalloc"
	"kefir/internal/ssa"
)

// Unit is one translation unit's pipeline state, built incrementally as
// each stage runs.
type Unit struct {
	Name     string
	IR       *lir.Block
	Function *ssa.Function
}

// NewUnit returns a translation unit ready to receive its linear-IR
// block from the emitter.
func NewUnit(name string) *Unit {
	return &Unit{Name: name}
}

// SetIR records the linear-IR block the AST/flow-control translator
// emitted for this unit (the stage upstream of SSA construction is out
// of this module's scope; see SPEC_FULL.md's package map).
func (u *Unit) SetIR(block *lir.Block) {
	u.IR = block
}

// ConstructSSA runs the SSA constructor over the unit's recorded IR and
// records the resulting function.
func (u *Unit) ConstructSSA() error {
	if u.IR == nil {
		return kerrors.New(kerrors.InvalidState, "driver: no linear-IR block recorded for this unit")
	}
	fn, err := ssa.NewConstructor(u.IR).Run(u.Name)
	if err != nil {
		return err
	}
	u.Function = fn
	return nil
}

// Allocate runs the register allocator over the unit's SSA function and
// the caller-supplied virtual-register program (built from the SSA
// function plus whatever virtual-block/preserve-point/stash metadata
// the emitter recorded alongside it), reporting results to frame.
func (u *Unit) Allocate(alloc *regalloc.Allocator, program *regalloc.Program, frame regalloc.StackFrame) error {
	if u.Function == nil {
		return kerrors.New(kerrors.InvalidState, "driver: SSA construction has not run for this unit")
	}
	return alloc.Run(program, frame)
}

// Run executes the whole pipeline: SSA construction followed by
// register allocation, in the order spec.md §5 requires.
func Run(name string, ir *lir.Block, program *regalloc.Program, target regalloc.Target, frame regalloc.StackFrame) (*Unit, error) {
	u := NewUnit(name)
	u.SetIR(ir)
	if err := u.ConstructSSA(); err != nil {
		return u, err
	}
	alloc := &regalloc.Allocator{Target: target}
	if err := u.Allocate(alloc, program, frame); err != nil {
		return u, err
	}
	return u, nil
}
