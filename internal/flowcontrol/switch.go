// SPDX-License-Identifier: Apache-2.0

package flowcontrol

import (
	"kefir/internal/ast"
	kerrors "kefir/internal/errors"
	"kefir/internal/lir"
)

// ArithmeticType is the controlling expression's type, recorded by the
// first case inserted into a switch (spec.md §4.1 "verifies ...
// matches the switch's recorded type (first case sets it)").
type ArithmeticType struct {
	Width lir.Width
}

// switchPayload is the Switch structure's variant payload (spec.md
// §3.1): case-value→point, a parallel case-value→range-length map, an
// optional default point, the controlling type, and an end point.
type switchPayload struct {
	cases    map[int64]*Point
	ranges   map[int64]int
	order    []int64 // insertion order, used by the translation emitter
	defaultP *Point
	end      *Point
	exprType *ArithmeticType
}

func newSwitchPayload() *switchPayload {
	return &switchPayload{
		cases:  make(map[int64]*Point),
		ranges: make(map[int64]int),
	}
}

// End returns the switch's end-of-switch point, allocating one lazily.
func (s *Structure) End(t *Tree) *Point {
	if s.switchPayload.end == nil {
		s.switchPayload.end = t.AllocPoint(s)
	}
	return s.switchPayload.end
}

// SetDefault records the switch's default-case point. It is legal to
// call at most once; a second call is an InvalidState error.
func (s *Structure) SetDefault(p *Point) error {
	if s.tag != Switch {
		return kerrors.New(kerrors.InvalidParameter, "flowcontrol: SetDefault requires a Switch structure")
	}
	if s.switchPayload.defaultP != nil {
		return kerrors.New(kerrors.InvalidState, "flowcontrol: switch already has a default case")
	}
	s.switchPayload.defaultP = p
	return nil
}

// Default returns the switch's default-case point, or nil if absent.
func (s *Structure) Default() *Point {
	if s.tag != Switch {
		return nil
	}
	return s.switchPayload.defaultP
}

// InsertCase records a single `case value:` label, verifying exprType
// matches (or sets, if this is the first case) the switch's controlling
// type, and failing with Analysis on a duplicate key (spec.md §4.1
// "Switch case insertion", property 3).
func (s *Structure) InsertCase(value int64, exprType ArithmeticType, point *Point, loc ast.Position) error {
	return s.insertCaseRange(value, 1, exprType, point, loc)
}

// InsertCaseRange records a `case lo..hi:` range label, storing hi-lo+1
// as the range length in the parallel map (spec.md §3.1).
func (s *Structure) InsertCaseRange(lo, hi int64, exprType ArithmeticType, point *Point, loc ast.Position) error {
	if hi < lo {
		return kerrors.New(kerrors.InvalidParameter, "flowcontrol: case range hi < lo")
	}
	return s.insertCaseRange(lo, hi-lo+1, exprType, point, loc)
}

func (s *Structure) insertCaseRange(value int64, length int, exprType ArithmeticType, point *Point, loc ast.Position) error {
	if s.tag != Switch {
		return kerrors.New(kerrors.InvalidParameter, "flowcontrol: InsertCase requires a Switch structure")
	}
	if s.switchPayload.exprType == nil {
		et := exprType
		s.switchPayload.exprType = &et
	} else if s.switchPayload.exprType.Width != exprType.Width {
		return kerrors.NewAnalysis(loc, "case label type does not match switch controlling expression type")
	}
	if _, exists := s.switchPayload.cases[value]; exists {
		return kerrors.NewAnalysis(loc, "duplicate case label")
	}
	s.switchPayload.cases[value] = point
	s.switchPayload.ranges[value] = length
	s.switchPayload.order = append(s.switchPayload.order, value)
	return nil
}

// ExprType returns the switch's recorded controlling-expression type,
// or nil if no case has been inserted yet.
func (s *Structure) ExprType() *ArithmeticType {
	if s.tag != Switch {
		return nil
	}
	return s.switchPayload.exprType
}

// Cases returns the case keys in insertion order, alongside each key's
// range length (1 for an ordinary case).
func (s *Structure) Cases() ([]int64, map[int64]int) {
	return s.switchPayload.order, s.switchPayload.ranges
}

// EmitDispatch lowers the switch's recorded cases, in insertion order,
// into the linear-IR instruction sequence spec.md §4.1 describes: a
// 4-instruction VStackPick/IntConst/ScalarCompare/Branch chain per unit
// case, and the 6-instruction bounded-range form per ranged case,
// comparing at the controlling expression's recorded width. block is
// appended to in place; disc is the stack depth (argument to
// VStackPick) of the controlling expression's value.
func (s *Structure) EmitDispatch(block *lir.Block, disc int) error {
	if s.tag != Switch {
		return kerrors.New(kerrors.InvalidParameter, "flowcontrol: EmitDispatch requires a Switch structure")
	}
	if s.switchPayload.exprType == nil {
		return kerrors.New(kerrors.InvalidState, "flowcontrol: EmitDispatch on switch with no cases")
	}
	width := s.switchPayload.exprType.Width

	for _, value := range s.switchPayload.order {
		target := s.switchPayload.cases[value]
		length := s.switchPayload.ranges[value]

		if length <= 1 {
			block.Append(lir.Instruction{Op: lir.OpVStackPick, IntVal: int64(disc)})
			block.Append(lir.Instruction{Op: lir.OpIntConst, IntVal: value})
			block.Append(lir.Instruction{Op: lir.OpScalarCompare, Sign: lir.Signed, Rel: lir.Equals, Width: width})
			idx := block.Append(lir.Instruction{Op: lir.OpBranch, Width: width})
			target.Reference(func(index int) {
				inst := block.Instructions[idx]
				inst.Target = index
				block.Instructions[idx] = inst
			})
			continue
		}

		hi := value + int64(length) - 1
		// Bounded-range form (spec.md §4.1, §9 open question: exact
		// instruction count and VStackExchange tie-breaking is
		// mechanical but implementation-defined; this sequence
		// computes (v - lo) unsigned-below (hi - lo + 1), the
		// standard single-compare range-check lowering, in six
		// instructions as the spec requires.
		block.Append(lir.Instruction{Op: lir.OpVStackPick, IntVal: int64(disc)})
		block.Append(lir.Instruction{Op: lir.OpIntConst, IntVal: value})
		block.Append(lir.Instruction{Op: lir.OpArith, Arith: lir.Sub, Width: width})
		block.Append(lir.Instruction{Op: lir.OpIntConst, IntVal: hi - value + 1})
		block.Append(lir.Instruction{Op: lir.OpScalarCompare, Sign: lir.Unsigned, Rel: lir.Below, Width: width})
		idx := block.Append(lir.Instruction{Op: lir.OpBranch, Width: width})
		target.Reference(func(index int) {
			inst := block.Instructions[idx]
			inst.Target = index
			block.Instructions[idx] = inst
		})
	}
	return nil
}
