// SPDX-License-Identifier: Apache-2.0

package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"kefir/internal/lir"
	"kefir/internal/regalloc"
)

type recordingFrame struct {
	used      map[regalloc.Register]bool
	usedSSE   map[regalloc.Register]bool
	spillArea int
}

func newRecordingFrame() *recordingFrame {
	return &recordingFrame{used: map[regalloc.Register]bool{}, usedSSE: map[regalloc.Register]bool{}}
}
func (f *recordingFrame) UseRegister(r regalloc.Register)    { f.used[r] = true }
func (f *recordingFrame) UseSSERegister(r regalloc.Register) { f.usedSSE[r] = true }
func (f *recordingFrame) EnsureSpillArea(n int)              { f.spillArea = n }

func sysvTarget() regalloc.Target {
	const RAX, RCX, RBX, R12 regalloc.Register = 0, 1, 2, 3
	return regalloc.Target{
		GeneralPurpose: []regalloc.Register{RAX, RCX, RBX, R12},
		CalleeSaved:    map[regalloc.Register]bool{RBX: true, R12: true},
	}
}

// S1, end-to-end: IR = [IntConst 7, Return] lowers through SSA
// construction and register allocation with no spills and no
// callee-saved registers touched.
func TestScenarioS1EndToEnd(t *testing.T) {
	ir := lir.NewBlock("f")
	ir.Append(lir.Instruction{Op: lir.OpIntConst, IntVal: 7})
	ir.Append(lir.Instruction{Op: lir.OpReturn, HasReturn: true})

	program := &regalloc.Program{CodeLength: 0}
	frame := newRecordingFrame()

	unit, err := Run("f", ir, program, sysvTarget(), frame)
	require.NoError(t, err)
	require.Len(t, unit.Function.Blocks(), 1)

	b := unit.Function.Blocks()[0]
	assert.True(t, b.IsFinalized())
	assert.Empty(t, frame.used)
	assert.Equal(t, 0, frame.spillArea)
}

// S2, end-to-end: the branch/merge program produces four SSA blocks
// (entry, the two paths, the merge) with a φ at the merge point.
func TestScenarioS2EndToEnd(t *testing.T) {
	ir := lir.NewBlock("f")
	ir.Append(lir.Instruction{Op: lir.OpIntConst, IntVal: 0})
	ir.Append(lir.Instruction{Op: lir.OpBranch, Target: 4})
	ir.Append(lir.Instruction{Op: lir.OpIntConst, IntVal: 1})
	ir.Append(lir.Instruction{Op: lir.OpJump, Target: 5})
	ir.Append(lir.Instruction{Op: lir.OpIntConst, IntVal: 2})
	ir.Append(lir.Instruction{Op: lir.OpReturn, HasReturn: true})

	program := &regalloc.Program{CodeLength: 0}
	unit, err := Run("f", ir, program, sysvTarget(), newRecordingFrame())
	require.NoError(t, err)

	require.Len(t, unit.Function.Blocks(), 4)
	merge := unit.Function.Blocks()[3]
	require.Len(t, merge.Phis, 1)
	assert.Len(t, merge.Phis[0].Inputs, 2)
}
