// SPDX-License-Identifier: Apache-2.0

package ssa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"kefir/internal/lir"
)

// S1: IR = [IntConst 7, Return], function returns int: a single block
// ending with Return, whose operand is the IntConst's value.
func TestConstructorS1SingleBlockReturn(t *testing.T) {
	src := lir.NewBlock("f")
	src.Append(lir.Instruction{Op: lir.OpIntConst, IntVal: 7})
	src.Append(lir.Instruction{Op: lir.OpReturn, HasReturn: true})

	fn, err := NewConstructor(src).Run("f")
	require.NoError(t, err)
	require.Len(t, fn.Blocks(), 1)

	b := fn.Blocks()[0]
	assert.True(t, b.IsFinalized())
	require.Len(t, b.Instructions, 2)

	ret := b.Instructions[1]
	assert.Equal(t, lir.OpReturn, ret.Op)
	require.Len(t, ret.Operands, 1)
	assert.Equal(t, b.Instructions[0].Ref, ret.Operands[0])
}

// S2 (property 5, φ-equalization): a branch to two paths that each push
// one value before merging produces a single φ at the merge block whose
// two inputs are the two paths' pushed values.
func TestConstructorS2PhiEqualization(t *testing.T) {
	src := lir.NewBlock("f")
	src.Append(lir.Instruction{Op: lir.OpIntConst, IntVal: 10}) // 0: condition
	src.Append(lir.Instruction{Op: lir.OpBranch, Target: 4})    // 1: -> block@4, fallthrough block@2
	src.Append(lir.Instruction{Op: lir.OpIntConst, IntVal: 1})  // 2: block@2
	src.Append(lir.Instruction{Op: lir.OpJump, Target: 5})      // 3: -> block@5
	src.Append(lir.Instruction{Op: lir.OpIntConst, IntVal: 2})  // 4: block@4, falls through to block@5
	src.Append(lir.Instruction{Op: lir.OpReturn, HasReturn: true}) // 5: block@5

	fn, err := NewConstructor(src).Run("f")
	require.NoError(t, err)
	require.Len(t, fn.Blocks(), 4)

	merge := fn.Blocks()[3]
	require.Len(t, merge.Phis, 1)
	phi := merge.Phis[0]
	assert.Len(t, phi.Inputs, 2)

	block1 := fn.Blocks()[1] // IntConst 1, Jump
	block2 := fn.Blocks()[2] // IntConst 2
	assert.Equal(t, block1.Instructions[0].Ref, phi.Inputs[block1.ID])
	assert.Equal(t, block2.Instructions[0].Ref, phi.Inputs[block2.ID])

	ret := merge.Instructions[len(merge.Instructions)-1]
	assert.Equal(t, lir.OpReturn, ret.Op)
	require.Len(t, ret.Operands, 1)
	assert.Equal(t, phi.Ref, ret.Operands[0])
}

// Property 4: every constructed block is finalized with a terminator,
// and no instruction references a value not yet defined on its block's
// symbolic stack (no pop-underflow errors for a well-formed program).
func TestConstructorProducesFinalizedBlocks(t *testing.T) {
	src := lir.NewBlock("f")
	src.Append(lir.Instruction{Op: lir.OpIntConst, IntVal: 1})
	src.Append(lir.Instruction{Op: lir.OpIntConst, IntVal: 2})
	src.Append(lir.Instruction{Op: lir.OpArith, Arith: lir.Add, Width: lir.W32})
	src.Append(lir.Instruction{Op: lir.OpReturn, HasReturn: true})

	fn, err := NewConstructor(src).Run("f")
	require.NoError(t, err)
	for _, b := range fn.Blocks() {
		assert.True(t, b.IsFinalized())
	}
}

// An inconsistent stack depth across predecessors of the same block is
// rejected rather than silently producing a malformed φ.
func TestConstructorRejectsInconsistentStackDepth(t *testing.T) {
	src := lir.NewBlock("f")
	src.Append(lir.Instruction{Op: lir.OpIntConst, IntVal: 0})
	src.Append(lir.Instruction{Op: lir.OpBranch, Target: 4})
	// fallthrough path: pushes one value before jumping to block@4
	src.Append(lir.Instruction{Op: lir.OpIntConst, IntVal: 1})
	src.Append(lir.Instruction{Op: lir.OpJump, Target: 4})
	// block@4 reached with depth 1 from the fallthrough path above, but
	// the branch-taken path reaches it directly with depth 0. The Return
	// pops nothing, so the depth-0 visit does not underflow first.
	src.Append(lir.Instruction{Op: lir.OpReturn})

	_, err := NewConstructor(src).Run("f")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inconsistent stack depth")
}
