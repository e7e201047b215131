// SPDX-License-Identifier: Apache-2.0

package flowcontrol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"kefir/internal/ast"
	kerrors "kefir/internal/errors"
	"kefir/internal/lir"
	"kefir/internal/semantic"
)

func freshScopes() semantic.ScopePair {
	return semantic.ScopePair{
		Ordinary: semantic.NewScope(semantic.Ordinary, nil),
		Tag:      semantic.NewScope(semantic.Tag, nil),
	}
}

// Property 1: nesting — pushing T1..Tn then popping n times returns the
// tree to the root, and the top at step k is the structure pushed at
// step k.
func TestTreeNestingProperty(t *testing.T) {
	tree := NewTree()
	tags := []Tag{Block, For, Block, If}
	var pushed []*Structure

	for _, tag := range tags {
		s, err := tree.Push(tag, freshScopes())
		require.NoError(t, err)
		assert.Same(t, s, tree.Top())
		pushed = append(pushed, s)
	}

	for i := len(pushed) - 1; i >= 0; i-- {
		assert.Same(t, pushed[i], tree.Top())
		require.NoError(t, tree.Pop())
	}
	assert.Nil(t, tree.Top())
}

func TestPopAtRootFails(t *testing.T) {
	tree := NewTree()
	err := tree.Pop()
	require.Error(t, err)
	assert.True(t, kerrors.Is(err, kerrors.InvalidState))
}

func TestPushRequiresScopes(t *testing.T) {
	tree := NewTree()
	_, err := tree.Push(Block, semantic.ScopePair{})
	require.Error(t, err)
	assert.True(t, kerrors.Is(err, kerrors.InvalidParameter))
}

// Property 2: point ownership — every allocated point is reachable from
// at most one structure, and released exactly once (modeled here as:
// the tree's point list contains it exactly once).
func TestPointOwnership(t *testing.T) {
	tree := NewTree()
	block, err := tree.Push(Block, freshScopes())
	require.NoError(t, err)

	p := tree.AllocPoint(block)
	assert.Same(t, block, p.Structure())

	count := 0
	for _, pt := range tree.points {
		if pt == p {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestBindPointFailsTwice(t *testing.T) {
	tree := NewTree()
	block, err := tree.Push(Block, freshScopes())
	require.NoError(t, err)

	p := tree.AllocPoint(nil)
	require.NoError(t, tree.BindPoint(p, block))
	err = tree.BindPoint(p, block)
	require.Error(t, err)
}

func TestPointResolutionPatchesReferences(t *testing.T) {
	tree := NewTree()
	p := tree.AllocPoint(nil)

	var patched int
	p.Reference(func(idx int) { patched = idx })
	require.NoError(t, p.Resolve(42))
	assert.Equal(t, 42, patched)

	err := p.Resolve(1)
	require.Error(t, err)
}

// Property 3 / switch case uniqueness.
func TestSwitchDuplicateCaseFails(t *testing.T) {
	tree := NewTree()
	sw, err := tree.Push(Switch, freshScopes())
	require.NoError(t, err)

	p1 := tree.AllocPoint(sw)
	p2 := tree.AllocPoint(sw)
	et := ArithmeticType{Width: lir.W32}

	require.NoError(t, sw.InsertCase(1, et, p1, ast.Position{}))
	err = sw.InsertCase(1, et, p2, ast.Position{Line: 5})
	require.Error(t, err)
	assert.True(t, kerrors.Is(err, kerrors.Analysis))
}

// S5: case 1; case 2..4; default; over int.
func TestSwitchCaseRangeAndDefault(t *testing.T) {
	tree := NewTree()
	sw, err := tree.Push(Switch, freshScopes())
	require.NoError(t, err)

	et := ArithmeticType{Width: lir.W32}
	p1 := tree.AllocPoint(sw)
	p2 := tree.AllocPoint(sw)
	pdef := tree.AllocPoint(sw)

	require.NoError(t, sw.InsertCase(1, et, p1, ast.Position{}))
	require.NoError(t, sw.InsertCaseRange(2, 4, et, p2, ast.Position{}))
	require.NoError(t, sw.SetDefault(pdef))

	keys, ranges := sw.Cases()
	assert.Equal(t, []int64{1, 2}, keys)
	assert.Equal(t, 1, ranges[1])
	assert.Equal(t, 3, ranges[2])
	assert.NotNil(t, sw.Default())

	block := lir.NewBlock("dispatch")
	require.NoError(t, sw.EmitDispatch(block, 0))
	// unit case: VStackPick, IntConst, ScalarCompare, Branch (4 incl. branch)
	// ranged case: VStackPick, IntConst, Arith(Sub), IntConst, ScalarCompare, Branch (6)
	assert.Len(t, block.Instructions, 4+6)
}

// S3: push Block, add VLA id=5, push For, push Block, jump from inner
// block to a point bound to the outer-outer root succeeds and emits a
// scope-pop for VLA id=5.
func TestLowerJumpAcrossVLABlockSucceeds(t *testing.T) {
	tree := NewTree()
	outer, err := tree.Push(Block, freshScopes())
	require.NoError(t, err)
	require.NoError(t, outer.AddVLArray(5))

	_, err = tree.Push(For, freshScopes())
	require.NoError(t, err)
	inner, err := tree.Push(Block, freshScopes())
	require.NoError(t, err)

	target := tree.AllocPoint(nil) // bound to the implicit root
	origin := tree.AllocPoint(inner)

	pops, err := tree.LowerJump(origin, target, ast.Position{})
	require.NoError(t, err)
	require.Len(t, pops, 1)
	assert.Equal(t, 5, pops[0].VLArrayID)
}

// S4: push Block(outer), push Block(inner) with VLA id=9, label L
// inside inner, pop inner, then goto L from outer fails.
func TestLowerJumpIntoVLABlockFails(t *testing.T) {
	tree := NewTree()
	outer, err := tree.Push(Block, freshScopes())
	require.NoError(t, err)

	inner, err := tree.Push(Block, freshScopes())
	require.NoError(t, err)
	require.NoError(t, inner.AddVLArray(9))
	target := tree.AllocPoint(inner)
	require.NoError(t, tree.Pop()) // pop inner

	origin := tree.AllocPoint(outer)
	_, err = tree.LowerJump(origin, target, ast.Position{Line: 7})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cannot jump into scope with local VLA variables")
}

func TestTraverseFindsAncestorOrNotFound(t *testing.T) {
	tree := NewTree()
	_, err := tree.Push(Block, freshScopes())
	require.NoError(t, err)
	loopStruct, err := tree.Push(For, freshScopes())
	require.NoError(t, err)
	_, err = tree.Push(Block, freshScopes())
	require.NoError(t, err)

	found, err := tree.Traverse(func(s *Structure) bool { return s.Tag() == For })
	require.NoError(t, err)
	assert.Same(t, loopStruct, found)

	_, err = tree.Traverse(func(s *Structure) bool { return s.Tag() == Switch })
	require.Error(t, err)
	assert.True(t, kerrors.Is(err, kerrors.NotFound))
}
