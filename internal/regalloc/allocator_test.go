// SPDX-License-Identifier: Apache-2.0

package regalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFrame struct {
	used      map[Register]bool
	usedSSE   map[Register]bool
	spillArea int
}

func newFakeFrame() *fakeFrame {
	return &fakeFrame{used: map[Register]bool{}, usedSSE: map[Register]bool{}}
}
func (f *fakeFrame) UseRegister(r Register)    { f.used[r] = true }
func (f *fakeFrame) UseSSERegister(r Register) { f.usedSSE[r] = true }
func (f *fakeFrame) EnsureSpillArea(n int)     { f.spillArea = n }

func gpTarget() Target {
	const RAX, RCX, RBX, R12 Register = 0, 1, 2, 3
	return Target{
		GeneralPurpose: []Register{RAX, RCX, RBX, R12},
		CalleeSaved:    map[Register]bool{RBX: true, R12: true},
	}
}

// S6: two general-purpose vregs, lifetimes [0,5] and [3,8], one
// Requirement(RAX) the other Hint(RAX): the hinted one lands on a
// different caller-saved register; no spill.
func TestAllocatorS6RequirementBeatsHint(t *testing.T) {
	const RAX Register = 0
	v1 := NewVReg(1, KindGeneralPurpose, 0, 5)
	v1.Preallocation = &Preallocation{Requirement: &RAX}
	v2 := NewVReg(2, KindGeneralPurpose, 3, 8)
	v2.Preallocation = &Preallocation{Hint: &RAX}

	p := &Program{CodeLength: 10, VRegs: []*VReg{v1, v2}}
	a := &Allocator{Target: gpTarget()}
	frame := newFakeFrame()
	require.NoError(t, a.Run(p, frame))

	assert.Equal(t, AllocRegister, v1.Result.Tag)
	assert.Equal(t, RAX, v1.Result.Register)
	assert.Equal(t, AllocRegister, v2.Result.Tag)
	assert.NotEqual(t, RAX, v2.Result.Register)
	assert.Equal(t, 0, frame.spillArea)
}

// Property 6: overlapping vregs in a common virtual block never share
// a physical register, even when a Requirement asks for the same one
// the other already holds.
func TestAllocatorInterferenceRejectsConflictingRequirement(t *testing.T) {
	const RAX Register = 0
	v1 := NewVReg(1, KindGeneralPurpose, 0, 5)
	v1.Preallocation = &Preallocation{Requirement: &RAX}
	v2 := NewVReg(2, KindGeneralPurpose, 2, 6)
	v2.Preallocation = &Preallocation{Requirement: &RAX}

	p := &Program{CodeLength: 10, VRegs: []*VReg{v1, v2}}
	a := &Allocator{Target: gpTarget()}
	err := a.Run(p, newFakeFrame())
	require.Error(t, err)
}

// Property 6: non-overlapping vregs may share a physical register.
func TestAllocatorNonOverlappingCanShareRegister(t *testing.T) {
	v1 := NewVReg(1, KindGeneralPurpose, 0, 2)
	v2 := NewVReg(2, KindGeneralPurpose, 3, 5)

	p := &Program{CodeLength: 10, VRegs: []*VReg{v1, v2}}
	a := &Allocator{Target: gpTarget()}
	require.NoError(t, a.Run(p, newFakeFrame()))
	assert.Equal(t, v1.Result.Register, v2.Result.Register)
}

// Property 7: allocator determinism — identical input produces a
// byte-identical (here: deep-equal) allocation result across runs.
func TestAllocatorDeterministic(t *testing.T) {
	build := func() *Program {
		return &Program{
			CodeLength: 12,
			VRegs: []*VReg{
				NewVReg(1, KindGeneralPurpose, 0, 4),
				NewVReg(2, KindGeneralPurpose, 1, 6),
				NewVReg(3, KindGeneralPurpose, 5, 10),
			},
		}
	}

	p1, p2 := build(), build()
	a := &Allocator{Target: gpTarget()}
	require.NoError(t, a.Run(p1, newFakeFrame()))
	require.NoError(t, a.Run(p2, newFakeFrame()))

	for i := range p1.VRegs {
		assert.Equal(t, p1.VRegs[i].Result, p2.VRegs[i].Result)
	}
}

func TestSpillBitsetFirstFitWithAlignment(t *testing.T) {
	s := &SpillBitset{}
	a := s.Allocate(1, 1)
	b := s.Allocate(2, 2)
	c := s.Allocate(1, 1)
	assert.Equal(t, 0, a)
	assert.Equal(t, 2, b)
	assert.Equal(t, 1, c)
	assert.Equal(t, 4, s.Size())
}
