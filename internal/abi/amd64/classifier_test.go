// SPDX-License-Identifier: Apache-2.0

package amd64

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Property 8 / S7: struct { double a; double b; } classifies as two
// SSE qwords, and the parameter allocator consumes two XMM registers
// for it.
func TestClassifyTwoDoubleStructIsTwoSSEQwords(t *testing.T) {
	d := &Descriptor{Entries: []Entry{
		{Kind: KindFloat64},                                   // 0: double
		{Kind: KindStruct, Fields: []Field{{TypeIndex: 0, Count: 1}, {TypeIndex: 0, Count: 1}}}, // 1: struct{double,double}
	}}
	layouts, err := ClassifyArgumentLayout(d)
	require.NoError(t, err)
	assert.Equal(t, 16, layouts[1].Size)
	assert.Equal(t, 8, layouts[1].Align)

	classes, err := ClassifyArgument(d, layouts, 1)
	require.NoError(t, err)
	require.Len(t, classes, 2)
	assert.Equal(t, SSE, classes[0])
	assert.Equal(t, SSE, classes[1])

	alloc := NewParameterAllocator()
	locs, err := alloc.Allocate(classes)
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.True(t, locs[0].IsSSE)
	assert.True(t, locs[1].IsSSE)
	assert.Equal(t, 2, alloc.SSERegistersUsed())
}

// Property 8: a single double field at offset 0 in an 8-byte struct
// classifies as one SSE qword.
func TestClassifySingleDoubleStructIsOneSSEQword(t *testing.T) {
	d := &Descriptor{Entries: []Entry{
		{Kind: KindFloat64},
		{Kind: KindStruct, Fields: []Field{{TypeIndex: 0, Count: 1}}},
	}}
	layouts, err := ClassifyArgumentLayout(d)
	require.NoError(t, err)

	classes, err := ClassifyArgument(d, layouts, 1)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, SSE, classes[0])
}

// Property 8: a long double field classifies as (X87, X87Up).
func TestClassifyLongDoubleIsX87Pair(t *testing.T) {
	d := &Descriptor{Entries: []Entry{{Kind: KindLongDouble}}}
	layouts, err := ClassifyArgumentLayout(d)
	require.NoError(t, err)
	assert.Equal(t, 16, layouts[0].Size)

	classes, err := ClassifyArgument(d, layouts, 0)
	require.NoError(t, err)
	assert.Equal(t, []QClass{X87, X87Up}, classes)
}

// Property 8: a struct { long, char } (9 bytes of members, padded to
// 16 by the long's 8-byte alignment) classifies as two Integer qwords.
func TestClassifyNineByteStructIsTwoIntegerQwords(t *testing.T) {
	d := &Descriptor{Entries: []Entry{
		{Kind: KindInt64}, // 0: long
		{Kind: KindChar},  // 1: char
		{Kind: KindStruct, Fields: []Field{{TypeIndex: 0, Count: 1}, {TypeIndex: 1, Count: 1}}}, // 2
	}}
	layouts, err := ClassifyArgumentLayout(d)
	require.NoError(t, err)
	assert.Equal(t, 16, layouts[2].Size)

	classes, err := ClassifyArgument(d, layouts, 2)
	require.NoError(t, err)
	assert.Equal(t, []QClass{Integer, Integer}, classes)
}

// Property 8: a 72-byte array classifies as Memory (exceeds the
// 64-byte aggregate-passing limit).
func TestClassifySeventyTwoByteArrayIsMemory(t *testing.T) {
	d := &Descriptor{Entries: []Entry{
		{Kind: KindInt8},
		{Kind: KindArray, Elem: 0, Fields: []Field{{Count: 72}}},
	}}
	layouts, err := ClassifyArgumentLayout(d)
	require.NoError(t, err)
	assert.Equal(t, 72, layouts[1].Size)

	classes, err := ClassifyArgument(d, layouts, 1)
	require.NoError(t, err)
	assert.Equal(t, []QClass{Memory}, classes)
}

func TestVarargSaveAreaSizing(t *testing.T) {
	// Two integer params and one SSE param consumed by named
	// arguments: 4 integer slots + 7 SSE slots remain.
	size := VarargSaveArea(2, 1)
	assert.Equal(t, 4*8+7*16, size)
}
