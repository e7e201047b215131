// SPDX-License-Identifier: Apache-2.0

package memalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaAllocReusesFreedBuffer(t *testing.T) {
	a := NewArena()
	buf, err := a.Alloc(16)
	require.NoError(t, err)
	buf[0] = 0xFF
	a.Free(buf)

	buf2, err := a.Alloc(16)
	require.NoError(t, err)
	assert.Equal(t, byte(0), buf2[0], "reused buffer must be zeroed")
}

func TestArenaRejectsNegativeSize(t *testing.T) {
	a := NewArena()
	_, err := a.Alloc(-1)
	require.Error(t, err)
}

func TestGrowCopiesAndFreesOld(t *testing.T) {
	a := NewArena()
	old, err := a.Alloc(4)
	require.NoError(t, err)
	copy(old, []byte{1, 2, 3, 4})

	grown, err := Grow(a, old, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 0, 0, 0, 0}, grown)
	assert.Len(t, a.pool[4], 1, "old buffer must be back on the free list")
}
