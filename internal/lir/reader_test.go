// SPDX-License-Identifier: Apache-2.0

package lir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseListingS1(t *testing.T) {
	block, err := ParseListing("s1", `
		IntConst 7
		Return
	`)
	require.NoError(t, err)
	require.Len(t, block.Instructions, 2)
	require.Equal(t, OpIntConst, block.Instructions[0].Op)
	require.Equal(t, int64(7), block.Instructions[0].IntVal)
	require.Equal(t, OpReturn, block.Instructions[1].Op)
}

func TestParseListingForwardLabelReference(t *testing.T) {
	block, err := ParseListing("s2", `
		IntConst 0
		Branch @target 64
		IntConst 1
		Jump @end
	label target:
		IntConst 2
	label end:
		Return
	`)
	require.NoError(t, err)

	branch := block.Instructions[1]
	require.Equal(t, OpBranch, branch.Op)
	require.Equal(t, 4, branch.Target)
	require.Equal(t, W64, branch.Width)

	jump := block.Instructions[3]
	require.Equal(t, OpJump, jump.Op)
	require.Equal(t, 5, jump.Target)
}

func TestParseListingUnknownOpcode(t *testing.T) {
	_, err := ParseListing("bad", `Frobnicate 1`)
	require.Error(t, err)
}

func TestParseListingUndefinedLabel(t *testing.T) {
	_, err := ParseListing("bad", `Jump @nowhere`)
	require.Error(t, err)
}
