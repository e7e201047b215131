// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"kefir/internal/ast"
)

func TestNewAnalysisCarriesLocation(t *testing.T) {
	loc := ast.Position{Filename: "t.c", Line: 3, Column: 5}
	err := NewAnalysis(loc, "duplicate case label")

	assert.Equal(t, Analysis, err.Kind)
	assert.Equal(t, loc, err.Location)
	assert.Contains(t, err.Error(), "duplicate case label")
	assert.Contains(t, err.Error(), "t.c:3:5")
}

func TestWrapPreservesCauseForUnwrap(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := Wrap(Internal, cause, "classifier failed")

	require.Error(t, err)
	assert.True(t, Is(err, Internal))
	assert.ErrorContains(t, err, "classifier failed")
	assert.ErrorIs(t, err, cause)
}

func TestIsFalseForOtherKinds(t *testing.T) {
	err := New(NotFound, "no common ancestor")
	assert.False(t, Is(err, Internal))
	assert.True(t, Is(err, NotFound))
}

func TestReporterFormatsAnalysisError(t *testing.T) {
	src := "int main() {\n  goto out;\n  int x[n];\nout:\n  return 0;\n}\n"
	r := NewReporter("t.c", src)
	err := NewAnalysis(ast.Position{Filename: "t.c", Line: 2, Column: 3}, "Cannot jump into scope with local VLA variables")

	out := r.Format(err)
	assert.Contains(t, out, "Cannot jump into scope with local VLA variables")
	assert.Contains(t, out, "t.c:2:3")
}

func TestReporterFormatsInternalErrorWithoutSnippet(t *testing.T) {
	r := NewReporter("t.c", "")
	out := r.Format(New(Internal, "unsatisfiable requirement"))
	assert.Contains(t, out, "internal error")
	assert.Contains(t, out, "unsatisfiable requirement")
}
