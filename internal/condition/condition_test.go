package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/matrixci/internal/report"
)

func evalString(t *testing.T, src string, cctx Context) (bool, error) {
	t.Helper()
	cond, err := ParseString(src, "test.hcl")
	require.NoError(t, err)
	return cond.Evaluate(cctx)
}

func TestEvaluate_Literals(t *testing.T) {
	t.Parallel()

	ok, err := evalString(t, "true", Context{})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = evalString(t, "false", Context{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluate_MatrixValues(t *testing.T) {
	t.Parallel()

	cctx := Context{Matrix: map[string]string{"os": "linux", "ver": "3.12", "coverage": "true"}}

	ok, err := evalString(t, `matrix.os == "linux"`, cctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = evalString(t, `matrix.ver == "3.9"`, cctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// Extra fields merged by include rules are visible under matrix too.
	ok, err = evalString(t, `matrix.coverage == "true" && matrix.os != "windows"`, cctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluate_StepOutcomes(t *testing.T) {
	t.Parallel()

	cctx := Context{
		Steps: map[string]report.StepState{
			"lint":  report.StepSucceeded,
			"build": report.StepFailed,
		},
	}

	ok, err := evalString(t, `steps.lint.outcome == "succeeded"`, cctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = evalString(t, `steps.build.outcome == "succeeded"`, cctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluate_Platform(t *testing.T) {
	t.Parallel()

	ok, err := evalString(t, `platform == "linux"`, Context{Platform: "linux"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluate_StatusFunctions(t *testing.T) {
	t.Parallel()

	ok, err := evalString(t, "always()", Context{PriorFailure: true})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = evalString(t, "success()", Context{PriorFailure: false})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = evalString(t, "success()", Context{PriorFailure: true})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = evalString(t, "failure()", Context{PriorFailure: true})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluate_Errors(t *testing.T) {
	t.Parallel()

	// Unknown references are evaluation errors, surfaced to the caller;
	// the executor turns them into a skip plus a diagnostic.
	ok, err := evalString(t, `matrix.nope == "x"`, Context{})
	assert.Error(t, err)
	assert.False(t, ok)

	// Non-boolean results are rejected.
	ok, err = evalString(t, `"hello"`, Context{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want bool")
	assert.False(t, ok)
}

func TestParseString_Malformed(t *testing.T) {
	t.Parallel()

	_, err := ParseString(`matrix.os ==`, "test.hcl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid condition")
}

func TestAlwaysRuns(t *testing.T) {
	t.Parallel()

	cases := []struct {
		expr string
		want bool
	}{
		{"always()", true},
		{`always() && matrix.os == "linux"`, true},
		{`matrix.os == "linux" ? always() : false`, true},
		{"success()", false},
		{"true", false},
	}
	for _, tc := range cases {
		cond, err := ParseString(tc.expr, "test.hcl")
		require.NoError(t, err)
		assert.Equal(t, tc.want, cond.AlwaysRuns(), "expr: %s", tc.expr)
	}
}

func TestFromExpr_Nil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, FromExpr(nil))
}
