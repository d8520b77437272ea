package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoByTwo() []Dimension {
	return []Dimension{
		{Name: "os", Values: []string{"A", "B"}},
		{Name: "ver", Values: []string{"1", "2"}},
	}
}

func jobNames(jobs []*Job) []string {
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name)
	}
	return names
}

func TestResolve_FullCrossProduct(t *testing.T) {
	t.Parallel()

	jobs, err := Resolve(twoByTwo(), nil, nil)
	require.NoError(t, err)

	// Cardinality is the product of the value counts, enumerated with the
	// last-declared dimension varying fastest.
	require.Len(t, jobs, 4)
	assert.Equal(t, []string{
		"os=A,ver=1",
		"os=A,ver=2",
		"os=B,ver=1",
		"os=B,ver=2",
	}, jobNames(jobs))
}

func TestResolve_OrderIsDeterministic(t *testing.T) {
	t.Parallel()

	dims := []Dimension{
		{Name: "a", Values: []string{"1", "2"}},
		{Name: "b", Values: []string{"x", "y", "z"}},
		{Name: "c", Values: []string{"p"}},
	}

	first, err := Resolve(dims, nil, nil)
	require.NoError(t, err)
	require.Len(t, first, 6)

	for i := 0; i < 10; i++ {
		again, err := Resolve(dims, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, jobNames(first), jobNames(again))
	}
}

func TestResolve_ExcludeRemovesCombination(t *testing.T) {
	t.Parallel()

	jobs, err := Resolve(twoByTwo(), []Rule{{"os": "B", "ver": "1"}}, nil)
	require.NoError(t, err)

	require.Len(t, jobs, 3)
	assert.Equal(t, []string{
		"os=A,ver=1",
		"os=A,ver=2",
		"os=B,ver=2",
	}, jobNames(jobs))
}

func TestResolve_PartialExcludeIsWildcard(t *testing.T) {
	t.Parallel()

	// Naming only os=B removes every B combination.
	jobs, err := Resolve(twoByTwo(), []Rule{{"os": "B"}}, nil)
	require.NoError(t, err)

	require.Len(t, jobs, 2)
	assert.Equal(t, []string{"os=A,ver=1", "os=A,ver=2"}, jobNames(jobs))
}

func TestResolve_UnknownExcludeValueIsNoOp(t *testing.T) {
	t.Parallel()

	// An exclude naming a value never declared degrades silently.
	jobs, err := Resolve(twoByTwo(), []Rule{{"os": "Z"}, {"cpu": "arm64"}}, nil)
	require.NoError(t, err)
	assert.Len(t, jobs, 4)
}

func TestResolve_IncludeMergesExtraFields(t *testing.T) {
	t.Parallel()

	includes := []IncludeRule{
		{Match: Rule{"os": "A", "ver": "1"}, Extra: map[string]string{"extra": "x"}},
	}
	jobs, err := Resolve(twoByTwo(), nil, includes)
	require.NoError(t, err)
	require.Len(t, jobs, 4)

	assert.Equal(t, map[string]string{"extra": "x"}, jobs[0].Extra)
	for _, job := range jobs[1:] {
		assert.Empty(t, job.Extra, "other jobs must be unaffected")
	}
}

func TestResolve_IncludeMatchesMultiple(t *testing.T) {
	t.Parallel()

	// A partial include merges independently into every matching survivor.
	includes := []IncludeRule{
		{Match: Rule{"os": "A"}, Extra: map[string]string{"cache": "on"}},
	}
	jobs, err := Resolve(twoByTwo(), nil, includes)
	require.NoError(t, err)
	require.Len(t, jobs, 4)

	assert.Equal(t, "on", jobs[0].Extra["cache"])
	assert.Equal(t, "on", jobs[1].Extra["cache"])
	assert.Empty(t, jobs[2].Extra)
	assert.Empty(t, jobs[3].Extra)
}

func TestResolve_LaterIncludeWinsConflicts(t *testing.T) {
	t.Parallel()

	includes := []IncludeRule{
		{Match: Rule{"os": "A", "ver": "1"}, Extra: map[string]string{"extra": "x"}},
		{Match: Rule{"os": "A", "ver": "1"}, Extra: map[string]string{"extra": "y"}},
	}
	jobs, err := Resolve(twoByTwo(), nil, includes)
	require.NoError(t, err)

	assert.Equal(t, "y", jobs[0].Extra["extra"], "later-declared include fields win")
}

func TestResolve_IncludeMergeIsIdempotent(t *testing.T) {
	t.Parallel()

	rule := IncludeRule{Match: Rule{"os": "A", "ver": "1"}, Extra: map[string]string{"extra": "x"}}

	once, err := Resolve(twoByTwo(), nil, []IncludeRule{rule})
	require.NoError(t, err)
	twice, err := Resolve(twoByTwo(), nil, []IncludeRule{rule, rule})
	require.NoError(t, err)

	assert.Equal(t, once[0].Extra, twice[0].Extra)
	assert.Len(t, twice, 4, "re-applying the same include must not synthesize a new job")
}

func TestResolve_NonMatchingIncludeSynthesizesJob(t *testing.T) {
	t.Parallel()

	includes := []IncludeRule{
		{Match: Rule{"os": "C", "ver": "3"}, Extra: map[string]string{"extra": "y"}},
	}
	jobs, err := Resolve(twoByTwo(), nil, includes)
	require.NoError(t, err)
	require.Len(t, jobs, 5)

	added := jobs[4]
	assert.True(t, added.Synthesized)
	assert.Equal(t, "os=C,ver=3", added.Name)
	assert.Equal(t, map[string]string{"os": "C", "ver": "3"}, added.Values)
	assert.Equal(t, map[string]string{"extra": "y"}, added.Extra)
}

func TestResolve_IncludeAfterExclude(t *testing.T) {
	t.Parallel()

	// Excludes always apply first: an include targeting an excluded
	// combination finds no survivor and synthesizes a standalone job.
	excludes := []Rule{{"os": "B", "ver": "1"}}
	includes := []IncludeRule{
		{Match: Rule{"os": "B", "ver": "1"}, Extra: map[string]string{"revived": "yes"}},
	}
	jobs, err := Resolve(twoByTwo(), excludes, includes)
	require.NoError(t, err)
	require.Len(t, jobs, 4)

	added := jobs[3]
	assert.True(t, added.Synthesized)
	assert.Equal(t, "yes", added.Extra["revived"])
}

func TestResolve_EmptyDimensions(t *testing.T) {
	t.Parallel()

	jobs, err := Resolve(nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	// A dimension with no values empties the whole cross-product.
	jobs, err = Resolve([]Dimension{
		{Name: "os", Values: []string{"A"}},
		{Name: "ver", Values: nil},
	}, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestResolve_ValidationErrors(t *testing.T) {
	t.Parallel()

	_, err := Resolve([]Dimension{
		{Name: "os", Values: []string{"A", "A"}},
	}, nil, nil)
	require.ErrorContains(t, err, "duplicate value")

	_, err = Resolve([]Dimension{
		{Name: "os", Values: []string{"A"}},
		{Name: "os", Values: []string{"B"}},
	}, nil, nil)
	require.ErrorContains(t, err, "declared more than once")
}
