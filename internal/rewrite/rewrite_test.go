package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplySplicesDescending(t *testing.T) {
	text := "aaa bbb ccc"
	out, err := Apply(text, []Replacement{
		{Start: 0, End: 3, Text: "X"},
		{Start: 8, End: 11, Text: "ZZZZ"},
		{Start: 4, End: 7, Text: "Y"},
	})
	require.NoError(t, err)
	assert.Equal(t, "X Y ZZZZ", out)
}

func TestApplyEmptyAndInsert(t *testing.T) {
	out, err := Apply("hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	// Zero-width span inserts without consuming.
	out, err = Apply("hello", []Replacement{{Start: 5, End: 5, Text: "!"}})
	require.NoError(t, err)
	assert.Equal(t, "hello!", out)
}

func TestApplyRejectsBadSpans(t *testing.T) {
	tests := []struct {
		name string
		reps []Replacement
	}{
		{"negative start", []Replacement{{Start: -1, End: 2, Text: "x"}}},
		{"end past text", []Replacement{{Start: 0, End: 99, Text: "x"}}},
		{"inverted span", []Replacement{{Start: 3, End: 1, Text: "x"}}},
		{"overlap", []Replacement{{Start: 0, End: 4, Text: "x"}, {Start: 2, End: 6, Text: "y"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply("abcdefgh", tt.reps)
			assert.Error(t, err)
		})
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	reps := []Replacement{
		{Start: 4, End: 5, Text: "Y"},
		{Start: 0, End: 1, Text: "X"},
	}
	_, err := Apply("abcdef", reps)
	require.NoError(t, err)
	// The caller's slice order must survive the internal sort.
	assert.Equal(t, 4, reps[0].Start)
	assert.Equal(t, 0, reps[1].Start)
}

func TestMerge(t *testing.T) {
	merged, err := Merge(
		[]Replacement{{Start: 10, End: 12, Text: "b"}},
		[]Replacement{{Start: 0, End: 2, Text: "a"}, {Start: 20, End: 22, Text: "c"}},
	)
	require.NoError(t, err)
	require.Len(t, merged, 3)
	assert.Equal(t, 0, merged[0].Start)
	assert.Equal(t, 10, merged[1].Start)
	assert.Equal(t, 20, merged[2].Start)

	_, err = Merge(
		[]Replacement{{Start: 0, End: 5, Text: "a"}},
		[]Replacement{{Start: 3, End: 8, Text: "b"}},
	)
	assert.Error(t, err)
}

func TestExclude(t *testing.T) {
	winners := []Replacement{{Start: 10, End: 20, Text: "w"}}
	kept, dropped := Exclude([]Replacement{
		{Start: 0, End: 5, Text: "before"},
		{Start: 12, End: 15, Text: "inside"},
		{Start: 25, End: 30, Text: "after"},
	}, winners)
	require.Len(t, kept, 2)
	require.Len(t, dropped, 1)
	assert.Equal(t, "inside", dropped[0].Text)
}

func TestOverlaps(t *testing.T) {
	a := Replacement{Start: 0, End: 5}
	assert.True(t, a.Overlaps(Replacement{Start: 4, End: 8}))
	assert.False(t, a.Overlaps(Replacement{Start: 5, End: 8}), "touching spans are disjoint")
	assert.False(t, a.Overlaps(Replacement{Start: 8, End: 10}))
}
