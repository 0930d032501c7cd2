package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeOrderAndLength(t *testing.T) {
	local := Timeline{{"l1", 1}, {"l2", 5}, {"l3", 9}}
	followed := map[string]Timeline{
		"bob":   {{"b1", 2}, {"b2", 6}},
		"carol": {{"c1", 3}, {"c2", 4}, {"c3", 10}},
	}

	merged := Merge("alice", local, followed)

	require.Len(t, merged, len(local)+2+3)
	for i := 1; i < len(merged); i++ {
		assert.LessOrEqual(t, merged[i-1].Timestamp, merged[i].Timestamp)
	}

	counts := map[string]int{}
	for _, e := range merged {
		counts[e.Owner]++
	}
	assert.Equal(t, map[string]int{"alice": 3, "bob": 2, "carol": 3}, counts)
	assert.Equal(t, "l1", merged[0].Content)
	assert.Equal(t, "c3", merged[len(merged)-1].Content)
}

func TestMergeTieBreak(t *testing.T) {
	local := Timeline{{"self-a", 7}, {"self-b", 7}}
	followed := map[string]Timeline{
		"zed":  {{"zed", 7}},
		"adam": {{"adam-a", 7}, {"adam-b", 7}},
	}

	// Run several times: map iteration order must not leak into the result.
	for i := 0; i < 20; i++ {
		merged := Merge("mike", local, followed)

		var got []string
		for _, e := range merged {
			got = append(got, e.Content)
		}

		assert.Equal(t, []string{"adam-a", "adam-b", "self-a", "self-b", "zed"}, got)
	}
}

func TestMergeEmpty(t *testing.T) {
	merged := Merge("alice", nil, nil)
	assert.Empty(t, merged)
}
