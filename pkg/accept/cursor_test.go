package accept

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdplyr/pkg/host"
)

func filled(n int) *Collection {
	c := &Collection{}
	for i := 0; i < n; i++ {
		c.Append([]any{i})
	}
	return c
}

func TestCollection_Batches(t *testing.T) {
	c := filled(BatchSize*2 + 5)
	assert.Equal(t, BatchSize*2+5, c.Len())
	require.Len(t, c.batches, 3)
	assert.Len(t, c.batches[0], BatchSize)
	assert.Len(t, c.batches[2], 5)
}

func TestCursor_NextAcrossBatches(t *testing.T) {
	done := 0
	cur := newCursor(&host.Schema{}, filled(BatchSize+10), func() { done++ })

	rows, ok := cur.Next(BatchSize - 5)
	require.True(t, ok)
	assert.Len(t, rows, BatchSize-5)

	rows, ok = cur.Next(100)
	require.True(t, ok)
	require.Len(t, rows, 15)
	assert.Equal(t, []any{BatchSize - 5}, rows[0])
	assert.Equal(t, []any{BatchSize + 9}, rows[14])
	assert.Equal(t, 0, done)

	_, ok = cur.Next(0)
	assert.False(t, ok)
	_, ok = cur.Next(0)
	assert.False(t, ok)
	assert.Equal(t, 1, done, "done callback runs once")
}

func TestCursor_All(t *testing.T) {
	cur := newCursor(&host.Schema{}, filled(3), nil)
	assert.Equal(t, [][]any{{0}, {1}, {2}}, cur.All())
	assert.Empty(t, cur.All())
}

func TestCursor_Empty(t *testing.T) {
	done := false
	cur := newCursor(&host.Schema{}, &Collection{}, func() { done = true })
	_, ok := cur.Next(10)
	assert.False(t, ok)
	assert.True(t, done)
}
