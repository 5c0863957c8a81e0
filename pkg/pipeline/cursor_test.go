package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchCursor(t *testing.T) {
	c := BatchCursor{Size: 5}

	lo, hi, ok := c.Next(7)
	assert.True(t, ok)
	assert.Equal(t, [2]int{0, 5}, [2]int{lo, hi})
	assert.False(t, c.Done(7))

	lo, hi, ok = c.Next(7)
	assert.True(t, ok)
	assert.Equal(t, [2]int{5, 7}, [2]int{lo, hi})
	assert.True(t, c.Done(7))

	_, _, ok = c.Next(7)
	assert.False(t, ok)
	assert.Equal(t, 7, c.Offset, "cursor never rewinds")
}

func TestBatchCursorEmptyAndZeroSize(t *testing.T) {
	c := BatchCursor{Size: 5}
	_, _, ok := c.Next(0)
	assert.False(t, ok)

	z := BatchCursor{}
	_, _, ok = z.Next(3)
	assert.False(t, ok)
}
