package go2_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"seqanim/lib/go2"
)

func TestOrderedSet(t *testing.T) {
	t.Parallel()

	s := go2.NewOrderedSet[string]()
	assert.True(t, s.Add("a"))
	assert.True(t, s.Add("b"))
	assert.True(t, s.Add("c"))
	assert.False(t, s.Add("b"))

	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	assert.True(t, s.Has("c"))
	assert.Equal(t, []string{"b", "c"}, s.Values())

	assert.True(t, s.Add("a"))
	assert.Equal(t, []string{"b", "c", "a"}, s.Values())
	assert.True(t, s.Remove("c"))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"b", "a"}, s.Values())
}

func TestMinMax(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 4, go2.Max(3, 4))
	assert.Equal(t, -1.5, go2.Max(-1.5, -2))
	assert.Equal(t, 3, go2.Min(3, 4))
}
