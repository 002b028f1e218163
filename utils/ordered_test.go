package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulateInsertsThenAdds(t *testing.T) {
	m := NewOrderedMap[int, int]()
	add := func(cur, n int) int { return cur + n }

	Accumulate(m, 2020, 10, add)
	v, ok := m.Get(2020)
	require.True(t, ok)
	assert.Equal(t, 10, v)

	Accumulate(m, 2020, 15, add)
	v, _ = m.Get(2020)
	assert.Equal(t, 25, v)
	assert.Equal(t, 1, m.Len())
}

func TestAccumulateAppendsSlices(t *testing.T) {
	m := NewOrderedMap[string, []int]()

	Accumulate(m, "key", []int{1}, AppendTo[int])
	Accumulate(m, "key", []int{100}, AppendTo[int])
	Accumulate(m, "another", []int{17}, AppendTo[int])

	v, _ := m.Get("key")
	assert.Equal(t, []int{1, 100}, v)
	assert.Equal(t, []string{"key", "another"}, m.Keys())
}

func TestOrderedMapKeepsFirstInsertPosition(t *testing.T) {
	m := NewOrderedMap[string, int]()
	m.Set("b", 1)
	m.Set("a", 2)
	m.Set("b", 3)

	assert.Equal(t, []string{"b", "a"}, m.Keys())
	v, _ := m.Get("b")
	assert.Equal(t, 3, v)
	_, ok := m.Get("c")
	assert.False(t, ok)
}

func TestOrderedMapKeysIsCopy(t *testing.T) {
	m := NewOrderedMap[int, int]()
	m.Set(1, 1)
	keys := m.Keys()
	keys[0] = 99
	assert.Equal(t, []int{1}, m.Keys())
}
