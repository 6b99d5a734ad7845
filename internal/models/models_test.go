package models

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable(t *testing.T) {
	tab := NewTable[string, int](4)

	_, ok := tab.Get("a")
	assert.False(t, ok)
	assert.Nil(t, tab.GetAll())

	tab.Add("a", 1)
	tab.Add("b", 2)
	tab.Add("a", 3)

	v, ok := tab.Get("a")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, 2, tab.Len())
	assert.ElementsMatch(t, []int{3, 2}, tab.GetAll())

	old, ok := tab.Remove("a")
	assert.True(t, ok)
	assert.Equal(t, 3, old)

	_, ok = tab.Remove("a")
	assert.False(t, ok)
	assert.Equal(t, 1, tab.Len())
}

func TestTableConcurrent(t *testing.T) {
	tab := NewTable[int, int](0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tab.Add(i, i)
			tab.GetAll()
			tab.Get(i)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, tab.Len())
}

func TestCounter(t *testing.T) {
	c := NewCounter(2)

	require.NoError(t, c.TryInc())
	require.NoError(t, c.TryInc())
	assert.ErrorIs(t, c.TryInc(), ErrorFull)
	assert.Equal(t, 2, c.Get())

	c.Dec()
	assert.NoError(t, c.TryInc())

	c.Dec()
	c.Dec()
	c.Dec()
	assert.Equal(t, 0, c.Get())
}

func TestCounterUnlimited(t *testing.T) {
	c := NewCounter(0)
	for i := 0; i < 1000; i++ {
		require.NoError(t, c.TryInc())
	}
	assert.Equal(t, 1000, c.Get())
}
