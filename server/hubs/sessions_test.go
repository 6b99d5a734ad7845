package hubs

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryBind(t *testing.T) {
	r := NewRegistry(0)

	_, ok := r.Resolve("c1")
	assert.False(t, ok)
	assert.Empty(t, r.ConnectionsFor(1))

	r.Bind("c1", 1)
	r.Bind("c2", 1)
	r.Bind("c3", 2)

	u, ok := r.Resolve("c1")
	assert.True(t, ok)
	assert.Equal(t, uint(1), u)
	assert.ElementsMatch(t, []string{"c1", "c2"}, r.ConnectionsFor(1))
	assert.Equal(t, 3, r.Len())

	// Idempotent
	r.Bind("c1", 1)
	assert.ElementsMatch(t, []string{"c1", "c2"}, r.ConnectionsFor(1))
	assert.Equal(t, 3, r.Len())
}

func TestRegistryRebind(t *testing.T) {
	r := NewRegistry(0)

	r.Bind("c1", 1)
	r.Bind("c1", 2)

	u, _ := r.Resolve("c1")
	assert.Equal(t, uint(2), u)
	assert.Empty(t, r.ConnectionsFor(1))
	assert.Equal(t, []string{"c1"}, r.ConnectionsFor(2))
}

func TestRegistryUnbind(t *testing.T) {
	r := NewRegistry(0)

	r.Bind("c1", 1)
	r.Bind("c2", 1)
	r.Unbind("c1")
	r.Unbind("c1")
	r.Unbind("never")

	_, ok := r.Resolve("c1")
	assert.False(t, ok)
	assert.Equal(t, []string{"c2"}, r.ConnectionsFor(1))

	r.Unbind("c2")
	assert.Empty(t, r.ConnectionsFor(1))
	assert.Equal(t, 0, r.Len())
}

func TestRegistryConcurrent(t *testing.T) {
	r := NewRegistry(0)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := fmt.Sprintf("c%d", i)
			user := uint(i % 5)
			r.Bind(conn, user)
			r.Resolve(conn)
			r.ConnectionsFor(user)
			if i%2 == 0 {
				r.Unbind(conn)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, r.Len())

	// Forward and reverse maps agree
	var total int
	for u := uint(0); u < 5; u++ {
		for _, c := range r.ConnectionsFor(u) {
			got, ok := r.Resolve(c)
			assert.True(t, ok)
			assert.Equal(t, u, got)
			total++
		}
	}
	assert.Equal(t, 50, total)
}
