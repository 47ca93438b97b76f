package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceGenerator(t *testing.T) {
	g := NewSequenceGenerator("mut")
	assert.Equal(t, "mut-1", g.Generate())
	assert.Equal(t, "mut-2", g.Generate())
}

func TestSequenceGenerator_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "id-1", NewSequenceGenerator("").Generate())
}

func TestSequenceGenerator_ThreadSafe(t *testing.T) {
	g := NewSequenceGenerator("x")
	var mu sync.Mutex
	seen := map[string]bool{}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := g.Generate()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 100)
}
