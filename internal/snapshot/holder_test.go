package snapshot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFixture(t *testing.T, generation string) *Snapshot {
	t.Helper()
	m := fixtureManifest()
	m.Generation = generation
	snap, err := Build(context.Background(), m, fixtureChunks(), nil, BuildOptions{})
	require.NoError(t, err)
	return snap
}

func TestHolder_SwapIsWholeSnapshot(t *testing.T) {
	// Given: a holder with generation g1
	g1 := buildFixture(t, "g1")
	h := NewHolder(g1)

	// When: swapping in g2
	g2 := buildFixture(t, "g2")
	old := h.Swap(g2)

	// Then: the old pointer is returned intact and readers see g2
	assert.Same(t, g1, old)
	assert.Equal(t, "g2", h.Current().Generation())
	assert.Equal(t, 3, old.Metadata.Len())

	require.NoError(t, h.Close())
	require.NoError(t, old.Close())
	assert.Nil(t, h.Current())
}

func TestHolder_ReplaceClosesRetired(t *testing.T) {
	// Given: a holder with no grace period
	g1 := buildFixture(t, "g1")
	h := NewHolder(g1)
	h.SetRetireGrace(0)

	// When: replacing the snapshot
	h.Replace(buildFixture(t, "g2"))

	// Then: the retired dense backend is closed
	_, err := g1.Dense.Search(context.Background(), []float32{1, 0, 0}, 1)
	assert.Error(t, err)
	assert.Equal(t, "g2", h.Current().Generation())
	require.NoError(t, h.Close())
}

func TestHolder_SetRetireGraceDuringReplace(t *testing.T) {
	// Given: a holder whose grace period is changed from another goroutine
	h := NewHolder(buildFixture(t, "g0"))
	gens := make([]*Snapshot, 5)
	for i := range gens {
		gens[i] = buildFixture(t, "g"+string(rune('1'+i)))
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 50 {
			h.SetRetireGrace(time.Duration(i%2) * time.Millisecond)
		}
	}()

	// When: replacing concurrently
	for _, g := range gens {
		h.Replace(g)
	}
	wg.Wait()

	// Then: the last generation is current
	assert.Equal(t, "g5", h.Current().Generation())
	require.NoError(t, h.Close())
}

func TestHolder_Empty(t *testing.T) {
	h := NewHolder(nil)
	assert.Nil(t, h.Current())
	assert.NoError(t, h.Close())
}
