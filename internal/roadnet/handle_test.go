package roadnet

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/route-studio/roadgraph/internal/geo"
)

func TestHandle_SnapshotIsolation(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.AddNode(NewNode(1, geo.Pt(0, 0), FlagRegular)))
	h := NewHandle(s)

	before := h.Snapshot()

	h.Commit(func(st *Store) {
		require.NoError(t, st.AddNode(NewNode(2, geo.Pt(1, 1), FlagRegular)))
	})

	assert.Equal(t, 1, before.NodeCount(), "pre-commit snapshot keeps its view")
	after := h.Snapshot()
	assert.Equal(t, 2, after.NodeCount())
}

func TestHandle_CommitDoesNotAffectOlderSnapshotOnMutation(t *testing.T) {
	h := NewHandle(nil)
	h.Commit(func(st *Store) {
		require.NoError(t, st.AddNode(NewNode(1, geo.Pt(0, 0), FlagRegular)))
	})

	snap := h.Snapshot()
	// Mutating the snapshot never leaks into the shared store.
	snap.MoveNode(1, geo.Pt(99, 99))

	h.View(func(st *Store) {
		n, _ := st.Node(1)
		assert.Equal(t, geo.Pt(0, 0), n.Pos)
	})
}

func TestHandle_Swap(t *testing.T) {
	h := NewHandle(nil)

	next := NewStore()
	require.NoError(t, next.AddNode(NewNode(7, geo.Pt(3, 3), FlagRegular)))
	h.Swap(next)

	snap := h.Snapshot()
	_, ok := snap.Node(7)
	assert.True(t, ok)
}

func TestHandle_ConcurrentReadersDuringCommits(t *testing.T) {
	h := NewHandle(nil)
	h.Commit(func(st *Store) {
		for i := uint64(1); i <= 64; i++ {
			require.NoError(t, st.AddNode(NewNode(i, geo.Pt(float32(i), 0), FlagRegular)))
		}
	})

	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				snap := h.Snapshot()
				if _, ok := snap.NearestNode(geo.Pt(32, 0)); !ok {
					t.Error("snapshot lost its nodes")
					return
				}
			}
		}()
	}

	for i := uint64(65); i <= 96; i++ {
		id := i
		h.Commit(func(st *Store) {
			if err := st.AddNode(NewNode(id, geo.Pt(float32(id), 0), FlagRegular)); err != nil {
				t.Error(err)
			}
		})
	}
	wg.Wait()

	assert.Equal(t, 96, h.Snapshot().NodeCount())
}
