package state

import (
	"fmt"
	"sync"
	"testing"

	"github.com/couchcryptid/wildfire-telemetry-service/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reading(zone, node string, ts int64, temp float64) domain.Reading {
	return domain.Reading{
		ZoneID: zone, NodeID: node,
		TempC: temp, HumPct: 40, Timestamp: ts,
	}
}

func TestStore_UpsertAndLatest(t *testing.T) {
	s := NewStore(0)
	key := domain.NodeKey{ZoneID: "z1", NodeID: "n1"}

	_, ok := s.Latest(key)
	assert.False(t, ok, "unseen node should be absent")

	r1 := reading("z1", "n1", 100, 21.0)
	s.Upsert(r1, domain.Derive(r1))

	rec, ok := s.Latest(key)
	require.True(t, ok)
	assert.Equal(t, r1, rec.Latest)
	assert.Len(t, rec.History, 1)

	// A second reading replaces latest and appends to history.
	r2 := reading("z1", "n1", 200, 23.5)
	s.Upsert(r2, domain.Derive(r2))

	rec, ok = s.Latest(key)
	require.True(t, ok)
	assert.Equal(t, r2, rec.Latest)
	require.Len(t, rec.History, 2)
	assert.Equal(t, int64(100), rec.History[0].Timestamp)
	assert.Equal(t, int64(200), rec.History[1].Timestamp)
}

func TestStore_HistoryWindowEvictsOldestFirst(t *testing.T) {
	const limit = 500
	s := NewStore(limit)
	key := domain.NodeKey{ZoneID: "z1", NodeID: "n1"}

	const total = limit + 137
	for i := 0; i < total; i++ {
		r := reading("z1", "n1", int64(i), 20)
		s.Upsert(r, domain.Derive(r))
	}

	rec, ok := s.Latest(key)
	require.True(t, ok)
	require.Len(t, rec.History, limit)

	// Earliest entries evicted; latest `limit` present in original order.
	for i, sample := range rec.History {
		assert.Equal(t, int64(total-limit+i), sample.Timestamp)
	}
}

func TestStore_NodesAreIndependent(t *testing.T) {
	s := NewStore(3)

	for i := 0; i < 10; i++ {
		r := reading("z1", "n1", int64(i), 20)
		s.Upsert(r, domain.Derive(r))
	}
	r := reading("z2", "n7", 999, 30)
	s.Upsert(r, domain.Derive(r))

	recA, ok := s.Latest(domain.NodeKey{ZoneID: "z1", NodeID: "n1"})
	require.True(t, ok)
	assert.Len(t, recA.History, 3)

	recB, ok := s.Latest(domain.NodeKey{ZoneID: "z2", NodeID: "n7"})
	require.True(t, ok)
	assert.Len(t, recB.History, 1)

	assert.Equal(t, 2, s.Len())
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := NewStore(0)
	r := reading("z1", "n1", 100, 21)
	s.Upsert(r, domain.Derive(r))

	snap := s.Snapshot()
	require.Contains(t, snap, "z1/n1")

	// Mutating the snapshot must not leak back into the store.
	rec := snap["z1/n1"]
	rec.History[0].TempC = -273
	rec.Latest.TempC = -273
	snap["z1/n1"] = rec

	fresh, ok := s.Latest(domain.NodeKey{ZoneID: "z1", NodeID: "n1"})
	require.True(t, ok)
	assert.Equal(t, 21.0, fresh.Latest.TempC)
	assert.Equal(t, 21.0, fresh.History[0].TempC)

	if diff := cmp.Diff(s.Snapshot()["z1/n1"], fresh); diff != "" {
		t.Errorf("snapshot/latest mismatch (-snapshot +latest):\n%s", diff)
	}
}

func TestStore_ConcurrentUpserts(t *testing.T) {
	const (
		writers    = 8
		perWriter  = 200
		windowSize = 100
	)
	s := NewStore(windowSize)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				// Same key from every writer plus a per-writer key.
				shared := reading("z1", "shared", int64(w*perWriter+i), 20)
				s.Upsert(shared, domain.Derive(shared))

				own := reading("z1", fmt.Sprintf("n%d", w), int64(i), 25)
				s.Upsert(own, domain.Derive(own))
			}
		}(w)
	}
	wg.Wait()

	rec, ok := s.Latest(domain.NodeKey{ZoneID: "z1", NodeID: "shared"})
	require.True(t, ok)
	assert.Len(t, rec.History, windowSize, "window must never exceed its bound")

	for w := 0; w < writers; w++ {
		rec, ok := s.Latest(domain.NodeKey{ZoneID: "z1", NodeID: fmt.Sprintf("n%d", w)})
		require.True(t, ok)
		assert.Len(t, rec.History, windowSize)
		// Per-writer keys saw strictly ordered writes; samples stay ordered.
		for i := 1; i < len(rec.History); i++ {
			assert.Greater(t, rec.History[i].Timestamp, rec.History[i-1].Timestamp)
		}
	}
}
