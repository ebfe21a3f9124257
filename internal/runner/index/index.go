// Package index holds the time-ordered set of upcoming fires the runner
// consults every tick.
package index

import (
	"cmp"
	"slices"
	"sort"
	"sync/atomic"
)

// ScheduledFire is one pending fire of a schedule at FireAt (unix seconds)
type ScheduledFire struct {
	ScheduleID string
	FireAt     int64
}

// Index is a time-ordered index of scheduled fires.
// It uses an atomic pointer for lock-free concurrent reads.
type Index struct {
	fires atomic.Pointer[[]ScheduledFire]
}

// New creates an index from fires. The input is copied and sorted by
// (FireAt, ScheduleID), so the caller can safely reuse it.
func New(fires []ScheduledFire) *Index {
	idx := &Index{}
	idx.Swap(fires)
	return idx
}

// Swap atomically replaces the contents of the index
func (idx *Index) Swap(fires []ScheduledFire) {
	sorted := slices.Clone(fires)
	if sorted == nil {
		sorted = []ScheduledFire{}
	}
	slices.SortFunc(sorted, func(a, b ScheduledFire) int {
		if c := cmp.Compare(a.FireAt, b.FireAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ScheduleID, b.ScheduleID)
	})
	idx.fires.Store(&sorted)
}

// Query returns the fires in [start, end), sorted by (FireAt, ScheduleID)
func (idx *Index) Query(start, end int64) []ScheduledFire {
	fires := idx.load()
	from := sort.Search(len(fires), func(i int) bool { return fires[i].FireAt >= start })
	to := sort.Search(len(fires), func(i int) bool { return fires[i].FireAt >= end })
	if from >= to {
		return []ScheduledFire{}
	}
	return slices.Clone(fires[from:to])
}

// Due returns every fire at or before now
func (idx *Index) Due(now int64) []ScheduledFire {
	fires := idx.load()
	to := sort.Search(len(fires), func(i int) bool { return fires[i].FireAt > now })
	return slices.Clone(fires[:to])
}

// Next returns the earliest fire in the index
func (idx *Index) Next() (ScheduledFire, bool) {
	fires := idx.load()
	if len(fires) == 0 {
		return ScheduledFire{}, false
	}
	return fires[0], true
}

// Len returns the number of fires in the index
func (idx *Index) Len() int {
	return len(idx.load())
}

func (idx *Index) load() []ScheduledFire {
	fires := idx.fires.Load()
	if fires == nil {
		return nil
	}
	return *fires
}
