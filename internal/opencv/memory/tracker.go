package memory

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// AllocationInfo describes one live Mat.
type AllocationInfo struct {
	ID          uint64
	Size        int64
	Tag         string
	AllocatedAt time.Time
}

// Stats is a point-in-time summary of Mat allocations.
type Stats struct {
	TotalAllocated   int64
	TotalDeallocated int64
	CurrentlyActive  int64
	AllocationCount  int64
	UntrackedCloses  int64
	ActiveByTag      map[string]int64
}

// Tracker accounts for every frame Mat created by the pipeline. It satisfies
// safe.MemoryTracker and is safe for concurrent use from all stages.
type Tracker struct {
	allocations  map[uint64]AllocationInfo
	mu           sync.RWMutex
	totalAlloc   int64
	totalDealloc int64
	allocCount   int64
	untracked    int64
}

func NewTracker() *Tracker {
	return &Tracker{
		allocations: make(map[uint64]AllocationInfo),
	}
}

func (mt *Tracker) TrackAllocation(id uint64, size int64, tag string) {
	atomic.AddInt64(&mt.totalAlloc, size)
	atomic.AddInt64(&mt.allocCount, 1)

	mt.mu.Lock()
	mt.allocations[id] = AllocationInfo{
		ID:          id,
		Size:        size,
		Tag:         tag,
		AllocatedAt: time.Now(),
	}
	mt.mu.Unlock()
}

func (mt *Tracker) TrackDeallocation(id uint64, tag string) {
	mt.mu.Lock()
	info, exists := mt.allocations[id]
	if exists {
		delete(mt.allocations, id)
	}
	mt.mu.Unlock()

	if exists {
		atomic.AddInt64(&mt.totalDealloc, info.Size)
	} else {
		atomic.AddInt64(&mt.untracked, 1)
	}
}

// Active returns the number of Mats allocated and not yet closed.
func (mt *Tracker) Active() int {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	return len(mt.allocations)
}

func (mt *Tracker) GetStats() Stats {
	mt.mu.RLock()
	byTag := make(map[string]int64)
	for _, info := range mt.allocations {
		byTag[info.Tag]++
	}
	active := int64(len(mt.allocations))
	mt.mu.RUnlock()

	return Stats{
		TotalAllocated:   atomic.LoadInt64(&mt.totalAlloc),
		TotalDeallocated: atomic.LoadInt64(&mt.totalDealloc),
		CurrentlyActive:  active,
		AllocationCount:  atomic.LoadInt64(&mt.allocCount),
		UntrackedCloses:  atomic.LoadInt64(&mt.untracked),
		ActiveByTag:      byTag,
	}
}

// DetectLeaks lists live allocations older than minAge, oldest first.
func (mt *Tracker) DetectLeaks(minAge time.Duration) []AllocationInfo {
	cutoff := time.Now().Add(-minAge)

	mt.mu.RLock()
	var leaks []AllocationInfo
	for _, info := range mt.allocations {
		if info.AllocatedAt.Before(cutoff) {
			leaks = append(leaks, info)
		}
	}
	mt.mu.RUnlock()

	sort.Slice(leaks, func(i, j int) bool {
		return leaks[i].AllocatedAt.Before(leaks[j].AllocatedAt)
	})
	return leaks
}
