package collatz

import (
	"slices"
	"sync"
)

// Memo holds values known to eventually reach 1.
// Entries are only ever added.
type Memo interface {
	Contains(n uint64) bool
	Merge(values []uint64)
	Len() int
}

// Set is a map-backed Memo for single-threaded use.
type Set struct {
	values map[uint64]struct{}
}

// NewSet returns a Set holding seed, or {1} when no seed is given.
func NewSet(seed ...uint64) *Set {
	if len(seed) == 0 {
		seed = []uint64{1}
	}
	s := &Set{values: make(map[uint64]struct{}, len(seed))}
	s.Merge(seed)
	return s
}

// Contains reports whether n is memoized.
func (s *Set) Contains(n uint64) bool {
	_, ok := s.values[n]
	return ok
}

// Merge adds every value to the set.
func (s *Set) Merge(values []uint64) {
	for _, v := range values {
		s.values[v] = struct{}{}
	}
}

// Len returns the number of memoized values.
func (s *Set) Len() int {
	return len(s.values)
}

// Values returns the memoized values in ascending order.
func (s *Set) Values() []uint64 {
	out := make([]uint64, 0, len(s.values))
	for v := range s.values {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// SyncSet guards a Set with a RWMutex so several checks can share it.
// Contains and Merge lock separately: the memo only grows and only gains
// proven values, so a lookup racing a merge can miss a shortcut but never
// return a wrong answer.
type SyncSet struct {
	mu  sync.RWMutex
	set *Set
}

// NewSyncSet wraps set. A nil set is replaced by NewSet().
func NewSyncSet(set *Set) *SyncSet {
	if set == nil {
		set = NewSet()
	}
	return &SyncSet{set: set}
}

func (s *SyncSet) Contains(n uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.Contains(n)
}

func (s *SyncSet) Merge(values []uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set.Merge(values)
}

func (s *SyncSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.Len()
}

// Values returns a sorted copy of the memoized values.
func (s *SyncSet) Values() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.Values()
}
