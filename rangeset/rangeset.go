// Package rangeset implements the coalesced, sorted interval set that a
// stream receive buffer uses to track which absolute byte offsets have been
// written. Intervals are half-open: [Low, Low+Count).
package rangeset

import (
	"sort"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

// Range is a single half-open interval [Low, Low+Count) of absolute stream
// offsets.
type Range[T constraints.Unsigned] struct {
	Low   T
	Count T
}

// High returns the exclusive upper bound of the range.
func (r Range[T]) High() T {
	return r.Low + r.Count
}

// Set is a sorted, disjoint, coalesced collection of Ranges. The zero value
// is an empty set ready for use.
//
// Set is not safe for concurrent use; callers of a reassembly buffer already
// serialize access to the buffer and, transitively, to its Set.
type Set[T constraints.Unsigned] struct {
	ranges []Range[T]

	// maxEntries caps the number of disjoint ranges retained; 0 means
	// unbounded. A caller that never drains low offsets while receiving
	// wildly out-of-order data could otherwise grow this set without bound.
	maxEntries int
}

// New creates an empty Set. maxEntries bounds the number of disjoint ranges
// the set will hold; 0 means unbounded.
func New[T constraints.Unsigned](maxEntries int) *Set[T] {
	return &Set[T]{maxEntries: maxEntries}
}

// Size returns the number of disjoint ranges currently stored.
func (s *Set[T]) Size() int {
	return len(s.ranges)
}

// Get returns the i'th range. It panics if i is out of bounds; callers that
// want a safe variant should use GetSafe.
func (s *Set[T]) Get(i int) Range[T] {
	return s.ranges[i]
}

// GetSafe returns the i'th range and true, or the zero Range and false if i
// is out of bounds.
func (s *Set[T]) GetSafe(i int) (Range[T], bool) {
	if i < 0 || i >= len(s.ranges) {
		return Range[T]{}, false
	}
	return s.ranges[i], true
}

// GetMaxSafe returns the exclusive upper bound of the last range (i.e. one
// past the highest offset ever observed) and true, or 0 and false if the set
// is empty.
func (s *Set[T]) GetMaxSafe() (T, bool) {
	if len(s.ranges) == 0 {
		var zero T
		return zero, false
	}
	last := s.ranges[len(s.ranges)-1]
	return last.High(), true
}

// Add inserts [low, low+count) into the set, coalescing with any adjacent or
// overlapping ranges. It returns the (possibly larger, coalesced) range that
// now contains the inserted interval, and updated reporting whether the set
// actually changed (false if the inserted interval was already fully
// covered).
//
// ok is false only when the maxEntries cap would be exceeded by an insertion
// that creates a new disjoint range; this is the set's analogue of the
// allocator failure the written-range set's out-of-memory contract allows.
func (s *Set[T]) Add(low, count T) (result Range[T], updated bool, ok bool) {
	if count == 0 {
		return Range[T]{}, false, true
	}
	high := low + count

	// Find the first range whose High() >= low: everything before this
	// index ends strictly before our interval starts and cannot merge.
	start := sort.Search(len(s.ranges), func(i int) bool {
		return s.ranges[i].High() >= low
	})

	// Find the first range whose Low() > high: everything from start up to
	// (but not including) this index overlaps or touches our interval.
	end := sort.Search(len(s.ranges), func(i int) bool {
		return s.ranges[i].Low > high
	})

	if start == end {
		// No overlap with any existing range: insert a new disjoint entry.
		if s.maxEntries > 0 && len(s.ranges) >= s.maxEntries {
			return Range[T]{}, false, false
		}
		newRange := Range[T]{Low: low, Count: count}
		s.ranges = append(s.ranges, Range[T]{})
		copy(s.ranges[start+1:], s.ranges[start:])
		s.ranges[start] = newRange
		return newRange, true, true
	}

	// Merge [start, end) with the new interval.
	mergedLow := low
	mergedHigh := high
	if s.ranges[start].Low < mergedLow {
		mergedLow = s.ranges[start].Low
	}
	if s.ranges[end-1].High() > mergedHigh {
		mergedHigh = s.ranges[end-1].High()
	}

	unchanged := mergedLow == s.ranges[start].Low && mergedHigh == s.ranges[end-1].High() && end-start == 1
	merged := Range[T]{Low: mergedLow, Count: mergedHigh - mergedLow}
	s.ranges = append(s.ranges[:start], append([]Range[T]{merged}, s.ranges[end:]...)...)

	if unchanged {
		return merged, false, true
	}
	return merged, true, true
}

// Snapshot returns a copy of the set's ranges, in order. Intended for
// diagnostics only; callers must not rely on mutating the returned slice to
// affect the set.
func (s *Set[T]) Snapshot() []Range[T] {
	return slices.Clone(s.ranges)
}
