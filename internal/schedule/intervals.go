// Package schedule implements the pure interval arithmetic behind slot
// generation: carving free time out of working hours and enumerating
// bookable start times.
//
// All ranges are half-open [Start, End) minute offsets from local midnight.
package schedule

import "sort"

// Range is a half-open minute interval within a local day.
type Range struct {
	Start int
	End   int
}

// Len returns the range length in minutes.
func (r Range) Len() int {
	return r.End - r.Start
}

// Overlaps reports whether two half-open ranges share any minute.
func (r Range) Overlaps(other Range) bool {
	return r.Start < other.End && other.Start < r.End
}

// FreeIntervals subtracts the busy ranges from the working ranges and returns
// what is left. A busy range splits any working range it overlaps into up to
// two remainders; a working range fully covered by a busy range disappears.
// Busy ranges with End <= Start are empty and ignored.
func FreeIntervals(working, busy []Range) []Range {
	free := make([]Range, 0, len(working))
	for _, w := range working {
		if w.Len() > 0 {
			free = append(free, w)
		}
	}

	sorted := make([]Range, 0, len(busy))
	for _, b := range busy {
		if b.Len() > 0 {
			sorted = append(sorted, b)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	for _, b := range sorted {
		next := make([]Range, 0, len(free)+1)
		for _, f := range free {
			if !f.Overlaps(b) {
				next = append(next, f)
				continue
			}
			if f.Start < b.Start {
				next = append(next, Range{Start: f.Start, End: b.Start})
			}
			if b.End < f.End {
				next = append(next, Range{Start: b.End, End: f.End})
			}
		}
		free = next
	}
	return free
}

// SlotStarts enumerates candidate booking start minutes from the free ranges.
// Within each range, starts advance from the range start by step minutes while
// the full duration still fits before the range end. Ranges are processed in
// input order; callers wanting a globally sorted result pass sorted ranges.
func SlotStarts(free []Range, durationMinutes, stepMinutes int) []int {
	if durationMinutes <= 0 {
		return nil
	}
	if stepMinutes < 1 {
		stepMinutes = 1
	}
	var starts []int
	for _, f := range free {
		for s := f.Start; s+durationMinutes <= f.End; s += stepMinutes {
			starts = append(starts, s)
		}
	}
	return starts
}

// Clip restricts r to [lo, hi), returning a zero-length range when the
// two do not intersect.
func Clip(r Range, lo, hi int) Range {
	if r.Start < lo {
		r.Start = lo
	}
	if r.End > hi {
		r.End = hi
	}
	if r.End < r.Start {
		r.End = r.Start
	}
	return r
}
