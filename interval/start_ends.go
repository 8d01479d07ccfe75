package interval

import (
	"fmt"
	"sort"

	"github.com/biogo/store/llrb"
)

// startEntry is one start coordinate and the end coordinates of every
// interval beginning there.
type startEntry struct {
	start PosType
	ends  []PosType
}

// Compare compares two startEntry objects for use in llrb.
func (e *startEntry) Compare(c llrb.Comparable) int {
	s := c.(*startEntry).start
	switch {
	case e.start < s:
		return -1
	case e.start > s:
		return 1
	}
	return 0
}

// StartEnds is an ordered mapping from start coordinate to the set of end
// coordinates of the intervals beginning there.  It is the input to NewTree.
// The zero value is an empty mapping.
type StartEnds struct {
	byStart llrb.Tree // *startEntry, ordered by start.
}

// NewStartEnds returns an empty StartEnds.
func NewStartEnds() *StartEnds {
	return &StartEnds{}
}

// Add records the interval [start, end).  Adding the same interval twice has
// no further effect on the tree built from se.  It panics if the interval is
// empty or negative; callers are expected to validate their input first.
func (se *StartEnds) Add(start, end PosType) {
	if start < 0 || end <= start {
		panic(fmt.Sprintf("interval.StartEnds.Add: invalid interval [%d, %d)", start, end))
	}
	probe := &startEntry{start: start}
	if c := se.byStart.Get(probe); c != nil {
		e := c.(*startEntry)
		e.ends = append(e.ends, end)
	} else {
		probe.ends = []PosType{end}
		se.byStart.Insert(probe)
	}
}

// Len returns the number of distinct start coordinates.
func (se *StartEnds) Len() int {
	return se.byStart.Len()
}

// MaxStart returns the largest start coordinate, or -1 if se is empty.
func (se *StartEnds) MaxStart() PosType {
	if se.byStart.Len() == 0 {
		return -1
	}
	return se.byStart.Max().(*startEntry).start
}

// Ends returns the sorted, duplicate-free set of end coordinates recorded for
// start.
func (se *StartEnds) Ends(start PosType) []PosType {
	c := se.byStart.Get(&startEntry{start: start})
	if c == nil {
		return nil
	}
	return uniqueEnds(c.(*startEntry).ends)
}

// entries returns a copy of the mapping as a start-sorted slice, with every
// end-set sorted and deduplicated.
func (se *StartEnds) entries() []startEntry {
	out := make([]startEntry, 0, se.byStart.Len())
	se.byStart.Do(func(c llrb.Comparable) bool {
		e := c.(*startEntry)
		out = append(out, startEntry{start: e.start, ends: uniqueEnds(e.ends)})
		return false
	})
	return out
}

func uniqueEnds(ends []PosType) []PosType {
	sorted := append([]PosType(nil), ends...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	n := 0
	for i, end := range sorted {
		if i > 0 && end == sorted[n-1] {
			continue
		}
		sorted[n] = end
		n++
	}
	return sorted[:n]
}
