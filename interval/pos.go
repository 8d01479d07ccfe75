package interval

import (
	"fmt"
	"math"
	"sort"
)

// PosType is the type used to represent interval coordinates.  int32 should be
// wide enough for some time to come, since that's what BAM is limited to.
type PosType int32

// PosTypeMax is the maximum value that can be represented by a PosType.
const PosTypeMax = math.MaxInt32

// Pair is a single half-open interval [Start, End) on one chromosome.
type Pair struct {
	Start PosType
	End   PosType
}

// Contains returns whether p lies entirely inside [start, end).
func (p Pair) Contains(start, end PosType) bool {
	return start <= p.Start && p.End <= end && p.Start < end
}

// String implements fmt.Stringer.
func (p Pair) String() string {
	return fmt.Sprintf("[%d,%d)", p.Start, p.End)
}

// lessByEnd orders pairs by (End, Start); this is the order of every node's
// pair list.
func lessByEnd(a, b Pair) bool {
	if a.End != b.End {
		return a.End < b.End
	}
	return a.Start < b.Start
}

// lessByStart orders pairs by (Start, End); this is the order of query
// results.
func lessByStart(a, b Pair) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return a.End < b.End
}

// SortPairs sorts a by (Start, End).
func SortPairs(a []Pair) {
	sort.Slice(a, func(i, j int) bool { return lessByStart(a[i], a[j]) })
}

// searchEnds returns the length of the prefix of a (sorted by End) whose
// elements all have End <= x.  It's exactly sort.Search, except for Pair.End.
func searchEnds(a []Pair, x PosType) int {
	return sort.Search(len(a), func(i int) bool { return a[i].End > x })
}

// searchStarts returns the index of the first element of a with start >= x,
// or len(a).
func searchStarts(a []startEntry, x PosType) int {
	return sort.Search(len(a), func(i int) bool { return a[i].start >= x })
}
