package interval

// Tree answers containment queries over a fixed set of intervals on one
// chromosome: Find(l, r) returns every stored [s, e) with l <= s and e <= r.
//
// The tree is a segment tree over start coordinates.  The root covers
// [0, maxStart+1); each node covering [lo, hi) with hi-lo > 1 has children
// [lo, mid) and [mid, hi) with mid = lo + (hi-lo)/2, down to width-1 leaves.
// Every node stores the (end, start) pairs of the intervals whose start lies
// in its range, sorted by end, so that the pairs of a node fully inside the
// query range that satisfy e <= r form a prefix of its list.  Subtrees whose
// range contains no start are never materialized, so memory is
// O(K log M) for K intervals and M = maxStart+1.
//
// A Tree is immutable after NewTree returns, and is safe for concurrent use.
type Tree struct {
	// nodes is the node arena; nodes[0] is the root when the tree is nonempty.
	nodes []node
	// span is the width of the root range, maxStart+1.
	span PosType
	// nPairs is the number of distinct intervals stored.
	nPairs int
}

type node struct {
	lo, hi PosType
	// left and right are indices into Tree.nodes, or -1 if the child's range
	// contains no start.
	left, right int32
	// pairs is sorted by (End, Start).
	pairs []Pair
}

const noNode = int32(-1)

// NewTree builds a Tree over the intervals recorded in se.  se is not
// retained.  An empty (or nil) se yields an empty tree whose queries all
// return nothing.
func NewTree(se *StartEnds) *Tree {
	t := &Tree{}
	if se == nil || se.Len() == 0 {
		return t
	}
	entries := se.entries()
	t.span = entries[len(entries)-1].start + 1
	t.build(0, t.span, entries)
	return t
}

// build creates the node for [lo, hi) and its descendants, and returns its
// arena index.  entries holds exactly the starts inside [lo, hi).
func (t *Tree) build(lo, hi PosType, entries []startEntry) int32 {
	if len(entries) == 0 {
		return noNode
	}
	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, node{lo: lo, hi: hi, left: noNode, right: noNode})
	if hi-lo == 1 {
		ends := entries[0].ends
		pairs := make([]Pair, len(ends))
		for i, end := range ends {
			pairs[i] = Pair{Start: lo, End: end}
		}
		t.nodes[idx].pairs = pairs
		t.nPairs += len(pairs)
		return idx
	}
	mid := lo + (hi-lo)/2
	split := searchStarts(entries, mid)
	left := t.build(lo, mid, entries[:split])
	right := t.build(mid, hi, entries[split:])
	// t.nodes may have been reallocated by the recursive calls.
	n := &t.nodes[idx]
	n.left, n.right = left, right
	n.pairs = mergeByEnd(t.pairsAt(left), t.pairsAt(right))
	return idx
}

func (t *Tree) pairsAt(idx int32) []Pair {
	if idx == noNode {
		return nil
	}
	return t.nodes[idx].pairs
}

// mergeByEnd merges two lists sorted by (End, Start).  The lists come from
// disjoint start ranges, so no pair appears in both.
func mergeByEnd(a, b []Pair) []Pair {
	out := make([]Pair, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if lessByEnd(b[j], a[i]) {
			out = append(out, b[j])
			j++
		} else {
			out = append(out, a[i])
			i++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// Find returns the stored intervals [s, e) satisfying l <= s and e <= r,
// sorted by (Start, End).  Each interval appears at most once.  The result is
// empty when l >= r or when [l, r) lies outside the tree's span.
func (t *Tree) Find(l, r PosType) []Pair {
	if l >= r || len(t.nodes) == 0 {
		return nil
	}
	var out []Pair
	t.find(0, l, r, &out)
	SortPairs(out)
	return out
}

// find appends the contribution of the canonical decomposition of [l, r)
// below node idx.
func (t *Tree) find(idx int32, l, r PosType, out *[]Pair) {
	if idx == noNode {
		return
	}
	n := &t.nodes[idx]
	if n.hi <= l || n.lo >= r {
		return
	}
	if l <= n.lo && n.hi <= r {
		*out = append(*out, n.pairs[:searchEnds(n.pairs, r)]...)
		return
	}
	t.find(n.left, l, r, out)
	t.find(n.right, l, r, out)
}

// Len returns the number of distinct intervals in the tree.
func (t *Tree) Len() int {
	return t.nPairs
}

// Span returns the width of the root range, i.e. one past the largest start
// coordinate; zero for an empty tree.
func (t *Tree) Span() PosType {
	return t.span
}

// Pairs returns every interval in the tree, sorted by (Start, End).
func (t *Tree) Pairs() []Pair {
	if len(t.nodes) == 0 {
		return nil
	}
	out := append([]Pair(nil), t.nodes[0].pairs...)
	SortPairs(out)
	return out
}
