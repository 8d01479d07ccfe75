package interval_test

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/grailbio/bedindex/interval"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func newStartEnds(m map[interval.PosType][]interval.PosType) *interval.StartEnds {
	se := interval.NewStartEnds()
	for start, ends := range m {
		for _, end := range ends {
			se.Add(start, end)
		}
	}
	return se
}

func p(start, end interval.PosType) interval.Pair {
	return interval.Pair{Start: start, End: end}
}

func TestTreeFind(t *testing.T) {
	tree := interval.NewTree(newStartEnds(map[interval.PosType][]interval.PosType{
		1: {2, 5},
		2: {5},
		4: {7, 8},
		6: {7},
	}))
	expect.EQ(t, tree.Len(), 6)
	expect.EQ(t, tree.Span(), interval.PosType(7))

	tests := []struct {
		l, r interval.PosType
		want []interval.Pair
	}{
		// Invalid requests.
		{0, 0, nil},
		{4, 2, nil},
		// All segments.
		{0, 8, []interval.Pair{p(1, 2), p(1, 5), p(2, 5), p(4, 7), p(4, 8), p(6, 7)}},
		{0, 1, nil},
		{0, 2, []interval.Pair{p(1, 2)}},
		{1, 3, []interval.Pair{p(1, 2)}},
		{0, 6, []interval.Pair{p(1, 2), p(1, 5), p(2, 5)}},
		{3, 7, []interval.Pair{p(4, 7), p(6, 7)}},
		{6, 7, []interval.Pair{p(6, 7)}},
		// Half-open boundaries.
		{1, 2, []interval.Pair{p(1, 2)}},
		{2, 5, []interval.Pair{p(2, 5)}},
		{2, 4, nil},
		// Outside the span.
		{7, 100, nil},
		{-10, -1, nil},
		{-10, 3, []interval.Pair{p(1, 2)}},
	}
	for _, tt := range tests {
		got := tree.Find(tt.l, tt.r)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Find(%d, %d): got %v, want %v", tt.l, tt.r, got, tt.want)
		}
	}
}

func TestTreeEmpty(t *testing.T) {
	for _, tree := range []*interval.Tree{
		interval.NewTree(nil),
		interval.NewTree(interval.NewStartEnds()),
	} {
		expect.EQ(t, tree.Len(), 0)
		expect.EQ(t, tree.Span(), interval.PosType(0))
		expect.EQ(t, len(tree.Find(0, 100)), 0)
		expect.EQ(t, len(tree.Pairs()), 0)
	}
}

func TestTreeDuplicateIntervals(t *testing.T) {
	se := interval.NewStartEnds()
	se.Add(3, 9)
	se.Add(3, 9)
	se.Add(3, 4)
	expect.EQ(t, se.Ends(3), []interval.PosType{4, 9})
	expect.EQ(t, se.MaxStart(), interval.PosType(3))
	tree := interval.NewTree(se)
	expect.EQ(t, tree.Len(), 2)
	expect.EQ(t, tree.Find(0, 10), []interval.Pair{p(3, 4), p(3, 9)})
}

func TestStartEndsAddPanics(t *testing.T) {
	for _, iv := range []interval.Pair{p(5, 5), p(6, 5), p(-1, 2)} {
		func() {
			defer func() {
				assert.True(t, recover() != nil, "Add(%v) did not panic", iv)
			}()
			interval.NewStartEnds().Add(iv.Start, iv.End)
		}()
	}
}

func bruteForceFind(pairs []interval.Pair, l, r interval.PosType) []interval.Pair {
	var out []interval.Pair
	for _, iv := range pairs {
		if iv.Contains(l, r) {
			out = append(out, iv)
		}
	}
	interval.SortPairs(out)
	return out
}

// TestTreeRandom cross-checks Find against a linear scan, and checks the
// trivial-containment and idempotence properties.
func TestTreeRandom(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	for iter := 0; iter < 200; iter++ {
		maxPos := r.Intn(1000) + 1
		nIntervals := r.Intn(200)
		se := interval.NewStartEnds()
		seen := map[interval.Pair]bool{}
		var pairs []interval.Pair
		for i := 0; i < nIntervals; i++ {
			start := interval.PosType(r.Intn(maxPos))
			end := start + interval.PosType(r.Intn(50)+1)
			se.Add(start, end)
			iv := p(start, end)
			if !seen[iv] {
				seen[iv] = true
				pairs = append(pairs, iv)
			}
		}
		tree := interval.NewTree(se)
		assert.EQ(t, tree.Len(), len(pairs))
		interval.SortPairs(pairs)
		if len(pairs) > 0 {
			assert.EQ(t, tree.Pairs(), pairs)
		}

		for _, iv := range pairs {
			found := false
			for _, got := range tree.Find(iv.Start, iv.End+1) {
				if got == iv {
					found = true
				}
			}
			assert.True(t, found, "Find(%d, %d) is missing %v", iv.Start, iv.End+1, iv)
		}

		for q := 0; q < 100; q++ {
			l := interval.PosType(r.Intn(maxPos+60) - 5)
			rr := interval.PosType(r.Intn(maxPos+60) - 5)
			got := tree.Find(l, rr)
			want := bruteForceFind(pairs, l, rr)
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("Find(%d, %d): got %v, want %v", l, rr, got, want)
			}
			if again := tree.Find(l, rr); !reflect.DeepEqual(again, got) {
				t.Fatalf("Find(%d, %d) is not idempotent: %v vs %v", l, rr, got, again)
			}
		}
	}
}

func TestPairContains(t *testing.T) {
	expect.True(t, p(1, 2).Contains(0, 2))
	expect.False(t, p(1, 2).Contains(0, 1))
	expect.False(t, p(1, 2).Contains(2, 3))
	expect.EQ(t, p(1, 2).String(), "[1,2)")
}

func BenchmarkTreeFind(b *testing.B) {
	r := rand.New(rand.NewSource(0))
	se := interval.NewStartEnds()
	for i := 0; i < 100000; i++ {
		start := interval.PosType(r.Intn(10000000))
		se.Add(start, start+interval.PosType(r.Intn(1000)+1))
	}
	tree := interval.NewTree(se)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l := interval.PosType(r.Intn(10000000))
		tree.Find(l, l+10000)
	}
}
