package bedindex_test

import (
	"context"
	"math/rand"
	"sort"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bedindex/bedindex"
	"github.com/grailbio/bedindex/encoding/bed"
	"github.com/grailbio/bedindex/interval"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func rec(chrom string, start, end interval.PosType) bed.Record {
	return bed.Record{Chrom: chrom, Start: start, End: end}
}

// scenarioRecords places the starts->ends mapping
// {1:{2,5}, 2:{5}, 4:{7,8}, 6:{7}} on chr1, interleaved with chr2 records.
func scenarioRecords() []bed.Record {
	return []bed.Record{
		rec("chr1", 4, 8),  // 0
		rec("chr2", 1, 2),  // 1
		rec("chr1", 1, 2),  // 2
		rec("chr1", 6, 7),  // 3
		rec("chr1", 2, 5),  // 4
		rec("chr2", 0, 10), // 5
		rec("chr1", 1, 5),  // 6
		rec("chr1", 4, 7),  // 7
	}
}

func TestFind(t *testing.T) {
	idx, err := bedindex.Build(scenarioRecords(), bedindex.DefaultOpts)
	assert.NoError(t, err)
	expect.EQ(t, idx.Chromosomes(), []string{"chr1", "chr2"})
	expect.EQ(t, idx.NumRecords(), 8)
	expect.EQ(t, idx.NumIntervals("chr1"), 6)
	expect.EQ(t, idx.NumIntervals("chr2"), 2)
	expect.EQ(t, idx.NumIntervals("chrX"), 0)
	expect.EQ(t, len(idx.ID()), 36)

	tests := []struct {
		chrom      string
		start, end interval.PosType
		want       []int
	}{
		{"chr1", 0, 0, nil},
		{"chr1", 4, 2, nil},
		{"chr1", 0, 8, []int{0, 2, 3, 4, 6, 7}},
		{"chr1", 0, 2, []int{2}},
		{"chr1", 0, 1, nil},
		{"chr1", 1, 3, []int{2}},
		{"chr1", 0, 6, []int{2, 4, 6}},
		{"chr1", 3, 7, []int{3, 7}},
		{"chr1", 6, 7, []int{3}},
		{"chr2", 0, 5, []int{1}},
		{"chr2", 0, 10, []int{1, 5}},
		{"chrX", 0, 100, nil},
		{"", 0, 100, nil},
	}
	for _, tt := range tests {
		got := idx.Find(tt.chrom, tt.start, tt.end)
		if len(tt.want) == 0 {
			expect.EQ(t, len(got), 0, "%s:%d-%d: %v", tt.chrom, tt.start, tt.end, got)
			continue
		}
		expect.EQ(t, got, tt.want, "%s:%d-%d", tt.chrom, tt.start, tt.end)
	}

	region, err := interval.ParseRegionString("chr1:4-7")
	assert.NoError(t, err)
	expect.EQ(t, idx.FindRegion(region), []int{3, 7})
}

func TestFindIdempotent(t *testing.T) {
	idx, err := bedindex.Build(scenarioRecords(), bedindex.DefaultOpts)
	assert.NoError(t, err)
	first := idx.Find("chr1", 0, 8)
	for i := 0; i < 3; i++ {
		expect.EQ(t, idx.Find("chr1", 0, 8), first)
	}
}

func TestDuplicates(t *testing.T) {
	records := []bed.Record{
		rec("chr1", 10, 20),
		rec("chr1", 10, 20),
		rec("chr1", 12, 15),
		rec("chr1", 10, 20),
	}
	idx, err := bedindex.Build(records, bedindex.DefaultOpts)
	assert.NoError(t, err)
	// Last write wins.
	expect.EQ(t, idx.Find("chr1", 0, 100), []int{2, 3})
	expect.EQ(t, idx.NumIntervals("chr1"), 2)

	idx, err = bedindex.Build(records, bedindex.Opts{KeepDuplicates: true})
	assert.NoError(t, err)
	expect.EQ(t, idx.Find("chr1", 0, 100), []int{0, 1, 2, 3})
	expect.EQ(t, idx.Find("chr1", 10, 20), []int{0, 1, 2, 3})
	expect.EQ(t, idx.Find("chr1", 11, 20), []int{2})
	expect.EQ(t, idx.NumIntervals("chr1"), 2)
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		records []bed.Record
		re      string
	}{
		{[]bed.Record{rec("chr1", 1, 2), rec("chr1", 5, 5)}, "ordinal 1"},
		{[]bed.Record{rec("chr1", 6, 5)}, "ordinal 0"},
		{[]bed.Record{rec("chr1", 1, 2), rec("chr1", 2, 3), rec("chr1", -1, 3)}, "ordinal 2"},
		{[]bed.Record{rec("", 1, 2)}, "ordinal 0"},
	}
	for _, tt := range tests {
		idx, err := bedindex.Build(tt.records, bedindex.DefaultOpts)
		expect.True(t, errors.Is(errors.Invalid, err), "%v", err)
		expect.Regexp(t, err, tt.re)
		expect.True(t, idx == nil)
	}
}

func TestBuildEmpty(t *testing.T) {
	idx, err := bedindex.Build(nil, bedindex.DefaultOpts)
	assert.NoError(t, err)
	expect.EQ(t, idx.NumRecords(), 0)
	expect.EQ(t, len(idx.Chromosomes()), 0)
	expect.EQ(t, len(idx.Find("chr1", 0, 100)), 0)
}

func TestBuildSource(t *testing.T) {
	src := bed.Source{
		Path:        "test.bed",
		Records:     scenarioRecords(),
		Offsets:     []int64{0, 10, 20, 30, 40, 50, 60, 70},
		Fingerprint: 0xdeadbeef,
	}
	idx, err := bedindex.BuildSource(src, bedindex.DefaultOpts)
	assert.NoError(t, err)
	expect.EQ(t, idx.Fingerprint(), uint64(0xdeadbeef))
	expect.EQ(t, idx.Offsets(), src.Offsets)

	src.Records = append(src.Records, rec("chr1", 3, 1))
	_, err = bedindex.BuildSource(src, bedindex.DefaultOpts)
	expect.Regexp(t, err, "test.bed")
	expect.Regexp(t, err, "ordinal 8")
}

func TestFindRecords(t *testing.T) {
	ctx := context.Background()
	records := scenarioRecords()
	idx, err := bedindex.Build(records, bedindex.DefaultOpts)
	assert.NoError(t, err)
	got, err := bedindex.FindRecords(ctx, idx, bed.SliceStore(records), "chr1", 3, 7)
	assert.NoError(t, err)
	expect.EQ(t, got, []bed.Record{rec("chr1", 6, 7), rec("chr1", 4, 7)})

	// A store that lost records surfaces the error.
	_, err = bedindex.FindRecords(ctx, idx, bed.SliceStore(records[:5]), "chr1", 0, 8)
	expect.True(t, errors.Is(errors.NotExist, err), "%v", err)
}

// TestFindRandom checks Find against a linear scan, and that querying
// [0, max end] returns every record of the chromosome exactly once.
func TestFindRandom(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	chroms := []string{"chr1", "chr2", "chr3"}
	var records []bed.Record
	maxEnd := map[string]interval.PosType{}
	for i := 0; i < 2000; i++ {
		chrom := chroms[r.Intn(len(chroms))]
		start := interval.PosType(r.Intn(5000))
		end := start + 1 + interval.PosType(r.Intn(200))
		records = append(records, rec(chrom, start, end))
		if end > maxEnd[chrom] {
			maxEnd[chrom] = end
		}
	}
	idx, err := bedindex.Build(records, bedindex.Opts{KeepDuplicates: true})
	assert.NoError(t, err)

	for _, chrom := range chroms {
		var want []int
		for i, rec := range records {
			if rec.Chrom == chrom {
				want = append(want, i)
			}
		}
		expect.EQ(t, idx.Find(chrom, 0, maxEnd[chrom]), want, chrom)
	}

	for i := 0; i < 500; i++ {
		chrom := chroms[r.Intn(len(chroms))]
		l := interval.PosType(r.Intn(5300)) - 50
		q := interval.PosType(r.Intn(5300)) - 50
		var want []int
		for j, rec := range records {
			if rec.Chrom == chrom && rec.Pair().Contains(l, q) {
				want = append(want, j)
			}
		}
		got := idx.Find(chrom, l, q)
		expect.True(t, sort.IntsAreSorted(got))
		if len(want) == 0 {
			expect.EQ(t, len(got), 0, "%s:%d-%d", chrom, l, q)
		} else {
			expect.EQ(t, got, want, "%s:%d-%d", chrom, l, q)
		}
	}
}

func BenchmarkFind(b *testing.B) {
	r := rand.New(rand.NewSource(0))
	records := make([]bed.Record, 100000)
	for i := range records {
		start := interval.PosType(r.Intn(10000000))
		records[i] = rec("chr1", start, start+1+interval.PosType(r.Intn(1000)))
	}
	idx, err := bedindex.Build(records, bedindex.DefaultOpts)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		start := interval.PosType(r.Intn(10000000))
		idx.Find("chr1", start, start+5000)
	}
}
