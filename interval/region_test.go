package interval_test

import (
	"math"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bedindex/interval"
	"github.com/grailbio/testutil/expect"
)

func TestParseRegionString(t *testing.T) {
	tests := []struct {
		region string
		chrom  string
		start  interval.PosType
		end    interval.PosType
	}{
		{"chr1:1-1000", "chr1", 0, 1000},
		{"chr1:1000", "chr1", 999, 1000},
		{"chr1:5-5", "chr1", 4, 5},
		{"chr1:1,001-2,000", "chr1", 1000, 2000},
		{"HLA-A*01:01:1-10", "HLA-A*01:01", 0, 10},
		{"chr1", "chr1", 0, math.MaxInt32 - 1},
	}

	for _, tt := range tests {
		result, err := interval.ParseRegionString(tt.region)
		expect.NoError(t, err)
		expect.EQ(t, result.Chrom, tt.chrom)
		expect.EQ(t, result.Start, tt.start)
		expect.EQ(t, result.End, tt.end)
	}
}

func TestParseRegionStringErrors(t *testing.T) {
	for _, region := range []string{
		"",
		":1-10",
		"chr1:0",
		"chr1:0-10",
		"chr1:10-5",
		"chr1:a-5",
		"chr1:1-b",
		"chr1:1-2147483647",
	} {
		_, err := interval.ParseRegionString(region)
		expect.True(t, errors.Is(errors.Invalid, err), "region %q: %v", region, err)
	}
}

func TestRegionString(t *testing.T) {
	r := interval.Region{Chrom: "chr2", Start: 9, End: 20}
	expect.EQ(t, r.String(), "chr2:10-20")
	back, err := interval.ParseRegionString(r.String())
	expect.NoError(t, err)
	expect.EQ(t, back, r)
}
