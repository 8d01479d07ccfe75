package interval

import (
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
)

// Region is a half-open range [Start, End) on one chromosome, with 0-based
// coordinates.
type Region struct {
	Chrom string
	Start PosType
	End   PosType
}

// ParseRegionString parses a region string of one of the forms
//   [contig ID]:[1-based first pos]-[last pos]
//   [contig ID]:[1-based pos]
//   [contig ID]
// returning a contig ID and 0-based interval boundaries.  The interval
// [0, PosTypeMax - 1) is returned if there is no positional restriction.
// Thousands separators (e.g. "chr1:1,000-2,000") are accepted.
func ParseRegionString(region string) (result Region, err error) {
	if len(region) == 0 {
		err = errors.E(errors.Invalid, "interval.ParseRegionString: empty region string")
		return
	}
	colonPos := strings.LastIndexByte(region, ':')
	if colonPos == -1 {
		result.Chrom = region
		result.Start = 0
		result.End = PosTypeMax - 1
		return
	}
	if colonPos == 0 {
		err = errors.E(errors.Invalid, "interval.ParseRegionString: empty contig ID")
		return
	}
	result.Chrom = region[0:colonPos]
	rangeStr := strings.Replace(region[colonPos+1:], ",", "", -1)
	dashPos := strings.IndexByte(rangeStr, '-')
	if dashPos == -1 {
		var pos1 int64
		if pos1, err = strconv.ParseInt(rangeStr, 10, 32); err != nil {
			err = errors.E(errors.Invalid, err, "interval.ParseRegionString:", region)
			return
		}
		if pos1 <= 0 {
			err = errors.E(errors.Invalid, "interval.ParseRegionString: position", rangeStr, "in region string out of range")
			return
		}
		result.Start = PosType(pos1 - 1)
		result.End = PosType(pos1)
		return
	}
	start1Str := rangeStr[:dashPos]
	endStr := rangeStr[dashPos+1:]
	var start1 int
	if start1, err = strconv.Atoi(start1Str); err != nil {
		err = errors.E(errors.Invalid, err, "interval.ParseRegionString:", region)
		return
	}
	if start1 <= 0 {
		err = errors.E(errors.Invalid, "interval.ParseRegionString: position", start1Str, "in region string out of range")
		return
	}
	var end0 int
	if end0, err = strconv.Atoi(endStr); err != nil {
		err = errors.E(errors.Invalid, err, "interval.ParseRegionString:", region)
		return
	}
	// end0 == start1 - 1 would be an empty range; reject it along with
	// reversed ones.  Atoi is used rather than ParseInt(., 10, 32) so that
	// end0 == PosTypeMax can be rejected explicitly.
	if end0 < start1 || end0 >= PosTypeMax {
		err = errors.E(errors.Invalid, "interval.ParseRegionString: invalid range string", rangeStr)
		return
	}
	result.Start = PosType(start1 - 1)
	result.End = PosType(end0)
	return
}

// String formats r the way ParseRegionString parses it (1-based, closed).
func (r Region) String() string {
	return r.Chrom + ":" + strconv.Itoa(int(r.Start)+1) + "-" + strconv.Itoa(int(r.End))
}
