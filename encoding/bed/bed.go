// Package bed contains code for parsing BED-like interval files and for
// fetching individual records back out of them by ordinal.
//
// Each non-blank line is one record: a chromosome name, a 0-based start, an
// end, and any number of further fields which are passed through untouched.
// For example:
//
// chr1	100	200	exon1	0	+
// chr1	150	160
//
// Lines starting with '#', "track" or "browser" are headers, not records.
// Records are numbered from zero in the order they appear; that number (the
// ordinal) is what indexes store in place of the record itself.
package bed

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/bedindex/interval"
)

// Record is one parsed BED line.  Start and End describe the half-open
// interval [Start, End).
type Record struct {
	Chrom string
	Start interval.PosType
	End   interval.PosType
	// Extra holds the fields after End, unexamined.
	Extra []string
}

// Opts defines how BED lines are split and interpreted.
type Opts struct {
	// Delimiter is the byte separating fields.  If zero, any run of
	// whitespace separates fields, which accepts both tab- and
	// space-separated files.
	Delimiter byte
	// OneBasedInput interprets the interval boundaries as one-based [start,
	// end] instead of the usual zero-based [start, end).
	OneBasedInput bool
}

// DefaultOpts is the default value of Opts.
var DefaultOpts = Opts{}

// Validate checks the Record invariant 0 <= Start < End < PosTypeMax.
func (r Record) Validate() error {
	if r.Chrom == "" {
		return errors.E(errors.Invalid, "bed: empty chromosome name")
	}
	if r.Start < 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("bed: negative start coordinate %d", r.Start))
	}
	if r.End <= r.Start || r.End >= interval.PosTypeMax {
		return errors.E(errors.Invalid, fmt.Sprintf("bed: invalid coordinate pair [%d, %d)", r.Start, r.End))
	}
	return nil
}

// Pair returns the record's interval.
func (r Record) Pair() interval.Pair {
	return interval.Pair{Start: r.Start, End: r.End}
}

// Fields returns the record as a list of text fields, in file order.
func (r Record) Fields() []string {
	fields := make([]string, 0, 3+len(r.Extra))
	fields = append(fields, r.Chrom, strconv.Itoa(int(r.Start)), strconv.Itoa(int(r.End)))
	return append(fields, r.Extra...)
}

// String formats the record as a tab-separated BED line, without the
// trailing newline.
func (r Record) String() string {
	return strings.Join(r.Fields(), "\t")
}

// isHeader returns whether line is blank or a comment/track/browser line.
func isHeader(line []byte) bool {
	trimmed := bytes.TrimLeft(line, " \t")
	return len(trimmed) == 0 ||
		trimmed[0] == '#' ||
		hasKeyword(trimmed, "track") ||
		hasKeyword(trimmed, "browser")
}

// hasKeyword returns whether line starts with word followed by whitespace or
// the end of the line, so that e.g. a contig named "track7" is still a record.
func hasKeyword(line []byte, word string) bool {
	if !bytes.HasPrefix(line, []byte(word)) {
		return false
	}
	return len(line) == len(word) || line[len(word)] <= ' '
}

// splitFields splits line into fields.  With delim == 0, any (group of)
// characters <= ' ' is treated as a delimiter and empty fields are
// impossible; otherwise every occurrence of delim ends a field.
func splitFields(line []byte, delim byte) [][]byte {
	if delim != 0 {
		return bytes.Split(line, []byte{delim})
	}
	var tokens [][]byte
	posEnd := 0
	lineLen := len(line)
	for {
		// These simple loops are better than any of the standard library
		// string-split functions for the handful of columns a BED line has.
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if line[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokens
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if line[posEnd] <= ' ' {
				break
			}
		}
		tokens = append(tokens, line[pos:posEnd])
	}
}

// ParseRecord parses a single BED line (without its line terminator).  The
// result is validated; malformed lines yield an errors.Invalid error.
func ParseRecord(line []byte, opts Opts) (Record, error) {
	tokens := splitFields(line, opts.Delimiter)
	if len(tokens) < 3 {
		return Record{}, errors.E(errors.Invalid, fmt.Sprintf("bed: line has %d field(s), expected at least 3", len(tokens)))
	}
	var (
		rec Record
		err error
	)
	// gunsafe.BytesToString is only used for the duration of each Atoi call;
	// everything retained is copied.
	var parsedStart, parsedEnd int
	if parsedStart, err = strconv.Atoi(gunsafe.BytesToString(tokens[1])); err != nil {
		return Record{}, errors.E(errors.Invalid, fmt.Sprintf("bed: non-numeric start coordinate %q", tokens[1]))
	}
	if parsedEnd, err = strconv.Atoi(gunsafe.BytesToString(tokens[2])); err != nil {
		return Record{}, errors.E(errors.Invalid, fmt.Sprintf("bed: non-numeric end coordinate %q", tokens[2]))
	}
	if opts.OneBasedInput {
		parsedStart--
	}
	if parsedStart < 0 || parsedStart >= interval.PosTypeMax || parsedEnd < 0 || parsedEnd >= interval.PosTypeMax {
		return Record{}, errors.E(errors.Invalid, fmt.Sprintf("bed: coordinates [%d, %d) out of range", parsedStart, parsedEnd))
	}
	rec.Chrom = string(tokens[0])
	rec.Start = interval.PosType(parsedStart)
	rec.End = interval.PosType(parsedEnd)
	if len(tokens) > 3 {
		rec.Extra = make([]string, len(tokens)-3)
		for i, tok := range tokens[3:] {
			rec.Extra[i] = string(tok)
		}
	}
	if err = rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}
