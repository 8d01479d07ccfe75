package bed

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
)

// Scanner reads BED records from a stream, one at a time.  Typical usage:
//
//   sc := bed.NewScanner(r, bed.DefaultOpts)
//   for sc.Scan() {
//     rec := sc.Record()
//     ...
//   }
//   if err := sc.Err(); err != nil {
//     ...
//   }
//
// Scanning stops at the first malformed line; Err then reports it along
// with its 1-based line number.
type Scanner struct {
	r    *bufio.Reader
	opts Opts

	lineIdx int   // 1-based number of the last line read.
	off     int64 // byte offset of the next line.
	eof     bool
	err     error

	rec     Record
	recOff  int64
	ordinal int
}

// NewScanner creates a Scanner reading from r.
func NewScanner(r io.Reader, opts Opts) *Scanner {
	return &Scanner{r: bufio.NewReader(r), opts: opts, ordinal: -1}
}

// Scan advances to the next record, skipping blank and header lines.  It
// returns false at the end of input or on error.
func (s *Scanner) Scan() bool {
	for s.err == nil && !s.eof {
		fullLine, err := s.r.ReadBytes('\n')
		if err == io.EOF { // Process fullLine, then stop.
			s.eof = true
		} else if err != nil {
			s.err = errors.E(err, "bed: read")
			return false
		}
		lineOff := s.off
		s.off += int64(len(fullLine))
		if len(fullLine) == 0 {
			continue
		}
		s.lineIdx++
		line := bytes.TrimRight(fullLine, "\r\n")
		if isHeader(line) {
			continue
		}
		rec, err := ParseRecord(line, s.opts)
		if err != nil {
			s.err = errors.E(err, fmt.Sprintf("line %d", s.lineIdx))
			return false
		}
		s.rec = rec
		s.recOff = lineOff
		s.ordinal++
		return true
	}
	return false
}

// Record returns the record read by the last successful Scan.
func (s *Scanner) Record() Record {
	return s.rec
}

// Offset returns the byte offset, within the stream, of the line holding the
// current record.
func (s *Scanner) Offset() int64 {
	return s.recOff
}

// Ordinal returns the 0-based ordinal of the current record.
func (s *Scanner) Ordinal() int {
	return s.ordinal
}

// Line returns the 1-based line number of the current record.
func (s *Scanner) Line() int {
	return s.lineIdx
}

// Err returns the first error encountered, if any.
func (s *Scanner) Err() error {
	return s.err
}
