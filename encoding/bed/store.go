package bed

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/klauspost/compress/gzip"
)

// Store fetches records by ordinal.  Indexes store ordinals only, and rely on
// a Store to turn query results back into records.
type Store interface {
	// Fetch returns the record with the given 0-based ordinal.  It returns an
	// errors.NotExist error if there is no such record.
	Fetch(ctx context.Context, ordinal int) (Record, error)
}

// SliceStore is a Store over records already in memory.
type SliceStore []Record

// Fetch implements Store.Fetch.
func (s SliceStore) Fetch(_ context.Context, ordinal int) (Record, error) {
	if ordinal < 0 || ordinal >= len(s) {
		return Record{}, errors.E(errors.NotExist, fmt.Sprintf("bed: ordinal %d out of range [0, %d)", ordinal, len(s)))
	}
	return s[ordinal], nil
}

// FileStore is a Store that re-reads records from the BED file, using the
// byte offsets recorded by Load (or a persisted index) to go straight to the
// right line.  Fetch is thread-safe.
type FileStore struct {
	path    string
	offsets []int64
	opts    Opts
	gzipped bool

	mu  sync.Mutex
	in  file.File // nil for gzipped files, which are reopened per Fetch.
	buf *bufio.Reader
}

// NewFileStore creates a FileStore for the file at path.  offsets[i] must be
// the offset of record i, as in Source.Offsets.
func NewFileStore(ctx context.Context, path string, offsets []int64, opts Opts) (*FileStore, error) {
	s := &FileStore{
		path:    path,
		offsets: offsets,
		opts:    opts,
		gzipped: fileio.DetermineType(path) == fileio.Gzip,
	}
	if !s.gzipped {
		in, err := file.Open(ctx, path)
		if err != nil {
			return nil, errors.E(err, path)
		}
		s.in = in
		s.buf = bufio.NewReader(in.Reader(ctx))
	}
	return s, nil
}

// Len returns the number of records in the file.
func (s *FileStore) Len() int {
	return len(s.offsets)
}

// Fetch implements Store.Fetch.
func (s *FileStore) Fetch(ctx context.Context, ordinal int) (Record, error) {
	if ordinal < 0 || ordinal >= len(s.offsets) {
		return Record{}, errors.E(errors.NotExist, fmt.Sprintf("%s: ordinal %d out of range [0, %d)", s.path, ordinal, len(s.offsets)))
	}
	off := s.offsets[ordinal]
	var (
		line []byte
		err  error
	)
	if s.gzipped {
		line, err = s.readGzipLine(ctx, off)
	} else {
		line, err = s.readLine(ctx, off)
	}
	if err != nil {
		return Record{}, errors.E(err, fmt.Sprintf("%s: fetching ordinal %d at offset %d", s.path, ordinal, off))
	}
	rec, err := ParseRecord(bytes.TrimRight(line, "\r\n"), s.opts)
	if err != nil {
		// The file changed since the offsets were computed.
		return Record{}, errors.E(errors.Integrity, err, fmt.Sprintf("%s: ordinal %d", s.path, ordinal))
	}
	return rec, nil
}

func (s *FileStore) readLine(ctx context.Context, off int64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.in == nil {
		return nil, errors.E(errors.Precondition, "bed: FileStore is closed")
	}
	rs := s.in.Reader(ctx)
	if newOffset, err := rs.Seek(off, io.SeekStart); err != nil || newOffset != off {
		return nil, fmt.Errorf("failed to seek to offset %d: %d, %v", off, newOffset, err)
	}
	s.buf.Reset(rs)
	line, err := s.buf.ReadBytes('\n')
	if err == io.EOF && len(line) > 0 {
		err = nil
	}
	return line, err
}

// readGzipLine decompresses from the beginning of the file up to off.  Gzip
// streams can't be seeked, so this is linear in off.
func (s *FileStore) readGzipLine(ctx context.Context, off int64) (line []byte, err error) {
	log.Debug.Printf("%s: scanning compressed input to offset %d", s.path, off)
	var in file.File
	if in, err = file.Open(ctx, s.path); err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	gz, err := gzip.NewReader(in.Reader(ctx))
	if err != nil {
		return nil, err
	}
	defer gz.Close() // nolint: errcheck
	br := bufio.NewReader(gz)
	if _, err = br.Discard(int(off)); err != nil {
		return nil, err
	}
	line, err = br.ReadBytes('\n')
	if err == io.EOF && len(line) > 0 {
		err = nil
	}
	return line, err
}

// Close releases the file handle, if any.
func (s *FileStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.in == nil {
		return nil
	}
	err := s.in.Close(ctx)
	s.in = nil
	return err
}
