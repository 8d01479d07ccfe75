package bed

import (
	"context"
	"io"
	"io/ioutil"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/klauspost/compress/gzip"
)

// Source is the fully materialized content of a BED file.
type Source struct {
	// Path is the file the records were read from; empty for Load.
	Path string
	// Records holds every record, indexed by ordinal.
	Records []Record
	// Offsets[i] is the byte offset of record i's line in the decompressed
	// stream.  FileStore uses it to fetch records without rescanning.
	Offsets []int64
	// Fingerprint is the seahash of the raw (possibly compressed) file bytes.
	Fingerprint uint64
	// Opts are the options the records were parsed with.
	Opts Opts
}

// Load reads all records from r.
func Load(r io.Reader, opts Opts) (Source, error) {
	h := seahash.New()
	src, err := scanAll(io.TeeReader(r, h), opts)
	if err != nil {
		return src, err
	}
	src.Fingerprint = h.Sum64()
	return src, nil
}

func scanAll(r io.Reader, opts Opts) (src Source, err error) {
	src.Opts = opts
	sc := NewScanner(r, opts)
	for sc.Scan() {
		src.Records = append(src.Records, sc.Record())
		src.Offsets = append(src.Offsets, sc.Offset())
	}
	err = sc.Err()
	return
}

// LoadPath is a wrapper for Load that takes a path instead of an io.Reader.
// Gzip-compressed files (by extension) are decompressed transparently.
func LoadPath(ctx context.Context, path string, opts Opts) (src Source, err error) {
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return src, errors.E(err, path)
	}
	defer file.CloseAndReport(ctx, infile, &err)

	h := seahash.New()
	raw := io.TeeReader(infile.Reader(ctx), h)
	reader := raw
	if fileio.DetermineType(path) == fileio.Gzip {
		var gz *gzip.Reader
		if gz, err = gzip.NewReader(raw); err != nil {
			return src, errors.E(err, path)
		}
		defer gz.Close() // nolint: errcheck
		reader = gz
	}
	if src, err = scanAll(reader, opts); err != nil {
		return src, errors.E(err, path)
	}
	// The decompressor may stop short of trailing bytes; hash them too.
	if _, err = io.Copy(ioutil.Discard, raw); err != nil {
		return src, errors.E(err, path)
	}
	src.Path = path
	src.Fingerprint = h.Sum64()
	log.Printf("%s: BED loaded, %d record(s)", path, len(src.Records))
	return src, nil
}

// Fingerprint returns the seahash of the raw bytes of the file at path; it
// equals Source.Fingerprint for the same file.
func Fingerprint(ctx context.Context, path string) (fp uint64, err error) {
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return 0, errors.E(err, path)
	}
	defer file.CloseAndReport(ctx, infile, &err)
	h := seahash.New()
	if _, err = io.Copy(h, infile.Reader(ctx)); err != nil {
		return 0, errors.E(err, path)
	}
	return h.Sum64(), nil
}
