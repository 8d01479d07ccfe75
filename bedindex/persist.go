// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bedindex

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
	"github.com/grailbio/bedindex/encoding/bed"
	"github.com/grailbio/bedindex/interval"
)

// An index file is a recordio file with the following header entries, all
// string-valued:
//
//   bedindex.magic        "BEDIDX"
//   bedindex.version      "1"
//   bedindex.id           Index.ID()
//   bedindex.fingerprint  Index.Fingerprint(), hex
//   bedindex.records      Index.NumRecords(), decimal
//   bedindex.delimiter    Index.BedOpts().Delimiter, decimal; 0 if absent
//   bedindex.onebased     Index.BedOpts().OneBasedInput, "true" or "false"
//
// Each chromosome is stored in its own block, in name order, followed by one
// block holding the record offsets.  Blocks are zstd-compressed.  All integers
// are uvarints.
//
//   chromosome block: 1, len(name), name, n, then n x (start delta, end-start, ordinal)
//   offsets block:    2, n, then n x offset delta
//
// Entries in a chromosome block are sorted by (start, end, ordinal); the start
// delta is relative to the previous entry's start.
const (
	// FileSuffix is the conventional suffix of an index file.
	FileSuffix = ".bix"

	magicKey       = "bedindex.magic"
	versionKey     = "bedindex.version"
	idKey          = "bedindex.id"
	fingerprintKey = "bedindex.fingerprint"
	recordsKey     = "bedindex.records"
	delimiterKey   = "bedindex.delimiter"
	oneBasedKey    = "bedindex.onebased"

	fileMagic   = "BEDIDX"
	fileVersion = "1"

	blockChrom   byte = 1
	blockOffsets byte = 2
)

func init() {
	recordiozstd.Init()
}

// ReadOpts controls Read and ReadFile.
type ReadOpts struct {
	// Fingerprint, if nonzero, must match the fingerprint stored in the index.
	// Set it to the result of bed.Fingerprint on the BED file to reject an
	// index built from a different version of the file.
	Fingerprint uint64
}

type chromEntry struct {
	start, end interval.PosType
	ordinal    int
}

type chromBlock struct {
	name    string
	entries []chromEntry
}

type offsetsBlock []int64

// storedChrom lists the entries of one chromosome in storage order.
func (idx *Index) storedChrom(name string) *chromBlock {
	ci := idx.chroms[name]
	b := &chromBlock{name: name}
	for _, p := range ci.tree.Pairs() {
		for _, ordinal := range ci.ordinals[p] {
			b.entries = append(b.entries, chromEntry{p.Start, p.End, ordinal})
		}
	}
	return b
}

func marshalBlock(scratch []byte, v interface{}) ([]byte, error) {
	buf := scratch[:0]
	switch b := v.(type) {
	case *chromBlock:
		buf = append(buf, blockChrom)
		buf = binary.AppendUvarint(buf, uint64(len(b.name)))
		buf = append(buf, b.name...)
		buf = binary.AppendUvarint(buf, uint64(len(b.entries)))
		var prev interval.PosType
		for _, e := range b.entries {
			buf = binary.AppendUvarint(buf, uint64(e.start-prev))
			buf = binary.AppendUvarint(buf, uint64(e.end-e.start))
			buf = binary.AppendUvarint(buf, uint64(e.ordinal))
			prev = e.start
		}
	case offsetsBlock:
		buf = append(buf, blockOffsets)
		buf = binary.AppendUvarint(buf, uint64(len(b)))
		var prev int64
		for _, off := range b {
			buf = binary.AppendUvarint(buf, uint64(off-prev))
			prev = off
		}
	default:
		log.Panicf("bedindex: marshal %T", v)
	}
	return buf, nil
}

// blockDecoder reads uvarints from a block.  The first failure sticks.
type blockDecoder struct {
	buf []byte
	err error
}

func (d *blockDecoder) fail(msg string) {
	if d.err == nil {
		d.err = errors.E(errors.Invalid, "bedindex: corrupt block: "+msg)
	}
}

func (d *blockDecoder) readByte() byte {
	if d.err != nil {
		return 0
	}
	if len(d.buf) == 0 {
		d.fail("truncated")
		return 0
	}
	b := d.buf[0]
	d.buf = d.buf[1:]
	return b
}

func (d *blockDecoder) uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.buf)
	if n <= 0 {
		d.fail("bad varint")
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

// pos reads a uvarint that must fit a PosType.
func (d *blockDecoder) pos() interval.PosType {
	v := d.uvarint()
	if v > interval.PosTypeMax {
		d.fail(fmt.Sprintf("coordinate %d out of range", v))
		return 0
	}
	return interval.PosType(v)
}

// count reads a length prefix; each counted item takes at least minBytes.
func (d *blockDecoder) count(minBytes int) int {
	v := d.uvarint()
	if v > uint64(len(d.buf)/minBytes) {
		d.fail(fmt.Sprintf("length %d exceeds block size", v))
		return 0
	}
	return int(v)
}

func unmarshalBlock(in []byte) (interface{}, error) {
	d := blockDecoder{buf: in}
	switch kind := d.readByte(); kind {
	case blockChrom:
		n := d.count(1)
		b := &chromBlock{name: string(d.buf[:n])}
		d.buf = d.buf[n:]
		n = d.count(3)
		b.entries = make([]chromEntry, n)
		var start int64
		for i := range b.entries {
			start += int64(d.pos())
			length := d.pos()
			ordinal := d.uvarint()
			if start+int64(length) > interval.PosTypeMax || ordinal > uint64(interval.PosTypeMax) {
				d.fail(fmt.Sprintf("entry %d of %s out of range", i, b.name))
			}
			b.entries[i] = chromEntry{interval.PosType(start), interval.PosType(start) + length, int(ordinal)}
		}
		return b, d.err
	case blockOffsets:
		n := d.count(1)
		b := make(offsetsBlock, n)
		var off int64
		for i := range b {
			off += int64(d.uvarint())
			b[i] = off
		}
		return b, d.err
	default:
		d.fail(fmt.Sprintf("unknown block kind %d", kind))
		return nil, d.err
	}
}

// Write serializes idx to w.
func Write(w io.Writer, idx *Index) error {
	rio := recordio.NewWriter(w, recordio.WriterOpts{
		Marshal:      marshalBlock,
		Transformers: []string{recordiozstd.Name},
	})
	rio.AddHeader(magicKey, fileMagic)
	rio.AddHeader(versionKey, fileVersion)
	rio.AddHeader(idKey, idx.id)
	rio.AddHeader(fingerprintKey, strconv.FormatUint(idx.fingerprint, 16))
	rio.AddHeader(recordsKey, strconv.Itoa(idx.nRecords))
	rio.AddHeader(delimiterKey, strconv.Itoa(int(idx.bedOpts.Delimiter)))
	rio.AddHeader(oneBasedKey, strconv.FormatBool(idx.bedOpts.OneBasedInput))
	for _, name := range idx.names {
		rio.Append(idx.storedChrom(name))
	}
	rio.Append(offsetsBlock(idx.offsets))
	return rio.Finish()
}

// Read deserializes an index written by Write.  It fails with errors.Invalid
// if rs is not an index file, or is corrupt, and with errors.Precondition if
// opts.Fingerprint is set and differs from the stored fingerprint.
func Read(rs io.ReadSeeker, opts ReadOpts) (*Index, error) {
	rio := recordio.NewScanner(rs, recordio.ScannerOpts{Unmarshal: unmarshalBlock})
	defer rio.Finish() // nolint: errcheck

	header := map[string]string{}
	for _, kv := range rio.Header() {
		// recordio adds keys of its own, not all of them strings.
		if s, ok := kv.Value.(string); ok {
			header[kv.Key] = s
		}
	}
	if err := rio.Err(); err != nil {
		return nil, errors.E(errors.Invalid, err, "bedindex: reading header")
	}
	if header[magicKey] != fileMagic {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("bedindex: wrong magic %q; expect %q", header[magicKey], fileMagic))
	}
	if header[versionKey] != fileVersion {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("bedindex: wrong version %q; expect %q", header[versionKey], fileVersion))
	}
	fingerprint, err := strconv.ParseUint(header[fingerprintKey], 16, 64)
	if err != nil {
		return nil, errors.E(errors.Invalid, err, "bedindex: fingerprint")
	}
	if opts.Fingerprint != 0 && opts.Fingerprint != fingerprint {
		return nil, errors.E(errors.Precondition,
			fmt.Sprintf("bedindex: index is stale: built from data with fingerprint %x, but the data now has fingerprint %x", fingerprint, opts.Fingerprint))
	}
	nRecords, err := strconv.Atoi(header[recordsKey])
	if err != nil || nRecords < 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("bedindex: bad record count %q", header[recordsKey]))
	}
	bedOpts, err := readBedOpts(header)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*chromBuilder)
	var offsets []int64
	for rio.Scan() {
		switch b := rio.Get().(type) {
		case *chromBlock:
			if groups[b.name] != nil {
				return nil, errors.E(errors.Invalid, fmt.Sprintf("bedindex: chromosome %s stored twice", b.name))
			}
			g := newChromBuilder()
			for _, e := range b.entries {
				if e.end <= e.start || e.ordinal >= nRecords {
					return nil, errors.E(errors.Invalid, fmt.Sprintf("bedindex: %s: bad entry %+v", b.name, e))
				}
				g.add(interval.Pair{Start: e.start, End: e.end}, e.ordinal, true)
			}
			for _, ords := range g.ordinals {
				sort.Ints(ords)
			}
			groups[b.name] = g
		case offsetsBlock:
			offsets = b
		}
	}
	if err := rio.Err(); err != nil {
		return nil, errors.E(errors.Invalid, err, "bedindex: reading blocks")
	}
	if len(offsets) != 0 && len(offsets) != nRecords {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("bedindex: %d offsets for %d records", len(offsets), nRecords))
	}
	if len(offsets) == 0 {
		offsets = nil
	}
	idx, err := newIndex(groups, nRecords)
	if err != nil {
		return nil, err
	}
	idx.id = header[idKey]
	idx.fingerprint = fingerprint
	idx.offsets = offsets
	idx.bedOpts = bedOpts
	return idx, nil
}

func readBedOpts(header map[string]string) (bed.Opts, error) {
	opts := bed.DefaultOpts
	if s, ok := header[delimiterKey]; ok {
		d, err := strconv.ParseUint(s, 10, 8)
		if err != nil {
			return opts, errors.E(errors.Invalid, fmt.Sprintf("bedindex: bad delimiter %q", s))
		}
		opts.Delimiter = byte(d)
	}
	if s, ok := header[oneBasedKey]; ok {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return opts, errors.E(errors.Invalid, fmt.Sprintf("bedindex: bad one-based flag %q", s))
		}
		opts.OneBasedInput = b
	}
	return opts, nil
}

// WriteFile writes idx to path, clobbering any existing file.
func WriteFile(ctx context.Context, path string, idx *Index) error {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, path)
	}
	e := errors.Once{}
	e.Set(Write(out.Writer(ctx), idx))
	e.Set(out.Close(ctx))
	if err := e.Err(); err != nil {
		return errors.E(err, path)
	}
	log.Printf("%s: wrote index of %d record(s) on %d chromosome(s)", path, idx.nRecords, len(idx.names))
	return nil
}

// ReadFile reads the index stored at path.
func ReadFile(ctx context.Context, path string, opts ReadOpts) (idx *Index, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return nil, errors.E(err, path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	if idx, err = Read(in.Reader(ctx), opts); err != nil {
		return nil, errors.E(err, path)
	}
	return idx, nil
}
