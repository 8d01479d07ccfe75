// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bedindex

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/bedindex/encoding/bed"
	"github.com/grailbio/bedindex/interval"
)

// Opts controls index construction.
type Opts struct {
	// KeepDuplicates retains every ordinal when several records share the same
	// (chromosome, start, end).  By default only the last such record is
	// indexed.
	KeepDuplicates bool
}

// DefaultOpts is the default value of Opts.
var DefaultOpts = Opts{}

// Index answers containment queries over the records of one BED file.  It
// keeps, per chromosome, an interval.Tree over the record intervals and a map
// from interval to the ordinal(s) of the record(s) carrying it.  Records
// themselves are not stored; see bed.Store.
//
// An Index is built once by Build, BuildSource or Read and is immutable
// afterwards; all methods are safe for concurrent use.
type Index struct {
	chroms map[string]*chromIndex
	// names lists the keys of chroms, sorted.
	names    []string
	nRecords int

	id          string
	fingerprint uint64
	offsets     []int64
	bedOpts     bed.Opts
}

type chromIndex struct {
	tree *interval.Tree
	// ordinals[p] is sorted, and nonempty for every p stored in tree.
	ordinals map[interval.Pair][]int
}

// chromBuilder accumulates one chromosome's intervals during construction.
type chromBuilder struct {
	se       *interval.StartEnds
	ordinals map[interval.Pair][]int
}

func newChromBuilder() *chromBuilder {
	return &chromBuilder{se: interval.NewStartEnds(), ordinals: make(map[interval.Pair][]int)}
}

func (b *chromBuilder) add(p interval.Pair, ordinal int, keepDuplicates bool) {
	b.se.Add(p.Start, p.End)
	if keepDuplicates {
		b.ordinals[p] = append(b.ordinals[p], ordinal)
	} else {
		b.ordinals[p] = []int{ordinal}
	}
}

// Build indexes records; the ordinal of records[i] is i.  Every record must
// satisfy bed.Record.Validate; otherwise Build fails with an errors.Invalid
// error naming the first offending ordinal, and no index is produced.
func Build(records []bed.Record, opts Opts) (*Index, error) {
	groups := make(map[string]*chromBuilder)
	for ordinal, rec := range records {
		if err := rec.Validate(); err != nil {
			return nil, errors.E(err, fmt.Sprintf("bedindex.Build: ordinal %d", ordinal))
		}
		g := groups[rec.Chrom]
		if g == nil {
			g = newChromBuilder()
			groups[rec.Chrom] = g
		}
		g.add(rec.Pair(), ordinal, opts.KeepDuplicates)
	}
	idx, err := newIndex(groups, len(records))
	if err != nil {
		return nil, err
	}
	idx.id = uuid.New().String()
	return idx, nil
}

// BuildSource is Build for a loaded BED file.  The index also remembers the
// file's fingerprint, record offsets and parse options, so that it can be
// persisted and later used with a bed.FileStore without reparsing the file.
func BuildSource(src bed.Source, opts Opts) (*Index, error) {
	idx, err := Build(src.Records, opts)
	if err != nil {
		if src.Path != "" {
			err = errors.E(err, src.Path)
		}
		return nil, err
	}
	idx.fingerprint = src.Fingerprint
	idx.offsets = src.Offsets
	idx.bedOpts = src.Opts
	return idx, nil
}

// newIndex builds one tree per chromosome, in parallel, and publishes them
// together once all are complete.
func newIndex(groups map[string]*chromBuilder, nRecords int) (*Index, error) {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	built := make([]*chromIndex, len(names))
	err := traverse.Each(len(names), func(i int) error {
		g := groups[names[i]]
		built[i] = &chromIndex{tree: interval.NewTree(g.se), ordinals: g.ordinals}
		return nil
	})
	if err != nil {
		return nil, err
	}
	idx := &Index{
		chroms:   make(map[string]*chromIndex, len(names)),
		names:    names,
		nRecords: nRecords,
	}
	for i, name := range names {
		idx.chroms[name] = built[i]
		log.Debug.Printf("bedindex: %s: %d interval(s), span %d", name, built[i].tree.Len(), built[i].tree.Span())
	}
	return idx, nil
}

// Find returns the ordinals of the records on chrom whose interval lies
// entirely inside [start, end), in increasing order.  An unknown chromosome
// or an empty range yields an empty result.
func (idx *Index) Find(chrom string, start, end interval.PosType) []int {
	ci := idx.chroms[chrom]
	if ci == nil {
		return nil
	}
	var ordinals []int
	for _, p := range ci.tree.Find(start, end) {
		ords, ok := ci.ordinals[p]
		if !ok {
			log.Panicf("bedindex: internal error: interval %s:%v has no ordinal", chrom, p)
		}
		ordinals = append(ordinals, ords...)
	}
	sort.Ints(ordinals)
	return ordinals
}

// FindRegion is Find for an interval.Region.
func (idx *Index) FindRegion(r interval.Region) []int {
	return idx.Find(r.Chrom, r.Start, r.End)
}

// Chromosomes returns the indexed chromosome names, sorted.
func (idx *Index) Chromosomes() []string {
	return append([]string(nil), idx.names...)
}

// NumIntervals returns the number of distinct intervals indexed on chrom.
func (idx *Index) NumIntervals(chrom string) int {
	ci := idx.chroms[chrom]
	if ci == nil {
		return 0
	}
	return ci.tree.Len()
}

// NumRecords returns the number of records the index was built from.
func (idx *Index) NumRecords() int {
	return idx.nRecords
}

// ID returns a random identifier assigned when the index was built.  It is
// preserved by Write/Read.
func (idx *Index) ID() string {
	return idx.id
}

// Fingerprint returns the fingerprint of the source file, or 0 if the index
// was not built by BuildSource.
func (idx *Index) Fingerprint() uint64 {
	return idx.fingerprint
}

// Offsets returns the byte offset of each record in the source file, indexed
// by ordinal, or nil if unknown.
func (idx *Index) Offsets() []int64 {
	return idx.offsets
}

// BedOpts returns the options the source file was parsed with.  A bed.FileStore
// over the source must use the same options.
func (idx *Index) BedOpts() bed.Opts {
	return idx.bedOpts
}

// FindRecords returns the records on chrom lying entirely inside
// [start, end), fetched from store, in ordinal order.
func FindRecords(ctx context.Context, idx *Index, store bed.Store, chrom string, start, end interval.PosType) ([]bed.Record, error) {
	ordinals := idx.Find(chrom, start, end)
	records := make([]bed.Record, 0, len(ordinals))
	for _, ordinal := range ordinals {
		rec, err := store.Fetch(ctx, ordinal)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
