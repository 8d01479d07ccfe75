// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package bedindex indexes the records of a BED file for containment
// queries: given a chromosome and a half-open range [start, end), Find returns
// the ordinals of the records whose interval lies entirely inside the range.
//
// Records are identified by ordinal, their 0-based position among the data
// lines of the file.  The index does not keep the records themselves; a
// bed.Store (bed.FileStore, bed.SliceStore, or sqlstore.Store) turns ordinals
// back into records, and FindRecords combines the two steps.
//
// A typical use:
//
//   src, err := bed.LoadPath(ctx, "regions.bed.gz", bed.DefaultOpts)
//   ...
//   idx, err := bedindex.BuildSource(src, bedindex.DefaultOpts)
//   ...
//   err = bedindex.WriteFile(ctx, "regions.bed.gz.bix", idx)
//
// and later
//
//   fp, err := bed.Fingerprint(ctx, "regions.bed.gz")
//   idx, err := bedindex.ReadFile(ctx, "regions.bed.gz.bix", bedindex.ReadOpts{Fingerprint: fp})
//   store, err := bed.NewFileStore(ctx, "regions.bed.gz", idx.Offsets(), bed.DefaultOpts)
//   recs, err := bedindex.FindRecords(ctx, idx, store, "chr1", 10000, 20000)
package bedindex
