package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/bedindex/bedindex"
	"github.com/grailbio/bedindex/encoding/bed"
	"github.com/grailbio/bedindex/encoding/bed/sqlstore"
)

// loadFlags controls how BED files are parsed.
type loadFlags struct {
	delimiter string
	oneBased  bool
}

func (f *loadFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.delimiter, "delimiter", "", `Field delimiter of the BED file: a single character, or "tab".
By default fields are separated by runs of spaces and tabs.`)
	fs.BoolVar(&f.oneBased, "one-based", false, "Coordinates in the BED file are 1-based and closed, instead of 0-based and half-open")
}

func (f *loadFlags) opts() (bed.Opts, error) {
	opts := bed.DefaultOpts
	opts.OneBasedInput = f.oneBased
	switch {
	case f.delimiter == "":
	case f.delimiter == "tab" || f.delimiter == `\t`:
		opts.Delimiter = '\t'
	case len(f.delimiter) == 1:
		opts.Delimiter = f.delimiter[0]
	default:
		return opts, errors.E(errors.Invalid, fmt.Sprintf("invalid delimiter %q", f.delimiter))
	}
	return opts, nil
}

// queryFlags are shared by the commands that answer queries.
type queryFlags struct {
	load           loadFlags
	indexPath      string
	sqlitePath     string
	staleOK        bool
	keepDuplicates bool
}

func (f *queryFlags) register(fs *flag.FlagSet) {
	f.load.register(fs)
	fs.StringVar(&f.indexPath, "index", "", "Index file. By default, bedpath"+bedindex.FileSuffix+". If the file does not exist, the BED file is indexed in memory.")
	fs.StringVar(&f.sqlitePath, "sqlite", "", "Fetch records from this SQLite database, as created by 'index -sqlite', instead of the BED file")
	fs.BoolVar(&f.staleOK, "stale-ok", false, "Use the index even if the BED file changed since it was built")
	fs.BoolVar(&f.keepDuplicates, "keep-duplicates", false, "When indexing in memory, keep every record of a duplicated interval")
}

func defaultIndexPath(bedPath string) string {
	return bedPath + bedindex.FileSuffix
}

// session holds an index and the store that resolves its ordinals.
type session struct {
	idx   *bedindex.Index
	store bed.Store
	close func(ctx context.Context) error
}

func noClose(context.Context) error { return nil }

// openSession loads the persisted index for bedPath, or indexes the file in
// memory if there is none, and opens the record store.
func openSession(ctx context.Context, bedPath string, f queryFlags) (*session, error) {
	opts, err := f.load.opts()
	if err != nil {
		return nil, err
	}
	indexPath := f.indexPath
	if indexPath == "" {
		indexPath = defaultIndexPath(bedPath)
	}
	s := &session{close: noClose}
	if _, err := file.Stat(ctx, indexPath); err != nil {
		log.Printf("%s: %v; indexing %s in memory", indexPath, err, bedPath)
		src, err := bed.LoadPath(ctx, bedPath, opts)
		if err != nil {
			return nil, err
		}
		if s.idx, err = bedindex.BuildSource(src, bedindex.Opts{KeepDuplicates: f.keepDuplicates}); err != nil {
			return nil, err
		}
		s.store = bed.SliceStore(src.Records)
	} else {
		var readOpts bedindex.ReadOpts
		if !f.staleOK {
			if readOpts.Fingerprint, err = bed.Fingerprint(ctx, bedPath); err != nil {
				return nil, err
			}
		}
		if s.idx, err = bedindex.ReadFile(ctx, indexPath, readOpts); err != nil {
			return nil, err
		}
		if s.idx.Offsets() == nil && f.sqlitePath == "" {
			return nil, errors.E(errors.Precondition, fmt.Sprintf("%s: index has no record offsets; rebuild it with 'index', or pass -sqlite", indexPath))
		}
		if f.sqlitePath == "" {
			if opts, err = storeOpts(opts, s.idx.BedOpts(), indexPath); err != nil {
				return nil, err
			}
			fs, err := bed.NewFileStore(ctx, bedPath, s.idx.Offsets(), opts)
			if err != nil {
				return nil, err
			}
			s.store, s.close = fs, fs.Close
		}
	}
	if f.sqlitePath != "" {
		db, err := sqlstore.Open(f.sqlitePath)
		if err != nil {
			return nil, err
		}
		store, err := sqlstore.New(db)
		if err != nil {
			db.Close() // nolint: errcheck
			return nil, err
		}
		if err := checkStoreSize(ctx, store, s.idx, f.sqlitePath); err != nil {
			db.Close() // nolint: errcheck
			return nil, err
		}
		s.store = store
		s.close = func(context.Context) error { return db.Close() }
	}
	return s, nil
}

// storeOpts returns the options to parse the BED file with when fetching
// records for an index built with indexed.  Flags left at their defaults defer
// to the index; any other setting must agree with it.
func storeOpts(flagged, indexed bed.Opts, indexPath string) (bed.Opts, error) {
	if flagged != bed.DefaultOpts && flagged != indexed {
		return bed.Opts{}, errors.E(errors.Precondition,
			fmt.Sprintf("%s: index was built with delimiter %q, one-based %v; the flags ask for delimiter %q, one-based %v",
				indexPath, indexed.Delimiter, indexed.OneBasedInput, flagged.Delimiter, flagged.OneBasedInput))
	}
	return indexed, nil
}

func checkStoreSize(ctx context.Context, store *sqlstore.Store, idx *bedindex.Index, path string) error {
	n, err := store.Len(ctx)
	if err != nil {
		return err
	}
	if n != idx.NumRecords() {
		return errors.E(errors.Precondition, fmt.Sprintf("%s: holds %d record(s), but the index has %d", path, n, idx.NumRecords()))
	}
	return nil
}
