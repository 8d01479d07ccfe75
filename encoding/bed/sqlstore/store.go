package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/bedindex/encoding/bed"
	"github.com/grailbio/bedindex/interval"
)

var _ bed.Store = (*Store)(nil)

// Store is a bed.Store backed by the bed_records table.  It is safe for
// concurrent use.
type Store struct {
	db *sql.DB
}

// New creates a Store on db, creating the schema if needed.
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.E(errors.Invalid, "sqlstore: db is nil")
	}
	if err := EnsureSchema(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Import replaces the contents of the store with records; records[i] gets
// ordinal i.  Import is atomic.
func (s *Store) Import(ctx context.Context, records []bed.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.E(err, "sqlstore: starting import")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bed_records`); err != nil {
		return errors.E(err, "sqlstore: clearing records")
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO bed_records(ordinal, chrom, start_pos, end_pos, n_extra, extra) VALUES(?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.E(err, "sqlstore: preparing insert")
	}
	defer stmt.Close() // nolint: errcheck

	for ordinal, rec := range records {
		if _, err := stmt.ExecContext(ctx, ordinal, rec.Chrom, int64(rec.Start), int64(rec.End), len(rec.Extra), encodeExtra(rec.Extra)); err != nil {
			return errors.E(err, fmt.Sprintf("sqlstore: inserting ordinal %d", ordinal))
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.E(err, fmt.Sprintf("sqlstore: committing %d record(s)", len(records)))
	}
	log.Printf("sqlstore: imported %d record(s)", len(records))
	return nil
}

// Fetch implements bed.Store.Fetch.
func (s *Store) Fetch(ctx context.Context, ordinal int) (bed.Record, error) {
	var (
		rec        bed.Record
		start, end int64
		nExtra     int
		extra      []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT chrom, start_pos, end_pos, n_extra, extra FROM bed_records WHERE ordinal = ?`, ordinal,
	).Scan(&rec.Chrom, &start, &end, &nExtra, &extra)
	if err == sql.ErrNoRows {
		return bed.Record{}, errors.E(errors.NotExist, fmt.Sprintf("sqlstore: no record with ordinal %d", ordinal))
	}
	if err != nil {
		return bed.Record{}, errors.E(err, fmt.Sprintf("sqlstore: fetching ordinal %d", ordinal))
	}
	if start < 0 || end > interval.PosTypeMax {
		return bed.Record{}, errors.E(errors.Integrity, fmt.Sprintf("sqlstore: ordinal %d: coordinates [%d, %d) out of range", ordinal, start, end))
	}
	rec.Start, rec.End = interval.PosType(start), interval.PosType(end)
	if rec.Extra, err = decodeExtra(extra, nExtra); err != nil {
		return bed.Record{}, errors.E(errors.Integrity, err, fmt.Sprintf("sqlstore: ordinal %d", ordinal))
	}
	return rec, nil
}

// Len returns the number of stored records.
func (s *Store) Len(ctx context.Context) (n int, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bed_records`).Scan(&n); err != nil {
		return 0, errors.E(err, "sqlstore: counting records")
	}
	return n, nil
}
