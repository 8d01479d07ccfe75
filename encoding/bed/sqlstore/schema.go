// Package sqlstore keeps BED records in a SQLite database, keyed by ordinal,
// so that index query results can be resolved without the original file.
package sqlstore

import (
	"bytes"
	"database/sql"
	"fmt"

	"github.com/grailbio/base/errors"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const recordsSchema = `
CREATE TABLE IF NOT EXISTS bed_records (
    ordinal   INTEGER PRIMARY KEY,
    chrom     TEXT NOT NULL,
    start_pos INTEGER NOT NULL,
    end_pos   INTEGER NOT NULL,
    n_extra   INTEGER NOT NULL,
    extra     BLOB
);
`

// Open opens the SQLite database named by dsn, typically a file path.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.E(err, "sqlstore: open", dsn)
	}
	return db, nil
}

// EnsureSchema creates the records table if it does not exist.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(recordsSchema); err != nil {
		return errors.E(err, "sqlstore: creating schema")
	}
	return nil
}

// Extra fields are stored NUL-separated; n_extra disambiguates a single empty
// field from none.
func encodeExtra(extra []string) []byte {
	var buf bytes.Buffer
	for i, f := range extra {
		if i > 0 {
			buf.WriteByte(0)
		}
		buf.WriteString(f)
	}
	return buf.Bytes()
}

func decodeExtra(data []byte, n int) ([]string, error) {
	if n == 0 {
		return nil, nil
	}
	fields := bytes.Split(data, []byte{0})
	if len(fields) != n {
		return nil, errors.E(errors.Integrity, fmt.Sprintf("sqlstore: expected %d extra field(s), found %d", n, len(fields)))
	}
	extra := make([]string, n)
	for i, f := range fields {
		extra[i] = string(f)
	}
	return extra, nil
}
