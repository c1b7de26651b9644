package sqliteutil

import (
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"
)

// OpenDB opens (creating if necessary) a sqlite database at `path` and
// applies `schema` to it.
func OpenDB(schema, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite does not tolerate concurrent writers
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	err = ApplySchema(db, schema)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// ApplySchema runs `schema` against an already open database. an
// "already exists" error is ignored so reopening an existing database
// is a no-op.
func ApplySchema(db *sql.DB, schema string) error {
	_, err := db.Exec(schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return err
	}
	return nil
}
