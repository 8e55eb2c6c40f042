// Package storage handles data persistence: the SQLite database holding the
// provisioned messages table.
package storage

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // Blank import: registers the SQLite driver.
	// In Go, importing a package for its side effects (init function) is done
	// with `_`. The sqlite3 package registers itself as a database/sql driver.
)

// schema is the provisioning artifact. The insert is guarded so repeated
// provisioning runs leave exactly one row with id 1 — no duplicate-key error,
// no duplicate row.
const schema = `
CREATE TABLE IF NOT EXISTS messages (
    id      INTEGER PRIMARY KEY,
    message TEXT NOT NULL
);

INSERT INTO messages (id, message)
SELECT 1, 'Hello from the database!'
WHERE NOT EXISTS (SELECT 1 FROM messages WHERE id = 1);
`

// NewDatabase opens a SQLite connection and validates it.
// sqlx wraps database/sql with convenience methods like GetContext.
//
// Key Go pattern: the constructor creates the resource AND validates it (Ping).
// If anything fails, we return an error — the caller decides what to do.
func NewDatabase(dbPath string) (*sqlx.DB, error) {
	// The DSN (Data Source Name) configures SQLite pragmas:
	// - WAL mode: allows concurrent reads while writing
	// - busy_timeout: wait up to 5s instead of failing on lock contention
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", dbPath)

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Ping actually opens the connection (Open is lazy in database/sql)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// SQLite performs best with a single writer connection
	db.SetMaxOpenConns(1)

	return db, nil
}

// Provision applies the schema and seed. It is deliberately separate from
// NewDatabase: the server only reads, and the schema is applied out-of-band
// by greeting-cli (or deployment tooling) before the service starts.
func Provision(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("provisioning messages table: %w", err)
	}
	return nil
}
