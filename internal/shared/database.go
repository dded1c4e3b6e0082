package shared

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultBusyTimeoutMS is how long SQLite waits on a locked database before failing.
const DefaultBusyTimeoutMS = 5000

// NewDatabase opens a connection to a SQLite database at the specified path.
// The path can be ":memory:" for an in-memory database.
// Returns an open database connection or an error if connection fails.
//
// Connections enforce foreign keys and begin transactions with BEGIN IMMEDIATE,
// so a transaction holds the write lock from its first statement.
func NewDatabase(path string) (*sql.DB, error) {
	return NewDatabaseWithTimeout(path, DefaultBusyTimeoutMS)
}

// NewDatabaseWithTimeout is [NewDatabase] with an explicit busy timeout in milliseconds.
func NewDatabaseWithTimeout(path string, busyTimeoutMS int) (*sql.DB, error) {
	if busyTimeoutMS <= 0 {
		busyTimeoutMS = DefaultBusyTimeoutMS
	}

	db, err := sql.Open("sqlite3", dsn(path, busyTimeoutMS))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// every connection to ":memory:" is a separate database
	if IsMemoryPath(path) {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// ConfigureDatabase sets connection pool settings for the database.
// Recommended for production use to limit connections and improve performance.
func ConfigureDatabase(db *sql.DB, maxOpenConns, maxIdleConns int) {
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}
}

func dsn(path string, busyTimeoutMS int) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_foreign_keys=on&_busy_timeout=%d&_txlock=immediate", path, sep, busyTimeoutMS)
}

// IsMemoryPath reports whether path names an in-memory database, which must keep a single connection.
func IsMemoryPath(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}
