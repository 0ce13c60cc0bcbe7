package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// validSyncModes lists the allowed values for the synchronous pragma.
var validSyncModes = map[string]bool{
	"OFF":    true,
	"NORMAL": true,
	"FULL":   true,
	"EXTRA":  true,
}

// busyTimeoutMillis is how long a statement waits on a locked database before
// failing with SQLITE_BUSY.
const busyTimeoutMillis = 5000

// OpenDBConnection establishes a connection to a SQLite database with specified options.
// baseDSN is the initial data source name (e.g., file path or ":memory:").
// enableWAL sets the journal_mode to WAL if true.
// syncPragma sets the synchronous pragma (e.g., "OFF", "NORMAL", "FULL", "EXTRA").
//
// The pool is capped at a single connection: SQLite has one writer at a time,
// and an in-memory database only lives as long as its connection.
func OpenDBConnection(baseDSN string, enableWAL bool, syncPragma string) (*sql.DB, error) {
	params := url.Values{}
	params.Add("_busy_timeout", fmt.Sprint(busyTimeoutMillis))

	if enableWAL {
		params.Add("_journal_mode", "WAL")
	}

	if syncPragma != "" {
		ucSyncPragma := strings.ToUpper(syncPragma)
		if !validSyncModes[ucSyncPragma] {
			return nil, fmt.Errorf("invalid sync pragma value: %s. Must be one of OFF, NORMAL, FULL, EXTRA", syncPragma)
		}
		params.Add("_synchronous", ucSyncPragma)
	}

	constructedDSN := baseDSN
	if strings.Contains(baseDSN, "?") {
		constructedDSN += "&" + params.Encode()
	} else {
		constructedDSN += "?" + params.Encode()
	}

	db, err := sql.Open("sqlite3", constructedDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database with DSN '%s': %w", constructedDSN, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database with DSN '%s': %w", constructedDSN, err)
	}

	return db, nil
}

// ValidSyncMode reports whether mode is an accepted synchronous pragma.
func ValidSyncMode(mode string) bool {
	return validSyncModes[strings.ToUpper(mode)]
}
