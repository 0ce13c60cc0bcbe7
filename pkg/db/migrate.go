package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/unowned-ai/moodledger/pkg/logger"
)

const (
	// TargetSchemaVersion is the schema version of the ledger component this build writes.
	TargetSchemaVersion int64 = 1
	// LedgerComponent names the ledger's row in moodledger_versions.
	LedgerComponent = "moodledger"
)

var (
	// ErrSchemaTooOld means the file predates TargetSchemaVersion and no
	// migration path exists yet.
	ErrSchemaTooOld = errors.New("database schema is older than this build supports")
	// ErrSchemaTooNew means the file was written by a newer build.
	ErrSchemaTooNew = errors.New("database schema is newer than this build supports")
)

// SchemaVersion reports the stored version of component, or 0 when the
// versions table or the row is missing.
func SchemaVersion(db *sql.DB, component string) (int64, error) {
	var version int64
	err := db.QueryRow(`SELECT version FROM moodledger_versions WHERE component = ?;`, component).Scan(&version)
	switch {
	case err == nil:
		return version, nil
	case errors.Is(err, sql.ErrNoRows):
		return 0, nil
	case strings.Contains(err.Error(), "no such table"):
		return 0, nil
	default:
		return 0, fmt.Errorf("read schema version of %s: %w", component, err)
	}
}

// InitializeSchema creates the tables and records version for the ledger
// component. Safe to run on an initialized database.
func InitializeSchema(db *sql.DB, version int64) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(SchemaV1); err != nil {
		return fmt.Errorf("apply schema v1: %w", err)
	}
	const setVersion = `
INSERT INTO moodledger_versions (component, version) VALUES (?, ?)
ON CONFLICT(component) DO UPDATE SET version = excluded.version, created_at = unixepoch();`
	if _, err := tx.Exec(setVersion, LedgerComponent, version); err != nil {
		return fmt.Errorf("record schema version %d: %w", version, err)
	}
	return tx.Commit()
}

// UpgradeDB brings the ledger component of db to target. ident only names
// the database in logs and errors.
func UpgradeDB(db *sql.DB, ident string, target int64, log *logger.Logger) error {
	if log == nil {
		log = logger.NewNop()
	}
	current, err := SchemaVersion(db, LedgerComponent)
	if err != nil {
		return err
	}

	switch {
	case current == 0:
		log.Info("initializing database schema", "component", LedgerComponent, "db", ident, "version", target)
		if err := InitializeSchema(db, target); err != nil {
			return fmt.Errorf("initialize %s: %w", ident, err)
		}
		return nil
	case current == target:
		log.Debug("database schema up to date", "component", LedgerComponent, "db", ident, "version", current)
		return nil
	case current < target:
		return fmt.Errorf("%s at version %d, want %d: %w", ident, current, target, ErrSchemaTooOld)
	default:
		return fmt.Errorf("%s at version %d, want %d: %w", ident, current, target, ErrSchemaTooNew)
	}
}
