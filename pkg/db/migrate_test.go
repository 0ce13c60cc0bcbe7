package db

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/mattn/go-sqlite3"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDBConnection(":memory:", false, "NORMAL")
	if err != nil {
		t.Fatalf("OpenDBConnection failed for in-memory DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func tableNames(t *testing.T, db *sql.DB) map[string]bool {
	t.Helper()
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		t.Fatalf("Failed to list tables: %v", err)
	}
	defer rows.Close()
	names := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("Failed to scan table name: %v", err)
		}
		names[name] = true
	}
	return names
}

func TestUpgradeDBInitializesFreshDatabase(t *testing.T) {
	db := openMemory(t)

	if v, err := SchemaVersion(db, LedgerComponent); err != nil || v != 0 {
		t.Fatalf("Expected version 0 before upgrade, got %d (err=%v)", v, err)
	}
	if err := UpgradeDB(db, ":memory:", TargetSchemaVersion, nil); err != nil {
		t.Fatalf("UpgradeDB failed on a new database: %v", err)
	}

	tables := tableNames(t, db)
	for _, name := range []string{"moodledger_versions", "mood_entries"} {
		if !tables[name] {
			t.Errorf("Table %q was not created", name)
		}
	}
	if v, err := SchemaVersion(db, LedgerComponent); err != nil || v != TargetSchemaVersion {
		t.Errorf("Expected version %d, got %d (err=%v)", TargetSchemaVersion, v, err)
	}

	// A second run is a no-op.
	if err := UpgradeDB(db, ":memory:", TargetSchemaVersion, nil); err != nil {
		t.Errorf("UpgradeDB failed on an up-to-date database: %v", err)
	}
}

func TestUpgradeDBRefusesVersionMismatch(t *testing.T) {
	tests := []struct {
		name   string
		stored int64
		target int64
		want   error
	}{
		{"older database", 1, 2, ErrSchemaTooOld},
		{"newer database", 3, 1, ErrSchemaTooNew},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := openMemory(t)
			if err := InitializeSchema(db, tt.stored); err != nil {
				t.Fatalf("InitializeSchema(%d) failed: %v", tt.stored, err)
			}

			err := UpgradeDB(db, "moods.db", tt.target, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
			if v, _ := SchemaVersion(db, LedgerComponent); v != tt.stored {
				t.Errorf("Stored version changed from %d to %d after a refused upgrade", tt.stored, v)
			}
		})
	}
}

func TestSchemaRejectsSecondEntryForSameDay(t *testing.T) {
	db := openMemory(t)
	if err := UpgradeDB(db, ":memory:", TargetSchemaVersion, nil); err != nil {
		t.Fatalf("UpgradeDB failed: %v", err)
	}

	insert := `INSERT INTO mood_entries (id, patient_id, entry_date, mood, mood_score, notes, created_at, updated_at)
VALUES (?, 'patient-1', '2024-01-01', 'CALM', 4, '', 0, 0)`
	if _, err := db.Exec(insert, "a"); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	_, err := db.Exec(insert, "b")
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique {
		t.Errorf("Expected SQLITE_CONSTRAINT_UNIQUE, got %v", err)
	}
}

func TestSchemaRejectsUnknownMood(t *testing.T) {
	db := openMemory(t)
	if err := InitializeSchema(db, TargetSchemaVersion); err != nil {
		t.Fatalf("InitializeSchema failed: %v", err)
	}

	_, err := db.Exec(`INSERT INTO mood_entries (id, patient_id, entry_date, mood, mood_score, notes, created_at, updated_at)
VALUES ('x', 'patient-1', '2024-01-01', 'ELATED', 5, '', 0, 0)`)
	if err == nil {
		t.Errorf("Expected CHECK constraint to reject an unknown mood")
	}
}

func TestOpenDBConnectionRejectsBadSyncMode(t *testing.T) {
	if _, err := OpenDBConnection(":memory:", false, "SOMETIMES"); err == nil {
		t.Fatalf("Expected an error for an invalid sync pragma")
	}
	if !ValidSyncMode("normal") || ValidSyncMode("sometimes") {
		t.Errorf("ValidSyncMode returned unexpected results")
	}
}
