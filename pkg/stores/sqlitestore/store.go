// Package sqlitestore keeps mood entries in a SQLite database.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	pkgdb "github.com/unowned-ai/moodledger/pkg/db"
	"github.com/unowned-ai/moodledger/pkg/moods"
)

const entryColumns = `id, patient_id, entry_date, mood, mood_score, notes, created_at, updated_at`

const (
	insertEntryStatement = `
	INSERT INTO mood_entries (` + entryColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	RETURNING ` + entryColumns

	upsertEntryStatement = `
	INSERT INTO mood_entries (` + entryColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (patient_id, entry_date) DO UPDATE
	SET mood = excluded.mood,
	    mood_score = excluded.mood_score,
	    notes = excluded.notes,
	    updated_at = excluded.updated_at
	RETURNING ` + entryColumns

	getEntryStatement = `
	SELECT ` + entryColumns + `
	FROM mood_entries
	WHERE id = ?
	`

	getEntryByDayStatement = `
	SELECT ` + entryColumns + `
	FROM mood_entries
	WHERE patient_id = ? AND entry_date = ?
	`

	updateEntryStatement = `
	UPDATE mood_entries
	SET mood = COALESCE(?, mood),
	    mood_score = CASE WHEN ? IS NULL THEN mood_score ELSE ? END,
	    notes = COALESCE(?, notes),
	    updated_at = ?
	WHERE id = ?
	RETURNING ` + entryColumns

	deleteEntryStatement = `
	DELETE FROM mood_entries
	WHERE id = ?
	RETURNING ` + entryColumns

	deleteEntriesByPatientStatement = `
	DELETE FROM mood_entries
	WHERE patient_id = ?
	`
)

type Store struct {
	db *sql.DB
}

// New wraps an open connection whose schema is already at
// pkgdb.TargetSchemaVersion.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to the database at path and brings its schema up to date.
func Open(path string, enableWAL bool, syncPragma string) (*Store, error) {
	conn, err := pkgdb.OpenDBConnection(path, enableWAL, syncPragma)
	if err != nil {
		return nil, err
	}
	if err := pkgdb.UpgradeDB(conn, path, pkgdb.TargetSchemaVersion, nil); err != nil {
		conn.Close()
		return nil, err
	}
	return &Store{db: conn}, nil
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Insert(ctx context.Context, e moods.Entry) (moods.Entry, error) {
	row := s.db.QueryRowContext(ctx, insertEntryStatement, entryArgs(e)...)
	saved, err := scanEntry(row)
	if err != nil {
		if isUniqueViolation(err) {
			return moods.Entry{}, moods.ErrDuplicateEntry
		}
		return moods.Entry{}, moods.StorageFailure("sqlite insert", err)
	}
	return saved, nil
}

func (s *Store) UpsertDay(ctx context.Context, e moods.Entry) (moods.Entry, error) {
	row := s.db.QueryRowContext(ctx, upsertEntryStatement, entryArgs(e)...)
	saved, err := scanEntry(row)
	if err != nil {
		return moods.Entry{}, moods.StorageFailure("sqlite upsert", err)
	}
	return saved, nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (moods.Entry, error) {
	return s.getOne(ctx, "sqlite get", getEntryStatement, id.String())
}

func (s *Store) GetByDay(ctx context.Context, patientID string, day time.Time) (moods.Entry, error) {
	return s.getOne(ctx, "sqlite get by day", getEntryByDayStatement, patientID, day.Format(moods.DateLayout))
}

func (s *Store) getOne(ctx context.Context, op, query string, args ...interface{}) (moods.Entry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return moods.Entry{}, moods.ErrEntryNotFound
		}
		return moods.Entry{}, moods.StorageFailure(op, err)
	}
	return e, nil
}

func (s *Store) List(ctx context.Context, q moods.Query) ([]moods.Entry, error) {
	var (
		sb   strings.Builder
		args = []interface{}{q.PatientID}
	)
	sb.WriteString(`SELECT ` + entryColumns + ` FROM mood_entries WHERE patient_id = ?`)
	if q.From != nil {
		sb.WriteString(` AND entry_date >= ?`)
		args = append(args, q.From.Format(moods.DateLayout))
	}
	if q.To != nil {
		sb.WriteString(` AND entry_date <= ?`)
		args = append(args, q.To.Format(moods.DateLayout))
	}
	if q.Order == moods.SortAsc {
		sb.WriteString(` ORDER BY entry_date ASC`)
	} else {
		sb.WriteString(` ORDER BY entry_date DESC`)
	}
	if q.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, moods.StorageFailure("sqlite list", err)
	}
	defer rows.Close()

	var entries []moods.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, moods.StorageFailure("sqlite list", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, moods.StorageFailure("sqlite list", err)
	}
	return entries, nil
}

func (s *Store) Update(ctx context.Context, id uuid.UUID, c moods.Change) (moods.Entry, error) {
	var mood, score, notes interface{}
	if c.Mood != nil {
		mood = string(*c.Mood)
		score = c.MoodScore
	}
	if c.Notes != nil {
		notes = *c.Notes
	}

	row := s.db.QueryRowContext(ctx, updateEntryStatement, mood, score, score, notes, c.UpdatedAt.UnixMilli(), id.String())
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return moods.Entry{}, moods.ErrEntryNotFound
		}
		return moods.Entry{}, moods.StorageFailure("sqlite update", err)
	}
	return e, nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) (moods.Entry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, deleteEntryStatement, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return moods.Entry{}, moods.ErrEntryNotFound
		}
		return moods.Entry{}, moods.StorageFailure("sqlite delete", err)
	}
	return e, nil
}

func (s *Store) DeleteByPatient(ctx context.Context, patientID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, deleteEntriesByPatientStatement, patientID)
	if err != nil {
		return 0, moods.StorageFailure("sqlite delete by patient", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, moods.StorageFailure("sqlite delete by patient", err)
	}
	return n, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return moods.StorageFailure("sqlite ping", err)
	}
	return nil
}

// Close checkpoints the WAL back into the main file and closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	// TRUNCATE mode waits for transactions and writes the WAL back to the main DB.
	// Without WAL this is a no-op.
	var checkpointErr error
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE);"); err != nil {
		checkpointErr = fmt.Errorf("wal checkpoint: %w", err)
	}
	return errors.Join(checkpointErr, s.db.Close())
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (moods.Entry, error) {
	var (
		e                    moods.Entry
		id, day, mood        string
		createdAt, updatedAt int64
	)
	err := row.Scan(&id, &e.PatientID, &day, &mood, &e.MoodScore, &e.Notes, &createdAt, &updatedAt)
	if err != nil {
		return moods.Entry{}, err
	}

	e.ID, err = uuid.Parse(id)
	if err != nil {
		return moods.Entry{}, fmt.Errorf("corrupt entry id %q: %w", id, err)
	}
	e.Date, err = time.Parse(moods.DateLayout, day)
	if err != nil {
		return moods.Entry{}, fmt.Errorf("corrupt entry date %q: %w", day, err)
	}
	e.Mood = moods.Mood(mood)
	e.CreatedAt = time.UnixMilli(createdAt).UTC()
	e.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return e, nil
}

func entryArgs(e moods.Entry) []interface{} {
	return []interface{}{
		e.ID.String(),
		e.PatientID,
		e.Date.Format(moods.DateLayout),
		string(e.Mood),
		e.MoodScore,
		e.Notes,
		e.CreatedAt.UnixMilli(),
		e.UpdatedAt.UnixMilli(),
	}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
