// Package pgstore keeps mood entries in PostgreSQL through a pgx pool.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unowned-ai/moodledger/pkg/moods"
)

// Schema is applied by Migrate. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS mood_entries (
    id UUID PRIMARY KEY,
    patient_id TEXT NOT NULL,
    entry_date DATE NOT NULL,
    mood TEXT NOT NULL CHECK (mood IN ('ANGRY', 'SAD', 'ANXIOUS', 'TIRED', 'CALM', 'HAPPY')),
    mood_score SMALLINT NOT NULL CHECK (mood_score BETWEEN 1 AND 5),
    notes TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    CONSTRAINT mood_entries_patient_day UNIQUE (patient_id, entry_date)
);
`

const entryColumns = `id, patient_id, entry_date, mood, mood_score, notes, created_at, updated_at`

const (
	insertEntryStatement = `
	INSERT INTO mood_entries (` + entryColumns + `)
	VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8)
	RETURNING ` + entryColumns

	upsertEntryStatement = `
	INSERT INTO mood_entries (` + entryColumns + `)
	VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8)
	ON CONFLICT (patient_id, entry_date) DO UPDATE
	SET mood = EXCLUDED.mood,
	    mood_score = EXCLUDED.mood_score,
	    notes = EXCLUDED.notes,
	    updated_at = EXCLUDED.updated_at
	RETURNING ` + entryColumns

	getEntryStatement = `SELECT ` + entryColumns + ` FROM mood_entries WHERE id = $1`

	getEntryByDayStatement = `SELECT ` + entryColumns + ` FROM mood_entries WHERE patient_id = $1 AND entry_date = $2::date`

	updateEntryStatement = `
	UPDATE mood_entries
	SET mood = COALESCE($1::text, mood),
	    mood_score = COALESCE($2::smallint, mood_score),
	    notes = COALESCE($3::text, notes),
	    updated_at = $4
	WHERE id = $5
	RETURNING ` + entryColumns

	deleteEntryStatement = `DELETE FROM mood_entries WHERE id = $1 RETURNING ` + entryColumns

	deleteEntriesByPatientStatement = `DELETE FROM mood_entries WHERE patient_id = $1`
)

type Store struct {
	pool *pgxpool.Pool
}

// Open connects to dsn, pings, and applies Schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply postgres schema: %w", err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, e moods.Entry) (moods.Entry, error) {
	saved, err := scanEntry(s.pool.QueryRow(ctx, insertEntryStatement, entryArgs(e)...))
	if err != nil {
		if isUniqueViolation(err) {
			return moods.Entry{}, moods.ErrDuplicateEntry
		}
		return moods.Entry{}, moods.StorageFailure("postgres insert", err)
	}
	return saved, nil
}

func (s *Store) UpsertDay(ctx context.Context, e moods.Entry) (moods.Entry, error) {
	saved, err := scanEntry(s.pool.QueryRow(ctx, upsertEntryStatement, entryArgs(e)...))
	if err != nil {
		return moods.Entry{}, moods.StorageFailure("postgres upsert", err)
	}
	return saved, nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (moods.Entry, error) {
	return s.one(ctx, "postgres get", getEntryStatement, id)
}

func (s *Store) GetByDay(ctx context.Context, patientID string, day time.Time) (moods.Entry, error) {
	return s.one(ctx, "postgres get by day", getEntryByDayStatement, patientID, day.Format(moods.DateLayout))
}

func (s *Store) one(ctx context.Context, op, query string, args ...any) (moods.Entry, error) {
	e, err := scanEntry(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return moods.Entry{}, moods.ErrEntryNotFound
		}
		return moods.Entry{}, moods.StorageFailure(op, err)
	}
	return e, nil
}

func (s *Store) List(ctx context.Context, q moods.Query) ([]moods.Entry, error) {
	var (
		sb   strings.Builder
		args = []any{q.PatientID}
	)
	sb.WriteString(`SELECT ` + entryColumns + ` FROM mood_entries WHERE patient_id = $1`)
	if q.From != nil {
		args = append(args, q.From.Format(moods.DateLayout))
		fmt.Fprintf(&sb, ` AND entry_date >= $%d::date`, len(args))
	}
	if q.To != nil {
		args = append(args, q.To.Format(moods.DateLayout))
		fmt.Fprintf(&sb, ` AND entry_date <= $%d::date`, len(args))
	}
	if q.Order == moods.SortAsc {
		sb.WriteString(` ORDER BY entry_date ASC`)
	} else {
		sb.WriteString(` ORDER BY entry_date DESC`)
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, moods.StorageFailure("postgres list", err)
	}
	defer rows.Close()

	var entries []moods.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, moods.StorageFailure("postgres list", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, moods.StorageFailure("postgres list", err)
	}
	return entries, nil
}

func (s *Store) Update(ctx context.Context, id uuid.UUID, c moods.Change) (moods.Entry, error) {
	var (
		mood  *string
		score *int16
	)
	if c.Mood != nil {
		m := string(*c.Mood)
		sc := int16(c.MoodScore)
		mood, score = &m, &sc
	}

	e, err := scanEntry(s.pool.QueryRow(ctx, updateEntryStatement, mood, score, c.Notes, c.UpdatedAt, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return moods.Entry{}, moods.ErrEntryNotFound
		}
		return moods.Entry{}, moods.StorageFailure("postgres update", err)
	}
	return e, nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) (moods.Entry, error) {
	return s.one(ctx, "postgres delete", deleteEntryStatement, id)
}

func (s *Store) DeleteByPatient(ctx context.Context, patientID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, deleteEntriesByPatientStatement, patientID)
	if err != nil {
		return 0, moods.StorageFailure("postgres delete by patient", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return moods.StorageFailure("postgres ping", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanEntry(row pgx.Row) (moods.Entry, error) {
	var (
		e     moods.Entry
		mood  string
		score int16
	)
	if err := row.Scan(&e.ID, &e.PatientID, &e.Date, &mood, &score, &e.Notes, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return moods.Entry{}, err
	}
	e.Mood = moods.Mood(mood)
	e.MoodScore = int(score)
	e.Date = time.Date(e.Date.Year(), e.Date.Month(), e.Date.Day(), 0, 0, 0, 0, time.UTC)
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}

func entryArgs(e moods.Entry) []any {
	return []any{
		e.ID,
		e.PatientID,
		e.Date.Format(moods.DateLayout),
		string(e.Mood),
		int16(e.MoodScore),
		e.Notes,
		e.CreatedAt,
		e.UpdatedAt,
	}
}

// isUniqueViolation matches SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.TrimSpace(pgErr.Code) == "23505"
	}
	return false
}
