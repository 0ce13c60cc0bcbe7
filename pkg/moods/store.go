package moods

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists entries. Implementations must enforce uniqueness of
// (PatientID, Date) in the backend itself and classify errors:
// ErrDuplicateEntry on a uniqueness violation, ErrEntryNotFound when no row
// matches, *StorageError for everything else.
type Store interface {
	// Insert creates e. It must not read-then-write; a concurrent insert for
	// the same day has to fail with ErrDuplicateEntry.
	Insert(ctx context.Context, e Entry) (Entry, error)
	// UpsertDay inserts e or, when the day is taken, replaces mood, score,
	// notes and updated time in one atomic operation. ID and CreatedAt of an
	// existing entry are kept.
	UpsertDay(ctx context.Context, e Entry) (Entry, error)
	GetByID(ctx context.Context, id uuid.UUID) (Entry, error)
	GetByDay(ctx context.Context, patientID string, day time.Time) (Entry, error)
	List(ctx context.Context, q Query) ([]Entry, error)
	Update(ctx context.Context, id uuid.UUID, c Change) (Entry, error)
	// Delete removes the entry and returns what was stored.
	Delete(ctx context.Context, id uuid.UUID) (Entry, error)
	DeleteByPatient(ctx context.Context, patientID string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// Change is a field-level update. Mood and MoodScore travel together so they
// are written in the same statement.
type Change struct {
	Mood      *Mood
	MoodScore int
	Notes     *string
	UpdatedAt time.Time
}
