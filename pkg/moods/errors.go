package moods

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateEntry     = errors.New("mood entry already exists for this day")
	ErrEntryNotFound      = errors.New("mood entry not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError reports a bad input field. It is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// DuplicateEntryError is returned by RecordMood when the patient already has an
// entry for the day. Callers switch to UpsertToday or UpdateEntry.
type DuplicateEntryError struct {
	PatientID string
	Date      time.Time
}

func (e *DuplicateEntryError) Error() string {
	return fmt.Sprintf("mood entry already exists for patient %s on %s", e.PatientID, e.Date.Format(DateLayout))
}

func (e *DuplicateEntryError) Is(target error) bool { return target == ErrDuplicateEntry }

// StorageError wraps an infrastructure failure from the backing store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorageUnavailable }

// StorageFailure wraps err as a *StorageError unless it is nil or already
// classified.
func StorageFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDuplicateEntry) || errors.Is(err, ErrEntryNotFound) || errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
