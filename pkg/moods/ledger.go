package moods

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/unowned-ai/moodledger/pkg/clock"
	"github.com/unowned-ai/moodledger/pkg/logger"
)

// Ledger records one mood per patient per calendar day and summarizes them.
// It holds no mutable state of its own; every call is one round trip to the
// Store.
type Ledger struct {
	store     Store
	clock     clock.Clock
	loc       *time.Location
	log       *logger.Logger
	publisher Publisher
}

type Option func(*Ledger)

func WithClock(c clock.Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithLocation sets the zone that decides which calendar day an instant falls
// on. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) { l.loc = loc }
}

func WithLogger(log *logger.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log.With("service", "MoodLedger")
		}
	}
}

func WithPublisher(p Publisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

func NewLedger(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:     store,
		clock:     clock.NewReal(),
		loc:       time.UTC,
		log:       logger.NewNop(),
		publisher: nopPublisher{},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.loc == nil {
		l.loc = time.UTC
	}
	return l
}

// Location returns the zone used for day boundaries.
func (l *Ledger) Location() *time.Location { return l.loc }

// Today returns the current calendar day in the ledger's zone.
func (l *Ledger) Today() time.Time {
	return NormalizeDate(l.clock.Now(), l.loc)
}

// RecordMood creates the entry for the day date falls on. A second entry for
// the same day fails with *DuplicateEntryError.
func (l *Ledger) RecordMood(ctx context.Context, patientID, mood string, date time.Time, notes string) (Entry, error) {
	if date.IsZero() {
		return Entry{}, &ValidationError{Field: "date", Reason: "is required"}
	}
	return l.record(ctx, patientID, mood, NormalizeDate(date, l.loc), notes)
}

// RecordMoodOn is RecordMood with a textual date (YYYY-MM-DD or RFC 3339).
func (l *Ledger) RecordMoodOn(ctx context.Context, patientID, mood, date, notes string) (Entry, error) {
	if _, err := validPatient(patientID); err != nil {
		return Entry{}, err
	}
	day, err := ParseDate(date, l.loc)
	if err != nil {
		return Entry{}, err
	}
	return l.record(ctx, patientID, mood, day, notes)
}

func (l *Ledger) record(ctx context.Context, patientID, mood string, day time.Time, notes string) (Entry, error) {
	pid, err := validPatient(patientID)
	if err != nil {
		return Entry{}, err
	}
	m, err := ParseMood(mood)
	if err != nil {
		return Entry{}, err
	}

	now := l.now()
	entry := Entry{
		ID:        uuid.New(),
		PatientID: pid,
		Mood:      m,
		MoodScore: m.Score(),
		Notes:     strings.TrimSpace(notes),
		Date:      day,
		CreatedAt: now,
		UpdatedAt: now,
	}

	saved, err := l.store.Insert(ctx, entry)
	if err != nil {
		if errors.Is(err, ErrDuplicateEntry) {
			l.log.Debug("mood entry already exists", "patient_id", pid, "date", day.Format(DateLayout))
			return Entry{}, &DuplicateEntryError{PatientID: pid, Date: day}
		}
		l.log.Error("record mood failed", "patient_id", pid, "error", err)
		return Entry{}, StorageFailure("record mood", err)
	}

	l.log.Info("mood recorded", "patient_id", pid, "date", day.Format(DateLayout), "mood", m)
	l.publish(ctx, Event{Type: EventRecorded, PatientID: pid, Entry: &saved})
	return saved, nil
}

// UpsertToday records or replaces today's entry in one atomic store call.
// The original CreatedAt survives a replacement.
func (l *Ledger) UpsertToday(ctx context.Context, patientID, mood, notes string) (Entry, error) {
	pid, err := validPatient(patientID)
	if err != nil {
		return Entry{}, err
	}
	m, err := ParseMood(mood)
	if err != nil {
		return Entry{}, err
	}

	now := l.now()
	day := NormalizeDate(now, l.loc)
	candidate := Entry{
		ID:        uuid.New(),
		PatientID: pid,
		Mood:      m,
		MoodScore: m.Score(),
		Notes:     strings.TrimSpace(notes),
		Date:      day,
		CreatedAt: now,
		UpdatedAt: now,
	}

	saved, err := l.store.UpsertDay(ctx, candidate)
	if err != nil {
		l.log.Error("upsert today failed", "patient_id", pid, "error", err)
		return Entry{}, StorageFailure("upsert today", err)
	}

	evType := EventUpdated
	if saved.ID == candidate.ID {
		evType = EventRecorded
	}
	l.log.Info("mood upserted", "patient_id", pid, "date", day.Format(DateLayout), "mood", m, "created", evType == EventRecorded)
	l.publish(ctx, Event{Type: evType, PatientID: pid, Entry: &saved})
	return saved, nil
}

// GetEntry returns the entry for the day date falls on.
func (l *Ledger) GetEntry(ctx context.Context, patientID string, date time.Time) (Entry, error) {
	if date.IsZero() {
		return Entry{}, &ValidationError{Field: "date", Reason: "is required"}
	}
	return l.getByDay(ctx, patientID, NormalizeDate(date, l.loc))
}

// GetEntryOn is GetEntry with a textual date.
func (l *Ledger) GetEntryOn(ctx context.Context, patientID, date string) (Entry, error) {
	if _, err := validPatient(patientID); err != nil {
		return Entry{}, err
	}
	day, err := ParseDate(date, l.loc)
	if err != nil {
		return Entry{}, err
	}
	return l.getByDay(ctx, patientID, day)
}

func (l *Ledger) getByDay(ctx context.Context, patientID string, day time.Time) (Entry, error) {
	pid, err := validPatient(patientID)
	if err != nil {
		return Entry{}, err
	}
	e, err := l.store.GetByDay(ctx, pid, day)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return Entry{}, fmt.Errorf("%w: patient %s on %s", ErrEntryNotFound, pid, day.Format(DateLayout))
		}
		return Entry{}, StorageFailure("get mood entry", err)
	}
	return e, nil
}

func (l *Ledger) GetEntryByID(ctx context.Context, id uuid.UUID) (Entry, error) {
	e, err := l.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return Entry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		return Entry{}, StorageFailure("get mood entry", err)
	}
	return e, nil
}

// ListEntries returns the patient's entries, newest first unless opts asks
// for ascending order.
func (l *Ledger) ListEntries(ctx context.Context, patientID string, opts ListOptions) ([]Entry, error) {
	pid, err := validPatient(patientID)
	if err != nil {
		return nil, err
	}
	from, to, err := l.normalizeRange(opts.Range)
	if err != nil {
		return nil, err
	}
	entries, err := l.store.List(ctx, Query{
		PatientID: pid,
		From:      from,
		To:        to,
		Order:     opts.Order,
		Limit:     opts.Limit,
	})
	if err != nil {
		return nil, StorageFailure("list mood entries", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// GetStatistics summarizes the patient's entries in r. The trend describes
// the past scores; it does not predict the next one.
func (l *Ledger) GetStatistics(ctx context.Context, patientID string, r DateRange) (Statistics, error) {
	entries, err := l.ListEntries(ctx, patientID, ListOptions{Range: r, Order: SortAsc})
	if err != nil {
		return Statistics{}, err
	}
	return ComputeStatistics(entries), nil
}

// UpdateEntry applies a field-level patch. A mood change rewrites the score
// in the same store call.
func (l *Ledger) UpdateEntry(ctx context.Context, id uuid.UUID, patch EntryPatch) (Entry, error) {
	if patch.Mood == nil && patch.Notes == nil {
		return Entry{}, &ValidationError{Field: "patch", Reason: "must change mood or notes"}
	}

	change := Change{UpdatedAt: l.now()}
	if patch.Mood != nil {
		m, err := ParseMood(*patch.Mood)
		if err != nil {
			return Entry{}, err
		}
		change.Mood = &m
		change.MoodScore = m.Score()
	}
	if patch.Notes != nil {
		notes := strings.TrimSpace(*patch.Notes)
		change.Notes = &notes
	}

	updated, err := l.store.Update(ctx, id, change)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return Entry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		l.log.Error("update mood entry failed", "id", id, "error", err)
		return Entry{}, StorageFailure("update mood entry", err)
	}

	l.log.Info("mood entry updated", "id", id, "patient_id", updated.PatientID)
	l.publish(ctx, Event{Type: EventUpdated, PatientID: updated.PatientID, Entry: &updated})
	return updated, nil
}

func (l *Ledger) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	deleted, err := l.store.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		l.log.Error("delete mood entry failed", "id", id, "error", err)
		return StorageFailure("delete mood entry", err)
	}

	l.log.Info("mood entry deleted", "id", id, "patient_id", deleted.PatientID)
	l.publish(ctx, Event{Type: EventDeleted, PatientID: deleted.PatientID, Entry: &deleted})
	return nil
}

// DeletePatientEntries removes every entry of the patient. It is the hook the
// patient-removal flow calls; the ledger never removes patients itself.
func (l *Ledger) DeletePatientEntries(ctx context.Context, patientID string) (int64, error) {
	pid, err := validPatient(patientID)
	if err != nil {
		return 0, err
	}
	n, err := l.store.DeleteByPatient(ctx, pid)
	if err != nil {
		l.log.Error("delete patient mood entries failed", "patient_id", pid, "error", err)
		return 0, StorageFailure("delete patient mood entries", err)
	}

	l.log.Info("patient mood entries deleted", "patient_id", pid, "count", n)
	l.publish(ctx, Event{Type: EventPurged, PatientID: pid, Count: n})
	return n, nil
}

// ParseRange builds a DateRange from optional textual bounds. Each bound is
// midnight of its day in the ledger's location.
func (l *Ledger) ParseRange(start, end string) (DateRange, error) {
	var r DateRange
	if strings.TrimSpace(start) != "" {
		d, err := l.parseBound(start)
		if err != nil {
			return DateRange{}, withField(err, "startDate")
		}
		r.Start = &d
	}
	if strings.TrimSpace(end) != "" {
		d, err := l.parseBound(end)
		if err != nil {
			return DateRange{}, withField(err, "endDate")
		}
		r.End = &d
	}
	return r, nil
}

func (l *Ledger) parseBound(s string) (time.Time, error) {
	day, err := ParseDate(s, l.loc)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, l.loc), nil
}

func (l *Ledger) Ping(ctx context.Context) error {
	if err := l.store.Ping(ctx); err != nil {
		return StorageFailure("ping", err)
	}
	return nil
}

func (l *Ledger) now() time.Time {
	return l.clock.Now().UTC().Truncate(time.Millisecond)
}

// publish is best effort: the write is already committed, so a failed
// notification is logged and dropped.
func (l *Ledger) publish(ctx context.Context, ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = l.now()
	}
	if err := l.publisher.Publish(ctx, ev); err != nil {
		l.log.Warn("publish mood event failed", "type", ev.Type, "patient_id", ev.PatientID, "error", err)
	}
}

func withField(err error, field string) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return &ValidationError{Field: field, Reason: ve.Reason}
	}
	return err
}

func validPatient(patientID string) (string, error) {
	pid := strings.TrimSpace(patientID)
	if pid == "" {
		return "", &ValidationError{Field: "patientId", Reason: "is required"}
	}
	return pid, nil
}

// normalizeRange places the bounds on their calendar days in the ledger's
// location, the same way RecordMood does, and rejects an inverted range.
func (l *Ledger) normalizeRange(r DateRange) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if r.Start != nil {
		d := NormalizeDate(*r.Start, l.loc)
		from = &d
	}
	if r.End != nil {
		d := NormalizeDate(*r.End, l.loc)
		to = &d
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, &ValidationError{Field: "dateRange", Reason: "start date is after end date"}
	}
	return from, to, nil
}
