package sqlitestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/unowned-ai/moodledger/pkg/moods"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:", false, "")
	if err != nil {
		t.Fatalf("Failed to open in-memory store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(moods.DateLayout, s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func newEntry(t *testing.T, patientID, date string, mood moods.Mood) moods.Entry {
	t.Helper()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return moods.Entry{
		ID:        uuid.New(),
		PatientID: patientID,
		Mood:      mood,
		MoodScore: mood.Score(),
		Notes:     "note for " + date,
		Date:      day(t, date),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestInsertAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	e := newEntry(t, "p-1", "2024-03-01", moods.MoodCalm)
	saved, err := store.Insert(ctx, e)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if saved.ID != e.ID || saved.Mood != moods.MoodCalm || saved.MoodScore != 4 {
		t.Errorf("Unexpected saved entry: %+v", saved)
	}
	if !saved.CreatedAt.Equal(e.CreatedAt) {
		t.Errorf("Expected createdAt %v, got %v", e.CreatedAt, saved.CreatedAt)
	}

	byID, err := store.GetByID(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !byID.Date.Equal(e.Date) {
		t.Errorf("Expected date %v, got %v", e.Date, byID.Date)
	}

	byDay, err := store.GetByDay(ctx, "p-1", e.Date)
	if err != nil {
		t.Fatalf("GetByDay failed: %v", err)
	}
	if byDay.ID != e.ID {
		t.Errorf("Expected entry %s, got %s", e.ID, byDay.ID)
	}
}

func TestInsertDuplicateDay(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.Insert(ctx, newEntry(t, "p-1", "2024-03-01", moods.MoodCalm)); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}
	_, err := store.Insert(ctx, newEntry(t, "p-1", "2024-03-01", moods.MoodSad))
	if !errors.Is(err, moods.ErrDuplicateEntry) {
		t.Fatalf("Expected ErrDuplicateEntry, got %v", err)
	}

	// Another patient on the same day is fine.
	if _, err := store.Insert(ctx, newEntry(t, "p-2", "2024-03-01", moods.MoodSad)); err != nil {
		t.Errorf("Insert for another patient failed: %v", err)
	}
}

func TestConcurrentInsertsKeepOneEntryPerDay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concurrent.db")
	store, err := Open(path, true, "NORMAL")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	const writers = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		ok, dupes  int
		unexpected []error
	)
	for i := 0; i < writers; i++ {
		e := newEntry(t, "p-1", "2024-03-01", moods.MoodHappy)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Insert(ctx, e)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, moods.ErrDuplicateEntry):
				dupes++
			default:
				unexpected = append(unexpected, err)
			}
		}()
	}
	wg.Wait()

	if len(unexpected) > 0 {
		t.Fatalf("Unexpected errors: %v", unexpected)
	}
	if ok != 1 || dupes != writers-1 {
		t.Errorf("Expected 1 success and %d duplicates, got %d and %d", writers-1, ok, dupes)
	}
}

func TestUpsertDayKeepsIdentity(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first := newEntry(t, "p-1", "2024-03-01", moods.MoodSad)
	saved, err := store.UpsertDay(ctx, first)
	if err != nil {
		t.Fatalf("first UpsertDay failed: %v", err)
	}
	if saved.ID != first.ID {
		t.Errorf("Expected inserted ID %s, got %s", first.ID, saved.ID)
	}

	second := newEntry(t, "p-1", "2024-03-01", moods.MoodHappy)
	second.Notes = "better"
	second.CreatedAt = first.CreatedAt.Add(time.Hour)
	second.UpdatedAt = second.CreatedAt
	replaced, err := store.UpsertDay(ctx, second)
	if err != nil {
		t.Fatalf("second UpsertDay failed: %v", err)
	}
	if replaced.ID != first.ID {
		t.Errorf("Expected ID %s to survive, got %s", first.ID, replaced.ID)
	}
	if !replaced.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("Expected createdAt %v to survive, got %v", first.CreatedAt, replaced.CreatedAt)
	}
	if !replaced.UpdatedAt.Equal(second.UpdatedAt) {
		t.Errorf("Expected updatedAt %v, got %v", second.UpdatedAt, replaced.UpdatedAt)
	}
	if replaced.Mood != moods.MoodHappy || replaced.MoodScore != 5 || replaced.Notes != "better" {
		t.Errorf("Expected replaced content, got %+v", replaced)
	}
}

func TestListFiltersAndOrders(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, d := range []string{"2024-03-03", "2024-03-01", "2024-03-05", "2024-03-02"} {
		if _, err := store.Insert(ctx, newEntry(t, "p-1", d, moods.MoodCalm)); err != nil {
			t.Fatalf("Insert %s failed: %v", d, err)
		}
	}
	if _, err := store.Insert(ctx, newEntry(t, "p-2", "2024-03-02", moods.MoodCalm)); err != nil {
		t.Fatalf("Insert for p-2 failed: %v", err)
	}

	all, err := store.List(ctx, moods.Query{PatientID: "p-1"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	assertDays(t, all, "2024-03-05", "2024-03-03", "2024-03-02", "2024-03-01")

	from, to := day(t, "2024-03-02"), day(t, "2024-03-03")
	ranged, err := store.List(ctx, moods.Query{PatientID: "p-1", From: &from, To: &to, Order: moods.SortAsc})
	if err != nil {
		t.Fatalf("ranged List failed: %v", err)
	}
	assertDays(t, ranged, "2024-03-02", "2024-03-03")

	limited, err := store.List(ctx, moods.Query{PatientID: "p-1", Limit: 2})
	if err != nil {
		t.Fatalf("limited List failed: %v", err)
	}
	assertDays(t, limited, "2024-03-05", "2024-03-03")

	none, err := store.List(ctx, moods.Query{PatientID: "nobody"})
	if err != nil {
		t.Fatalf("List for unknown patient failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected no entries, got %d", len(none))
	}
}

func assertDays(t *testing.T, entries []moods.Entry, want ...string) {
	t.Helper()
	if len(entries) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(entries))
	}
	for i, e := range entries {
		if got := e.Date.Format(moods.DateLayout); got != want[i] {
			t.Errorf("entry %d: expected %s, got %s", i, want[i], got)
		}
	}
}

func TestUpdateChangesOnlyGivenFields(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	e := newEntry(t, "p-1", "2024-03-01", moods.MoodSad)
	if _, err := store.Insert(ctx, e); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	later := e.UpdatedAt.Add(time.Minute)
	notes := "only notes"
	updated, err := store.Update(ctx, e.ID, moods.Change{Notes: &notes, UpdatedAt: later})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Mood != moods.MoodSad || updated.MoodScore != 2 {
		t.Errorf("Expected mood to be untouched, got %s/%d", updated.Mood, updated.MoodScore)
	}
	if updated.Notes != notes || !updated.UpdatedAt.Equal(later) {
		t.Errorf("Expected notes and updatedAt to change, got %+v", updated)
	}

	happy := moods.MoodHappy
	updated, err = store.Update(ctx, e.ID, moods.Change{Mood: &happy, MoodScore: happy.Score(), UpdatedAt: later})
	if err != nil {
		t.Fatalf("Update mood failed: %v", err)
	}
	if updated.Mood != moods.MoodHappy || updated.MoodScore != 5 || updated.Notes != notes {
		t.Errorf("Expected mood and score to change and notes to stay, got %+v", updated)
	}

	_, err = store.Update(ctx, uuid.New(), moods.Change{Notes: &notes, UpdatedAt: later})
	if !errors.Is(err, moods.ErrEntryNotFound) {
		t.Errorf("Expected ErrEntryNotFound, got %v", err)
	}
}

func TestDeleteAndDeleteByPatient(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	e := newEntry(t, "p-1", "2024-03-01", moods.MoodTired)
	if _, err := store.Insert(ctx, e); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	for _, d := range []string{"2024-03-02", "2024-03-03"} {
		if _, err := store.Insert(ctx, newEntry(t, "p-1", d, moods.MoodCalm)); err != nil {
			t.Fatalf("Insert %s failed: %v", d, err)
		}
	}

	deleted, err := store.Delete(ctx, e.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deleted.ID != e.ID || deleted.PatientID != "p-1" {
		t.Errorf("Expected deleted entry to be returned, got %+v", deleted)
	}
	if _, err := store.GetByID(ctx, e.ID); !errors.Is(err, moods.ErrEntryNotFound) {
		t.Errorf("Expected ErrEntryNotFound after delete, got %v", err)
	}
	if _, err := store.Delete(ctx, e.ID); !errors.Is(err, moods.ErrEntryNotFound) {
		t.Errorf("Expected ErrEntryNotFound on second delete, got %v", err)
	}

	n, err := store.DeleteByPatient(ctx, "p-1")
	if err != nil {
		t.Fatalf("DeleteByPatient failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 deleted entries, got %d", n)
	}
	n, err = store.DeleteByPatient(ctx, "p-1")
	if err != nil || n != 0 {
		t.Errorf("Expected 0 deleted entries on second purge, got %d (%v)", n, err)
	}
}

func TestClosedStoreReportsStorageFailure(t *testing.T) {
	store, err := Open(":memory:", false, "")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	store.Close()

	_, err = store.GetByID(context.Background(), uuid.New())
	if !errors.Is(err, moods.ErrStorageUnavailable) {
		t.Errorf("Expected ErrStorageUnavailable, got %v", err)
	}
	if err := store.Ping(context.Background()); !errors.Is(err, moods.ErrStorageUnavailable) {
		t.Errorf("Expected ErrStorageUnavailable from Ping, got %v", err)
	}
}

func TestCloseCheckpointsWALAndReportsFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := Open(path, true, "NORMAL")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := store.Insert(context.Background(), newEntry(t, "p-1", "2024-01-01", moods.MoodCalm)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if info, err := os.Stat(path + "-wal"); err == nil && info.Size() != 0 {
		t.Errorf("Expected an empty WAL after close, got %d bytes", info.Size())
	}

	// The checkpoint on an already closed database fails and must be reported.
	err = store.Close()
	if err == nil || !strings.Contains(err.Error(), "wal checkpoint") {
		t.Errorf("Expected a wal checkpoint error, got %v", err)
	}
}
