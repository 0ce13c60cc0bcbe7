package moods

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entry is the single mood observation of a patient for one calendar day.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	PatientID string    `json:"patientId"`
	Mood      Mood      `json:"mood"`
	MoodScore int       `json:"moodScore"`
	Notes     string    `json:"notes"`
	// Date is the calendar day, encoded as midnight UTC.
	Date      time.Time `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MarshalJSON renders Date as YYYY-MM-DD.
func (e Entry) MarshalJSON() ([]byte, error) {
	type plain Entry
	return json.Marshal(struct {
		plain
		Date string `json:"date"`
	}{plain: plain(e), Date: e.Date.Format(DateLayout)})
}

// UnmarshalJSON reads Date back from YYYY-MM-DD.
func (e *Entry) UnmarshalJSON(data []byte) error {
	type plain Entry
	aux := struct {
		*plain
		Date string `json:"date"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Date == "" {
		e.Date = time.Time{}
		return nil
	}
	d, err := time.Parse(DateLayout, aux.Date)
	if err != nil {
		return err
	}
	e.Date = d
	return nil
}

// DateRange bounds a query by calendar day, inclusive on both ends. Bounds
// are instants; each counts as the day it falls on in the ledger's location.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

type SortOrder int

const (
	SortDesc SortOrder = iota
	SortAsc
)

// ListOptions filters and orders ListEntries. Limit <= 0 returns everything.
type ListOptions struct {
	Range DateRange
	Order SortOrder
	Limit int
}

// EntryPatch is a field-level update; nil fields are left unchanged.
type EntryPatch struct {
	Mood  *string
	Notes *string
}

// Query is what a Store receives for List; the range is already normalized.
type Query struct {
	PatientID string
	From      *time.Time
	To        *time.Time
	Order     SortOrder
	Limit     int
}
