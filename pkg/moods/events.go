package moods

import (
	"context"
	"time"
)

type EventType string

const (
	EventRecorded EventType = "mood.recorded"
	EventUpdated  EventType = "mood.updated"
	EventDeleted  EventType = "mood.deleted"
	EventPurged   EventType = "mood.purged"
)

// Event announces a committed write to downstream consumers such as the
// mood-shift predictor.
type Event struct {
	Type       EventType `json:"type"`
	PatientID  string    `json:"patientId"`
	Entry      *Entry    `json:"entry,omitempty"`
	Count      int64     `json:"count,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }
