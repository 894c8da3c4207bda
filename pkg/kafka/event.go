package kafka

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Aggregate identifies the entity an event is about.
type Aggregate struct {
	Type string
	ID   int64
}

// Key is the partition key of the aggregate, e.g. "review:42". Events of one
// aggregate share a partition and therefore keep their order.
func (a Aggregate) Key() string {
	return a.Type + ":" + strconv.FormatInt(a.ID, 10)
}

// Event is the envelope published for every domain event.
type Event struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   int64           `json:"aggregate_id"`
	ActorID       int64           `json:"actor_id,omitempty"`
	Version       int             `json:"version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent builds a version 1 event about agg with a fresh ID.
func NewEvent(eventType, source string, agg Aggregate, data any) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateType: agg.Type,
		AggregateID:   agg.ID,
		Version:       1,
		OccurredAt:    time.Now().UTC(),
		Source:        source,
		Data:          raw,
	}, nil
}

// Aggregate returns the entity the event is about.
func (e *Event) Aggregate() Aggregate {
	return Aggregate{Type: e.AggregateType, ID: e.AggregateID}
}

// WithCorrelationID sets the correlation ID on the event.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// WithActor records the user whose request caused the event. Zero means the
// system, e.g. the scheduled purge.
func (e *Event) WithActor(userID int64) *Event {
	e.ActorID = userID
	return e
}

// Marshal serializes the event to JSON bytes.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
