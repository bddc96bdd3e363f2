package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/lotalloc/pkg/domain/entities"
)

// Event is one entry of an order line's allocation history
type Event interface {
	ID() string
	Type() string
	OrderLineID() entities.OrderLineID
	StreamID() string
	Payload() any
	OccurredAt() time.Time
	// Version is the 1-based position within the stream, set on append
	Version() int
}

// Log is where sessions and commit services record allocation events
type Log interface {
	Append(event Event) error
	ReadLine(orderLineID entities.OrderLineID, fromVersion int) ([]Event, error)
	ReadAll(fromPosition int) ([]Event, error)
}

// Record is the stored form of an event
type Record struct {
	EventID   string               `json:"id"`
	EventType string               `json:"type"`
	LineID    entities.OrderLineID `json:"order_line_id"`
	Data      any                  `json:"payload"`
	Time      time.Time            `json:"occurred_at"`
	Seq       int                  `json:"version"`
}

func (r Record) ID() string                        { return r.EventID }
func (r Record) Type() string                      { return r.EventType }
func (r Record) OrderLineID() entities.OrderLineID { return r.LineID }
func (r Record) StreamID() string                  { return OrderLineStream(r.LineID) }
func (r Record) Payload() any                      { return r.Data }
func (r Record) OccurredAt() time.Time             { return r.Time }
func (r Record) Version() int                      { return r.Seq }

// OrderLineStream is the stream id allocation events for a line are appended to
func OrderLineStream(id entities.OrderLineID) string {
	return fmt.Sprintf("order-line-%d", id)
}

// NewEvent creates an unversioned event for an order line
func NewEvent(eventType string, orderLineID entities.OrderLineID, payload any) Event {
	return Record{
		EventID:   uuid.NewString(),
		EventType: eventType,
		LineID:    orderLineID,
		Data:      payload,
		Time:      time.Now().UTC(),
	}
}
