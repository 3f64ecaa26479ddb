// Package message provides a generic domain message and the default
// converter and factory collaborators for the event store.
package message

import (
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/eventdoc/internal/ir"
)

// Provider is implemented by messages that can hand out their own field map.
type Provider interface {
	ir.Message
	Data() ir.MessageData
}

// Event is a schema-less domain message. Its payload and metadata are plain
// maps; the store never interprets them.
type Event struct {
	data ir.MessageData
}

var _ Provider = (*Event)(nil)

// New creates an Event with a fresh random UUID.
func New(name string, version int64, payload map[string]any, createdAt time.Time) *Event {
	return &Event{data: ir.MessageData{
		UUID:        uuid.NewString(),
		MessageName: name,
		Version:     version,
		Payload:     maps.Clone(payload),
		Metadata:    map[string]any{},
		CreatedAt:   createdAt,
	}}
}

// FromData wraps existing message data. The maps are copied.
func FromData(data ir.MessageData) *Event {
	data.Payload = maps.Clone(data.Payload)
	data.Metadata = maps.Clone(data.Metadata)
	return &Event{data: data}
}

// MessageName returns the message name.
func (e *Event) MessageName() string { return e.data.MessageName }

// UUID returns the message id.
func (e *Event) UUID() string { return e.data.UUID }

// Version returns the aggregate version.
func (e *Event) Version() int64 { return e.data.Version }

// CreatedAt returns the creation time.
func (e *Event) CreatedAt() time.Time { return e.data.CreatedAt }

// Payload returns a copy of the payload.
func (e *Event) Payload() map[string]any { return maps.Clone(e.data.Payload) }

// Metadata returns a copy of the metadata.
func (e *Event) Metadata() map[string]any { return maps.Clone(e.data.Metadata) }

// WithMetadata returns a copy of e with key set to value in its metadata.
func (e *Event) WithMetadata(key string, value any) *Event {
	next := FromData(e.data)
	if next.data.Metadata == nil {
		next.data.Metadata = map[string]any{}
	}
	next.data.Metadata[key] = value
	return next
}

// WithVersion returns a copy of e with the given version.
func (e *Event) WithVersion(v int64) *Event {
	next := FromData(e.data)
	next.data.Version = v
	return next
}

// Data returns a copy of the message's field map.
func (e *Event) Data() ir.MessageData {
	d := e.data
	d.Payload = maps.Clone(d.Payload)
	d.Metadata = maps.Clone(d.Metadata)
	return d
}
