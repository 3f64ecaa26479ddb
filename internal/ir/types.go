package ir

import (
	"fmt"
	"iter"
	"regexp"
	"slices"
	"time"
)

// TimestampLayout is the fixed textual form of created_at in storage.
// UTC, microsecond precision, no zone suffix.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// FormatTimestamp converts t to UTC and formats it with TimestampLayout.
// Sub-microsecond precision is truncated.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Microsecond).Format(TimestampLayout)
}

// ParseTimestamp parses a stored created_at value as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", s, err)
	}
	return t, nil
}

var streamNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// StreamName identifies a stream. It is case-sensitive and doubles as the
// name of the stream's storage namespace.
type StreamName string

// String returns the stream name as a plain string.
func (n StreamName) String() string {
	return string(n)
}

// Validate checks that the name is non-empty and contains only letters,
// digits, underscore and dash.
func (n StreamName) Validate() error {
	if n == "" {
		return fmt.Errorf("stream name cannot be empty")
	}
	if !streamNamePattern.MatchString(string(n)) {
		return fmt.Errorf("stream name %q must contain only letters, digits, underscore and dash", string(n))
	}
	return nil
}

// EventRecord is the stored, flattened representation of a domain message.
// Records are immutable once appended.
type EventRecord struct {
	EventID   string `json:"event_id"`
	Version   int64  `json:"version"`
	EventName string `json:"event_name"`
	Payload   Object `json:"payload"`
	Metadata  Object `json:"metadata"`
	CreatedAt string `json:"created_at"` // TimestampLayout, UTC
}

// MessageData is the canonical field map of a domain message, as produced by
// a message converter and consumed by a message factory.
type MessageData struct {
	UUID        string
	MessageName string
	Version     int64
	Payload     map[string]any
	Metadata    map[string]any
	CreatedAt   time.Time
}

// Message is a domain message. Concrete types are owned by the caller and
// reach the store through a converter and a factory.
type Message interface {
	MessageName() string
}

// Stream is a named, replayable sequence of messages. It is a view produced
// at creation or load time and is never persisted as its own entity.
type Stream struct {
	Name   StreamName
	events []Message
}

// NewStream creates a stream view over the given messages.
func NewStream(name StreamName, events ...Message) *Stream {
	return &Stream{Name: name, events: slices.Clone(events)}
}

// Events returns the stream's messages in order. The sequence may be
// iterated any number of times.
func (s *Stream) Events() iter.Seq[Message] {
	return slices.Values(s.events)
}

// Len returns the number of messages in the stream.
func (s *Stream) Len() int {
	return len(s.events)
}

// At returns the i-th message.
func (s *Stream) At(i int) Message {
	return s.events[i]
}
