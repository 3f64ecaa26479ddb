package testutil

import (
	"fmt"
	"sync"
	"time"

	"github.com/roach88/eventdoc/internal/ir"
	"github.com/roach88/eventdoc/internal/message"
)

// IDSequence hands out valid, predictable UUIDs:
// 00000000-0000-4000-8000-000000000001, ...000002, and so on.
type IDSequence struct {
	mu sync.Mutex
	n  int64
}

// Next returns the next UUID.
func (s *IDSequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", s.n)
}

// UserCreated is the first event of a user aggregate.
type UserCreated struct {
	*message.Event
}

// Name returns the payload's user name.
func (e UserCreated) Name() string {
	s, _ := e.Payload()["name"].(string)
	return s
}

// UsernameChanged renames a user.
type UsernameChanged struct {
	*message.Event
}

// Name returns the new user name.
func (e UsernameChanged) Name() string {
	s, _ := e.Payload()["name"].(string)
	return s
}

// NewUserCreated builds a UserCreated at version 1 tagged as a person.
func NewUserCreated(id string, name, email string, at time.Time) UserCreated {
	return UserCreated{build(id, "UserCreated", 1, map[string]any{"name": name, "email": email}, at)}
}

// NewUsernameChanged builds a UsernameChanged tagged as a person.
func NewUsernameChanged(id string, version int64, name string, at time.Time) UsernameChanged {
	return UsernameChanged{build(id, "UsernameChanged", version, map[string]any{"name": name}, at)}
}

func build(id, name string, version int64, payload map[string]any, at time.Time) *message.Event {
	return message.FromData(ir.MessageData{
		UUID:        id,
		MessageName: name,
		Version:     version,
		Payload:     payload,
		Metadata:    map[string]any{"tag": "person"},
		CreatedAt:   at,
	})
}

// Registry returns a factory that rebuilds UserCreated and UsernameChanged.
func Registry() *message.Registry {
	r := message.NewRegistry()
	r.Register("UserCreated", func(data ir.MessageData) (ir.Message, error) {
		return UserCreated{message.FromData(data)}, nil
	})
	r.Register("UsernameChanged", func(data ir.MessageData) (ir.Message, error) {
		return UsernameChanged{message.FromData(data)}, nil
	})
	return r
}

// UserStream returns the user_stream scenario: UserCreated at v1 and
// UsernameChanged at v2 and v3, one clock step apart.
func UserStream(ids *IDSequence, clock *DeterministicClock) *ir.Stream {
	return ir.NewStream("user_stream",
		NewUserCreated(ids.Next(), "Max Mustermann", "contact@prooph.de", clock.Next()),
		NewUsernameChanged(ids.Next(), 2, "John Doe", clock.Next()),
		NewUsernameChanged(ids.Next(), 3, "Jane Doe", clock.Next()),
	)
}
