package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/eventdoc/internal/ir"
	"github.com/roach88/eventdoc/internal/message"
	"github.com/roach88/eventdoc/internal/query"
)

// EventView is the output form of one stored event.
type EventView struct {
	UUID        string         `json:"uuid"`
	MessageName string         `json:"message_name"`
	Version     int64          `json:"version"`
	Payload     map[string]any `json:"payload"`
	Metadata    map[string]any `json:"metadata"`
	CreatedAt   string         `json:"created_at"`
}

// EventsResult is the output of load and replay.
type EventsResult struct {
	Stream string      `json:"stream"`
	Count  int         `json:"count"`
	Events []EventView `json:"events"`
}

func (r EventsResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d event(s)\n", r.Stream, r.Count)
	for _, ev := range r.Events {
		payload, err := ir.MarshalCanonical(ev.Payload)
		if err != nil {
			payload = []byte(fmt.Sprintf("<%v>", err))
		}
		fmt.Fprintf(&b, "%s v%d %s %s %s\n", ev.CreatedAt, ev.Version, ev.MessageName, ev.UUID, payload)
	}
	return b.String()
}

func newEventsResult(name ir.StreamName, msgs []ir.Message) (EventsResult, error) {
	views := make([]EventView, 0, len(msgs))
	for _, msg := range msgs {
		data, err := message.NoOpConverter{}.ConvertToData(msg)
		if err != nil {
			return EventsResult{}, err
		}
		views = append(views, EventView{
			UUID:        data.UUID,
			MessageName: data.MessageName,
			Version:     data.Version,
			Payload:     data.Payload,
			Metadata:    data.Metadata,
			CreatedAt:   ir.FormatTimestamp(data.CreatedAt),
		})
	}
	return EventsResult{Stream: string(name), Count: len(views), Events: views}, nil
}

// whereFilter is what --where expressions translate to on the facade.
type whereFilter struct {
	Metadata   map[string]any
	MinVersion int64
	Since      time.Time

	// Unsatisfiable is set when two expressions require different values
	// for the same metadata key. No event can match.
	Unsatisfiable bool
}

// parseWhere parses --where expressions, which must all hold. Metadata
// equality is always allowed; version>= and created_at>= only when the
// command accepts them. Repeated bounds keep the tightest one.
func parseWhere(exprs []string, allowVersion, allowSince bool) (whereFilter, error) {
	var w whereFilter
	seen := make(map[string]ir.Value)
	for _, expr := range exprs {
		pred, err := query.ParsePredicate(expr)
		if err != nil {
			return whereFilter{}, err
		}

		switch p := pred.(type) {
		case query.Equals:
			if p.Field.Kind != query.FieldMetadata {
				return whereFilter{}, fmt.Errorf("--where %q: only metadata fields can be compared with ==", expr)
			}
			if prev, ok := seen[p.Field.Key]; ok {
				if !ir.Equal(prev, p.Value) {
					w.Unsatisfiable = true
				}
				continue
			}
			seen[p.Field.Key] = p.Value
			if w.Metadata == nil {
				w.Metadata = make(map[string]any)
			}
			w.Metadata[p.Field.Key] = ir.ToGo(p.Value)
		case query.AtLeast:
			switch {
			case p.Field.Kind == query.FieldVersion && allowVersion:
				w.MinVersion = max(w.MinVersion, int64(p.Value.(ir.Int)))
			case p.Field.Kind == query.FieldCreatedAt && allowSince:
				ts, err := ir.ParseTimestamp(string(p.Value.(ir.String)))
				if err != nil {
					return whereFilter{}, fmt.Errorf("--where %q: %w", expr, err)
				}
				if ts.After(w.Since) {
					w.Since = ts
				}
			default:
				return whereFilter{}, fmt.Errorf("--where %q: %s>= is not supported by this command", expr, p.Field)
			}
		default:
			return whereFilter{}, fmt.Errorf("--where %q: unsupported expression", expr)
		}
	}
	return w, nil
}
