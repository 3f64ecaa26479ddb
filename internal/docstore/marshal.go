package docstore

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/eventdoc/internal/ir"
)

// document is the stored form of an event record in key-value backends.
type document struct {
	EventID   string          `json:"event_id"`
	Version   int64           `json:"version"`
	EventName string          `json:"event_name"`
	Payload   json.RawMessage `json:"payload"`
	Metadata  json.RawMessage `json:"metadata"`
	CreatedAt string          `json:"created_at"`
}

// marshalDocument converts payload and metadata to canonical JSON text.
func marshalDocument(rec ir.EventRecord) (payload, metadata string, err error) {
	p, err := ir.MarshalCanonical(objectOrEmpty(rec.Payload))
	if err != nil {
		return "", "", fmt.Errorf("marshal payload: %w", err)
	}
	m, err := ir.MarshalCanonical(objectOrEmpty(rec.Metadata))
	if err != nil {
		return "", "", fmt.Errorf("marshal metadata: %w", err)
	}
	return string(p), string(m), nil
}

// encodeDocument serializes a whole record as one JSON document.
func encodeDocument(rec ir.EventRecord) ([]byte, error) {
	payload, metadata, err := marshalDocument(rec)
	if err != nil {
		return nil, err
	}
	return json.Marshal(document{
		EventID:   rec.EventID,
		Version:   rec.Version,
		EventName: rec.EventName,
		Payload:   json.RawMessage(payload),
		Metadata:  json.RawMessage(metadata),
		CreatedAt: rec.CreatedAt,
	})
}

// decodeDocument parses a document written by encodeDocument.
func decodeDocument(data []byte) (ir.EventRecord, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return ir.EventRecord{}, fmt.Errorf("unmarshal document: %w", err)
	}

	rec := ir.EventRecord{
		EventID:   doc.EventID,
		Version:   doc.Version,
		EventName: doc.EventName,
		CreatedAt: doc.CreatedAt,
	}
	var err error
	if rec.Payload, err = unmarshalObject(string(doc.Payload)); err != nil {
		return ir.EventRecord{}, fmt.Errorf("event %s: payload: %w", doc.EventID, err)
	}
	if rec.Metadata, err = unmarshalObject(string(doc.Metadata)); err != nil {
		return ir.EventRecord{}, fmt.Errorf("event %s: metadata: %w", doc.EventID, err)
	}
	return rec, nil
}

// unmarshalObject parses canonical JSON TEXT to an Object.
// Uses ir.Object.UnmarshalJSON so large integers keep their precision.
func unmarshalObject(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return ir.Object{}, nil
	}
	var obj ir.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func objectOrEmpty(obj ir.Object) ir.Object {
	if obj == nil {
		return ir.Object{}
	}
	return obj
}
