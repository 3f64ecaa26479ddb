// Package codec converts domain messages to storable event records and back.
//
// Encoding goes through a caller-supplied MessageConverter and then asserts
// the resulting MessageData; decoding goes through a caller-supplied
// MessageFactory. Field names on both sides are fixed: event_id, version,
// event_name, payload, metadata, created_at.
package codec

import (
	"github.com/google/uuid"

	"github.com/roach88/eventdoc/internal/ir"
)

// MessageConverter converts a domain message to its canonical field map.
type MessageConverter interface {
	ConvertToData(msg ir.Message) (ir.MessageData, error)
}

// MessageFactory creates a domain message from a stored message name and
// its field map. It returns an error when the name cannot be resolved to a
// concrete message type.
type MessageFactory interface {
	CreateMessage(name string, data ir.MessageData) (ir.Message, error)
}

// Codec pairs a converter and a factory.
type Codec struct {
	converter MessageConverter
	factory   MessageFactory
}

// New creates a Codec. Both collaborators are required.
func New(conv MessageConverter, factory MessageFactory) (*Codec, error) {
	if conv == nil {
		return nil, ir.NewError(ir.KindConfiguration, "codec", "", "message converter is nil")
	}
	if factory == nil {
		return nil, ir.NewError(ir.KindConfiguration, "codec", "", "message factory is nil")
	}
	return &Codec{converter: conv, factory: factory}, nil
}

// Encode converts msg into an EventRecord.
// Fails with an InvalidMessageError when the converter fails or the message
// data does not pass AssertData.
func (c *Codec) Encode(msg ir.Message) (ir.EventRecord, error) {
	if msg == nil {
		return ir.EventRecord{}, ir.NewError(ir.KindInvalidMessage, "encode", "", "message is nil")
	}

	data, err := c.converter.ConvertToData(msg)
	if err != nil {
		return ir.EventRecord{}, ir.WrapError(ir.KindInvalidMessage, "encode", "", err)
	}

	return EncodeData(data)
}

// EncodeData converts already-extracted message data into an EventRecord.
func EncodeData(data ir.MessageData) (ir.EventRecord, error) {
	if err := AssertData(data); err != nil {
		return ir.EventRecord{}, err
	}

	payload, err := ir.ObjectFromGo(data.Payload)
	if err != nil {
		return ir.EventRecord{}, ir.NewError(ir.KindInvalidMessage, "encode", "", "payload: %w", err)
	}

	metadata, err := metadataFromGo(data.Metadata)
	if err != nil {
		return ir.EventRecord{}, err
	}

	return ir.EventRecord{
		EventID:   data.UUID,
		Version:   data.Version,
		EventName: data.MessageName,
		Payload:   payload,
		Metadata:  metadata,
		CreatedAt: ir.FormatTimestamp(data.CreatedAt),
	}, nil
}

// AssertData checks the required fields of a message's field map.
//
// Rules:
//   - uuid must parse as a UUID
//   - message_name must be non-empty
//   - version must be a positive integer
//   - created_at must be set
func AssertData(data ir.MessageData) error {
	if data.UUID == "" {
		return ir.NewError(ir.KindInvalidMessage, "assert", "", "uuid is required")
	}
	if _, err := uuid.Parse(data.UUID); err != nil {
		return ir.NewError(ir.KindInvalidMessage, "assert", "", "uuid %q: %w", data.UUID, err)
	}
	if data.MessageName == "" {
		return ir.NewError(ir.KindInvalidMessage, "assert", "", "message_name is required")
	}
	if data.Version < 1 {
		return ir.NewError(ir.KindInvalidMessage, "assert", "", "version must be positive, got %d", data.Version)
	}
	if data.CreatedAt.IsZero() {
		return ir.NewError(ir.KindInvalidMessage, "assert", "", "created_at is required")
	}
	return nil
}

// metadataFromGo converts metadata, requiring every value to be a scalar.
func metadataFromGo(m map[string]any) (ir.Object, error) {
	obj, err := ir.ObjectFromGo(m)
	if err != nil {
		return nil, ir.NewError(ir.KindInvalidMessage, "encode", "", "metadata: %w", err)
	}
	for _, k := range obj.SortedKeys() {
		if !ir.IsScalar(obj[k]) {
			return nil, ir.NewError(ir.KindInvalidMessage, "encode", "",
				"metadata %q must be a scalar, got %s", k, ir.TypeName(obj[k]))
		}
	}
	return obj, nil
}

// Decode rebuilds a domain message from a stored record.
// Fails with a RecordDecodeError when the event_id is not a UUID, the
// timestamp cannot be parsed or the factory cannot resolve the record's
// event_name.
func (c *Codec) Decode(rec ir.EventRecord) (ir.Message, error) {
	data, err := DecodeData(rec)
	if err != nil {
		return nil, err
	}

	msg, err := c.factory.CreateMessage(rec.EventName, data)
	if err != nil {
		return nil, ir.NewError(ir.KindRecordDecode, "decode", "",
			"event %s: cannot create message %q: %w", rec.EventID, rec.EventName, err)
	}
	if msg == nil {
		return nil, ir.NewError(ir.KindRecordDecode, "decode", "",
			"event %s: factory returned nil for %q", rec.EventID, rec.EventName)
	}
	return msg, nil
}

// DecodeData converts a record back into message data without creating a
// domain message.
func DecodeData(rec ir.EventRecord) (ir.MessageData, error) {
	if _, err := uuid.Parse(rec.EventID); err != nil {
		return ir.MessageData{}, ir.NewError(ir.KindRecordDecode, "decode", "", "event_id %q: %w", rec.EventID, err)
	}
	createdAt, err := ir.ParseTimestamp(rec.CreatedAt)
	if err != nil {
		return ir.MessageData{}, ir.NewError(ir.KindRecordDecode, "decode", "", "event %s: %w", rec.EventID, err)
	}

	return ir.MessageData{
		UUID:        rec.EventID,
		MessageName: rec.EventName,
		Version:     rec.Version,
		Payload:     rec.Payload.ToGo(),
		Metadata:    rec.Metadata.ToGo(),
		CreatedAt:   createdAt,
	}, nil
}
