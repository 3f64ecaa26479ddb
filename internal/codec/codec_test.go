package codec

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventdoc/internal/ir"
)

type testMessage struct {
	data ir.MessageData
}

func (m testMessage) MessageName() string { return m.data.MessageName }

type passthrough struct{}

func (passthrough) ConvertToData(msg ir.Message) (ir.MessageData, error) {
	tm, ok := msg.(testMessage)
	if !ok {
		return ir.MessageData{}, errors.New("not a test message")
	}
	return tm.data, nil
}

func (passthrough) CreateMessage(name string, data ir.MessageData) (ir.Message, error) {
	if name == "Unknown" {
		return nil, errors.New("no such message")
	}
	if name == "Nil" {
		return nil, nil
	}
	return testMessage{data: data}, nil
}

func newCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := New(passthrough{}, passthrough{})
	require.NoError(t, err)
	return c
}

func userCreated() ir.MessageData {
	return ir.MessageData{
		UUID:        "6a1e6d41-8c4b-4a0c-9b1e-3c5a1f7f2d10",
		MessageName: "UserCreated",
		Version:     1,
		Payload:     map[string]any{"name": "Max Mustermann", "email": "contact@prooph.de"},
		Metadata:    map[string]any{"tag": "person"},
		CreatedAt:   time.Date(2016, 5, 1, 12, 0, 0, 123456789, time.UTC),
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(nil, passthrough{})
	assert.ErrorIs(t, err, ir.ErrConfiguration)

	_, err = New(passthrough{}, nil)
	assert.ErrorIs(t, err, ir.ErrConfiguration)
}

func TestEncode(t *testing.T) {
	c := newCodec(t)

	rec, err := c.Encode(testMessage{data: userCreated()})
	require.NoError(t, err)

	assert.Equal(t, "6a1e6d41-8c4b-4a0c-9b1e-3c5a1f7f2d10", rec.EventID)
	assert.Equal(t, int64(1), rec.Version)
	assert.Equal(t, "UserCreated", rec.EventName)
	assert.Equal(t, "2016-05-01T12:00:00.123456", rec.CreatedAt)
	assert.Equal(t, ir.String("person"), rec.Metadata["tag"])
	assert.Equal(t, ir.String("contact@prooph.de"), rec.Payload["email"])
}

func TestEncode_RoundTrip(t *testing.T) {
	c := newCodec(t)
	in := userCreated()
	in.Metadata["attempt"] = 3
	in.Metadata["replayed"] = false

	rec, err := c.Encode(testMessage{data: in})
	require.NoError(t, err)

	msg, err := c.Decode(rec)
	require.NoError(t, err)

	out := msg.(testMessage).data
	assert.Equal(t, in.UUID, out.UUID)
	assert.Equal(t, in.MessageName, out.MessageName)
	assert.Equal(t, in.Version, out.Version)
	assert.Equal(t, map[string]any{"name": "Max Mustermann", "email": "contact@prooph.de"}, out.Payload)
	assert.Equal(t, map[string]any{"tag": "person", "attempt": int64(3), "replayed": false}, out.Metadata)
	assert.True(t, in.CreatedAt.Truncate(time.Microsecond).Equal(out.CreatedAt))
}

func TestEncode_ConvertsCreatedAtToUTC(t *testing.T) {
	c := newCodec(t)
	data := userCreated()
	data.CreatedAt = time.Date(2016, 5, 1, 14, 0, 0, 0, time.FixedZone("CEST", 2*60*60))

	rec, err := c.Encode(testMessage{data: data})
	require.NoError(t, err)
	assert.Equal(t, "2016-05-01T12:00:00.000000", rec.CreatedAt)
}

func TestEncode_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ir.MessageData)
		want   string
	}{
		{"missing uuid", func(d *ir.MessageData) { d.UUID = "" }, "uuid is required"},
		{"bad uuid", func(d *ir.MessageData) { d.UUID = "not-a-uuid" }, "uuid"},
		{"missing name", func(d *ir.MessageData) { d.MessageName = "" }, "message_name is required"},
		{"zero version", func(d *ir.MessageData) { d.Version = 0 }, "version must be positive"},
		{"negative version", func(d *ir.MessageData) { d.Version = -1 }, "version must be positive"},
		{"zero created_at", func(d *ir.MessageData) { d.CreatedAt = time.Time{} }, "created_at is required"},
		{"float payload", func(d *ir.MessageData) { d.Payload["score"] = 0.5 }, "floats are forbidden"},
		{"nested metadata", func(d *ir.MessageData) { d.Metadata["tags"] = []any{"a"} }, "must be a scalar"},
		{"null metadata", func(d *ir.MessageData) { d.Metadata["gone"] = nil }, "must be a scalar"},
	}

	c := newCodec(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := userCreated()
			tt.mutate(&data)

			_, err := c.Encode(testMessage{data: data})
			require.Error(t, err)
			assert.ErrorIs(t, err, ir.ErrInvalidMessage)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestEncode_NilMessage(t *testing.T) {
	_, err := newCodec(t).Encode(nil)
	assert.ErrorIs(t, err, ir.ErrInvalidMessage)
}

func TestEncode_ConverterFailure(t *testing.T) {
	_, err := newCodec(t).Encode(otherMessage{})
	assert.ErrorIs(t, err, ir.ErrInvalidMessage)
	assert.ErrorContains(t, err, "not a test message")
}

type otherMessage struct{}

func (otherMessage) MessageName() string { return "Other" }

func TestDecode_Failures(t *testing.T) {
	c := newCodec(t)
	valid, err := EncodeData(userCreated())
	require.NoError(t, err)

	t.Run("bad timestamp", func(t *testing.T) {
		rec := valid
		rec.CreatedAt = "yesterday"
		_, err := c.Decode(rec)
		assert.ErrorIs(t, err, ir.ErrRecordDecode)
	})

	t.Run("bad event id", func(t *testing.T) {
		rec := valid
		rec.EventID = "not-a-uuid"
		_, err := c.Decode(rec)
		assert.ErrorIs(t, err, ir.ErrRecordDecode)
		assert.ErrorContains(t, err, "not-a-uuid")
	})

	t.Run("unknown name", func(t *testing.T) {
		rec := valid
		rec.EventName = "Unknown"
		_, err := c.Decode(rec)
		assert.ErrorIs(t, err, ir.ErrRecordDecode)
		assert.ErrorContains(t, err, "no such message")
	})

	t.Run("nil message", func(t *testing.T) {
		rec := valid
		rec.EventName = "Nil"
		_, err := c.Decode(rec)
		assert.ErrorIs(t, err, ir.ErrRecordDecode)
	})
}

func TestDecodeData_EmptyMaps(t *testing.T) {
	data, err := DecodeData(ir.EventRecord{
		EventID:   "6a1e6d41-8c4b-4a0c-9b1e-3c5a1f7f2d10",
		Version:   1,
		EventName: "Ping",
		CreatedAt: "2020-01-01T00:00:00.000000",
	})
	require.NoError(t, err)
	assert.NotNil(t, data.Payload)
	assert.NotNil(t, data.Metadata)
}
