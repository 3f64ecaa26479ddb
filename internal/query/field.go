package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/eventdoc/internal/ir"
)

// FieldKind enumerates the addressable record fields.
type FieldKind int

const (
	FieldEventID FieldKind = iota + 1
	FieldVersion
	FieldEventName
	FieldCreatedAt
	FieldMetadata
)

// Field addresses one value of an event record. Key is only set for
// FieldMetadata.
type Field struct {
	Kind FieldKind
	Key  string
}

var (
	EventID   = Field{Kind: FieldEventID}
	Version   = Field{Kind: FieldVersion}
	EventName = Field{Kind: FieldEventName}
	CreatedAt = Field{Kind: FieldCreatedAt}
)

// Metadata addresses the metadata entry with the given key.
func Metadata(key string) Field {
	return Field{Kind: FieldMetadata, Key: key}
}

const metadataPrefix = "metadata."

var metadataKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ParseField resolves a dot path such as "version" or "metadata.tag".
func ParseField(path string) (Field, error) {
	switch path {
	case "event_id":
		return EventID, nil
	case "version":
		return Version, nil
	case "event_name":
		return EventName, nil
	case "created_at":
		return CreatedAt, nil
	}

	if key, ok := strings.CutPrefix(path, metadataPrefix); ok {
		f := Metadata(key)
		if err := f.check(); err != nil {
			return Field{}, invalid("%v", err)
		}
		return f, nil
	}
	return Field{}, invalid("unknown field %q", path)
}

// Path returns the dot path form of the field.
func (f Field) Path() string {
	switch f.Kind {
	case FieldEventID:
		return "event_id"
	case FieldVersion:
		return "version"
	case FieldEventName:
		return "event_name"
	case FieldCreatedAt:
		return "created_at"
	case FieldMetadata:
		return metadataPrefix + f.Key
	default:
		return fmt.Sprintf("<field %d>", int(f.Kind))
	}
}

// String implements fmt.Stringer.
func (f Field) String() string {
	return f.Path()
}

// Sortable reports whether the field may appear in OrderBy.
func (f Field) Sortable() bool {
	return f.Kind >= FieldEventID && f.Kind <= FieldCreatedAt
}

func (f Field) check() error {
	switch f.Kind {
	case FieldEventID, FieldVersion, FieldEventName, FieldCreatedAt:
		if f.Key != "" {
			return fmt.Errorf("field %s takes no key", f.Path())
		}
		return nil
	case FieldMetadata:
		if !metadataKeyPattern.MatchString(f.Key) {
			return fmt.Errorf("metadata key %q must contain only letters, digits, underscore and dash", f.Key)
		}
		return nil
	default:
		return fmt.Errorf("unknown field %s", f.Path())
	}
}

// accepts reports whether v has the type stored under f.
func (f Field) accepts(v ir.Value) bool {
	switch f.Kind {
	case FieldVersion:
		_, ok := v.(ir.Int)
		return ok
	case FieldEventID, FieldEventName, FieldCreatedAt:
		_, ok := v.(ir.String)
		return ok
	case FieldMetadata:
		return ir.IsScalar(v)
	default:
		return false
	}
}

// extract reads the field from rec. The second result is false when rec has
// no value for the field.
func (f Field) extract(rec ir.EventRecord) (ir.Value, bool) {
	switch f.Kind {
	case FieldEventID:
		return ir.String(rec.EventID), true
	case FieldVersion:
		return ir.Int(rec.Version), true
	case FieldEventName:
		return ir.String(rec.EventName), true
	case FieldCreatedAt:
		return ir.String(rec.CreatedAt), true
	case FieldMetadata:
		v, ok := rec.Metadata[f.Key]
		return v, ok
	default:
		return nil, false
	}
}

func invalid(format string, args ...any) error {
	return ir.NewError(ir.KindInvalidQuery, "validate", "", format, args...)
}
