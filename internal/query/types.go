package query

import "github.com/roach88/eventdoc/internal/ir"

// Predicate is a filter condition.
//
// This is a sealed interface - only types in this package implement it, so
// executors can switch over it exhaustively.
type Predicate interface {
	predicateNode()
}

// Equals matches records whose field equals Value, type included.
type Equals struct {
	Field Field
	Value ir.Value
}

func (Equals) predicateNode() {}

// AtLeast matches records whose field is greater than or equal to Value.
// Valid on version with an Int and on created_at with a String.
type AtLeast struct {
	Field Field
	Value ir.Value
}

func (AtLeast) predicateNode() {}

// And matches when every child predicate matches.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Direction is a sort direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// SortKey orders records by one field.
type SortKey struct {
	Field     Field
	Direction Direction
}

// Query selects and orders records of one stream.
type Query struct {
	Filter  Predicate // nil matches everything
	OrderBy []SortKey // primary key first; empty keeps storage order
}

// ByVersion is the load order.
func ByVersion() []SortKey {
	return []SortKey{{Field: Version, Direction: Asc}}
}

// ByReplay is the replay order: creation time, then version.
func ByReplay() []SortKey {
	return []SortKey{
		{Field: CreatedAt, Direction: Asc},
		{Field: Version, Direction: Asc},
	}
}

// All combines predicates with And, dropping nils. Returns nil when nothing
// is left.
func All(preds ...Predicate) Predicate {
	var out []Predicate
	for _, p := range preds {
		if p != nil {
			out = append(out, p)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return And{Predicates: out}
	}
}

// MetadataEquals returns a predicate matching every entry of md exactly.
// Keys are visited in sorted order so the result is deterministic.
func MetadataEquals(md ir.Object) Predicate {
	preds := make([]Predicate, 0, len(md))
	for _, k := range md.SortedKeys() {
		preds = append(preds, Equals{Field: Metadata(k), Value: md[k]})
	}
	return All(preds...)
}
