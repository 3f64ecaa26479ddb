package query

import (
	"cmp"
	"iter"
	"slices"

	"github.com/roach88/eventdoc/internal/ir"
)

// Match reports whether rec satisfies pred. A nil predicate matches. pred
// must have passed Validate.
func Match(rec ir.EventRecord, pred Predicate) bool {
	switch p := pred.(type) {
	case nil:
		return true
	case Equals:
		return matchEquals(rec, p)
	case *Equals:
		return matchEquals(rec, *p)
	case AtLeast:
		return matchAtLeast(rec, p)
	case *AtLeast:
		return matchAtLeast(rec, *p)
	case And:
		return matchAll(rec, p.Predicates)
	case *And:
		return matchAll(rec, p.Predicates)
	default:
		return false
	}
}

func matchEquals(rec ir.EventRecord, p Equals) bool {
	v, ok := p.Field.extract(rec)
	return ok && ir.Equal(v, p.Value)
}

func matchAtLeast(rec ir.EventRecord, p AtLeast) bool {
	v, ok := p.Field.extract(rec)
	if !ok {
		return false
	}
	switch want := p.Value.(type) {
	case ir.Int:
		got, ok := v.(ir.Int)
		return ok && got >= want
	case ir.String:
		got, ok := v.(ir.String)
		return ok && got >= want
	default:
		return false
	}
}

func matchAll(rec ir.EventRecord, preds []Predicate) bool {
	for _, p := range preds {
		if !Match(rec, p) {
			return false
		}
	}
	return true
}

// Filter returns the records matching pred, in input order.
func Filter(records []ir.EventRecord, pred Predicate) []ir.EventRecord {
	out := make([]ir.EventRecord, 0, len(records))
	for _, rec := range records {
		if Match(rec, pred) {
			out = append(out, rec)
		}
	}
	return out
}

// OrderBy sorts records in place by keys, primary key first. The sort is
// stable, so ties keep their input order.
func OrderBy(records []ir.EventRecord, keys []SortKey) {
	if len(keys) == 0 {
		return
	}
	slices.SortStableFunc(records, func(a, b ir.EventRecord) int {
		for _, k := range keys {
			c := compareField(a, b, k.Field)
			if k.Direction == Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func compareField(a, b ir.EventRecord, f Field) int {
	switch f.Kind {
	case FieldEventID:
		return cmp.Compare(a.EventID, b.EventID)
	case FieldVersion:
		return cmp.Compare(a.Version, b.Version)
	case FieldEventName:
		return cmp.Compare(a.EventName, b.EventName)
	case FieldCreatedAt:
		return cmp.Compare(a.CreatedAt, b.CreatedAt)
	default:
		return 0
	}
}

// Execute validates q, then filters and orders records. An invalid query
// returns no records.
func Execute(records []ir.EventRecord, q Query) ([]ir.EventRecord, error) {
	if err := Validate(q); err != nil {
		return nil, err
	}
	out := Filter(records, q.Filter)
	OrderBy(out, q.OrderBy)
	return out, nil
}

// ExecuteSeq is Execute over a record sequence. It stops at the first
// sequence error and returns it.
func ExecuteSeq(seq iter.Seq2[ir.EventRecord, error], q Query) ([]ir.EventRecord, error) {
	if err := Validate(q); err != nil {
		return nil, err
	}
	var out []ir.EventRecord
	for rec, err := range seq {
		if err != nil {
			return nil, err
		}
		if Match(rec, q.Filter) {
			out = append(out, rec)
		}
	}
	OrderBy(out, q.OrderBy)
	return out, nil
}
