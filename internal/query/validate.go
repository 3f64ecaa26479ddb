package query

import "github.com/roach88/eventdoc/internal/ir"

// Validate checks that every field is known, every value has the field's
// type and every operator is defined on its field. Failures are
// InvalidQueryError.
func Validate(q Query) error {
	if q.Filter != nil {
		if err := validatePredicate(q.Filter); err != nil {
			return err
		}
	}
	for i, k := range q.OrderBy {
		if err := k.Field.check(); err != nil {
			return invalid("order by [%d]: %v", i, err)
		}
		if !k.Field.Sortable() {
			return invalid("order by [%d]: field %s is not sortable", i, k.Field)
		}
		if k.Direction != Asc && k.Direction != Desc {
			return invalid("order by [%d]: unknown direction %d", i, int(k.Direction))
		}
	}
	return nil
}

func validatePredicate(p Predicate) error {
	switch pred := p.(type) {
	case Equals:
		return validateComparison("==", pred.Field, pred.Value)
	case *Equals:
		return validateComparison("==", pred.Field, pred.Value)
	case AtLeast:
		return validateAtLeast(pred.Field, pred.Value)
	case *AtLeast:
		return validateAtLeast(pred.Field, pred.Value)
	case And:
		return validateAnd(pred.Predicates)
	case *And:
		return validateAnd(pred.Predicates)
	case nil:
		return invalid("nil predicate")
	default:
		return invalid("unknown predicate type %T", p)
	}
}

func validateComparison(op string, f Field, v ir.Value) error {
	if err := f.check(); err != nil {
		return invalid("%v", err)
	}
	if v == nil {
		return invalid("%s %s: missing value", f, op)
	}
	if !f.accepts(v) {
		return invalid("%s %s: value of type %s does not match field", f, op, ir.TypeName(v))
	}
	return nil
}

func validateAtLeast(f Field, v ir.Value) error {
	if f.Kind != FieldVersion && f.Kind != FieldCreatedAt {
		if err := f.check(); err != nil {
			return invalid("%v", err)
		}
		return invalid("operator >= is not defined on %s", f)
	}
	return validateComparison(">=", f, v)
}

func validateAnd(preds []Predicate) error {
	for _, p := range preds {
		if err := validatePredicate(p); err != nil {
			return err
		}
	}
	return nil
}
