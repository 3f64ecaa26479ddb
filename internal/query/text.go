package query

import (
	"encoding/json"
	"strings"

	"github.com/roach88/eventdoc/internal/ir"
)

// ParsePredicate parses the text form "<field>==<value>" or
// "<field>>=<value>". The value is read as a JSON literal when it is one and
// as a plain string otherwise, so version>=2 compares an Int and
// metadata.tag==person compares a String. The result is validated.
func ParsePredicate(expr string) (Predicate, error) {
	var (
		pred      Predicate
		left, raw string
		ok        bool
	)

	if left, raw, ok = strings.Cut(expr, ">="); ok {
		f, err := ParseField(strings.TrimSpace(left))
		if err != nil {
			return nil, err
		}
		v, err := parseLiteral(raw)
		if err != nil {
			return nil, err
		}
		pred = AtLeast{Field: f, Value: v}
	} else if left, raw, ok = strings.Cut(expr, "=="); ok {
		f, err := ParseField(strings.TrimSpace(left))
		if err != nil {
			return nil, err
		}
		v, err := parseLiteral(raw)
		if err != nil {
			return nil, err
		}
		pred = Equals{Field: f, Value: v}
	} else {
		return nil, invalid("expression %q: expected <field>==<value> or <field>>=<value>", expr)
	}

	if err := validatePredicate(pred); err != nil {
		return nil, err
	}
	return pred, nil
}

// ParseFilter parses each expression with ParsePredicate and ANDs them.
func ParseFilter(exprs []string) (Predicate, error) {
	preds := make([]Predicate, 0, len(exprs))
	for _, e := range exprs {
		p, err := ParsePredicate(e)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return All(preds...), nil
}

func parseLiteral(raw string) (ir.Value, error) {
	s := strings.TrimSpace(raw)
	if !json.Valid([]byte(s)) {
		return ir.String(s), nil
	}
	v, err := ir.DecodeJSON([]byte(s))
	if err != nil {
		return nil, invalid("value %s: %v", s, err)
	}
	return v, nil
}
