// Package querysql compiles queries to parameterized SQLite SQL over the
// event document table.
//
// Every ORDER BY ends with "seq ASC", the insertion sequence, so tie order
// matches the in-memory engine running over a storage-order scan. Values
// are never interpolated into the SQL text.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/eventdoc/internal/ir"
	"github.com/roach88/eventdoc/internal/query"
)

// tieBreaker is appended to every ORDER BY.
const tieBreaker = "seq ASC"

// Compile converts a query to a WHERE fragment, an ORDER BY list and the
// parameters for the WHERE placeholders. The query is validated first.
//
// A nil filter compiles to "1 = 1".
func Compile(q query.Query) (where, orderBy string, params []any, err error) {
	if err := query.Validate(q); err != nil {
		return "", "", nil, err
	}

	where, params, err = compilePredicate(q.Filter)
	if err != nil {
		return "", "", nil, fmt.Errorf("compile filter: %w", err)
	}

	orderBy, err = compileOrderBy(q.OrderBy)
	if err != nil {
		return "", "", nil, fmt.Errorf("compile order by: %w", err)
	}

	return where, orderBy, params, nil
}

func compilePredicate(p query.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case query.Equals:
		return compileEquals(pred)
	case *query.Equals:
		return compileEquals(*pred)
	case query.AtLeast:
		return compileAtLeast(pred)
	case *query.AtLeast:
		return compileAtLeast(*pred)
	case query.And:
		return compileAnd(pred)
	case *query.And:
		return compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals compiles field equality. Metadata entries check the JSON
// type as well as the value, since json_extract maps true to 1.
func compileEquals(eq query.Equals) (string, []any, error) {
	if eq.Field.Kind == query.FieldMetadata {
		typ, param, err := jsonParam(eq.Value)
		if err != nil {
			return "", nil, err
		}
		path := metadataPath(eq.Field.Key)
		return "(json_type(metadata, ?) = ? AND json_extract(metadata, ?) = ?)",
			[]any{path, typ, path, param}, nil
	}

	col, err := column(eq.Field)
	if err != nil {
		return "", nil, err
	}
	param, err := valueToParam(eq.Value)
	if err != nil {
		return "", nil, err
	}
	return col + " = ?", []any{param}, nil
}

func compileAtLeast(al query.AtLeast) (string, []any, error) {
	col, err := column(al.Field)
	if err != nil {
		return "", nil, err
	}
	param, err := valueToParam(al.Value)
	if err != nil {
		return "", nil, err
	}
	return col + " >= ?", []any{param}, nil
}

func compileAnd(and query.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, p := range and.Predicates {
		sql, ps, err := compilePredicate(p)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func compileOrderBy(keys []query.SortKey) (string, error) {
	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		col, err := column(k.Field)
		if err != nil {
			return "", err
		}
		if k.Field.Kind != query.FieldVersion {
			col += " COLLATE BINARY"
		}
		parts = append(parts, col+" "+k.Direction.String())
	}
	parts = append(parts, tieBreaker)
	return strings.Join(parts, ", "), nil
}

// column maps a top-level field to its column name.
func column(f query.Field) (string, error) {
	switch f.Kind {
	case query.FieldEventID:
		return "event_id", nil
	case query.FieldVersion:
		return "version", nil
	case query.FieldEventName:
		return "event_name", nil
	case query.FieldCreatedAt:
		return "created_at", nil
	default:
		return "", fmt.Errorf("field %s has no column", f)
	}
}

// metadataPath quotes key as a JSON path member. Keys are restricted to
// letters, digits, underscore and dash, so no escaping is needed.
func metadataPath(key string) string {
	return `$."` + key + `"`
}

// jsonParam returns the json_type name and the json_extract result for a
// scalar value.
func jsonParam(v ir.Value) (string, any, error) {
	switch val := v.(type) {
	case ir.String:
		return "text", string(val), nil
	case ir.Int:
		return "integer", int64(val), nil
	case ir.Bool:
		if val {
			return "true", int64(1), nil
		}
		return "false", int64(0), nil
	default:
		return "", nil, fmt.Errorf("unsupported metadata value type: %s", ir.TypeName(v))
	}
}

func valueToParam(v ir.Value) (any, error) {
	switch val := v.(type) {
	case ir.String:
		return string(val), nil
	case ir.Int:
		return int64(val), nil
	default:
		return nil, fmt.Errorf("unsupported column value type: %s", ir.TypeName(v))
	}
}
