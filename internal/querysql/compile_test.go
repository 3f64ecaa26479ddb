package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventdoc/internal/ir"
	"github.com/roach88/eventdoc/internal/query"
)

func TestCompile_Empty(t *testing.T) {
	where, orderBy, params, err := Compile(query.Query{})
	require.NoError(t, err)

	assert.Equal(t, "1 = 1", where)
	assert.Equal(t, "seq ASC", orderBy, "tie breaker is mandatory")
	assert.Empty(t, params)
}

func TestCompile_Load(t *testing.T) {
	where, orderBy, params, err := Compile(query.Query{
		Filter: query.All(
			query.MetadataEquals(ir.Object{"tag": ir.String("person")}),
			query.AtLeast{Field: query.Version, Value: ir.Int(2)},
		),
		OrderBy: query.ByVersion(),
	})
	require.NoError(t, err)

	assert.Equal(t, "(json_type(metadata, ?) = ? AND json_extract(metadata, ?) = ?) AND version >= ?", where)
	assert.Equal(t, "version ASC, seq ASC", orderBy)
	assert.Equal(t, []any{`$."tag"`, "text", `$."tag"`, "person", int64(2)}, params)
	assert.NotContains(t, where, "person", "values must be parameterized")
}

func TestCompile_Replay(t *testing.T) {
	where, orderBy, params, err := Compile(query.Query{
		Filter:  query.AtLeast{Field: query.CreatedAt, Value: ir.String("2016-05-01T12:00:00.000000")},
		OrderBy: query.ByReplay(),
	})
	require.NoError(t, err)

	assert.Equal(t, "created_at >= ?", where)
	assert.Equal(t, "created_at COLLATE BINARY ASC, version ASC, seq ASC", orderBy)
	assert.Equal(t, []any{"2016-05-01T12:00:00.000000"}, params)
}

func TestCompile_MetadataTypes(t *testing.T) {
	tests := []struct {
		name  string
		value ir.Value
		typ   string
		param any
	}{
		{"string", ir.String("1"), "text", "1"},
		{"int", ir.Int(1), "integer", int64(1)},
		{"true", ir.Bool(true), "true", int64(1)},
		{"false", ir.Bool(false), "false", int64(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, params, err := Compile(query.Query{
				Filter: query.Equals{Field: query.Metadata("n"), Value: tt.value},
			})
			require.NoError(t, err)
			assert.Equal(t, []any{`$."n"`, tt.typ, `$."n"`, tt.param}, params)
		})
	}
}

func TestCompile_TopLevelEquals(t *testing.T) {
	where, _, params, err := Compile(query.Query{
		Filter: &query.And{Predicates: []query.Predicate{
			&query.Equals{Field: query.EventName, Value: ir.String("UserCreated")},
			query.Equals{Field: query.EventID, Value: ir.String("abc")},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "event_name = ? AND event_id = ?", where)
	assert.Equal(t, []any{"UserCreated", "abc"}, params)
}

func TestCompile_Desc(t *testing.T) {
	_, orderBy, _, err := Compile(query.Query{
		OrderBy: []query.SortKey{{Field: query.EventID, Direction: query.Desc}},
	})
	require.NoError(t, err)
	assert.Equal(t, "event_id COLLATE BINARY DESC, seq ASC", orderBy)
}

func TestCompile_Invalid(t *testing.T) {
	_, _, _, err := Compile(query.Query{
		Filter: query.AtLeast{Field: query.Metadata("tag"), Value: ir.String("x")},
	})
	assert.ErrorIs(t, err, ir.ErrInvalidQuery)

	_, _, _, err = Compile(query.Query{
		OrderBy: []query.SortKey{{Field: query.Metadata("tag")}},
	})
	assert.ErrorIs(t, err, ir.ErrInvalidQuery)
}
