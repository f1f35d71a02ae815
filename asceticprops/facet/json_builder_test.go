package facet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/option"
	spec "github.com/krew-solutions/ascetic-props-go/asceticprops/specification/domain"
)

func TestBuildFacetFilters(t *testing.T) {
	roles := spec.Object(spec.GlobalScope(), "Roles")
	cases := []struct {
		name string
		expr spec.Visitable
		want string
	}{
		{"nil", nil, `{}`},
		{"eq", spec.Equal(spec.Path("Name"), spec.Value("Ann")), `{"Name":{"$eq":{"$p":1}}}`},
		{"mirrored", spec.LessThan(spec.Value(30), spec.Path("Age")), `{"Age":{"$gt":{"$p":1}}}`},
		{"and flattened",
			spec.And(
				spec.Equal(spec.Path("Name"), spec.Value("Ann")),
				spec.GreaterThan(spec.Path("Age"), spec.Value(30)),
				spec.Like(spec.Path("Address.City"), spec.Value("Par%")),
			),
			`{"$and":[{"Name":{"$eq":{"$p":1}}},{"Age":{"$gt":{"$p":2}}},{"Address.City":{"$like":{"$p":3}}}]}`},
		{"or", spec.Or(
			spec.Equal(spec.Path("Name"), spec.Var("name", "Ann")),
			spec.In(spec.Path("Age"), spec.Value([]int{1, 2})),
		), `{"$or":[{"Name":{"$eq":{"$p":1}}},{"Age":{"$in":{"$p":2}}}]}`},
		{"not", spec.Not(spec.Equal(spec.Path("Active"), spec.Value(true))), `{"$not":{"Active":{"$eq":{"$p":1}}}}`},
		{"is null", spec.IsNull(spec.Path("Manager")), `{"Manager":{"$exists":false}}`},
		{"is not null", spec.IsNotNull(spec.Path("Manager")), `{"Manager":{"$exists":true}}`},
		{"wildcard",
			spec.Wildcard(roles, spec.Equal(spec.Field(spec.Item(), "Value"), spec.Value("admin"))),
			`{"Roles[]":{"$elemMatch":{"Value":{"$eq":{"$p":1}}}}}`},
	}
	b := NewJSONBuilder()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			doc, err := b.BuildFacetFilters(c.expr)
			require.NoError(t, err)
			assert.JSONEq(t, c.want, string(doc))
		})
	}
}

func TestBuildFacetFiltersIsValueFree(t *testing.T) {
	b := NewJSONBuilder()
	first, err := b.BuildFacetFilters(spec.Equal(spec.Path("Name"), spec.Value("Ann")))
	require.NoError(t, err)
	second, err := b.BuildFacetFilters(spec.Equal(spec.Path("Name"), spec.Value("Bob")))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestBuildFacetFiltersUnsupported(t *testing.T) {
	cases := map[string]spec.Visitable{
		"field to field": spec.Equal(spec.Path("Age"), spec.Path("Salary")),
		"arithmetic":     spec.GreaterThan(spec.Add(spec.Path("Age"), spec.Value(1)), spec.Value(30)),
		"item outside":   spec.Equal(spec.Field(spec.Item(), "Value"), spec.Value("x")),
		"literal like":   spec.Like(spec.Value("x"), spec.Path("Name")),
	}
	b := NewJSONBuilder()
	for name, expr := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := b.BuildFacetFilters(expr)
			assert.ErrorIs(t, err, ErrUnsupportedExpression)
		})
	}
}

func TestBuildOrderBy(t *testing.T) {
	b := NewJSONBuilder()
	doc, err := b.BuildOrderBy([]spec.Ordering{spec.Asc(spec.Path("Name")), spec.Desc(spec.Path("Age"))})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"field":"Name","direction":"asc"},{"field":"Age","direction":"desc"}]`, string(doc))

	doc, err = b.BuildOrderBy(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(doc))
}

func TestBuildQueryParameters(t *testing.T) {
	b := NewJSONBuilder()
	assert.True(t, b.BuildQueryParameters(option.Nothing[int](), option.Nothing[int]()).IsZero())
	p := b.BuildQueryParameters(option.Some(10), option.Nothing[int]())
	assert.False(t, p.IsZero())
	assert.Equal(t, option.Some(10), p.Limit)
}

func TestCollectValues(t *testing.T) {
	expr := spec.And(
		spec.Equal(spec.Path("Name"), spec.Var("name", "Ann")),
		spec.Wildcard(spec.Object(spec.GlobalScope(), "Skills"),
			spec.GreaterThan(spec.Field(spec.Item(), "Level"), spec.Value(3))),
	)
	assert.Equal(t, []any{"Ann", 3}, CollectValues(expr))
	assert.Nil(t, CollectValues(nil))
}
