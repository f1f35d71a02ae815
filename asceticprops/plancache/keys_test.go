package plancache

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/option"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/query"
	spec "github.com/krew-solutions/ascetic-props-go/asceticprops/specification/domain"
)

func TestBuildCacheKey(t *testing.T) {
	cases := []struct {
		name     string
		exp      spec.Visitable
		expected string
	}{
		{
			"number",
			spec.GreaterThan(spec.Path("Age"), spec.Value(30)),
			"7:(Age > #N)",
		},
		{
			"float",
			spec.LessThan(spec.Path("Salary"), spec.Value(1500.5)),
			"7:(Salary < #N)",
		},
		{
			"string",
			spec.Equal(spec.Path("Address.City"), spec.Value("Paris")),
			"7:(Address.City = #S)",
		},
		{
			"uuid string",
			spec.Equal(spec.Path("ExternalID"), spec.Value("7d444840-9dc0-11d1-b245-5ffdce74fad2")),
			"7:(ExternalID = #G)",
		},
		{
			"uuid",
			spec.Equal(spec.Path("ExternalID"), spec.Value(uuid.New())),
			"7:(ExternalID = #G)",
		},
		{
			"captured variable",
			spec.Equal(spec.Path("Name"), spec.Var("name", "Ann")),
			"7:(Name = #P)",
		},
		{
			"dictionary entry",
			spec.Equal(spec.Field(spec.GlobalScope(), "PhoneBook[home]"), spec.Value("555")),
			"7:(PhoneBook[home] = #S)",
		},
		{
			"logical",
			spec.And(
				spec.Equal(spec.Path("Name"), spec.Value("Ann")),
				spec.Not(spec.IsNull(spec.Path("Age"))),
			),
			"7:((Name = #S) AND NOT((Age IS NULL)))",
		},
		{
			"in list",
			spec.In(spec.Path("Age"), spec.Value([]int{1, 2, 3})),
			"7:(Age IN [#N])",
		},
		{
			"wildcard",
			spec.Wildcard(spec.Object(spec.GlobalScope(), "Roles"), spec.Equal(spec.Field(spec.Item(), "Value"), spec.Value("admin"))),
			"7:Roles[*]((@.Value = #S))",
		},
		{
			"boolean passes through",
			spec.Equal(spec.Path("Active"), spec.Value(true)),
			"7:(Active = true)",
		},
		{
			"time",
			spec.GreaterThan(spec.Path("HiredAt"), spec.Value(time.Now())),
			"7:(HiredAt > #T)",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expected, BuildCacheKey(c.exp, 7))
		})
	}
}

func TestKeyIgnoresValuesButNotShape(t *testing.T) {
	a := spec.Equal(spec.Path("Name"), spec.Value("Ann"))
	b := spec.Equal(spec.Path("Name"), spec.Value("Bob"))
	c := spec.Equal(spec.Path("Address.City"), spec.Value("Ann"))
	d := spec.NotEqual(spec.Path("Name"), spec.Value("Ann"))
	e := spec.Equal(spec.Path("Name"), spec.Value(1))

	assert.Equal(t, BuildCacheKey(a, 1), BuildCacheKey(b, 1))
	assert.NotEqual(t, BuildCacheKey(a, 1), BuildCacheKey(a, 2))
	assert.NotEqual(t, BuildCacheKey(a, 1), BuildCacheKey(c, 1))
	assert.NotEqual(t, BuildCacheKey(a, 1), BuildCacheKey(d, 1))
	assert.NotEqual(t, BuildCacheKey(a, 1), BuildCacheKey(e, 1))
}

func TestBuildOrderedCacheKey(t *testing.T) {
	filter := spec.GreaterThan(spec.Path("Age"), spec.Value(30))

	assert.Equal(t, "7:nofilter:noorder", BuildOrderedCacheKey(nil, nil, 7))
	assert.Equal(t, "7:(Age > #N):noorder", BuildOrderedCacheKey(filter, nil, 7))
	assert.Equal(t,
		"7:nofilter:Name:A,Age:D",
		BuildOrderedCacheKey(nil, []spec.Ordering{spec.Asc(spec.Path("Name")), spec.Desc(spec.Path("Age"))}, 7),
	)
	assert.NotEqual(t,
		BuildOrderedCacheKey(filter, []spec.Ordering{spec.Asc(spec.Path("Name")), spec.Desc(spec.Path("Age"))}, 7),
		BuildOrderedCacheKey(filter, []spec.Ordering{spec.Desc(spec.Path("Age")), spec.Asc(spec.Path("Name"))}, 7),
	)
}

func TestBuildQueryKey(t *testing.T) {
	build := func(name string, limit int, ancestor string) *query.TreeQueryContext {
		f, err := query.HasAncestor(spec.Equal(spec.Path("Name"), spec.Value(ancestor)), query.WithMaxDepth(limit))
		require.NoError(t, err)
		tq := query.NewTreeQueryContext(7).AddTreeFilter(f)
		tq.Where(spec.Equal(spec.Path("Name"), spec.Value(name))).Take(limit)
		tq.RootObjectID = option.Some(int64(limit))
		return tq
	}

	assert.Equal(t,
		"7:(Name = #S):noorder|root;limit;tree[HasAncestor(d (Name = #S))]",
		BuildQueryKey(build("Ann", 10, "HQ")),
	)
	assert.Equal(t, BuildQueryKey(build("Ann", 10, "HQ")), BuildQueryKey(build("Bob", 5, "Branch")))

	plain := query.NewTreeQueryContext(7)
	assert.Equal(t, "7:nofilter:noorder", BuildQueryKey(plain))

	paged := plain.Clone()
	paged.Skip(5)
	assert.NotEqual(t, BuildQueryKey(plain), BuildQueryKey(paged))

	native := plain.Clone()
	f, err := query.HasDescendant(nil, query.WithNativeCondition(json.RawMessage(`{"a":1}`)), query.WithTargetScheme(3))
	require.NoError(t, err)
	native.AddTreeFilter(f)
	level, err := query.Level(2)
	require.NoError(t, err)
	native.AddTreeFilter(level)
	assert.Equal(t, "7:nofilter:noorder|tree[HasDescendant(t=3 native),Level(#N)]", BuildQueryKey(native))
}
