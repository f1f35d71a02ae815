package hierarchy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/option"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/query"
	spec "github.com/krew-solutions/ascetic-props-go/asceticprops/specification/domain"
)

const (
	departments int64 = 1
	archives    int64 = 2
)

func node(id int64, parent int64, scheme int64, name string) Node {
	n := Node{ID: id, SchemeID: scheme, Props: spec.DictContext{"Name": name}}
	if parent != 0 {
		n.ParentID = option.Some(parent)
	}
	return n
}

// 1 HQ
// ├── 2 Sales
// │   └── 3 Team A
// │       └── 4 Ann
// └── 5 Archive (archives scheme)
//     └── 6 Old
// 7 Branch
func fixture() *Hierarchy {
	return New(
		node(1, 0, departments, "HQ"),
		node(2, 1, departments, "Sales"),
		node(3, 2, departments, "Team A"),
		node(4, 3, departments, "Ann"),
		node(5, 1, archives, "Archive"),
		node(6, 5, departments, "Old"),
		node(7, 0, departments, "Branch"),
	)
}

func must(f query.TreeFilter, err error) query.TreeFilter {
	if err != nil {
		panic(err)
	}
	return f
}

func nameIs(name string) spec.Visitable {
	return spec.Equal(spec.Path("Name"), spec.Value(name))
}

func selectWith(t *testing.T, configure func(tq *query.TreeQueryContext), filters ...query.TreeFilter) []int64 {
	t.Helper()
	tq := query.NewTreeQueryContext(departments).AddTreeFilter(filters...)
	if configure != nil {
		configure(tq)
	}
	ids, err := fixture().Select(tq)
	require.NoError(t, err)
	return ids
}

func TestOperators(t *testing.T) {
	cases := []struct {
		name     string
		filter   query.TreeFilter
		expected []int64
	}{
		{"level 0", must(query.Level(0)), []int64{1, 7}},
		{"level 2", must(query.Level(2)), []int64{3, 6}},
		{"is root", query.IsRoot(), []int64{1, 7}},
		{"is leaf", query.IsLeaf(), []int64{4, 6, 7}},
		{"children of", must(query.ChildrenOf(int64(1))), []int64{2}},
		{"descendants of", must(query.DescendantsOf(1)), []int64{2, 3, 4, 6}},
		{"descendants of depth 1", must(query.DescendantsOf(1, query.WithMaxDepth(1))), []int64{2}},
		{"has any ancestor", must(query.HasAncestor(nil)), []int64{2, 3, 4, 6}},
		{"has ancestor", must(query.HasAncestor(nameIs("HQ"))), []int64{2, 3, 4, 6}},
		{"has ancestor depth 2", must(query.HasAncestor(nameIs("HQ"), query.WithMaxDepth(2))), []int64{2, 3, 6}},
		{"has ancestor of scheme", must(query.HasAncestor(nil, query.WithTargetScheme(archives))), []int64{6}},
		{"has descendant", must(query.HasDescendant(nameIs("Ann"))), []int64{1, 2, 3}},
		{"has descendant depth 1", must(query.HasDescendant(nameIs("Ann"), query.WithMaxDepth(1))), []int64{3}},
		{"has descendant of scheme", must(query.HasDescendant(nil, query.WithTargetScheme(archives))), []int64{1}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expected, selectWith(t, nil, c.filter))
		})
	}
}

func TestFiltersCombine(t *testing.T) {
	ids := selectWith(t, func(tq *query.TreeQueryContext) {
		tq.Where(spec.Like(spec.Path("Name"), spec.Value("%A%")))
	}, must(query.HasAncestor(nameIs("Sales"))))

	assert.Equal(t, []int64{3, 4}, ids)
}

func TestContextDepthBoundsTraversal(t *testing.T) {
	ids := selectWith(t, func(tq *query.TreeQueryContext) {
		tq.MaxDepth = option.Some(1)
	}, must(query.HasAncestor(nameIs("HQ"))))
	assert.Equal(t, []int64{2}, ids)

	ids = selectWith(t, func(tq *query.TreeQueryContext) {
		tq.MaxDepth = option.Some(1)
	}, must(query.HasAncestor(nameIs("HQ"), query.WithMaxDepth(3))))
	assert.Equal(t, []int64{2, 3, 4, 6}, ids)
}

func TestScope(t *testing.T) {
	ids := selectWith(t, func(tq *query.TreeQueryContext) {
		tq.RootObjectID = option.Some(int64(2))
	})
	assert.Equal(t, []int64{2, 3, 4}, ids)

	ids = selectWith(t, func(tq *query.TreeQueryContext) {
		tq.ParentIDs = []int64{2, 3}
	})
	assert.Equal(t, []int64{3, 4}, ids)

	ids = selectWith(t, func(tq *query.TreeQueryContext) {
		tq.IsEmpty = true
	})
	assert.Empty(t, ids)
}

func TestRecursionLimitIsAnError(t *testing.T) {
	tq := query.NewTreeQueryContext(departments).AddTreeFilter(must(query.Level(3)))
	tq.MaxRecursionDepth = option.Some(2)

	_, err := fixture().Select(tq)
	assert.ErrorIs(t, err, query.ErrDepthLimitExceeded)

	tq = query.NewTreeQueryContext(departments).AddTreeFilter(must(query.HasDescendant(nameIs("Nobody"))))
	tq.MaxRecursionDepth = option.Some(2)

	_, err = fixture().Select(tq)
	assert.ErrorIs(t, err, query.ErrDepthLimitExceeded)

	tq.MaxRecursionDepth = option.Some(3)
	ids, err := fixture().Select(tq)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFilterDepthAboveRecursionLimitIsRejected(t *testing.T) {
	tq := query.NewTreeQueryContext(departments).
		AddTreeFilter(must(query.HasAncestor(nil, query.WithMaxDepth(5))))
	tq.MaxRecursionDepth = option.Some(2)

	_, err := fixture().Match(tq, 4)
	assert.ErrorIs(t, err, query.ErrDepthLimitExceeded)
}

func TestCycle(t *testing.T) {
	h := New(
		node(10, 11, departments, "A"),
		node(11, 10, departments, "B"),
	)
	tq := query.NewTreeQueryContext(departments).AddTreeFilter(must(query.Level(0)))

	_, err := h.Select(tq)
	assert.ErrorIs(t, err, query.ErrHierarchyCycle)

	tq.MaxRecursionDepth = option.Some(10)
	_, err = h.Select(tq)
	assert.ErrorIs(t, err, query.ErrDepthLimitExceeded)

	tq = query.NewTreeQueryContext(departments).AddTreeFilter(must(query.HasDescendant(nameIs("C"))))
	_, err = h.Select(tq)
	assert.ErrorIs(t, err, query.ErrHierarchyCycle)
}

func TestNativeConditionNeedsBackend(t *testing.T) {
	tq := query.NewTreeQueryContext(departments).
		AddTreeFilter(must(query.HasAncestor(nil, query.WithNativeCondition(json.RawMessage(`{"Name":"HQ"}`)))))

	_, err := fixture().Match(tq, 2)
	assert.ErrorIs(t, err, ErrNativeCondition)

	ok, err := fixture().Match(tq, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnknownNode(t *testing.T) {
	ok, err := fixture().Match(query.NewTreeQueryContext(departments), 99)
	require.NoError(t, err)
	assert.False(t, ok)
}
