package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/compiler"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/facet"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/fieldpath"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/option"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/plancache"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/query"
	spec "github.com/krew-solutions/ascetic-props-go/asceticprops/specification/domain"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/utils/testutils"
)

func newStore() *Store {
	c := compiler.New(
		fieldpath.NewResolver(testutils.NewCountingProvider(testutils.EmployeeSchema())),
		plancache.New[*facet.Plan](plancache.DefaultConfig()),
		facet.NewSQLBuilder(),
	)
	return NewStore(c)
}

func annQuery() *query.TreeQueryContext {
	tq := query.NewTreeQueryContext(testutils.EmployeeSchemeID)
	tq.Where(spec.Equal(spec.Path("Name"), spec.Value("Ann"))).Take(5)
	return tq
}

func TestFind(t *testing.T) {
	hash := uuid.New()
	rows := testutils.NewRowsStub(
		[]any{int64(4), int64(3), int64(100), "Ann", hash},
		[]any{int64(9), nil, int64(100), nil, hash},
	)
	s := testutils.NewDbSessionStub(rows)

	result, err := newStore().Find(s, annQuery())

	require.NoError(t, err)
	assert.Equal(t, []ObjectRow{
		{ID: 4, ParentID: option.Some(int64(3)), SchemeID: 100, Name: option.Some("Ann"), Hash: hash},
		{ID: 9, SchemeID: 100, Hash: hash},
	}, result)
	assert.Contains(t, s.ActualQuery, "LIMIT $2")
	assert.Equal(t, []any{"Ann", 5}, s.ActualParams)
	assert.True(t, rows.Closed)
}

func TestFindIDs(t *testing.T) {
	s := testutils.NewDbSessionStub(testutils.NewRowsStub(
		[]any{int64(4), nil, int64(100), nil, uuid.Nil},
		[]any{int64(7), nil, int64(100), nil, uuid.Nil},
	))

	ids, err := newStore().FindIDs(s, annQuery())

	require.NoError(t, err)
	assert.Equal(t, []int64{4, 7}, ids)
}

func TestFindEmptyContextSkipsQuery(t *testing.T) {
	s := testutils.NewDbSessionStub(testutils.NewRowsStub())
	tq := annQuery()
	tq.IsEmpty = true

	result, err := newStore().Find(s, tq)
	require.NoError(t, err)
	assert.Empty(t, result)

	n, err := newStore().Count(s, tq)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 0, s.Queries)
}

func TestFindPropagatesBackendError(t *testing.T) {
	boom := errors.New("relation does not exist")
	s := testutils.NewDbSessionStub(testutils.NewRowsStub())
	s.QueryErr = boom

	_, err := newStore().Find(s, annQuery())
	assert.ErrorIs(t, err, boom)

	_, err = newStore().Count(s, annQuery())
	assert.ErrorIs(t, err, boom)
}

func TestFindCompileError(t *testing.T) {
	s := testutils.NewDbSessionStub(testutils.NewRowsStub())
	tq := query.NewTreeQueryContext(testutils.EmployeeSchemeID)
	tq.Where(spec.Equal(spec.Path("Nickname"), spec.Value("A")))

	_, err := newStore().Find(s, tq)

	assert.ErrorIs(t, err, compiler.ErrUnresolvedPath)
	assert.Equal(t, 0, s.Queries)
}

func TestCount(t *testing.T) {
	s := testutils.NewDbSessionStub(testutils.NewRowsStub([]any{int64(12)}))

	n, err := newStore().Count(s, annQuery())

	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
	assert.Contains(t, s.ActualQuery, "SELECT count(*) FROM (SELECT")
	assert.NotContains(t, s.ActualQuery, "LIMIT")
	assert.Equal(t, []any{"Ann"}, s.ActualParams)
}

func TestFindHonoursSessionContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := testutils.NewDbSessionStub(testutils.NewRowsStub()).WithContext(ctx)

	_, err := newStore().Find(s, annQuery())

	assert.ErrorIs(t, err, context.Canceled)
}

func deepQuery(t *testing.T) *query.TreeQueryContext {
	level, err := query.Level(2)
	require.NoError(t, err)
	tq := query.NewTreeQueryContext(testutils.EmployeeSchemeID)
	tq.MaxRecursionDepth = option.Some(2)
	tq.AddTreeFilter(level)
	return tq
}

func TestFindReportsRecursionLimit(t *testing.T) {
	rows := testutils.NewRowsStub([]any{true})
	s := testutils.NewDbSessionStub(rows)

	_, err := newStore().Find(s, deepQuery(t))

	assert.ErrorIs(t, err, query.ErrDepthLimitExceeded)
	assert.Equal(t, 1, s.Queries)
	assert.Contains(t, s.ActualQuery, "SELECT EXISTS (SELECT 1 FROM _objects o")
	assert.Equal(t, []any{2, 2}, s.ActualParams)
}

func TestCountReportsRecursionLimit(t *testing.T) {
	s := testutils.NewDbSessionStub(testutils.NewRowsStub([]any{true}))

	_, err := newStore().Count(s, deepQuery(t))

	assert.ErrorIs(t, err, query.ErrDepthLimitExceeded)
	assert.Equal(t, 1, s.Queries)
}

func TestFindWithinRecursionLimit(t *testing.T) {
	rows := testutils.NewRowsStub(
		[]any{false},
		[]any{int64(3), int64(2), int64(100), "Ann", uuid.Nil},
	)
	s := testutils.NewDbSessionStub(rows)

	ids, err := newStore().FindIDs(s, deepQuery(t))

	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids)
	assert.Equal(t, 2, s.Queries)
	assert.Contains(t, s.ActualQuery, "SELECT count(*) FROM up_1) = $2")
}

func TestFindSkipsDepthCheckWithoutRecursionLimit(t *testing.T) {
	s := testutils.NewDbSessionStub(testutils.NewRowsStub())
	tq := deepQuery(t)
	tq.MaxRecursionDepth = option.Nothing[int]()

	_, err := newStore().Find(s, tq)

	require.NoError(t, err)
	assert.Equal(t, 1, s.Queries)
	assert.NotContains(t, s.ActualQuery, "SELECT EXISTS")
}
