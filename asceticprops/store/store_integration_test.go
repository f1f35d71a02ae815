//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/option"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/query"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/session"
	pgxsession "github.com/krew-solutions/ascetic-props-go/asceticprops/session/pgx"
	spec "github.com/krew-solutions/ascetic-props-go/asceticprops/specification/domain"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/utils/testutils"
)

var fixtureStatements = []string{
	`CREATE TEMP TABLE _objects (
		_id bigint PRIMARY KEY,
		_id_parent bigint,
		_id_scheme bigint NOT NULL,
		_name text,
		_hash uuid NOT NULL DEFAULT gen_random_uuid()
	) ON COMMIT DROP`,
	`CREATE TEMP TABLE _values (
		_id bigserial PRIMARY KEY,
		_id_object bigint NOT NULL,
		_id_structure bigint NOT NULL,
		_array_parent_id bigint,
		_array_index int,
		_array_key text,
		_String text,
		_Long bigint,
		_Guid uuid,
		_Double double precision,
		_Numeric numeric,
		_DateTimeOffset timestamptz,
		_Boolean boolean,
		_ByteArray bytea,
		_ListItem bigint,
		_Object bigint
	) ON COMMIT DROP`,
	`CREATE TEMP TABLE _list_items (_id bigint PRIMARY KEY, _value text) ON COMMIT DROP`,
	`INSERT INTO _list_items VALUES (1, 'admin'), (2, 'user')`,
	`INSERT INTO _objects (_id, _id_parent, _id_scheme, _name) VALUES
		(1, NULL, 100, 'HQ'), (2, 1, 100, 'Sales'), (3, 2, 100, 'Ann'), (4, 2, 100, 'Bob')`,
	`INSERT INTO _values (_id_object, _id_structure, _String) VALUES
		(1, 1, 'HQ'), (2, 1, 'Sales'), (3, 1, 'Ann'), (4, 1, 'Bob')`,
	`INSERT INTO _values (_id_object, _id_structure, _Long) VALUES (3, 2, 30), (4, 2, 45)`,
	`INSERT INTO _values (_id_object, _id_structure, _array_index, _ListItem) VALUES (3, 30, 0, 1), (4, 30, 0, 2)`,
	`INSERT INTO _values (_id_object, _id_structure, _array_key, _String) VALUES (3, 20, 'home', '555-01')`,
}

// withFixture runs callback inside a seeded transaction that is always
// rolled back.
func withFixture(t *testing.T, callback func(s session.DbSession)) {
	t.Helper()
	sessionPool, err := testutils.NewPgSessionPool()
	if err != nil {
		t.Fatalf("Failed to create session pool: %v", err)
	}
	defer sessionPool.Close()

	ctx := context.Background()
	tx, err := sessionPool.Pool().Begin(ctx)
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	for _, stmt := range fixtureStatements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			t.Fatalf("Failed to seed fixture: %v", err)
		}
	}
	callback(pgxsession.NewSession(ctx, tx))
}

func TestStoreIntegration(t *testing.T) {
	st := newStore()
	withFixture(t, func(s session.DbSession) {
		ids := func(tq *query.TreeQueryContext) []int64 {
			result, err := st.FindIDs(s, tq)
			require.NoError(t, err)
			return result
		}
		employees := func() *query.TreeQueryContext {
			return query.NewTreeQueryContext(testutils.EmployeeSchemeID)
		}

		older := employees()
		older.Where(spec.GreaterThan(spec.Path("Age"), spec.Value(40)))
		assert.Equal(t, []int64{4}, ids(older))

		ancestor, err := query.HasAncestor(spec.Equal(spec.Path("Name"), spec.Value("Sales")))
		require.NoError(t, err)
		underSales := employees()
		underSales.OrderBy(spec.Desc(spec.Path("Name")))
		underSales.AddTreeFilter(ancestor)
		assert.Equal(t, []int64{4, 3}, ids(underSales))

		admins := employees()
		admins.Where(spec.Wildcard(spec.Object(spec.GlobalScope(), "Roles"),
			spec.Equal(spec.Field(spec.Item(), "Value"), spec.Value("admin"))))
		assert.Equal(t, []int64{3}, ids(admins))

		home := employees()
		home.Where(spec.Equal(spec.Path("PhoneBook[home]"), spec.Value("555-01")))
		assert.Equal(t, []int64{3}, ids(home))

		level, err := query.Level(2)
		require.NoError(t, err)
		deep := employees()
		deep.AddTreeFilter(level).Take(10)
		assert.Equal(t, []int64{3, 4}, ids(deep))

		subtree := employees()
		subtree.RootObjectID = option.Some(int64(2))
		subtree.Take(10)
		assert.Equal(t, []int64{2, 3, 4}, ids(subtree))

		children, err := query.ChildrenOf(int64(2))
		require.NoError(t, err)
		count := employees()
		count.AddTreeFilter(children)
		n, err := st.Count(s, count)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		roots := employees()
		roots.AddTreeFilter(query.IsRoot())
		assert.Equal(t, []int64{1}, ids(roots))

		limited := employees()
		limited.MaxRecursionDepth = option.Some(1)
		limited.AddTreeFilter(level)
		_, err = st.FindIDs(s, limited)
		assert.ErrorIs(t, err, query.ErrDepthLimitExceeded)

		limited.MaxRecursionDepth = option.Some(2)
		assert.Equal(t, []int64{3, 4}, ids(limited))
	})
}
