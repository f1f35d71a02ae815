package facet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/query"
	spec "github.com/krew-solutions/ascetic-props-go/asceticprops/specification/domain"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/utils/testutils"
)

func employeeQuery(t *testing.T, name string, age int, ancestor string) *query.TreeQueryContext {
	f, err := query.HasAncestor(spec.Equal(spec.Path("Name"), spec.Value(ancestor)))
	require.NoError(t, err)
	tq := query.NewTreeQueryContext(testutils.EmployeeSchemeID)
	tq.Where(spec.And(
		spec.Equal(spec.Path("Name"), spec.Value(name)),
		spec.GreaterThan(spec.Path("Age"), spec.Value(age)),
	))
	tq.AddTreeFilter(f)
	tq.Take(20)
	return tq
}

func TestPlanBindReusesPlan(t *testing.T) {
	p, err := NewSQLBuilder().Build("key", employeeQuery(t, "Ann", 30, "Sales"), employees(t, "Name", "Age"))
	require.NoError(t, err)

	args, err := p.Bind(employeeQuery(t, "Bob", 40, "Support"))
	require.NoError(t, err)
	assert.Equal(t, []any{"Bob", 40, "Support", 20}, args)

	args, err = p.Bind(employeeQuery(t, "Ann", 30, "Sales"))
	require.NoError(t, err)
	assert.Equal(t, []any{"Ann", 30, "Sales", 20}, args)
}

func TestPlanBindRejectsOtherShapes(t *testing.T) {
	p, err := NewSQLBuilder().Build("key", employeeQuery(t, "Ann", 30, "Sales"), employees(t, "Name", "Age"))
	require.NoError(t, err)

	fewer := employeeQuery(t, "Ann", 30, "Sales")
	fewer.Filter = spec.Equal(spec.Path("Name"), spec.Value("Ann"))
	_, err = p.Bind(fewer)
	assert.ErrorIs(t, err, ErrPlanMismatch)

	noTree := employeeQuery(t, "Ann", 30, "Sales")
	noTree.TreeFilters = nil
	_, err = p.Bind(noTree)
	assert.ErrorIs(t, err, ErrPlanMismatch)

	otherCondition := employeeQuery(t, "Ann", 30, "Sales")
	otherCondition.TreeFilters[0].Condition = query.PredicateCondition{Predicate: spec.IsNull(spec.Path("Name"))}
	_, err = p.Bind(otherCondition)
	assert.ErrorIs(t, err, ErrPlanMismatch)
}
