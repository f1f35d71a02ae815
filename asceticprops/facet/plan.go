package facet

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/query"
)

// binding is the per-execution view a parameter slot reads its value from.
type binding struct {
	tq         *query.TreeQueryContext
	filter     []any
	conditions [][]any
}

func (b *binding) values(source int) []any {
	if source == filterSource {
		return b.filter
	}
	return b.conditions[source]
}

const filterSource = -1

type slot func(*binding) any

// Plan is a compiled query. It holds no literal values, only the slots that
// extract them from a context of the same shape, and is never modified after
// Build returns it.
type Plan struct {
	key    string
	sql    string
	facets json.RawMessage
	order  json.RawMessage
	empty  bool

	slots           []slot
	depthCheck      string
	depthCheckSlots []slot
	filterValues    int
	treeFilters     int
	conditionValues []int
}

func (p *Plan) Key() string {
	return p.key
}

func (p *Plan) SQL() string {
	return p.sql
}

func (p *Plan) Facets() json.RawMessage {
	return p.facets
}

func (p *Plan) Order() json.RawMessage {
	return p.order
}

// Empty reports a plan that yields no rows; it need not be executed.
func (p *Plan) Empty() bool {
	return p.empty
}

// DepthCheck is a statement yielding one boolean: true when some hierarchy
// walk of the plan stopped at MaxRecursionDepth although it could have gone
// on. Run it before SQL and report query.ErrDepthLimitExceeded when it holds.
// It is empty for plans that walk no hierarchy under a recursion limit.
func (p *Plan) DepthCheck() string {
	return p.depthCheck
}

// Bind extracts the statement arguments from tq in placeholder order.
func (p *Plan) Bind(tq *query.TreeQueryContext) ([]any, error) {
	b, err := p.binding(tq)
	if err != nil {
		return nil, err
	}
	return apply(p.slots, b), nil
}

// BindDepthCheck extracts the arguments of DepthCheck from tq.
func (p *Plan) BindDepthCheck(tq *query.TreeQueryContext) ([]any, error) {
	b, err := p.binding(tq)
	if err != nil {
		return nil, err
	}
	return apply(p.depthCheckSlots, b), nil
}

func (p *Plan) binding(tq *query.TreeQueryContext) (*binding, error) {
	b := &binding{tq: tq, filter: CollectValues(tq.Filter)}
	if len(b.filter) != p.filterValues {
		return nil, errors.Wrapf(ErrPlanMismatch, "filter has %d values, plan expects %d", len(b.filter), p.filterValues)
	}
	if len(tq.TreeFilters) != p.treeFilters {
		return nil, errors.Wrapf(ErrPlanMismatch, "%d tree filters, plan expects %d", len(tq.TreeFilters), p.treeFilters)
	}
	b.conditions = make([][]any, len(tq.TreeFilters))
	for i, f := range tq.TreeFilters {
		if c, ok := f.Condition.(query.PredicateCondition); ok {
			b.conditions[i] = CollectValues(c.Predicate)
		}
		if len(b.conditions[i]) != p.conditionValues[i] {
			return nil, errors.Wrapf(ErrPlanMismatch, "tree filter %d has %d values, plan expects %d", i, len(b.conditions[i]), p.conditionValues[i])
		}
	}
	return b, nil
}

func apply(slots []slot, b *binding) []any {
	args := make([]any, len(slots))
	for i, s := range slots {
		args[i] = s(b)
	}
	return args
}
