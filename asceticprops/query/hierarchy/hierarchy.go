// Package hierarchy evaluates tree query contexts over a materialized
// parent-link graph. It defines the meaning of every tree filter operator;
// storage backends compile the same semantics.
package hierarchy

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/option"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/query"
	spec "github.com/krew-solutions/ascetic-props-go/asceticprops/specification/domain"
)

var ErrNativeCondition = errors.New("hierarchy: native conditions are evaluated by the storage backend")

type Node struct {
	ID       int64
	ParentID option.Option[int64]
	SchemeID int64
	Props    spec.Context
}

func (n Node) props() spec.Context {
	if n.Props == nil {
		return spec.DictContext{}
	}
	return n.Props
}

type Hierarchy struct {
	nodes    map[int64]Node
	children map[int64][]int64
}

func New(nodes ...Node) *Hierarchy {
	h := &Hierarchy{
		nodes:    make(map[int64]Node, len(nodes)),
		children: make(map[int64][]int64),
	}
	for _, n := range nodes {
		h.nodes[n.ID] = n
	}
	for _, n := range nodes {
		if pid, ok := n.ParentID.Get(); ok {
			h.children[pid] = append(h.children[pid], n.ID)
		}
	}
	for pid := range h.children {
		sort.Slice(h.children[pid], func(i, j int) bool { return h.children[pid][i] < h.children[pid][j] })
	}
	return h
}

// Limits are the context-wide traversal bounds a tree filter runs under.
type Limits struct {
	MaxDepth          option.Option[int]
	MaxRecursionDepth option.Option[int]
}

func LimitsOf(q *query.QueryContext) Limits {
	return Limits{MaxDepth: q.MaxDepth, MaxRecursionDepth: q.MaxRecursionDepth}
}

// Select returns the ids of all nodes matching tq, ascending.
func (h *Hierarchy) Select(tq *query.TreeQueryContext) ([]int64, error) {
	ids := make([]int64, 0, len(h.nodes))
	for id := range h.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var result []int64
	for _, id := range ids {
		ok, err := h.Match(tq, id)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, id)
		}
	}
	return result, nil
}

// Match reports whether node id satisfies the scope, the filter and every
// tree filter of tq. Unknown ids never match.
func (h *Hierarchy) Match(tq *query.TreeQueryContext, id int64) (bool, error) {
	if err := tq.Validate(); err != nil {
		return false, err
	}
	node, ok := h.nodes[id]
	if !ok || tq.IsEmpty || node.SchemeID != tq.SchemeID {
		return false, nil
	}
	limits := LimitsOf(&tq.QueryContext)

	if rootID, ok := tq.RootObjectID.Get(); ok && rootID != id {
		under, err := h.reachesAncestor(node, rootID, option.Nothing[int](), limits)
		if err != nil || !under {
			return false, err
		}
	}
	if len(tq.ParentIDs) > 0 {
		pid, ok := node.ParentID.Get()
		if !ok || !contains(tq.ParentIDs, pid) {
			return false, nil
		}
	}
	if tq.Filter != nil {
		ok, err := spec.Evaluate(node.props(), tq.Filter)
		if err != nil || !ok {
			return false, err
		}
	}
	for _, f := range tq.TreeFilters {
		ok, err := h.MatchFilter(f, id, limits)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (h *Hierarchy) MatchFilter(f query.TreeFilter, id int64, limits Limits) (bool, error) {
	node, ok := h.nodes[id]
	if !ok {
		return false, nil
	}
	bound := f.MaxDepth.Or(limits.MaxDepth)

	switch f.Operator {
	case query.IsRootOp:
		return node.ParentID.IsNothing(), nil
	case query.IsLeafOp:
		return len(h.children[id]) == 0, nil
	case query.LevelOp:
		want, _ := query.AsInt64(f.Value)
		depth, err := h.depth(node, limits)
		if err != nil {
			return false, err
		}
		return int64(depth) == want, nil
	case query.ChildrenOfOp:
		want, isInt := query.AsInt64(f.Value)
		pid, hasParent := node.ParentID.Get()
		return isInt && hasParent && pid == want, nil
	case query.DescendantsOfOp:
		want, isInt := query.AsInt64(f.Value)
		if !isInt {
			return false, nil
		}
		return h.reachesAncestor(node, want, bound, limits)
	case query.HasAncestorOp:
		found := false
		err := h.walkUp(node, bound, limits, func(anc Node) (bool, error) {
			ok, err := h.satisfies(f, anc)
			found = ok
			return ok, err
		})
		return found, err
	case query.HasDescendantOp:
		found := false
		err := h.walkDown(node, bound, limits, func(desc Node) (bool, error) {
			ok, err := h.satisfies(f, desc)
			found = ok
			return ok, err
		})
		return found, err
	}
	return false, errors.Wrapf(query.ErrMalformedTreeFilter, "unknown operator %s", f.Operator)
}

func (h *Hierarchy) satisfies(f query.TreeFilter, related Node) (bool, error) {
	if target, ok := f.TargetSchemeID.Get(); ok && related.SchemeID != target {
		return false, nil
	}
	switch c := f.Condition.(type) {
	case nil:
		return true, nil
	case query.PredicateCondition:
		return spec.Evaluate(related.props(), c.Predicate)
	case query.NativeCondition:
		return false, ErrNativeCondition
	}
	return false, nil
}

func (h *Hierarchy) depth(node Node, limits Limits) (int, error) {
	depth := 0
	err := h.walkUp(node, option.Nothing[int](), limits, func(Node) (bool, error) {
		depth++
		return false, nil
	})
	return depth, err
}

func (h *Hierarchy) reachesAncestor(node Node, ancestorID int64, bound option.Option[int], limits Limits) (bool, error) {
	found := false
	err := h.walkUp(node, bound, limits, func(anc Node) (bool, error) {
		found = anc.ID == ancestorID
		return found, nil
	})
	return found, err
}

// walkUp calls visit for each ancestor, nearest first, until visit stops it,
// the chain ends or bound is reached.
func (h *Hierarchy) walkUp(node Node, bound option.Option[int], limits Limits, visit func(Node) (bool, error)) error {
	visited := map[int64]struct{}{node.ID: {}}
	current := node
	for distance := 1; ; distance++ {
		pid, ok := current.ParentID.Get()
		if !ok {
			return nil
		}
		if maxDepth, ok := bound.Get(); ok && distance > maxDepth {
			return nil
		}
		parent, ok := h.nodes[pid]
		if !ok {
			return nil
		}
		if err := h.checkStep(visited, pid, distance, limits); err != nil {
			return err
		}
		stop, err := visit(parent)
		if err != nil || stop {
			return err
		}
		current = parent
	}
}

// walkDown visits descendants level by level, lowest ids first.
func (h *Hierarchy) walkDown(node Node, bound option.Option[int], limits Limits, visit func(Node) (bool, error)) error {
	visited := map[int64]struct{}{node.ID: {}}
	frontier := []int64{node.ID}
	for distance := 1; len(frontier) > 0; distance++ {
		if maxDepth, ok := bound.Get(); ok && distance > maxDepth {
			return nil
		}
		var next []int64
		for _, id := range frontier {
			for _, childID := range h.children[id] {
				if err := h.checkStep(visited, childID, distance, limits); err != nil {
					return err
				}
				stop, err := visit(h.nodes[childID])
				if err != nil || stop {
					return err
				}
				next = append(next, childID)
			}
		}
		frontier = next
	}
	return nil
}

func (h *Hierarchy) checkStep(visited map[int64]struct{}, id int64, distance int, limits Limits) error {
	limit, bounded := limits.MaxRecursionDepth.Get()
	if bounded && distance > limit {
		return errors.Wrapf(query.ErrDepthLimitExceeded, "object %d is more than %d levels away", id, limit)
	}
	if _, seen := visited[id]; seen && !bounded {
		return errors.Wrapf(query.ErrHierarchyCycle, "object %d reached twice", id)
	}
	visited[id] = struct{}{}
	return nil
}

func contains(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
