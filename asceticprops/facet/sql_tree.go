package facet

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/query"
)

func (c *compilation) treeFilter(i int, f query.TreeFilter) (string, error) {
	value := func(b *binding) any {
		return b.tq.TreeFilters[i].Value
	}
	objects := c.builder.objectsTable
	switch f.Operator {
	case query.IsRootOp:
		return "o._id_parent IS NULL", nil
	case query.IsLeafOp:
		child := c.alias("child")
		return fmt.Sprintf("NOT EXISTS (SELECT 1 FROM %s %s WHERE %s._id_parent = o._id)", objects, child, child), nil
	case query.ChildrenOfOp:
		return "o._id_parent = " + c.param(value), nil
	case query.LevelOp:
		up := c.alias("up")
		return fmt.Sprintf("(%s SELECT count(*) FROM %s) = %s", c.ancestors(up, i, false), up, c.param(value)), nil
	case query.DescendantsOfOp:
		up := c.alias("up")
		return fmt.Sprintf("EXISTS (%s SELECT 1 FROM %s WHERE %s._id = %s)", c.ancestors(up, i, true), up, up, c.param(value)), nil
	case query.HasAncestorOp:
		up := c.alias("up")
		return c.related(i, f, c.ancestors(up, i, true), up, c.alias("anc"))
	case query.HasDescendantOp:
		down := c.alias("down")
		return c.related(i, f, c.descendants(down, i), down, c.alias("desc"))
	}
	return "", errors.Wrapf(query.ErrMalformedTreeFilter, "unknown operator %d", int(f.Operator))
}

// guards bounds a recursive walk by the effective depth of filter i (when
// traverses is set) and by the context recursion limit.
func (c *compilation) guards(cte string, i int, traverses bool) []string {
	var guards []string
	if traverses && c.tq.EffectiveDepth(c.tq.TreeFilters[i]).IsSome() {
		guards = append(guards, cte+".depth < "+c.param(func(b *binding) any {
			return b.tq.EffectiveDepth(b.tq.TreeFilters[i]).UnwrapOr(0)
		}))
	}
	if c.tq.MaxRecursionDepth.IsSome() {
		guards = append(guards, cte+".depth < "+c.recursionLimit())
	}
	return guards
}

// ancestors walks up from o; depth 1 is the parent.
func (c *compilation) ancestors(cte string, i int, traverses bool) string {
	cond := ""
	if guards := c.guards(cte, i, traverses); len(guards) > 0 {
		cond = " AND " + strings.Join(guards, " AND ")
	}
	return fmt.Sprintf(
		"WITH RECURSIVE %[1]s(_id, depth) AS (SELECT o._id_parent, 1 WHERE o._id_parent IS NOT NULL UNION ALL SELECT p._id_parent, %[1]s.depth + 1 FROM %[2]s p JOIN %[1]s ON p._id = %[1]s._id WHERE p._id_parent IS NOT NULL%[3]s)",
		cte, c.builder.objectsTable, cond,
	)
}

// descendants walks down from o; depth 1 are the children.
func (c *compilation) descendants(cte string, i int) string {
	cond := ""
	if guards := c.guards(cte, i, true); len(guards) > 0 {
		cond = " WHERE " + strings.Join(guards, " AND ")
	}
	return fmt.Sprintf(
		"WITH RECURSIVE %[1]s(_id, depth) AS (SELECT k._id, 1 FROM %[2]s k WHERE k._id_parent = o._id UNION ALL SELECT k._id, %[1]s.depth + 1 FROM %[2]s k JOIN %[1]s ON k._id_parent = %[1]s._id%[3]s)",
		cte, c.builder.objectsTable, cond,
	)
}

// related matches when some object reached by the walk satisfies the target
// scheme and condition of filter i.
func (c *compilation) related(i int, f query.TreeFilter, cte, walk, rel string) (string, error) {
	var conds []string
	schemeID := c.tq.SchemeID
	if target, ok := f.TargetSchemeID.Get(); ok {
		schemeID = target
		conds = append(conds, fmt.Sprintf("%s._id_scheme = %d", rel, target))
	}
	switch cond := f.Condition.(type) {
	case query.PredicateCondition:
		v := newSQLVisitor(c, schemeID, rel, i)
		if err := cond.Predicate.Accept(v); err != nil {
			return "", err
		}
		conds = append(conds, "("+v.sql+")")
	case query.NativeCondition:
		conds = append(conds, fmt.Sprintf("%s(%s._id, %s::jsonb)", c.builder.nativeFunction, rel, c.param(func(b *binding) any {
			if native, ok := b.tq.TreeFilters[i].Condition.(query.NativeCondition); ok {
				return string(native.Payload)
			}
			return nil
		})))
	}
	where := "TRUE"
	if len(conds) > 0 {
		where = strings.Join(conds, " AND ")
	}
	return fmt.Sprintf(
		"EXISTS (%s SELECT 1 FROM %s JOIN %s %s ON %s._id = %s._id WHERE %s)",
		cte, walk, c.builder.objectsTable, rel, rel, walk, where,
	), nil
}

// subtree restricts o to the root object and everything below it.
func (c *compilation) subtree() string {
	sub := c.alias("sub")
	return fmt.Sprintf("o._id IN (%s SELECT %s._id FROM %s)", c.subtreeWalk(sub), sub, sub)
}

// subtreeWalk walks down from the root object; depth 0 is the root.
func (c *compilation) subtreeWalk(sub string) string {
	cond := ""
	if c.tq.MaxRecursionDepth.IsSome() {
		cond = " WHERE " + sub + ".depth < " + c.recursionLimit()
	}
	root := c.param(func(b *binding) any {
		return b.tq.RootObjectID.UnwrapOr(0)
	})
	return fmt.Sprintf(
		"WITH RECURSIVE %[1]s(_id, depth) AS (SELECT %[2]s::bigint, 0 UNION ALL SELECT k._id, %[1]s.depth + 1 FROM %[3]s k JOIN %[1]s ON k._id_parent = %[1]s._id%[4]s)",
		sub, root, c.builder.objectsTable, cond,
	)
}

func (c *compilation) recursionLimit() string {
	return c.param(func(b *binding) any {
		return b.tq.MaxRecursionDepth.UnwrapOr(0)
	})
}

// depthCheckSQL selects whether any walk of the plan is cut short by
// MaxRecursionDepth. Candidates are the objects in scheme that pass the
// filter and the parent scope.
func (c *compilation) depthCheckSQL() (string, error) {
	tq := c.tq
	if tq.MaxRecursionDepth.IsNothing() {
		return "", nil
	}
	var walks []string
	for i, f := range tq.TreeFilters {
		if cond := c.overflow(i, f); cond != "" {
			walks = append(walks, cond)
		}
	}
	var checks []string
	if len(walks) > 0 {
		where := []string{c.schemeCond()}
		if tq.Filter != nil {
			cond, err := c.filterCond()
			if err != nil {
				return "", err
			}
			where = append(where, cond)
		}
		if len(tq.ParentIDs) > 0 {
			where = append(where, c.parentsCond())
		}
		where = append(where, "("+strings.Join(walks, " OR ")+")")
		checks = append(checks, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM %s o WHERE %s)", c.builder.objectsTable, strings.Join(where, " AND "),
		))
	}
	if tq.RootObjectID.IsSome() {
		sub := c.alias("sub")
		next := c.alias("next")
		checks = append(checks, fmt.Sprintf(
			"EXISTS (%s SELECT 1 FROM %s JOIN %s %s ON %s._id_parent = %s._id WHERE %s.depth = %s)",
			c.subtreeWalk(sub), sub, c.builder.objectsTable, next, next, sub, sub, c.recursionLimit(),
		))
	}
	if len(checks) == 0 {
		return "", nil
	}
	return "SELECT " + strings.Join(checks, " OR "), nil
}

// overflow holds for o when the walk of tree filter i reaches the recursion
// limit with another step left inside its effective depth. Filters that walk
// no hierarchy yield "".
func (c *compilation) overflow(i int, f query.TreeFilter) string {
	switch f.Operator {
	case query.LevelOp:
		up := c.alias("up")
		return c.beyond(c.ancestors(up, i, false), up, i, false, true)
	case query.DescendantsOfOp, query.HasAncestorOp:
		up := c.alias("up")
		return c.beyond(c.ancestors(up, i, true), up, i, true, true)
	case query.HasDescendantOp:
		down := c.alias("down")
		return c.beyond(c.descendants(down, i), down, i, true, false)
	}
	return ""
}

func (c *compilation) beyond(walk, cte string, i int, traverses, upward bool) string {
	objects := c.builder.objectsTable
	next := c.alias("next")
	var join string
	if upward {
		at := c.alias("at")
		join = fmt.Sprintf("%[1]s %[2]s ON %[2]s._id = %[3]s._id JOIN %[1]s %[4]s ON %[4]s._id = %[2]s._id_parent",
			objects, at, cte, next)
	} else {
		join = fmt.Sprintf("%[1]s %[2]s ON %[2]s._id_parent = %[3]s._id", objects, next, cte)
	}
	conds := []string{cte + ".depth = " + c.recursionLimit()}
	if traverses && c.tq.EffectiveDepth(c.tq.TreeFilters[i]).IsSome() {
		conds = append(conds, cte+".depth < "+c.param(func(b *binding) any {
			return b.tq.EffectiveDepth(b.tq.TreeFilters[i]).UnwrapOr(0)
		}))
	}
	return fmt.Sprintf("EXISTS (%s SELECT 1 FROM %s JOIN %s WHERE %s)", walk, cte, join, strings.Join(conds, " AND "))
}
