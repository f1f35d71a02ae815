package facet

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/fieldpath"
	spec "github.com/krew-solutions/ascetic-props-go/asceticprops/specification/domain"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/specification/domain/operators"
)

type wildcardScope struct {
	collection spec.Scope
	alias      string
}

// sqlVisitor renders a predicate over the props of one object alias.
// Every literal becomes a placeholder bound through a slot.
type sqlVisitor struct {
	c                 *compilation
	schemeID          int64
	object            string
	source            int
	next              int
	sql               string
	precedence        int
	precedenceMapping map[string]int
	wildcards         []wildcardScope
}

func newSQLVisitor(c *compilation, schemeID int64, object string, source int) *sqlVisitor {
	v := &sqlVisitor{
		c:                 c,
		schemeID:          schemeID,
		object:            object,
		source:            source,
		precedenceMapping: make(map[string]int),
	}
	// https://www.postgresql.org/docs/14/sql-syntax-lexical.html#SQL-PRECEDENCE-TABLE
	v.setPrecedence(120, "* LEFT", "/ LEFT", "% LEFT")
	v.setPrecedence(110, "+ LEFT", "- LEFT")
	v.setPrecedence(100, "(any other operator) LEFT")
	v.setPrecedence(90, "IN NON", "LIKE NON")
	v.setPrecedence(80, "< NON", "> NON", "= NON", "<= NON", ">= NON", "!= NON")
	v.setPrecedence(70, "IS NON", "IS NULL NON", "IS NOT NULL NON")
	v.setPrecedence(60, "NOT RIGHT")
	v.setPrecedence(50, "AND LEFT")
	v.setPrecedence(40, "OR LEFT")
	return v
}

func (v *sqlVisitor) setPrecedence(precedence int, operators ...string) {
	for _, op := range operators {
		v.precedenceMapping[op] = precedence
	}
}

func (v *sqlVisitor) visit(n spec.Operable, callable func() error) error {
	key := fmt.Sprintf("%s %s", n.Operator(), n.Associativity())
	outerPrecedence := v.precedence
	innerPrecedence, ok := v.precedenceMapping[key]
	if !ok {
		innerPrecedence = v.precedenceMapping["(any other operator) LEFT"]
	}
	v.precedence = innerPrecedence
	if innerPrecedence < outerPrecedence {
		v.sql += "("
	}
	if err := callable(); err != nil {
		return err
	}
	if innerPrecedence < outerPrecedence {
		v.sql += ")"
	}
	v.precedence = outerPrecedence
	return nil
}

func (v *sqlVisitor) VisitGlobalScope(spec.GlobalScopeNode) error { return nil }
func (v *sqlVisitor) VisitObject(spec.ObjectNode) error           { return nil }
func (v *sqlVisitor) VisitItem(spec.ItemNode) error               { return nil }

func (v *sqlVisitor) VisitCollection(n spec.CollectionNode) error {
	path := spec.ElementPath(n.Parent(), "@")
	if strings.HasPrefix(path, "@") {
		return errors.Wrapf(ErrUnsupportedExpression, "nested wildcard over %s", path)
	}
	fi, err := v.c.lookup(v.schemeID, path)
	if err != nil {
		return err
	}
	if fi.Selector.Kind != fieldpath.SelectorAll {
		return errors.Wrapf(ErrUnsupportedExpression, "wildcard over %s, which is not an array", path)
	}
	alias := v.c.alias(inflection.Singular(strings.ToLower(collectionName(n.Parent()))))

	v.sql += fmt.Sprintf(
		"EXISTS (SELECT 1 FROM %s %s WHERE %s._id_object = %s._id AND %s._id_structure = %d AND ",
		v.c.builder.valuesTable, alias, alias, v.object, alias, fi.SelectorStructureID,
	)
	outerPrecedence := v.precedence
	v.precedence = v.precedenceMapping["AND LEFT"]
	v.wildcards = append(v.wildcards, wildcardScope{collection: n.Parent(), alias: alias})
	err = n.Predicate().Accept(v)
	v.wildcards = v.wildcards[:len(v.wildcards)-1]
	v.precedence = outerPrecedence
	if err != nil {
		return err
	}
	v.sql += ")"
	return nil
}

func collectionName(s spec.Scope) string {
	name := s.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}

func (v *sqlVisitor) VisitField(n spec.FieldNode) error {
	path := spec.FieldPath(n)
	if !strings.HasPrefix(path, "@") {
		expr, err := v.c.fieldExpr(v.schemeID, v.object, path)
		if err != nil {
			return err
		}
		v.sql += expr
		return nil
	}
	if len(v.wildcards) == 0 {
		return errors.Wrapf(ErrUnsupportedExpression, "item field %s outside a wildcard", path)
	}
	scope := v.wildcards[len(v.wildcards)-1]
	fi, err := v.c.lookup(v.schemeID, spec.ElementPath(scope.collection, path))
	if err != nil {
		return err
	}
	v.sql += v.c.elementFieldExpr(scope.alias, fi)
	return nil
}

func (v *sqlVisitor) VisitValue(spec.ValueNode) error {
	v.addParam()
	return nil
}

func (v *sqlVisitor) VisitVariable(spec.VariableNode) error {
	v.addParam()
	return nil
}

func (v *sqlVisitor) addParam() {
	index, source := v.next, v.source
	v.next++
	v.sql += v.c.param(func(b *binding) any {
		return b.values(source)[index]
	})
}

func (v *sqlVisitor) VisitPrefix(n spec.PrefixNode) error {
	return v.visit(n, func() error {
		v.sql += fmt.Sprintf("%s ", n.Operator())
		return n.Operand().Accept(v)
	})
}

func (v *sqlVisitor) VisitInfix(n spec.InfixNode) error {
	return v.visit(n, func() error {
		if err := n.Left().Accept(v); err != nil {
			return err
		}
		switch n.Operator() {
		case operators.OperatorIn:
			v.sql += " = ANY("
			if err := n.Right().Accept(v); err != nil {
				return err
			}
			v.sql += ")"
			return nil
		case operators.OperatorIs:
			v.sql += " IS NOT DISTINCT FROM "
		default:
			v.sql += fmt.Sprintf(" %s ", n.Operator())
		}
		return n.Right().Accept(v)
	})
}

func (v *sqlVisitor) VisitPostfix(n spec.PostfixNode) error {
	return v.visit(n, func() error {
		if err := n.Operand().Accept(v); err != nil {
			return err
		}
		v.sql += fmt.Sprintf(" %s", n.Operator())
		return nil
	})
}
