package facet

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/option"
	spec "github.com/krew-solutions/ascetic-props-go/asceticprops/specification/domain"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/specification/domain/operators"
)

var facetOperators = map[operators.Operator]string{
	operators.OperatorEq:   "$eq",
	operators.OperatorNe:   "$ne",
	operators.OperatorGt:   "$gt",
	operators.OperatorGte:  "$gte",
	operators.OperatorLt:   "$lt",
	operators.OperatorLte:  "$lte",
	operators.OperatorLike: "$like",
	operators.OperatorIn:   "$in",
	operators.OperatorIs:   "$is",
}

// mirrored holds the operator to use when the literal is on the left.
var mirrored = map[operators.Operator]operators.Operator{
	operators.OperatorEq:  operators.OperatorEq,
	operators.OperatorNe:  operators.OperatorNe,
	operators.OperatorGt:  operators.OperatorLt,
	operators.OperatorGte: operators.OperatorLte,
	operators.OperatorLt:  operators.OperatorGt,
	operators.OperatorLte: operators.OperatorGte,
	operators.OperatorIs:  operators.OperatorIs,
}

// JSONBuilder renders facet documents. Literal values never appear in the
// output; they are referenced as {"$p": n} in CollectValues order, so equal
// input always yields identical bytes.
type JSONBuilder struct{}

func NewJSONBuilder() *JSONBuilder {
	return &JSONBuilder{}
}

func (b *JSONBuilder) BuildFacetFilters(expr spec.Visitable) (json.RawMessage, error) {
	if expr == nil {
		return json.RawMessage(`{}`), nil
	}
	v := &facetVisitor{}
	if err := expr.Accept(v); err != nil {
		return nil, err
	}
	if len(v.stack) != 1 {
		return nil, errors.Wrap(ErrUnsupportedExpression, "expected a single condition")
	}
	doc, err := v.pop().document()
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

type orderEntry struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

func (b *JSONBuilder) BuildOrderBy(orderings []spec.Ordering) (json.RawMessage, error) {
	entries := make([]orderEntry, len(orderings))
	for i, o := range orderings {
		entries[i] = orderEntry{Field: o.Path(), Direction: o.Direction.String()}
	}
	return json.Marshal(entries)
}

func (b *JSONBuilder) BuildQueryParameters(limit, offset option.Option[int]) QueryParameters {
	return QueryParameters{Limit: limit, Offset: offset}
}

type termKind int

const (
	docTerm termKind = iota
	fieldTerm
	paramTerm
)

type term struct {
	kind  termKind
	doc   map[string]any
	field string
	param int
}

func (t term) document() (map[string]any, error) {
	if t.kind != docTerm {
		return nil, errors.Wrap(ErrUnsupportedExpression, "expected a condition")
	}
	return t.doc, nil
}

type facetVisitor struct {
	stack  []term
	params int
	// depth of enclosing wildcards; item paths are relative inside them
	wildcards int
}

func (v *facetVisitor) push(t term) {
	v.stack = append(v.stack, t)
}

func (v *facetVisitor) pop() term {
	t := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	return t
}

func (v *facetVisitor) VisitGlobalScope(spec.GlobalScopeNode) error { return nil }
func (v *facetVisitor) VisitObject(spec.ObjectNode) error           { return nil }
func (v *facetVisitor) VisitItem(spec.ItemNode) error               { return nil }

func (v *facetVisitor) VisitCollection(n spec.CollectionNode) error {
	path := v.relative(spec.ElementPath(n.Parent(), "@"))
	v.wildcards++
	err := n.Predicate().Accept(v)
	v.wildcards--
	if err != nil {
		return err
	}
	doc, err := v.pop().document()
	if err != nil {
		return err
	}
	v.push(term{kind: docTerm, doc: map[string]any{path: map[string]any{"$elemMatch": doc}}})
	return nil
}

func (v *facetVisitor) VisitField(n spec.FieldNode) error {
	path := spec.FieldPath(n)
	if strings.HasPrefix(path, "@") && v.wildcards == 0 {
		return errors.Wrapf(ErrUnsupportedExpression, "item field %s outside a wildcard", path)
	}
	v.push(term{kind: fieldTerm, field: v.relative(path)})
	return nil
}

func (v *facetVisitor) relative(path string) string {
	if v.wildcards == 0 {
		return path
	}
	return strings.TrimPrefix(strings.TrimPrefix(path, "@"), ".")
}

func (v *facetVisitor) VisitValue(spec.ValueNode) error {
	v.addParam()
	return nil
}

func (v *facetVisitor) VisitVariable(spec.VariableNode) error {
	v.addParam()
	return nil
}

func (v *facetVisitor) addParam() {
	v.params++
	v.push(term{kind: paramTerm, param: v.params})
}

func (v *facetVisitor) VisitPrefix(n spec.PrefixNode) error {
	if n.Operator() != operators.OperatorNot {
		return errors.Wrapf(ErrUnsupportedExpression, "prefix operator %s", n.Operator())
	}
	if err := n.Operand().Accept(v); err != nil {
		return err
	}
	doc, err := v.pop().document()
	if err != nil {
		return err
	}
	v.push(term{kind: docTerm, doc: map[string]any{"$not": doc}})
	return nil
}

func (v *facetVisitor) VisitPostfix(n spec.PostfixNode) error {
	if err := n.Operand().Accept(v); err != nil {
		return err
	}
	operand := v.pop()
	if operand.kind != fieldTerm {
		return errors.Wrapf(ErrUnsupportedExpression, "%s on a non-field operand", n.Operator())
	}
	exists := n.Operator() == operators.OperatorIsNotNull
	v.push(term{kind: docTerm, doc: map[string]any{operand.field: map[string]any{"$exists": exists}}})
	return nil
}

func (v *facetVisitor) VisitInfix(n spec.InfixNode) error {
	if err := n.Left().Accept(v); err != nil {
		return err
	}
	if err := n.Right().Accept(v); err != nil {
		return err
	}
	right := v.pop()
	left := v.pop()

	op := n.Operator()
	if op == operators.OperatorAnd || op == operators.OperatorOr {
		return v.logical(op, left, right)
	}
	if _, ok := facetOperators[op]; !ok {
		return errors.Wrapf(ErrUnsupportedExpression, "operator %s", op)
	}
	if left.kind == paramTerm && right.kind == fieldTerm {
		flipped, ok := mirrored[op]
		if !ok {
			return errors.Wrapf(ErrUnsupportedExpression, "literal on the left of %s", op)
		}
		left, right, op = right, left, flipped
	}
	if left.kind != fieldTerm || right.kind != paramTerm {
		return errors.Wrapf(ErrUnsupportedExpression, "%s must compare a field with a value", op)
	}
	v.push(term{kind: docTerm, doc: map[string]any{
		left.field: map[string]any{facetOperators[op]: map[string]int{"$p": right.param}},
	}})
	return nil
}

func (v *facetVisitor) logical(op operators.Operator, left, right term) error {
	key := "$and"
	if op == operators.OperatorOr {
		key = "$or"
	}
	var items []any
	for _, t := range []term{left, right} {
		doc, err := t.document()
		if err != nil {
			return err
		}
		if nested, ok := doc[key].([]any); ok && len(doc) == 1 {
			items = append(items, nested...)
		} else {
			items = append(items, doc)
		}
	}
	v.push(term{kind: docTerm, doc: map[string]any{key: items}})
	return nil
}
