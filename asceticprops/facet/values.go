package facet

import (
	spec "github.com/krew-solutions/ascetic-props-go/asceticprops/specification/domain"
)

// CollectValues returns the literal and captured values of exp in visit
// order. A facet document refers to them as {"$p": n}, 1-based.
func CollectValues(exp spec.Visitable) []any {
	if exp == nil {
		return nil
	}
	c := &valueCollector{}
	_ = exp.Accept(c)
	return c.values
}

type valueCollector struct {
	values []any
}

func (c *valueCollector) VisitGlobalScope(spec.GlobalScopeNode) error { return nil }
func (c *valueCollector) VisitObject(spec.ObjectNode) error           { return nil }
func (c *valueCollector) VisitItem(spec.ItemNode) error               { return nil }
func (c *valueCollector) VisitField(spec.FieldNode) error             { return nil }

func (c *valueCollector) VisitCollection(n spec.CollectionNode) error {
	return n.Predicate().Accept(c)
}

func (c *valueCollector) VisitValue(n spec.ValueNode) error {
	c.values = append(c.values, n.Value())
	return nil
}

func (c *valueCollector) VisitVariable(n spec.VariableNode) error {
	c.values = append(c.values, n.Value())
	return nil
}

func (c *valueCollector) VisitPrefix(n spec.PrefixNode) error {
	return n.Operand().Accept(c)
}

func (c *valueCollector) VisitInfix(n spec.InfixNode) error {
	if err := n.Left().Accept(c); err != nil {
		return err
	}
	return n.Right().Accept(c)
}

func (c *valueCollector) VisitPostfix(n spec.PostfixNode) error {
	return n.Operand().Accept(c)
}
