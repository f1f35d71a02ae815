package specification

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/specification/domain/operators"
)

func NewEvaluateVisitor(context Context, registry *operators.OperatorRegistry) *EvaluateVisitor {
	return &EvaluateVisitor{
		Context:  context,
		registry: registry,
	}
}

// EvaluateVisitor evaluates a predicate against in-memory props.
type EvaluateVisitor struct {
	currentValue any
	currentItem  Context
	stack        []Context
	registry     *operators.OperatorRegistry
	Context
}

func (v *EvaluateVisitor) push(ctx Context) {
	v.stack = append(v.stack, v.Context)
	v.Context = ctx
}

func (v *EvaluateVisitor) pop() {
	v.Context = v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
}

func (v EvaluateVisitor) CurrentValue() any {
	return v.currentValue
}

func (v *EvaluateVisitor) SetCurrentValue(val any) {
	v.currentValue = val
}

func (v *EvaluateVisitor) VisitGlobalScope(n GlobalScopeNode) error {
	v.push(v.Context)
	return nil
}

func (v *EvaluateVisitor) VisitObject(n ObjectNode) error {
	err := n.Parent().Accept(v)
	if err != nil {
		return err
	}
	obj, err := v.Context.Get(n.Name())
	v.pop()
	if err != nil {
		return err
	}
	v.push(asContext(obj))
	return nil
}

func (v *EvaluateVisitor) VisitCollection(n CollectionNode) error {
	err := n.Parent().Accept(v)
	if err != nil {
		return err
	}
	items, err := v.Context.Get(n.Name())
	v.pop()
	if err != nil {
		return err
	}
	if items == nil {
		v.SetCurrentValue(false)
		return nil
	}
	itemsTyped, ok := items.([]Context)
	if !ok {
		return errors.New("wildcard parent is not a collection")
	}
	outerItem := v.currentItem
	var result any = false
	for i := range itemsTyped {
		v.currentItem = itemsTyped[i]
		err := n.Predicate().Accept(v)
		if err != nil {
			return err
		}
		result, err = v.registry.ExecBinary(result, operators.OperatorOr, v.CurrentValue())
		if err != nil {
			return err
		}
	}
	v.currentItem = outerItem
	v.SetCurrentValue(result)
	return nil
}

func (v *EvaluateVisitor) VisitItem(n ItemNode) error {
	v.push(v.currentItem)
	return nil
}

func (v *EvaluateVisitor) VisitField(n FieldNode) error {
	err := n.Object().Accept(v)
	if err != nil {
		return err
	}
	value, err := v.Context.Get(n.Name())
	v.pop()
	if err != nil {
		return err
	}
	v.SetCurrentValue(value)
	return nil
}

func (v *EvaluateVisitor) VisitValue(n ValueNode) error {
	v.SetCurrentValue(n.Value())
	return nil
}

func (v *EvaluateVisitor) VisitVariable(n VariableNode) error {
	v.SetCurrentValue(n.Value())
	return nil
}

func (v *EvaluateVisitor) VisitPrefix(n PrefixNode) error {
	err := n.Operand().Accept(v)
	if err != nil {
		return err
	}
	result, err := v.registry.ExecUnary(n.Operator(), v.CurrentValue())
	if err != nil {
		return err
	}
	v.SetCurrentValue(result)
	return nil
}

func (v *EvaluateVisitor) VisitPostfix(n PostfixNode) error {
	err := n.Operand().Accept(v)
	if err != nil {
		return err
	}
	result, err := v.registry.ExecUnary(n.Operator(), v.CurrentValue())
	if err != nil {
		return err
	}
	v.SetCurrentValue(result)
	return nil
}

func (v *EvaluateVisitor) VisitInfix(n InfixNode) error {
	err := n.Left().Accept(v)
	if err != nil {
		return err
	}
	left := v.CurrentValue()
	err = n.Right().Accept(v)
	if err != nil {
		return err
	}
	right := v.CurrentValue()
	result, err := v.registry.ExecBinary(left, n.Operator(), right)
	if err != nil {
		return err
	}
	v.SetCurrentValue(result)
	return nil
}

// Result treats NULL as false, the way a WHERE clause does.
func (v EvaluateVisitor) Result() (bool, error) {
	result := v.CurrentValue()
	if result == nil {
		return false, nil
	}
	resultTyped, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("the result is not a bool but %T", result)
	}
	return resultTyped, nil
}

// Evaluate runs exp against ctx with the default operator registry.
func Evaluate(ctx Context, exp Visitable) (bool, error) {
	v := NewEvaluateVisitor(ctx, defaultRegistry)
	if err := exp.Accept(v); err != nil {
		return false, err
	}
	return v.Result()
}

var defaultRegistry = operators.NewDefaultRegistry()

type Context interface {
	Get(string) (any, error)
}

type CollectionContext struct {
	items []Context
}

func NewCollectionContext(items []Context) CollectionContext {
	return CollectionContext{items: items}
}

func (c CollectionContext) Get(slice string) (any, error) {
	if slice == "*" {
		return c.items, nil
	}
	return nil, fmt.Errorf("unsupported slice type \"%s\"", slice)
}

type nullContext struct{}

func (nullContext) Get(string) (any, error) {
	return nil, nil
}

// DictContext exposes a props map to the evaluator. Missing keys read as
// NULL. Segment names may carry a selector: "PhoneBook[home]", "Tags[2]",
// "Roles[]".
type DictContext map[string]any

func (c DictContext) Get(segment string) (any, error) {
	name, selector, hasSelector := cutSelector(segment)
	value := c[name]
	if !hasSelector || value == nil {
		return wrap(value), nil
	}
	if selector == "" {
		return wrap(value), nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		entry := rv.MapIndex(reflect.ValueOf(selector))
		if !entry.IsValid() {
			return nil, nil
		}
		return wrap(entry.Interface()), nil
	case reflect.Slice, reflect.Array:
		index, err := strconv.Atoi(selector)
		if err != nil {
			return nil, fmt.Errorf("field %q is an array, selector %q is not an index", name, selector)
		}
		if index < 0 || index >= rv.Len() {
			return nil, nil
		}
		return wrap(rv.Index(index).Interface()), nil
	}
	return nil, fmt.Errorf("field %q is neither a dictionary nor an array", name)
}

func cutSelector(segment string) (name, selector string, ok bool) {
	open := strings.IndexByte(segment, '[')
	if open < 0 || !strings.HasSuffix(segment, "]") {
		return segment, "", false
	}
	return segment[:open], strings.Trim(segment[open+1:len(segment)-1], `'"`), true
}

func wrap(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return DictContext(typed)
	case []map[string]any:
		items := make([]Context, len(typed))
		for i := range typed {
			items[i] = DictContext(typed[i])
		}
		return NewCollectionContext(items)
	case []any:
		items := make([]Context, 0, len(typed))
		for _, item := range typed {
			ctx, ok := item.(map[string]any)
			if !ok {
				return value
			}
			items = append(items, DictContext(ctx))
		}
		return NewCollectionContext(items)
	}
	return value
}

func asContext(value any) Context {
	if value == nil {
		return nullContext{}
	}
	if ctx, ok := value.(Context); ok {
		return ctx
	}
	return nullContext{}
}
