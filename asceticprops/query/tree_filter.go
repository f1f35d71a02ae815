package query

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/option"
	spec "github.com/krew-solutions/ascetic-props-go/asceticprops/specification/domain"
)

type TreeFilterOperator int

const (
	HasAncestorOp TreeFilterOperator = iota + 1
	HasDescendantOp
	LevelOp
	IsRootOp
	IsLeafOp
	ChildrenOfOp
	DescendantsOfOp
)

var operatorNames = map[TreeFilterOperator]string{
	HasAncestorOp:   "HasAncestor",
	HasDescendantOp: "HasDescendant",
	LevelOp:         "Level",
	IsRootOp:        "IsRoot",
	IsLeafOp:        "IsLeaf",
	ChildrenOfOp:    "ChildrenOf",
	DescendantsOfOp: "DescendantsOf",
}

func (op TreeFilterOperator) String() string {
	if name, ok := operatorNames[op]; ok {
		return name
	}
	return fmt.Sprintf("TreeFilterOperator(%d)", int(op))
}

func ParseTreeFilterOperator(s string) (TreeFilterOperator, error) {
	for op, name := range operatorNames {
		if name == s {
			return op, nil
		}
	}
	return 0, errors.Wrapf(ErrMalformedTreeFilter, "unknown operator %q", s)
}

// Traverses reports whether the operator walks ancestor or descendant chains
// and therefore honors a depth bound.
func (op TreeFilterOperator) Traverses() bool {
	return op == HasAncestorOp || op == HasDescendantOp || op == DescendantsOfOp
}

// Polymorphic reports whether a target scheme may narrow the operator.
func (op TreeFilterOperator) Polymorphic() bool {
	return op == HasAncestorOp || op == HasDescendantOp
}

// Condition is the test applied to ancestors or descendants. It is one of
// nil, NativeCondition or PredicateCondition.
type Condition interface {
	isCondition()
}

// NativeCondition is evaluated by the storage backend itself. Payload is an
// opaque JSON document passed to the backend's tree condition function.
type NativeCondition struct {
	Payload json.RawMessage
}

func (NativeCondition) isCondition() {}

// PredicateCondition is evaluated against the props of the related object.
type PredicateCondition struct {
	Predicate spec.Visitable
}

func (PredicateCondition) isCondition() {}

// TreeFilter is one hierarchical predicate. Which fields are meaningful
// depends on Operator; use NewTreeFilter or the operator constructors.
type TreeFilter struct {
	Operator       TreeFilterOperator
	Value          any
	MaxDepth       option.Option[int]
	TargetSchemeID option.Option[int64]
	Condition      Condition
}

type TreeFilterOption func(*TreeFilter)

func WithValue(value any) TreeFilterOption {
	return func(f *TreeFilter) {
		f.Value = value
	}
}

func WithMaxDepth(depth int) TreeFilterOption {
	return func(f *TreeFilter) {
		f.MaxDepth = option.Some(depth)
	}
}

func WithTargetScheme(schemeID int64) TreeFilterOption {
	return func(f *TreeFilter) {
		f.TargetSchemeID = option.Some(schemeID)
	}
}

func WithNativeCondition(payload json.RawMessage) TreeFilterOption {
	return func(f *TreeFilter) {
		f.Condition = NativeCondition{Payload: payload}
	}
}

func WithPredicate(predicate spec.Visitable) TreeFilterOption {
	return func(f *TreeFilter) {
		if predicate == nil {
			f.Condition = nil
			return
		}
		f.Condition = PredicateCondition{Predicate: predicate}
	}
}

func NewTreeFilter(op TreeFilterOperator, opts ...TreeFilterOption) (TreeFilter, error) {
	f := TreeFilter{Operator: op}
	for _, opt := range opts {
		opt(&f)
	}
	if err := f.Validate(); err != nil {
		return TreeFilter{}, err
	}
	return f, nil
}

// HasAncestor matches objects with an ancestor satisfying predicate; a nil
// predicate matches any ancestor.
func HasAncestor(predicate spec.Visitable, opts ...TreeFilterOption) (TreeFilter, error) {
	return NewTreeFilter(HasAncestorOp, append([]TreeFilterOption{WithPredicate(predicate)}, opts...)...)
}

func HasDescendant(predicate spec.Visitable, opts ...TreeFilterOption) (TreeFilter, error) {
	return NewTreeFilter(HasDescendantOp, append([]TreeFilterOption{WithPredicate(predicate)}, opts...)...)
}

// Level matches objects at depth n; roots are at depth 0.
func Level(n int) (TreeFilter, error) {
	return NewTreeFilter(LevelOp, WithValue(n))
}

func IsRoot() TreeFilter {
	return TreeFilter{Operator: IsRootOp}
}

func IsLeaf() TreeFilter {
	return TreeFilter{Operator: IsLeafOp}
}

func ChildrenOf(id any) (TreeFilter, error) {
	return NewTreeFilter(ChildrenOfOp, WithValue(id))
}

func DescendantsOf(id any, opts ...TreeFilterOption) (TreeFilter, error) {
	return NewTreeFilter(DescendantsOfOp, append([]TreeFilterOption{WithValue(id)}, opts...)...)
}

// Validate reports every violation at once, wrapped in ErrMalformedTreeFilter.
func (f TreeFilter) Validate() error {
	var result *multierror.Error
	if _, ok := operatorNames[f.Operator]; !ok {
		result = multierror.Append(result, errors.Errorf("unknown operator %s", f.Operator))
		return &malformedError{errs: result}
	}
	switch f.Operator {
	case LevelOp:
		if n, ok := AsInt64(f.Value); !ok {
			result = multierror.Append(result, errors.Errorf("%s requires an integer value, got %T", f.Operator, f.Value))
		} else if n < 0 {
			result = multierror.Append(result, errors.Errorf("%s requires a non-negative value, got %d", f.Operator, n))
		}
	case ChildrenOfOp, DescendantsOfOp:
		if !IsObjectID(f.Value) {
			result = multierror.Append(result, errors.Errorf("%s requires an object id value, got %T", f.Operator, f.Value))
		}
	case IsRootOp, IsLeafOp, HasAncestorOp, HasDescendantOp:
		if f.Value != nil {
			result = multierror.Append(result, errors.Errorf("%s takes no value", f.Operator))
		}
	}
	if f.Condition != nil && !f.Operator.Polymorphic() {
		result = multierror.Append(result, errors.Errorf("%s takes no condition", f.Operator))
	}
	if f.TargetSchemeID.IsSome() && !f.Operator.Polymorphic() {
		result = multierror.Append(result, errors.Errorf("target scheme applies to HasAncestor and HasDescendant only, not %s", f.Operator))
	}
	if depth, ok := f.MaxDepth.Get(); ok {
		if !f.Operator.Traverses() {
			result = multierror.Append(result, errors.Errorf("max depth does not apply to %s", f.Operator))
		} else if depth < 1 {
			result = multierror.Append(result, errors.Errorf("max depth must be at least 1, got %d", depth))
		}
	}
	switch c := f.Condition.(type) {
	case PredicateCondition:
		if c.Predicate == nil {
			result = multierror.Append(result, errors.New("predicate condition without predicate"))
		}
	case NativeCondition:
		if !json.Valid(c.Payload) {
			result = multierror.Append(result, errors.New("native condition payload is not valid JSON"))
		}
	}
	if result == nil {
		return nil
	}
	return &malformedError{errs: result}
}

type malformedError struct {
	errs *multierror.Error
}

func (e *malformedError) Error() string {
	return ErrMalformedTreeFilter.Error() + ": " + e.errs.Error()
}

func (e *malformedError) Unwrap() []error {
	return append([]error{ErrMalformedTreeFilter}, e.errs.Errors...)
}

// AsInt64 widens any Go integer kind.
func AsInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	}
	return 0, false
}

// IsObjectID reports whether value can identify a stored object. Objects
// are keyed by bigint, so only integers qualify.
func IsObjectID(value any) bool {
	_, ok := AsInt64(value)
	return ok
}
