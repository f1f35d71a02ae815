// Package plancache derives structure-only keys from query expressions and
// caches compiled plans under them.
package plancache

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/query"
	spec "github.com/krew-solutions/ascetic-props-go/asceticprops/specification/domain"
)

// Placeholder tokens standing in for literal content.
const (
	VariableToken = "#P"
	NumberToken   = "#N"
	StringToken   = "#S"
	GuidToken     = "#G"
	TimeToken     = "#T"
	BytesToken    = "#B"

	NoFilter = "nofilter"
	NoOrder  = "noorder"
)

var uuidShape = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// BuildCacheKey returns "{schemeID}:{normalized expression}". Expressions of
// the same shape with different literal values share a key.
func BuildCacheKey(exp spec.Visitable, schemeID int64) string {
	return strconv.FormatInt(schemeID, 10) + ":" + Normalize(exp)
}

// BuildOrderedCacheKey returns "{schemeID}:{expression|nofilter}:{orderings|noorder}".
// Orderings keep their call order.
func BuildOrderedCacheKey(exp spec.Visitable, orderings []spec.Ordering, schemeID int64) string {
	filter := NoFilter
	if exp != nil {
		filter = Normalize(exp)
	}
	return strconv.FormatInt(schemeID, 10) + ":" + filter + ":" + NormalizeOrderings(orderings)
}

func NormalizeOrderings(orderings []spec.Ordering) string {
	if len(orderings) == 0 {
		return NoOrder
	}
	parts := make([]string, len(orderings))
	for i, o := range orderings {
		parts[i] = o.Path() + ":" + o.Direction.Marker()
	}
	return strings.Join(parts, ",")
}

// BuildQueryKey extends the ordered key with everything else that shapes a
// compiled tree query: scope, pagination, distinctness and tree filters.
func BuildQueryKey(tq *query.TreeQueryContext) string {
	var shape []string
	flag := func(set bool, name string) {
		if set {
			shape = append(shape, name)
		}
	}
	flag(tq.IsEmpty, "empty")
	flag(tq.RootObjectID.IsSome(), "root")
	flag(len(tq.ParentIDs) > 0, "parents")
	flag(tq.MaxDepth.IsSome(), "depth")
	flag(tq.MaxRecursionDepth.IsSome(), "recursion")
	flag(tq.Limit.IsSome(), "limit")
	flag(tq.Offset.IsSome(), "offset")
	flag(tq.Distinct, "distinct")
	flag(tq.UseRedbDistinct, "redb-distinct")
	if path, ok := tq.DistinctBy.Get(); ok {
		shape = append(shape, "distinct-by="+path)
	}
	if len(tq.TreeFilters) > 0 {
		filters := make([]string, len(tq.TreeFilters))
		for i, f := range tq.TreeFilters {
			filters[i] = normalizeTreeFilter(f)
		}
		shape = append(shape, "tree["+strings.Join(filters, ",")+"]")
	}
	key := BuildOrderedCacheKey(tq.Filter, tq.Orderings, tq.SchemeID)
	if len(shape) == 0 {
		return key
	}
	return key + "|" + strings.Join(shape, ";")
}

func normalizeTreeFilter(f query.TreeFilter) string {
	var args []string
	if f.Value != nil {
		args = append(args, classify(f.Value))
	}
	if f.MaxDepth.IsSome() {
		args = append(args, "d")
	}
	// The target scheme selects the structures a condition resolves
	// against, so it is part of the shape like the context scheme.
	if target, ok := f.TargetSchemeID.Get(); ok {
		args = append(args, fmt.Sprintf("t=%d", target))
	}
	switch c := f.Condition.(type) {
	case query.NativeCondition:
		args = append(args, "native")
	case query.PredicateCondition:
		args = append(args, Normalize(c.Predicate))
	}
	return f.Operator.String() + "(" + strings.Join(args, " ") + ")"
}

// Normalize renders the structure of exp with literals replaced by
// placeholder tokens. It never fails.
func Normalize(exp spec.Visitable) string {
	if exp == nil {
		return NoFilter
	}
	v := NewKeyVisitor()
	if err := exp.Accept(v); err != nil {
		return fmt.Sprintf("%#v", exp)
	}
	return v.Result()
}

type KeyVisitor struct {
	b strings.Builder
}

func NewKeyVisitor() *KeyVisitor {
	return &KeyVisitor{}
}

func (v *KeyVisitor) Result() string {
	return v.b.String()
}

func (v *KeyVisitor) VisitGlobalScope(n spec.GlobalScopeNode) error {
	return nil
}

func (v *KeyVisitor) VisitObject(n spec.ObjectNode) error {
	v.b.WriteString(spec.ScopePath(n))
	return nil
}

func (v *KeyVisitor) VisitItem(n spec.ItemNode) error {
	v.b.WriteString(n.Name())
	return nil
}

func (v *KeyVisitor) VisitCollection(n spec.CollectionNode) error {
	v.b.WriteString(spec.ScopePath(n.Parent()))
	v.b.WriteString("[*](")
	if err := n.Predicate().Accept(v); err != nil {
		return err
	}
	v.b.WriteString(")")
	return nil
}

func (v *KeyVisitor) VisitField(n spec.FieldNode) error {
	v.b.WriteString(spec.FieldPath(n))
	return nil
}

func (v *KeyVisitor) VisitValue(n spec.ValueNode) error {
	v.b.WriteString(classify(n.Value()))
	return nil
}

func (v *KeyVisitor) VisitVariable(n spec.VariableNode) error {
	v.b.WriteString(VariableToken)
	return nil
}

func (v *KeyVisitor) VisitPrefix(n spec.PrefixNode) error {
	v.b.WriteString(string(n.Operator()))
	v.b.WriteString("(")
	if err := n.Operand().Accept(v); err != nil {
		return err
	}
	v.b.WriteString(")")
	return nil
}

func (v *KeyVisitor) VisitInfix(n spec.InfixNode) error {
	v.b.WriteString("(")
	if err := n.Left().Accept(v); err != nil {
		return err
	}
	v.b.WriteString(" ")
	v.b.WriteString(string(n.Operator()))
	v.b.WriteString(" ")
	if err := n.Right().Accept(v); err != nil {
		return err
	}
	v.b.WriteString(")")
	return nil
}

func (v *KeyVisitor) VisitPostfix(n spec.PostfixNode) error {
	v.b.WriteString("(")
	if err := n.Operand().Accept(v); err != nil {
		return err
	}
	v.b.WriteString(" ")
	v.b.WriteString(string(n.Operator()))
	v.b.WriteString(")")
	return nil
}

// classify maps a literal to its placeholder token. Values with no token are
// printed as is, which only yields more distinct keys.
func classify(value any) string {
	switch typed := value.(type) {
	case nil:
		return "NULL"
	case string:
		if uuidShape.MatchString(typed) {
			return GuidToken
		}
		return StringToken
	case uuid.UUID:
		return GuidToken
	case time.Time:
		return TimeToken
	case []byte:
		return BytesToken
	case bool:
		return strconv.FormatBool(typed)
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return NumberToken
	case reflect.Slice, reflect.Array:
		if token, ok := classifyElements(rv); ok {
			return "[" + token + "]"
		}
	}
	return fmt.Sprint(value)
}

func classifyElements(rv reflect.Value) (string, bool) {
	if rv.Len() == 0 {
		return "", true
	}
	first := classify(rv.Index(0).Interface())
	for i := 1; i < rv.Len(); i++ {
		if classify(rv.Index(i).Interface()) != first {
			return "", false
		}
	}
	return first, true
}
