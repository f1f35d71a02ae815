package operators

import (
	"fmt"
	"reflect"
)

type BinaryOp func(left, right any) (any, error)
type UnaryOp func(operand any) (any, error)

type binaryKey struct {
	left  reflect.Type
	op    Operator
	right reflect.Type
}

type unaryKey struct {
	op      Operator
	operand reflect.Type
}

// OperatorRegistry dispatches operators on the dynamic types of their operands.
type OperatorRegistry struct {
	binary map[binaryKey]BinaryOp
	unary  map[unaryKey]UnaryOp
}

func NewOperatorRegistry() *OperatorRegistry {
	return &OperatorRegistry{
		binary: make(map[binaryKey]BinaryOp),
		unary:  make(map[unaryKey]UnaryOp),
	}
}

func RegisterBinary[L, R any](reg *OperatorRegistry, op Operator, fn func(L, R) (any, error)) {
	var zeroL L
	var zeroR R
	key := binaryKey{
		left:  reflect.TypeOf(zeroL),
		op:    op,
		right: reflect.TypeOf(zeroR),
	}
	reg.binary[key] = func(left, right any) (any, error) {
		return fn(left.(L), right.(R))
	}
}

func RegisterUnary[T any](reg *OperatorRegistry, op Operator, fn func(T) (any, error)) {
	var zero T
	key := unaryKey{
		op:      op,
		operand: reflect.TypeOf(zero),
	}
	reg.unary[key] = func(operand any) (any, error) {
		return fn(operand.(T))
	}
}

// ExecBinary executes a binary operator with PostgreSQL NULL semantics.
func (r *OperatorRegistry) ExecBinary(left any, op Operator, right any) (any, error) {
	switch op {
	case OperatorAnd:
		return execAnd(left, right)
	case OperatorOr:
		return execOr(left, right)
	case OperatorIn:
		return r.execIn(left, right)
	}

	if left == nil || right == nil {
		return nil, nil
	}

	fn, ok := r.binary[binaryKey{left: reflect.TypeOf(left), op: op, right: reflect.TypeOf(right)}]
	if ok {
		return fn(left, right)
	}
	if l, r2, widened := widen(left, right); widened {
		if fn, ok := r.binary[binaryKey{left: reflect.TypeOf(l), op: op, right: reflect.TypeOf(r2)}]; ok {
			return fn(l, r2)
		}
	}
	return nil, fmt.Errorf("operator \"%s\" is not supported for %T and %T", op, left, right)
}

// widen brings two numeric operands of different kinds to a common type:
// int64 when both are integers, float64 otherwise.
func widen(left, right any) (any, any, bool) {
	lv, rv := reflect.ValueOf(left), reflect.ValueOf(right)
	if lv.Type() == rv.Type() {
		return nil, nil, false
	}
	lk, rk := numericKind(lv), numericKind(rv)
	if lk == notNumeric || rk == notNumeric {
		return nil, nil, false
	}
	if lk == integer && rk == integer {
		return toInt64(lv), toInt64(rv), true
	}
	return toFloat64(lv), toFloat64(rv), true
}

type kind int

const (
	notNumeric kind = iota
	integer
	float
)

func numericKind(v reflect.Value) kind {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return integer
	case reflect.Float32, reflect.Float64:
		return float
	}
	return notNumeric
}

func toInt64(v reflect.Value) int64 {
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return int64(v.Uint())
	}
	return v.Int()
}

func toFloat64(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return float64(v.Uint())
	}
	return float64(v.Int())
}

// ExecUnary executes a unary operator with PostgreSQL NULL semantics.
func (r *OperatorRegistry) ExecUnary(op Operator, operand any) (any, error) {
	if op == OperatorIsNull {
		return operand == nil, nil
	}
	if op == OperatorIsNotNull {
		return operand != nil, nil
	}
	if operand == nil {
		return nil, nil
	}

	fn, ok := r.unary[unaryKey{op: op, operand: reflect.TypeOf(operand)}]
	if !ok {
		return nil, fmt.Errorf("operator \"%s\" is not supported for %T", op, operand)
	}
	return fn(operand)
}

// execIn compares left with every element of the right-hand slice using "=".
// NULL IN (...) is NULL; a non-matching list containing NULL is NULL.
func (r *OperatorRegistry) execIn(left, right any) (any, error) {
	if left == nil || right == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(right)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("operator \"IN\" requires a slice, got %T", right)
	}
	sawNull := false
	for i := 0; i < rv.Len(); i++ {
		item := rv.Index(i).Interface()
		result, err := r.ExecBinary(left, OperatorEq, item)
		if err != nil {
			return nil, err
		}
		if result == nil {
			sawNull = true
			continue
		}
		if result.(bool) {
			return true, nil
		}
	}
	if sawNull {
		return nil, nil
	}
	return false, nil
}

// Three-valued logic: NULL AND FALSE = FALSE, NULL AND TRUE = NULL
func execAnd(left, right any) (any, error) {
	if left == nil {
		if val, ok := right.(bool); ok && !val {
			return false, nil
		}
		return nil, nil
	}
	if right == nil {
		if val, ok := left.(bool); ok && !val {
			return false, nil
		}
		return nil, nil
	}
	l, ok := left.(bool)
	if !ok {
		return nil, fmt.Errorf("operator \"AND\" requires bool, got %T", left)
	}
	r, ok := right.(bool)
	if !ok {
		return nil, fmt.Errorf("operator \"AND\" requires bool, got %T", right)
	}
	return l && r, nil
}

// Three-valued logic: NULL OR TRUE = TRUE, NULL OR FALSE = NULL
func execOr(left, right any) (any, error) {
	if left == nil {
		if val, ok := right.(bool); ok && val {
			return true, nil
		}
		return nil, nil
	}
	if right == nil {
		if val, ok := left.(bool); ok && val {
			return true, nil
		}
		return nil, nil
	}
	l, ok := left.(bool)
	if !ok {
		return nil, fmt.Errorf("operator \"OR\" requires bool, got %T", left)
	}
	r, ok := right.(bool)
	if !ok {
		return nil, fmt.Errorf("operator \"OR\" requires bool, got %T", right)
	}
	return l || r, nil
}
