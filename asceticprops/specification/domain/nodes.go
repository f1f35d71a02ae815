package specification

import (
	"strings"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/specification/domain/operators"
)

type Associativity string

const (
	LeftAssociative  Associativity = "LEFT"
	RightAssociative Associativity = "RIGHT"
	NonAssociative   Associativity = "NON"
)

type Operable interface {
	Associativity() Associativity
	Operator() operators.Operator
}

type Visitable interface {
	Accept(Visitor) error
}

type Visitor interface {
	VisitGlobalScope(GlobalScopeNode) error
	VisitObject(ObjectNode) error
	VisitCollection(CollectionNode) error
	VisitItem(ItemNode) error
	VisitField(FieldNode) error
	VisitValue(ValueNode) error
	VisitVariable(VariableNode) error
	VisitPrefix(PrefixNode) error
	VisitInfix(InfixNode) error
	VisitPostfix(PostfixNode) error
}

func Value(value any) ValueNode {
	return ValueNode{value: value}
}

// ValueNode is a literal written into the predicate.
type ValueNode struct {
	value any
}

func (n ValueNode) Value() any {
	return n.value
}

func (n ValueNode) Accept(v Visitor) error {
	return v.VisitValue(n)
}

// Var captures a value bound outside the predicate (a request parameter,
// a loop variable). It evaluates like a literal but is never part of the
// predicate's shape.
func Var(name string, value any) VariableNode {
	return VariableNode{name: name, value: value}
}

type VariableNode struct {
	name  string
	value any
}

func (n VariableNode) Name() string {
	return n.name
}

func (n VariableNode) Value() any {
	return n.value
}

func (n VariableNode) Accept(v Visitor) error {
	return v.VisitVariable(n)
}

func Not(operand Visitable) PrefixNode {
	return PrefixNode{
		operator:      operators.OperatorNot,
		operand:       operand,
		associativity: RightAssociative,
	}
}

type PrefixNode struct {
	operator      operators.Operator
	operand       Visitable
	associativity Associativity
}

func (n PrefixNode) Operand() Visitable {
	return n.operand
}
func (n PrefixNode) Operator() operators.Operator {
	return n.operator
}
func (n PrefixNode) Associativity() Associativity {
	return n.associativity
}
func (n PrefixNode) Accept(v Visitor) error {
	return v.VisitPrefix(n)
}

func comparison(left Visitable, op operators.Operator, right Visitable) InfixNode {
	return NewInfixNode(left, op, right, NonAssociative)
}

func arithmetic(left Visitable, op operators.Operator, right Visitable) InfixNode {
	return NewInfixNode(left, op, right, LeftAssociative)
}

func Equal(left, right Visitable) InfixNode {
	return comparison(left, operators.OperatorEq, right)
}

func NotEqual(left, right Visitable) InfixNode {
	return comparison(left, operators.OperatorNe, right)
}

func GreaterThan(left, right Visitable) InfixNode {
	return comparison(left, operators.OperatorGt, right)
}

func GreaterThanEqual(left, right Visitable) InfixNode {
	return comparison(left, operators.OperatorGte, right)
}

func LessThan(left, right Visitable) InfixNode {
	return comparison(left, operators.OperatorLt, right)
}

func LessThanEqual(left, right Visitable) InfixNode {
	return comparison(left, operators.OperatorLte, right)
}

func Is(left, right Visitable) InfixNode {
	return comparison(left, operators.OperatorIs, right)
}

// Like matches a string against a SQL pattern (% and _ wildcards).
func Like(left, pattern Visitable) InfixNode {
	return comparison(left, operators.OperatorLike, pattern)
}

// In tests membership of left in a slice-valued right operand.
func In(left, list Visitable) InfixNode {
	return comparison(left, operators.OperatorIn, list)
}

func And(left Visitable, rights ...Visitable) InfixNode {
	left, right := foldRights(And, left, rights...)
	return NewInfixNode(left, operators.OperatorAnd, right, LeftAssociative)
}

func Or(left Visitable, rights ...Visitable) InfixNode {
	left, right := foldRights(Or, left, rights...)
	return NewInfixNode(left, operators.OperatorOr, right, LeftAssociative)
}

func Add(left, right Visitable) InfixNode {
	return arithmetic(left, operators.OperatorAdd, right)
}

func Sub(left, right Visitable) InfixNode {
	return arithmetic(left, operators.OperatorSub, right)
}

func Mul(left, right Visitable) InfixNode {
	return arithmetic(left, operators.OperatorMul, right)
}

func Div(left, right Visitable) InfixNode {
	return arithmetic(left, operators.OperatorDiv, right)
}

func Mod(left, right Visitable) InfixNode {
	return arithmetic(left, operators.OperatorMod, right)
}

func foldRights(
	aCallable func(Visitable, ...Visitable) InfixNode,
	aLeft Visitable,
	aRights ...Visitable,
) (left, right Visitable) {
	for len(aRights) > 1 {
		aLeft = aCallable(aLeft, aRights[0])
		aRights = aRights[1:]
	}
	return aLeft, aRights[0]
}

func NewInfixNode(left Visitable, operator operators.Operator, right Visitable, associativity Associativity) InfixNode {
	return InfixNode{
		left:          left,
		operator:      operator,
		right:         right,
		associativity: associativity,
	}
}

type InfixNode struct {
	left          Visitable
	operator      operators.Operator
	right         Visitable
	associativity Associativity
}

func (n InfixNode) Left() Visitable {
	return n.left
}

func (n InfixNode) Operator() operators.Operator {
	return n.operator
}

func (n InfixNode) Right() Visitable {
	return n.right
}

func (n InfixNode) Associativity() Associativity {
	return n.associativity
}

func (n InfixNode) Accept(v Visitor) error {
	return v.VisitInfix(n)
}

func IsNull(operand Visitable) PostfixNode {
	return PostfixNode{
		operand:       operand,
		operator:      operators.OperatorIsNull,
		associativity: NonAssociative,
	}
}

func IsNotNull(operand Visitable) PostfixNode {
	return PostfixNode{
		operand:       operand,
		operator:      operators.OperatorIsNotNull,
		associativity: NonAssociative,
	}
}

type PostfixNode struct {
	operand       Visitable
	operator      operators.Operator
	associativity Associativity
}

func (n PostfixNode) Operand() Visitable {
	return n.operand
}

func (n PostfixNode) Operator() operators.Operator {
	return n.operator
}

func (n PostfixNode) Associativity() Associativity {
	return n.associativity
}

func (n PostfixNode) Accept(v Visitor) error {
	return v.VisitPostfix(n)
}

// Scope is anything a field can hang off: the global scope, an object
// field, a collection item.
type Scope interface {
	Visitable
	Parent() Scope
	Name() string
	IsRoot() bool
}

func GlobalScope() GlobalScopeNode {
	return GlobalScopeNode{}
}

type GlobalScopeNode struct{}

func (n GlobalScopeNode) Parent() Scope {
	return n
}

func (n GlobalScopeNode) Name() string {
	return "Empty"
}

func (n GlobalScopeNode) IsRoot() bool {
	return true
}

func (n GlobalScopeNode) Accept(v Visitor) error {
	return v.VisitGlobalScope(n)
}

func Object(parent Scope, name string) ObjectNode {
	return ObjectNode{
		parent: parent,
		name:   name,
	}
}

// Entry addresses one keyed entry of a dictionary field: PhoneBook[home].
func Entry(parent Scope, name, key string) ObjectNode {
	return Object(parent, name+"["+key+"]")
}

// Element addresses every element of an array field: Roles[].
func Element(parent Scope, name string) ObjectNode {
	return Object(parent, name+"[]")
}

type ObjectNode struct {
	parent Scope
	name   string
}

func (n ObjectNode) Parent() Scope {
	return n.parent
}

func (n ObjectNode) Name() string {
	return n.name
}

func (n ObjectNode) IsRoot() bool {
	return false
}

func (n ObjectNode) Accept(v Visitor) error {
	return v.VisitObject(n)
}

// Wildcard is true when at least one item of the collection satisfies predicate.
// Fields of the item are addressed through Item().
func Wildcard(parent Scope, predicate Visitable) CollectionNode {
	return CollectionNode{
		parent:    parent,
		name:      "*",
		predicate: predicate,
	}
}

type CollectionNode struct {
	parent    Scope
	name      string
	predicate Visitable
}

func (n CollectionNode) Parent() Scope {
	return n.parent
}

func (n CollectionNode) Name() string {
	return n.name
}

func (n CollectionNode) IsRoot() bool {
	return false
}

func (n CollectionNode) Predicate() Visitable {
	return n.predicate
}

func (n CollectionNode) Accept(v Visitor) error {
	return v.VisitCollection(n)
}

func Item() ItemNode {
	return ItemNode{}
}

type ItemNode struct{}

func (n ItemNode) Parent() Scope {
	return GlobalScope()
}

func (n ItemNode) Name() string {
	return "@"
}

func (n ItemNode) IsRoot() bool {
	return true
}

func (n ItemNode) Accept(v Visitor) error {
	return v.VisitItem(n)
}

func Field(object Scope, name string) FieldNode {
	return FieldNode{
		object: object,
		name:   name,
	}
}

// Path builds a field from a dotted path such as "AddressBook[work].City".
// Dots inside brackets do not split segments.
func Path(path string) FieldNode {
	segments := SplitPath(path)
	var scope Scope = GlobalScope()
	for _, segment := range segments[:len(segments)-1] {
		scope = Object(scope, segment)
	}
	return Field(scope, segments[len(segments)-1])
}

// SplitPath splits a dotted path into segments, keeping bracketed selectors
// with their segment.
func SplitPath(path string) []string {
	var segments []string
	depth, start := 0, 0
	for i, r := range path {
		switch r {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case '.':
			if depth == 0 {
				segments = append(segments, path[start:i])
				start = i + 1
			}
		}
	}
	return append(segments, path[start:])
}

type FieldNode struct {
	object Scope
	name   string
}

func (n FieldNode) Name() string {
	return n.name
}

func (n FieldNode) Object() Scope {
	return n.object
}

func (n FieldNode) Accept(v Visitor) error {
	return v.VisitField(n)
}

// ExtractFieldPath returns the segments from the outermost scope to the field.
// Fields of a collection item start with "@".
func ExtractFieldPath(n FieldNode) []string {
	path := []string{n.Name()}
	var obj Scope = n.Object()
	for !obj.IsRoot() {
		path = append([]string{obj.Name()}, path...)
		obj = obj.Parent()
	}
	if _, isItem := obj.(ItemNode); isItem {
		path = append([]string{obj.Name()}, path...)
	}
	return path
}

func FieldPath(n FieldNode) string {
	return strings.Join(ExtractFieldPath(n), ".")
}

// ScopePath renders the path of a scope chain, e.g. "Address" or "AddressBook[work]".
func ScopePath(s Scope) string {
	var parts []string
	for !s.IsRoot() {
		parts = append([]string{s.Name()}, parts...)
		s = s.Parent()
	}
	if _, isItem := s.(ItemNode); isItem {
		parts = append([]string{s.Name()}, parts...)
	}
	return strings.Join(parts, ".")
}
