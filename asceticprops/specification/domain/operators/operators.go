package operators

type Operator string

const (
	// Comparison

	OperatorEq   Operator = "="
	OperatorGt   Operator = ">"
	OperatorLt   Operator = "<"
	OperatorGte  Operator = ">="
	OperatorLte  Operator = "<="
	OperatorNe   Operator = "!="
	OperatorIs   Operator = "IS"
	OperatorLike Operator = "LIKE"
	OperatorIn   Operator = "IN"

	// Logical

	OperatorAnd Operator = "AND"
	OperatorOr  Operator = "OR"
	OperatorNot Operator = "NOT"

	// Arithmetic

	OperatorAdd Operator = "+"
	OperatorSub Operator = "-"
	OperatorMul Operator = "*"
	OperatorDiv Operator = "/"
	OperatorMod Operator = "%"

	// Postfix

	OperatorIsNull    Operator = "IS NULL"
	OperatorIsNotNull Operator = "IS NOT NULL"
)

// IsComparison reports whether op yields a bool from two scalar operands.
func (op Operator) IsComparison() bool {
	switch op {
	case OperatorEq, OperatorNe, OperatorGt, OperatorGte, OperatorLt, OperatorLte,
		OperatorIs, OperatorLike, OperatorIn:
		return true
	}
	return false
}

func (op Operator) IsLogical() bool {
	return op == OperatorAnd || op == OperatorOr || op == OperatorNot
}
