package facet

import "errors"

var (
	ErrUnsupportedExpression = errors.New("facet: unsupported expression")
	ErrUnresolvedField       = errors.New("facet: field was not resolved")
	// ErrPlanMismatch is returned by Plan.Bind for a context whose shape
	// differs from the one the plan was compiled from.
	ErrPlanMismatch = errors.New("facet: context does not match plan")
)
