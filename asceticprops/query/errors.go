package query

import "errors"

var (
	ErrMalformedTreeFilter = errors.New("query: malformed tree filter")
	ErrMalformedQuery      = errors.New("query: malformed query context")
	// ErrDepthLimitExceeded is returned when a traversal would have to go
	// deeper than MaxRecursionDepth. Results are never silently truncated.
	ErrDepthLimitExceeded = errors.New("query: recursion depth limit exceeded")
	ErrHierarchyCycle     = errors.New("query: cycle in object hierarchy")
)
