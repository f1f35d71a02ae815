package compiler

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrUnresolvedPath = errors.New("unresolved field path")

// UnresolvedPathError names the first path of a query that its scheme
// does not define.
type UnresolvedPathError struct {
	SchemeID int64
	Path     string
}

func (e *UnresolvedPathError) Error() string {
	return fmt.Sprintf("%s %q in scheme %d", ErrUnresolvedPath, e.Path, e.SchemeID)
}

func (e *UnresolvedPathError) Is(target error) bool {
	return target == ErrUnresolvedPath
}
