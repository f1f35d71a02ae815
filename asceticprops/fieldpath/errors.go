package fieldpath

import "errors"

var ErrMalformedPath = errors.New("fieldpath: malformed path")
