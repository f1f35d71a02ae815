// Package facet turns resolved filters, orderings and tree filters into the
// payloads a props store executes: value-free SQL templates over the EAV
// tables and JSON facet documents.
package facet

import (
	"encoding/json"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/fieldpath"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/option"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/query"
	spec "github.com/krew-solutions/ascetic-props-go/asceticprops/specification/domain"
)

type Builder interface {
	BuildFacetFilters(expr spec.Visitable) (json.RawMessage, error)
	BuildOrderBy(orderings []spec.Ordering) (json.RawMessage, error)
	BuildQueryParameters(limit, offset option.Option[int]) QueryParameters
}

// PlanBuilder compiles a tree query with its resolved fields into a plan
// stored under key.
type PlanBuilder interface {
	Build(key string, tq *query.TreeQueryContext, fields Fields) (*Plan, error)
}

type QueryParameters struct {
	Limit  option.Option[int]
	Offset option.Option[int]
}

func (p QueryParameters) IsZero() bool {
	return p.Limit.IsNothing() && p.Offset.IsNothing()
}

type FieldKey struct {
	SchemeID int64
	Path     string
}

// Fields holds resolved paths per scheme.
type Fields map[FieldKey]fieldpath.FieldInfo

func (f Fields) Lookup(schemeID int64, path string) (fieldpath.FieldInfo, bool) {
	fi, ok := f[FieldKey{SchemeID: schemeID, Path: path}]
	return fi, ok
}

// Add registers every entry of resolved under schemeID.
func (f Fields) Add(schemeID int64, resolved map[string]fieldpath.FieldInfo) {
	for path, fi := range resolved {
		f[FieldKey{SchemeID: schemeID, Path: path}] = fi
	}
}
