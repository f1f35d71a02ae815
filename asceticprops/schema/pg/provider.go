// Package pg loads scheme metadata from the props store's _structures table.
package pg

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/schema"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/session"
)

const structuresQuery = `SELECT s._id, s._id_parent, s._name, s._db_type, s._collection_type, sc._name
FROM %s s JOIN %s sc ON sc._id = s._id_scheme
WHERE s._id_scheme = $1
ORDER BY s._id_parent NULLS FIRST, s._order, s._id`

func NewProvider(pool session.SessionPool) *Provider {
	return &Provider{
		pool:            pool,
		structuresTable: "_structures",
		schemesTable:    "_schemes",
	}
}

// Provider reads every structure of a scheme in one statement and assembles
// the tree by parent id. It does not cache; wrap it in a fieldpath.Resolver.
type Provider struct {
	pool            session.SessionPool
	structuresTable string
	schemesTable    string
}

func (p *Provider) Schema(ctx context.Context, schemeID int64) (*schema.Schema, error) {
	var result *schema.Schema
	err := p.pool.Session(ctx, func(s session.DbSession) error {
		var err error
		result, err = p.load(s, schemeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type structureRow struct {
	id         int64
	parentID   *int64
	name       string
	dbType     string
	collection *string
}

func (p *Provider) load(s session.DbSession, schemeID int64) (*schema.Schema, error) {
	rows, err := s.Connection().Query(
		fmt.Sprintf(structuresQuery, p.structuresTable, p.schemesTable),
		schemeID,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load structures of scheme %d", schemeID)
	}
	defer rows.Close()

	var schemeName string
	var records []structureRow
	for rows.Next() {
		var r structureRow
		if err := rows.Scan(&r.id, &r.parentID, &r.name, &r.dbType, &r.collection, &schemeName); err != nil {
			return nil, errors.Wrap(err, "unable to scan structure")
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "unable to read structures")
	}
	if len(records) == 0 {
		return nil, errors.Wrapf(schema.ErrSchemaNotFound, "scheme %d", schemeID)
	}
	fields, err := assemble(records)
	if err != nil {
		return nil, errors.Wrapf(err, "scheme %d", schemeID)
	}
	return &schema.Schema{ID: schemeID, Name: schemeName, Fields: fields}, nil
}

func assemble(records []structureRow) ([]schema.Structure, error) {
	children := make(map[int64][]structureRow)
	var roots []structureRow
	for _, r := range records {
		if r.parentID == nil {
			roots = append(roots, r)
		} else {
			children[*r.parentID] = append(children[*r.parentID], r)
		}
	}
	var build func(rows []structureRow, depth int) ([]schema.Structure, error)
	build = func(rows []structureRow, depth int) ([]schema.Structure, error) {
		if depth > len(records) {
			return nil, errors.New("structure parent links form a cycle")
		}
		result := make([]schema.Structure, 0, len(rows))
		for _, r := range rows {
			dbType, err := schema.ParseDbType(r.dbType)
			if err != nil {
				return nil, err
			}
			var collection schema.CollectionKind
			if r.collection != nil {
				if collection, err = schema.ParseCollectionKind(*r.collection); err != nil {
					return nil, err
				}
			}
			st := schema.Structure{ID: r.id, Name: r.name, DbType: dbType, Collection: collection}
			if kids, ok := children[r.id]; ok {
				if st.Children, err = build(kids, depth+1); err != nil {
					return nil, err
				}
			}
			result = append(result, st)
		}
		return result, nil
	}
	return build(roots, 0)
}
