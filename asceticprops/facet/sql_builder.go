package facet

import (
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/fieldpath"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/query"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/schema"
	spec "github.com/krew-solutions/ascetic-props-go/asceticprops/specification/domain"
)

const DefaultNativeConditionFunction = "props_tree_condition"

var dbColumns = map[schema.DbType]string{
	schema.DbString:    "_String",
	schema.DbLong:      "_Long",
	schema.DbGuid:      "_Guid",
	schema.DbDouble:    "_Double",
	schema.DbNumeric:   "_Numeric",
	schema.DbDateTime:  "_DateTimeOffset",
	schema.DbBoolean:   "_Boolean",
	schema.DbByteArray: "_ByteArray",
	schema.DbListItem:  "_ListItem",
	schema.DbObject:    "_Object",
	schema.DbClass:     "_id",
}

// ObjectColumns are the columns every plan selects, in scan order.
var ObjectColumns = []string{"_id", "_id_parent", "_id_scheme", "_name", "_hash"}

type SQLBuilderOption func(*SQLBuilder)

// WithNativeConditionFunction names the SQL function a native tree filter
// condition is delegated to. It is called as fn(object_id, payload::jsonb).
func WithNativeConditionFunction(name string) SQLBuilderOption {
	return func(b *SQLBuilder) {
		b.nativeFunction = name
	}
}

func WithTables(objects, values, listItems string) SQLBuilderOption {
	return func(b *SQLBuilder) {
		b.objectsTable = objects
		b.valuesTable = values
		b.listItemsTable = listItems
	}
}

// SQLBuilder compiles tree queries into PostgreSQL statements over the EAV
// tables. Literals are bound as $n placeholders; the scheme id is inlined.
type SQLBuilder struct {
	*JSONBuilder
	objectsTable   string
	valuesTable    string
	listItemsTable string
	nativeFunction string
}

func NewSQLBuilder(opts ...SQLBuilderOption) *SQLBuilder {
	b := &SQLBuilder{
		JSONBuilder:    NewJSONBuilder(),
		objectsTable:   "_objects",
		valuesTable:    "_values",
		listItemsTable: "_list_items",
		nativeFunction: DefaultNativeConditionFunction,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *SQLBuilder) Build(key string, tq *query.TreeQueryContext, fields Fields) (*Plan, error) {
	facets, err := b.BuildFacetFilters(tq.Filter)
	if err != nil {
		if !errors.Is(err, ErrUnsupportedExpression) {
			return nil, err
		}
		// Valid in SQL (arithmetic, field to field) but not as a facet.
		facets = nil
	}
	order, err := b.BuildOrderBy(tq.Orderings)
	if err != nil {
		return nil, err
	}
	p := &Plan{
		key:             key,
		facets:          facets,
		order:           order,
		filterValues:    len(CollectValues(tq.Filter)),
		treeFilters:     len(tq.TreeFilters),
		conditionValues: make([]int, len(tq.TreeFilters)),
	}
	for i, f := range tq.TreeFilters {
		if c, ok := f.Condition.(query.PredicateCondition); ok {
			p.conditionValues[i] = len(CollectValues(c.Predicate))
		}
	}

	c := b.newCompilation(tq, fields)
	if tq.IsEmpty {
		p.empty = true
		p.sql, err = c.emptySQL()
		return p, err
	}
	p.sql, err = c.selectSQL()
	if err != nil {
		return nil, err
	}
	p.slots = c.slots

	check := b.newCompilation(tq, fields)
	p.depthCheck, err = check.depthCheckSQL()
	if err != nil {
		return nil, errors.Wrap(err, "depth check")
	}
	p.depthCheckSlots = check.slots
	return p, nil
}

func (b *SQLBuilder) newCompilation(tq *query.TreeQueryContext, fields Fields) *compilation {
	return &compilation{builder: b, tq: tq, fields: fields, aliases: make(map[string]int)}
}

// compilation is the state of one Build call.
type compilation struct {
	builder *SQLBuilder
	tq      *query.TreeQueryContext
	fields  Fields
	slots   []slot
	aliases map[string]int
}

func (c *compilation) param(s slot) string {
	c.slots = append(c.slots, s)
	return fmt.Sprintf("$%d", len(c.slots))
}

func (c *compilation) alias(base string) string {
	c.aliases[base]++
	return fmt.Sprintf("%s_%d", base, c.aliases[base])
}

func (c *compilation) lookup(schemeID int64, path string) (fieldpath.FieldInfo, error) {
	fi, ok := c.fields.Lookup(schemeID, path)
	if !ok {
		return fi, errors.Wrapf(ErrUnresolvedField, "%s in scheme %d", path, schemeID)
	}
	return fi, nil
}

func (c *compilation) dataset() *goqu.SelectDataset {
	cols := make([]interface{}, len(ObjectColumns))
	for i, col := range ObjectColumns {
		cols[i] = goqu.I("o." + col)
	}
	return goqu.Dialect("postgres").
		From(goqu.T(c.builder.objectsTable).As("o")).
		Select(cols...)
}

func (c *compilation) emptySQL() (string, error) {
	sql, _, err := c.dataset().Where(goqu.L("FALSE")).ToSQL()
	return sql, err
}

func (c *compilation) selectSQL() (string, error) {
	tq := c.tq
	where := []string{c.schemeCond()}
	if tq.Filter != nil {
		cond, err := c.filterCond()
		if err != nil {
			return "", err
		}
		where = append(where, cond)
	}
	for i, f := range tq.TreeFilters {
		cond, err := c.treeFilter(i, f)
		if err != nil {
			return "", errors.Wrapf(err, "tree filter %d", i)
		}
		where = append(where, cond)
	}
	if tq.RootObjectID.IsSome() {
		where = append(where, c.subtree())
	}
	if len(tq.ParentIDs) > 0 {
		where = append(where, c.parentsCond())
	}

	ds := c.dataset().Where(goqu.L(strings.Join(where, " AND ")))

	var order []exp.OrderedExpression
	if path, ok := tq.DistinctBy.Get(); ok {
		expr, err := c.orderExpr(path)
		if err != nil {
			return "", errors.Wrap(err, "distinct by")
		}
		ds = ds.Distinct(goqu.L(expr))
		order = append(order, goqu.L(expr).Asc())
	} else if tq.UseRedbDistinct {
		ds = ds.Distinct(goqu.I("o._hash"))
		order = append(order, goqu.I("o._hash").Asc())
	}
	for _, o := range tq.Orderings {
		expr, err := c.orderExpr(o.Path())
		if err != nil {
			return "", errors.Wrap(err, "order by")
		}
		if o.Direction == spec.Descending {
			order = append(order, goqu.L(expr).Desc())
		} else {
			order = append(order, goqu.L(expr).Asc())
		}
	}
	// Rows are unique per object id already; plain DISTINCT is only emitted
	// when no ORDER BY expression would have to join the select list.
	if tq.Distinct && tq.DistinctBy.IsNothing() && !tq.UseRedbDistinct && len(tq.Orderings) == 0 {
		ds = ds.Distinct()
	}
	if len(order) > 0 || tq.Limit.IsSome() || tq.Offset.IsSome() {
		order = append(order, goqu.I("o._id").Asc())
		ds = ds.Order(order...)
	}

	sql, _, err := ds.ToSQL()
	if err != nil {
		return "", errors.Wrap(err, "render select")
	}
	if tq.Limit.IsSome() {
		sql += " LIMIT " + c.param(func(b *binding) any {
			return b.tq.Limit.UnwrapOr(0)
		})
	}
	if tq.Offset.IsSome() {
		sql += " OFFSET " + c.param(func(b *binding) any {
			return b.tq.Offset.UnwrapOr(0)
		})
	}
	return sql, nil
}

func (c *compilation) schemeCond() string {
	return fmt.Sprintf("o._id_scheme = %d", c.tq.SchemeID)
}

func (c *compilation) filterCond() (string, error) {
	v := newSQLVisitor(c, c.tq.SchemeID, "o", filterSource)
	if err := c.tq.Filter.Accept(v); err != nil {
		return "", err
	}
	return "(" + v.sql + ")", nil
}

func (c *compilation) parentsCond() string {
	return "o._id_parent = ANY(" + c.param(func(b *binding) any {
		return b.tq.ParentIDs
	}) + ")"
}

func (c *compilation) orderExpr(path string) (string, error) {
	return c.fieldExpr(c.tq.SchemeID, "o", path)
}

// fieldExpr renders the value of a field of the object aliased as object.
func (c *compilation) fieldExpr(schemeID int64, object, path string) (string, error) {
	fi, err := c.lookup(schemeID, path)
	if err != nil {
		return "", err
	}
	if fi.Selector.Kind == fieldpath.SelectorAll {
		return "", errors.Wrapf(ErrUnsupportedExpression, "%s addresses every element; use a wildcard", path)
	}
	v := c.alias("v")
	values := c.builder.valuesTable
	if fi.Element() && fi.SelectorStructureID != fi.StructureID {
		e := c.alias("e")
		return fmt.Sprintf(
			"(SELECT %s FROM %s %s JOIN %s %s ON %s._array_parent_id = %s._id WHERE %s._id_object = %s._id AND %s._id_structure = %d%s AND %s._id_structure = %d)",
			c.valueColumn(v, fi), values, v, values, e, v, e,
			e, object, e, fi.SelectorStructureID, c.selectorCond(e, fi.Selector), v, fi.StructureID,
		), nil
	}
	column, limit := c.valueColumn(v, fi), ""
	if fi.Collection != schema.CollectionNone && !fi.Element() {
		column, limit = v+"._id", " LIMIT 1"
	}
	return fmt.Sprintf(
		"(SELECT %s FROM %s %s WHERE %s._id_object = %s._id AND %s._id_structure = %d%s%s)",
		column, values, v, v, object, v, fi.StructureID, c.selectorCond(v, fi.Selector), limit,
	), nil
}

// elementFieldExpr renders a field of the collection element aliased as element.
func (c *compilation) elementFieldExpr(element string, fi fieldpath.FieldInfo) string {
	if fi.StructureID == fi.SelectorStructureID {
		return c.valueColumn(element, fi)
	}
	v := c.alias("v")
	return fmt.Sprintf(
		"(SELECT %s FROM %s %s WHERE %s._array_parent_id = %s._id AND %s._id_structure = %d)",
		c.valueColumn(v, fi), c.builder.valuesTable, v, v, element, v, fi.StructureID,
	)
}

func (c *compilation) valueColumn(alias string, fi fieldpath.FieldInfo) string {
	if fi.ListItemValue {
		return fmt.Sprintf("(SELECT li._value FROM %s li WHERE li._id = %s._ListItem)", c.builder.listItemsTable, alias)
	}
	return alias + "." + dbColumns[fi.DbType]
}

func (c *compilation) selectorCond(alias string, sel fieldpath.Selector) string {
	switch sel.Kind {
	case fieldpath.SelectorKey:
		key := sel.Key
		return fmt.Sprintf(" AND %s._array_key = %s", alias, c.param(func(*binding) any { return key }))
	case fieldpath.SelectorIndex:
		index := sel.Index
		return fmt.Sprintf(" AND %s._array_index = %s", alias, c.param(func(*binding) any { return index }))
	}
	return ""
}
