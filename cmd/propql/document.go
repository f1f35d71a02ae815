package main

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/option"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/query"
	spec "github.com/krew-solutions/ascetic-props-go/asceticprops/specification/domain"
)

// conditionDocument is one node of a YAML filter:
//
//	and:
//	  - {field: Name, op: "=", value: Ann}
//	  - {field: Roles, op: any, where: {field: "@.Value", op: "=", value: admin}}
//	  - not: {field: Manager, op: is null}
type conditionDocument struct {
	And   []conditionDocument `yaml:"and"`
	Or    []conditionDocument `yaml:"or"`
	Not   *conditionDocument  `yaml:"not"`
	Field string              `yaml:"field"`
	Op    string              `yaml:"op"`
	Value any                 `yaml:"value"`
	Var   string              `yaml:"var"`
	Where *conditionDocument  `yaml:"where"`
}

type orderDocument struct {
	Field string `yaml:"field"`
	Dir   string `yaml:"dir"`
}

type treeDocument struct {
	Op       string             `yaml:"op"`
	Value    any                `yaml:"value"`
	MaxDepth *int               `yaml:"max_depth"`
	Target   *int64             `yaml:"target"`
	Where    *conditionDocument `yaml:"where"`
	Native   map[string]any     `yaml:"native"`
}

type queryDocument struct {
	Scheme            int64              `yaml:"scheme"`
	Filter            *conditionDocument `yaml:"filter"`
	Order             []orderDocument    `yaml:"order"`
	Limit             *int               `yaml:"limit"`
	Offset            *int               `yaml:"offset"`
	Root              *int64             `yaml:"root"`
	Parents           []int64            `yaml:"parents"`
	MaxDepth          *int               `yaml:"max_depth"`
	MaxRecursionDepth *int               `yaml:"max_recursion_depth"`
	Distinct          bool               `yaml:"distinct"`
	DistinctBy        string             `yaml:"distinct_by"`
	RedbDistinct      bool               `yaml:"redb_distinct"`
	Empty             bool               `yaml:"empty"`
	Tree              []treeDocument     `yaml:"tree"`
}

// LoadQuery decodes a YAML query document into a tree query context.
func LoadQuery(data []byte) (*query.TreeQueryContext, error) {
	var doc queryDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "decode query")
	}
	if doc.Scheme == 0 {
		return nil, errors.New("query: scheme is required")
	}
	tq := query.NewTreeQueryContext(doc.Scheme)
	if doc.Filter != nil {
		filter, err := doc.Filter.expr()
		if err != nil {
			return nil, errors.Wrap(err, "filter")
		}
		tq.Filter = filter
	}
	for _, o := range doc.Order {
		switch strings.ToLower(o.Dir) {
		case "", "asc":
			tq.OrderBy(spec.Asc(fieldOf(o.Field)))
		case "desc":
			tq.OrderBy(spec.Desc(fieldOf(o.Field)))
		default:
			return nil, errors.Errorf("order %s: unknown direction %q", o.Field, o.Dir)
		}
	}
	tq.Limit = option.FromPtr(doc.Limit)
	tq.Offset = option.FromPtr(doc.Offset)
	tq.RootObjectID = option.FromPtr(doc.Root)
	tq.ParentIDs = doc.Parents
	tq.MaxDepth = option.FromPtr(doc.MaxDepth)
	tq.MaxRecursionDepth = option.FromPtr(doc.MaxRecursionDepth)
	tq.Distinct = doc.Distinct
	tq.UseRedbDistinct = doc.RedbDistinct
	if doc.DistinctBy != "" {
		tq.DistinctBy = option.Some(doc.DistinctBy)
	}
	tq.IsEmpty = doc.Empty
	for i, t := range doc.Tree {
		f, err := t.filter()
		if err != nil {
			return nil, errors.Wrapf(err, "tree filter %d", i)
		}
		tq.AddTreeFilter(f)
	}
	return tq, nil
}

func (t treeDocument) filter() (query.TreeFilter, error) {
	op, err := query.ParseTreeFilterOperator(t.Op)
	if err != nil {
		return query.TreeFilter{}, err
	}
	var opts []query.TreeFilterOption
	if t.Value != nil {
		opts = append(opts, query.WithValue(t.Value))
	}
	if t.MaxDepth != nil {
		opts = append(opts, query.WithMaxDepth(*t.MaxDepth))
	}
	if t.Target != nil {
		opts = append(opts, query.WithTargetScheme(*t.Target))
	}
	if t.Where != nil {
		predicate, err := t.Where.expr()
		if err != nil {
			return query.TreeFilter{}, err
		}
		opts = append(opts, query.WithPredicate(predicate))
	}
	if t.Native != nil {
		payload, err := json.Marshal(t.Native)
		if err != nil {
			return query.TreeFilter{}, errors.Wrap(err, "native condition")
		}
		opts = append(opts, query.WithNativeCondition(payload))
	}
	return query.NewTreeFilter(op, opts...)
}

func (c conditionDocument) expr() (spec.Visitable, error) {
	switch {
	case len(c.And) > 0:
		return c.fold(c.And, spec.And)
	case len(c.Or) > 0:
		return c.fold(c.Or, spec.Or)
	case c.Not != nil:
		operand, err := c.Not.expr()
		if err != nil {
			return nil, err
		}
		return spec.Not(operand), nil
	case c.Field == "":
		return nil, errors.New("condition needs and, or, not or field")
	}

	field := fieldOf(c.Field)
	var value spec.Visitable = spec.Value(c.Value)
	if c.Var != "" {
		value = spec.Var(c.Var, c.Value)
	}
	switch strings.ToLower(c.Op) {
	case "=", "==", "eq":
		return spec.Equal(field, value), nil
	case "!=", "<>", "ne":
		return spec.NotEqual(field, value), nil
	case ">", "gt":
		return spec.GreaterThan(field, value), nil
	case ">=", "gte":
		return spec.GreaterThanEqual(field, value), nil
	case "<", "lt":
		return spec.LessThan(field, value), nil
	case "<=", "lte":
		return spec.LessThanEqual(field, value), nil
	case "like":
		return spec.Like(field, value), nil
	case "in":
		return spec.In(field, value), nil
	case "is":
		return spec.Is(field, value), nil
	case "is null":
		return spec.IsNull(field), nil
	case "is not null":
		return spec.IsNotNull(field), nil
	case "any":
		if c.Where == nil {
			return nil, errors.Errorf("%s: any needs where", c.Field)
		}
		predicate, err := c.Where.expr()
		if err != nil {
			return nil, err
		}
		return spec.Wildcard(scopeOf(c.Field), predicate), nil
	}
	return nil, errors.Errorf("%s: unknown operator %q", c.Field, c.Op)
}

func (c conditionDocument) fold(items []conditionDocument, join func(spec.Visitable, ...spec.Visitable) spec.InfixNode) (spec.Visitable, error) {
	exprs := make([]spec.Visitable, len(items))
	for i, item := range items {
		e, err := item.expr()
		if err != nil {
			return nil, err
		}
		exprs[i] = e
	}
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return join(exprs[0], exprs[1:]...), nil
}

// fieldOf builds a field node; "@.X" addresses the current wildcard item.
func fieldOf(path string) spec.FieldNode {
	if !strings.HasPrefix(path, "@.") {
		return spec.Path(path)
	}
	segments := spec.SplitPath(strings.TrimPrefix(path, "@."))
	var scope spec.Scope = spec.Item()
	for _, segment := range segments[:len(segments)-1] {
		scope = spec.Object(scope, segment)
	}
	return spec.Field(scope, segments[len(segments)-1])
}

func scopeOf(path string) spec.Scope {
	var scope spec.Scope = spec.GlobalScope()
	for _, segment := range spec.SplitPath(path) {
		scope = spec.Object(scope, segment)
	}
	return scope
}
