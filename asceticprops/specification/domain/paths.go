package specification

import "strings"

// CollectPaths returns every storage field path exp reads, in first-seen
// order without duplicates. A wildcard reads its collection and item fields
// are reported relative to it: Wildcard(Object(GlobalScope(), "Roles"),
// Field(Item(), "Value")) reads "Roles[]" and "Roles[].Value".
func CollectPaths(exp Visitable) []string {
	if exp == nil {
		return nil
	}
	c := &pathCollector{seen: make(map[string]struct{})}
	_ = exp.Accept(c)
	return c.paths
}

// ElementPath rewrites an item-relative path against the collection it iterates.
func ElementPath(collection Scope, itemPath string) string {
	prefix := ScopePath(collection)
	if !strings.HasSuffix(prefix, "]") {
		prefix += "[]"
	}
	rest := strings.TrimPrefix(itemPath, "@")
	rest = strings.TrimPrefix(rest, ".")
	if rest == "" {
		return prefix
	}
	return prefix + "." + rest
}

type pathCollector struct {
	collections []Scope
	paths       []string
	seen        map[string]struct{}
}

func (c *pathCollector) add(path string) {
	if _, ok := c.seen[path]; ok {
		return
	}
	c.seen[path] = struct{}{}
	c.paths = append(c.paths, path)
}

func (c *pathCollector) VisitGlobalScope(GlobalScopeNode) error { return nil }
func (c *pathCollector) VisitObject(ObjectNode) error           { return nil }
func (c *pathCollector) VisitItem(ItemNode) error               { return nil }
func (c *pathCollector) VisitValue(ValueNode) error             { return nil }
func (c *pathCollector) VisitVariable(VariableNode) error       { return nil }

func (c *pathCollector) VisitCollection(n CollectionNode) error {
	c.add(c.relative(ElementPath(n.Parent(), "@")))
	c.collections = append(c.collections, n.Parent())
	err := n.Predicate().Accept(c)
	c.collections = c.collections[:len(c.collections)-1]
	return err
}

func (c *pathCollector) VisitField(n FieldNode) error {
	c.add(c.relative(FieldPath(n)))
	return nil
}

func (c *pathCollector) relative(path string) string {
	if strings.HasPrefix(path, "@") && len(c.collections) > 0 {
		return ElementPath(c.collections[len(c.collections)-1], path)
	}
	return path
}

func (c *pathCollector) VisitPrefix(n PrefixNode) error {
	return n.Operand().Accept(c)
}

func (c *pathCollector) VisitInfix(n InfixNode) error {
	if err := n.Left().Accept(c); err != nil {
		return err
	}
	return n.Right().Accept(c)
}

func (c *pathCollector) VisitPostfix(n PostfixNode) error {
	return n.Operand().Accept(c)
}
