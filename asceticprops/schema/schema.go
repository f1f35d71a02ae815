// Package schema describes the dynamic field layout of one props type: which
// structures a scheme declares, how each is stored and how they nest.
package schema

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrSchemaNotFound = errors.New("schema: scheme not found")

// DbType is the physical value column a structure is stored in.
type DbType string

const (
	DbString    DbType = "String"
	DbLong      DbType = "Long"
	DbGuid      DbType = "Guid"
	DbDouble    DbType = "Double"
	DbNumeric   DbType = "Numeric"
	DbDateTime  DbType = "DateTime"
	DbBoolean   DbType = "Boolean"
	DbByteArray DbType = "ByteArray"
	// DbListItem references a row of a shared value list; its underlying
	// value is addressed with the ".Value" path segment.
	DbListItem DbType = "ListItem"
	// DbObject references another stored object.
	DbObject DbType = "Object"
	// DbClass is a nested business class; it has children but no value.
	DbClass DbType = "Class"
)

var dbTypes = []DbType{
	DbString, DbLong, DbGuid, DbDouble, DbNumeric, DbDateTime,
	DbBoolean, DbByteArray, DbListItem, DbObject, DbClass,
}

func ParseDbType(s string) (DbType, error) {
	for _, t := range dbTypes {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("schema: unknown db type %q", s)
}

// CollectionKind is the shape of a structure's values.
type CollectionKind int

const (
	CollectionNone CollectionKind = iota
	CollectionArray
	CollectionDictionary
)

func (k CollectionKind) String() string {
	switch k {
	case CollectionArray:
		return "array"
	case CollectionDictionary:
		return "dictionary"
	}
	return "none"
}

func ParseCollectionKind(s string) (CollectionKind, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return CollectionNone, nil
	case "array", "list":
		return CollectionArray, nil
	case "dictionary", "dict", "map":
		return CollectionDictionary, nil
	}
	return CollectionNone, fmt.Errorf("schema: unknown collection kind %q", s)
}

// Structure is one declared field. Children are set for DbClass structures.
type Structure struct {
	ID         int64
	Name       string
	DbType     DbType
	Collection CollectionKind
	Children   []Structure
}

func (s Structure) IsListItem() bool {
	return s.DbType == DbListItem
}

func (s Structure) IsClass() bool {
	return s.DbType == DbClass
}

// Child looks up a direct child by name.
func (s Structure) Child(name string) (Structure, bool) {
	return find(s.Children, name)
}

type Schema struct {
	ID     int64
	Name   string
	Fields []Structure
}

// Field looks up a top-level field by name.
func (s *Schema) Field(name string) (Structure, bool) {
	return find(s.Fields, name)
}

func find(structures []Structure, name string) (Structure, bool) {
	for i := range structures {
		if structures[i].Name == name {
			return structures[i], true
		}
	}
	return Structure{}, false
}

// Provider returns the current metadata of a scheme. Implementations must
// reflect the current schema version.
type Provider interface {
	Schema(ctx context.Context, schemeID int64) (*Schema, error)
}
