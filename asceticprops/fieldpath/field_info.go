package fieldpath

import (
	"strconv"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/schema"
)

type SelectorKind int

const (
	SelectorNone SelectorKind = iota
	// SelectorAll addresses every element of an array: Roles[].
	SelectorAll
	// SelectorIndex addresses one array element: Roles[2].
	SelectorIndex
	// SelectorKey addresses one dictionary entry: PhoneBook[home].
	SelectorKey
)

func (k SelectorKind) String() string {
	switch k {
	case SelectorAll:
		return "all"
	case SelectorIndex:
		return "index"
	case SelectorKey:
		return "key"
	}
	return "none"
}

type Selector struct {
	Kind  SelectorKind
	Key   string
	Index int
}

// FieldInfo is the storage metadata a path resolves to. It is a comparable
// value and stays valid for as long as the scheme's structures do.
type FieldInfo struct {
	Path        string
	StructureID int64
	DbType      schema.DbType
	Collection  schema.CollectionKind
	Selector    Selector
	// SelectorStructureID is the collection structure Selector applies to.
	// It differs from StructureID when the path continues past the selector.
	SelectorStructureID int64
	// ListItemValue marks a trailing ".Value" on a list-item structure.
	ListItemValue bool
}

// Element reports whether the path addresses values inside a collection
// rather than the collection as a whole.
func (fi FieldInfo) Element() bool {
	return fi.Selector.Kind != SelectorNone
}

const listItemValue = "Value"

// Lookup resolves path against s. A malformed path or a path naming no
// structure is reported as not found.
func Lookup(s *schema.Schema, path string) (FieldInfo, bool) {
	segments, err := Parse(path)
	if err != nil {
		return FieldInfo{}, false
	}
	return lookup(s, path, segments)
}

func lookup(s *schema.Schema, path string, segments []Segment) (FieldInfo, bool) {
	info := FieldInfo{Path: path}
	var current schema.Structure
	for i, segment := range segments {
		last := i == len(segments)-1
		if i == 0 {
			st, ok := s.Field(segment.Name)
			if !ok {
				return FieldInfo{}, false
			}
			current = st
		} else {
			// The previous structure is either a whole collection, which
			// cannot be navigated, or a scalar.
			selected := info.Selector.Kind != SelectorNone && info.SelectorStructureID == current.ID
			if current.Collection != schema.CollectionNone && !selected {
				return FieldInfo{}, false
			}
			switch {
			case current.IsClass():
				st, ok := current.Child(segment.Name)
				if !ok {
					return FieldInfo{}, false
				}
				current = st
			case current.IsListItem() && segment.Name == listItemValue && last && !segment.HasSelector:
				info.ListItemValue = true
				continue
			default:
				return FieldInfo{}, false
			}
		}
		if segment.HasSelector {
			selector, ok := selectorFor(current, segment)
			if !ok || info.Selector.Kind != SelectorNone {
				return FieldInfo{}, false
			}
			info.Selector = selector
			info.SelectorStructureID = current.ID
		}
	}
	info.StructureID = current.ID
	info.DbType = current.DbType
	info.Collection = current.Collection
	return info, true
}

func selectorFor(st schema.Structure, segment Segment) (Selector, bool) {
	switch st.Collection {
	case schema.CollectionArray:
		if segment.Key == "" && !segment.Quoted {
			return Selector{Kind: SelectorAll}, true
		}
		if segment.Quoted {
			return Selector{}, false
		}
		idx, err := strconv.Atoi(segment.Key)
		if err != nil || idx < 0 {
			return Selector{}, false
		}
		return Selector{Kind: SelectorIndex, Index: idx}, true
	case schema.CollectionDictionary:
		if segment.Key == "" && !segment.Quoted {
			return Selector{}, false
		}
		return Selector{Kind: SelectorKey, Key: segment.Key}, true
	}
	return Selector{}, false
}
