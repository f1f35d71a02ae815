package schema

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type structureDocument struct {
	ID         int64               `yaml:"id"`
	Name       string              `yaml:"name"`
	Type       string              `yaml:"type"`
	Collection string              `yaml:"collection,omitempty"`
	Fields     []structureDocument `yaml:"fields,omitempty"`
}

type schemaDocument struct {
	ID     int64               `yaml:"id"`
	Name   string              `yaml:"name"`
	Fields []structureDocument `yaml:"fields"`
}

// LoadYAML decodes a scheme description:
//
//	id: 7
//	name: Person
//	fields:
//	  - {id: 1, name: Name, type: String}
//	  - id: 2
//	    name: Address
//	    type: Class
//	    fields:
//	      - {id: 3, name: City, type: String}
//	  - {id: 4, name: PhoneBook, type: String, collection: dictionary}
func LoadYAML(data []byte) (*Schema, error) {
	var doc schemaDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "schema: decode yaml")
	}
	fields, err := convert(doc.Fields)
	if err != nil {
		return nil, errors.Wrapf(err, "scheme %q", doc.Name)
	}
	return &Schema{ID: doc.ID, Name: doc.Name, Fields: fields}, nil
}

func convert(docs []structureDocument) ([]Structure, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	out := make([]Structure, 0, len(docs))
	for _, d := range docs {
		dbType := DbClass
		if d.Type != "" {
			t, err := ParseDbType(d.Type)
			if err != nil {
				return nil, errors.Wrapf(err, "field %q", d.Name)
			}
			dbType = t
		}
		kind, err := ParseCollectionKind(d.Collection)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", d.Name)
		}
		children, err := convert(d.Fields)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", d.Name)
		}
		out = append(out, Structure{ID: d.ID, Name: d.Name, DbType: dbType, Collection: kind, Children: children})
	}
	return out, nil
}
