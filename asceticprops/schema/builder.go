package schema

// Builder declares the fields of a scheme (or of a nested class) explicitly,
// once per props type.
//
//	s := NewBuilder(7, "Person").
//		Field(1, "Name", DbString).
//		Class(2, "Address", func(b *Builder) {
//			b.Field(3, "City", DbString)
//		}).
//		Dictionary(4, "PhoneBook", DbString).
//		Build()
type Builder struct {
	id     int64
	name   string
	fields []Structure
}

func NewBuilder(id int64, name string) *Builder {
	return &Builder{id: id, name: name}
}

// Field declares a scalar field.
func (b *Builder) Field(id int64, name string, dbType DbType) *Builder {
	return b.Register(Structure{ID: id, Name: name, DbType: dbType})
}

// ListItem declares a field referencing a value list entry.
func (b *Builder) ListItem(id int64, name string) *Builder {
	return b.Field(id, name, DbListItem)
}

// Class declares a nested object field.
func (b *Builder) Class(id int64, name string, fields func(*Builder)) *Builder {
	return b.Register(Structure{ID: id, Name: name, DbType: DbClass, Children: nested(fields)})
}

// Array declares an array of scalar (or list item) values.
func (b *Builder) Array(id int64, name string, dbType DbType) *Builder {
	return b.Register(Structure{ID: id, Name: name, DbType: dbType, Collection: CollectionArray})
}

// ArrayOf declares an array of nested objects.
func (b *Builder) ArrayOf(id int64, name string, fields func(*Builder)) *Builder {
	return b.Register(Structure{ID: id, Name: name, DbType: DbClass, Collection: CollectionArray, Children: nested(fields)})
}

// Dictionary declares a string-keyed map of scalar values.
func (b *Builder) Dictionary(id int64, name string, dbType DbType) *Builder {
	return b.Register(Structure{ID: id, Name: name, DbType: dbType, Collection: CollectionDictionary})
}

// DictionaryOf declares a string-keyed map of nested objects.
func (b *Builder) DictionaryOf(id int64, name string, fields func(*Builder)) *Builder {
	return b.Register(Structure{ID: id, Name: name, DbType: DbClass, Collection: CollectionDictionary, Children: nested(fields)})
}

// Register adds a fully described structure.
func (b *Builder) Register(s Structure) *Builder {
	b.fields = append(b.fields, s)
	return b
}

func (b *Builder) Build() *Schema {
	fields := make([]Structure, len(b.fields))
	copy(fields, b.fields)
	return &Schema{ID: b.id, Name: b.name, Fields: fields}
}

func nested(fields func(*Builder)) []Structure {
	if fields == nil {
		return nil
	}
	child := &Builder{}
	fields(child)
	return child.fields
}
