package specification

type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Marker is the single-character form used in structural keys.
func (d Direction) Marker() string {
	if d == Descending {
		return "D"
	}
	return "A"
}

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Ordering sorts by one field. A list of orderings applies in order.
type Ordering struct {
	Field     FieldNode
	Direction Direction
}

func Asc(field FieldNode) Ordering {
	return Ordering{Field: field, Direction: Ascending}
}

func Desc(field FieldNode) Ordering {
	return Ordering{Field: field, Direction: Descending}
}

func (o Ordering) Path() string {
	return FieldPath(o.Field)
}
