package specification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func person() DictContext {
	return DictContext{
		"Name": "Alice",
		"Age":  30,
		"Address": map[string]any{
			"City": "Berlin",
		},
		"PhoneBook": map[string]string{
			"home": "+49-30-1",
		},
		"AddressBook": map[string]any{
			"work": map[string]any{"City": "Potsdam"},
		},
		"Roles": []any{
			map[string]any{"Value": "admin"},
			map[string]any{"Value": "editor"},
		},
		"Tags": []string{"a", "b"},
	}
}

func TestEvaluateComparison(t *testing.T) {
	ok, err := Evaluate(person(), And(
		Equal(Field(GlobalScope(), "Name"), Value("Alice")),
		GreaterThanEqual(Field(GlobalScope(), "Age"), Var("minAge", 18)),
	))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Evaluate(person(), LessThan(Field(GlobalScope(), "Age"), Value(18)))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateNestedAndKeyedPaths(t *testing.T) {
	tests := []struct {
		name string
		exp  Visitable
	}{
		{"nested", Equal(Path("Address.City"), Value("Berlin"))},
		{"dictionary", Equal(Path("PhoneBook[home]"), Value("+49-30-1"))},
		{"nested dictionary", Equal(Path("AddressBook[work].City"), Value("Potsdam"))},
		{"entry helper", Equal(Field(Entry(GlobalScope(), "AddressBook", "work"), "City"), Value("Potsdam"))},
		{"array index", Equal(Path("Tags[1]"), Value("b"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := Evaluate(person(), tt.exp)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestEvaluateMissingFieldIsNull(t *testing.T) {
	ok, err := Evaluate(person(), IsNull(Path("Address.Zip")))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Evaluate(person(), Equal(Path("Missing.Field"), Value(1)))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateWildcard(t *testing.T) {
	exp := Wildcard(
		Object(GlobalScope(), "Roles"),
		Equal(Field(Item(), "Value"), Value("editor")),
	)
	ok, err := Evaluate(person(), exp)
	require.NoError(t, err)
	assert.True(t, ok)

	exp = Wildcard(
		Object(GlobalScope(), "Roles"),
		Equal(Field(Item(), "Value"), Value("owner")),
	)
	ok, err = Evaluate(person(), exp)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateLikeAndIn(t *testing.T) {
	ok, err := Evaluate(person(), Like(Field(GlobalScope(), "Name"), Value("Al%")))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Evaluate(person(), In(Field(GlobalScope(), "Age"), Value([]int{20, 30})))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateNot(t *testing.T) {
	ok, err := Evaluate(person(), Not(Equal(Field(GlobalScope(), "Name"), Value("Bob"))))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSplitPath(t *testing.T) {
	assert.Equal(t, []string{"Name"}, SplitPath("Name"))
	assert.Equal(t, []string{"Address", "City"}, SplitPath("Address.City"))
	assert.Equal(t, []string{"AddressBook[work]", "City"}, SplitPath("AddressBook[work].City"))
	assert.Equal(t, []string{"Map[a.b]", "X"}, SplitPath("Map[a.b].X"))
	assert.Equal(t, []string{"Roles[]", "Value"}, SplitPath("Roles[].Value"))
}

func TestFieldPath(t *testing.T) {
	assert.Equal(t, "AddressBook[work].City", FieldPath(Path("AddressBook[work].City")))
	assert.Equal(t, "Roles[].Value", FieldPath(Field(Element(GlobalScope(), "Roles"), "Value")))
	assert.Equal(t, "@.Value", FieldPath(Field(Item(), "Value")))
}

func TestAndFoldsLeft(t *testing.T) {
	a := Equal(Path("A"), Value(1))
	b := Equal(Path("B"), Value(2))
	c := Equal(Path("C"), Value(3))

	n := And(a, b, c)
	left, ok := n.Left().(InfixNode)
	require.True(t, ok)
	assert.Equal(t, a, left.Left())
	assert.Equal(t, b, left.Right())
	assert.Equal(t, c, n.Right())
}

func TestCollectPaths(t *testing.T) {
	exp := And(
		Equal(Path("Name"), Value("x")),
		Wildcard(Object(GlobalScope(), "Roles"), Equal(Field(Item(), "Value"), Value("admin"))),
		GreaterThan(Sub(Path("Price"), Path("Discount")), Value(10)),
		Equal(Path("Name"), Var("n", "y")),
	)
	assert.Equal(t, []string{"Name", "Roles[]", "Roles[].Value", "Price", "Discount"}, CollectPaths(exp))
	assert.Nil(t, CollectPaths(nil))
}

func TestOrdering(t *testing.T) {
	o := Desc(Path("Address.City"))
	assert.Equal(t, "Address.City", o.Path())
	assert.Equal(t, "D", o.Direction.Marker())
	assert.Equal(t, "A", Asc(Path("Name")).Direction.Marker())
}
