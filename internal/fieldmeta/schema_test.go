package fieldmeta

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var expectedUserFields = []Field{
	{Name: "Id", Column: "id", Type: TypeInt},
	{Name: "Account", Column: "account", Type: TypeString},
	{Name: "Spell", Column: "spell", Type: TypeString},
	{Name: "Score", Column: "score", Type: TypeFloat},
	{Name: "Active", Column: "active", Type: TypeBool},
	{Name: "GroupId", Column: "group_id", Type: TypeUUID},
	{Name: "Address.City", Column: "address_city", Type: TypeString},
	{Name: "Nick", Type: TypeString},
}

func TestLoad_SchemaFiles(t *testing.T) {
	for _, path := range []string{"testdata/users.cue", "testdata/users.yaml"} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			schema, err := Load(path)
			require.NoError(t, err)

			assert.Equal(t, []string{"Role", "User"}, schema.Names())

			user, err := schema.Entity("User")
			require.NoError(t, err)
			assert.Equal(t, "users", user.Table)
			assert.Equal(t, expectedUserFields, user.Fields)

			role, err := schema.Entity("Role")
			require.NoError(t, err)
			assert.Equal(t, "Role", role.Table, "table defaults to the entity name")

			_, err = schema.Entity("Missing")
			assert.Error(t, err)
			_, err = schema.Entity("")
			assert.Error(t, err, "two entities need an explicit name")
		})
	}
}

func TestLoad_UnknownExtension(t *testing.T) {
	_, err := Load("schema.json")
	assert.ErrorContains(t, err, "unsupported schema file")
}

func TestParseCUE_SingleEntity(t *testing.T) {
	schema, err := ParseCUE("single.cue", []byte(`entities: Order: fields: {Total: number, Paid: bool}`))
	require.NoError(t, err)

	order, err := schema.Entity("")
	require.NoError(t, err)
	assert.Equal(t, []Field{
		{Name: "Total", Type: TypeFloat},
		{Name: "Paid", Type: TypeBool},
	}, order.Fields)
}

func TestParseCUE_Errors(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{"syntax error", `entities: {`},
		{"missing entities", `tables: {}`},
		{"missing fields", `entities: User: table: "users"`},
		{"unknown type name", `entities: User: fields: Id: {type: "decimal"}`},
		{"list type", `entities: User: fields: Tags: [...string]`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCUE("bad.cue", []byte(tc.src))
			assert.Error(t, err)
		})
	}
}

func TestParseCUE_ErrorPosition(t *testing.T) {
	_, err := ParseCUE("bad.cue", []byte("entities: User: {\n\ttable: \"users\"\n}\n"))
	require.Error(t, err)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "entities.User.fields", schemaErr.Field)
}

func TestParseYAML_Errors(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{"not yaml", "entities: [unclosed"},
		{"entities not a mapping", "entities: [User]"},
		{"missing fields", "entities:\n  User:\n    table: users\n"},
		{"unknown type", "entities:\n  User:\n    fields:\n      Id: decimal\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tc.src))
			assert.Error(t, err)
		})
	}
}

func TestLoadYAML_MissingFile(t *testing.T) {
	_, err := LoadYAML(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
