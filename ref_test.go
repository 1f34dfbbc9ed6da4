package oasql_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oasql/oasql"
)

func TestResolveNoRef(t *testing.T) {
	schema := mustSchema(t, `{"type": "object", "x-tablename": "employee"}`)

	name, resolved, err := oasql.Resolve("Employee", schema, mustSchemas(t, `{}`))

	require.NoError(t, err)
	assert.Equal(t, "Employee", name)
	// A schema with no $ref resolves to itself.
	assert.Same(t, schema, resolved)
}

func TestResolveChain(t *testing.T) {
	schemas := mustSchemas(t, `{
		"Employee": {"$ref": "#/components/schemas/Person"},
		"Person": {"$ref": "#/components/schemas/Base"},
		"Base": {"type": "object", "x-tablename": "person"}
	}`)
	schema, ok := schemas.Get("Employee")
	require.True(t, ok)

	name, resolved, err := oasql.Resolve("Employee", schema.(oasql.Schema), schemas)

	require.NoError(t, err)
	// The last referenced name is preserved.
	assert.Equal(t, "Base", name)
	tablename := schemaGet(t, resolved, "x-tablename")
	assert.Equal(t, "person", tablename)
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name    string
		schema  string
		schemas string
		err     error
	}{
		{
			name:    "$ref not string",
			schema:  `{"$ref": true}`,
			schemas: `{}`,
			err:     oasql.ErrMalformedSchema,
		},
		{
			name:    "bad local format",
			schema:  `{"$ref": "#/definitions/Employee"}`,
			schemas: `{}`,
			err:     oasql.ErrSchemaNotFound,
		},
		{
			name:    "not found",
			schema:  `{"$ref": "#/components/schemas/Missing"}`,
			schemas: `{}`,
			err:     oasql.ErrSchemaNotFound,
		},
		{
			name:    "multiple #",
			schema:  `{"$ref": "a.json#/x#/y"}`,
			schemas: `{}`,
			err:     oasql.ErrMalformedSchema,
		},
		{
			name:    "cyclic",
			schema:  `{"$ref": "#/components/schemas/A"}`,
			schemas: `{"A": {"$ref": "#/components/schemas/B"}, "B": {"$ref": "#/components/schemas/A"}}`,
			err:     oasql.ErrMalformedSchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema := mustSchema(t, tt.schema)

			_, _, err := oasql.Resolve("", schema, mustSchemas(t, tt.schemas))

			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestResolveRemoteWithoutContext(t *testing.T) {
	oasql.ResetRemoteStore()
	schema := mustSchema(t, `{"$ref": "defs.json#/components/schemas/Division"}`)

	_, _, err := oasql.Resolve("", schema, mustSchemas(t, `{}`))

	assert.ErrorIs(t, err, oasql.ErrMissingArgument)
}

// writeRemoteFixture lays out a spec directory with a sibling defs.json and
// points the remote store at it.
func writeRemoteFixture(t *testing.T, defs string) string {
	t.Helper()
	dir := t.TempDir()
	specPath := filepath.Join(dir, "spec.yaml")
	require.NoError(t, os.WriteFile(specPath, []byte("openapi: 3.0.0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "defs.json"), []byte(defs), 0o644))

	oasql.ResetRemoteStore()
	oasql.SetContext(specPath)
	t.Cleanup(oasql.ResetRemoteStore)
	return dir
}

func TestResolveRemote(t *testing.T) {
	writeRemoteFixture(t, `{
		"components": {
			"schemas": {
				"Division": {
					"type": "object",
					"x-tablename": "division",
					"properties": {
						"id": {"type": "integer", "x-primary-key": true},
						"address": {"$ref": "#/components/schemas/Address"}
					}
				},
				"Address": {"type": "object", "x-tablename": "address"}
			}
		}
	}`)

	schema := mustSchema(t, `{"$ref": "defs.json#/components/schemas/Division"}`)
	name, resolved, err := oasql.Resolve("", schema, mustSchemas(t, `{}`))

	require.NoError(t, err)
	assert.Equal(t, "Division", name)
	assert.Equal(t, "division", schemaGet(t, resolved, "x-tablename"))

	// The intra-document reference is rewritten to carry the remote context.
	properties := childSchema(t, resolved, "properties")
	address := childSchema(t, properties, "address")
	assert.Equal(t, "defs.json#/components/schemas/Address", schemaGet(t, address, "$ref"))

	// The rewritten reference resolves from the spec directory.
	rewritten := mustSchema(t, `{"$ref": "defs.json#/components/schemas/Address"}`)
	addressName, addressSchema, err := oasql.Resolve("", rewritten, mustSchemas(t, `{}`))
	require.NoError(t, err)
	assert.Equal(t, "Address", addressName)
	assert.Equal(t, "address", schemaGet(t, addressSchema, "x-tablename"))
}

func TestResolveRemoteErrors(t *testing.T) {
	dir := writeRemoteFixture(t, `{"components": {"schemas": {}}}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644))

	tests := []struct {
		name string
		ref  string
	}{
		{name: "file missing", ref: "missing.json#/components/schemas/X"},
		{name: "wrong extension", ref: "defs.txt#/components/schemas/X"},
		{name: "invalid json", ref: "broken.json#/components/schemas/X"},
		{name: "pointer missing", ref: "defs.json#/components/schemas/Missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema := mustSchema(t, `{"$ref": "`+tt.ref+`"}`)

			_, _, err := oasql.Resolve("", schema, mustSchemas(t, `{}`))

			assert.ErrorIs(t, err, oasql.ErrSchemaNotFound)
		})
	}
}

func TestRemoteDocumentCached(t *testing.T) {
	dir := writeRemoteFixture(t, `{
		"components": {"schemas": {"Division": {"type": "object", "x-tablename": "division"}}}
	}`)

	schema := mustSchema(t, `{"$ref": "defs.json#/components/schemas/Division"}`)
	_, _, err := oasql.Resolve("", schema, mustSchemas(t, `{}`))
	require.NoError(t, err)

	// The parsed document is cached: removing the file does not matter.
	require.NoError(t, os.Remove(filepath.Join(dir, "defs.json")))
	_, resolved, err := oasql.Resolve("", schema, mustSchemas(t, `{}`))
	require.NoError(t, err)
	assert.Equal(t, "division", schemaGet(t, resolved, "x-tablename"))

	// Reset is total: the document is gone afterwards.
	oasql.ResetRemoteStore()
	oasql.SetContext(filepath.Join(dir, "spec.yaml"))
	_, _, err = oasql.Resolve("", schema, mustSchemas(t, `{}`))
	assert.ErrorIs(t, err, oasql.ErrSchemaNotFound)
}
