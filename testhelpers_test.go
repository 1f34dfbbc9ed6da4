package oasql_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oasql/oasql"
)

// mustSchema parses a JSON document into a schema node.
func mustSchema(t *testing.T, document string) oasql.Schema {
	t.Helper()
	value, err := oasql.DecodeJSON([]byte(document))
	require.NoError(t, err)
	schema, ok := value.(oasql.Schema)
	require.True(t, ok, "document is not an object: %s", document)
	return schema
}

// mustSchemas parses a JSON document into a catalog.
func mustSchemas(t *testing.T, document string) oasql.Schemas {
	t.Helper()
	return mustSchema(t, document)
}

// encode serializes a value for comparisons; ordering is stable.
func encode(t *testing.T, value any) string {
	t.Helper()
	data, err := oasql.EncodeJSON(value)
	require.NoError(t, err)
	return string(data)
}

// schemaGet reads a key from a schema node, failing the test when absent.
func schemaGet(t *testing.T, schema oasql.Schema, key string) any {
	t.Helper()
	value, ok := schema.Get(key)
	require.True(t, ok, "key %s not found", key)
	return value
}

// childSchema reads a key from a schema node as a nested schema.
func childSchema(t *testing.T, schema oasql.Schema, key string) oasql.Schema {
	t.Helper()
	value := schemaGet(t, schema, key)
	child, ok := value.(oasql.Schema)
	require.True(t, ok, "key %s is not an object", key)
	return child
}
