package oasql_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oasql/oasql"
)

func TestDecodeJSONPreservesOrder(t *testing.T) {
	value, err := oasql.DecodeJSON([]byte(`{"b": 1, "a": 2, "c": {"z": true, "y": false}}`))

	require.NoError(t, err)
	schema, ok := value.(oasql.Schema)
	require.True(t, ok)

	var keys []string
	for pair := schema.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	assert.Equal(t, []string{"b", "a", "c"}, keys)
}

func TestDecodeJSONScalars(t *testing.T) {
	value, err := oasql.DecodeJSON([]byte(`{"s": "x", "n": 1.5, "i": 2, "b": true, "nil": null, "list": [1, "two"]}`))

	require.NoError(t, err)
	schema := value.(oasql.Schema)

	s, _ := schema.Get("s")
	assert.Equal(t, "x", s)
	n, _ := schema.Get("n")
	assert.Equal(t, 1.5, n)
	b, _ := schema.Get("b")
	assert.Equal(t, true, b)
	null, _ := schema.Get("nil")
	assert.Nil(t, null)
	list, _ := schema.Get("list")
	assert.Len(t, list, 2)
}

func TestDecodeJSONErrors(t *testing.T) {
	_, err := oasql.DecodeJSON([]byte(`{`))
	assert.Error(t, err)

	_, err = oasql.DecodeJSON([]byte(`{"a": 1} trailing`))
	assert.Error(t, err)
}

func TestDecodeYAML(t *testing.T) {
	value, err := oasql.DecodeYAML([]byte("b: 1\na: two\nnested:\n  x: true\n"))

	require.NoError(t, err)
	schema, ok := value.(oasql.Schema)
	require.True(t, ok)

	var keys []string
	for pair := schema.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	assert.Equal(t, []string{"b", "a", "nested"}, keys)
}

func TestEncodeJSONRoundTrip(t *testing.T) {
	source := `{"b":1,"a":{"nested":[1,2,3]},"c":"x"}`

	value, err := oasql.DecodeJSON([]byte(source))
	require.NoError(t, err)
	encoded, err := oasql.EncodeJSON(value)
	require.NoError(t, err)

	assert.JSONEq(t, source, string(encoded))

	// Key order survives the round trip.
	decoded, err := oasql.DecodeJSON(encoded)
	require.NoError(t, err)
	var keys []string
	for pair := decoded.(oasql.Schema).Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	assert.Equal(t, []string{"b", "a", "c"}, keys)
}

func TestLoadSpecYAML(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "openapi.yaml")
	require.NoError(t, os.WriteFile(specPath, []byte(`
openapi: 3.0.0
components:
  schemas:
    Employee:
      type: object
      x-tablename: employee
      properties:
        id:
          type: integer
          x-primary-key: true
`), 0o644))

	t.Cleanup(oasql.ResetRemoteStore)
	schemas, err := oasql.LoadSpecYAML(specPath)

	require.NoError(t, err)
	value, ok := schemas.Get("Employee")
	require.True(t, ok)
	employee := value.(oasql.Schema)
	tablename, _ := employee.Get("x-tablename")
	assert.Equal(t, "employee", tablename)
}

func TestLoadSpecJSON(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "openapi.json")
	require.NoError(t, os.WriteFile(specPath, []byte(`{
		"openapi": "3.0.0",
		"components": {"schemas": {"Employee": {"type": "object", "x-tablename": "employee"}}}
	}`), 0o644))

	t.Cleanup(oasql.ResetRemoteStore)
	schemas, err := oasql.LoadSpecJSON(specPath)

	require.NoError(t, err)
	_, ok := schemas.Get("Employee")
	assert.True(t, ok)
}

func TestLoadSpecErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := oasql.LoadSpecYAML(filepath.Join(dir, "missing.yaml"))
		assert.ErrorIs(t, err, oasql.ErrSchemaNotFound)
	})

	t.Run("no components", func(t *testing.T) {
		path := filepath.Join(dir, "empty.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"openapi": "3.0.0"}`), 0o644))

		_, err := oasql.LoadSpecJSON(path)
		assert.ErrorIs(t, err, oasql.ErrMalformedSchema)
	})

	t.Run("invalid document", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(path, []byte(`{`), 0o644))

		_, err := oasql.LoadSpecJSON(path)
		assert.ErrorIs(t, err, oasql.ErrSchemaNotFound)
	})
}
