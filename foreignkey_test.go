package oasql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oasql/oasql"
)

func TestPlaceForeignKeysManyToOne(t *testing.T) {
	schemas := mustSchemas(t, `{
		"Employee": {
			"type": "object",
			"x-tablename": "employee",
			"properties": {
				"id": {"type": "integer", "x-primary-key": true},
				"division": {"$ref": "#/components/schemas/Division"}
			},
			"required": ["division"]
		},
		"Division": {
			"type": "object",
			"x-tablename": "division",
			"properties": {"id": {"type": "integer", "x-primary-key": true}}
		}
	}`)

	require.NoError(t, oasql.PlaceForeignKeys(schemas))

	// The column is synthesized on the referring side.
	employee, ok := schemas.Get("Employee")
	require.True(t, ok)
	properties := childSchema(t, employee.(oasql.Schema), "properties")
	column := childSchema(t, properties, "division_id")
	assert.Equal(t, "integer", schemaGet(t, column, "type"))
	assert.Equal(t, "division.id", schemaGet(t, column, "x-foreign-key"))
	// The property is required, so the column is not nullable.
	assert.Equal(t, false, schemaGet(t, column, "nullable"))

	// Synthesized columns follow declared ones.
	var order []string
	for pair := properties.Oldest(); pair != nil; pair = pair.Next() {
		order = append(order, pair.Key)
	}
	assert.Equal(t, []string{"id", "division", "division_id"}, order)
}

func TestPlaceForeignKeysOneToMany(t *testing.T) {
	schemas := mustSchemas(t, `{
		"Division": {
			"type": "object",
			"x-tablename": "division",
			"properties": {
				"id": {"type": "integer", "x-primary-key": true},
				"employees": {
					"type": "array",
					"items": {"$ref": "#/components/schemas/Employee"}
				}
			}
		},
		"Employee": {
			"type": "object",
			"x-tablename": "employee",
			"properties": {"id": {"type": "integer", "x-primary-key": true}}
		}
	}`)

	require.NoError(t, oasql.PlaceForeignKeys(schemas))

	// The column lands on the referenced side.
	employee, ok := schemas.Get("Employee")
	require.True(t, ok)
	properties := childSchema(t, employee.(oasql.Schema), "properties")
	column := childSchema(t, properties, "division_id")
	assert.Equal(t, "integer", schemaGet(t, column, "type"))
	assert.Equal(t, "division.id", schemaGet(t, column, "x-foreign-key"))
	assert.Equal(t, true, schemaGet(t, column, "nullable"))
}

func TestPlaceForeignKeysFormatAndMaxLength(t *testing.T) {
	schemas := mustSchemas(t, `{
		"Employee": {
			"type": "object",
			"x-tablename": "employee",
			"properties": {
				"id": {"type": "integer", "x-primary-key": true},
				"division": {"$ref": "#/components/schemas/Division"}
			}
		},
		"Division": {
			"type": "object",
			"x-tablename": "division",
			"properties": {
				"code": {"type": "string", "format": "uuid", "maxLength": 36, "x-primary-key": true}
			}
		}
	}`)

	require.NoError(t, oasql.PlaceForeignKeys(schemas))

	employee, ok := schemas.Get("Employee")
	require.True(t, ok)
	properties := childSchema(t, employee.(oasql.Schema), "properties")
	column := childSchema(t, properties, "division_code")
	assert.Equal(t, "string", schemaGet(t, column, "type"))
	assert.Equal(t, "uuid", schemaGet(t, column, "format"))
	assert.Equal(t, float64(36), schemaGet(t, column, "maxLength"))
	assert.Equal(t, "division.code", schemaGet(t, column, "x-foreign-key"))
}

func TestPlaceForeignKeysIdempotent(t *testing.T) {
	schemas := mustSchemas(t, `{
		"Employee": {
			"type": "object",
			"x-tablename": "employee",
			"properties": {
				"id": {"type": "integer", "x-primary-key": true},
				"division": {"$ref": "#/components/schemas/Division"}
			}
		},
		"Division": {
			"type": "object",
			"x-tablename": "division",
			"properties": {"id": {"type": "integer", "x-primary-key": true}}
		}
	}`)

	require.NoError(t, oasql.PlaceForeignKeys(schemas))
	once := encode(t, schemas)
	require.NoError(t, oasql.PlaceForeignKeys(schemas))
	twice := encode(t, schemas)

	assert.Equal(t, once, twice)
}

func TestPlaceForeignKeysConflict(t *testing.T) {
	// division_id already exists pointing at a different table.
	schemas := mustSchemas(t, `{
		"Employee": {
			"type": "object",
			"x-tablename": "employee",
			"properties": {
				"id": {"type": "integer", "x-primary-key": true},
				"division": {"$ref": "#/components/schemas/Division"},
				"division_id": {"type": "integer", "x-foreign-key": "other.id"}
			}
		},
		"Division": {
			"type": "object",
			"x-tablename": "division",
			"properties": {"id": {"type": "integer", "x-primary-key": true}}
		}
	}`)

	err := oasql.PlaceForeignKeys(schemas)

	assert.ErrorIs(t, err, oasql.ErrMalformedSchema)
}

func TestPlaceForeignKeysForeignKeyColumnOverride(t *testing.T) {
	schemas := mustSchemas(t, `{
		"Employee": {
			"type": "object",
			"x-tablename": "employee",
			"properties": {
				"id": {"type": "integer", "x-primary-key": true},
				"division": {
					"allOf": [
						{"$ref": "#/components/schemas/Division"},
						{"x-foreign-key-column": "code"}
					]
				}
			}
		},
		"Division": {
			"type": "object",
			"x-tablename": "division",
			"properties": {
				"id": {"type": "integer", "x-primary-key": true},
				"code": {"type": "string", "maxLength": 8}
			}
		}
	}`)

	require.NoError(t, oasql.PlaceForeignKeys(schemas))

	employee, ok := schemas.Get("Employee")
	require.True(t, ok)
	properties := childSchema(t, employee.(oasql.Schema), "properties")
	column := childSchema(t, properties, "division_code")
	assert.Equal(t, "string", schemaGet(t, column, "type"))
	assert.Equal(t, "division.code", schemaGet(t, column, "x-foreign-key"))
}
