package oasql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oasql/oasql"
)

func TestCheckModel(t *testing.T) {
	tests := []struct {
		name    string
		schema  string
		schemas string
		reason  string
	}{
		{
			name:    "empty",
			schema:  `{}`,
			schemas: `{}`,
			reason:  `no "type" key was found, define a type`,
		},
		{
			name:    "type value not string",
			schema:  `{"type": true}`,
			schemas: `{}`,
			reason:  "the type value is true, change it to a string value",
		},
		{
			name:    "type value number",
			schema:  `{"type": 1}`,
			schemas: `{}`,
			reason:  "the type value is 1, change it to a string value",
		},
		{
			name:    "type not object",
			schema:  `{"type": "not object"}`,
			schemas: `{}`,
			reason:  `the type of the schema is "not object", change it to be "object"`,
		},
		{
			name:    "$ref not string",
			schema:  `{"$ref": true}`,
			schemas: `{}`,
			reason:  "malformed schema :: The value of $ref must ba a string. ",
		},
		{
			name:    "$ref unresolved",
			schema:  `{"$ref": "#/components/schemas/RefSchema"}`,
			schemas: `{}`,
			reason:  "reference :: 'RefSchema was not found in schemas.' ",
		},
		{
			name:    "$ref type not object",
			schema:  `{"$ref": "#/components/schemas/RefSchema"}`,
			schemas: `{"RefSchema": {"type": "not object"}}`,
			reason:  `the type of the schema is "not object", change it to be "object"`,
		},
		{
			name:    "allOf not list",
			schema:  `{"allOf": true}`,
			schemas: `{}`,
			reason:  "malformed schema :: The value of allOf must be a list. ",
		},
		{
			name:    "allOf not object",
			schema:  `{"allOf": [{"type": "not object"}]}`,
			schemas: `{}`,
			reason:  `the type of the schema is "not object", change it to be "object"`,
		},
		{
			name:    "tablename not present",
			schema:  `{"type": "object"}`,
			schemas: `{}`,
			reason:  `no "x-tablename" key was found, define the name of the table`,
		},
		{
			name:    "$ref tablename not present",
			schema:  `{"$ref": "#/components/schemas/RefSchema"}`,
			schemas: `{"RefSchema": {"type": "object"}}`,
			reason:  `no "x-tablename" key was found, define the name of the table`,
		},
		{
			name:    "allOf tablename not present",
			schema:  `{"allOf": [{"type": "object"}]}`,
			schemas: `{}`,
			reason:  `no "x-tablename" key was found, define the name of the table`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema := mustSchema(t, tt.schema)
			schemas := mustSchemas(t, tt.schemas)

			result := oasql.CheckModel(schemas, schema)

			assert.False(t, result.Result.Valid)
			assert.Equal(t, tt.reason, result.Result.Reason)
		})
	}
}

func TestCheckModelValid(t *testing.T) {
	schema := mustSchema(t, `{"type": "object", "x-tablename": "employee"}`)

	result := oasql.CheckModel(mustSchemas(t, `{}`), schema)

	assert.True(t, result.Result.Valid)
	assert.Empty(t, result.Result.Reason)
}

func TestCheckModels(t *testing.T) {
	tests := []struct {
		name    string
		schemas string
		reasons map[string]string
	}{
		{
			name:    "empty",
			schemas: `{}`,
			reasons: map[string]string{},
		},
		{
			name:    "single constructable",
			schemas: `{"Schema1": {"x-tablename": true}}`,
			reasons: map[string]string{},
		},
		{
			name:    "single not constructable",
			schemas: `{"Schema1": {}}`,
			reasons: map[string]string{
				"Schema1": `no "type" key was found, define a type`,
			},
		},
		{
			name:    "multiple all constructable",
			schemas: `{"Schema1": {"x-tablename": true}, "Schema2": {"x-tablename": true}}`,
			reasons: map[string]string{},
		},
		{
			name:    "multiple first not constructable",
			schemas: `{"Schema1": {}, "Schema2": {"x-tablename": true}}`,
			reasons: map[string]string{
				"Schema1": `no "type" key was found, define a type`,
			},
		},
		{
			name:    "multiple all not constructable",
			schemas: `{"Schema1": {}, "Schema2": {"type": "object"}}`,
			reasons: map[string]string{
				"Schema1": `no "type" key was found, define a type`,
				"Schema2": `no "x-tablename" key was found, define the name of the table`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schemas := mustSchemas(t, tt.schemas)

			results := oasql.CheckModels(schemas)

			assert.Len(t, results, len(tt.reasons))
			for name, reason := range tt.reasons {
				result, ok := results[name]
				assert.True(t, ok, "expected a verdict for %s", name)
				assert.False(t, result.Result.Valid)
				assert.Equal(t, reason, result.Result.Reason)
			}
		})
	}
}
