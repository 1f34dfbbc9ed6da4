package oasql

// OpenAPI keywords consumed by the pipeline.
const (
	keyRef         = "$ref"
	keyAllOf       = "allOf"
	keyType        = "type"
	keyFormat      = "format"
	keyNullable    = "nullable"
	keyProperties  = "properties"
	keyRequired    = "required"
	keyItems       = "items"
	keyMaxLength   = "maxLength"
	keyDescription = "description"
)

// Extension keywords. These carry the SQL mapping information that plain
// OpenAPI has no vocabulary for.
const (
	keyTablename        = "x-tablename"
	keyInherits         = "x-inherits"
	keyPrimaryKey       = "x-primary-key"
	keyAutoincrement    = "x-autoincrement"
	keyForeignKey       = "x-foreign-key"
	keyForeignKeyColumn = "x-foreign-key-column"
	keySecondary        = "x-secondary"
	keyBackref          = "x-backref"
	keyUselist          = "x-uselist"
	keyJSON             = "x-json"
	keyKwargs           = "x-kwargs"
	keyServerDefault    = "x-server-default"
	keyCompositeIndex   = "x-composite-index"
	keyCompositeUnique  = "x-composite-unique"
)

// identityKeys are the keys the allOf merger treats as identity valued: two
// children contributing different non-null values is a conflict rather than
// an override.
var identityKeys = map[string]struct{}{
	keyType: {},
}

// primitiveTypes are the schema types that map directly onto columns.
var primitiveTypes = map[string]struct{}{
	"integer": {},
	"number":  {},
	"string":  {},
	"boolean": {},
}
