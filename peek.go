package oasql

import "fmt"

// Peek readers return a schema property without flattening the schema. A
// reader looks at the schema itself and, when the property is absent,
// traverses at most one $ref before giving up. All readers are pure.

// peekRaw reads key from schema, following a single $ref hop.
func peekRaw(schema Schema, schemas Schemas, key string) (any, bool) {
	if schema == nil {
		return nil, false
	}
	if value, ok := schema.Get(key); ok {
		return value, true
	}

	refValue, ok := schema.Get(keyRef)
	if !ok {
		return nil, false
	}
	ref, ok := refValue.(string)
	if !ok {
		return nil, false
	}
	_, refSchema, err := getRef(ref, schemas)
	if err != nil {
		return nil, false
	}
	value, ok := refSchema.Get(key)
	return value, ok
}

// peekString reads key as a string value.
func peekString(schema Schema, schemas Schemas, key string) (string, bool) {
	value, ok := peekRaw(schema, schemas, key)
	if !ok {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}

// peekBool reads key as a boolean value.
func peekBool(schema Schema, schemas Schemas, key string) (bool, bool) {
	value, ok := peekRaw(schema, schemas, key)
	if !ok {
		return false, false
	}
	b, ok := value.(bool)
	return b, ok
}

// PeekType returns the type of the schema. A schema without a type fails
// with ErrTypeMissing; a non string type fails with ErrMalformedSchema.
func PeekType(schema Schema, schemas Schemas) (string, error) {
	value, ok := peekRaw(schema, schemas, keyType)
	if !ok {
		return "", fmt.Errorf("%w: every schema must have a type", ErrTypeMissing)
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: the type value is %s, change it to a string value", ErrMalformedSchema, renderValue(value))
	}
	return s, nil
}

// PeekFormat returns the format of the schema, if any.
func PeekFormat(schema Schema, schemas Schemas) (string, bool) {
	return peekString(schema, schemas, keyFormat)
}

// PeekNullable returns the nullable flag of the schema, if any.
func PeekNullable(schema Schema, schemas Schemas) (bool, bool) {
	return peekBool(schema, schemas, keyNullable)
}

// PeekPrimaryKey reports whether the schema is marked as a primary key.
func PeekPrimaryKey(schema Schema, schemas Schemas) bool {
	b, ok := peekBool(schema, schemas, keyPrimaryKey)
	return ok && b
}

// PeekAutoincrement returns the x-autoincrement flag, if any.
func PeekAutoincrement(schema Schema, schemas Schemas) (bool, bool) {
	return peekBool(schema, schemas, keyAutoincrement)
}

// PeekTablename returns the x-tablename of the schema, if any.
func PeekTablename(schema Schema, schemas Schemas) (string, bool) {
	return peekString(schema, schemas, keyTablename)
}

// PeekForeignKey returns the x-foreign-key of the schema, if any.
func PeekForeignKey(schema Schema, schemas Schemas) (string, bool) {
	return peekString(schema, schemas, keyForeignKey)
}

// PeekForeignKeyColumn returns the x-foreign-key-column of the schema.
func PeekForeignKeyColumn(schema Schema, schemas Schemas) (string, bool) {
	return peekString(schema, schemas, keyForeignKeyColumn)
}

// PeekMaxLength returns the maxLength of the schema, if any.
func PeekMaxLength(schema Schema, schemas Schemas) (int, bool) {
	value, ok := peekRaw(schema, schemas, keyMaxLength)
	if !ok {
		return 0, false
	}
	f, ok := value.(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// PeekDescription returns the description of the schema, if any.
func PeekDescription(schema Schema, schemas Schemas) (string, bool) {
	return peekString(schema, schemas, keyDescription)
}

// PeekJSON returns the x-json flag of the schema, if any.
func PeekJSON(schema Schema, schemas Schemas) (bool, bool) {
	return peekBool(schema, schemas, keyJSON)
}

// PeekKwargs returns the x-kwargs mapping of the schema, if any.
func PeekKwargs(schema Schema, schemas Schemas) (Schema, bool) {
	value, ok := peekRaw(schema, schemas, keyKwargs)
	if !ok {
		return nil, false
	}
	return asSchema(value)
}

// PeekServerDefault returns the x-server-default of the schema, if any.
func PeekServerDefault(schema Schema, schemas Schemas) (string, bool) {
	return peekString(schema, schemas, keyServerDefault)
}

// PeekSecondary returns the x-secondary of the schema, if any.
func PeekSecondary(schema Schema, schemas Schemas) (string, bool) {
	return peekString(schema, schemas, keySecondary)
}

// PeekBackref returns the x-backref of the schema, if any.
func PeekBackref(schema Schema, schemas Schemas) (string, bool) {
	return peekString(schema, schemas, keyBackref)
}

// PeekUselist returns the x-uselist of the schema, if any.
func PeekUselist(schema Schema, schemas Schemas) (bool, bool) {
	return peekBool(schema, schemas, keyUselist)
}

// PeekInherits returns the x-inherits value: either a boolean or the name of
// the parent schema.
func PeekInherits(schema Schema, schemas Schemas) (any, bool) {
	return peekRaw(schema, schemas, keyInherits)
}

// Getter reads one property from a schema.
type Getter func(schema Schema, schemas Schemas) (any, bool)

// PreferLocal returns the first value of get along the local traversal of
// the schema: the schema itself first, then allOf children that are not
// plain references, in order. Referenced (inherited) children are skipped.
// When no local value exists the standard getter, including its $ref hop,
// decides.
func PreferLocal(get Getter, schema Schema, schemas Schemas) (any, bool) {
	if value, ok := localValue(get, schema, schemas); ok {
		return value, true
	}
	return get(schema, schemas)
}

func localValue(get Getter, schema Schema, schemas Schemas) (any, bool) {
	if schema == nil {
		return nil, false
	}
	if _, isRef := schema.Get(keyRef); !isRef {
		// Read without the $ref hop: a bare node carrying the key wins.
		single := NewSchemas()
		if value, ok := get(schema, single); ok {
			return value, true
		}
	}

	allOfValue, ok := schema.Get(keyAllOf)
	if !ok {
		return nil, false
	}
	children, ok := allOfValue.([]any)
	if !ok {
		return nil, false
	}
	for _, childValue := range children {
		child, ok := asSchema(childValue)
		if !ok {
			continue
		}
		if _, isRef := child.Get(keyRef); isRef {
			continue
		}
		if value, ok := localValue(get, child, schemas); ok {
			return value, true
		}
	}
	return nil, false
}

// tablenameGetter adapts PeekTablename to the Getter shape.
func tablenameGetter(schema Schema, schemas Schemas) (any, bool) {
	value, ok := peekRaw(schema, schemas, keyTablename)
	return value, ok
}
