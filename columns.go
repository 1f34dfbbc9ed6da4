package oasql

import "fmt"

// primaryKeyInfo captures the primary key of a constructable schema: what a
// foreign key referencing the schema needs to know.
type primaryKeyInfo struct {
	Type          string
	Format        string
	HasFormat     bool
	MaxLength     int
	HasMaxLength  bool
	Tablename     string
	ColumnName    string
	Autoincrement bool
}

// primaryKeyArtifacts finds the single primary key property of a schema.
// The schema is resolved and flattened first.
func primaryKeyArtifacts(schema Schema, schemas Schemas) (*primaryKeyInfo, error) {
	prepared, err := Prepare(schema, schemas)
	if err != nil {
		return nil, err
	}

	tablename, ok := PeekTablename(prepared, schemas)
	if !ok {
		return nil, fmt.Errorf(
			"%w: a schema referenced by a foreign key must set the x-tablename property",
			ErrMalformedSchema,
		)
	}

	propertiesValue, ok := prepared.Get(keyProperties)
	if !ok {
		return nil, fmt.Errorf(
			"%w: the schema for table %s has no properties", ErrMalformedSchema, tablename,
		)
	}
	properties, ok := asSchema(propertiesValue)
	if !ok {
		return nil, fmt.Errorf(
			"%w: the value of properties must be an object", ErrMalformedSchema,
		)
	}

	var info *primaryKeyInfo
	for pair := properties.Oldest(); pair != nil; pair = pair.Next() {
		property, ok := asSchema(pair.Value)
		if !ok {
			continue
		}
		if !PeekPrimaryKey(property, schemas) {
			continue
		}
		if info != nil {
			return nil, fmt.Errorf(
				"%w: the schema for table %s must have exactly 1 primary key",
				ErrMalformedSchema, tablename,
			)
		}

		propertyType, err := PeekType(property, schemas)
		if err != nil {
			return nil, fmt.Errorf(
				"%w: the primary key of table %s must define a type",
				ErrMalformedSchema, tablename,
			)
		}
		info = &primaryKeyInfo{
			Type:       propertyType,
			Tablename:  tablename,
			ColumnName: pair.Key,
		}
		if format, ok := PeekFormat(property, schemas); ok {
			info.Format = format
			info.HasFormat = true
		}
		if maxLength, ok := PeekMaxLength(property, schemas); ok {
			info.MaxLength = maxLength
			info.HasMaxLength = true
		}
		if autoincrement, ok := PeekAutoincrement(property, schemas); ok {
			info.Autoincrement = autoincrement
		} else {
			info.Autoincrement = propertyType == "integer"
		}
	}

	if info == nil {
		return nil, fmt.Errorf(
			"%w: the schema for table %s must have exactly 1 primary key",
			ErrMalformedSchema, tablename,
		)
	}
	return info, nil
}

// columnProperty looks up a named column of a schema and returns it as
// primaryKeyInfo shaped data, for x-foreign-key-column overrides.
func columnProperty(schema Schema, schemas Schemas, columnName string) (*primaryKeyInfo, error) {
	prepared, err := Prepare(schema, schemas)
	if err != nil {
		return nil, err
	}
	tablename, ok := PeekTablename(prepared, schemas)
	if !ok {
		return nil, fmt.Errorf(
			"%w: a schema referenced by a foreign key must set the x-tablename property",
			ErrMalformedSchema,
		)
	}
	propertiesValue, ok := prepared.Get(keyProperties)
	if !ok {
		return nil, fmt.Errorf(
			"%w: the schema for table %s has no properties", ErrMalformedSchema, tablename,
		)
	}
	properties, ok := asSchema(propertiesValue)
	if !ok {
		return nil, fmt.Errorf("%w: the value of properties must be an object", ErrMalformedSchema)
	}
	propertyValue, ok := properties.Get(columnName)
	if !ok {
		return nil, fmt.Errorf(
			"%w: the column %s referenced by x-foreign-key-column was not found on table %s",
			ErrMalformedSchema, columnName, tablename,
		)
	}
	property, ok := asSchema(propertyValue)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a schema", ErrMalformedSchema, columnName)
	}

	propertyType, err := PeekType(property, schemas)
	if err != nil {
		return nil, err
	}
	info := &primaryKeyInfo{
		Type:       propertyType,
		Tablename:  tablename,
		ColumnName: columnName,
	}
	if format, ok := PeekFormat(property, schemas); ok {
		info.Format = format
		info.HasFormat = true
	}
	if maxLength, ok := PeekMaxLength(property, schemas); ok {
		info.MaxLength = maxLength
		info.HasMaxLength = true
	}
	return info, nil
}

// foreignKeyColumnSchema builds the schema node for a synthesized foreign
// key column.
func foreignKeyColumnSchema(info *primaryKeyInfo, nullable bool) Schema {
	column := NewSchema()
	column.Set(keyType, info.Type)
	if info.HasFormat {
		column.Set(keyFormat, info.Format)
	}
	if info.HasMaxLength {
		column.Set(keyMaxLength, float64(info.MaxLength))
	}
	column.Set(keyNullable, nullable)
	column.Set(keyForeignKey, info.Tablename+"."+info.ColumnName)
	return column
}
