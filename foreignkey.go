package oasql

import "fmt"

// PlaceForeignKeys walks every constructable schema and synthesizes the
// foreign key columns its relationship properties imply:
//
//   - object-ref from A to B: column <property>_<pk of B> on A referencing
//     <B.tablename>.<B.pk>.
//   - array-ref from A to B: column <A.tablename>_<A.pk> on B referencing
//     <A.tablename>.<A.pk>.
//
// A synthesized column is nullable unless the property is required. Columns
// already present with the same foreign key target are left alone, so the
// pass is idempotent. Many to many properties are handled by association
// synthesis, not here.
func PlaceForeignKeys(schemas Schemas) error {
	for pair := schemas.Oldest(); pair != nil; pair = pair.Next() {
		schema, ok := asSchema(pair.Value)
		if !ok {
			continue
		}
		if !Constructable(schema, schemas) {
			continue
		}
		if err := placeSchemaForeignKeys(pair.Key, schema, schemas); err != nil {
			return err
		}
	}
	return nil
}

func placeSchemaForeignKeys(name string, schema Schema, schemas Schemas) error {
	merged, err := Prepare(schema, schemas)
	if err != nil {
		return err
	}
	propertiesValue, ok := merged.Get(keyProperties)
	if !ok {
		return nil
	}
	properties, ok := asSchema(propertiesValue)
	if !ok {
		return fmt.Errorf("%w: the value of properties must be an object", ErrMalformedSchema)
	}

	requiredValue, _ := merged.Get(keyRequired)

	for pair := properties.Oldest(); pair != nil; pair = pair.Next() {
		property, ok := asSchema(pair.Value)
		if !ok {
			continue
		}
		classification, err := ClassifyProperty(property, schemas)
		if err != nil {
			return err
		}
		if classification.Relationship == nil {
			continue
		}

		required := containsString(requiredValue, pair.Key)
		relationship := classification.Relationship

		switch classification.Kind {
		case PropertyObjectRef:
			err = placeToOneForeignKey(schema, pair.Key, relationship, required, schemas)
		case PropertyArrayRef:
			err = placeToManyForeignKey(name, schema, relationship, required, schemas)
		default:
			// Many to many: the association synthesizer owns the columns.
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// placeToOneForeignKey adds the foreign key column for an object reference
// to the referring schema.
func placeToOneForeignKey(schema Schema, propertyName string, relationship *RelationshipArtifact, required bool, schemas Schemas) error {
	referenced, ok := schemasGet(schemas, relationship.ModelName)
	if !ok {
		return fmt.Errorf("%w: %s was not found in schemas.", ErrSchemaNotFound, relationship.ModelName)
	}

	var info *primaryKeyInfo
	var err error
	if relationship.FKColumn != "" {
		info, err = columnProperty(referenced, schemas, relationship.FKColumn)
	} else {
		info, err = primaryKeyArtifacts(referenced, schemas)
	}
	if err != nil {
		return err
	}

	columnName := propertyName + "_" + info.ColumnName
	return addForeignKeyColumn(schema, columnName, info, !required, schemas)
}

// placeToManyForeignKey adds the foreign key column for an array reference
// to the referenced schema.
func placeToManyForeignKey(name string, schema Schema, relationship *RelationshipArtifact, required bool, schemas Schemas) error {
	info, err := primaryKeyArtifacts(schema, schemas)
	if err != nil {
		return fmt.Errorf("%w (one to many parent %s)", err, name)
	}

	referenced, ok := schemasGet(schemas, relationship.ModelName)
	if !ok {
		return fmt.Errorf("%w: %s was not found in schemas.", ErrSchemaNotFound, relationship.ModelName)
	}

	columnName := info.Tablename + "_" + info.ColumnName
	return addForeignKeyColumn(referenced, columnName, info, !required, schemas)
}

// addForeignKeyColumn appends a synthesized column to the schema's directly
// declared properties. Re-adding a column whose foreign key already matches
// is a no-op; a name collision with a different target is an error.
func addForeignKeyColumn(schema Schema, columnName string, info *primaryKeyInfo, nullable bool, schemas Schemas) error {
	target := info.Tablename + "." + info.ColumnName

	merged, err := Prepare(schema, schemas)
	if err != nil {
		return err
	}
	if propertiesValue, ok := merged.Get(keyProperties); ok {
		if properties, ok := asSchema(propertiesValue); ok {
			if existingValue, ok := properties.Get(columnName); ok {
				existing, ok := asSchema(existingValue)
				if !ok {
					return fmt.Errorf("%w: %s is not a schema", ErrMalformedSchema, columnName)
				}
				existingTarget, _ := PeekForeignKey(existing, schemas)
				if existingTarget == target {
					return nil
				}
				return fmt.Errorf(
					"%w: the column %s already exists with a foreign key to %s, expected %s",
					ErrMalformedSchema, columnName, existingTarget, target,
				)
			}
		}
	}

	directValue, ok := schema.Get(keyProperties)
	var direct Schema
	if ok {
		direct, ok = asSchema(directValue)
	}
	if !ok {
		direct = NewSchema()
		schema.Set(keyProperties, direct)
	}
	direct.Set(columnName, foreignKeyColumnSchema(info, nullable))
	return nil
}
