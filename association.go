package oasql

import (
	"bytes"
	"fmt"

	"github.com/gobuffalo/flect"
)

// SynthesizeAssociations walks every constructable schema, finds many to
// many relationship properties and constructs the association table each
// one implies. The table is added to the catalog as a schema of its own,
// under a name derived from the secondary tablename, and registered with
// the facade. Both steps are idempotent: running the synthesizer twice
// yields a byte identical catalog.
func SynthesizeAssociations(schemas Schemas, facade *Facade) error {
	for pair := schemas.Oldest(); pair != nil; pair = pair.Next() {
		schema, ok := asSchema(pair.Value)
		if !ok {
			continue
		}
		if !Constructable(schema, schemas) {
			continue
		}
		if err := synthesizeSchemaAssociations(schema, schemas, facade); err != nil {
			return err
		}
	}
	return nil
}

func synthesizeSchemaAssociations(schema Schema, schemas Schemas, facade *Facade) error {
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

	for pair := properties.Oldest(); pair != nil; pair = pair.Next() {
		property, ok := asSchema(pair.Value)
		if !ok {
			continue
		}
		classification, err := ClassifyProperty(property, schemas)
		if err != nil {
			return err
		}
		if classification.Kind != PropertyManyToMany {
			continue
		}

		child, ok := schemasGet(schemas, classification.Relationship.ModelName)
		if !ok {
			return fmt.Errorf(
				"%w: %s was not found in schemas.",
				ErrSchemaNotFound, classification.Relationship.ModelName,
			)
		}
		artifact, err := calculateAssociation(schema, child, schemas, classification.Relationship.Secondary)
		if err != nil {
			return err
		}
		if err := addAssociation(schemas, facade, artifact); err != nil {
			return err
		}
	}
	return nil
}

// calculateAssociation builds the association artifact for one many to many
// relationship: one foreign key column per side, each named
// <tablename>_<pk name> and referencing <tablename>.<pk name>.
func calculateAssociation(parent, child Schema, schemas Schemas, tablename string) (*AssociationArtifact, error) {
	parentColumn, err := manyToManyColumn(parent, schemas)
	if err != nil {
		return nil, err
	}
	childColumn, err := manyToManyColumn(child, schemas)
	if err != nil {
		return nil, err
	}
	return &AssociationArtifact{
		Tablename:    tablename,
		ParentColumn: *parentColumn,
		ChildColumn:  *childColumn,
	}, nil
}

// manyToManyColumn extracts the column descriptor for one side of a many to
// many relationship from that side's primary key.
func manyToManyColumn(schema Schema, schemas Schemas) (*ColumnDescriptor, error) {
	prepared, err := Prepare(schema, schemas)
	if err != nil {
		return nil, err
	}

	typeValue, ok := peekRaw(prepared, schemas, keyType)
	if !ok {
		return nil, fmt.Errorf("%w: Every schema must have a type.", ErrMalformedSchema)
	}
	schemaType, ok := typeValue.(string)
	if !ok || schemaType != "object" {
		return nil, fmt.Errorf(
			"%w: A schema that is part of a many to many relationship must be of type object.",
			ErrMalformedSchema,
		)
	}

	tablename, ok := PeekTablename(prepared, schemas)
	if !ok {
		return nil, fmt.Errorf(
			"%w: A schema that is part of a many to many relationship must set the x-tablename property.",
			ErrMalformedSchema,
		)
	}

	propertiesValue, ok := prepared.Get(keyProperties)
	if !ok {
		return nil, fmt.Errorf(
			"%w: A schema that is part of a many to many relationship must have properties.",
			ErrMalformedSchema,
		)
	}
	properties, ok := asSchema(propertiesValue)
	if !ok || properties.Len() == 0 {
		return nil, fmt.Errorf(
			"%w: A schema that is part of a many to many relationship must have at least 1 property.",
			ErrMalformedSchema,
		)
	}

	var descriptor *ColumnDescriptor
	for pair := properties.Oldest(); pair != nil; pair = pair.Next() {
		property, ok := asSchema(pair.Value)
		if !ok {
			continue
		}
		if !PeekPrimaryKey(property, schemas) {
			continue
		}
		if descriptor != nil {
			return nil, fmt.Errorf(
				"%w: A schema that is part of a many to many relationship must have exactly 1 primary key.",
				ErrMalformedSchema,
			)
		}

		propertyType, err := PeekType(property, schemas)
		if err != nil {
			return nil, fmt.Errorf(
				"%w: A schema that is part of a many to many relationship must define a type for the primary key.",
				ErrMalformedSchema,
			)
		}
		if propertyType == "object" || propertyType == "array" {
			return nil, fmt.Errorf(
				"%w: A schema that is part of a many to many relationship cannot define it's primary key to be of type object nor array.",
				ErrMalformedSchema,
			)
		}

		descriptor = &ColumnDescriptor{
			Name:       tablename + "_" + pair.Key,
			Type:       propertyType,
			ForeignKey: tablename + "." + pair.Key,
		}
		if format, ok := PeekFormat(property, schemas); ok {
			descriptor.Format = format
		}
		if maxLength, ok := PeekMaxLength(property, schemas); ok {
			descriptor.MaxLength = maxLength
			descriptor.HasMaxLength = true
		}
	}

	if descriptor == nil {
		return nil, fmt.Errorf(
			"%w: A schema that is part of a many to many relationship must have exactly 1 primary key.",
			ErrMalformedSchema,
		)
	}
	return descriptor, nil
}

// AssociationSchemaName derives the catalog name of an association entry
// from the secondary tablename: employee_project becomes EmployeeProject.
func AssociationSchemaName(tablename string) string {
	return flect.Pascalize(tablename)
}

// associationSchema builds the catalog entry for an association artifact.
func associationSchema(artifact *AssociationArtifact) Schema {
	properties := NewSchema()
	properties.Set(artifact.ParentColumn.Name, associationColumnSchema(artifact.ParentColumn))
	properties.Set(artifact.ChildColumn.Name, associationColumnSchema(artifact.ChildColumn))

	schema := NewSchema()
	schema.Set(keyType, "object")
	schema.Set(keyTablename, artifact.Tablename)
	schema.Set(keyProperties, properties)
	return schema
}

func associationColumnSchema(descriptor ColumnDescriptor) Schema {
	column := NewSchema()
	column.Set(keyType, descriptor.Type)
	if descriptor.Format != "" {
		column.Set(keyFormat, descriptor.Format)
	}
	if descriptor.HasMaxLength {
		column.Set(keyMaxLength, float64(descriptor.MaxLength))
	}
	column.Set(keyForeignKey, descriptor.ForeignKey)
	return column
}

// addAssociation adds the association entry to the catalog and registers the
// table with the facade. Synthesis is idempotent; a user schema occupying
// the synthesized name with different content is a conflict.
func addAssociation(schemas Schemas, facade *Facade, artifact *AssociationArtifact) error {
	name := AssociationSchemaName(artifact.Tablename)
	schema := associationSchema(artifact)

	if existing, ok := schemasGet(schemas, name); ok {
		existingJSON, err := EncodeJSON(existing)
		if err != nil {
			return err
		}
		schemaJSON, err := EncodeJSON(schema)
		if err != nil {
			return err
		}
		if !bytes.Equal(existingJSON, schemaJSON) {
			return fmt.Errorf(
				"%w: the schema %s already exists and does not match the association table %s",
				ErrMalformedSchema, name, artifact.Tablename,
			)
		}
	} else {
		schemas.Set(name, schema)
	}

	table := &Table{
		Name: artifact.Tablename,
		Columns: []*Column{
			facade.CreateColumn(artifact.ParentColumn),
			facade.CreateColumn(artifact.ChildColumn),
		},
	}
	return facade.RegisterAssociation(artifact.Tablename, table)
}
