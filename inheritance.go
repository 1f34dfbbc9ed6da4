package oasql

import "fmt"

// InheritanceType labels how a constructable schema maps onto tables.
type InheritanceType int

const (
	// InheritanceNone marks a standalone schema with no parent reference.
	InheritanceNone InheritanceType = iota
	// InheritanceSingleTable marks a child stored in its parent's table.
	InheritanceSingleTable
	// InheritanceJoinedTable marks a child with a table of its own joined to
	// the parent's by foreign key.
	InheritanceJoinedTable
)

// String implements fmt.Stringer.
func (t InheritanceType) String() string {
	switch t {
	case InheritanceSingleTable:
		return "single-table"
	case InheritanceJoinedTable:
		return "joined-table"
	default:
		return "none"
	}
}

// Constructable reports whether the schema produces a table: x-tablename is
// set directly, through a reference or through allOf composition.
func Constructable(schema Schema, schemas Schemas) bool {
	if schema == nil {
		return false
	}
	if _, ok := schema.Get(keyTablename); ok {
		return true
	}
	if _, ok := peekRaw(schema, schemas, keyTablename); ok {
		return true
	}

	allOfValue, ok := schema.Get(keyAllOf)
	if !ok {
		return false
	}
	children, ok := allOfValue.([]any)
	if !ok {
		return false
	}
	for _, childValue := range children {
		child, ok := asSchema(childValue)
		if !ok {
			continue
		}
		if _, resolved, err := Resolve("", child, schemas); err == nil {
			if Constructable(resolved, schemas) {
				return true
			}
		}
	}
	return false
}

// CalculateInheritance classifies a constructable schema and names its
// parent when one exists.
//
//   - no x-inherits, or x-inherits false: standalone.
//   - x-inherits set and the parent's tablename equals the merged tablename:
//     single table child.
//   - x-inherits set and the child declares a tablename of its own: joined
//     table child.
func CalculateInheritance(schema Schema, schemas Schemas) (InheritanceType, string, error) {
	inherits, ok := PreferLocal(inheritsGetter, schema, schemas)
	if !ok {
		return InheritanceNone, "", nil
	}

	var parentConstraint string
	switch value := inherits.(type) {
	case bool:
		if !value {
			return InheritanceNone, "", nil
		}
	case string:
		parentConstraint = value
	default:
		return InheritanceNone, "", fmt.Errorf(
			"%w: x-inherits must be a boolean or the name of the parent schema",
			ErrMalformedSchema,
		)
	}

	parentName, parentSchema, err := findParent(schema, schemas, parentConstraint)
	if err != nil {
		return InheritanceNone, "", err
	}

	parentPrepared, err := Prepare(parentSchema, schemas)
	if err != nil {
		return InheritanceNone, "", err
	}
	parentTablename, ok := PeekTablename(parentPrepared, schemas)
	if !ok {
		return InheritanceNone, "", fmt.Errorf(
			"%w: the parent %s of an inheriting schema must set x-tablename",
			ErrMalformedSchema, parentName,
		)
	}

	if localTablename, declaresOwn := localValue(tablenameGetter, schema, schemas); declaresOwn {
		if tablename, ok := localTablename.(string); ok && tablename != parentTablename {
			return InheritanceJoinedTable, parentName, nil
		}
	}

	merged, err := Prepare(schema, schemas)
	if err != nil {
		return InheritanceNone, "", err
	}
	mergedTablename, _ := PeekTablename(merged, schemas)
	if mergedTablename == parentTablename {
		return InheritanceSingleTable, parentName, nil
	}
	return InheritanceJoinedTable, parentName, nil
}

// findParent locates the constructable schema referenced through allOf. When
// constraint is non empty the parent must carry that name.
func findParent(schema Schema, schemas Schemas, constraint string) (string, Schema, error) {
	allOfValue, ok := schema.Get(keyAllOf)
	if !ok {
		return "", nil, fmt.Errorf(
			"%w: a schema that sets x-inherits must reference its parent through allOf",
			ErrMalformedSchema,
		)
	}
	children, ok := allOfValue.([]any)
	if !ok {
		return "", nil, fmt.Errorf("%w: The value of allOf must be a list.", ErrMalformedSchema)
	}

	for _, childValue := range children {
		child, ok := asSchema(childValue)
		if !ok {
			continue
		}
		if _, isRef := child.Get(keyRef); !isRef {
			continue
		}
		name, resolved, err := Resolve("", child, schemas)
		if err != nil {
			return "", nil, err
		}
		if !Constructable(resolved, schemas) {
			continue
		}
		if constraint != "" && name != constraint {
			continue
		}
		return name, resolved, nil
	}

	if constraint != "" {
		return "", nil, fmt.Errorf(
			"%w: the parent %s was not found in the allOf references of the schema",
			ErrMalformedSchema, constraint,
		)
	}
	return "", nil, fmt.Errorf(
		"%w: a schema that sets x-inherits must reference a constructable parent through allOf",
		ErrMalformedSchema,
	)
}

// inheritsGetter adapts PeekInherits to the Getter shape.
func inheritsGetter(schema Schema, schemas Schemas) (any, bool) {
	return peekRaw(schema, schemas, keyInherits)
}

// checkInheritance enforces the structural rules on inheriting schemas:
// single table children must not redeclare the parent's primary key, joined
// table children must declare a foreign key column referencing it.
func checkInheritance(name string, schema Schema, schemas Schemas) error {
	inheritanceType, parentName, err := CalculateInheritance(schema, schemas)
	if err != nil {
		return err
	}
	if inheritanceType == InheritanceNone {
		return nil
	}

	parentSchema, ok := schemasGet(schemas, parentName)
	if !ok {
		return fmt.Errorf("%w: %s was not found in schemas.", ErrSchemaNotFound, parentName)
	}
	parentPK, err := primaryKeyArtifacts(parentSchema, schemas)
	if err != nil {
		return err
	}

	switch inheritanceType {
	case InheritanceSingleTable:
		if localDeclaresPrimaryKey(schema, schemas) {
			return fmt.Errorf(
				"%w: %s is a single table child and must not redeclare the primary key of %s",
				ErrMalformedSchema, name, parentName,
			)
		}
	case InheritanceJoinedTable:
		target := parentPK.Tablename + "." + parentPK.ColumnName
		if !localDeclaresForeignKey(schema, schemas, target) {
			return fmt.Errorf(
				"%w: %s is a joined table child and must declare a foreign key column referencing %s",
				ErrMalformedSchema, name, target,
			)
		}
	}
	return nil
}

// localDeclaresPrimaryKey reports whether the non inherited part of the
// schema carries a primary key property.
func localDeclaresPrimaryKey(schema Schema, schemas Schemas) bool {
	properties, ok := localProperties(schema)
	if !ok {
		return false
	}
	for pair := properties.Oldest(); pair != nil; pair = pair.Next() {
		property, ok := asSchema(pair.Value)
		if !ok {
			continue
		}
		if PeekPrimaryKey(property, schemas) {
			return true
		}
	}
	return false
}

// localDeclaresForeignKey reports whether the non inherited part of the
// schema carries a property whose x-foreign-key matches target.
func localDeclaresForeignKey(schema Schema, schemas Schemas, target string) bool {
	properties, ok := localProperties(schema)
	if !ok {
		return false
	}
	for pair := properties.Oldest(); pair != nil; pair = pair.Next() {
		property, ok := asSchema(pair.Value)
		if !ok {
			continue
		}
		if foreignKey, ok := PeekForeignKey(property, schemas); ok && foreignKey == target {
			return true
		}
	}
	return false
}

// localProperties gathers the properties declared on the schema itself and
// on its non reference allOf children.
func localProperties(schema Schema) (Schema, bool) {
	gathered := NewSchema()
	collectLocalProperties(schema, gathered)
	if gathered.Len() == 0 {
		return nil, false
	}
	return gathered, true
}

func collectLocalProperties(schema Schema, gathered Schema) {
	if schema == nil {
		return
	}
	if _, isRef := schema.Get(keyRef); isRef {
		return
	}
	if propertiesValue, ok := schema.Get(keyProperties); ok {
		if properties, ok := asSchema(propertiesValue); ok {
			for pair := properties.Oldest(); pair != nil; pair = pair.Next() {
				gathered.Set(pair.Key, pair.Value)
			}
		}
	}
	allOfValue, ok := schema.Get(keyAllOf)
	if !ok {
		return
	}
	children, ok := allOfValue.([]any)
	if !ok {
		return
	}
	for _, childValue := range children {
		if child, ok := asSchema(childValue); ok {
			collectLocalProperties(child, gathered)
		}
	}
}
