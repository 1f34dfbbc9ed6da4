package oasql

import "fmt"

// PropertyKind classifies a property of a constructable schema.
type PropertyKind int

const (
	// PropertyColumn maps onto a plain column.
	PropertyColumn PropertyKind = iota
	// PropertyObjectRef is a to one reference to another object schema.
	PropertyObjectRef
	// PropertyArrayRef is a one to many reference through an array.
	PropertyArrayRef
	// PropertyManyToMany is an array reference routed through an
	// association table.
	PropertyManyToMany
)

// String implements fmt.Stringer.
func (k PropertyKind) String() string {
	switch k {
	case PropertyObjectRef:
		return "object-ref"
	case PropertyArrayRef:
		return "array-ref"
	case PropertyManyToMany:
		return "many-to-many"
	default:
		return "column"
	}
}

// RelationshipKind is the cardinality of a relationship property.
type RelationshipKind string

const (
	// OneToOne links a single row on each side.
	OneToOne RelationshipKind = "one-to-one"
	// OneToMany links one parent row to many child rows.
	OneToMany RelationshipKind = "one-to-many"
	// ManyToOne links many parent rows to one child row.
	ManyToOne RelationshipKind = "many-to-one"
	// ManyToMany links rows through an association table.
	ManyToMany RelationshipKind = "many-to-many"
)

// RelationshipArtifact is everything the facade needs to construct a
// relationship object.
type RelationshipArtifact struct {
	Kind      RelationshipKind
	ModelName string
	Backref   string
	Uselist   *bool
	Secondary string
	FKColumn  string
}

// Classification is the outcome of classifying one property.
type Classification struct {
	Kind         PropertyKind
	Relationship *RelationshipArtifact
}

// ClassifyProperty decides how one property of a constructable schema maps
// onto the relational model. The property schema is resolved and flattened
// first; the decision table is:
//
//	primitive type                                column
//	object with x-tablename                       object-ref (to one)
//	array of objects with x-tablename             array-ref (one to many)
//	array of objects with x-secondary             many-to-many
//
// x-json marks a column regardless of declared type.
func ClassifyProperty(property Schema, schemas Schemas) (*Classification, error) {
	if isJSON, ok := PeekJSON(property, schemas); ok && isJSON {
		return &Classification{Kind: PropertyColumn}, nil
	}

	prepared, err := Prepare(property, schemas)
	if err != nil {
		return nil, err
	}

	propertyType, err := PeekType(prepared, schemas)
	if err != nil {
		return nil, err
	}

	if _, primitive := primitiveTypes[propertyType]; primitive {
		return &Classification{Kind: PropertyColumn}, nil
	}

	switch propertyType {
	case "object":
		return classifyObject(property, prepared, schemas)
	case "array":
		return classifyArray(property, prepared, schemas)
	}
	return nil, fmt.Errorf(
		"%w: %q is not a supported property type", ErrMalformedSchema, propertyType,
	)
}

// refTarget finds the schema a relationship property references: a direct
// $ref, or the single $ref child of an allOf composition. The name is the
// final name of the reference chain.
func refTarget(property Schema, schemas Schemas) (string, Schema, error) {
	if _, ok := property.Get(keyRef); ok {
		return Resolve("", property, schemas)
	}

	allOfValue, ok := property.Get(keyAllOf)
	if !ok {
		return "", nil, nil
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
		if _, isRef := child.Get(keyRef); isRef {
			return Resolve("", child, schemas)
		}
	}
	return "", nil, nil
}

// classifyObject handles to one references.
func classifyObject(property, prepared Schema, schemas Schemas) (*Classification, error) {
	if _, ok := PeekTablename(prepared, schemas); !ok {
		return nil, fmt.Errorf(
			"%w: a referenced object schema must set x-tablename", ErrMalformedSchema,
		)
	}

	modelName, target, err := refTarget(property, schemas)
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		return nil, fmt.Errorf(
			"%w: an object relationship must reference another schema through $ref",
			ErrMalformedSchema,
		)
	}

	uselist, err := resolveUselist(property, target, schemas)
	if err != nil {
		return nil, err
	}

	kind := ManyToOne
	if uselist != nil && !*uselist {
		kind = OneToOne
	}

	artifact := &RelationshipArtifact{
		Kind:      kind,
		ModelName: modelName,
		Uselist:   uselist,
	}
	if backref, ok := PeekBackref(prepared, schemas); ok {
		artifact.Backref = backref
	}
	if fkColumn, ok := PeekForeignKeyColumn(prepared, schemas); ok {
		artifact.FKColumn = fkColumn
	}
	return &Classification{Kind: PropertyObjectRef, Relationship: artifact}, nil
}

// classifyArray handles one to many and many to many references.
func classifyArray(property, prepared Schema, schemas Schemas) (*Classification, error) {
	if uselist, ok := PeekUselist(prepared, schemas); ok && !uselist {
		return nil, fmt.Errorf(
			"%w: x-uselist cannot be False on an array typed property", ErrMalformedSchema,
		)
	}

	itemsValue, ok := prepared.Get(keyItems)
	if !ok {
		return nil, fmt.Errorf(
			"%w: an array typed property must define items", ErrMalformedSchema,
		)
	}
	items, ok := asSchema(itemsValue)
	if !ok {
		return nil, fmt.Errorf(
			"%w: the items of an array typed property must be a schema", ErrMalformedSchema,
		)
	}

	preparedItems, err := Prepare(items, schemas)
	if err != nil {
		return nil, err
	}
	itemsType, err := PeekType(preparedItems, schemas)
	if err != nil {
		return nil, err
	}
	if itemsType != "object" {
		return nil, fmt.Errorf(
			"%w: the items of an array relationship must be of type object", ErrMalformedSchema,
		)
	}
	if _, ok := PeekTablename(preparedItems, schemas); !ok {
		return nil, fmt.Errorf(
			"%w: the items of an array relationship must set x-tablename", ErrMalformedSchema,
		)
	}

	modelName, _, err := refTarget(items, schemas)
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		return nil, fmt.Errorf(
			"%w: the items of an array relationship must reference another schema through $ref",
			ErrMalformedSchema,
		)
	}

	artifact := &RelationshipArtifact{Kind: OneToMany, ModelName: modelName}
	if backref, ok := PeekBackref(prepared, schemas); ok {
		artifact.Backref = backref
	} else if backref, ok := PeekBackref(items, schemas); ok {
		artifact.Backref = backref
	}
	if fkColumn, ok := PeekForeignKeyColumn(prepared, schemas); ok {
		artifact.FKColumn = fkColumn
	}

	secondary, ok := PeekSecondary(prepared, schemas)
	if !ok {
		secondary, ok = PeekSecondary(items, schemas)
	}
	if ok {
		artifact.Kind = ManyToMany
		artifact.Secondary = secondary
		return &Classification{Kind: PropertyManyToMany, Relationship: artifact}, nil
	}
	return &Classification{Kind: PropertyArrayRef, Relationship: artifact}, nil
}

// resolveUselist reads x-uselist from both ends of a to one relationship:
// locally on the property and on the referenced schema. One end declaring
// it decides; both ends declaring different values is a conflict.
func resolveUselist(property, target Schema, schemas Schemas) (*bool, error) {
	localRaw, localOK := localValue(uselistGetter, property, schemas)
	local, localIsBool := localRaw.(bool)
	localOK = localOK && localIsBool

	var remote, remoteOK bool
	if target != nil {
		targetPrepared, err := Prepare(target, schemas)
		if err != nil {
			return nil, err
		}
		remote, remoteOK = PeekUselist(targetPrepared, schemas)
	}

	if localOK && remoteOK && local != remote {
		return nil, fmt.Errorf(
			"%w: both ends of the relationship declare conflicting x-uselist values",
			ErrMalformedSchema,
		)
	}
	switch {
	case localOK:
		return &local, nil
	case remoteOK:
		return &remote, nil
	default:
		return nil, nil
	}
}

// uselistGetter adapts PeekUselist to the Getter shape.
func uselistGetter(schema Schema, schemas Schemas) (any, bool) {
	return peekRaw(schema, schemas, keyUselist)
}

// IsRelationship reports whether a property resolves to a relationship: an
// object type, or an array whose items resolve to an object type.
func IsRelationship(property Schema, schemas Schemas) bool {
	classification, err := ClassifyProperty(property, schemas)
	if err != nil {
		// Structural errors surface through validation, not here.
		return false
	}
	return classification.Kind != PropertyColumn
}
