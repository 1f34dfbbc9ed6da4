package oasql

import "fmt"

// Normalize runs the normalization pipeline over a catalog: inheritance
// checks, foreign key placement, association synthesis. The catalog is
// mutated in place and is frozen by convention afterwards; artifact
// extraction and validation only read it.
//
// Normalization propagates errors eagerly and aborts on the first failure.
// Running Normalize twice over the same catalog yields an identical
// catalog.
func Normalize(schemas Schemas, facade *Facade) error {
	for pair := schemas.Oldest(); pair != nil; pair = pair.Next() {
		schema, ok := asSchema(pair.Value)
		if !ok {
			continue
		}
		if !Constructable(schema, schemas) {
			continue
		}
		if err := checkInheritance(pair.Key, schema, schemas); err != nil {
			return err
		}
	}

	if err := PlaceForeignKeys(schemas); err != nil {
		return err
	}
	return SynthesizeAssociations(schemas, facade)
}

// BuildRelationships constructs the relationship handles for every
// relationship property of the catalog, keyed by model name. It reads the
// normalized catalog and registers nothing; the handles feed the emitter.
func BuildRelationships(schemas Schemas, facade *Facade) (map[string][]*Relationship, error) {
	relationships := map[string][]*Relationship{}

	for pair := schemas.Oldest(); pair != nil; pair = pair.Next() {
		schema, ok := asSchema(pair.Value)
		if !ok {
			continue
		}
		if !Constructable(schema, schemas) {
			continue
		}
		merged, err := Prepare(schema, schemas)
		if err != nil {
			return nil, err
		}
		propertiesValue, ok := merged.Get(keyProperties)
		if !ok {
			continue
		}
		properties, ok := asSchema(propertiesValue)
		if !ok {
			return nil, fmt.Errorf("%w: the value of properties must be an object", ErrMalformedSchema)
		}

		for propertyPair := properties.Oldest(); propertyPair != nil; propertyPair = propertyPair.Next() {
			property, ok := asSchema(propertyPair.Value)
			if !ok {
				continue
			}
			classification, err := ClassifyProperty(property, schemas)
			if err != nil {
				return nil, err
			}
			if classification.Relationship == nil {
				continue
			}
			handle := facade.CreateRelationship(*classification.Relationship)
			relationships[pair.Key] = append(relationships[pair.Key], handle)
		}
	}
	return relationships, nil
}
