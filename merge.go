package oasql

import (
	"fmt"
	"reflect"
)

// Prepare resolves any $ref on the schema and flattens its allOf, returning
// the canonical form the classifiers operate on. The input is not mutated.
func Prepare(schema Schema, schemas Schemas) (Schema, error) {
	_, resolved, err := Resolve("", schema, schemas)
	if err != nil {
		return nil, err
	}
	return FlattenAllOf(resolved, schemas)
}

// FlattenAllOf merges the allOf children of a schema left to right into a
// synthetic parent:
//
//   - properties merge property by property; a later child's property
//     overrides an earlier one with the same key, keeping its position.
//   - required is the set union across children, in first appearance order.
//   - identity valued scalar keys (type) conflict when two children carry
//     different non null values.
//   - any other key: the last non null value wins.
//
// Keys declared next to allOf on the schema itself merge last, so locally
// declared values win. Nested allOf lists are flattened first.
func FlattenAllOf(schema Schema, schemas Schemas) (Schema, error) {
	allOfValue, ok := schema.Get(keyAllOf)
	if !ok {
		return schema, nil
	}

	children, err := gatherAllOf(allOfValue, schemas)
	if err != nil {
		return nil, err
	}

	// Local sibling keys merge after every allOf child.
	siblings := NewSchema()
	for pair := schema.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key == keyAllOf {
			continue
		}
		siblings.Set(pair.Key, pair.Value)
	}
	if siblings.Len() > 0 {
		children = append(children, siblings)
	}

	merged := NewSchema()
	for _, child := range children {
		if err := mergeChild(merged, child); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// gatherAllOf resolves and flattens every allOf child, breadth first.
func gatherAllOf(allOfValue any, schemas Schemas) ([]Schema, error) {
	list, ok := allOfValue.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: The value of allOf must be a list.", ErrMalformedSchema)
	}

	children := make([]Schema, 0, len(list))
	for _, childValue := range list {
		child, ok := asSchema(childValue)
		if !ok {
			return nil, fmt.Errorf("%w: allOf children must be schemas", ErrMalformedSchema)
		}
		_, resolved, err := Resolve("", child, schemas)
		if err != nil {
			return nil, err
		}
		flattened, err := FlattenAllOf(resolved, schemas)
		if err != nil {
			return nil, err
		}
		children = append(children, flattened)
	}
	return children, nil
}

// mergeChild folds one child into the accumulating synthetic parent.
func mergeChild(merged, child Schema) error {
	for pair := child.Oldest(); pair != nil; pair = pair.Next() {
		switch pair.Key {
		case keyProperties:
			if err := mergeProperties(merged, pair.Value); err != nil {
				return err
			}
		case keyRequired:
			mergeRequired(merged, pair.Value)
		default:
			if pair.Value == nil {
				continue
			}
			if _, identity := identityKeys[pair.Key]; identity {
				existing, ok := merged.Get(pair.Key)
				if ok && existing != nil && !reflect.DeepEqual(existing, pair.Value) {
					return fmt.Errorf(
						"%w: conflicting %q values in allOf: %v and %v",
						ErrMalformedSchema, pair.Key, existing, pair.Value,
					)
				}
			}
			merged.Set(pair.Key, pair.Value)
		}
	}
	return nil
}

// mergeProperties merges a child's properties into the parent, property by
// property. The merge does not descend into individual property schemas: a
// later definition replaces an earlier one wholesale.
func mergeProperties(merged Schema, value any) error {
	childProperties, ok := asSchema(value)
	if !ok {
		return fmt.Errorf("%w: the value of properties must be an object", ErrMalformedSchema)
	}

	target, ok := mergedProperties(merged)
	if !ok {
		target = NewSchema()
		merged.Set(keyProperties, target)
	}
	for pair := childProperties.Oldest(); pair != nil; pair = pair.Next() {
		target.Set(pair.Key, pair.Value)
	}
	return nil
}

func mergedProperties(merged Schema) (Schema, bool) {
	value, ok := merged.Get(keyProperties)
	if !ok {
		return nil, false
	}
	return asSchema(value)
}

// mergeRequired unions a child's required list into the parent, keeping the
// order names first appeared in.
func mergeRequired(merged Schema, value any) {
	names, ok := stringSlice(value)
	if !ok {
		return
	}

	var existing []string
	if current, ok := merged.Get(keyRequired); ok {
		existing, _ = stringSlice(current)
	}

	seen := map[string]struct{}{}
	for _, name := range existing {
		seen[name] = struct{}{}
	}
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		existing = append(existing, name)
		seen[name] = struct{}{}
	}

	union := make([]any, len(existing))
	for i, name := range existing {
		union[i] = name
	}
	merged.Set(keyRequired, union)
}
