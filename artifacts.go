package oasql

import (
	"fmt"
	"strings"
)

// ColumnSchemaArtifact is the normalized description of one property after
// all schema uncertainty has been resolved.
type ColumnSchemaArtifact struct {
	Type        string  `json:"type"`
	Format      *string `json:"format,omitempty"`
	Nullable    *bool   `json:"nullable,omitempty"`
	Required    *bool   `json:"required,omitempty"`
	DeRef       *string `json:"de_ref,omitempty"`
	Generated   *bool   `json:"generated,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ColumnArtifact is one column attribute of a model document.
type ColumnArtifact struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description *string `json:"description,omitempty"`
}

// ColumnArgArtifact is one argument of the initializer and the from_mapping
// conversion. The two signatures type references differently: the
// initializer takes model instances, from_mapping takes dictionaries.
type ColumnArgArtifact struct {
	Name            string `json:"name"`
	InitType        string `json:"init_type"`
	FromMappingType string `json:"from_mapping_type"`
}

// ArgArtifacts splits the arguments of a model by requiredness. Required
// arguments come first; within each group declaration order is preserved.
type ArgArtifacts struct {
	Required []ColumnArgArtifact `json:"required"`
	Optional []ColumnArgArtifact `json:"optional"`
}

// TypedDictClassArtifact is one of the two dictionary shapes of a model.
type TypedDictClassArtifact struct {
	Props       []ColumnArtifact `json:"props"`
	Empty       bool             `json:"empty"`
	Name        *string          `json:"name,omitempty"`
	ParentClass *string          `json:"parent_class,omitempty"`
}

// TypedDictArtifacts holds the required and optional dictionary shapes.
type TypedDictArtifacts struct {
	Required TypedDictClassArtifact `json:"required"`
	Optional TypedDictClassArtifact `json:"optional"`
}

// ModelArtifact is the full derived description of one model, consumed by
// the source emitter. It owns copies of every string it references.
type ModelArtifact struct {
	Name            string             `json:"name"`
	Description     *string            `json:"description,omitempty"`
	ParentClass     string             `json:"parent_class"`
	Empty           bool               `json:"empty"`
	Columns         []ColumnArtifact   `json:"columns"`
	Args            ArgArtifacts       `json:"args"`
	TypedDict       TypedDictArtifacts `json:"typed_dict"`
	CompositeIndex  []any              `json:"composite_index,omitempty"`
	CompositeUnique []any              `json:"composite_unique,omitempty"`
}

// ExtractModels derives the model artifacts from a normalized catalog. The
// catalog is read only from here on; extraction presumes validation has run
// and does not report verdicts of its own.
//
// Models appear in catalog order. Within one model, columns appear in
// declaration order after inheritance flattening: inherited columns first,
// then locally declared ones, then synthesized foreign key columns.
// Association tables live in the catalog but are not models; they are
// recognized by having no primary key.
func ExtractModels(schemas Schemas) ([]ModelArtifact, error) {
	var models []ModelArtifact
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
		if !hasPrimaryKey(merged, schemas) {
			continue
		}
		model, err := extractModel(pair.Key, merged, schemas)
		if err != nil {
			return nil, err
		}
		models = append(models, *model)
	}
	return models, nil
}

func hasPrimaryKey(merged Schema, schemas Schemas) bool {
	propertiesValue, ok := merged.Get(keyProperties)
	if !ok {
		return false
	}
	properties, ok := asSchema(propertiesValue)
	if !ok {
		return false
	}
	for pair := properties.Oldest(); pair != nil; pair = pair.Next() {
		if property, ok := asSchema(pair.Value); ok && PeekPrimaryKey(property, schemas) {
			return true
		}
	}
	return false
}

func extractModel(name string, merged Schema, schemas Schemas) (*ModelArtifact, error) {
	model := &ModelArtifact{
		Name:        name,
		ParentClass: "models." + name,
	}
	if description, ok := PeekDescription(merged, schemas); ok {
		model.Description = &description
	}
	if index, ok := merged.Get(keyCompositeIndex); ok {
		if list, isList := index.([]any); isList {
			model.CompositeIndex = list
		}
	}
	if unique, ok := merged.Get(keyCompositeUnique); ok {
		if list, isList := unique.([]any); isList {
			model.CompositeUnique = list
		}
	}

	requiredValue, _ := merged.Get(keyRequired)

	var columns []ColumnArtifact
	var requiredArgs, optionalArgs []ColumnArgArtifact
	var requiredProps, optionalProps []ColumnArtifact

	propertiesValue, ok := merged.Get(keyProperties)
	if ok {
		properties, ok := asSchema(propertiesValue)
		if !ok {
			return nil, fmt.Errorf("%w: the value of properties must be an object", ErrMalformedSchema)
		}
		for pair := properties.Oldest(); pair != nil; pair = pair.Next() {
			property, ok := asSchema(pair.Value)
			if !ok {
				return nil, fmt.Errorf("%w: %s is not a schema", ErrMalformedSchema, pair.Key)
			}
			required := containsString(requiredValue, pair.Key)
			artifact, err := columnSchemaArtifact(property, required, schemas)
			if err != nil {
				return nil, err
			}

			column := ColumnArtifact{
				Name:        pair.Key,
				Type:        initType(artifact),
				Description: artifact.Description,
			}
			columns = append(columns, column)

			arg := ColumnArgArtifact{
				Name:            pair.Key,
				InitType:        initType(artifact),
				FromMappingType: fromMappingType(artifact),
			}
			dictProp := ColumnArtifact{
				Name:        pair.Key,
				Type:        fromMappingType(artifact),
				Description: artifact.Description,
			}
			if argRequired(artifact) {
				requiredArgs = append(requiredArgs, arg)
				requiredProps = append(requiredProps, dictProp)
			} else {
				optionalArgs = append(optionalArgs, arg)
				optionalProps = append(optionalProps, dictProp)
			}
		}
	}

	model.Columns = columns
	model.Empty = len(columns) == 0
	model.Args = ArgArtifacts{Required: requiredArgs, Optional: optionalArgs}
	model.TypedDict = typedDictArtifacts(name, requiredProps, optionalProps)
	return model, nil
}

// columnSchemaArtifact reduces one property to its artifact. Relationship
// properties record the referenced model in DeRef.
func columnSchemaArtifact(property Schema, required bool, schemas Schemas) (*ColumnSchemaArtifact, error) {
	classification, err := ClassifyProperty(property, schemas)
	if err != nil {
		return nil, err
	}

	artifact := &ColumnSchemaArtifact{Required: &required}

	if classification.Relationship != nil {
		modelName := classification.Relationship.ModelName
		artifact.DeRef = &modelName
		switch classification.Kind {
		case PropertyObjectRef:
			artifact.Type = "object"
		default:
			artifact.Type = "array"
		}
	} else {
		_, resolved, err := Resolve("", property, schemas)
		if err != nil {
			return nil, err
		}
		prepared, err := FlattenAllOf(resolved, schemas)
		if err != nil {
			return nil, err
		}
		if isJSON, ok := PeekJSON(prepared, schemas); ok && isJSON {
			artifact.Type = "json"
		} else {
			propertyType, err := PeekType(prepared, schemas)
			if err != nil {
				return nil, err
			}
			artifact.Type = propertyType
		}
		if format, ok := PeekFormat(prepared, schemas); ok {
			artifact.Format = &format
		}
		if PeekPrimaryKey(prepared, schemas) {
			generated := artifact.Type == "integer"
			if autoincrement, ok := PeekAutoincrement(prepared, schemas); ok {
				generated = autoincrement
			}
			artifact.Generated = &generated
		}
	}

	if nullable, ok := PeekNullable(property, schemas); ok {
		artifact.Nullable = &nullable
	}
	if description, ok := PeekDescription(property, schemas); ok {
		artifact.Description = &description
	}
	return artifact, nil
}

// argRequired reports whether the column becomes a required argument: named
// in required after the allOf merge and not generated.
func argRequired(artifact *ColumnSchemaArtifact) bool {
	if artifact.Required == nil || !*artifact.Required {
		return false
	}
	if artifact.Generated != nil && *artifact.Generated {
		return false
	}
	return true
}

// optionalWrapped reports whether the value type wraps in Optional: nullable
// columns, columns that are not required and generated columns.
func optionalWrapped(artifact *ColumnSchemaArtifact) bool {
	if artifact.Nullable != nil && *artifact.Nullable {
		return true
	}
	if artifact.Generated != nil && *artifact.Generated {
		return true
	}
	return artifact.Required == nil || !*artifact.Required
}

// baseType maps an artifact onto the emitted value type.
func baseType(artifact *ColumnSchemaArtifact, deRefSuffix string, sequencePrefix bool) string {
	if artifact.DeRef != nil {
		ref := fmt.Sprintf("%q", deRefSuffix+*artifact.DeRef)
		if sequencePrefix {
			return "typing.Sequence[" + ref + "]"
		}
		return ref
	}

	switch artifact.Type {
	case "integer":
		return "int"
	case "number":
		return "float"
	case "boolean":
		return "bool"
	case "json":
		return "typing.Any"
	case "string":
		if artifact.Format != nil {
			switch *artifact.Format {
			case "date":
				return "datetime.date"
			case "date-time":
				return "datetime.datetime"
			case "binary":
				return "bytes"
			}
		}
		return "str"
	default:
		return "typing.Any"
	}
}

// initType renders the initializer facing type of a column.
func initType(artifact *ColumnSchemaArtifact) string {
	base := typeForInit(artifact)
	if optionalWrapped(artifact) {
		return "typing.Optional[" + base + "]"
	}
	return base
}

func typeForInit(artifact *ColumnSchemaArtifact) string {
	if artifact.DeRef != nil {
		return baseType(artifact, "T", artifact.Type == "array")
	}
	return baseType(artifact, "", false)
}

// fromMappingType renders the dictionary facing type of a column: model
// references become dictionary references.
func fromMappingType(artifact *ColumnSchemaArtifact) string {
	var base string
	if artifact.DeRef != nil {
		base = fmt.Sprintf("%q", *artifact.DeRef+"Dict")
		if artifact.Type == "array" {
			base = "typing.Sequence[" + base + "]"
		}
	} else {
		base = baseType(artifact, "", false)
	}
	if optionalWrapped(artifact) {
		return "typing.Optional[" + base + "]"
	}
	return base
}

// typedDictArtifacts derives the two dictionary classes of a model. The
// required class backs the optional one when both exist.
func typedDictArtifacts(name string, requiredProps, optionalProps []ColumnArtifact) TypedDictArtifacts {
	artifacts := TypedDictArtifacts{
		Required: TypedDictClassArtifact{Props: requiredProps, Empty: len(requiredProps) == 0},
		Optional: TypedDictClassArtifact{Props: optionalProps, Empty: len(optionalProps) == 0},
	}

	typedDict := "typing.TypedDict"
	switch {
	case !artifacts.Required.Empty && !artifacts.Optional.Empty:
		requiredName := "_" + name + "DictBase"
		optionalName := name + "Dict"
		artifacts.Required.Name = &requiredName
		artifacts.Required.ParentClass = &typedDict
		artifacts.Optional.Name = &optionalName
		artifacts.Optional.ParentClass = &requiredName
	case !artifacts.Required.Empty:
		requiredName := name + "Dict"
		artifacts.Required.Name = &requiredName
		artifacts.Required.ParentClass = &typedDict
	default:
		optionalName := name + "Dict"
		artifacts.Optional.Name = &optionalName
		artifacts.Optional.ParentClass = &typedDict
	}
	return artifacts
}

// ArtifactVersion identifies the layout of the artifact document.
const ArtifactVersion = "1"

// Conversions are the four conversions every generated model exposes.
var Conversions = []string{"from_mapping", "from_serialized", "to_mapping", "to_serialized"}

// ModelDocument is one model of the artifact document: the artifact plus
// the module level imports its emitted source needs.
type ModelDocument struct {
	Model       ModelArtifact `json:"model"`
	Docstring   string        `json:"docstring"`
	Imports     []string      `json:"imports"`
	Conversions []string      `json:"conversions"`
}

// ArtifactDocument is the stable, versioned document the source emitter
// consumes.
type ArtifactDocument struct {
	Version string          `json:"version"`
	Models  []ModelDocument `json:"models"`
}

// BuildArtifactDocument extracts every model and assembles the document.
func BuildArtifactDocument(schemas Schemas) (*ArtifactDocument, error) {
	models, err := ExtractModels(schemas)
	if err != nil {
		return nil, err
	}

	document := &ArtifactDocument{Version: ArtifactVersion}
	for _, model := range models {
		document.Models = append(document.Models, ModelDocument{
			Model:       model,
			Docstring:   ModelDocstring(&model),
			Imports:     modelImports(&model),
			Conversions: Conversions,
		})
	}
	return document, nil
}

func modelImports(model *ModelArtifact) []string {
	imports := []string{"typing"}
	for _, column := range model.Columns {
		if strings.Contains(column.Type, "datetime.") {
			imports = append(imports, "datetime")
			break
		}
	}
	return imports
}
