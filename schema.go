package oasql

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Schema is a single schema node: an ordered mapping from keyword to a
// JSON-like value (string, float64, bool, nil, []any or nested Schema).
// Insertion order follows the source document so that column declaration
// order and error messages stay deterministic.
type Schema = *orderedmap.OrderedMap[string, any]

// Schemas is the catalog: the name to schema mapping under normalization.
// Values are always Schema; the any value type is what document decoding
// produces.
type Schemas = *orderedmap.OrderedMap[string, any]

// NewSchema returns an empty schema node.
func NewSchema() Schema {
	return orderedmap.New[string, any]()
}

// NewSchemas returns an empty catalog.
func NewSchemas() Schemas {
	return orderedmap.New[string, any]()
}

// asSchema reports whether v is a schema node.
func asSchema(v any) (Schema, bool) {
	s, ok := v.(*orderedmap.OrderedMap[string, any])
	return s, ok
}

// schemasGet retrieves a named schema from the catalog.
func schemasGet(schemas Schemas, name string) (Schema, bool) {
	if schemas == nil {
		return nil, false
	}
	v, ok := schemas.Get(name)
	if !ok {
		return nil, false
	}
	return asSchema(v)
}

// DecodeJSON parses data as strict JSON into ordered form: objects become
// Schema nodes, arrays []any, scalars their Go equivalents.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	value, err := decodeOrdered(dec)
	if err != nil {
		return nil, err
	}
	// Trailing content means the document is not a single JSON value.
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after JSON document", ErrMalformedSchema)
	}
	return value, nil
}

// DecodeYAML parses data as YAML 1.1/1.2 into the same ordered form as
// DecodeJSON. The conversion goes through JSON so both formats share one
// decoding path and one ordering guarantee.
func DecodeYAML(data []byte) (any, error) {
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, err
	}
	return DecodeJSON(jsonData)
}

// decodeOrdered reads one JSON value from dec, preserving object key order.
func decodeOrdered(dec *json.Decoder) (any, error) {
	token, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeOrderedToken(dec, token)
}

func decodeOrderedToken(dec *json.Decoder, token json.Token) (any, error) {
	delim, ok := token.(json.Delim)
	if !ok {
		return token, nil
	}

	switch delim {
	case '{':
		object := NewSchema()
		for dec.More() {
			keyToken, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyToken.(string)
			if !ok {
				return nil, fmt.Errorf("%w: object key is not a string", ErrMalformedSchema)
			}
			value, err := decodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			object.Set(key, value)
		}
		// Consume the closing brace.
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return object, nil
	case '[':
		items := []any{}
		for dec.More() {
			value, err := decodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			items = append(items, value)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return items, nil
	default:
		return nil, fmt.Errorf("%w: unexpected token %v", ErrMalformedSchema, delim)
	}
}

// EncodeJSON serializes a decoded value back to JSON, preserving insertion
// order. Two catalogs are identical iff their encodings are byte identical.
func EncodeJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

// LoadSpecJSON reads an OpenAPI document from path, extracts the schemas
// under components.schemas and sets the remote reference context to the
// document's location.
func LoadSpecJSON(path string) (Schemas, error) {
	return loadSpec(path, DecodeJSON)
}

// LoadSpecYAML is LoadSpecJSON for YAML documents.
func LoadSpecYAML(path string) (Schemas, error) {
	return loadSpec(path, DecodeYAML)
}

func loadSpec(path string, decode func([]byte) (any, error)) (Schemas, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: the OpenAPI specification was not found, the path is: %s", ErrSchemaNotFound, path)
	}
	document, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: the OpenAPI specification is not valid, the path is: %s", ErrSchemaNotFound, path)
	}

	schemas, err := specSchemas(document)
	if err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	SetContext(absPath)
	return schemas, nil
}

// specSchemas descends components.schemas of a parsed OpenAPI document.
func specSchemas(document any) (Schemas, error) {
	root, ok := asSchema(document)
	if !ok {
		return nil, fmt.Errorf("%w: specification root is not an object", ErrMalformedSchema)
	}
	componentsValue, ok := root.Get("components")
	if !ok {
		return nil, fmt.Errorf("%w: specification has no components", ErrMalformedSchema)
	}
	components, ok := asSchema(componentsValue)
	if !ok {
		return nil, fmt.Errorf("%w: components is not an object", ErrMalformedSchema)
	}
	schemasValue, ok := components.Get("schemas")
	if !ok {
		return nil, fmt.Errorf("%w: components has no schemas", ErrMalformedSchema)
	}
	schemas, ok := asSchema(schemasValue)
	if !ok {
		return nil, fmt.Errorf("%w: components.schemas is not an object", ErrMalformedSchema)
	}
	return schemas, nil
}

// stringSlice converts a decoded JSON array of strings, tolerating the []any
// shape document decoding produces.
func stringSlice(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	values := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		values = append(values, s)
	}
	return values, true
}

// containsString reports membership in a decoded string array.
func containsString(v any, target string) bool {
	values, ok := stringSlice(v)
	if !ok {
		return false
	}
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

// renderValue renders a decoded value the way verdict messages expect:
// floats that carry integral values print without a decimal part.
func renderValue(v any) string {
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%v", v)
}

// lowerExt returns the lower cased extension of a path, dot included.
func lowerExt(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
