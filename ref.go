package oasql

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonpointer"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// refPattern matches local references of the #/components/schemas/<Name> form.
var refPattern = regexp.MustCompile(`^#/components/schemas/(\w+)$`)

// Resolve follows $ref chains until no $ref key remains, recording the name
// of the last referenced schema. A revisited reference fails: object graph
// cycles are legal only through relationship properties, never through $ref.
func Resolve(name string, schema Schema, schemas Schemas) (string, Schema, error) {
	visited := map[string]struct{}{}

	for {
		if schema == nil {
			return "", nil, fmt.Errorf("%w: %s is not a schema", ErrMalformedSchema, name)
		}
		refValue, ok := schema.Get(keyRef)
		if !ok {
			return name, schema, nil
		}
		ref, ok := refValue.(string)
		if !ok {
			return "", nil, fmt.Errorf("%w: The value of $ref must ba a string.", ErrMalformedSchema)
		}

		if _, seen := visited[ref]; seen {
			return "", nil, fmt.Errorf("%w: cyclic $ref: %s", ErrMalformedSchema, ref)
		}
		visited[ref] = struct{}{}

		refName, refSchema, err := getRef(ref, schemas)
		if err != nil {
			return "", nil, err
		}
		name, schema = refName, refSchema
	}
}

// getRef retrieves the schema a reference points at, local or remote.
func getRef(ref string, schemas Schemas) (string, Schema, error) {
	if !strings.HasPrefix(ref, "#") {
		return getRemoteRef(ref)
	}

	match := refPattern.FindStringSubmatch(ref)
	if match == nil {
		return "", nil, fmt.Errorf(
			"%w: %s format incorrect, expected #/components/schemas/<SchemaName>",
			ErrSchemaNotFound, ref,
		)
	}

	refName := match[1]
	refSchema, ok := schemasGet(schemas, refName)
	if !ok {
		return "", nil, fmt.Errorf("%w: %s was not found in schemas.", ErrSchemaNotFound, refName)
	}
	return refName, refSchema, nil
}

// normContext collapses . and .. segments and folds case. Case folding
// assumes a case insensitive filesystem; on case sensitive systems two
// spellings of one path alias to a single cache entry.
func normContext(context string) string {
	return strings.ToLower(filepath.Clean(context))
}

// separateContextPath splits a remote reference into its file context and
// its document path. A reference must contain exactly one #.
func separateContextPath(ref string) (string, string, error) {
	parts := strings.Split(ref, "#")
	if len(parts) != 2 {
		return "", "", fmt.Errorf(
			"%w: A reference must contain exactly one #. Actual reference: %s",
			ErrMalformedSchema, ref,
		)
	}
	return parts[0], parts[1], nil
}

// addRemoteContext qualifies a $ref found inside a remotely loaded document
// so that its context becomes relative to the spec. Three cases:
//
//  1. #/... within the document: the loaded context is prepended.
//  2. other.json#/... sibling file: the directory of the loaded context is
//     prepended.
//  3. ../a/b.json#/... relative path: joined with the directory of the
//     loaded context and normalized to the shortest relative path.
func addRemoteContext(context, ref string) (string, error) {
	refContext, refPath, err := separateContextPath(ref)
	if err != nil {
		return "", err
	}

	if refContext == "" {
		return context + ref, nil
	}

	contextDir := filepath.Dir(context)
	joined := filepath.Join(contextDir, refContext)
	return normContext(joined) + "#" + refPath, nil
}

// mapRemoteRefs rewrites every $ref string value inside a remotely loaded
// value to carry the remote context. Only $ref values are substituted; all
// other strings pass through untouched. Rewriting an already rewritten value
// again with the same context leaves it unchanged only when the context lies
// in the spec directory; for a context in a subdirectory the second pass
// prefixes that directory again.
func mapRemoteRefs(value any, context string) (any, error) {
	switch v := value.(type) {
	case *orderedmap.OrderedMap[string, any]:
		mapped := NewSchema()
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			if pair.Key == keyRef {
				if ref, ok := pair.Value.(string); ok {
					qualified, err := addRemoteContext(context, ref)
					if err != nil {
						return nil, err
					}
					mapped.Set(pair.Key, qualified)
					continue
				}
			}
			mappedChild, err := mapRemoteRefs(pair.Value, context)
			if err != nil {
				return nil, err
			}
			mapped.Set(pair.Key, mappedChild)
		}
		return mapped, nil
	case []any:
		mapped := make([]any, len(v))
		for i, item := range v {
			mappedItem, err := mapRemoteRefs(item, context)
			if err != nil {
				return nil, err
			}
			mapped[i] = mappedItem
		}
		return mapped, nil
	default:
		return value, nil
	}
}

// RemoteStore caches remotely referenced documents for one resolution run.
// The store holds the parsed document per context and the spec context: the
// absolute path of the root OpenAPI document against which every relative
// context is resolved.
type RemoteStore struct {
	documents   map[string]any
	specContext string
	hasContext  bool
}

// NewRemoteStore returns an empty store with no spec context.
func NewRemoteStore() *RemoteStore {
	return &RemoteStore{documents: map[string]any{}}
}

// Reset drops every cached document and clears the spec context.
func (s *RemoteStore) Reset() {
	s.documents = map[string]any{}
	s.specContext = ""
	s.hasContext = false
}

// SetContext records the location of the root OpenAPI document.
func (s *RemoteStore) SetContext(path string) {
	s.specContext = path
	s.hasContext = true
}

// Documents returns the parsed document for a context, loading and caching
// it on first use. The context is a path relative to the spec context.
func (s *RemoteStore) Documents(context string) (any, error) {
	if document, ok := s.documents[context]; ok {
		return document, nil
	}

	if !s.hasContext {
		return nil, fmt.Errorf(
			"%w: Cannot find the file containing the remote reference, set the "+
				"path to the OpenAPI specification first",
			ErrMissingArgument,
		)
	}

	extension := lowerExt(context)
	if extension != ".json" && extension != ".yaml" && extension != ".yml" {
		return nil, fmt.Errorf(
			"%w: The remote context is not a JSON nor YAML file. The path is: %s",
			ErrSchemaNotFound, context,
		)
	}

	specDir := filepath.Dir(s.specContext)
	remotePath := filepath.Join(specDir, context)
	data, err := os.ReadFile(remotePath)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: The file with the remote reference was not found. The path is: %s",
			ErrSchemaNotFound, context,
		)
	}

	var document any
	if extension == ".json" {
		document, err = DecodeJSON(data)
		if err != nil {
			return nil, fmt.Errorf(
				"%w: The remote reference file is not valid JSON. The path is: %s",
				ErrSchemaNotFound, context,
			)
		}
	} else {
		document, err = DecodeYAML(data)
		if err != nil {
			return nil, fmt.Errorf(
				"%w: The remote reference file is not valid YAML. The path is: %s",
				ErrSchemaNotFound, context,
			)
		}
	}

	s.documents[context] = document
	return document, nil
}

// defaultRemoteStore backs the package level convenience functions. The
// pipeline is single threaded; callers running independent documents must
// serialize and reset between runs.
var defaultRemoteStore = NewRemoteStore()

// SetContext sets the spec context on the process wide remote store.
func SetContext(path string) {
	defaultRemoteStore.SetContext(path)
}

// ResetRemoteStore clears the process wide remote store.
func ResetRemoteStore() {
	defaultRemoteStore.Reset()
}

// getRemoteRef retrieves a remote schema, rewriting any $ref inside it to be
// context qualified before returning it.
func getRemoteRef(ref string) (string, Schema, error) {
	context, pointer, err := separateContextPath(ref)
	if err != nil {
		return "", nil, err
	}
	context = normContext(context)

	document, err := defaultRemoteStore.Documents(context)
	if err != nil {
		return "", nil, err
	}

	name, schema, err := retrieveSchema(document, pointer)
	if err != nil {
		return "", nil, err
	}

	mapped, err := mapRemoteRefs(schema, context)
	if err != nil {
		return "", nil, err
	}
	mappedSchema, ok := asSchema(mapped)
	if !ok {
		return "", nil, fmt.Errorf("%w: %s does not point at a schema", ErrSchemaNotFound, ref)
	}
	return name, mappedSchema, nil
}

// retrieveSchema descends a parsed remote document along a pointer such as
// /components/schemas/Employee. The name of the retrieved schema is the last
// pointer segment.
func retrieveSchema(document any, pointer string) (string, Schema, error) {
	segments := jsonpointer.Parse(pointer)

	current := document
	name := ""
	for i, segment := range segments {
		if segment == "" {
			continue
		}
		node, ok := asSchema(current)
		if !ok {
			return "", nil, remoteNotFound(segments[i:])
		}
		child, ok := node.Get(segment)
		if !ok {
			return "", nil, remoteNotFound(segments[i:])
		}
		current = child
		name = segment
	}

	schema, ok := asSchema(current)
	if !ok {
		return "", nil, remoteNotFound(segments)
	}
	return name, schema, nil
}

func remoteNotFound(tail []string) error {
	return fmt.Errorf(
		"%w: The schema was not found in the remote schemas. Path subsection: %s",
		ErrSchemaNotFound, strings.Join(tail, "/"),
	)
}
