package oasql

import (
	"errors"
	"fmt"
	"strings"
)

// Verdict is the per schema validation outcome. Validation never raises;
// every failure becomes a reason.
type Verdict struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// ModelResult wraps a verdict the way the bulk check reports it.
type ModelResult struct {
	Result Verdict `json:"result"`
}

// CheckModel produces the verdict for a single schema that is not managed
// by the pipeline. Rules, first match wins:
//
//  1. structural failures during resolution and flattening (bad $ref value,
//     unresolved reference, non list allOf) convert to prefixed reasons,
//  2. the flattened schema must carry a string type of value "object",
//  3. the flattened schema must carry x-tablename.
func CheckModel(schemas Schemas, schema Schema) ModelResult {
	prepared, err := Prepare(schema, schemas)
	if err != nil {
		return ModelResult{Result: Verdict{Valid: false, Reason: errorReason(err)}}
	}

	typeValue, ok := prepared.Get(keyType)
	if !ok {
		return invalid(`no "type" key was found, define a type`)
	}
	typeString, ok := typeValue.(string)
	if !ok {
		return invalid(fmt.Sprintf(
			"the type value is %s, change it to a string value", renderValue(typeValue),
		))
	}
	if typeString != "object" {
		return invalid(fmt.Sprintf(
			`the type of the schema is %q, change it to be "object"`, typeString,
		))
	}

	if _, ok := prepared.Get(keyTablename); !ok {
		return invalid(`no "x-tablename" key was found, define the name of the table`)
	}

	return ModelResult{Result: Verdict{Valid: true}}
}

// CheckModels produces verdicts for every schema the pipeline will not
// manage. Constructable schemas are skipped; the result maps only failing
// schema names.
func CheckModels(schemas Schemas) map[string]ModelResult {
	results := map[string]ModelResult{}
	for pair := schemas.Oldest(); pair != nil; pair = pair.Next() {
		schema, ok := asSchema(pair.Value)
		if !ok {
			results[pair.Key] = invalid(`no "type" key was found, define a type`)
			continue
		}
		if Constructable(schema, schemas) {
			continue
		}
		result := CheckModel(schemas, schema)
		if !result.Result.Valid {
			results[pair.Key] = result
		}
	}
	return results
}

func invalid(reason string) ModelResult {
	return ModelResult{Result: Verdict{Valid: false, Reason: reason}}
}

// errorReason converts a pipeline error into the reason wording validation
// reports: malformed schema details keep their prefix, reference failures
// quote the resolver's message.
func errorReason(err error) string {
	detail := errorDetail(err)
	switch {
	case errors.Is(err, ErrSchemaNotFound):
		return "reference :: '" + detail + "' "
	case errors.Is(err, ErrMalformedSchema):
		return "malformed schema :: " + detail + " "
	case errors.Is(err, ErrMissingArgument):
		return "missing argument :: " + detail + " "
	default:
		return detail
	}
}

// errorDetail strips the sentinel prefix from a wrapped pipeline error.
func errorDetail(err error) string {
	message := err.Error()
	for _, sentinel := range []error{ErrMalformedSchema, ErrSchemaNotFound, ErrMissingArgument, ErrTypeMissing} {
		prefix := sentinel.Error() + ": "
		if strings.HasPrefix(message, prefix) {
			return strings.TrimPrefix(message, prefix)
		}
	}
	return message
}
