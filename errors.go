package oasql

import "errors"

// === Document Structure Errors ===
var (
	// ErrMalformedSchema is returned for structural errors in the document:
	// bad $ref syntax, a non-list allOf value, conflicting allOf merges,
	// cyclic $ref chains and invalid primary key counts for many to many
	// relationships.
	ErrMalformedSchema = errors.New("malformed schema")

	// ErrSchemaNotFound is returned when a named schema or a remote reference
	// file is missing or cannot be parsed.
	ErrSchemaNotFound = errors.New("schema not found")

	// ErrMissingArgument is returned when a remote reference is encountered
	// before the spec context has been set.
	ErrMissingArgument = errors.New("missing argument")

	// ErrTypeMissing is returned when the type of a schema is read but no
	// type key is present. Validation recovers it into a verdict.
	ErrTypeMissing = errors.New("type missing")
)

// === Facade Errors ===
var (
	// ErrDuplicateRegistration is returned when a facade registration is
	// repeated under the same name with a different descriptor.
	ErrDuplicateRegistration = errors.New("duplicate registration")
)
