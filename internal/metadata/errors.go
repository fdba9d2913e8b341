package metadata

import "errors"

var (
	// ErrMalformedOutput is returned when the model answer is not valid JSON
	// or does not satisfy the requested schema.
	ErrMalformedOutput = errors.New("malformed model output")

	// ErrUnknownSchemaKind is returned for a SchemaKind outside the closed set.
	ErrUnknownSchemaKind = errors.New("unknown schema kind")

	// ErrEmptyAnswer is returned when the model replies with no content.
	ErrEmptyAnswer = errors.New("empty model answer")
)
