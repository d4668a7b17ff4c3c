package errors

import "errors"

// Credential errors.
var (
	ErrMissingToken = errors.New("no Raindrop API token configured")
	ErrUnauthorized = errors.New("Raindrop rejected the API token")
)

// Server/transport errors.
var (
	ErrAPIRequest  = errors.New("API request failed")
	ErrAPIResponse = errors.New("unexpected API response")
)

// Local document errors.
var (
	ErrNoMetadata   = errors.New("document has no metadata block")
	ErrFieldMissing = errors.New("metadata field missing")
)
