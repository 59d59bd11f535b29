package domain

import "errors"

// Error categories. Adapters wrap these with context; callers match with errors.Is.
var (
	// ErrTransport marks network or HTTP failures while fetching a source archive.
	ErrTransport = errors.New("transport error")
	// ErrNotFound marks an expected archive member that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDecode marks a grid file the backend could not turn into a dataset.
	ErrDecode = errors.New("decode error")
	// ErrValidation marks malformed input such as request bodies or flags.
	ErrValidation = errors.New("validation error")
	// ErrItemNotFound is returned by item lookups for an unknown id.
	ErrItemNotFound = errors.New("item not found")
)
