package storage

import (
	"errors"
	"fmt"
)

var (
	ErrQdrantUnreachable = errors.New("qdrant server unreachable")
	ErrIndexNotFound     = errors.New("index not found")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrMissingKey        = errors.New("document has no key")
	ErrInvalidSchema     = errors.New("invalid index schema")
	ErrUnsupportedFilter = errors.New("unsupported filter expression")
)

func dimensionError(got, want int) error {
	return fmt.Errorf("%w: has %d dimensions, expected %d", ErrDimensionMismatch, got, want)
}
