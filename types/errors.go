package types

import "errors"

var (
	ErrInvalidRecord    = errors.New("invalid record")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrNotFound         = errors.New("not found")
	ErrExtraction       = errors.New("text extraction failed")
	ErrIndexUnavailable = errors.New("vector index unavailable")
)
