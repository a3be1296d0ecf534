package contracts

import "errors"

// Repository and validation errors; wrap with fmt.Errorf("...: %w")
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("already exists")
	ErrInvalidInput = errors.New("invalid input")
)
