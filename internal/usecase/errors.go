package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrAlreadyProcessing     = errors.New("match is already processing")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
