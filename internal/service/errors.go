package service

import "errors"

// Error classes surfaced to the HTTP boundary. Callers wrap them with
// fmt.Errorf("...: %w", ErrX) and the handlers classify with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrAuthenticity = errors.New("authenticity check failed")
	ErrNotFound     = errors.New("not found")
	ErrUpstream     = errors.New("upstream provider failed")
	ErrPersistence  = errors.New("persistence failed")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)
