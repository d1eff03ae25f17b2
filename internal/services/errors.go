package services

import "errors"

// Report service errors
var (
	// ErrUnknownReport is returned for a report id missing from the catalogue
	ErrUnknownReport = errors.New("unknown report")

	// ErrInvalidInput is wrapped by every parameter check failure
	ErrInvalidInput = errors.New("invalid input")
)
