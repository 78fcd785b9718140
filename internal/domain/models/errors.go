package models

import "errors"

var (
	// ErrUnknownBody indicates a body name outside the known-bodies table.
	ErrUnknownBody = errors.New("unknown body")

	// ErrUnknownSign indicates a sign name outside the twelve-sign table.
	ErrUnknownSign = errors.New("unknown sign")

	// ErrDuplicateBody indicates a request naming the same body twice.
	ErrDuplicateBody = errors.New("duplicate body")

	// ErrInvalidWindow indicates a search window with end before start or a non-positive step.
	ErrInvalidWindow = errors.New("invalid search window")
)
