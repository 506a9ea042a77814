package server

import "errors"

var (
	// ErrAnswererRequired indicates the answer pipeline was nil.
	ErrAnswererRequired = errors.New("answerer is required")

	// ErrRouterRequired indicates the intent router was nil.
	ErrRouterRequired = errors.New("router is required")
)
