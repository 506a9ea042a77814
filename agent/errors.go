package agent

import "errors"

var (
	// ErrRouterRequired indicates the router was nil.
	ErrRouterRequired = errors.New("router is required")

	// ErrLocalRetrieverRequired indicates the local retriever was nil.
	ErrLocalRetrieverRequired = errors.New("local retriever is required")

	// ErrWebRetrieverRequired indicates the web retriever was nil.
	ErrWebRetrieverRequired = errors.New("web retriever is required")

	// ErrSynthesizerRequired indicates the synthesizer was nil.
	ErrSynthesizerRequired = errors.New("synthesizer is required")
)
