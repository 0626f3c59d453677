package llm

import "errors"

var (
	// ErrModelUnavailable is returned when no configured credential yields a
	// usable model connection. The error never carries key material.
	ErrModelUnavailable = errors.New("generative model unavailable")

	// ErrCompletion is returned when an established model connection fails
	// to produce a completion.
	ErrCompletion = errors.New("completion failed")
)
