package advisor

import "errors"

var (
	// ErrMissingParameter is returned by Ask when the question or the profile is empty.
	ErrMissingParameter = errors.New("missing parameter")
	// ErrUpstream wraps any failure of the generation backend.
	ErrUpstream = errors.New("upstream service error")
)
