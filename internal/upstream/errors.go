package upstream

import "errors"

// Sentinel errors for completion calls. All are terminal for the request.
var (
	// ErrNoSignal means the model answered with prose instead of JSON.
	ErrNoSignal = errors.New("no reliable signal found")
	// ErrMalformedResponse means the model answered with JSON that could not be decoded.
	ErrMalformedResponse = errors.New("malformed completion response")
	// ErrUpstreamTimeout means the completion call exceeded its deadline.
	ErrUpstreamTimeout = errors.New("completion upstream timed out")
	// ErrUpstreamUnavailable means the completion call failed at the transport or HTTP level.
	ErrUpstreamUnavailable = errors.New("completion upstream unavailable")
)
