package llms

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrMissingAPIKey   = errors.New("missing API key")
	errRetryableStatus = errors.New("retryable status")
)

// TransportError means no HTTP reply was obtained at all: DNS failure,
// refused connection, timeout or cancellation.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
