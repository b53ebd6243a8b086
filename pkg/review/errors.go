package review

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrInvalidEncoding = errors.New("file is not valid UTF-8")

// FileAccessError means the plan could not be read. Nothing has been sent
// when it is returned.
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("failed to read plan %s: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error {
	return e.Err
}

// ResponseShapeError means a 200 reply did not hold
// candidates[0].content.parts[0].text.
type ResponseShapeError struct {
	Reason string
}

func (e *ResponseShapeError) Error() string {
	return e.Reason
}

// APIError is a reply with any status other than 200.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Error %d: %s", e.StatusCode, e.Body)
}
