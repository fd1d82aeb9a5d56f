package intent

import "fmt"

// ExtractionError marks a retryable extraction failure: the provider was
// unreachable, timed out, or returned something that doesn't decode as JSON.
// A well-formed reply with an out-of-scope kind is not an error.
type ExtractionError struct {
	Code    string
	Message string
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func NewExtractionError(msg string, err error) error {
	return &ExtractionError{
		Code:    "extractionFailed",
		Message: msg,
		Err:     err,
	}
}
