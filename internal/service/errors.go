package service

import "errors"

var (
	// ErrInvalidImagePayload means the image reference holds nothing that
	// can be sent for analysis.
	ErrInvalidImagePayload = errors.New("invalid image payload")
	// ErrImageNotAccessible means a remote image could not be downloaded.
	ErrImageNotAccessible = errors.New("image not accessible for analysis")
	// ErrModelRequest means the request to the audit model failed.
	ErrModelRequest = errors.New("audit model request failed")
	// ErrEmptyResponse means the model answered with no content.
	ErrEmptyResponse = errors.New("model returned no content")
	// ErrMalformedResponse means the model answer did not match the audit
	// result contract.
	ErrMalformedResponse = errors.New("model returned an invalid format")
	// ErrMissingAPIKey means no model credentials were configured.
	ErrMissingAPIKey = errors.New("audit model API key is not configured")
)

// RetryableError marks a transient failure worth another attempt
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

func retryable(err error) error {
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err was marked as transient
func IsRetryable(err error) bool {
	var r *RetryableError
	return errors.As(err, &r)
}
