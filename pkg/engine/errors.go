package engine

import (
	"errors"
	"fmt"
)

// RemoteErrorKind is the closed set of failure categories the remote client
// reports. The client's error-mapping layer decides the kind; the classifier
// only switches on it.
type RemoteErrorKind string

const (
	// RemoteNotFound indicates the addressed resource does not exist.
	RemoteNotFound RemoteErrorKind = "NotFound"

	// RemoteAlreadyExists indicates a create collided with an existing resource.
	RemoteAlreadyExists RemoteErrorKind = "AlreadyExists"

	// RemoteTooManyTags indicates the tag limit of the resource was exceeded.
	RemoteTooManyTags RemoteErrorKind = "TooManyTags"

	// RemoteThrottled indicates the remote service rate limited the call.
	RemoteThrottled RemoteErrorKind = "Throttled"

	// RemoteTaggingFailed indicates a tagging call failed on the service side.
	// Retryable unless the message says the workspace could not be located.
	RemoteTaggingFailed RemoteErrorKind = "TaggingFailed"

	// RemoteInvalidResource indicates the service rejected the identifier.
	RemoteInvalidResource RemoteErrorKind = "InvalidResource"

	// RemoteOther covers every other failure, including non-API errors.
	RemoteOther RemoteErrorKind = "Other"
)

// RemoteError is a failure returned by the remote workspace service.
type RemoteError struct {
	// Kind is the error category.
	Kind RemoteErrorKind `json:"kind"`

	// Code is the service error code, if any.
	Code string `json:"code,omitempty"`

	// Message is the service message.
	Message string `json:"message"`

	// API is the remote operation that failed.
	API string `json:"api,omitempty"`

	// RequestID is the service request id, if any.
	RequestID string `json:"request_id,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	switch {
	case e.API != "" && e.Code != "":
		return fmt.Sprintf("%s: %s: %s", e.API, e.Code, e.Message)
	case e.Code != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case e.API != "":
		return fmt.Sprintf("%s: %s", e.API, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for error chain inspection.
func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Is matches another *RemoteError of the same kind.
func (e *RemoteError) Is(target error) bool {
	t, ok := target.(*RemoteError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Retryable reports whether the kind belongs to the retryable set.
func (e *RemoteError) Retryable() bool {
	return e.Kind == RemoteTaggingFailed || e.Kind == RemoteThrottled
}

// NewRemoteError creates a remote error of the given kind.
func NewRemoteError(kind RemoteErrorKind, message string) *RemoteError {
	return &RemoteError{Kind: kind, Message: message}
}

// WithCode adds the service error code.
func (e *RemoteError) WithCode(code string) *RemoteError {
	e.Code = code
	return e
}

// WithAPI adds the failing remote operation.
func (e *RemoteError) WithAPI(api string) *RemoteError {
	e.API = api
	return e
}

// WithCause adds the underlying error.
func (e *RemoteError) WithCause(err error) *RemoteError {
	e.Err = err
	return e
}

// AsRemoteError extracts a *RemoteError from err. Errors that are not remote
// errors are wrapped as RemoteOther so callers always get a kind.
func AsRemoteError(err error) *RemoteError {
	if err == nil {
		return nil
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return re
	}
	return &RemoteError{Kind: RemoteOther, Message: err.Error(), Err: err}
}

// KindOf returns the remote kind of err, or RemoteOther.
func KindOf(err error) RemoteErrorKind {
	if re := AsRemoteError(err); re != nil {
		return re.Kind
	}
	return RemoteOther
}

// IsRemoteNotFound reports whether err is a remote not-found failure.
func IsRemoteNotFound(err error) bool {
	return err != nil && KindOf(err) == RemoteNotFound
}

// IsRemoteThrottled reports whether err is a remote throttling failure.
func IsRemoteThrottled(err error) bool {
	return err != nil && KindOf(err) == RemoteThrottled
}

// IsRemoteRetryable reports whether err belongs to the retryable set.
func IsRemoteRetryable(err error) bool {
	re := AsRemoteError(err)
	return re != nil && re.Retryable()
}
