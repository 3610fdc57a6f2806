package engine

import "fmt"

// Status is the progress status returned to the host.
type Status string

const (
	StatusSuccess    Status = "SUCCESS"
	StatusFailed     Status = "FAILED"
	StatusInProgress Status = "IN_PROGRESS"
)

// ErrorKind is the stable error code carried by a failed outcome.
type ErrorKind string

const (
	// ErrorKindNotFound indicates the target workspace does not exist.
	ErrorKindNotFound ErrorKind = "NotFound"

	// ErrorKindAlreadyExists indicates Create collided with an existing workspace.
	ErrorKindAlreadyExists ErrorKind = "AlreadyExists"

	// ErrorKindInvalidRequest indicates a malformed identifier or locator,
	// detected before or by the remote service.
	ErrorKindInvalidRequest ErrorKind = "InvalidRequest"

	// ErrorKindRetryable indicates a transient failure the host should retry.
	// It never appears on a FAILED outcome.
	ErrorKindRetryable ErrorKind = "Retryable"

	// ErrorKindGeneralServiceFailure covers every other failure.
	ErrorKindGeneralServiceFailure ErrorKind = "GeneralServiceException"
)

// Terminal reports whether the kind ends the operation.
func (k ErrorKind) Terminal() bool {
	return k != ErrorKindRetryable && k != ""
}

// Outcome is the normalized result of one handler invocation.
type Outcome struct {
	Status Status `json:"status"`

	// Model is set by Create, Read, Update and failed Delete.
	Model *ResourceModel `json:"resourceModel,omitempty"`

	// Models is set by List only.
	Models []ResourceModel `json:"resourceModels,omitempty"`

	// NextToken is always nil: List drains every page in one invocation.
	NextToken *string `json:"nextToken,omitempty"`

	ErrorCode ErrorKind `json:"errorCode,omitempty"`
	Message   string    `json:"message,omitempty"`

	// CallbackContext is set on IN_PROGRESS outcomes; the host must hand it
	// back on the next invocation.
	CallbackContext *ReconciliationContext `json:"callbackContext,omitempty"`

	// CallbackDelaySeconds is the minimum delay before re-invocation.
	CallbackDelaySeconds int `json:"callbackDelaySeconds"`
}

// Success returns a SUCCESS outcome carrying model, which may be nil.
func Success(model *ResourceModel) *Outcome {
	return &Outcome{Status: StatusSuccess, Model: model}
}

// SuccessList returns a SUCCESS outcome carrying models. A nil slice is
// replaced by an empty one.
func SuccessList(models []ResourceModel) *Outcome {
	if models == nil {
		models = []ResourceModel{}
	}
	return &Outcome{Status: StatusSuccess, Models: models}
}

// Failed returns a FAILED outcome.
func Failed(model *ResourceModel, kind ErrorKind, message string) *Outcome {
	return &Outcome{
		Status:    StatusFailed,
		Model:     model,
		ErrorCode: kind,
		Message:   message,
	}
}

// Failedf returns a FAILED outcome with a formatted message.
func Failedf(model *ResourceModel, kind ErrorKind, format string, args ...interface{}) *Outcome {
	return Failed(model, kind, fmt.Sprintf(format, args...))
}

// InProgress returns an IN_PROGRESS outcome asking the host to re-invoke with rc.
func InProgress(model *ResourceModel, rc ReconciliationContext, message string) *Outcome {
	return &Outcome{
		Status:          StatusInProgress,
		Model:           model,
		Message:         message,
		CallbackContext: &rc,
	}
}

// IsTerminal reports whether the host should stop re-invoking.
func (o *Outcome) IsTerminal() bool {
	return o.Status != StatusInProgress
}
