package engine

import (
	"strings"
)

// Operation names the lifecycle verb a failure occurred in.
type Operation string

const (
	OperationCreate Operation = "AWS-EMR-WALWorkspace::Create"
	OperationRead   Operation = "AWS-EMR-WALWorkspace::Read"
	OperationUpdate Operation = "AWS-EMR-WALWorkspace::Update"
	OperationDelete Operation = "AWS-EMR-WALWorkspace::Delete"
	OperationList   Operation = "AWS-EMR-WALWorkspace::List"
)

// Messages the service returns from tagging calls when the workspace itself
// is missing.
const (
	msgAlreadyExists          = "already exists"
	msgUnableToRetrieveForTag = "Unable to retrieve workspace for tagging"
	msgUnableToListTag        = "Unable to list tag, please make sure Workspace is created first"
)

// ThrottledCallbackDelaySeconds is the re-invocation delay requested after
// the service throttled a call.
const ThrottledCallbackDelaySeconds = 5

// Classification is the decision taken for one remote failure.
type Classification struct {
	Kind    ErrorKind
	Message string

	// Throttled is set when a retry was caused by service throttling.
	Throttled bool

	// Context is the reconciliation context the host must carry forward. It
	// has one less retry attempt when Kind is ErrorKindRetryable and is the
	// input context otherwise.
	Context ReconciliationContext
}

// Retry reports whether the host should re-invoke.
func (c Classification) Retry() bool {
	return c.Kind == ErrorKindRetryable
}

// Outcome converts the classification into a handler outcome.
func (c Classification) Outcome(model *ResourceModel) *Outcome {
	if c.Retry() {
		out := InProgress(model, c.Context, c.Message)
		if c.Throttled {
			out.CallbackDelaySeconds = ThrottledCallbackDelaySeconds
		}
		return out
	}
	return Failed(model, c.Kind, c.Message)
}

// Classify maps a remote failure observed during op into an error kind.
//
// Classify performs no I/O and never mutates rc; a retryable failure yields a
// copy with the budget decremented. Once the budget is exhausted a retryable
// failure degrades to a general service failure.
func Classify(op Operation, err error, rc ReconciliationContext) Classification {
	re := AsRemoteError(err)
	if re == nil {
		return Classification{Kind: ErrorKindGeneralServiceFailure, Message: "unknown failure", Context: rc}
	}

	c := Classification{Message: re.Error(), Context: rc}

	switch {
	case op == OperationCreate && (re.Kind == RemoteAlreadyExists || strings.Contains(re.Message, msgAlreadyExists)):
		c.Kind = ErrorKindAlreadyExists

	case re.Kind == RemoteNotFound && (op == OperationRead || op == OperationUpdate || op == OperationDelete):
		c.Kind = ErrorKindNotFound

	case re.Kind == RemoteTaggingFailed && (op == OperationRead || op == OperationUpdate) && strings.Contains(re.Message, msgUnableToRetrieveForTag):
		c.Kind = ErrorKindNotFound

	case re.Kind == RemoteTaggingFailed && (op == OperationRead || op == OperationUpdate) && strings.Contains(re.Message, msgUnableToListTag):
		c.Kind = ErrorKindNotFound

	case re.Retryable() && rc.CanRetry():
		c.Kind = ErrorKindRetryable
		c.Context = rc.WithDecrementedBudget()
		c.Throttled = re.Kind == RemoteThrottled

	default:
		c.Kind = ErrorKindGeneralServiceFailure
	}

	return c
}
