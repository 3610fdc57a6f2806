package emrwal

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/openfroyo/walworkspace/pkg/engine"
)

// Service error codes.
const (
	CodeResourceNotFound        = "ResourceNotFoundException"
	CodeWorkspaceAlreadyExists  = "WorkspaceAlreadyExistException"
	CodeResourceAlreadyExists   = "ResourceAlreadyExistsException"
	CodeTooManyTags             = "TooManyTagsException"
	CodeThrottling              = "ThrottlingException"
	CodeTaggingFailed           = "TaggingFailedException"
	CodeInvalidResource         = "InvalidResourceException"
	CodeInternalServerException = "InternalServerException"
)

// errorBody is the JSON 1.1 error document.
type errorBody struct {
	Type         string `json:"__type"`
	Code         string `json:"code"`
	Message      string `json:"message"`
	MessageUpper string `json:"Message"`
}

// decodeError turns a non-2xx response into an API error wrapped in the SDK
// response error, so the retryer sees both the code and the status.
func decodeError(resp *http.Response, data []byte) error {
	var body errorBody
	_ = json.Unmarshal(data, &body)

	code := sanitizeErrorCode(resp.Header.Get("X-Amzn-ErrorType"))
	if code == "" {
		code = sanitizeErrorCode(body.Type)
	}
	if code == "" {
		code = sanitizeErrorCode(body.Code)
	}
	if code == "" {
		code = http.StatusText(resp.StatusCode)
	}

	msg := body.Message
	if msg == "" {
		msg = body.MessageUpper
	}

	fault := smithy.FaultClient
	if resp.StatusCode >= 500 {
		fault = smithy.FaultServer
	}

	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: resp},
			Err: &smithy.GenericAPIError{
				Code:    code,
				Message: msg,
				Fault:   fault,
			},
		},
		RequestID: resp.Header.Get("X-Amzn-RequestId"),
	}
}

// sanitizeErrorCode strips the namespace prefix and any trailing metadata
// from a JSON protocol error type, e.g.
// "com.amazonaws.emrwal#TooManyTagsException:http://..." -> "TooManyTagsException".
func sanitizeErrorCode(s string) string {
	if i := strings.LastIndex(s, "#"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// kindForCode maps a service error code and message onto the closed set of
// remote error kinds.
func kindForCode(code, message string) engine.RemoteErrorKind {
	switch code {
	case CodeResourceNotFound:
		return engine.RemoteNotFound
	case CodeWorkspaceAlreadyExists, CodeResourceAlreadyExists:
		return engine.RemoteAlreadyExists
	case CodeTooManyTags:
		return engine.RemoteTooManyTags
	case ThrottlingErrorCode, CodeThrottling:
		return engine.RemoteThrottled
	case CodeTaggingFailed:
		return engine.RemoteTaggingFailed
	case CodeInvalidResource:
		return engine.RemoteInvalidResource
	}
	if strings.Contains(message, "already exists") {
		return engine.RemoteAlreadyExists
	}
	return engine.RemoteOther
}

// mapError converts a failed call into a remote error.
func mapError(api string, err error) *engine.RemoteError {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return engine.NewRemoteError(engine.RemoteOther, err.Error()).
			WithAPI(api).
			WithCause(err)
	}

	code := apiErr.ErrorCode()
	msg := apiErr.ErrorMessage()
	if msg == "" {
		msg = code
	}

	re := engine.NewRemoteError(kindForCode(code, msg), msg).
		WithCode(code).
		WithAPI(api).
		WithCause(err)

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		re.RequestID = respErr.ServiceRequestID()
	}
	return re
}
