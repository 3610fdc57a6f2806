package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestReconciliationContext_Budget(t *testing.T) {
	rc := NewReconciliationContext()
	if rc.RetryAttempts != 5 {
		t.Fatalf("Expected default budget 5, got %d", rc.RetryAttempts)
	}

	for i := 0; i < 10; i++ {
		rc = rc.WithDecrementedBudget()
	}
	if rc.RetryAttempts != 0 {
		t.Errorf("Expected budget to floor at 0, got %d", rc.RetryAttempts)
	}
	if rc.CanRetry() {
		t.Error("Expected CanRetry false at 0")
	}
}

func TestContextOrNew(t *testing.T) {
	if got := ContextOrNew(nil); got.RetryAttempts != DefaultRetryAttempts {
		t.Errorf("Expected fresh context, got %+v", got)
	}

	given := &ReconciliationContext{RetryAttempts: 2}
	got := ContextOrNew(given)
	got = got.WithDecrementedBudget()
	if given.RetryAttempts != 2 {
		t.Errorf("Expected host copy untouched, got %d", given.RetryAttempts)
	}
}

func TestReconciliationContext_JSON(t *testing.T) {
	rc := NewReconciliationContext().WithWorkspaceARN("arn:aws:emrwal:us-east-1:123456789012:workspace/ws")

	data, err := json.Marshal(rc)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !strings.Contains(string(data), `"retryAttempts":5`) || !strings.Contains(string(data), `"walWorkspaceArn"`) {
		t.Errorf("Unexpected encoding %s", data)
	}
}

func TestRemoteError(t *testing.T) {
	cause := errors.New("socket closed")
	re := NewRemoteError(RemoteThrottled, "Rate exceeded").
		WithCode("WalThrottlingException").
		WithAPI("ListTagsForResource").
		WithCause(cause)

	if got := re.Error(); got != "ListTagsForResource: WalThrottlingException: Rate exceeded" {
		t.Errorf("Unexpected message %q", got)
	}
	if !errors.Is(re, cause) {
		t.Error("Expected cause in chain")
	}
	if !errors.Is(fmt.Errorf("wrap: %w", re), NewRemoteError(RemoteThrottled, "")) {
		t.Error("Expected kind match through wrapping")
	}
	if !IsRemoteThrottled(re) || !IsRemoteRetryable(re) || IsRemoteNotFound(re) {
		t.Error("Unexpected predicate results")
	}
	if KindOf(errors.New("plain")) != RemoteOther {
		t.Error("Expected plain errors to be Other")
	}
	if AsRemoteError(nil) != nil {
		t.Error("Expected nil for nil error")
	}
}

func TestValidateModel(t *testing.T) {
	if err := ValidateModel(&ResourceModel{Name: "ws", Tags: []Tag{{Key: "a", Value: ""}}}); err != nil {
		t.Errorf("Expected valid model, got: %v", err)
	}

	err := ValidateModel(&ResourceModel{})
	if err == nil || !strings.Contains(err.Error(), "Name is required") {
		t.Errorf("Expected missing name error, got: %v", err)
	}

	err = ValidateModel(&ResourceModel{Name: "ws", Tags: []Tag{{Key: ""}}})
	if err == nil || !strings.Contains(err.Error(), "Key is required") {
		t.Errorf("Expected missing key error, got: %v", err)
	}

	if ValidateModel(nil) == nil {
		t.Error("Expected error for nil model")
	}
}

func TestSuccessList_NeverNil(t *testing.T) {
	out := SuccessList(nil)
	if out.Models == nil || len(out.Models) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", out.Models)
	}
	if !out.IsTerminal() {
		t.Error("Expected terminal outcome")
	}
}
