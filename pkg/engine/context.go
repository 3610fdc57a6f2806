package engine

// DefaultRetryAttempts is the retry budget of a fresh reconciliation context.
const DefaultRetryAttempts = 5

// ReconciliationContext carries state between invocations of the same logical
// operation. The host persists it and hands it back on re-invocation; the core
// never stores it.
//
// The value is immutable: helpers return a modified copy.
type ReconciliationContext struct {
	// RetryAttempts is the remaining retry budget.
	RetryAttempts int `json:"retryAttempts"`

	// WorkspaceARN is the locator discovered by an earlier invocation, if any.
	WorkspaceARN string `json:"walWorkspaceArn,omitempty"`
}

// NewReconciliationContext returns a context with the default budget.
func NewReconciliationContext() ReconciliationContext {
	return ReconciliationContext{RetryAttempts: DefaultRetryAttempts}
}

// ContextOrNew dereferences rc, falling back to a fresh context when the host
// has none for this operation.
func ContextOrNew(rc *ReconciliationContext) ReconciliationContext {
	if rc == nil {
		return NewReconciliationContext()
	}
	return *rc
}

// CanRetry reports whether any retry budget remains.
func (c ReconciliationContext) CanRetry() bool {
	return c.RetryAttempts > 0
}

// WithDecrementedBudget returns a copy with one retry consumed. The budget
// never goes below zero.
func (c ReconciliationContext) WithDecrementedBudget() ReconciliationContext {
	if c.RetryAttempts > 0 {
		c.RetryAttempts--
	}
	return c
}

// WithWorkspaceARN returns a copy recording the workspace locator.
func (c ReconciliationContext) WithWorkspaceARN(arn string) ReconciliationContext {
	c.WorkspaceARN = arn
	return c
}
