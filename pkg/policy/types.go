package policy

import (
	"fmt"
	"strings"
	"time"

	"github.com/openfroyo/walworkspace/pkg/engine"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for warnings that should be reviewed.
	SeverityWarning Severity = "warning"

	// SeverityError is for errors that should block operations.
	SeverityError Severity = "error"

	// SeverityCritical is for critical violations that must be addressed immediately.
	SeverityCritical Severity = "critical"
)

// Blocking reports whether a violation of this severity rejects the request.
func (s Severity) Blocking() bool {
	return s == SeverityError || s == SeverityCritical
}

// Policy represents a policy rule with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code. Violations are read from the
	// deny set of its package.
	Rego string `json:"rego"`

	// Severity is the default severity for violations.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// Metadata contains additional policy metadata.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PolicyViolation represents a single policy violation.
type PolicyViolation struct {
	// Policy is the name of the policy that was violated.
	Policy string `json:"policy"`

	// Workspace is the workspace name the violation refers to.
	Workspace string `json:"workspace,omitempty"`

	Message  string   `json:"message"`
	Severity Severity `json:"severity"`

	DetectedAt time.Time `json:"detected_at"`
}

// PolicyResult represents the result of policy evaluation.
type PolicyResult struct {
	// Allowed is false when any violation is blocking.
	Allowed bool `json:"allowed"`

	// Violations lists blocking violations.
	Violations []PolicyViolation `json:"violations,omitempty"`

	// Warnings lists violations that don't block operations.
	Warnings []PolicyViolation `json:"warnings,omitempty"`

	// Errors lists policies that failed to evaluate.
	Errors []string `json:"errors,omitempty"`

	EvaluatedAt       time.Time     `json:"evaluated_at"`
	EvaluatedPolicies []string      `json:"evaluated_policies"`
	Duration          time.Duration `json:"duration"`
}

// Err returns a *DeniedError when the result is not allowed.
func (r *PolicyResult) Err() error {
	if r == nil || r.Allowed {
		return nil
	}
	return &DeniedError{Violations: r.Violations}
}

// DeniedError reports a request rejected by policy.
type DeniedError struct {
	Violations []PolicyViolation
}

func (e *DeniedError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, fmt.Sprintf("%s: %s", v.Policy, v.Message))
	}
	return "denied by policy: " + strings.Join(msgs, "; ")
}

// PolicyInput is the document policies are evaluated against.
type PolicyInput struct {
	// Operation is the lowercase lifecycle verb, e.g. "create".
	Operation string `json:"operation"`

	Workspace WorkspaceInput `json:"workspace"`

	// AllTags is the union of model, stack and system tags that the
	// workspace will carry once the operation succeeds.
	AllTags []TagInput `json:"all_tags"`

	StackTags  map[string]string `json:"stack_tags"`
	SystemTags map[string]string `json:"system_tags"`

	Account   string `json:"account,omitempty"`
	Partition string `json:"partition,omitempty"`
	Region    string `json:"region,omitempty"`

	Context *PolicyContext `json:"context"`
}

// WorkspaceInput is the desired workspace model as policies see it.
type WorkspaceInput struct {
	Name string     `json:"name"`
	Tags []TagInput `json:"tags"`
}

// TagInput is one tag as policies see it.
type TagInput struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PolicyContext provides context information for policy evaluation.
type PolicyContext struct {
	Timestamp time.Time `json:"timestamp"`

	// DryRun is set by `walws validate`.
	DryRun bool `json:"dry_run"`
}

// NewInput builds the policy input of a lifecycle request.
func NewInput(action engine.Action, req *engine.Request) *PolicyInput {
	model := req.Model()

	return &PolicyInput{
		Operation: strings.ToLower(string(action)),
		Workspace: WorkspaceInput{
			Name: model.Name,
			Tags: tagInputs(model.TagSet().Slice()),
		},
		AllTags:    tagInputs(engine.CreateTags(req).Slice()),
		StackTags:  nonNil(req.DesiredResourceTags),
		SystemTags: nonNil(req.SystemTags),
		Account:    req.AWSAccountID,
		Partition:  req.AWSPartition,
		Region:     req.Region,
		Context:    &PolicyContext{Timestamp: time.Now()},
	}
}

func tagInputs(tags []engine.Tag) []TagInput {
	out := make([]TagInput, 0, len(tags))
	for _, t := range tags {
		out = append(out, TagInput{Key: t.Key, Value: t.Value})
	}
	return out
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
