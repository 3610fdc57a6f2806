package engine

import (
	"sort"
)

// TypeName is the resource type name reported to the orchestration host.
const TypeName = "AWS::EMRWAL::Workspace"

// MaxListResults is the page size requested from the remote listing endpoint.
// The remote service rejects anything above 1000.
const MaxListResults int32 = 1000

// Tag is a single key/value pair attached to a workspace.
// Two tags are equal only when both key and value match.
type Tag struct {
	// Key is the tag key.
	Key string `json:"Key" yaml:"key" validate:"required,max=128"`

	// Value is the tag value. The remote service omits empty values; they
	// are normalized to "".
	Value string `json:"Value" yaml:"value" validate:"max=256"`
}

// ResourceModel is the declarative description of one workspace.
type ResourceModel struct {
	// Name identifies the workspace. Immutable after creation.
	Name string `json:"WALWorkspaceName,omitempty" yaml:"name" validate:"required"`

	// Tags are the resource-level tags.
	Tags []Tag `json:"Tags,omitempty" yaml:"tags,omitempty" validate:"omitempty,dive"`
}

// TagSet returns the model's tags as a set.
func (m *ResourceModel) TagSet() TagSet {
	if m == nil {
		return TagSet{}
	}
	return NewTagSet(m.Tags...)
}

// Request carries one invocation from the orchestration host.
type Request struct {
	// DesiredResourceState is the model the host wants to reach.
	DesiredResourceState *ResourceModel `json:"desiredResourceState,omitempty"`

	// PreviousResourceState is the model from the last successful operation.
	PreviousResourceState *ResourceModel `json:"previousResourceState,omitempty"`

	// DesiredResourceTags are stack-level tags for the desired state.
	DesiredResourceTags map[string]string `json:"desiredResourceTags,omitempty"`

	// PreviousResourceTags are stack-level tags from the previous state.
	PreviousResourceTags map[string]string `json:"previousResourceTags,omitempty"`

	// SystemTags are host-generated tags for the desired state.
	SystemTags map[string]string `json:"systemTags,omitempty"`

	// PreviousSystemTags are host-generated tags from the previous state.
	PreviousSystemTags map[string]string `json:"previousSystemTags,omitempty"`

	AWSAccountID string `json:"awsAccountId,omitempty"`
	AWSPartition string `json:"awsPartition,omitempty"`
	Region       string `json:"region,omitempty"`

	// NextToken is the continuation token for List.
	NextToken *string `json:"nextToken,omitempty"`

	// ClientRequestToken identifies one logical operation across retries.
	ClientRequestToken string `json:"clientRequestToken,omitempty"`
}

// Model returns the desired model, or an empty one when the host sent none.
func (r *Request) Model() *ResourceModel {
	if r == nil || r.DesiredResourceState == nil {
		return &ResourceModel{}
	}
	return r.DesiredResourceState
}

// Action is a lifecycle verb.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionRead   Action = "READ"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionList   Action = "LIST"
)

// Operation returns the operation name the classifier keys on.
func (a Action) Operation() Operation {
	switch a {
	case ActionCreate:
		return OperationCreate
	case ActionRead:
		return OperationRead
	case ActionUpdate:
		return OperationUpdate
	case ActionDelete:
		return OperationDelete
	case ActionList:
		return OperationList
	default:
		return Operation("AWS-EMR-WALWorkspace::" + string(a))
	}
}

// ParseAction converts a verb name into an Action.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionList:
		return Action(s), true
	}
	return "", false
}

// TagSet is a set of tags keyed by full key+value identity.
type TagSet map[Tag]struct{}

// NewTagSet builds a set from tags.
func NewTagSet(tags ...Tag) TagSet {
	s := make(TagSet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// TagSetFromMap builds a set from a key/value map as sent by the host.
func TagSetFromMap(m map[string]string) TagSet {
	s := make(TagSet, len(m))
	for k, v := range m {
		s[Tag{Key: k, Value: v}] = struct{}{}
	}
	return s
}

// Has reports whether the exact tag is a member.
func (s TagSet) Has(t Tag) bool {
	_, ok := s[t]
	return ok
}

// Union returns a new set holding the members of every set.
func Union(sets ...TagSet) TagSet {
	out := TagSet{}
	for _, s := range sets {
		for t := range s {
			out[t] = struct{}{}
		}
	}
	return out
}

// Difference returns the members of s not present in other.
func (s TagSet) Difference(other TagSet) TagSet {
	out := TagSet{}
	for t := range s {
		if !other.Has(t) {
			out[t] = struct{}{}
		}
	}
	return out
}

// Equal reports whether both sets hold the same tags.
func (s TagSet) Equal(other TagSet) bool {
	if len(s) != len(other) {
		return false
	}
	for t := range s {
		if !other.Has(t) {
			return false
		}
	}
	return true
}

// Slice returns the tags sorted by key, then value.
func (s TagSet) Slice() []Tag {
	out := make([]Tag, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key != out[j].Key {
			return out[i].Key < out[j].Key
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// Keys returns the distinct keys in sorted order.
func (s TagSet) Keys() []string {
	seen := make(map[string]struct{}, len(s))
	keys := make([]string, 0, len(s))
	for t := range s {
		if _, ok := seen[t.Key]; ok {
			continue
		}
		seen[t.Key] = struct{}{}
		keys = append(keys, t.Key)
	}
	sort.Strings(keys)
	return keys
}
