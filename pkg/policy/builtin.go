package policy

import (
	"time"
)

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		workspaceNamingPolicy(),
		reservedTagPrefixPolicy(),
		tagLimitsPolicy(),
		tagHygienePolicy(),
	}
}

// workspaceNamingPolicy enforces the workspace name charset and length.
func workspaceNamingPolicy() Policy {
	return Policy{
		Name:        "workspace-naming",
		Description: "Workspace names are 1-64 letters, digits, hyphens, underscores or dots",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"naming"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package walws.policies.naming

import rego.v1

deny contains violation if {
	input.workspace.name == ""
	violation := {
		"message": "workspace name must not be empty",
		"severity": "error",
	}
}

deny contains violation if {
	name := input.workspace.name
	name != ""
	not regex.match("^[A-Za-z0-9_.-]+$", name)
	violation := {
		"message": sprintf("workspace name '%s' may only contain letters, digits, '-', '_' and '.'", [name]),
		"severity": "error",
	}
}

deny contains violation if {
	name := input.workspace.name
	count(name) > 64
	violation := {
		"message": sprintf("workspace name '%s' is longer than 64 characters", [name]),
		"severity": "error",
	}
}
`,
	}
}

// reservedTagPrefixPolicy rejects user tags in the aws: namespace. System
// tags set by the host are exempt.
func reservedTagPrefixPolicy() Policy {
	return Policy{
		Name:        "reserved-tag-prefix",
		Description: "Resource and stack tags must not use the reserved aws: prefix",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"tags"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package walws.policies.reserved

import rego.v1

deny contains violation if {
	some tag in input.workspace.tags
	startswith(lower(tag.key), "aws:")
	violation := {
		"message": sprintf("tag key '%s' uses the reserved aws: prefix", [tag.key]),
		"severity": "error",
	}
}

deny contains violation if {
	some key, _ in input.stack_tags
	startswith(lower(key), "aws:")
	violation := {
		"message": sprintf("stack tag key '%s' uses the reserved aws: prefix", [key]),
		"severity": "error",
	}
}
`,
	}
}

// tagLimitsPolicy enforces the tag count and key/value lengths.
func tagLimitsPolicy() Policy {
	return Policy{
		Name:        "tag-limits",
		Description: "At most 50 tags, keys up to 128 and values up to 256 characters",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"tags", "limits"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package walws.policies.limits

import rego.v1

deny contains violation if {
	n := count(input.all_tags)
	n > 50
	violation := {
		"message": sprintf("workspace would carry %d tags, the limit is 50", [n]),
		"severity": "error",
	}
}

deny contains violation if {
	some tag in input.all_tags
	count(tag.key) > 128
	violation := {
		"message": sprintf("tag key '%s' is longer than 128 characters", [tag.key]),
		"severity": "error",
	}
}

deny contains violation if {
	some tag in input.all_tags
	count(tag.value) > 256
	violation := {
		"message": sprintf("value of tag '%s' is longer than 256 characters", [tag.key]),
		"severity": "error",
	}
}
`,
	}
}

// tagHygienePolicy warns about tags that are legal but likely mistakes.
func tagHygienePolicy() Policy {
	return Policy{
		Name:        "tag-hygiene",
		Description: "Warns about empty tag values and keys with surrounding whitespace",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"tags"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package walws.policies.hygiene

import rego.v1

deny contains violation if {
	some tag in input.workspace.tags
	tag.value == ""
	violation := {
		"message": sprintf("tag '%s' has an empty value", [tag.key]),
		"severity": "warning",
	}
}

deny contains violation if {
	some tag in input.workspace.tags
	trim_space(tag.key) != tag.key
	violation := {
		"message": sprintf("tag key '%s' has leading or trailing whitespace", [tag.key]),
		"severity": "warning",
	}
}
`,
	}
}
