// Package config loads walws configuration and desired-state documents.
//
// Configuration is a YAML file layered over DefaultConfig, overridden by the
// standard AWS_REGION, AWS_PROFILE and LOG_LEVEL variables and validated
// with go-playground/validator.
//
// Documents describe one workspace in JSON, YAML or CUE:
//
//	name: wal-orders
//	tags:
//	  - key: team
//	    value: data
//	stack_tags:
//	  stack: orders
//
// Every document is unified with the built-in #Document CUE schema before
// it is decoded, so unknown fields and malformed names or tags are rejected
// with the CUE error location.
package config
