// Package policy provides Open Policy Agent (OPA) checks for workspace
// requests.
//
// Policies are Rego modules whose package defines a deny set; every element
// is a violation, either a string or an object with "message" and
// "severity". Violations of severity error or critical make the request
// not allowed; lower severities are returned as warnings.
//
// # Built-in Policies
//
//   - workspace-naming: names are 1-64 characters from [A-Za-z0-9_.-]
//   - reserved-tag-prefix: resource and stack tags may not start with "aws:"
//   - tag-limits: at most 50 tags in total, keys up to 128 and values up
//     to 256 characters
//   - tag-hygiene (warning): empty values, keys with surrounding whitespace
//
// # Usage
//
//	eng, err := policy.NewEngine(logger)
//	if err != nil {
//	    return err
//	}
//	result, err := eng.EvaluateRequest(ctx, engine.ActionCreate, req)
//	if err != nil {
//	    return err
//	}
//	if err := result.Err(); err != nil {
//	    // rejected
//	}
//
// Custom policies are loaded from .rego or .json files with LoadPolicies,
// and Loader.Watch reloads them when the files change.
package policy
