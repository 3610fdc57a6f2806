package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
)

// ServiceName is the service segment of a workspace locator.
const ServiceName = "emrwal"

// workspaceResourcePrefix prefixes the workspace name in the resource segment.
const workspaceResourcePrefix = "workspace/"

var accountIDPattern = regexp.MustCompile(`^[0-9]{12}$`)

// LocatorError reports a locator that cannot be built from the request.
type LocatorError struct {
	Field  string
	Reason string
}

func (e *LocatorError) Error() string {
	return fmt.Sprintf("invalid workspace locator: %s %s", e.Field, e.Reason)
}

// WorkspaceARN builds the tagging locator of a workspace:
// arn:<partition>:emrwal:<region>:<account>:workspace/<name>.
func WorkspaceARN(partition, region, accountID, name string) (string, error) {
	switch {
	case partition == "":
		return "", &LocatorError{Field: "partition", Reason: "is empty"}
	case region == "":
		return "", &LocatorError{Field: "region", Reason: "is empty"}
	case !accountIDPattern.MatchString(accountID):
		return "", &LocatorError{Field: "account id", Reason: fmt.Sprintf("%q is not a 12 digit id", accountID)}
	case name == "":
		return "", &LocatorError{Field: "name", Reason: "is empty"}
	case strings.Contains(name, "/"):
		return "", &LocatorError{Field: "name", Reason: fmt.Sprintf("%q contains '/'", name)}
	}

	return arn.ARN{
		Partition: partition,
		Service:   ServiceName,
		Region:    region,
		AccountID: accountID,
		Resource:  workspaceResourcePrefix + name,
	}.String(), nil
}

// RequestARN builds the locator of the request's desired workspace.
func RequestARN(req *Request) (string, error) {
	return WorkspaceARN(req.AWSPartition, req.Region, req.AWSAccountID, req.Model().Name)
}

// ParseWorkspaceARN extracts the workspace name from a locator.
func ParseWorkspaceARN(s string) (string, error) {
	a, err := arn.Parse(s)
	if err != nil {
		return "", fmt.Errorf("failed to parse workspace locator: %w", err)
	}
	if a.Service != ServiceName {
		return "", fmt.Errorf("locator %q is not an %s resource", s, ServiceName)
	}
	name, ok := strings.CutPrefix(a.Resource, workspaceResourcePrefix)
	if !ok || name == "" {
		return "", fmt.Errorf("locator %q does not address a workspace", s)
	}
	return name, nil
}
