package emrwal

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/openfroyo/walworkspace/pkg/engine"
)

// API operation names.
const (
	OpCreateWorkspace     = "CreateWorkspace"
	OpDeleteWorkspace     = "DeleteWorkspace"
	OpListWorkspaces      = "ListWorkspaces"
	OpListTagsForResource = "ListTagsForResource"
	OpTagResource         = "TagResource"
	OpUntagResource       = "UntagResource"
)

// wireTag is a tag as the service encodes it. Value may be absent.
type wireTag struct {
	Key   *string `json:"Key"`
	Value *string `json:"Value,omitempty"`
}

type createWorkspaceInput struct {
	WALWorkspace string    `json:"WALWorkspace"`
	Tags         []wireTag `json:"Tags,omitempty"`
}

type deleteWorkspaceInput struct {
	WALWorkspace string `json:"WALWorkspace"`
}

type listWorkspacesInput struct {
	MaxResults *int32  `json:"MaxResults,omitempty"`
	NextToken  *string `json:"NextToken,omitempty"`
}

type listWorkspacesOutput struct {
	WALWorkspaceList []string `json:"WALWorkspaceList"`
	NextToken        *string  `json:"NextToken"`
}

type listTagsForResourceInput struct {
	ResourceARN string `json:"ResourceARN"`
}

type listTagsForResourceOutput struct {
	Tags []wireTag `json:"Tags"`
}

type tagResourceInput struct {
	ResourceARN string    `json:"ResourceARN"`
	Tags        []wireTag `json:"Tags"`
}

type untagResourceInput struct {
	ResourceARN string   `json:"ResourceARN"`
	TagKeys     []string `json:"TagKeys"`
}

// CreateWorkspace creates a workspace with its initial tags.
func (c *Client) CreateWorkspace(ctx context.Context, name string, tags []engine.Tag) error {
	return c.do(ctx, OpCreateWorkspace, &createWorkspaceInput{
		WALWorkspace: name,
		Tags:         toWireTags(tags),
	}, nil)
}

// DeleteWorkspace deletes a workspace.
func (c *Client) DeleteWorkspace(ctx context.Context, name string) error {
	return c.do(ctx, OpDeleteWorkspace, &deleteWorkspaceInput{WALWorkspace: name}, nil)
}

// ListWorkspaces returns one page of workspace names and the token of the
// next page, nil on the last page.
func (c *Client) ListWorkspaces(ctx context.Context, maxResults int32, nextToken *string) ([]string, *string, error) {
	in := &listWorkspacesInput{NextToken: nextToken}
	if maxResults > 0 {
		in.MaxResults = aws.Int32(maxResults)
	}

	var out listWorkspacesOutput
	if err := c.do(ctx, OpListWorkspaces, in, &out); err != nil {
		return nil, nil, err
	}
	if out.NextToken != nil && *out.NextToken == "" {
		out.NextToken = nil
	}
	return out.WALWorkspaceList, out.NextToken, nil
}

// ListTagsForResource returns the tags attached to the resource.
func (c *Client) ListTagsForResource(ctx context.Context, arn string) ([]engine.Tag, error) {
	var out listTagsForResourceOutput
	if err := c.do(ctx, OpListTagsForResource, &listTagsForResourceInput{ResourceARN: arn}, &out); err != nil {
		return nil, err
	}
	return fromWireTags(out.Tags), nil
}

// TagResource attaches tags to the resource.
func (c *Client) TagResource(ctx context.Context, arn string, tags []engine.Tag) error {
	return c.do(ctx, OpTagResource, &tagResourceInput{
		ResourceARN: arn,
		Tags:        toWireTags(tags),
	}, nil)
}

// UntagResource removes tags by key from the resource.
func (c *Client) UntagResource(ctx context.Context, arn string, keys []string) error {
	if keys == nil {
		keys = []string{}
	}
	return c.do(ctx, OpUntagResource, &untagResourceInput{
		ResourceARN: arn,
		TagKeys:     keys,
	}, nil)
}

func toWireTags(tags []engine.Tag) []wireTag {
	out := make([]wireTag, 0, len(tags))
	for _, t := range tags {
		out = append(out, wireTag{Key: aws.String(t.Key), Value: aws.String(t.Value)})
	}
	return out
}

// fromWireTags decodes tags, normalizing absent values to "".
func fromWireTags(tags []wireTag) []engine.Tag {
	out := make([]engine.Tag, 0, len(tags))
	for _, t := range tags {
		out = append(out, engine.Tag{
			Key:   aws.ToString(t.Key),
			Value: aws.ToString(t.Value),
		})
	}
	return out
}
