package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/openfroyo/walworkspace/pkg/config"
	"github.com/openfroyo/walworkspace/pkg/engine"
)

// requestFlags describe the workspace a lifecycle command acts on, either
// through a document or through flags. Flags override the document.
type requestFlags struct {
	file         string
	previousFile string
	name         string
	tags         map[string]string
	stackTags    map[string]string
	token        string
}

func (f *requestFlags) register(cmd *cobra.Command, withTags bool) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "workspace document (.yaml, .json or .cue)")
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "workspace name")
	cmd.Flags().StringVar(&f.token, "token", "", "client request token (generated when empty)")
	if withTags {
		cmd.Flags().StringToStringVarP(&f.tags, "tag", "t", nil, "resource tag key=value")
		cmd.Flags().StringToStringVar(&f.stackTags, "stack-tag", nil, "stack-level tag key=value")
	}
}

// document merges the document file and flags into one document.
func (f *requestFlags) document() (*config.Document, error) {
	doc := &config.Document{}
	if f.file != "" {
		parsed, err := config.NewDocumentParser().ParseFile(f.file)
		if err != nil {
			return nil, err
		}
		doc = parsed
	}

	if f.name != "" {
		doc.Name = f.name
	}
	if len(f.tags) > 0 {
		doc.Tags = tagsFromMap(f.tags)
	}
	if len(f.stackTags) > 0 {
		doc.StackTags = f.stackTags
	}

	if doc.Name == "" {
		return nil, fmt.Errorf("a workspace name is required (--name or --file)")
	}
	return doc, nil
}

func (f *requestFlags) previous() (*config.Document, error) {
	if f.previousFile == "" {
		return nil, nil
	}
	return config.NewDocumentParser().ParseFile(f.previousFile)
}

// request builds the lifecycle request for the flags.
func (f *requestFlags) request(aws config.AWSConfig) (*engine.Request, error) {
	doc, err := f.document()
	if err != nil {
		return nil, err
	}
	prev, err := f.previous()
	if err != nil {
		return nil, err
	}

	req := doc.Request(aws, prev)
	req.ClientRequestToken = f.token
	return req, nil
}

func tagsFromMap(m map[string]string) []config.DocumentTag {
	tags := make([]config.DocumentTag, 0, len(m))
	for k, v := range m {
		tags = append(tags, config.DocumentTag{Key: k, Value: v})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Key < tags[j].Key })
	return tags
}

// runAction drives one lifecycle verb through the host driver.
func runAction(ctx context.Context, cmd *cobra.Command, action engine.Action, f *requestFlags) (err error) {
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()

	req, err := f.request(a.cfg.AWS)
	if err != nil {
		return err
	}

	out, err := a.driver.Run(ctx, action, req)
	if err != nil {
		return err
	}
	return printOutcome(cmd.OutOrStdout(), out)
}

func newCreateCommand() *cobra.Command {
	f := &requestFlags{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workspace",
		Long: `Create a workspace with its resource, stack and system tags.

Create and Update requests are checked against the built-in and configured
policies first; a denied request fails with InvalidRequest.`,
		Example: `  # Create from a document
  walws create -f workspace.yaml

  # Create from flags
  walws create --name wal-orders --tag team=data --tag env=prod`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd.Context(), cmd, engine.ActionCreate, f)
		},
	}
	f.register(cmd, true)

	return cmd
}

func newReadCommand() *cobra.Command {
	f := &requestFlags{}

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read a workspace and its tags",
		Example: `  walws read --name wal-orders
  walws read --name wal-orders --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd.Context(), cmd, engine.ActionRead, f)
		},
	}
	f.register(cmd, false)

	return cmd
}

func newUpdateCommand() *cobra.Command {
	f := &requestFlags{}

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Reconcile the tags of a workspace",
		Long: `Reconcile the remote tags of a workspace with the desired document.

Tags present remotely but not desired are removed by key, then desired tags
not present remotely are added. Stack and system tags of the previous
document (--previous) are used to work out which remote tags to drop.`,
		Example: `  walws update -f workspace.yaml --previous workspace.applied.yaml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd.Context(), cmd, engine.ActionUpdate, f)
		},
	}
	f.register(cmd, true)
	cmd.Flags().StringVarP(&f.previousFile, "previous", "p", "", "previously applied document")

	return cmd
}

func newDeleteCommand() *cobra.Command {
	f := &requestFlags{}

	cmd := &cobra.Command{
		Use:     "delete",
		Short:   "Delete a workspace",
		Example: `  walws delete --name wal-orders`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd.Context(), cmd, engine.ActionDelete, f)
		},
	}
	f.register(cmd, false)

	return cmd
}

func newListCommand() *cobra.Command {
	var nextToken string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every workspace in the account and region",
		Long: `List every workspace. All pages are fetched in one invocation; --next-token
starts from a continuation token returned by an earlier listing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()

			a, err := newApp(ctx, true)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := a.close(ctx); cerr != nil && err == nil {
					err = cerr
				}
			}()

			req := &engine.Request{
				AWSAccountID: a.cfg.AWS.AccountID,
				AWSPartition: a.cfg.AWS.Partition,
				Region:       a.cfg.AWS.Region,
			}
			if nextToken != "" {
				req.NextToken = &nextToken
			}

			out, err := a.driver.Run(ctx, engine.ActionList, req)
			if err != nil {
				return err
			}
			return printOutcome(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&nextToken, "next-token", "", "continuation token to start from")

	return cmd
}
