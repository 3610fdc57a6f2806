package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/walworkspace/pkg/engine"
	"github.com/openfroyo/walworkspace/pkg/stores"
)

func newInvocationsCommand() *cobra.Command {
	var (
		token     string
		workspace string
		status    string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "invocations",
		Short: "Show the handler invocation log",
		Example: `  walws invocations --workspace wal-orders
  walws invocations --status FAILED --limit 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()

			filter := stores.InvocationFilter{Limit: limit}
			if token != "" {
				filter.RequestToken = &token
			}
			if workspace != "" {
				filter.Workspace = &workspace
			}
			if status != "" {
				s := engine.Status(status)
				switch s {
				case engine.StatusSuccess, engine.StatusFailed, engine.StatusInProgress:
				default:
					return fmt.Errorf("invalid status %q", status)
				}
				filter.Status = &s
			}

			a, err := newApp(ctx, false)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := a.close(ctx); cerr != nil && err == nil {
					err = cerr
				}
			}()

			invocations, err := a.store.ListInvocations(ctx, filter)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(w, invocations)
			}

			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tTOKEN\tACTION\tWORKSPACE\tATTEMPT\tSTATUS\tERROR\tDURATION")
			for _, inv := range invocations {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
					inv.Timestamp.Local().Format(time.RFC3339), inv.RequestToken, inv.Action,
					inv.Workspace, inv.Attempt, inv.Status, inv.ErrorCode, inv.Duration.Round(time.Millisecond))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "filter by client request token")
	cmd.Flags().StringVar(&workspace, "workspace", "", "filter by workspace name")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (SUCCESS, FAILED, IN_PROGRESS)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of invocations")

	return cmd
}
