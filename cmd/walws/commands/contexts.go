package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newContextsCommand() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "contexts",
		Short: "Show persisted reconciliation contexts",
		Long: `Show operations that are still in progress, with the reconciliation context
the next invocation will receive.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()

			a, err := newApp(ctx, false)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := a.close(ctx); cerr != nil && err == nil {
					err = cerr
				}
			}()

			records, err := a.store.ListContexts(ctx, limit, offset)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(w, records)
			}

			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TOKEN\tACTION\tWORKSPACE\tATTEMPT\tRETRIES LEFT\tNEXT ATTEMPT")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
					r.RequestToken, r.Action, r.Workspace, r.Attempt,
					r.Context.RetryAttempts, r.NextAttemptAt.Local().Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of contexts")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of contexts to skip")

	cmd.AddCommand(newContextsResumeCommand())

	return cmd
}

func newContextsResumeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume persisted operations that are due",
		Args:  cobra.NoArgs,
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

			results, err := a.driver.Resume(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(w, results)
			}
			if len(results) == 0 {
				fmt.Fprintln(w, "Nothing to resume")
				return nil
			}
			for token, out := range results {
				fmt.Fprintf(w, "%s: %s %s\n", token, out.Status, out.ErrorCode)
			}
			return nil
		},
	}
}
