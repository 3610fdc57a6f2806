package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/openfroyo/walworkspace/pkg/engine"
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printOutcome writes out and returns an error for a FAILED outcome so the
// process exits non-zero.
func printOutcome(w io.Writer, out *engine.Outcome) error {
	if jsonOutput {
		if err := printJSON(w, out); err != nil {
			return err
		}
	} else {
		writeOutcome(w, out)
	}

	if out.Status == engine.StatusFailed {
		return fmt.Errorf("%s: %s", out.ErrorCode, out.Message)
	}
	return nil
}

func writeOutcome(w io.Writer, out *engine.Outcome) {
	fmt.Fprintf(w, "Status: %s\n", out.Status)
	if out.ErrorCode != "" {
		fmt.Fprintf(w, "Error:  %s\n", out.ErrorCode)
	}
	if out.Message != "" {
		fmt.Fprintf(w, "Message: %s\n", out.Message)
	}

	if out.Model != nil {
		writeModel(w, *out.Model)
	}
	if out.Models != nil {
		fmt.Fprintf(w, "Workspaces (%d):\n", len(out.Models))
		for _, m := range out.Models {
			fmt.Fprintf(w, "  %s\n", m.Name)
		}
	}
}

func writeModel(w io.Writer, m engine.ResourceModel) {
	fmt.Fprintf(w, "Workspace: %s\n", m.Name)
	if len(m.Tags) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  KEY\tVALUE")
	for _, t := range m.Tags {
		fmt.Fprintf(tw, "  %s\t%s\n", t.Key, t.Value)
	}
	_ = tw.Flush()
}
