package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/walworkspace/pkg/config"
	"github.com/openfroyo/walworkspace/pkg/engine"
	"github.com/openfroyo/walworkspace/pkg/policy"
)

type validationReport struct {
	File       string                   `json:"file"`
	Workspace  string                   `json:"workspace,omitempty"`
	Error      string                   `json:"error,omitempty"`
	Violations []policy.PolicyViolation `json:"violations,omitempty"`
	Warnings   []policy.PolicyViolation `json:"warnings,omitempty"`
}

func (r validationReport) failed() bool {
	return r.Error != "" || len(r.Violations) > 0
}

func newValidateCommand() *cobra.Command {
	var skipPolicy bool

	cmd := &cobra.Command{
		Use:   "validate <document>...",
		Short: "Validate workspace documents",
		Long: `Validate workspace documents without contacting the service.

This command checks:
  - Document syntax (YAML, JSON or CUE)
  - Schema conformance of names and tags
  - Policy compliance (OPA/rego), unless --skip-policy is set`,
		Example: `  walws validate workspace.yaml
  walws validate --json workspaces/*.cue`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var eng *policy.Engine
			if !skipPolicy {
				eng, err = newPolicyEngine(ctx, cfg, log.Logger)
				if err != nil {
					return err
				}
			}

			parser := config.NewDocumentParser()
			reports := make([]validationReport, 0, len(args))
			failed := 0

			for _, path := range args {
				report := validationReport{File: path}

				doc, err := parser.ParseFile(path)
				if err != nil {
					report.Error = err.Error()
				} else {
					report.Workspace = doc.Name
					if eng != nil {
						result, err := eng.EvaluateRequest(ctx, engine.ActionCreate, doc.Request(cfg.AWS, nil))
						if err != nil {
							return err
						}
						report.Violations = result.Violations
						report.Warnings = result.Warnings
					}
				}

				if report.failed() {
					failed++
				}
				reports = append(reports, report)
			}

			w := cmd.OutOrStdout()
			if jsonOutput {
				if err := printJSON(w, reports); err != nil {
					return err
				}
			} else {
				for _, r := range reports {
					status := "ok"
					if r.failed() {
						status = "invalid"
					}
					fmt.Fprintf(w, "%s: %s\n", r.File, status)
					if r.Error != "" {
						fmt.Fprintf(w, "  error: %s\n", r.Error)
					}
					for _, v := range r.Violations {
						fmt.Fprintf(w, "  [%s] %s: %s\n", v.Severity, v.Policy, v.Message)
					}
					for _, v := range r.Warnings {
						fmt.Fprintf(w, "  [%s] %s: %s\n", v.Severity, v.Policy, v.Message)
					}
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d document(s) invalid", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipPolicy, "skip-policy", false, "only check syntax and schema")

	return cmd
}
