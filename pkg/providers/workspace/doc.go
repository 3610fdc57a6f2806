// Package workspace implements the lifecycle handlers of the
// AWS::EMR::WALWorkspace resource on top of a remote workspace client.
//
// Every handler returns an engine.Outcome and never a Go error. Remote
// failures go through engine.Classify; retryable ones come back IN_PROGRESS
// with a decremented reconciliation context that the host hands back on the
// next invocation.
//
// Example usage:
//
//	client, err := emrwal.NewClient(ctx, emrwal.DefaultConfig("us-east-1"))
//	if err != nil {
//		return err
//	}
//	p := workspace.New(client, workspace.WithTelemetry(tel))
//	out := p.Create(ctx, req, nil)
package workspace
