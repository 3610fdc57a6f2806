package workspace

import (
	"context"

	"github.com/openfroyo/walworkspace/pkg/engine"
)

// List returns every workspace, name only. All pages are fetched within one
// invocation; a failure on any page discards what was collected.
func (p *Provider) List(ctx context.Context, req *engine.Request, rc *engine.ReconciliationContext) *engine.Outcome {
	inv := p.begin(ctx, engine.OperationList, req)

	var token *string
	if req != nil && req.NextToken != nil && *req.NextToken != "" {
		token = req.NextToken
	}

	models := []engine.ResourceModel{}
	for page := 1; ; page++ {
		var names []string
		var next *string
		err := p.call(inv.Ctx, "ListWorkspaces", func(ctx context.Context) error {
			var err error
			names, next, err = p.client.ListWorkspaces(ctx, engine.MaxListResults, token)
			return err
		})
		if err != nil {
			return p.finish(inv, p.classify(inv, err, rc, nil))
		}

		for _, name := range names {
			models = append(models, engine.ResourceModel{Name: name})
		}

		if next == nil || *next == "" {
			break
		}
		if token != nil && *next == *token {
			return p.finish(inv, engine.Failedf(nil, engine.ErrorKindGeneralServiceFailure,
				"pagination token %q repeated on page %d", *next, page))
		}
		token = next
	}

	inv.Logger.Debugf("listed %d workspaces", len(models))
	return p.finish(inv, engine.SuccessList(models))
}
