package workspace

import (
	"context"
	"fmt"

	"github.com/openfroyo/walworkspace/pkg/engine"
)

// Read refreshes the workspace model from its tags. The service has no
// describe call, so a failed or empty tag lookup reads as NotFound.
func (p *Provider) Read(ctx context.Context, req *engine.Request, rc *engine.ReconciliationContext) *engine.Outcome {
	model := req.Model()
	inv := p.begin(ctx, engine.OperationRead, req)

	arn, err := engine.RequestARN(req)
	if err != nil {
		return p.finish(inv, engine.Failed(model, engine.ErrorKindInvalidRequest, err.Error()))
	}

	var tags []engine.Tag
	err = p.call(inv.Ctx, "ListTagsForResource", func(ctx context.Context) error {
		var err error
		tags, err = p.client.ListTagsForResource(ctx, arn)
		return err
	})
	if err != nil {
		if re := engine.AsRemoteError(err); re.Kind == engine.RemoteInvalidResource {
			return p.finish(inv, engine.Failedf(model, engine.ErrorKindInvalidRequest, "workspace locator %s was rejected: %s", arn, re.Message))
		}
		c := engine.Classify(inv.op, err, engine.ContextOrNew(rc))
		if c.Retry() {
			p.tel.Metrics.SetRetryBudget(string(inv.op), c.Context.RetryAttempts)
			return p.finish(inv, c.Outcome(model))
		}
		return p.finish(inv, notFound(model, c.Message))
	}

	if len(tags) == 0 {
		return p.finish(inv, notFound(model, "no tags on remote resource"))
	}

	return p.finish(inv, engine.Success(&engine.ResourceModel{
		Name: model.Name,
		Tags: engine.NewTagSet(tags...).Slice(),
	}))
}

func notFound(model *engine.ResourceModel, reason string) *engine.Outcome {
	return engine.Failed(model, engine.ErrorKindNotFound, fmt.Sprintf("workspace %s not found: %s", model.Name, reason))
}
