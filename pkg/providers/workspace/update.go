package workspace

import (
	"context"

	"github.com/openfroyo/walworkspace/pkg/engine"
)

// Update reconciles the workspace tags. The name is immutable, so tags are
// the only thing Update changes.
//
// The current tags are read back first; if that fails the workspace is
// reported NotFound and no tagging call is issued. Untag and tag are both
// issued even when their sets are empty; tag re-sends desired tags whose key
// was untagged.
func (p *Provider) Update(ctx context.Context, req *engine.Request, rc *engine.ReconciliationContext) *engine.Outcome {
	model := req.Model()
	inv := p.begin(ctx, engine.OperationUpdate, req)

	if err := engine.ValidateModel(model); err != nil {
		return p.finish(inv, engine.Failed(model, engine.ErrorKindInvalidRequest, err.Error()))
	}

	arn, err := engine.RequestARN(req)
	if err != nil {
		return p.finish(inv, engine.Failed(model, engine.ErrorKindInvalidRequest, err.Error()))
	}

	var current []engine.Tag
	err = p.call(inv.Ctx, "ListTagsForResource", func(ctx context.Context) error {
		var err error
		current, err = p.client.ListTagsForResource(ctx, arn)
		return err
	})
	if err != nil {
		c := engine.Classify(inv.op, err, engine.ContextOrNew(rc))
		if c.Retry() {
			p.tel.Metrics.SetRetryBudget(string(inv.op), c.Context.RetryAttempts)
			return p.finish(inv, c.Outcome(model))
		}
		return p.finish(inv, notFound(model, c.Message))
	}

	previous, desired := engine.UpdateTagSources(req, engine.NewTagSet(current...))
	diff := engine.ReconcileTags(previous, desired)
	apply := diff.TagsToApply(desired)
	inv.Logger.Infof("reconciling tags: %d to add, %d to remove", len(apply), len(diff.ToRemove))

	err = p.call(inv.Ctx, "UntagResource", func(ctx context.Context) error {
		return p.client.UntagResource(ctx, arn, diff.ToRemove.Keys())
	})
	if err != nil {
		return p.finish(inv, p.classify(inv, err, rc, model))
	}

	err = p.call(inv.Ctx, "TagResource", func(ctx context.Context) error {
		return p.client.TagResource(ctx, arn, apply.Slice())
	})
	if err != nil {
		return p.finish(inv, p.classify(inv, err, rc, model))
	}

	p.tel.Metrics.RecordTagChanges(len(apply), len(diff.ToRemove))
	return p.finish(inv, engine.Success(model))
}
