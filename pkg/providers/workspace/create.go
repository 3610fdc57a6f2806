package workspace

import (
	"context"

	"github.com/openfroyo/walworkspace/pkg/engine"
)

// Create creates the workspace with its model, stack and system tags.
func (p *Provider) Create(ctx context.Context, req *engine.Request, rc *engine.ReconciliationContext) *engine.Outcome {
	model := req.Model()
	inv := p.begin(ctx, engine.OperationCreate, req)

	if err := engine.ValidateModel(model); err != nil {
		return p.finish(inv, engine.Failed(model, engine.ErrorKindInvalidRequest, err.Error()))
	}

	tags := engine.CreateTags(req).Slice()
	inv.Logger.Infof("creating workspace with %d tags", len(tags))

	err := p.call(inv.Ctx, "CreateWorkspace", func(ctx context.Context) error {
		return p.client.CreateWorkspace(ctx, model.Name, tags)
	})
	if err != nil {
		return p.finish(inv, p.classify(inv, err, rc, model))
	}

	return p.finish(inv, engine.Success(model))
}
