package workspace

import (
	"context"
	"strings"

	"github.com/openfroyo/walworkspace/pkg/engine"
)

// msgNameNotProvided is returned when Delete has no workspace name.
const msgNameNotProvided = "WalWorkspace was not provided"

// Delete deletes the workspace. A request without a name fails NotFound
// without calling the service.
func (p *Provider) Delete(ctx context.Context, req *engine.Request, rc *engine.ReconciliationContext) *engine.Outcome {
	model := req.Model()
	inv := p.begin(ctx, engine.OperationDelete, req)

	if model.Name == "" {
		return p.finish(inv, engine.Failed(model, engine.ErrorKindNotFound, msgNameNotProvided))
	}

	err := p.call(inv.Ctx, "DeleteWorkspace", func(ctx context.Context) error {
		return p.client.DeleteWorkspace(ctx, model.Name)
	})
	if err != nil {
		if re := engine.AsRemoteError(err); re.Kind == engine.RemoteInvalidResource {
			if strings.Contains(re.Message, "does not exist") {
				return p.finish(inv, engine.Failed(model, engine.ErrorKindNotFound, re.Error()))
			}
			return p.finish(inv, engine.Failed(model, engine.ErrorKindInvalidRequest, re.Error()))
		}
		return p.finish(inv, p.classify(inv, err, rc, model))
	}

	return p.finish(inv, engine.Success(nil))
}
