package engine

import (
	"context"
)

// Handler implements the lifecycle verbs of one resource type.
//
// A handler never returns a Go error: every failure is classified into the
// returned Outcome. rc is the context handed back by the host, nil on the
// first invocation of an operation.
type Handler interface {
	Create(ctx context.Context, req *Request, rc *ReconciliationContext) *Outcome
	Read(ctx context.Context, req *Request, rc *ReconciliationContext) *Outcome
	Update(ctx context.Context, req *Request, rc *ReconciliationContext) *Outcome
	Delete(ctx context.Context, req *Request, rc *ReconciliationContext) *Outcome
	List(ctx context.Context, req *Request, rc *ReconciliationContext) *Outcome
}

// Invoke dispatches action to the matching handler verb.
func Invoke(ctx context.Context, h Handler, action Action, req *Request, rc *ReconciliationContext) *Outcome {
	switch action {
	case ActionCreate:
		return h.Create(ctx, req, rc)
	case ActionRead:
		return h.Read(ctx, req, rc)
	case ActionUpdate:
		return h.Update(ctx, req, rc)
	case ActionDelete:
		return h.Delete(ctx, req, rc)
	case ActionList:
		return h.List(ctx, req, rc)
	default:
		return Failedf(req.Model(), ErrorKindInvalidRequest, "unsupported action %q", action)
	}
}
