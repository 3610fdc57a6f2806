// Package engine holds the reconciliation core for EMR WAL workspaces.
//
// The core is pure: it performs no I/O and keeps no state between calls.
// It provides
//
//   - the resource model, lifecycle request and outcome types exchanged with
//     an orchestration host,
//   - tag reconciliation (TagSet, ReconcileTags), which turns previous and
//     desired tag sources into the keys to untag and the tags to add,
//   - the error classifier (Classify), which maps a RemoteError observed
//     during an operation into an ErrorKind and decides whether the host
//     should re-invoke,
//   - the immutable ReconciliationContext carried between invocations of
//     the same operation, with its retry budget.
//
// # Handlers
//
// A Handler implements the five lifecycle verbs. Handlers never return Go
// errors; every failure is classified into the Outcome:
//
//	out := engine.Invoke(ctx, h, engine.ActionUpdate, req, rc)
//	if out.Status == engine.StatusInProgress {
//	    // persist *out.CallbackContext and re-invoke later
//	}
//
// A retryable failure consumes one unit of retry budget. When the budget is
// exhausted the same failure becomes GeneralServiceException.
package engine
