// Package host drives workspace handlers the way an orchestration host does.
//
// A Driver invokes one lifecycle verb and, while the handler answers
// IN_PROGRESS, persists the returned reconciliation context in a
// stores.Store keyed by client request token, waits with exponential
// backoff and re-invokes with the context. Terminal outcomes delete the
// persisted context. Every invocation is appended to the invocation log.
//
// Operations interrupted while waiting are picked up again by Resume.
package host
