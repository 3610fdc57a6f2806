// Package stores provides the persistence layer of the workspace host.
// It includes a SQLite-based store with WAL mode and embedded migrations
// holding reconciliation contexts that survive between invocations and
// an append-only log of handler invocations.
package stores
