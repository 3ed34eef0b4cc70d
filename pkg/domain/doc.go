// Package domain contains the core types of the graph store: elements,
// dependencies, task statuses, gates and audit events.
//
// The package is deliberately free of storage or transport concerns so that
// adapters (memory, redis, http, mcp) can depend on it without cycles.
package domain
