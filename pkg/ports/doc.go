// Package ports defines the storage and environment interfaces the engine
// depends on. Adapters (memory, redis, file) implement them; the contract
// suites under ports/tests verify compliance.
package ports
