// Package graphstore is a task/element graph store for coordinating human
// and AI-agent work.
//
// Elements are generic graph nodes; task elements carry a status that the
// store keeps consistent with the dependency graph automatically. Adding or
// removing a blocking dependency, or changing a task's status, synchronously
// reconciles every affected task: tasks with active blockers are flipped to
// blocked, tasks whose last blocker resolved are restored to the status they
// held before blocking, and parent-child hierarchies inherit the parent's
// blocked state. Every automatic transition is recorded in a per-element
// audit log under the system actor.
//
// The Engine facade wires pluggable stores (in-memory, Redis and YAML file
// adapters are provided) and is exposed over HTTP, MCP and a CLI.
package graphstore
