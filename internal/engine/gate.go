// Package engine implements the blocked-status computation: gate evaluation,
// blocking resolution, and the reconciler that keeps every task's effective
// status consistent with its dependency graph.
package engine

import (
	"log/slog"

	"github.com/stoneforge-ai/stoneforge-sub017/pkg/domain"
	"github.com/stoneforge-ai/stoneforge-sub017/pkg/ports"
)

// GateResult is the outcome of evaluating an awaits gate.
type GateResult int

const (
	// GatePending means the condition does not hold; the edge blocks.
	GatePending GateResult = iota
	// GateSatisfied means the condition holds; the edge does not block.
	GateSatisfied
)

// GateEvaluator decides whether an awaits dependency's condition currently
// holds. Pure and stateless apart from the injected clock; nothing re-runs it
// on the passage of time alone.
type GateEvaluator struct {
	clock  ports.Clock
	logger *slog.Logger
}

// NewGateEvaluator creates an evaluator against the given clock.
func NewGateEvaluator(clock ports.Clock, logger *slog.Logger) *GateEvaluator {
	return &GateEvaluator{clock: clock, logger: logger}
}

// Evaluate decodes the edge metadata and checks the gate condition.
// Malformed or unknown metadata fails closed: the edge keeps blocking until
// it is fixed or removed.
func (g *GateEvaluator) Evaluate(metadata map[string]any) GateResult {
	spec, err := domain.ParseGateSpec(metadata)
	if err != nil {
		g.logger.Warn("unreadable gate metadata, treating as pending", "err", err)
		return GatePending
	}

	switch spec.Type {
	case domain.GateTimer:
		if spec.WaitUntil.After(g.clock.Now()) {
			return GatePending
		}
		return GateSatisfied
	default:
		g.logger.Warn("unknown gate type, treating as pending", "gate_type", spec.Type)
		return GatePending
	}
}
