package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stoneforge-ai/stoneforge-sub017/internal/engine"
	"github.com/stoneforge-ai/stoneforge-sub017/internal/logging"
	"github.com/stoneforge-ai/stoneforge-sub017/pkg/domain"
	"github.com/stoneforge-ai/stoneforge-sub017/pkg/ports"
)

func TestGateEvaluator_Timer(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	eval := engine.NewGateEvaluator(ports.FixedClock{Instant: now}, logging.NewNop())

	t.Run("future deadline is pending", func(t *testing.T) {
		md := domain.TimerGateMetadata(now.Add(time.Hour))
		assert.Equal(t, engine.GatePending, eval.Evaluate(md))
	})

	t.Run("past deadline is satisfied", func(t *testing.T) {
		md := domain.TimerGateMetadata(now.Add(-time.Hour))
		assert.Equal(t, engine.GateSatisfied, eval.Evaluate(md))
	})

	t.Run("deadline equal to now is satisfied", func(t *testing.T) {
		md := domain.TimerGateMetadata(now)
		assert.Equal(t, engine.GateSatisfied, eval.Evaluate(md))
	})
}

func TestGateEvaluator_FailsClosed(t *testing.T) {
	eval := engine.NewGateEvaluator(ports.SystemClock{}, logging.NewNop())

	t.Run("empty metadata", func(t *testing.T) {
		assert.Equal(t, engine.GatePending, eval.Evaluate(nil))
	})

	t.Run("unknown gate type", func(t *testing.T) {
		md := map[string]any{"gate_type": "lunar-phase"}
		assert.Equal(t, engine.GatePending, eval.Evaluate(md))
	})

	t.Run("unparseable deadline", func(t *testing.T) {
		md := map[string]any{"gate_type": "timer", "wait_until": "not-a-time"}
		assert.Equal(t, engine.GatePending, eval.Evaluate(md))
	})
}

func TestParseGateSpec(t *testing.T) {
	waitUntil := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	spec, err := domain.ParseGateSpec(domain.TimerGateMetadata(waitUntil))
	assert.NoError(t, err)
	assert.Equal(t, domain.GateTimer, spec.Type)
	assert.True(t, spec.WaitUntil.Equal(waitUntil))

	_, err = domain.ParseGateSpec(map[string]any{"gate_type": "timer"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
