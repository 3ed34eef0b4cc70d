package domain

import (
	"time"

	"github.com/mitchellh/mapstructure"
)

// GateType identifies the condition kind carried on an "awaits" edge.
type GateType string

const (
	// GateTimer holds the edge closed until WaitUntil has passed.
	GateTimer GateType = "timer"
)

// GateSpec is the decoded gate metadata of an "awaits" dependency.
// Stored in Dependency.Metadata as {"gate_type": ..., "wait_until": ...}.
type GateSpec struct {
	Type      GateType  `mapstructure:"gate_type"`
	WaitUntil time.Time `mapstructure:"wait_until"`
}

// TimerGateMetadata builds the metadata map for a timer gate.
func TimerGateMetadata(waitUntil time.Time) map[string]any {
	return map[string]any{
		"gate_type":  string(GateTimer),
		"wait_until": waitUntil.UTC().Format(time.RFC3339Nano),
	}
}

// ParseGateSpec decodes gate metadata. Timestamps may arrive as RFC 3339
// strings (JSON transport) or as time.Time (in-process construction).
func ParseGateSpec(metadata map[string]any) (*GateSpec, error) {
	if len(metadata) == 0 {
		return nil, &ValidationError{Field: "metadata", Message: "awaits dependency requires gate metadata"}
	}

	var spec GateSpec
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &spec,
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(metadata); err != nil {
		return nil, &ValidationError{Field: "metadata", Message: "malformed gate metadata: " + err.Error()}
	}

	switch spec.Type {
	case GateTimer:
		if spec.WaitUntil.IsZero() {
			return nil, &ValidationError{Field: "metadata.wait_until", Message: "timer gate requires wait_until"}
		}
	default:
		return nil, &ValidationError{Field: "metadata.gate_type", Message: "unknown gate type " + string(spec.Type)}
	}
	return &spec, nil
}
