package nn

import (
	"github.com/pkg/errors"
)

// LRScheduler yields the learning rate used after a given number of completed
// training iterations. The controller asks for step 0 before the first cycle.
type LRScheduler interface {
	GetLR(step int) float32
	Reset()
	Name() string
}

// NewNamedScheduler builds the scheduler selected by name from the rates in
// config: "decay" (the default) or "constant".
func NewNamedScheduler(name string, config *ControllerConfig) (LRScheduler, error) {
	switch name {
	case "decay", "floor-decay", "":
		return NewFloorDecayScheduler(config.LearningRate, config.DecayRate, config.MinLearningRate), nil
	case "constant":
		return NewConstantScheduler(config.LearningRate), nil
	default:
		return nil, errors.Errorf("unknown learning rate schedule %q (want decay or constant)", name)
	}
}

// ============================================================================
// Constant Scheduler
// ============================================================================

// ConstantScheduler keeps the initial rate for the whole run.
type ConstantScheduler struct {
	rate float32
}

func NewConstantScheduler(rate float32) *ConstantScheduler {
	return &ConstantScheduler{rate: rate}
}

func (s *ConstantScheduler) GetLR(int) float32 { return s.rate }

func (s *ConstantScheduler) Reset() {}

func (s *ConstantScheduler) Name() string { return "Constant" }

// ============================================================================
// Floor Decay Scheduler - multiplicative decay while above a floor
// ============================================================================

// FloorDecayScheduler multiplies the rate by decayRate once per step as long
// as the current rate is above minLR, then holds it. The rate is advanced
// iteratively in float32 so the held value matches a running loop exactly.
type FloorDecayScheduler struct {
	initialLR float32
	decayRate float32
	minLR     float32

	step int
	rate float32
}

func NewFloorDecayScheduler(initialLR, decayRate, minLR float32) *FloorDecayScheduler {
	return &FloorDecayScheduler{
		initialLR: initialLR,
		decayRate: decayRate,
		minLR:     minLR,
		rate:      initialLR,
	}
}

func (s *FloorDecayScheduler) GetLR(step int) float32 {
	if step < s.step {
		s.Reset()
	}
	for s.step < step && s.rate > s.minLR {
		s.rate *= s.decayRate
		s.step++
	}
	if s.step < step {
		s.step = step
	}
	return s.rate
}

func (s *FloorDecayScheduler) Reset() {
	s.step = 0
	s.rate = s.initialLR
}

func (s *FloorDecayScheduler) Name() string {
	return "FloorDecay"
}
