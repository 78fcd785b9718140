package transit

import (
	"math"

	"AstroOverlap/internal/domain/models"
)

const minutesPerDay = 24 * 60

// ResolutionPolicy picks the sampling step for a body.
type ResolutionPolicy interface {
	StepMinutes(body models.Body) int
}

// VelocityPolicy sizes the step so a body moves at most ToleranceDeg between samples,
// clamped to [MinStep, MaxStep] minutes. Overrides take precedence by body name.
type VelocityPolicy struct {
	ToleranceDeg float64
	MinStep      int
	MaxStep      int
	Overrides    map[string]int
}

// DefaultPolicy yields 2 minutes for the Moon and 10 minutes for every slower body.
func DefaultPolicy() VelocityPolicy {
	return VelocityPolicy{ToleranceDeg: 0.025, MinStep: 1, MaxStep: 10}
}

func (p VelocityPolicy) StepMinutes(body models.Body) int {
	if s, ok := p.Overrides[body.Name]; ok && s > 0 {
		return s
	}
	lo, hi := p.MinStep, p.MaxStep
	if lo <= 0 {
		lo = 1
	}
	if hi < lo {
		hi = lo
	}
	perMinute := body.MaxSpeed / minutesPerDay
	if perMinute <= 0 || p.ToleranceDeg <= 0 {
		return hi
	}
	step := int(math.Floor(p.ToleranceDeg / perMinute))
	if step < lo {
		return lo
	}
	if step > hi {
		return hi
	}
	return step
}

// WithOverrides returns a copy of p with extra per-body steps merged in.
func (p VelocityPolicy) WithOverrides(steps map[string]int) VelocityPolicy {
	merged := make(map[string]int, len(p.Overrides)+len(steps))
	for k, v := range p.Overrides {
		merged[k] = v
	}
	for k, v := range steps {
		if v > 0 {
			merged[k] = v
		}
	}
	p.Overrides = merged
	return p
}

// FixedPolicy samples every body at the same step.
type FixedPolicy int

func (p FixedPolicy) StepMinutes(models.Body) int { return int(p) }
