// Package search implements the three-stage parameter search that converges
// on the closest achievable oscillator configuration for a goal count. It
// relies on the frequency being monotonically non-decreasing in each of
// range, step and modulation with the other two held fixed.
package search

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/osctools/dcocal/pkg/dco"
)

// midStep is the mid-scale step used while scanning ranges.
const midStep = 3

// ErrNotAchievable reports a structural gap: no configuration crosses the
// goal from below with room left to fine-tune.
var ErrNotAchievable = errors.New("goal count not achievable by any configuration")

// Measurer applies an operating point and returns the averaged capture
// count it produces.
type Measurer interface {
	Measure(cfg dco.Config) uint16
}

// MeasureFunc adapts a plain function to Measurer.
type MeasureFunc func(cfg dco.Config) uint16

func (f MeasureFunc) Measure(cfg dco.Config) uint16 { return f(cfg) }

// Outcome is a completed search: the chosen configuration, its re-measured
// count and the signed percent error against the goal.
type Outcome struct {
	Config   dco.Config
	Measured uint16
	ErrorPct int
}

// Engine drives a Measurer through candidate configurations.
type Engine struct {
	m Measurer
}

// New returns an Engine measuring through m.
func New(m Measurer) *Engine {
	return &Engine{m: m}
}

// Search converges on the configuration whose measurement is closest to
// goal. Tolerance checking and retries are the caller's concern.
func (e *Engine) Search(goal uint16) (Outcome, error) {
	var meas, prev uint16

	// Stage 1: range scan at mid-scale step, no modulation. Stop at the
	// first range that overshoots; prefer the range below when its error
	// is smaller.
	rng := 0
	for rng = 0; rng <= dco.MaxRange; rng++ {
		meas = e.m.Measure(dco.Config{Range: uint8(rng), Step: midStep})
		if meas > goal {
			break
		}
		prev = meas
	}
	if rng <= dco.MaxRange {
		if rng > 0 && goal-prev < meas-goal {
			rng--
		}
	} else {
		rng = dco.MaxRange
	}
	logrus.WithFields(logrus.Fields{"goal": goal, "range": rng}).Debug("range scan done")

	// Stage 2: step scan at the chosen range. An overshoot at step 0, or
	// no overshoot at all, leaves no room to fine-tune from below.
	step := 0
	for step = 0; step <= dco.MaxStep; step++ {
		meas = e.m.Measure(dco.Config{Range: uint8(rng), Step: uint8(step)})
		if meas > goal {
			break
		}
	}
	if step > dco.MaxStep || step == 0 {
		logrus.WithFields(logrus.Fields{"goal": goal, "range": rng, "step": step}).Warn("no step crosses the goal from below")
		return Outcome{}, ErrNotAchievable
	}

	// Error of the unmodulated overshoot step, for the fallback below.
	m0diff := meas - goal
	step--

	// Stage 3: modulation scan one step below the overshoot.
	mod := 0
	for mod = 0; mod <= dco.MaxMod; mod++ {
		meas = e.m.Measure(dco.Config{Range: uint8(rng), Step: uint8(step), Mod: uint8(mod)})
		if meas > goal {
			break
		}
		prev = meas
	}
	if mod <= dco.MaxMod {
		if mod > 0 && meas-goal > goal-prev {
			mod--
		}
	} else {
		mod = dco.MaxMod
	}

	// A scan that ran out of modulation room competes against the
	// unmodulated overshoot step. The comparison is unsigned 16-bit: a
	// clamped result that lands under the goal wraps around and loses,
	// reverting to the step-level configuration.
	if mod == dco.MaxMod {
		if m0diff < meas-goal {
			step++
			mod = 0
		}
	}

	final := dco.Config{Range: uint8(rng), Step: uint8(step), Mod: uint8(mod)}
	meas = e.m.Measure(final)
	errPct := int(100 * (int32(meas) - int32(goal)) / int32(goal))
	logrus.WithFields(logrus.Fields{
		"goal":     goal,
		"config":   final.String(),
		"measured": meas,
		"errorPct": errPct,
	}).Debug("search converged")
	return Outcome{Config: final, Measured: meas, ErrorPct: errPct}, nil
}
