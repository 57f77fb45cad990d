package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osctools/dcocal/pkg/dco"
	"github.com/osctools/dcocal/pkg/hw/sim"
)

// linear builds a measurement model where every parameter contributes a
// fixed amount, handy for forcing specific scan outcomes.
func linear(perRange, perStep, perMod, base uint16) MeasureFunc {
	return func(cfg dco.Config) uint16 {
		return perRange*uint16(cfg.Range) + perStep*uint16(cfg.Step) + perMod*uint16(cfg.Mod) + base
	}
}

func TestModelMonotonic(t *testing.T) {
	for rng := uint8(0); rng < dco.MaxRange; rng++ {
		a := sim.DefaultModel(dco.Config{Range: rng, Step: 3})
		b := sim.DefaultModel(dco.Config{Range: rng + 1, Step: 3})
		assert.Greater(t, b, a, "range %d", rng)
	}
	for step := uint8(0); step < dco.MaxStep; step++ {
		a := sim.DefaultModel(dco.Config{Range: 7, Step: step})
		b := sim.DefaultModel(dco.Config{Range: 7, Step: step + 1})
		assert.Greater(t, b, a, "step %d", step)
	}
	for mod := uint8(0); mod < dco.MaxMod; mod++ {
		a := sim.DefaultModel(dco.Config{Range: 7, Step: 3, Mod: mod})
		b := sim.DefaultModel(dco.Config{Range: 7, Step: 3, Mod: mod + 1})
		assert.Greater(t, b, a, "mod %d", mod)
	}
}

func TestSearchConvergesOnAllTargets(t *testing.T) {
	eng := New(MeasureFunc(sim.DefaultModel))
	for _, target := range dco.Targets {
		out, err := eng.Search(target.GoalCount)
		require.NoError(t, err, "target %d kHz", target.LabelKHz)
		require.NoError(t, out.Config.Validate())
		assert.Equal(t, sim.DefaultModel(out.Config), out.Measured)

		goal := int32(target.GoalCount)
		diff := int32(out.Measured) - goal
		if diff < 0 {
			diff = -diff
		}
		assert.LessOrEqual(t, diff*100, goal*5,
			"target %d kHz: measured %d vs goal %d", target.LabelKHz, out.Measured, target.GoalCount)
		assert.LessOrEqual(t, out.ErrorPct, 5)
		assert.GreaterOrEqual(t, out.ErrorPct, -5)
	}
}

func TestSearchPrefersCloserNeighbor(t *testing.T) {
	eng := New(linear(1000, 100, 3, 50))
	out, err := eng.Search(2560)
	require.NoError(t, err)
	// Range 3 overshoots by 790 while range 2 undershoots by only 210, so
	// the scan settles one range lower; the same rule picks modulation 3
	// (2559) over 4 (2562).
	assert.Equal(t, dco.Config{Range: 2, Step: 5, Mod: 3}, out.Config)
	assert.Equal(t, uint16(2559), out.Measured)
	assert.Equal(t, 0, out.ErrorPct)
}

func TestSearchFallsBackWhenModulationIneffective(t *testing.T) {
	// Modulation contributes nothing, so the scan clamps at full modulation
	// while still under the goal and reverts to the unmodulated overshoot
	// step.
	eng := New(linear(1000, 100, 0, 50))
	out, err := eng.Search(2560)
	require.NoError(t, err)
	assert.Equal(t, dco.Config{Range: 2, Step: 6, Mod: 0}, out.Config)
	assert.Equal(t, uint16(2650), out.Measured)
	assert.Equal(t, 3, out.ErrorPct)
}

func TestSearchNotAchievable(t *testing.T) {
	eng := New(linear(1000, 100, 0, 50))

	// Above the fastest configuration: no step ever crosses the goal.
	_, err := eng.Search(20000)
	assert.ErrorIs(t, err, ErrNotAchievable)

	// Below the slowest: step 0 already overshoots, nothing to tune from.
	_, err = eng.Search(40)
	assert.ErrorIs(t, err, ErrNotAchievable)
}
