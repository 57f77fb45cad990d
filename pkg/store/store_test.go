package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osctools/dcocal/pkg/dco"
	"github.com/osctools/dcocal/pkg/hw/sim"
)

func testResults() []dco.Result {
	results := make([]dco.Result, dco.NumTargets)
	for i, target := range dco.Targets {
		results[i] = dco.Result{
			Target: target,
			Config: dco.Config{
				Range: uint8(i),
				Step:  uint8(i % (dco.MaxStep + 1)),
				Mod:   uint8(2 * i),
			},
			Measured: target.GoalCount,
		}
	}
	return results
}

func TestCheckLayout(t *testing.T) {
	require.NoError(t, CheckLayout())
	assert.Equal(t, Base, SlotAddr(0))
	assert.Equal(t, Base+2, SlotAddr(1))
}

func TestWriteReadRoundTrip(t *testing.T) {
	dev := sim.New(sim.Options{})
	st := New(dev, dev)

	require.True(t, st.IsBlank())

	results := testResults()
	require.NoError(t, st.Write(results, false))

	assert.False(t, st.IsBlank())
	assert.True(t, dev.WriteProtected())
	for i, r := range results {
		assert.Equal(t, r.Config, st.Read(i), "slot %d", i)
	}
}

func TestWriteRequiresBaseline(t *testing.T) {
	dev := sim.New(sim.Options{NoBaseline: true})
	st := New(dev, dev)

	err := st.Write(testResults(), false)
	assert.ErrorIs(t, err, ErrNoBaseline)
	assert.True(t, st.IsBlank())
	assert.True(t, dev.WriteProtected())
}

func TestWriteRejectsWrongCount(t *testing.T) {
	dev := sim.New(sim.Options{})
	st := New(dev, dev)

	assert.Error(t, st.Write(testResults()[:3], false))
	assert.True(t, st.IsBlank())
}

func TestPartialWriteIsNotBlank(t *testing.T) {
	// A write cut short by power loss leaves the store neither blank nor
	// complete; IsBlank must see it as populated so boot does not trust a
	// half-written table silently. That case surfaces as garbage slots, an
	// accepted limitation of the sentinel scheme.
	dev := sim.New(sim.Options{})
	dev.SetWriteLimit(5)
	st := New(dev, dev)

	require.NoError(t, st.Write(testResults(), false))
	assert.False(t, st.IsBlank())
	assert.True(t, dev.WriteProtected())
}

func TestEraseOverridesPopulatedStore(t *testing.T) {
	dev := sim.New(sim.Options{})
	st := New(dev, dev)

	first := testResults()
	require.NoError(t, st.Write(first, false))

	// Without an erase the second write can only clear bits on top of the
	// first; with one it replaces the table cleanly.
	second := testResults()
	for i := range second {
		second[i].Config = dco.Config{Range: 15, Step: 7, Mod: 31}
	}
	require.NoError(t, st.Write(second, true))
	for i := range second {
		assert.Equal(t, second[i].Config, st.Read(i), "slot %d", i)
	}
}
