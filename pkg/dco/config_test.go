package dco

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigByteRoundTrip(t *testing.T) {
	for rng := uint8(0); rng <= MaxRange; rng++ {
		for step := uint8(0); step <= MaxStep; step++ {
			for mod := uint8(0); mod <= MaxMod; mod++ {
				cfg := Config{Range: rng, Step: step, Mod: mod}
				require.NoError(t, cfg.Validate())
				assert.Equal(t, cfg, FromBytes(cfg.Primary(), cfg.Secondary()))
			}
		}
	}
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, Config{Range: 16}.Validate())
	assert.Error(t, Config{Step: 8}.Validate())
	assert.Error(t, Config{Mod: 32}.Validate())
	assert.NoError(t, Config{Range: 15, Step: 7, Mod: 31}.Validate())
}

func TestSecondaryKeepsOscillatorDisableBit(t *testing.T) {
	// The high bit of the secondary control byte must stay set so the
	// blank sentinel (0xFF) can never decode to a plain valid range byte.
	assert.Equal(t, byte(0x80), Config{}.Secondary()&0x80)
}

func TestCheckTargets(t *testing.T) {
	require.NoError(t, CheckTargets())
}

func TestTargetsAscending(t *testing.T) {
	for i := 1; i < NumTargets; i++ {
		assert.Greater(t, Targets[i].GoalCount, Targets[i-1].GoalCount)
	}
}
