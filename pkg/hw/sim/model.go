package sim

import (
	"github.com/osctools/dcocal/pkg/dco"
)

// ModelFunc maps an operating point to the cycle count captured per
// reference tick.
type ModelFunc func(cfg dco.Config) uint16

// rangeBase is the capture count at step 0 for each range, roughly 1.32x
// per range, spanning about 150 kHz to 17 MHz.
var rangeBase = [dco.MaxRange + 1]uint32{
	300, 396, 523, 690, 911, 1203, 1588, 2096,
	2767, 3652, 4821, 6364, 8401, 11089, 14637, 19321,
}

// stepMul is the per-step frequency multiplier in 1/256 fixed point,
// roughly 8% per step.
var stepMul = [dco.MaxStep + 1]uint32{256, 277, 299, 323, 348, 376, 406, 439}

// ModStep returns the count added per modulation unit at the given range:
// one 32nd of a step, rounded up so modulation is never a no-op.
func ModStep(rng uint8) uint32 {
	return (rangeBase[rng]*21 + 8191) / 8192
}

// DefaultModel is the synthetic frequency model
// count = base[range][step] + mod*modStep[range]. It is monotonically
// non-decreasing in each parameter with the other two held fixed, which is
// what the search algorithm relies on.
func DefaultModel(cfg dco.Config) uint16 {
	base := rangeBase[cfg.Range] * stepMul[cfg.Step] / 256
	return uint16(base + uint32(cfg.Mod)*ModStep(cfg.Range))
}
