package dco

import (
	pkgerrors "github.com/pkg/errors"
)

// NumTargets is the number of calibration targets. The persistent layout and
// the run mode both depend on this count.
const NumTargets = 9

// FreqScale converts an averaged capture count to Hz. It is fixed by the
// reference tick period: one capture every 64 reference-clock cycles at
// 32768 Hz gives count * 32768 / 64 * ... = count * 512.
const FreqScale = 512

// Target is one fixed calibration goal.
type Target struct {
	// Index is the position of the target in ascending frequency order. It
	// doubles as the persistent slot index.
	Index int `json:"index"`
	// GoalCount is the averaged capture count a correctly configured
	// oscillator produces: frequency in Hz divided by FreqScale.
	GoalCount uint16 `json:"goalCount"`
	// LabelKHz is the nominal frequency, for operator-facing output only.
	LabelKHz uint32 `json:"labelKHz"`
}

// Targets is the fixed target table, ascending by frequency.
var Targets = [NumTargets]Target{
	{0, 977, 500},
	{1, 1953, 1000},
	{2, 3906, 2000},
	{3, 7813, 4000},
	{4, 11719, 6000},
	{5, 15625, 8000},
	{6, 19531, 10000},
	{7, 23438, 12000},
	{8, 31250, 16000},
}

// Result is the accepted calibration outcome for one target.
type Result struct {
	Target   Target `json:"target"`
	Config   Config `json:"config"`
	Measured uint16 `json:"measured"`
	// ErrorPct is the signed percent error of Measured against the goal.
	ErrorPct int `json:"errorPct"`
}

// CheckTargets validates the compile-time table: correct count, strictly
// ascending goals, and labels consistent with the goal counts.
func CheckTargets() error {
	if len(Targets) != NumTargets {
		return pkgerrors.Errorf("target table has %d entries, want %d", len(Targets), NumTargets)
	}
	for i, t := range Targets {
		if t.Index != i {
			return pkgerrors.Errorf("target %d carries index %d", i, t.Index)
		}
		if i > 0 && Targets[i-1].GoalCount >= t.GoalCount {
			return pkgerrors.Errorf("target goals not ascending at index %d", i)
		}
		// Labels are rounded to kHz, so allow the goal quantization error.
		hz := uint32(t.GoalCount) * FreqScale
		if diff := int64(hz) - int64(t.LabelKHz)*1000; diff > FreqScale || diff < -FreqScale {
			return pkgerrors.Errorf("target %d label %d kHz inconsistent with goal %d", i, t.LabelKHz, t.GoalCount)
		}
	}
	return nil
}
