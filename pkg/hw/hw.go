// Package hw declares the hardware collaborators the calibration system
// drives. Register-level access lives behind these interfaces; the only
// implementation in this repository is the simulated backend in hw/sim.
package hw

import (
	"github.com/osctools/dcocal/pkg/dco"
)

// LED identifies one of the board indicators.
type LED int

const (
	// Red is the error / advance-armed indicator.
	Red LED = iota
	// Green is the activity indicator.
	Green
)

// Clock is the oscillator under calibration together with its capture
// timing: a free-running counter clocked by the oscillator is latched on
// every reference tick.
type Clock interface {
	// Program sets the oscillator operating point.
	Program(cfg dco.Config)

	// SetCaptureHandler registers fn to be invoked from the producer
	// (interrupt) context with the raw 16-bit counter value latched at each
	// reference tick. A nil fn disables delivery.
	SetCaptureHandler(fn func(capture uint16))

	// SetOverflowHandler registers fn to be invoked from the producer
	// context every time the free-running counter wraps. The wrap rate is
	// proportional to the programmed frequency. A nil fn disables delivery.
	SetOverflowHandler(fn func())

	// Suppress runs fn with capture and overflow delivery masked. The
	// calling context uses it around accumulator resets and for the whole
	// storage write sequence.
	Suppress(fn func())

	// ReferenceOK reports whether the low-frequency reference clock is
	// currently stable.
	ReferenceOK() bool
}

// Flash is the write-once non-volatile storage.
type Flash interface {
	// ReadByte reads one byte. Always available.
	ReadByte(addr uint16) byte

	// WriteByte programs one byte. Only effective between BeginProgram and
	// EndProgram; flash programming can only clear bits.
	WriteByte(addr uint16, b byte)

	// EraseSegment erases the segment containing addr back to the blank
	// state. Only effective between BeginProgram and EndProgram.
	EraseSegment(addr uint16)

	// BeginProgram switches the flash controller to its conservative
	// program clock and unlocks write mode. The caller must hold interrupts
	// suppressed for the whole program sequence.
	BeginProgram()

	// EndProgram leaves write mode and restores write protection.
	EndProgram()

	// Baseline returns the factory-calibrated operating point for the
	// trusted low target frequency, used to guarantee safe write timing.
	// ok is false when the factory segment is blank.
	Baseline() (cfg dco.Config, ok bool)
}

// Board is the operator-facing I/O: indicators, the advance button and the
// fixed delay primitives.
type Board interface {
	SetLED(led LED, on bool)
	ToggleLED(led LED)

	// ButtonPressed reports the raw, un-debounced advance signal.
	ButtonPressed() bool

	// ShortDelay and LongDelay are the fixed busy-delay primitives used for
	// polling intervals and blink timing.
	ShortDelay()
	LongDelay()
}
