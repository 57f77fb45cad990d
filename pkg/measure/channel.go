// Package measure bridges the interrupt-driven capture stream and the
// polling calibration code: it accumulates per-tick cycle counts produced by
// the capture handler and hands out their average.
package measure

import (
	"runtime"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/osctools/dcocal/pkg/dco"
	"github.com/osctools/dcocal/pkg/hw"
)

const (
	// NCAP is the number of samples averaged per measurement.
	NCAP = 50
	// settleCaptures are discarded at the start of each session so
	// transients from the previous operating point never reach the average.
	settleCaptures = 5
	// countCeiling stops the sample counter from rolling over while nobody
	// is consuming it.
	countCeiling = 10000
)

// Average is one completed measurement.
type Average struct {
	// Count is the mean cycle count per reference tick.
	Count uint16
}

// Freq returns the estimated oscillator frequency in Hz.
func (a Average) Freq() uint32 {
	return uint32(a.Count) * dco.FreqScale
}

// Channel owns the single-producer accumulator. The capture handler is the
// only writer of the running sum; the calling context only ever resets it,
// and only under interrupt suppression, so no lock is needed.
type Channel struct {
	clk hw.Clock

	// last raw capture value, touched only from the producer context.
	last uint16

	sum uint64 // atomic
	n   int32  // atomic; negative while inside the settle window
}

// New wires a channel to the capture hardware.
func New(clk hw.Clock) *Channel {
	c := &Channel{clk: clk}
	clk.SetCaptureHandler(c.onCapture)
	return c
}

// onCapture runs in the producer context once per reference tick with the
// raw latched counter value.
func (c *Channel) onCapture(capture uint16) {
	delta := capture - c.last // wrap-safe on uint16
	c.last = capture

	n := atomic.LoadInt32(&c.n)
	if n >= 0 && n < NCAP {
		atomic.AddUint64(&c.sum, uint64(delta))
	}
	if n < countCeiling {
		atomic.AddInt32(&c.n, 1)
	}
}

// ApplyConfig programs the oscillator and arms a new sampling session.
// Interrupts are suppressed only around the accumulator reset, so the
// producer can never observe a half-reset sum/count pair.
func (c *Channel) ApplyConfig(cfg dco.Config) {
	c.clk.Program(cfg)
	c.clk.Suppress(func() {
		atomic.StoreUint64(&c.sum, 0)
		atomic.StoreInt32(&c.n, -settleCaptures)
	})
}

// ReadAverage busy-waits until NCAP samples have accumulated after the
// settle window, then returns their mean. This is the system's only
// blocking primitive.
func (c *Channel) ReadAverage() Average {
	for atomic.LoadInt32(&c.n) < NCAP {
		runtime.Gosched()
	}
	avg := Average{Count: uint16(atomic.LoadUint64(&c.sum) / NCAP)}
	logrus.WithFields(logrus.Fields{
		"count": avg.Count,
		"freq":  avg.Freq(),
	}).Trace("measurement complete")
	return avg
}

// Measure is ApplyConfig followed by ReadAverage.
func (c *Channel) Measure(cfg dco.Config) uint16 {
	c.ApplyConfig(cfg)
	return c.ReadAverage().Count
}

// WaitTicks restarts the sample counter and busy-waits for n reference
// ticks. The run mode uses it as its debounce window.
func (c *Channel) WaitTicks(n int32) {
	if n > countCeiling {
		n = countCeiling
	}
	c.clk.Suppress(func() {
		atomic.StoreUint64(&c.sum, 0)
		atomic.StoreInt32(&c.n, 0)
	})
	for atomic.LoadInt32(&c.n) < n {
		runtime.Gosched()
	}
}
