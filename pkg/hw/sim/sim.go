// Package sim is the in-memory hardware backend: a synthetic oscillator and
// capture timer, an information-memory flash image and the operator I/O.
// It implements hw.Clock, hw.Flash and hw.Board on a single device, the way
// the real part does.
package sim

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/osctools/dcocal/pkg/dco"
	"github.com/osctools/dcocal/pkg/hw"
)

// FactoryBaseline is the factory-calibrated 1 MHz operating point seeded
// into the simulated factory segment. Under DefaultModel it measures within
// a fraction of a percent of the 1 MHz goal count.
var FactoryBaseline = dco.Config{Range: 6, Step: 2, Mod: 20}

// Options configures a simulated device.
type Options struct {
	// Model is the synthetic frequency model. Nil selects DefaultModel.
	Model ModelFunc
	// Interval is the spacing between reference ticks. Zero runs the
	// producer as fast as the scheduler allows, for tests.
	Interval time.Duration
	// DelayUnit is the granularity of the board delay primitives. Zero
	// makes delays a bare yield.
	DelayUnit time.Duration
	// ReferenceFault starts the device with a faulty reference clock.
	ReferenceFault bool
	// NoBaseline leaves the factory segment blank.
	NoBaseline bool
	// WriteLimit caps the number of flash byte writes that take effect,
	// simulating power loss mid-programming. Zero means unlimited.
	WriteLimit int
}

// Sim is one simulated device.
type Sim struct {
	model     ModelFunc
	interval  time.Duration
	delayUnit time.Duration

	// mu models the interrupt mask: the producer holds it while delivering
	// captures, Suppress holds it to keep the producer out.
	mu         sync.Mutex
	cfg        dco.Config
	counter    uint16
	captureFn  func(uint16)
	overflowFn func()

	refFault atomic.Bool
	pressed  atomic.Bool

	flashMu     sync.Mutex
	mem         [flashSize]byte
	programMode bool
	writes      int
	writeLimit  int

	ledMu   sync.Mutex
	ledOn   [2]bool
	pulses  [2]int
	ledHook func(led hw.LED, on bool)

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	done      chan struct{}
}

var (
	_ hw.Clock = (*Sim)(nil)
	_ hw.Flash = (*Sim)(nil)
	_ hw.Board = (*Sim)(nil)
)

// New builds a simulated device. Call Start to begin producing captures.
func New(opts Options) *Sim {
	s := &Sim{
		model:      opts.Model,
		interval:   opts.Interval,
		delayUnit:  opts.DelayUnit,
		writeLimit: opts.WriteLimit,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	if s.model == nil {
		s.model = DefaultModel
	}
	s.refFault.Store(opts.ReferenceFault)
	for i := range s.mem {
		s.mem[i] = blankByte
	}
	if !opts.NoBaseline {
		s.mem[factoryPrimaryAddr-flashBase] = FactoryBaseline.Primary()
		s.mem[factorySecondaryAddr-flashBase] = FactoryBaseline.Secondary()
	}
	return s
}

// Start launches the producer, one capture per reference tick.
func (s *Sim) Start() {
	s.startOnce.Do(func() {
		go s.produce()
	})
}

// Stop halts the producer and waits for it to exit.
func (s *Sim) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	<-s.done
}

func (s *Sim) produce() {
	defer close(s.done)
	logrus.Debug("sim: capture producer running")
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		s.mu.Lock()
		count := s.model(s.cfg)
		prev := s.counter
		s.counter = prev + count
		if s.captureFn != nil {
			s.captureFn(s.counter)
		}
		if s.counter < prev && s.overflowFn != nil {
			s.overflowFn()
		}
		s.mu.Unlock()

		if s.interval > 0 {
			time.Sleep(s.interval)
		} else {
			runtime.Gosched()
		}
	}
}

// Program implements hw.Clock.
func (s *Sim) Program(cfg dco.Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// SetCaptureHandler implements hw.Clock.
func (s *Sim) SetCaptureHandler(fn func(capture uint16)) {
	s.mu.Lock()
	s.captureFn = fn
	s.mu.Unlock()
}

// SetOverflowHandler implements hw.Clock.
func (s *Sim) SetOverflowHandler(fn func()) {
	s.mu.Lock()
	s.overflowFn = fn
	s.mu.Unlock()
}

// Suppress implements hw.Clock: fn runs with the producer held off.
func (s *Sim) Suppress(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// ReferenceOK implements hw.Clock.
func (s *Sim) ReferenceOK() bool {
	return !s.refFault.Load()
}

// SetReferenceFault injects or clears a reference clock fault.
func (s *Sim) SetReferenceFault(faulty bool) {
	s.refFault.Store(faulty)
}

// Config returns the currently programmed operating point.
func (s *Sim) Config() dco.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetLED implements hw.Board.
func (s *Sim) SetLED(led hw.LED, on bool) {
	s.ledMu.Lock()
	if on && !s.ledOn[led] {
		s.pulses[led]++
	}
	s.ledOn[led] = on
	hook := s.ledHook
	s.ledMu.Unlock()
	if hook != nil {
		hook(led, on)
	}
}

// ToggleLED implements hw.Board.
func (s *Sim) ToggleLED(led hw.LED) {
	s.ledMu.Lock()
	on := !s.ledOn[led]
	if on {
		s.pulses[led]++
	}
	s.ledOn[led] = on
	hook := s.ledHook
	s.ledMu.Unlock()
	if hook != nil {
		hook(led, on)
	}
}

// LEDOn reports the current state of an indicator.
func (s *Sim) LEDOn(led hw.LED) bool {
	s.ledMu.Lock()
	defer s.ledMu.Unlock()
	return s.ledOn[led]
}

// Pulses returns how many off-to-on transitions an indicator has made.
func (s *Sim) Pulses(led hw.LED) int {
	s.ledMu.Lock()
	defer s.ledMu.Unlock()
	return s.pulses[led]
}

// SetLEDHook registers fn to observe every indicator transition. Test use.
func (s *Sim) SetLEDHook(fn func(led hw.LED, on bool)) {
	s.ledMu.Lock()
	s.ledHook = fn
	s.ledMu.Unlock()
}

// ButtonPressed implements hw.Board.
func (s *Sim) ButtonPressed() bool {
	return s.pressed.Load()
}

// SetButton drives the advance signal.
func (s *Sim) SetButton(pressed bool) {
	s.pressed.Store(pressed)
}

// BounceButton produces a bouncy edge: the given number of rapid
// transitions, settling on the final state.
func (s *Sim) BounceButton(transitions int, final bool) {
	state := s.pressed.Load()
	for i := 0; i < transitions; i++ {
		state = !state
		s.pressed.Store(state)
		if s.delayUnit > 0 {
			time.Sleep(s.delayUnit)
		} else {
			runtime.Gosched()
		}
	}
	s.pressed.Store(final)
}

// ShortDelay implements hw.Board.
func (s *Sim) ShortDelay() {
	if s.delayUnit > 0 {
		time.Sleep(s.delayUnit)
	} else {
		runtime.Gosched()
	}
}

// LongDelay implements hw.Board.
func (s *Sim) LongDelay() {
	if s.delayUnit > 0 {
		time.Sleep(20 * s.delayUnit)
	} else {
		runtime.Gosched()
	}
}
