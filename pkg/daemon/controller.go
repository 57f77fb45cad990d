package daemon

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/osctools/dcocal/pkg/config"
	"github.com/osctools/dcocal/pkg/dco"
	"github.com/osctools/dcocal/pkg/events"
	"github.com/osctools/dcocal/pkg/hw"
	"github.com/osctools/dcocal/pkg/measure"
	"github.com/osctools/dcocal/pkg/search"
	"github.com/osctools/dcocal/pkg/store"
	"github.com/osctools/dcocal/pkg/types"
)

// State of the operating controller.
type State string

const (
	StateBoot      State = "BOOT"
	StateResume    State = "RESUME"
	StateCalibrate State = "CALIBRATE"
	StateCommit    State = "COMMIT"
	StateRun       State = "RUN"
	StateFatal     State = "FATAL"
)

// FatalKind identifies a terminal error. The numeric value is the pulse
// count of its indicator pattern.
type FatalKind int

const (
	FatalNone           FatalKind = 0
	FatalReference      FatalKind = 1
	FatalUnreachable    FatalKind = 2
	FatalNoBaseline     FatalKind = 4
	FatalOutOfTolerance FatalKind = 5
)

func (k FatalKind) String() string {
	switch k {
	case FatalReference:
		return "REFERENCE_FAULT"
	case FatalUnreachable:
		return "UNREACHABLE_TARGET"
	case FatalNoBaseline:
		return "NO_BASELINE"
	case FatalOutOfTolerance:
		return "OUT_OF_TOLERANCE"
	}
	return ""
}

const (
	// debounceTicks is the reference-tick window the advance signal must
	// stay released for.
	debounceTicks = 200
	// overflowsPerBlink sets the run-mode blink rate: the counter overflow
	// rate is proportional to the active frequency.
	overflowsPerBlink = 10
	// pauseDelays separates error bursts.
	pauseDelays = 8
)

// Controller owns the boot decision, the per-target calibration loop, the
// commit and the operator-facing run mode. It is the only component that
// decides fatality.
type Controller struct {
	clk   hw.Clock
	flash hw.Flash
	board hw.Board
	conf  config.Config
	hub   *events.Hub

	chn *measure.Channel
	eng *search.Engine
	st  *store.Store

	mu       sync.RWMutex
	state    State
	fatal    FatalKind
	runIndex int
	results  []dco.Result
	history  []types.Attempt

	stopOnce sync.Once
	stop     chan struct{}
}

// NewController wires a controller to one device. hub may be nil.
func NewController(clk hw.Clock, flash hw.Flash, board hw.Board, conf config.Config, hub *events.Hub) *Controller {
	chn := measure.New(clk)
	return &Controller{
		clk:   clk,
		flash: flash,
		board: board,
		conf:  conf,
		hub:   hub,
		chn:   chn,
		eng:   search.New(chn),
		st:    store.New(flash, clk),
		state: StateBoot,
		stop:  make(chan struct{}),
	}
}

// Stop releases the controller from its terminal loops. It exists for the
// daemon's shutdown path and for tests; no production state transition ever
// uses it.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

// Run executes BOOT -> {RESUME | CALIBRATE} -> COMMIT -> RUN. It returns
// only once Stop is called: both RUN and FATAL are infinite states.
func (c *Controller) Run() {
	c.transition(StateBoot, FatalNone)

	// The indicator stays on while the reference starts; if the reference
	// never stabilizes it stays on for good, which is the boot-time fault
	// signal (no pulsing logic is trustworthy yet).
	c.board.SetLED(hw.Red, true)
	if !c.waitReference() {
		return
	}
	c.board.SetLED(hw.Red, false)

	fromStore := false
	if !c.conf.VolatileOnly() && !c.conf.ForceOverwrite() && !c.st.IsBlank() {
		// The store is populated: run from it directly, skipping
		// calibration and commit.
		c.transition(StateResume, FatalNone)
		logrus.Info("calibration store populated, resuming")
		c.loadPersisted()
		fromStore = true
	} else {
		c.transition(StateCalibrate, FatalNone)
		if !c.calibrate() {
			return
		}
		if !c.conf.VolatileOnly() {
			c.transition(StateCommit, FatalNone)
			switch err := c.st.Write(c.Results(), c.conf.ForceOverwrite()); {
			case errors.Is(err, store.ErrNoBaseline):
				logrus.WithError(err).Error("calibration store write refused")
				c.fatalLock(FatalNoBaseline)
				return
			case err != nil:
				// The in-memory working set is intact; run from it.
				logrus.WithError(err).Error("calibration store write failed")
			default:
				fromStore = true
			}
		}
	}

	c.runLoop(fromStore)
}

func (c *Controller) waitReference() bool {
	for !c.clk.ReferenceOK() {
		select {
		case <-c.stop:
			return false
		default:
		}
		c.board.ShortDelay()
	}
	return true
}

// calibrate searches every target in ascending order, retrying up to the
// ceiling. Returns false after locking into a fatal state.
func (c *Controller) calibrate() bool {
	tolerance := c.conf.MaxErrorPercent()
	maxAttempts := c.conf.MaxAttempts()

	for _, t := range dco.Targets {
		if !c.clk.ReferenceOK() {
			c.fatalLock(FatalReference)
			return false
		}
		c.blink(hw.Green)

		log := logrus.WithFields(logrus.Fields{
			"target": t.Index,
			"goal":   t.GoalCount,
			"kHz":    t.LabelKHz,
		})

		accepted := false
		for attempt := 0; attempt < maxAttempts; attempt++ {
			if attempt > 0 {
				// Both indicators flash when a scan repeats.
				c.blink(hw.Green, hw.Red)
			}

			out, err := c.eng.Search(t.GoalCount)
			if err != nil {
				log.WithError(err).Error("target unreachable")
				c.fatalLock(FatalUnreachable)
				return false
			}

			ok := out.ErrorPct <= tolerance && out.ErrorPct >= -tolerance
			c.record(t, out, ok)
			if !ok {
				log.WithFields(logrus.Fields{
					"attempt":  attempt + 1,
					"errorPct": out.ErrorPct,
				}).Warn("attempt out of tolerance")
				continue
			}

			log.WithFields(logrus.Fields{
				"config":   out.Config.String(),
				"measured": out.Measured,
				"errorPct": out.ErrorPct,
			}).Info("target calibrated")
			c.mu.Lock()
			c.results = append(c.results, dco.Result{
				Target:   t,
				Config:   out.Config,
				Measured: out.Measured,
				ErrorPct: out.ErrorPct,
			})
			c.mu.Unlock()
			accepted = true
			break
		}
		if !accepted {
			c.fatalLock(FatalOutOfTolerance)
			return false
		}
	}

	// Back to the trusted operating point before touching the store.
	if baseline, ok := c.flash.Baseline(); ok {
		c.clk.Program(baseline)
	}
	return true
}

// loadPersisted fills the working set from the store for inspection; the
// run mode keeps reading the store directly.
func (c *Controller) loadPersisted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = c.results[:0]
	for _, t := range dco.Targets {
		c.results = append(c.results, dco.Result{
			Target: t,
			Config: c.st.Read(t.Index),
		})
	}
}

// runLoop cycles the live oscillator through the calibrated frequencies,
// advancing on a debounced press of the advance button. Never returns in
// production.
func (c *Controller) runLoop(fromStore bool) {
	c.transition(StateRun, FatalNone)
	c.board.SetLED(hw.Green, true)

	// Blink the activity indicator at a rate proportional to the active
	// frequency, driven by counter overflows from the producer context.
	var overflows int32
	c.clk.SetOverflowHandler(func() {
		if atomic.AddInt32(&overflows, 1) >= overflowsPerBlink {
			atomic.StoreInt32(&overflows, 0)
			c.board.ToggleLED(hw.Green)
		}
	})
	defer c.clk.SetOverflowHandler(nil)

	i := 0
	for {
		var cfg dco.Config
		if fromStore {
			cfg = c.st.Read(i)
		} else {
			c.mu.RLock()
			cfg = c.results[i].Config
			c.mu.RUnlock()
		}
		c.clk.Program(cfg)

		c.mu.Lock()
		c.runIndex = i
		c.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"index":  i,
			"kHz":    dco.Targets[i].LabelKHz,
			"config": cfg.String(),
		}).Info("running target frequency")

		// Advance handshake: observe release, sit out the debounce
		// window, then wait for the next assertion.
		for c.board.ButtonPressed() {
			if c.stopped() {
				return
			}
			c.board.ShortDelay()
		}
		c.board.SetLED(hw.Red, false)
		c.chn.WaitTicks(debounceTicks)
		for !c.board.ButtonPressed() {
			if c.stopped() {
				return
			}
			c.board.ShortDelay()
		}
		c.board.SetLED(hw.Red, true)

		i++
		if i >= dco.NumTargets {
			i = 0
		}
	}
}

// fatalLock is the absorbing error state: the indicator repeats a burst of
// kind pulses, separated by a pause, forever. No recovery.
func (c *Controller) fatalLock(kind FatalKind) {
	c.transition(StateFatal, kind)
	if baseline, ok := c.flash.Baseline(); ok {
		c.clk.Program(baseline)
	}
	logrus.WithFields(logrus.Fields{
		"kind":   kind.String(),
		"blinks": int(kind),
	}).Error("terminal error state")

	for {
		if c.stopped() {
			return
		}
		c.errorBurst(kind)
	}
}

// errorBurst emits one burst of the error pattern.
func (c *Controller) errorBurst(kind FatalKind) {
	for i := 0; i < int(kind); i++ {
		c.board.SetLED(hw.Red, true)
		c.board.LongDelay()
		c.board.SetLED(hw.Red, false)
		c.board.LongDelay()
	}
	for i := 0; i < pauseDelays; i++ {
		c.board.LongDelay()
	}
}

func (c *Controller) blink(leds ...hw.LED) {
	for _, led := range leds {
		c.board.SetLED(led, true)
	}
	c.board.LongDelay()
	for _, led := range leds {
		c.board.SetLED(led, false)
	}
}

func (c *Controller) record(t dco.Target, out search.Outcome, accepted bool) {
	if !c.conf.Diagnostics() {
		return
	}
	c.mu.Lock()
	c.history = append(c.history, types.Attempt{
		TargetIndex: t.Index,
		GoalCount:   t.GoalCount,
		Config:      out.Config,
		Measured:    out.Measured,
		ErrorPct:    out.ErrorPct,
		Accepted:    accepted,
	})
	c.mu.Unlock()
}

func (c *Controller) transition(s State, kind FatalKind) {
	c.mu.Lock()
	from := c.state
	c.state = s
	c.fatal = kind
	c.mu.Unlock()

	logrus.WithFields(logrus.Fields{"from": from, "to": s}).Info("controller state")
	c.hub.Publish(events.StateChange, types.StateChange{
		From:      string(from),
		To:        string(s),
		FatalKind: int(kind),
		Ts:        time.Now().Unix(),
	})
}

func (c *Controller) stopped() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}

// StateInfo snapshots the controller for the HTTP surface.
func (c *Controller) StateInfo() types.StateInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info := types.StateInfo{
		State:     string(c.state),
		FatalKind: int(c.fatal),
		FatalName: c.fatal.String(),
		RunIndex:  c.runIndex,
	}
	if c.state == StateRun {
		info.RunKHz = dco.Targets[c.runIndex].LabelKHz
	}
	return info
}

// Results returns a copy of the accepted working set.
func (c *Controller) Results() []dco.Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]dco.Result, len(c.results))
	copy(out, c.results)
	return out
}

// History returns the recorded attempts. Empty unless diagnostics are on.
func (c *Controller) History() []types.Attempt {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.Attempt, len(c.history))
	copy(out, c.history)
	return out
}

// RunIndex returns the active target index.
func (c *Controller) RunIndex() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.runIndex
}
