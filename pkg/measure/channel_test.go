package measure

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osctools/dcocal/pkg/dco"
	"github.com/osctools/dcocal/pkg/hw/sim"
)

// testClock drives the capture handler by hand from a test goroutine.
type testClock struct {
	mu sync.Mutex
	fn func(uint16)
}

func (c *testClock) Program(dco.Config) {}

func (c *testClock) SetCaptureHandler(fn func(uint16)) {
	c.mu.Lock()
	c.fn = fn
	c.mu.Unlock()
}

func (c *testClock) SetOverflowHandler(func()) {}

func (c *testClock) Suppress(fn func()) {
	c.mu.Lock()
	fn()
	c.mu.Unlock()
}

func (c *testClock) ReferenceOK() bool { return true }

func (c *testClock) emit(raw uint16) {
	c.mu.Lock()
	if c.fn != nil {
		c.fn(raw)
	}
	c.mu.Unlock()
}

func TestSettleWindowDiscardsTransients(t *testing.T) {
	clk := &testClock{}
	ch := New(clk)
	ch.ApplyConfig(dco.Config{})

	stop := make(chan struct{})
	go func() {
		defer close(stop)
		var raw uint16
		// Transient deltas from the abandoned configuration land inside
		// the settle window and must never reach the average.
		for i := 0; i < settleCaptures; i++ {
			raw += 9999
			clk.emit(raw)
		}
		for i := 0; i < NCAP+10; i++ {
			raw += 100
			clk.emit(raw)
		}
	}()

	avg := ch.ReadAverage()
	<-stop
	assert.Equal(t, uint16(100), avg.Count)
	assert.Equal(t, uint32(100*dco.FreqScale), avg.Freq())
}

func TestCaptureDeltaWrapSafe(t *testing.T) {
	clk := &testClock{}
	ch := New(clk)
	ch.ApplyConfig(dco.Config{})

	go func() {
		raw := uint16(65000) // force a counter wrap mid-session
		clk.emit(raw)        // primes the previous-capture state
		for i := 0; i < settleCaptures+NCAP+5; i++ {
			raw += 1000
			clk.emit(raw)
		}
	}()

	assert.Equal(t, uint16(1000), ch.ReadAverage().Count)
}

func TestMeasureAgainstSimulatedDevice(t *testing.T) {
	dev := sim.New(sim.Options{})
	dev.Start()
	defer dev.Stop()

	ch := New(dev)
	cfg := dco.Config{Range: 6, Step: 2, Mod: 20}
	want := sim.DefaultModel(cfg)
	require.Equal(t, want, ch.Measure(cfg))

	// A second session after switching operating points must reflect only
	// the new configuration.
	cfg2 := dco.Config{Range: 12, Step: 4, Mod: 0}
	assert.Equal(t, sim.DefaultModel(cfg2), ch.Measure(cfg2))
}

func TestWaitTicks(t *testing.T) {
	dev := sim.New(sim.Options{})
	dev.Start()
	defer dev.Stop()

	ch := New(dev)
	done := make(chan struct{})
	go func() {
		ch.WaitTicks(200)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("WaitTicks did not complete")
	}
}
