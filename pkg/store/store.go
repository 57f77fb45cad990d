// Package store persists calibration results to write-once non-volatile
// storage: nine two-byte slots in ascending target order, blank sentinel
// 0xFF. There is no header or checksum; integrity is inferred solely from
// the all-blank / all-written heuristic.
package store

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/osctools/dcocal/pkg/dco"
	"github.com/osctools/dcocal/pkg/hw"
)

const (
	// Base is the address of the first slot.
	Base uint16 = 0x10AE
	// SegmentEnd is the last usable byte of the calibration segment.
	SegmentEnd uint16 = 0x10BF
	// BlankByte is the erased-flash sentinel.
	BlankByte byte = 0xFF
)

// ErrNoBaseline reports a write attempt without the trusted baseline
// configuration required for safe program timing.
var ErrNoBaseline = errors.New("no factory baseline configuration, cannot guarantee write timing")

// SlotAddr returns the address of the primary byte of slot i.
func SlotAddr(i int) uint16 {
	return Base + uint16(2*i)
}

// CheckLayout validates the compile-time address table against the target
// count: every slot must fall inside the calibration segment.
func CheckLayout() error {
	if last := SlotAddr(dco.NumTargets-1) + 1; last > SegmentEnd {
		return errors.Errorf("slot layout overruns segment: last byte 0x%04X > 0x%04X", last, SegmentEnd)
	}
	return nil
}

// Store reads and writes the persistent calibration area.
type Store struct {
	flash hw.Flash
	clk   hw.Clock
}

// New returns a Store over the given flash, using clk for interrupt
// suppression and baseline programming during writes.
func New(flash hw.Flash, clk hw.Clock) *Store {
	return &Store{flash: flash, clk: clk}
}

// IsBlank reports whether every reserved slot byte equals the blank
// sentinel. It cannot distinguish "never written" from a calibration that
// legitimately produced all-sentinel bytes; that is an inherent limitation
// of the sentinel scheme.
func (s *Store) IsBlank() bool {
	for i := 0; i < dco.NumTargets; i++ {
		addr := SlotAddr(i)
		if s.flash.ReadByte(addr) != BlankByte {
			return false
		}
		if s.flash.ReadByte(addr+1) != BlankByte {
			return false
		}
	}
	return true
}

// Read returns the persisted operating point for slot i.
func (s *Store) Read(i int) dco.Config {
	addr := SlotAddr(i)
	return dco.FromBytes(s.flash.ReadByte(addr), s.flash.ReadByte(addr+1))
}

// Write persists one result per slot, in order. The factory baseline is
// programmed first so the flash program clock runs at a known rate; the
// whole sequence executes with interrupts suppressed and write protection
// is restored on every exit path. When erase is set the segment is erased
// first, which is only needed when overriding a populated store.
func (s *Store) Write(results []dco.Result, erase bool) error {
	if len(results) != dco.NumTargets {
		return errors.Errorf("got %d results, want %d", len(results), dco.NumTargets)
	}
	baseline, ok := s.flash.Baseline()
	if !ok {
		return ErrNoBaseline
	}

	s.clk.Suppress(func() {
		s.clk.Program(baseline)
		s.flash.BeginProgram()
		defer s.flash.EndProgram()

		if erase {
			s.flash.EraseSegment(Base)
		}
		for i, r := range results {
			addr := SlotAddr(i)
			s.flash.WriteByte(addr, r.Config.Primary())
			s.flash.WriteByte(addr+1, r.Config.Secondary())
		}
	})

	logrus.WithFields(logrus.Fields{
		"slots": len(results),
		"erase": erase,
	}).Info("calibration store written")
	return nil
}
