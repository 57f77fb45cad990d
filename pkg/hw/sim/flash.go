package sim

import (
	"github.com/sirupsen/logrus"

	"github.com/osctools/dcocal/pkg/dco"
)

// Simulated information memory: 256 bytes at 0x1000, erased to all-ones.
// The factory operating point for the trusted low target lives in the last
// two bytes, outside the calibration segment.
const (
	flashBase   uint16 = 0x1000
	flashSize          = 256
	segmentSize        = 64
	blankByte   byte   = 0xFF

	factoryPrimaryAddr   uint16 = 0x10FE
	factorySecondaryAddr uint16 = 0x10FF
)

// ReadByte implements hw.Flash.
func (s *Sim) ReadByte(addr uint16) byte {
	s.flashMu.Lock()
	defer s.flashMu.Unlock()
	return s.mem[addr-flashBase]
}

// WriteByte implements hw.Flash. Programming can only clear bits, and is
// silently dropped outside program mode or past the injected write limit.
func (s *Sim) WriteByte(addr uint16, b byte) {
	s.flashMu.Lock()
	defer s.flashMu.Unlock()
	if !s.programMode {
		logrus.WithField("addr", addr).Warn("sim: flash write while write-protected, ignored")
		return
	}
	if s.writeLimit > 0 && s.writes >= s.writeLimit {
		return
	}
	s.writes++
	s.mem[addr-flashBase] &= b
}

// EraseSegment implements hw.Flash.
func (s *Sim) EraseSegment(addr uint16) {
	s.flashMu.Lock()
	defer s.flashMu.Unlock()
	if !s.programMode {
		logrus.WithField("addr", addr).Warn("sim: flash erase while write-protected, ignored")
		return
	}
	start := (addr - flashBase) / segmentSize * segmentSize
	for i := uint16(0); i < segmentSize; i++ {
		s.mem[start+i] = blankByte
	}
}

// BeginProgram implements hw.Flash.
func (s *Sim) BeginProgram() {
	s.flashMu.Lock()
	s.programMode = true
	s.flashMu.Unlock()
}

// EndProgram implements hw.Flash.
func (s *Sim) EndProgram() {
	s.flashMu.Lock()
	s.programMode = false
	s.flashMu.Unlock()
}

// Baseline implements hw.Flash.
func (s *Sim) Baseline() (dco.Config, bool) {
	s.flashMu.Lock()
	primary := s.mem[factoryPrimaryAddr-flashBase]
	secondary := s.mem[factorySecondaryAddr-flashBase]
	s.flashMu.Unlock()
	if primary == blankByte || secondary == blankByte {
		return dco.Config{}, false
	}
	return dco.FromBytes(primary, secondary), true
}

// WriteProtected reports whether the flash is outside program mode. Tests
// use it to check the lock is restored on every exit path.
func (s *Sim) WriteProtected() bool {
	s.flashMu.Lock()
	defer s.flashMu.Unlock()
	return !s.programMode
}

// SetWriteLimit caps effective flash writes from now on. Test use.
func (s *Sim) SetWriteLimit(n int) {
	s.flashMu.Lock()
	s.writeLimit = n
	s.writes = 0
	s.flashMu.Unlock()
}
