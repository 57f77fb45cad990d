package dco

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Parameter limits of the oscillator. Range is the coarse frequency range,
// Step subdivides a range, Mod interpolates between adjacent steps.
const (
	MaxRange = 15
	MaxStep  = 7
	MaxMod   = 31
)

// secondaryFixedBits is always set in the secondary control byte (the
// high-frequency oscillator stays disabled while the DCO is in use).
const secondaryFixedBits = 0x80

// Config is one DCO operating point.
type Config struct {
	Range uint8 `json:"range"`
	Step  uint8 `json:"step"`
	Mod   uint8 `json:"mod"`
}

// Validate checks that all three parameters are within their declared ranges.
func (c Config) Validate() error {
	if c.Range > MaxRange {
		return pkgerrors.Errorf("range %d out of bounds [0, %d]", c.Range, MaxRange)
	}
	if c.Step > MaxStep {
		return pkgerrors.Errorf("step %d out of bounds [0, %d]", c.Step, MaxStep)
	}
	if c.Mod > MaxMod {
		return pkgerrors.Errorf("mod %d out of bounds [0, %d]", c.Mod, MaxMod)
	}
	return nil
}

// Primary returns the primary control byte: step in the top three bits,
// modulation in the low five.
func (c Config) Primary() byte {
	return c.Step<<5 | c.Mod
}

// Secondary returns the secondary control byte: range in the low four bits.
func (c Config) Secondary() byte {
	return secondaryFixedBits | c.Range
}

// FromBytes decodes a persisted (primary, secondary) pair.
func FromBytes(primary, secondary byte) Config {
	return Config{
		Range: secondary & 0x0F,
		Step:  primary >> 5,
		Mod:   primary & 0x1F,
	}
}

func (c Config) String() string {
	return fmt.Sprintf("range=%d step=%d mod=%d", c.Range, c.Step, c.Mod)
}
