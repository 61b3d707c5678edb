package protocol

import "fmt"

// Mode selects which of the receiver's two wire formats the decoder expects.
// The receiver is put into one format or the other at configuration time;
// the decoder never sniffs per line.
type Mode int

const (
	// ModeMachine is the receiver's pre-decoded format: one token per value,
	// already in physical units.
	ModeMachine Mode = iota
	// ModeRaw is the 8-byte CRC-protected binary payload plus radio metadata.
	ModeRaw
)

func (m Mode) String() string {
	switch m {
	case ModeMachine:
		return "machine"
	case ModeRaw:
		return "raw"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// WindFormula selects which reverse-engineered wind direction formula is
// applied to the raw direction byte. The two known implementations disagree;
// Vantage Pro is the default, Vantage Vue is available for Vue consoles.
type WindFormula int

const (
	WindVantagePro WindFormula = iota
	WindVantageVue
)

// Config carries every decoder parameter. There is deliberately no mutable
// package-level state; two decoders with different configs can coexist.
type Config struct {
	Mode Mode

	// Transmitter channel assignments, 1-8. Zero means the role is not
	// present, except ISSChannel which is always bound (default 1).
	ISSChannel        int
	AnemometerChannel int
	LeafSoilChannel   int
	TempHum1Channel   int
	TempHum2Channel   int

	// RainBucketType 0 is the 0.01-inch bucket (0.254 mm/tip),
	// type 1 is the metric 0.2 mm bucket.
	RainBucketType int

	WindFormula WindFormula

	// SupercapDivisor converts the raw supercapacitor reading to volts.
	// Known implementations disagree between 100 and 300; 300 is the
	// latest-dated formula and the default.
	SupercapDivisor float64
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.ISSChannel == 0 {
		out.ISSChannel = 1
	}
	if out.SupercapDivisor == 0 {
		out.SupercapDivisor = 300
	}
	return out
}

// Validate checks channel assignments. It is called by NewDecoder but is
// exported so the host config layer can fail fast.
func (c Config) Validate() error {
	channels := map[string]int{
		"iss":        c.ISSChannel,
		"anemometer": c.AnemometerChannel,
		"leaf_soil":  c.LeafSoilChannel,
		"temp_hum_1": c.TempHum1Channel,
		"temp_hum_2": c.TempHum2Channel,
	}
	for role, ch := range channels {
		if ch < 0 || ch > 8 {
			return fmt.Errorf("%s channel %d out of range 0-8", role, ch)
		}
	}
	if c.RainBucketType != 0 && c.RainBucketType != 1 {
		return fmt.Errorf("rain bucket type %d must be 0 (0.01in) or 1 (0.2mm)", c.RainBucketType)
	}
	return nil
}

// RainPerTip returns millimeters of rain per bucket tip.
func (c Config) RainPerTip() float64 {
	if c.RainBucketType == 1 {
		return 0.2
	}
	return 0.254
}

// TransmitterMask derives the receiver's listen bitmask: bit n-1 set for
// each bound channel n.
func (c Config) TransmitterMask() uint8 {
	var mask uint8
	for _, ch := range []int{c.ISSChannel, c.AnemometerChannel, c.LeafSoilChannel, c.TempHum1Channel, c.TempHum2Channel} {
		if ch > 0 {
			mask |= 1 << (ch - 1)
		}
	}
	return mask
}
