// Package protocol decodes the ASCII telemetry the Meteostick USB receiver
// relays from Davis sensor transmitters. The receiver emits one line per
// received transmission in either "machine" format (pre-decoded tokens) or
// "raw" format (a CRC-protected 8-byte payload plus radio metadata); this
// package tokenizes, validates, and calibrates those lines and keeps the
// rain-counter and radio-link bookkeeping that spans frames. It performs no
// I/O: the serial transport and receiver handshake live with the caller.
package protocol

import (
	"strings"

	"go.uber.org/zap"
)

// Decoder converts receiver lines into Readings. It owns the only two pieces
// of cross-frame state, the rain accumulator and the link statistics, both
// updated synchronously by DecodeLine. It is not safe for concurrent use;
// the intended driver is a single pull-based read loop.
type Decoder struct {
	cfg    Config
	logger *zap.SugaredLogger
	rain   *RainAccumulator
	stats  *LinkStats

	degraded  int
	crcErrors int
}

// NewDecoder builds a decoder for one receiver. The configuration is copied;
// there are no process-wide flags to flip afterwards.
func NewDecoder(cfg Config, logger *zap.SugaredLogger) (*Decoder, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Decoder{
		cfg:    cfg,
		logger: logger,
		rain:   NewRainAccumulator(),
		stats:  newLinkStats(cfg.Mode, cfg.ISSChannel),
	}, nil
}

// Config returns the decoder's effective configuration, defaults applied.
func (d *Decoder) Config() Config {
	return d.cfg
}

// DecodeLine decodes one line from the receiver. It returns (nil, nil) for
// lines that are valid but carry nothing to report (informational messages,
// stations not in the configuration). Errors are data-quality events, not
// failures of the decoder: the caller should log and keep reading. A reading
// is never returned together with an error, and an errored line leaves the
// rain and link state untouched.
func (d *Decoder) DecodeLine(line string) (*Reading, error) {
	parts := strings.Split(line, " ")
	if line == "" || len(parts) < 2 {
		return nil, malformedf("%q has too few tokens", line)
	}

	var (
		r   *Reading
		err error
	)
	switch d.cfg.Mode {
	case ModeRaw:
		r, err = d.decodeRaw(parts)
	default:
		r, err = d.decodeMachine(parts)
	}
	if err != nil || r == nil {
		return nil, err
	}

	d.stats.Update(r.Channel, r.RFSignal, r.RFMissed)
	if count, ok := r.Value(ObsRainCount); ok {
		tips := d.rain.Update(int(count))
		r.add(ObsRain, float64(tips)*d.cfg.RainPerTip())
	}
	return r, nil
}

// FlushLinkQuality produces the link-quality summary accumulated since the
// previous flush and resets the statistics. The flush boundary is driven by
// the caller's clock, typically the archive interval.
func (d *Decoder) FlushLinkQuality() QualitySummary {
	return d.stats.Flush()
}

// DegradedReadings counts calibration-domain failures that were substituted
// with the fallback probe temperature.
func (d *Decoder) DegradedReadings() int {
	return d.degraded
}

// CRCErrors counts raw-format frames rejected for checksum mismatch.
func (d *Decoder) CRCErrors() int {
	return d.crcErrors
}
