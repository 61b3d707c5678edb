package protocol

// RainAccumulator turns the transmitter's absolute tip counter into
// incremental tip counts. The counter wraps at 128: hardware variants wrap
// at 255 or 127, but the decoder masks the top bit so both present a single
// 128-wrap domain here. One logical accumulator exists per physical rain
// sensor regardless of channel count; it is single-writer and never reset
// except by driver restart.
type RainAccumulator struct {
	last int // previous absolute count, -1 before the first observation
}

// NewRainAccumulator returns an accumulator with no baseline yet.
func NewRainAccumulator() *RainAccumulator {
	return &RainAccumulator{last: -1}
}

// Update records an absolute counter reading in [0,127] and returns the tips
// accumulated since the previous reading. The first observation establishes
// the baseline and yields zero, so a restart never fabricates a cloudburst.
// A backwards step is treated as exactly one wrap, which holds as long as
// fewer than 128 tips fall between observations.
func (a *RainAccumulator) Update(count int) int {
	if a.last < 0 {
		a.last = count
		return 0
	}
	delta := count - a.last
	if delta < 0 {
		delta += rainCounterMod
	}
	a.last = count
	return delta
}
