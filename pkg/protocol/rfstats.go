package protocol

import "math"

// channelStats holds the running accumulators for one logical channel.
type channelStats struct {
	min    float64
	max    float64
	sum    float64
	last   float64
	count  int
	missed int
}

// LinkStats aggregates per-channel signal strength and missed-packet counts
// between flush boundaries. It is single-writer: the decode loop updates it
// once per frame, and the caller drives the flush clock.
type LinkStats struct {
	mode       Mode
	issChannel int
	channels   [NumChannels]channelStats
}

func newLinkStats(mode Mode, issChannel int) *LinkStats {
	s := &LinkStats{mode: mode, issChannel: issChannel}
	s.reset()
	return s
}

// Signal levels are dB and never positive, so min primes at 0 and max at the
// squelch floor. The quality channel carries 0-100 percentages and primes
// the other way around.
func (s *LinkStats) reset() {
	for ch := range s.channels {
		if ch == QualityChannel {
			s.channels[ch] = channelStats{min: 100, max: 0}
		} else {
			s.channels[ch] = channelStats{min: 0, max: defaultRFLevel}
		}
	}
}

// Update records one frame's signal reading for a channel. Slot 0 (console
// heartbeats) carries no radio measurement and is ignored.
func (s *LinkStats) Update(channel int, signal float64, missed int) {
	if channel <= 0 || channel >= NumChannels {
		return
	}
	st := &s.channels[channel]
	if signal < st.min {
		st.min = signal
	}
	if signal > st.max {
		st.max = signal
	}
	st.sum += signal
	st.last = signal
	st.count++
	st.missed += missed
}

// ChannelQuality is the per-channel summary produced at a flush boundary.
type ChannelQuality struct {
	Min     float64
	Max     float64
	Avg     float64
	Last    float64
	Count   int
	Missed  int
	PctGood float64
	HasPct  bool
}

// QualitySummary maps channel number to its flushed statistics.
type QualitySummary map[int]ChannelQuality

// Flush computes the summary for every channel that saw traffic and resets
// all accumulators. In raw mode pct_good is derived per channel from the
// received/missed ratio; in machine mode the receiver reports its own
// quality percentage on heartbeat lines, which Flush attributes to the ISS
// channel since per-channel miss counts are not available.
func (s *LinkStats) Flush() QualitySummary {
	summary := make(QualitySummary)
	for ch := 1; ch < NumChannels; ch++ {
		st := s.channels[ch]
		if st.count == 0 {
			continue
		}
		q := ChannelQuality{
			Min:    st.min,
			Max:    st.max,
			Avg:    st.sum / float64(st.count),
			Last:   st.last,
			Count:  st.count,
			Missed: st.missed,
		}
		if s.mode == ModeRaw && ch != QualityChannel {
			q.PctGood = math.Round(100 * float64(st.count) / float64(st.count+st.missed))
			q.HasPct = true
		}
		summary[ch] = q
	}
	if s.mode == ModeMachine {
		if quality, ok := summary[QualityChannel]; ok {
			// Attribute the receiver's quality percentage to the ISS channel,
			// but only when that channel actually saw frames this interval;
			// otherwise we would fabricate an entry with zeroed signal stats.
			if iss, ok := summary[s.issChannel]; ok {
				iss.PctGood = math.Round(quality.Avg)
				iss.HasPct = true
				summary[s.issChannel] = iss
			}
		}
	}
	s.reset()
	return summary
}
