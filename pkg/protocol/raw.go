package protocol

import (
	"strconv"
	"strings"

	"github.com/chrissnell/meteostick/pkg/crc16"
)

// Raw format: the receiver forwards the transmitter payload undecoded.
//
//	B <seq> <abs_pressure> <temp_raw> <press_raw> <goodcrc> <hop>
//	I <seq> <b0> .. <b7> <flags> <rf> <delta_us>
//	# <informational text>
//
// The eight payload bytes arrive as hex tokens; the final two payload bytes
// are the transmitter's CRC, so the checksum over all eight must come out
// zero. Everything after the payload is receiver-side metadata in decimal.
func (d *Decoder) decodeRaw(parts []string) (*Reading, error) {
	switch parts[0] {
	case "B":
		return d.rawBarometer(parts)
	case "I":
		return d.rawInstrument(parts)
	case "#":
		d.logger.Infof("receiver info: %s", strings.Join(parts[1:], " "))
		return nil, nil
	}
	return nil, UnknownSensorError{Tag: parts[0]}
}

// rawBarometer decodes the console heartbeat. The console is not a radio
// transmitter, so the reading lands on the reserved channel slot with no
// signal measurement.
func (d *Decoder) rawBarometer(parts []string) (*Reading, error) {
	if len(parts) < 6 {
		return nil, malformedf("B line has %d tokens, want at least 6", len(parts))
	}
	tempRaw, err := parseFloat(parts[3])
	if err != nil {
		return nil, err
	}
	pressRaw, err := parseFloat(parts[4])
	if err != nil {
		return nil, err
	}

	r := &Reading{Channel: ConsoleChannel}
	r.add(ObsInTemp, tempRaw/10)      // tenths of Celsius
	r.add(ObsPressure, pressRaw/100)  // hundredths of hPa
	return r, nil
}

func (d *Decoder) rawInstrument(parts []string) (*Reading, error) {
	if len(parts) < 13 {
		return nil, malformedf("I line has %d tokens, want at least 13", len(parts))
	}

	var pkt [rawPacketLen]byte
	for i := range pkt {
		b, err := strconv.ParseUint(parts[i+2], 16, 8)
		if err != nil {
			return nil, malformedf("token %q is not a hex byte", parts[i+2])
		}
		pkt[i] = byte(b)
	}
	if crc16.Crc16(pkt[:]) != 0 {
		d.crcErrors++
		return nil, ErrBadCRC
	}

	channel := int(pkt[0]&0x7) + 1
	batteryLow := float64((pkt[0] >> 3) & 0x1)

	rfSignal, err := parseFloat(parts[11])
	if err != nil {
		return nil, err
	}
	deltaMicros, err := parseInt(parts[12])
	if err != nil {
		return nil, err
	}

	r := &Reading{
		Channel:  channel,
		RFSignal: rfSignal,
		RFMissed: missedFromDelta(deltaMicros),
	}

	switch channel {
	case d.cfg.ISSChannel, d.cfg.AnemometerChannel:
		d.decodeInstrumentPayload(pkt, r)
	case d.cfg.LeafSoilChannel:
		d.decodeLeafSoilPayload(pkt, r)
	case d.cfg.TempHum1Channel, d.cfg.TempHum2Channel:
		// The temp/hum station payload layout has not been reverse
		// engineered; only the battery flag is usable.
		d.logger.Debugf("temp/hum station payload on channel %d: % 02x", channel, pkt)
	default:
		d.logger.Infof("data from unconfigured station on channel %d, ignoring", channel)
		return nil, nil
	}

	r.add(ObsBattery, batteryLow)
	return r, nil
}

// missedFromDelta estimates missed transmissions from the time since the
// channel's previous reception. Transmitters send every ~2.5s, so a delta of
// n intervals means n-1 packets went unheard.
func missedFromDelta(deltaMicros int) int {
	missed := (deltaMicros+retransmitMicros/2)/retransmitMicros - 1
	if missed < 0 {
		return 0
	}
	return missed
}

// decodeInstrumentPayload handles ISS and anemometer-kit packets. Every
// packet carries wind in bytes 1-2; the message-type nibble selects what the
// remaining bytes mean.
func (d *Decoder) decodeInstrumentPayload(pkt [rawPacketLen]byte, r *Reading) {
	if pkt[1] != 0 || pkt[2] != 0 {
		r.add(ObsWindSpeed, float64(pkt[1])*mphToMps)
		r.add(ObsWindDir, d.windDirDegrees(pkt[2]))
	}

	switch msg := pkt[0] >> 4; msg {
	case msgSupercapVoltage:
		raw := uint16(pkt[3])<<2 | uint16(pkt[4])>>6
		if raw != sentinel10Bit && raw != sentinelCapLow {
			r.add(ObsSupercapVoltage, float64(raw)/d.cfg.SupercapDivisor)
		}
	case msgUVIndex:
		raw := (uint16(pkt[3])<<8 | uint16(pkt[4])) >> 6
		if raw != sentinel10Bit {
			r.add(ObsUV, float64(raw)*uvPerCount)
		}
	case msgRainRate:
		d.decodeRainRate(pkt, r)
	case msgSolarRadiation:
		raw := (uint16(pkt[3])<<8 | uint16(pkt[4])) >> 6
		if raw < sentinel10Bit-1 {
			r.add(ObsSolarRadiation, float64(raw)*wattsPerCount)
		}
	case msgSolarPower:
		raw := (uint16(pkt[3])<<8 | uint16(pkt[4])) >> 6
		if raw < sentinel10Bit-1 {
			r.add(ObsSolarPower, float64(raw)*100/1023)
		}
	case msgTemperature:
		raw := uint16(pkt[3])<<4 | uint16(pkt[4])>>4
		if raw != sentinelTempRaw {
			tempF := float64(signExtend12(raw)) / 10
			r.add(ObsOutTemp, (tempF-32)*5/9)
		}
	case msgWindGust:
		// 10-minute gust; decoded for the log but there is no target field.
		d.logger.Debugf("10-min wind gust %.1f m/s (discarded)", float64(pkt[3])*mphToMps)
	case msgHumidity:
		raw := uint16(pkt[4]>>4)<<8 | uint16(pkt[3])
		if raw != 0 {
			r.add(ObsOutHumidity, float64(raw)/10)
		}
	case msgATK:
		d.logger.Infof("unrecognized ATK message: % 02x", pkt)
	case msgRainCount:
		// Mask the top bit so 255-wrap and 127-wrap counter variants both
		// present a 128-wrap domain.
		if pkt[3] != sentinelRainTips {
			r.add(ObsRainCount, float64(pkt[3]&0x7F))
		}
	default:
		d.logger.Debugf("unknown message type %#x from channel %d: % 02x", msg, r.Channel, pkt)
	}
}

// decodeRainRate converts the inter-tip spacing to mm/h. The transmitter
// reports the spacing at two resolutions, flagged by bit 6 of byte 4:
// sixteenths of a second during heavy rain, whole seconds otherwise.
func (d *Decoder) decodeRainRate(pkt [rawPacketLen]byte, r *Reading) {
	raw := uint16(pkt[4]&0x30)<<4 | uint16(pkt[3])
	switch {
	case raw == sentinel10Bit:
		r.add(ObsRainRate, 0)
	case raw == 0:
		// Zero tip spacing is physically impossible; suppress the field
		// rather than divide by it.
		d.logger.Debugf("rain rate packet with zero tip spacing from channel %d: % 02x", r.Channel, pkt)
	case pkt[4]&0x40 == 0:
		secondsPerTip := float64(raw) / 16
		r.add(ObsRainRate, 3600/secondsPerTip*d.cfg.RainPerTip())
	default:
		r.add(ObsRainRate, 3600/float64(raw)*d.cfg.RainPerTip())
	}
}

// decodeLeafSoilPayload handles the leaf/soil station. Each packet reports
// one of up to four probes; the sub-type nibble picks soil moisture or leaf
// wetness. Probe temperature rides along both to be reported and to
// temperature-correct the soil moisture code.
func (d *Decoder) decodeLeafSoilPayload(pkt [rawPacketLen]byte, r *Reading) {
	if pkt[0]>>4 != msgLeafSoil {
		d.logger.Debugf("unexpected message type %#x from leaf/soil channel: % 02x", pkt[0]>>4, pkt)
		return
	}
	subType := pkt[1] & 0x3
	sensor := int(pkt[1]&0xE0)>>5 + 1
	if sensor > 4 {
		d.logger.Warnf("leaf/soil packet names sub-sensor %d outside 1-4, dropping", sensor)
		return
	}
	tempRaw := (uint16(pkt[3])<<2 | uint16(pkt[5])>>6) & 0x3FF
	potentialRaw := (uint16(pkt[2])<<2 | uint16(pkt[4])>>6) & 0x3FF

	probeTempC := defaultProbeTempC
	haveTemp := pkt[3] != 0xFF
	if haveTemp {
		var ok bool
		probeTempC, ok = thermistorTempC(tempRaw)
		if !ok {
			d.degraded++
			d.logger.Warnf("thermistor code %d outside calibration domain, using %.0fC", tempRaw, defaultProbeTempC)
		}
	}

	switch subType {
	case 1: // soil moisture
		if haveTemp {
			r.addIndexed(ObsSoilTemp, sensor, probeTempC)
		}
		if potentialRaw != sentinel10Bit {
			norm := normalizeSoilRaw(float64(potentialRaw), probeTempC)
			r.addIndexed(ObsSoilMoisture, sensor, lookupPotential(soilMoistureTable, norm))
		}
	case 2: // leaf wetness
		if haveTemp {
			r.addIndexed(ObsLeafTemp, sensor, probeTempC)
		}
		if potentialRaw != sentinel10Bit {
			r.addIndexed(ObsLeafWetness, sensor, lookupPotential(leafWetnessTable, float64(potentialRaw)))
		}
	default:
		d.logger.Debugf("unknown leaf/soil sub-type %d: % 02x", subType, pkt)
	}
}

func (d *Decoder) windDirDegrees(raw byte) float64 {
	if d.cfg.WindFormula == WindVantageVue {
		return float64(raw)*1.40625 + 0.3
	}
	return 9 + float64(raw)*342/255
}

// signExtend12 interprets a 12-bit field as two's complement.
func signExtend12(v uint16) int16 {
	if v&0x800 != 0 {
		return int16(v) - 0x1000
	}
	return int16(v)
}
