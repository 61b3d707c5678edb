package protocol

import (
	"strconv"
	"strings"
)

// Machine format: every value arrives as an ASCII decimal token, already in
// physical units, so no calibration is needed here. The leading tag selects
// the sensor class:
//
//	B <in_temp> <pressure> [<quality>%]
//	W <ch> <speed> <dir> <rf> [L]
//	T <ch> <temp> <hum> <rf> [L]
//	L|M|O <ch> <sensor> <value> <rf> [L]
//	R|S|U|P <ch> <value> <rf> [L]
//	# <informational text>
func (d *Decoder) decodeMachine(parts []string) (*Reading, error) {
	switch parts[0] {
	case "B":
		return d.machineBarometer(parts)
	case "W", "T":
		return d.machineWindOrTempHum(parts)
	case "L", "M", "O":
		return d.machineLeafSoil(parts)
	case "R", "S", "U", "P":
		return d.machineISSValue(parts)
	case "#":
		d.logger.Infof("receiver info: %s", strings.Join(parts[1:], " "))
		return nil, nil
	}
	return nil, UnknownSensorError{Tag: parts[0]}
}

// machineBarometer handles the console heartbeat. The optional trailing
// token is the receiver's own reception-quality percentage, tracked on the
// synthetic quality channel since machine mode reports no per-channel
// statistics.
func (d *Decoder) machineBarometer(parts []string) (*Reading, error) {
	if len(parts) < 3 {
		return nil, malformedf("B line has %d tokens, want at least 3", len(parts))
	}
	inTemp, err := parseFloat(parts[1])
	if err != nil {
		return nil, err
	}
	pressure, err := parseFloat(parts[2])
	if err != nil {
		return nil, err
	}

	r := &Reading{Channel: ConsoleChannel}
	r.add(ObsInTemp, inTemp)
	r.add(ObsPressure, pressure)
	if len(parts) >= 4 {
		quality, err := parseFloat(strings.TrimSuffix(parts[3], "%"))
		if err != nil {
			return nil, err
		}
		r.Channel = QualityChannel
		r.RFSignal = quality
	}
	return r, nil
}

func (d *Decoder) machineWindOrTempHum(parts []string) (*Reading, error) {
	if len(parts) < 5 {
		return nil, malformedf("%s line has %d tokens, want at least 5", parts[0], len(parts))
	}
	ch, err := parseInt(parts[1])
	if err != nil {
		return nil, err
	}
	a, err := parseFloat(parts[2])
	if err != nil {
		return nil, err
	}
	b, err := parseFloat(parts[3])
	if err != nil {
		return nil, err
	}
	rf, err := parseFloat(parts[4])
	if err != nil {
		return nil, err
	}

	r := &Reading{Channel: ch, RFSignal: rf}
	r.add(ObsBattery, batteryFlag(parts, 5))

	switch parts[0] {
	case "W":
		if ch != d.cfg.ISSChannel && ch != d.cfg.AnemometerChannel {
			d.logger.Infof("wind data from unconfigured station on channel %d, ignoring", ch)
			return nil, nil
		}
		r.add(ObsWindSpeed, a) // already m/s
		r.add(ObsWindDir, b)
	case "T":
		switch ch {
		case d.cfg.TempHum1Channel:
			r.addIndexed(ObsExtraTemp, 1, a)
			r.addIndexed(ObsExtraHumid, 1, b)
		case d.cfg.TempHum2Channel:
			r.addIndexed(ObsExtraTemp, 2, a)
			r.addIndexed(ObsExtraHumid, 2, b)
		case d.cfg.ISSChannel:
			r.add(ObsOutTemp, a)
			r.add(ObsOutHumidity, b)
		default:
			d.logger.Infof("temp/hum data from unconfigured station on channel %d, ignoring", ch)
			return nil, nil
		}
	}
	return r, nil
}

// machineLeafSoil handles the leaf/soil station classes. Values arrive
// pre-calibrated; they pass through keyed by the sub-sensor index.
func (d *Decoder) machineLeafSoil(parts []string) (*Reading, error) {
	if len(parts) < 5 {
		return nil, malformedf("%s line has %d tokens, want at least 5", parts[0], len(parts))
	}
	ch, err := parseInt(parts[1])
	if err != nil {
		return nil, err
	}
	sensor, err := parseInt(parts[2])
	if err != nil {
		return nil, err
	}
	value, err := parseFloat(parts[3])
	if err != nil {
		return nil, err
	}
	rf, err := parseFloat(parts[4])
	if err != nil {
		return nil, err
	}

	r := &Reading{Channel: ch, RFSignal: rf}
	r.add(ObsBattery, batteryFlag(parts, 5))

	if sensor < 1 || sensor > 4 {
		d.logger.Warnf("%s line names sub-sensor %d outside 1-4, dropping value", parts[0], sensor)
		return r, nil
	}
	switch parts[0] {
	case "L":
		r.addIndexed(ObsLeafWetness, sensor, value)
	case "M":
		r.addIndexed(ObsSoilMoisture, sensor, value)
	case "O":
		r.addIndexed(ObsSoilTemp, sensor, value)
	}
	return r, nil
}

// machineISSValue handles the single-value ISS classes: rain tip counter,
// solar radiation, UV, and solar power.
func (d *Decoder) machineISSValue(parts []string) (*Reading, error) {
	if len(parts) < 4 {
		return nil, malformedf("%s line has %d tokens, want at least 4", parts[0], len(parts))
	}
	ch, err := parseInt(parts[1])
	if err != nil {
		return nil, err
	}
	value, err := parseFloat(parts[2])
	if err != nil {
		return nil, err
	}
	rf, err := parseFloat(parts[3])
	if err != nil {
		return nil, err
	}

	r := &Reading{Channel: ch, RFSignal: rf}
	r.add(ObsBattery, batteryFlag(parts, 4))

	switch parts[0] {
	case "R":
		// The counter domain is 0-127. An out-of-range count drops only the
		// rain field; the frame's link bookkeeping is still worth keeping.
		n := int(value)
		if n < 0 || n >= rainCounterMod {
			d.logger.Warnf("rain counter %d outside 0-%d, dropping rain field", n, rainCounterMod-1)
			return r, nil
		}
		r.add(ObsRainCount, float64(n))
	case "S":
		r.add(ObsSolarRadiation, value)
	case "U":
		r.add(ObsUV, value)
	case "P":
		r.add(ObsSolarPower, value)
	}
	return r, nil
}

// batteryFlag reads the optional trailing low-battery marker.
func batteryFlag(parts []string, idx int) float64 {
	if len(parts) > idx && parts[idx] == "L" {
		return 1
	}
	return 0
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, malformedf("token %q is not a number", s)
	}
	return v, nil
}

func parseInt(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, malformedf("token %q is not an integer", s)
	}
	return v, nil
}
