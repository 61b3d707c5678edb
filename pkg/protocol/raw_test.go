package protocol

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/chrissnell/meteostick/pkg/crc16"
)

// instrumentPacket builds an 8-byte transmitter payload, appending the CRC
// over the six data bytes so the whole packet checksums to zero.
func instrumentPacket(b0, b1, b2, b3, b4, b5 byte) [rawPacketLen]byte {
	pkt := [rawPacketLen]byte{b0, b1, b2, b3, b4, b5}
	crc := crc16.Crc16(pkt[:6])
	pkt[6] = byte(crc >> 8)
	pkt[7] = byte(crc)
	return pkt
}

// rawLine renders a packet as the receiver's "I" line: tag, sequence, eight
// hex bytes, flags, signal strength, and microseconds since the channel's
// previous reception.
func rawLine(pkt [rawPacketLen]byte, rf float64, deltaMicros int) string {
	tokens := []string{"I", "104"}
	for _, b := range pkt {
		tokens = append(tokens, fmt.Sprintf("%02X", b))
	}
	tokens = append(tokens, "0", fmt.Sprintf("%g", rf), fmt.Sprintf("%d", deltaMicros))
	return strings.Join(tokens, " ")
}

func rawDecoder(t *testing.T, cfg Config) *Decoder {
	t.Helper()
	cfg.Mode = ModeRaw
	return testDecoder(t, cfg)
}

func TestRawBarometer(t *testing.T) {
	d := rawDecoder(t, Config{})

	r := decodeOne(t, d, "B 39 29530 352 102357 1 0")
	if r.Channel != ConsoleChannel {
		t.Errorf("channel = %d, want console slot %d", r.Channel, ConsoleChannel)
	}
	wantValue(t, r, ObsInTemp, 35.2)
	wantValue(t, r, ObsPressure, 1023.57)
}

func TestRawCRCRejection(t *testing.T) {
	d := rawDecoder(t, Config{ISSChannel: 1})

	pkt := instrumentPacket(0xE0, 0, 0, 0x05, 0, 0)
	pkt[3] ^= 0x01
	_, err := d.DecodeLine(rawLine(pkt, -65, 2500000))
	if !errors.Is(err, ErrBadCRC) {
		t.Fatalf("err = %v, want ErrBadCRC", err)
	}
	if d.CRCErrors() != 1 {
		t.Errorf("CRCErrors = %d, want 1", d.CRCErrors())
	}
	// A rejected frame must not advance the rain baseline.
	r := decodeOne(t, d, rawLine(instrumentPacket(0xE0, 0, 0, 0x05, 0, 0), -65, 2500000))
	wantValue(t, r, ObsRain, 0)
}

func TestRawRainCounter(t *testing.T) {
	d := rawDecoder(t, Config{ISSChannel: 1, RainBucketType: 1})

	r := decodeOne(t, d, rawLine(instrumentPacket(0xE0, 0, 0, 0x05, 0, 0), -65, 2500000))
	wantValue(t, r, ObsRainCount, 5)
	wantValue(t, r, ObsRain, 0)

	r = decodeOne(t, d, rawLine(instrumentPacket(0xE0, 0, 0, 0x08, 0, 0), -65, 2500000))
	wantValue(t, r, ObsRain, 0.6)

	// Top bit masked off: 0x85 reads as counter value 5.
	r = decodeOne(t, d, rawLine(instrumentPacket(0xE0, 0, 0, 0x85, 0, 0), -65, 2500000))
	wantValue(t, r, ObsRainCount, 5)
}

func TestRawRainCounterSentinel(t *testing.T) {
	d := rawDecoder(t, Config{ISSChannel: 1})

	r := decodeOne(t, d, rawLine(instrumentPacket(0xE0, 0, 0, 0x80, 0, 0), -65, 2500000))
	if _, ok := r.Value(ObsRainCount); ok {
		t.Error("sentinel 0x80 still produced rain_count")
	}
	if _, ok := r.Value(ObsRain); ok {
		t.Error("sentinel 0x80 still produced rain")
	}
}

func TestRawUVIndex(t *testing.T) {
	d := rawDecoder(t, Config{ISSChannel: 1})

	// raw 500 across the byte boundary: 500<<6 = 0x7D00.
	r := decodeOne(t, d, rawLine(instrumentPacket(0x40, 0, 0, 0x7D, 0x00, 0), -65, 2500000))
	wantValue(t, r, ObsUV, 10.0)

	// Sentinel 0x3FF: no sensor fitted.
	r = decodeOne(t, d, rawLine(instrumentPacket(0x40, 0, 0, 0xFF, 0xC0, 0), -65, 2500000))
	if _, ok := r.Value(ObsUV); ok {
		t.Error("sentinel UV reading still produced uv")
	}
}

func TestRawTemperature(t *testing.T) {
	d := rawDecoder(t, Config{ISSChannel: 1})

	// raw 725 tenths of Fahrenheit: 72.5F = 22.5C.
	r := decodeOne(t, d, rawLine(instrumentPacket(0x80, 0, 0, 0x2D, 0x50, 0), -65, 2500000))
	wantValue(t, r, ObsOutTemp, 22.5)

	// Negative 12-bit reading: -105 tenths = -10.5F.
	raw := uint16(0x1000-105) & 0xFFF
	b3 := byte(raw >> 4)
	b4 := byte(raw&0xF) << 4
	r = decodeOne(t, d, rawLine(instrumentPacket(0x80, 0, 0, b3, b4, 0), -65, 2500000))
	wantValue(t, r, ObsOutTemp, (-10.5-32)*5/9)

	// Sentinel 0xFFC.
	r = decodeOne(t, d, rawLine(instrumentPacket(0x80, 0, 0, 0xFF, 0xC0, 0), -65, 2500000))
	if _, ok := r.Value(ObsOutTemp); ok {
		t.Error("sentinel temperature still produced temperature")
	}
}

func TestRawHumidity(t *testing.T) {
	d := rawDecoder(t, Config{ISSChannel: 1})

	// raw 650 = 65.0%: low byte 0x8A, high bits in the top nibble of byte 4.
	r := decodeOne(t, d, rawLine(instrumentPacket(0xA0, 0, 0, 0x8A, 0x20, 0), -65, 2500000))
	wantValue(t, r, ObsOutHumidity, 65.0)
}

func TestRawWind(t *testing.T) {
	pkt := instrumentPacket(0x80, 10, 128, 0xFF, 0xC0, 0)

	d := rawDecoder(t, Config{ISSChannel: 1})
	r := decodeOne(t, d, rawLine(pkt, -65, 2500000))
	wantValue(t, r, ObsWindSpeed, 10*mphToMps)
	wantValue(t, r, ObsWindDir, 9+128*342.0/255)

	d = rawDecoder(t, Config{ISSChannel: 1, WindFormula: WindVantageVue})
	r = decodeOne(t, d, rawLine(pkt, -65, 2500000))
	wantValue(t, r, ObsWindDir, 128*1.40625+0.3)
}

func TestRawWindZeroBytesSuppressed(t *testing.T) {
	d := rawDecoder(t, Config{ISSChannel: 1})

	r := decodeOne(t, d, rawLine(instrumentPacket(0x80, 0, 0, 0x2D, 0x50, 0), -65, 2500000))
	if _, ok := r.Value(ObsWindSpeed); ok {
		t.Error("zero wind bytes still produced wind_speed")
	}
}

func TestRawSolarRadiation(t *testing.T) {
	d := rawDecoder(t, Config{ISSChannel: 1})

	// raw 300: 300<<6 = 0x4B00.
	r := decodeOne(t, d, rawLine(instrumentPacket(0x60, 0, 0, 0x4B, 0x00, 0), -65, 2500000))
	wantValue(t, r, ObsSolarRadiation, 300*wattsPerCount)
}

func TestRawSolarPower(t *testing.T) {
	d := rawDecoder(t, Config{ISSChannel: 1})

	r := decodeOne(t, d, rawLine(instrumentPacket(0x70, 0, 0, 0x4B, 0x00, 0), -65, 2500000))
	wantValue(t, r, ObsSolarPower, 300*100.0/1023)
}

func TestRawSupercapVoltage(t *testing.T) {
	d := rawDecoder(t, Config{ISSChannel: 1})

	// raw 450 at the default divisor of 300.
	r := decodeOne(t, d, rawLine(instrumentPacket(0x20, 0, 0, 0x70, 0x80, 0), -65, 2500000))
	wantValue(t, r, ObsSupercapVoltage, 1.5)

	// Placeholder code 0x002 from a discharged supercap.
	r = decodeOne(t, d, rawLine(instrumentPacket(0x20, 0, 0, 0x00, 0x80, 0), -65, 2500000))
	if _, ok := r.Value(ObsSupercapVoltage); ok {
		t.Error("placeholder supercap code still produced supercap_volt")
	}

	d = rawDecoder(t, Config{ISSChannel: 1, SupercapDivisor: 100})
	r = decodeOne(t, d, rawLine(instrumentPacket(0x20, 0, 0, 0x70, 0x80, 0), -65, 2500000))
	wantValue(t, r, ObsSupercapVoltage, 4.5)
}

func TestRawRainRate(t *testing.T) {
	d := rawDecoder(t, Config{ISSChannel: 1, RainBucketType: 1})

	// Light rain, whole seconds per tip: 36s -> 20 mm/h.
	r := decodeOne(t, d, rawLine(instrumentPacket(0x50, 0, 0, 0x24, 0x40, 0), -65, 2500000))
	wantValue(t, r, ObsRainRate, 20.0)

	// Heavy rain, sixteenths of a second: raw 160 -> 10s -> 72 mm/h.
	r = decodeOne(t, d, rawLine(instrumentPacket(0x50, 0, 0, 0xA0, 0x00, 0), -65, 2500000))
	wantValue(t, r, ObsRainRate, 72.0)

	// Sentinel: no rain.
	r = decodeOne(t, d, rawLine(instrumentPacket(0x50, 0, 0, 0xFF, 0x30, 0), -65, 2500000))
	wantValue(t, r, ObsRainRate, 0)

	// Zero spacing cannot happen physically; the field must be suppressed,
	// never divided by.
	r = decodeOne(t, d, rawLine(instrumentPacket(0x50, 0, 0, 0x00, 0x00, 0), -65, 2500000))
	if got, ok := r.Value(ObsRainRate); ok {
		t.Errorf("zero tip spacing produced rain_rate = %v", got)
	}
}

func TestRawGustDiscarded(t *testing.T) {
	d := rawDecoder(t, Config{ISSChannel: 1})

	r := decodeOne(t, d, rawLine(instrumentPacket(0x90, 0, 0, 20, 0, 0), -65, 2500000))
	for _, o := range r.Observations {
		if o.Kind != ObsBattery {
			t.Errorf("gust packet produced %s = %v", o.Key(), o.Value)
		}
	}
}

func TestRawChannelAndBattery(t *testing.T) {
	d := rawDecoder(t, Config{ISSChannel: 3})

	// Channel 3 with the battery-low bit set.
	r := decodeOne(t, d, rawLine(instrumentPacket(0x8A, 0, 0, 0x2D, 0x50, 0), -65, 2500000))
	if r.Channel != 3 {
		t.Errorf("channel = %d, want 3", r.Channel)
	}
	wantValue(t, r, ObsBattery, 1)
}

func TestRawUnconfiguredChannelIgnored(t *testing.T) {
	d := rawDecoder(t, Config{ISSChannel: 1})

	r, err := d.DecodeLine(rawLine(instrumentPacket(0x84, 0, 0, 0x2D, 0x50, 0), -65, 2500000))
	if err != nil {
		t.Fatalf("DecodeLine: %v", err)
	}
	if r != nil {
		t.Errorf("unconfigured channel 5 produced reading %+v", r)
	}
}

func TestRawTempHumStationBatteryOnly(t *testing.T) {
	d := rawDecoder(t, Config{ISSChannel: 1, TempHum1Channel: 3})

	r := decodeOne(t, d, rawLine(instrumentPacket(0x0A, 0x12, 0x34, 0x56, 0x78, 0x9A), -65, 2500000))
	if len(r.Observations) != 1 || r.Observations[0].Kind != ObsBattery {
		t.Errorf("temp/hum station reading = %+v, want battery only", r.Observations)
	}
	wantValue(t, r, ObsBattery, 1)
}

func TestRawMissedFromDelta(t *testing.T) {
	tests := []struct {
		delta  int
		missed int
	}{
		{2500000, 0},  // on schedule
		{2624964, 0},  // a little late, still the next slot
		{5000000, 1},  // one slot skipped
		{7500000, 2},  // two skipped
		{100000, 0},   // clamp: never negative
	}
	for _, tt := range tests {
		if got := missedFromDelta(tt.delta); got != tt.missed {
			t.Errorf("missedFromDelta(%d) = %d, want %d", tt.delta, got, tt.missed)
		}
	}
}

func TestRawLeafSoilMoisture(t *testing.T) {
	d := rawDecoder(t, Config{ISSChannel: 1, LeafSoilChannel: 2})

	// Sub-sensor 2, soil moisture sub-type, potential code 600, no probe
	// temperature (0xFF in byte 3 means the reference 24C applies).
	pkt := instrumentPacket(0xF1, 0x21, 0x96, 0xFF, 0x00, 0x00)
	r := decodeOne(t, d, rawLine(pkt, -72, 2500000))
	if got, ok := r.ValueN(ObsSoilMoisture, 2); !ok || math.Abs(got-100) > 1e-9 {
		t.Errorf("soil_moisture_2 = %v (ok=%v), want 100", got, ok)
	}
	if _, ok := r.ValueN(ObsSoilTemp, 2); ok {
		t.Error("absent probe temperature still produced soil_temp_2")
	}
}

func TestRawLeafSoilMoistureWithTemp(t *testing.T) {
	d := rawDecoder(t, Config{ISSChannel: 1, LeafSoilChannel: 2})

	// Thermistor code 400 resolves below the 24C reference, so the same
	// potential code normalizes upward and reads wetter than 100.
	pkt := instrumentPacket(0xF1, 0x21, 0x96, 0x64, 0x00, 0x00)
	r := decodeOne(t, d, rawLine(pkt, -72, 2500000))
	temp, ok := r.ValueN(ObsSoilTemp, 2)
	if !ok {
		t.Fatal("no soil_temp_2")
	}
	if temp < 10 || temp > 24 {
		t.Errorf("soil_temp_2 = %v, want between 10 and 24", temp)
	}
	moisture, ok := r.ValueN(ObsSoilMoisture, 2)
	if !ok || moisture <= 100 {
		t.Errorf("soil_moisture_2 = %v (ok=%v), want > 100 after correction", moisture, ok)
	}
}

func TestRawLeafWetness(t *testing.T) {
	d := rawDecoder(t, Config{ISSChannel: 1, LeafSoilChannel: 2})

	// Sub-sensor 1, leaf wetness sub-type, potential code 900.
	pkt := instrumentPacket(0xF1, 0x02, 0xE1, 0xFF, 0x00, 0x00)
	r := decodeOne(t, d, rawLine(pkt, -72, 2500000))
	if got, ok := r.ValueN(ObsLeafWetness, 1); !ok || math.Abs(got-13) > 1e-9 {
		t.Errorf("leaf_wetness_1 = %v (ok=%v), want 13", got, ok)
	}
}

func TestRawMalformedLines(t *testing.T) {
	d := rawDecoder(t, Config{ISSChannel: 1})

	for _, line := range []string{
		"I 104 E0 00",
		"I 104 ZZ 00 00 05 00 00 12 34 0 -65 2500000",
		"B 39 29530",
	} {
		if _, err := d.DecodeLine(line); !errors.Is(err, ErrMalformedFrame) {
			t.Errorf("DecodeLine(%q) err = %v, want ErrMalformedFrame", line, err)
		}
	}
}
