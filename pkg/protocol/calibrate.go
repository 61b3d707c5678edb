package protocol

import "math"

// Thermistor constants for the soil/leaf temperature probes. The probe is a
// thermistor in a resistor divider read by a 10-bit ADC; the constants below
// were fitted against Davis console output.
const (
	thermistorA = 18.811
	thermistorB = 0.0009988

	// One-term Steinhart-Hart coefficients, resistance in kOhm.
	steinhartS1 = 0.0027836
	steinhartS2 = 0.0002509

	// Substituted when the raw code falls outside the calibration domain.
	defaultProbeTempC = 24.0

	// Soil moisture raw codes drift with probe temperature; readings are
	// normalized to the 24C reference before table lookup.
	soilTempCoefficient = 0.009
)

// thermistorTempC converts a 10-bit raw probe code to Celsius. The second
// return is false when the code falls outside the calibration domain and the
// fallback constant was substituted.
func thermistorTempC(raw uint16) (float64, bool) {
	if raw == 0 {
		return defaultProbeTempC, false
	}
	denom := 1.0/float64(raw) - thermistorB
	if denom <= 0 {
		return defaultProbeTempC, false
	}
	rKOhm := thermistorA / denom / 1000
	if rKOhm <= 0 {
		return defaultProbeTempC, false
	}
	t := 1.0/(steinhartS1+steinhartS2*math.Log(rKOhm)) - 273
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return defaultProbeTempC, false
	}
	return t, true
}

type calPoint struct {
	raw       float64
	potential float64
}

// Raw ADC code to soil moisture tension in centibar. Monotonic; values
// outside the table clamp to its ends rather than extrapolating.
var soilMoistureTable = []calPoint{
	{0, 0},
	{140, 1},
	{255, 9},
	{340, 20},
	{430, 40},
	{520, 68},
	{600, 100},
	{680, 135},
	{760, 165},
	{850, 190},
	{1023, 200},
}

// Raw ADC code to the 0-15 leaf wetness index. No temperature correction is
// applied to leaf wetness readings.
var leafWetnessTable = []calPoint{
	{0, 0},
	{150, 1},
	{300, 3},
	{450, 5},
	{600, 8},
	{750, 11},
	{900, 13},
	{1023, 15},
}

// lookupPotential linearly interpolates raw between the bracketing table
// entries, clamping at both ends.
func lookupPotential(table []calPoint, raw float64) float64 {
	if raw <= table[0].raw {
		return table[0].potential
	}
	last := table[len(table)-1]
	if raw >= last.raw {
		return last.potential
	}
	for i := 1; i < len(table); i++ {
		if raw < table[i].raw {
			lo, hi := table[i-1], table[i]
			frac := (raw - lo.raw) / (hi.raw - lo.raw)
			return lo.potential + frac*(hi.potential-lo.potential)
		}
	}
	return last.potential
}

// normalizeSoilRaw corrects a soil moisture raw code to the 24C reference
// temperature before lookup.
func normalizeSoilRaw(raw float64, probeTempC float64) float64 {
	return raw / (1 + soilTempCoefficient*(probeTempC-defaultProbeTempC))
}
