package protocol

import "fmt"

// ObsKind enumerates every observation the protocol can produce. A closed
// enum keeps the decoder exhaustive over sensor types; the string-keyed
// observation map the host consumes is derived, not primary.
type ObsKind int

const (
	ObsWindSpeed ObsKind = iota // m/s
	ObsWindDir                  // degrees
	ObsOutTemp                  // Celsius
	ObsOutHumidity              // percent
	ObsInTemp                   // Celsius, console sensor
	ObsPressure                 // hPa
	ObsUV                       // UV index
	ObsSolarRadiation           // W/m^2
	ObsSolarPower               // percent of full scale
	ObsRainRate                 // mm/h
	ObsRainCount                // absolute tip counter, 0-127
	ObsRain                     // mm since the previous rain reading
	ObsSupercapVoltage          // volts
	ObsSoilTemp                 // Celsius, indexed 1-4
	ObsSoilMoisture             // centibar, indexed 1-4
	ObsLeafTemp                 // Celsius, indexed 1-4
	ObsLeafWetness              // 0-15 index, indexed 1-4
	ObsExtraTemp                // Celsius, indexed 1-2
	ObsExtraHumid               // percent, indexed 1-2
	ObsBattery                  // 1 = transmitter battery low
)

var obsNames = map[ObsKind]string{
	ObsWindSpeed:       "wind_speed",
	ObsWindDir:         "wind_dir",
	ObsOutTemp:         "temperature",
	ObsOutHumidity:     "humidity",
	ObsInTemp:          "in_temp",
	ObsPressure:        "pressure",
	ObsUV:              "uv",
	ObsSolarRadiation:  "solar_radiation",
	ObsSolarPower:      "solar_power",
	ObsRainRate:        "rain_rate",
	ObsRainCount:       "rain_count",
	ObsRain:            "rain",
	ObsSupercapVoltage: "supercap_volt",
	ObsSoilTemp:        "soil_temp",
	ObsSoilMoisture:    "soil_moisture",
	ObsLeafTemp:        "leaf_temp",
	ObsLeafWetness:     "leaf_wetness",
	ObsExtraTemp:       "extra_temp",
	ObsExtraHumid:      "extra_humid",
	ObsBattery:         "battery",
}

func (k ObsKind) String() string {
	if s, ok := obsNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ObsKind(%d)", int(k))
}

// indexed reports whether the kind names one of several sub-sensors.
func (k ObsKind) indexed() bool {
	switch k {
	case ObsSoilTemp, ObsSoilMoisture, ObsLeafTemp, ObsLeafWetness, ObsExtraTemp, ObsExtraHumid:
		return true
	}
	return false
}

// Observation is one decoded physical value.
type Observation struct {
	Kind   ObsKind
	Sensor int // 1-based sub-sensor number for indexed kinds, else 0
	Value  float64
}

// Key returns the observation-map key, e.g. "wind_speed" or "soil_temp_2".
func (o Observation) Key() string {
	if o.Kind.indexed() {
		return fmt.Sprintf("%s_%d", o.Kind, o.Sensor)
	}
	return o.Kind.String()
}

// Reading is one successfully decoded frame. Channel and the radio-link
// fields are always populated; observations only for sensors the frame
// actually carried (sentinel values suppress their observation entirely).
type Reading struct {
	Channel      int
	RFSignal     float64
	RFMissed     int
	Observations []Observation
}

func (r *Reading) add(kind ObsKind, value float64) {
	r.Observations = append(r.Observations, Observation{Kind: kind, Value: value})
}

func (r *Reading) addIndexed(kind ObsKind, sensor int, value float64) {
	r.Observations = append(r.Observations, Observation{Kind: kind, Sensor: sensor, Value: value})
}

// Value returns the observation of the given non-indexed kind.
func (r *Reading) Value(kind ObsKind) (float64, bool) {
	return r.ValueN(kind, 0)
}

// ValueN returns the observation of an indexed kind for one sub-sensor.
func (r *Reading) ValueN(kind ObsKind, sensor int) (float64, bool) {
	for _, o := range r.Observations {
		if o.Kind == kind && o.Sensor == sensor {
			return o.Value, true
		}
	}
	return 0, false
}

// ToMap renders the reading as the flat observation map handed to packet
// mappers, including the mandatory channel and link-quality fields.
func (r *Reading) ToMap() map[string]float64 {
	m := make(map[string]float64, len(r.Observations)+3)
	m["channel"] = float64(r.Channel)
	m["rf_signal"] = r.RFSignal
	m["rf_missed"] = float64(r.RFMissed)
	for _, o := range r.Observations {
		m[o.Key()] = o.Value
	}
	return m
}
