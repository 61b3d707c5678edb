package types

import "time"

// Reading is one decoded transmission from a receiver, flattened to the
// metrics the publishers report. A single radio frame only carries a subset
// of these fields, so the measurements are pointers: nil means the frame did
// not include the metric, and a present zero (0C, 0%) publishes faithfully.
type Reading struct {
	Timestamp   time.Time `json:"timestamp"`
	StationName string    `json:"station_name"`
	StationType string    `json:"station_type"`

	// Radio-link metadata for the frame that produced this reading.
	Channel        int      `json:"channel"`
	RFSignal       float64  `json:"rf_signal"`
	RFMissed       int      `json:"rf_missed"`
	RxCheckPercent *float64 `json:"rx_check_percent,omitempty"`

	Barometer       *float64 `json:"barometer,omitempty"`
	InTemp          *float64 `json:"in_temp,omitempty"`
	OutTemp         *float64 `json:"out_temp,omitempty"`
	OutHumidity     *float64 `json:"out_humidity,omitempty"`
	WindSpeed       *float64 `json:"wind_speed,omitempty"`
	WindDir         *float64 `json:"wind_dir,omitempty"`
	RainRate        *float64 `json:"rain_rate,omitempty"`
	RainIncremental *float64 `json:"rain_incremental,omitempty"`
	UV              *float64 `json:"uv,omitempty"`
	SolarWatts      *float64 `json:"solar_watts,omitempty"`
	SolarPowerPct   *float64 `json:"solar_power_pct,omitempty"`
	SupercapVoltage *float64 `json:"supercap_voltage,omitempty"`

	SoilTemp1      *float64 `json:"soil_temp_1,omitempty"`
	SoilTemp2      *float64 `json:"soil_temp_2,omitempty"`
	SoilTemp3      *float64 `json:"soil_temp_3,omitempty"`
	SoilTemp4      *float64 `json:"soil_temp_4,omitempty"`
	SoilMoisture1  *float64 `json:"soil_moisture_1,omitempty"`
	SoilMoisture2  *float64 `json:"soil_moisture_2,omitempty"`
	SoilMoisture3  *float64 `json:"soil_moisture_3,omitempty"`
	SoilMoisture4  *float64 `json:"soil_moisture_4,omitempty"`
	LeafTemp1      *float64 `json:"leaf_temp_1,omitempty"`
	LeafTemp2      *float64 `json:"leaf_temp_2,omitempty"`
	LeafTemp3      *float64 `json:"leaf_temp_3,omitempty"`
	LeafTemp4      *float64 `json:"leaf_temp_4,omitempty"`
	LeafWetness1   *float64 `json:"leaf_wetness_1,omitempty"`
	LeafWetness2   *float64 `json:"leaf_wetness_2,omitempty"`
	LeafWetness3   *float64 `json:"leaf_wetness_3,omitempty"`
	LeafWetness4   *float64 `json:"leaf_wetness_4,omitempty"`
	ExtraTemp1     *float64 `json:"extra_temp_1,omitempty"`
	ExtraTemp2     *float64 `json:"extra_temp_2,omitempty"`
	ExtraHumidity1 *float64 `json:"extra_humidity_1,omitempty"`
	ExtraHumidity2 *float64 `json:"extra_humidity_2,omitempty"`

	// TxBatteryLow is 1 when the transmitter reports a low battery.
	TxBatteryLow *float64 `json:"tx_battery_low,omitempty"`
}

// ChannelQuality summarizes radio reception for one transmitter channel over
// a reporting interval. HasPct flags whether PctGood was measurable; the
// other fields are always real measurements for the interval.
type ChannelQuality struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Avg     float64 `json:"avg"`
	Last    float64 `json:"last"`
	Count   int     `json:"count"`
	Missed  int     `json:"missed"`
	PctGood float64 `json:"pct_good"`
	HasPct  bool    `json:"has_pct"`
}

// LinkQualitySummary is the per-interval link report a station emits
// alongside its readings.
type LinkQualitySummary struct {
	Timestamp   time.Time              `json:"timestamp"`
	StationName string                 `json:"station_name"`
	Channels    map[int]ChannelQuality `json:"channels"`
	CRCErrors   int                    `json:"crc_errors"`
	Degraded    int                    `json:"degraded_readings"`
}
