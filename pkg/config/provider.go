package config

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetDevices() ([]DeviceData, error)
	GetPublishers() (*PublishersData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Devices    []DeviceData   `json:"devices"`
	Publishers PublishersData `json:"publishers,omitempty"`
}

// DeviceData holds configuration for one receiver, either on a local serial
// port or reachable over the network through a serial-to-IP bridge.
type DeviceData struct {
	Name         string `json:"name"`
	Type         string `json:"type,omitempty"`
	Hostname     string `json:"hostname,omitempty"`
	Port         string `json:"port,omitempty"`
	SerialDevice string `json:"serial_device,omitempty"`
	Baud         int    `json:"baud,omitempty"`

	// Frequency selects the transmitter band by regulatory region:
	// US, EU, AU, or NZ.
	Frequency string `json:"frequency,omitempty"`

	// Mode selects the receiver output format, "machine" or "raw".
	Mode string `json:"mode,omitempty"`

	// Transmitter channel assignments, 1-8. Zero leaves the role unbound.
	ISSChannel        int `json:"iss_channel,omitempty"`
	AnemometerChannel int `json:"anemometer_channel,omitempty"`
	LeafSoilChannel   int `json:"leaf_soil_channel,omitempty"`
	TempHum1Channel   int `json:"temp_hum_1_channel,omitempty"`
	TempHum2Channel   int `json:"temp_hum_2_channel,omitempty"`

	RainBucketType  int     `json:"rain_bucket_type,omitempty"`
	WindFormula     string  `json:"wind_formula,omitempty"`
	SupercapDivisor float64 `json:"supercap_divisor,omitempty"`

	// QualityInterval is how often accumulated link statistics are
	// summarized and published, as a Go duration string.
	QualityInterval string `json:"quality_interval,omitempty"`
}

// PublishersData holds the configuration for the reading fan-out backends
type PublishersData struct {
	MQTT   *MQTTData   `json:"mqtt,omitempty"`
	Status *StatusData `json:"status,omitempty"`
}

type MQTTData struct {
	Broker      string `json:"broker"`
	TopicPrefix string `json:"topic_prefix,omitempty"`
	ClientID    string `json:"client_id,omitempty"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
}

type StatusData struct {
	ListenAddr string `json:"listen_addr,omitempty"`
	Port       int    `json:"port,omitempty"`
}
