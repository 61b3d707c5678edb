package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	// Load into temporary struct with YAML tags
	var yamlConfig struct {
		Devices    []DeviceYAML   `yaml:"devices"`
		Publishers PublishersYAML `yaml:"publishers,omitempty"`
	}

	err = yaml.Unmarshal(cfgFile, &yamlConfig)
	if err != nil {
		return nil, err
	}

	// Convert to our internal format
	config := &ConfigData{
		Devices: make([]DeviceData, len(yamlConfig.Devices)),
	}

	for i, device := range yamlConfig.Devices {
		config.Devices[i] = DeviceData{
			Name:              device.Name,
			Type:              device.Type,
			Hostname:          device.Hostname,
			Port:              device.Port,
			SerialDevice:      device.SerialDevice,
			Baud:              device.Baud,
			Frequency:         device.Frequency,
			Mode:              device.Mode,
			ISSChannel:        device.ISSChannel,
			AnemometerChannel: device.AnemometerChannel,
			LeafSoilChannel:   device.LeafSoilChannel,
			TempHum1Channel:   device.TempHum1Channel,
			TempHum2Channel:   device.TempHum2Channel,
			RainBucketType:    device.RainBucketType,
			WindFormula:       device.WindFormula,
			SupercapDivisor:   device.SupercapDivisor,
			QualityInterval:   device.QualityInterval,
		}
	}

	config.Publishers = PublishersData{}
	if yamlConfig.Publishers.MQTT != nil {
		config.Publishers.MQTT = &MQTTData{
			Broker:      yamlConfig.Publishers.MQTT.Broker,
			TopicPrefix: yamlConfig.Publishers.MQTT.TopicPrefix,
			ClientID:    yamlConfig.Publishers.MQTT.ClientID,
			Username:    yamlConfig.Publishers.MQTT.Username,
			Password:    yamlConfig.Publishers.MQTT.Password,
		}
	}
	if yamlConfig.Publishers.Status != nil {
		config.Publishers.Status = &StatusData{
			ListenAddr: yamlConfig.Publishers.Status.ListenAddr,
			Port:       yamlConfig.Publishers.Status.Port,
		}
	}

	y.config = config
	return config, nil
}

// GetDevices returns device configurations
func (y *YAMLProvider) GetDevices() ([]DeviceData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return y.config.Devices, nil
}

// GetPublishers returns publisher configurations
func (y *YAMLProvider) GetPublishers() (*PublishersData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Publishers, nil
}

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with proper YAML tags for parsing the on-disk format
type DeviceYAML struct {
	Name              string  `yaml:"name"`
	Type              string  `yaml:"type,omitempty"`
	Hostname          string  `yaml:"hostname,omitempty"`
	Port              string  `yaml:"port,omitempty"`
	SerialDevice      string  `yaml:"serialdevice,omitempty"`
	Baud              int     `yaml:"baud,omitempty"`
	Frequency         string  `yaml:"frequency,omitempty"`
	Mode              string  `yaml:"mode,omitempty"`
	ISSChannel        int     `yaml:"iss-channel,omitempty"`
	AnemometerChannel int     `yaml:"anemometer-channel,omitempty"`
	LeafSoilChannel   int     `yaml:"leaf-soil-channel,omitempty"`
	TempHum1Channel   int     `yaml:"temp-hum-1-channel,omitempty"`
	TempHum2Channel   int     `yaml:"temp-hum-2-channel,omitempty"`
	RainBucketType    int     `yaml:"rain-bucket-type,omitempty"`
	WindFormula       string  `yaml:"wind-formula,omitempty"`
	SupercapDivisor   float64 `yaml:"supercap-divisor,omitempty"`
	QualityInterval   string  `yaml:"quality-interval,omitempty"`
}

type PublishersYAML struct {
	MQTT   *MQTTYAML   `yaml:"mqtt,omitempty"`
	Status *StatusYAML `yaml:"status,omitempty"`
}

type MQTTYAML struct {
	Broker      string `yaml:"broker"`
	TopicPrefix string `yaml:"topic-prefix,omitempty"`
	ClientID    string `yaml:"client-id,omitempty"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
}

type StatusYAML struct {
	ListenAddr string `yaml:"listen-addr,omitempty"`
	Port       int    `yaml:"port,omitempty"`
}
