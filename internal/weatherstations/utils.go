package weatherstations

import (
	"fmt"

	"github.com/chrissnell/meteostick/pkg/config"
	"go.uber.org/zap"
)

// LoadDeviceConfig loads configuration for a specific device
func LoadDeviceConfig(configProvider config.ConfigProvider, deviceName string, logger *zap.SugaredLogger) *config.DeviceData {
	cfgData, err := configProvider.LoadConfig()
	if err != nil {
		logger.Fatalf("Station [%s] failed to load config: %v", deviceName, err)
	}

	for _, device := range cfgData.Devices {
		if device.Name == deviceName {
			return &device
		}
	}

	logger.Fatalf("Station [%s] device not found in configuration", deviceName)
	return nil
}

// ValidateSerialOrNetwork validates that either serial device or network config is provided
func ValidateSerialOrNetwork(config config.DeviceData) error {
	if config.SerialDevice == "" && (config.Hostname == "" || config.Port == "") {
		return fmt.Errorf("station [%s] must define either a serial device or hostname+port", config.Name)
	}
	return nil
}
