package managers

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/chrissnell/meteostick/internal/types"
	"github.com/chrissnell/meteostick/internal/weatherstations"
	"github.com/chrissnell/meteostick/internal/weatherstations/meteostick"
	"github.com/chrissnell/meteostick/pkg/config"
)

// WeatherStationManager creates and starts the configured receivers
type WeatherStationManager struct {
	ctx            context.Context
	wg             *sync.WaitGroup
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
	stations       map[string]weatherstations.WeatherStation
}

// NewWeatherStationManager creates a WeatherStationManager object, populated
// with a station for every configured device
func NewWeatherStationManager(ctx context.Context, wg *sync.WaitGroup, configProvider config.ConfigProvider, distributor chan types.Reading, quality chan types.LinkQualitySummary, logger *zap.SugaredLogger) (*WeatherStationManager, error) {
	cfgData, err := configProvider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %v", err)
	}
	if len(cfgData.Devices) == 0 {
		return nil, fmt.Errorf("no devices configured")
	}

	wsm := &WeatherStationManager{
		ctx:            ctx,
		wg:             wg,
		configProvider: configProvider,
		logger:         logger,
		stations:       make(map[string]weatherstations.WeatherStation),
	}

	for _, deviceConfig := range cfgData.Devices {
		switch deviceConfig.Type {
		case "", "meteostick":
			wsm.stations[deviceConfig.Name] = meteostick.NewStation(ctx, wg, configProvider, deviceConfig.Name, distributor, quality, logger)
		default:
			return nil, fmt.Errorf("device [%s] has unknown type %q", deviceConfig.Name, deviceConfig.Type)
		}
	}

	return wsm, nil
}

// StartWeatherStations starts every configured station
func (w *WeatherStationManager) StartWeatherStations() error {
	for name, station := range w.stations {
		w.logger.Infof("Starting weather station [%v]...", name)
		if err := station.StartWeatherStation(); err != nil {
			return fmt.Errorf("failed to start weather station [%s]: %w", name, err)
		}
	}
	return nil
}
