package meteostick

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/chrissnell/meteostick/internal/log"
	"github.com/chrissnell/meteostick/internal/types"
	"github.com/chrissnell/meteostick/internal/weatherstations"
	"github.com/chrissnell/meteostick/pkg/config"
	"github.com/chrissnell/meteostick/pkg/protocol"
	serial "github.com/tarm/goserial"
	"go.uber.org/zap"
)

const defaultQualityInterval = 5 * time.Minute

// Station implements a Meteostick USB receiver for Davis transmitters
type Station struct {
	ctx                context.Context
	wg                 *sync.WaitGroup
	netConn            net.Conn
	rwc                io.ReadWriteCloser
	config             config.DeviceData
	configProvider     config.ConfigProvider
	deviceName         string
	ReadingDistributor chan types.Reading
	QualityDistributor chan types.LinkQualitySummary
	logger             *zap.SugaredLogger
	decoder            *protocol.Decoder
	qualityInterval    time.Duration
	lastRxCheckPercent *float64
	connecting         bool
	connectingMu       sync.RWMutex
	connected          bool
	connectedMu        sync.RWMutex
}

// NewStation creates a new Meteostick station
func NewStation(ctx context.Context, wg *sync.WaitGroup, configProvider config.ConfigProvider, deviceName string, distributor chan types.Reading, quality chan types.LinkQualitySummary, logger *zap.SugaredLogger) weatherstations.WeatherStation {
	station := &Station{
		ctx:                ctx,
		wg:                 wg,
		configProvider:     configProvider,
		deviceName:         deviceName,
		ReadingDistributor: distributor,
		QualityDistributor: quality,
		logger:             logger,
	}

	deviceConfig := weatherstations.LoadDeviceConfig(configProvider, deviceName, logger)
	station.config = *deviceConfig

	if err := weatherstations.ValidateSerialOrNetwork(station.config); err != nil {
		logger.Fatal(err)
	}

	// The receiver's USB bridge runs at 115200 regardless of platform
	if station.config.Baud == 0 {
		station.config.Baud = 115200
	}

	protocolConfig, err := buildProtocolConfig(station.config)
	if err != nil {
		logger.Fatalf("Meteostick station [%s]: %v", deviceName, err)
	}

	station.decoder, err = protocol.NewDecoder(protocolConfig, logger)
	if err != nil {
		logger.Fatalf("Meteostick station [%s]: %v", deviceName, err)
	}

	station.qualityInterval = defaultQualityInterval
	if station.config.QualityInterval != "" {
		station.qualityInterval, err = time.ParseDuration(station.config.QualityInterval)
		if err != nil {
			logger.Fatalf("Meteostick station [%s]: bad quality-interval: %v", deviceName, err)
		}
	}

	return station
}

// buildProtocolConfig translates device configuration into decoder settings
func buildProtocolConfig(device config.DeviceData) (protocol.Config, error) {
	cfg := protocol.Config{
		ISSChannel:        device.ISSChannel,
		AnemometerChannel: device.AnemometerChannel,
		LeafSoilChannel:   device.LeafSoilChannel,
		TempHum1Channel:   device.TempHum1Channel,
		TempHum2Channel:   device.TempHum2Channel,
		RainBucketType:    device.RainBucketType,
		SupercapDivisor:   device.SupercapDivisor,
	}

	switch device.Mode {
	case "", "machine":
		cfg.Mode = protocol.ModeMachine
	case "raw":
		cfg.Mode = protocol.ModeRaw
	default:
		return cfg, fmt.Errorf("unknown receiver mode %q, want machine or raw", device.Mode)
	}

	switch device.WindFormula {
	case "", "pro":
		cfg.WindFormula = protocol.WindVantagePro
	case "vue":
		cfg.WindFormula = protocol.WindVantageVue
	default:
		return cfg, fmt.Errorf("unknown wind formula %q, want pro or vue", device.WindFormula)
	}

	return cfg, cfg.Validate()
}

// frequencyCommand maps the regulatory band to the receiver's tuning command
func frequencyCommand(frequency string) (string, error) {
	switch strings.ToUpper(frequency) {
	case "", "US":
		return "m0", nil
	case "EU":
		return "m1", nil
	case "AU":
		return "m2", nil
	case "NZ":
		return "m3", nil
	}
	return "", fmt.Errorf("unknown frequency band %q, want US, EU, AU, or NZ", frequency)
}

func (s *Station) StationName() string {
	return s.config.Name
}

// StartWeatherStation connects to the receiver, configures it, and launches
// the frame-reading goroutine
func (s *Station) StartWeatherStation() error {
	log.Infof("Starting Meteostick station [%v]...", s.config.Name)

	s.Connect()
	if err := s.ConfigureReceiver(); err != nil {
		return err
	}

	s.wg.Add(1)
	go s.GetMeteostickFrames()

	return nil
}

// ConfigureReceiver runs the receiver's configuration dialog: reset, wait for
// the command prompt, then set the transmitter mask, filter, output format,
// and frequency band.
func (s *Station) ConfigureReceiver() error {
	freq, err := frequencyCommand(s.config.Frequency)
	if err != nil {
		return err
	}
	if s.rwc == nil {
		return fmt.Errorf("receiver [%v] is not connected", s.config.Name)
	}

	outputFormat := "o1"
	if s.decoder.Config().Mode == protocol.ModeRaw {
		outputFormat = "o3"
	}

	s.logger.Infof("resetting receiver [%v]", s.config.Name)
	if _, err := s.rwc.Write([]byte("\r")); err != nil {
		return fmt.Errorf("write to receiver: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	if _, err := s.rwc.Write([]byte("r\n")); err != nil {
		return fmt.Errorf("reset receiver: %v", err)
	}
	if err := s.awaitPrompt(10 * time.Second); err != nil {
		return err
	}

	commands := []string{
		fmt.Sprintf("t%d", s.decoder.Config().TransmitterMask()),
		"f1", // hardware CRC filter on
		outputFormat,
		freq,
	}
	for _, cmd := range commands {
		s.logger.Debugf("sending receiver command %q", cmd)
		if _, err := s.rwc.Write([]byte(cmd + "\r")); err != nil {
			return fmt.Errorf("receiver command %q: %v", cmd, err)
		}
		// The receiver echoes and reconfigures; give it a moment before the
		// next command.
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}

	log.Infof("Meteostick [%v] configured: mask=%d format=%s band=%s", s.config.Name, s.decoder.Config().TransmitterMask(), outputFormat, freq)
	return nil
}

// awaitPrompt reads from the receiver until the '?' command prompt appears
func (s *Station) awaitPrompt(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, 256)

	for time.Now().Before(deadline) {
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		default:
		}
		if s.netConn != nil {
			s.netConn.SetReadDeadline(time.Now().Add(time.Second))
		}
		n, err := s.rwc.Read(buf)
		if n > 0 && bytes.ContainsRune(buf[:n], '?') {
			return nil
		}
		if err != nil && !isTimeout(err) {
			return fmt.Errorf("waiting for receiver prompt: %v", err)
		}
	}
	return fmt.Errorf("receiver [%v] never presented its command prompt", s.config.Name)
}

func isTimeout(err error) bool {
	netErr, ok := err.(net.Error)
	return ok && netErr.Timeout()
}

// GetMeteostickFrames runs the frame parser, reconnecting and reconfiguring
// the receiver if there is an error.
func (s *Station) GetMeteostickFrames() {
	defer s.wg.Done()
	log.Info("starting Meteostick frame getter")
	for {
		select {
		case <-s.ctx.Done():
			log.Info("cancellation request received. Cancelling ParseMeteostickFrames()")
			return
		default:
			err := s.ParseMeteostickFrames()
			if err != nil {
				s.logger.Error(err)
				s.rwc.Close()
				if len(s.config.Hostname) > 0 {
					s.netConn.Close()
				}
				s.logger.Info("attempting to reconnect...")
				s.Connect()
				if err := s.ConfigureReceiver(); err != nil {
					s.logger.Errorf("failed to reconfigure receiver: %v", err)
				}
			} else {
				return
			}
		}
	}
}

// ParseMeteostickFrames reads lines from the receiver, decodes them, and
// sends readings to the ReadingDistributor. Link-quality statistics are
// flushed on the configured interval.
func (s *Station) ParseMeteostickFrames() error {
	scanner := bufio.NewScanner(s.rwc)
	lastFlush := time.Now()

	for scanner.Scan() {
		// Update read deadline for network connections to prevent timeout
		if s.netConn != nil {
			s.netConn.SetReadDeadline(time.Now().Add(time.Second * 30))
		}
		select {
		case <-s.ctx.Done():
			log.Info("cancellation request received. Cancelling ParseMeteostickFrames()")
			return nil
		default:
		}

		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		reading, err := s.decoder.DecodeLine(line)
		if err != nil {
			// Bad frames are data-quality events; keep reading.
			s.logger.Warnf("discarding frame: %v", err)
		} else if reading != nil {
			r := s.mapReading(reading)
			log.Debugf("Meteostick [%s] sending reading to distributor: channel=%d rf=%.0f", s.config.Name, r.Channel, r.RFSignal)
			s.ReadingDistributor <- r
		}

		if time.Since(lastFlush) >= s.qualityInterval {
			s.flushLinkQuality()
			lastFlush = time.Now()
		}
	}

	return fmt.Errorf("scanning aborted due to error or EOF")
}

// flushLinkQuality summarizes the interval's radio statistics and hands them
// to the quality distributor
func (s *Station) flushLinkQuality() {
	summary := s.decoder.FlushLinkQuality()
	if len(summary) == 0 {
		return
	}

	out := types.LinkQualitySummary{
		Timestamp:   time.Now(),
		StationName: s.config.Name,
		Channels:    make(map[int]types.ChannelQuality, len(summary)),
		CRCErrors:   s.decoder.CRCErrors(),
		Degraded:    s.decoder.DegradedReadings(),
	}
	for ch, q := range summary {
		out.Channels[ch] = types.ChannelQuality{
			Min:     q.Min,
			Max:     q.Max,
			Avg:     q.Avg,
			Last:    q.Last,
			Count:   q.Count,
			Missed:  q.Missed,
			PctGood: q.PctGood,
			HasPct:  q.HasPct,
		}
	}

	if iss, ok := summary[s.decoder.Config().ISSChannel]; ok && iss.HasPct {
		pct := iss.PctGood
		s.lastRxCheckPercent = &pct
	}

	if s.QualityDistributor != nil {
		s.QualityDistributor <- out
	}
}

// mapReading flattens a decoded frame into the publisher schema
func (s *Station) mapReading(p *protocol.Reading) types.Reading {
	r := types.Reading{
		Timestamp:      time.Now(),
		StationName:    s.config.Name,
		StationType:    "meteostick",
		Channel:        p.Channel,
		RFSignal:       p.RFSignal,
		RFMissed:       p.RFMissed,
		RxCheckPercent: s.lastRxCheckPercent,
	}

	for _, o := range p.Observations {
		switch o.Kind {
		case protocol.ObsWindSpeed:
			r.WindSpeed = fptr(o.Value)
		case protocol.ObsWindDir:
			r.WindDir = fptr(o.Value)
		case protocol.ObsOutTemp:
			r.OutTemp = fptr(o.Value)
		case protocol.ObsOutHumidity:
			r.OutHumidity = fptr(o.Value)
		case protocol.ObsInTemp:
			r.InTemp = fptr(o.Value)
		case protocol.ObsPressure:
			r.Barometer = fptr(o.Value)
		case protocol.ObsUV:
			r.UV = fptr(o.Value)
		case protocol.ObsSolarRadiation:
			r.SolarWatts = fptr(o.Value)
		case protocol.ObsSolarPower:
			r.SolarPowerPct = fptr(o.Value)
		case protocol.ObsRainRate:
			r.RainRate = fptr(o.Value)
		case protocol.ObsRain:
			r.RainIncremental = fptr(o.Value)
		case protocol.ObsRainCount:
			// Internal counter; the incremental value above is the product.
		case protocol.ObsSupercapVoltage:
			r.SupercapVoltage = fptr(o.Value)
		case protocol.ObsSoilTemp:
			assignIndexed(o.Sensor, o.Value, &r.SoilTemp1, &r.SoilTemp2, &r.SoilTemp3, &r.SoilTemp4)
		case protocol.ObsSoilMoisture:
			assignIndexed(o.Sensor, o.Value, &r.SoilMoisture1, &r.SoilMoisture2, &r.SoilMoisture3, &r.SoilMoisture4)
		case protocol.ObsLeafTemp:
			assignIndexed(o.Sensor, o.Value, &r.LeafTemp1, &r.LeafTemp2, &r.LeafTemp3, &r.LeafTemp4)
		case protocol.ObsLeafWetness:
			assignIndexed(o.Sensor, o.Value, &r.LeafWetness1, &r.LeafWetness2, &r.LeafWetness3, &r.LeafWetness4)
		case protocol.ObsExtraTemp:
			assignIndexed(o.Sensor, o.Value, &r.ExtraTemp1, &r.ExtraTemp2)
		case protocol.ObsExtraHumid:
			assignIndexed(o.Sensor, o.Value, &r.ExtraHumidity1, &r.ExtraHumidity2)
		case protocol.ObsBattery:
			r.TxBatteryLow = fptr(o.Value)
		}
	}

	return r
}

func fptr(v float64) *float64 {
	return &v
}

// assignIndexed stores a sub-sensor value into its numbered slot
func assignIndexed(sensor int, value float64, slots ...**float64) {
	if sensor >= 1 && sensor <= len(slots) {
		*slots[sensor-1] = fptr(value)
	}
}

// Connect connects to a Meteostick over serial or network
func (s *Station) Connect() {
	if len(s.config.SerialDevice) > 0 {
		s.connectToSerialStation()
	} else if (len(s.config.Hostname) > 0) && (len(s.config.Port) > 0) {
		s.connectToNetworkStation()
	} else {
		s.logger.Fatal("must provide either network hostname+port or serial device in config")
	}
}

// connectToSerialStation connects to a Meteostick over a serial port
func (s *Station) connectToSerialStation() {
	var err error

	s.connectingMu.RLock()
	if s.connecting {
		s.connectingMu.RUnlock()
		s.logger.Info("skipping reconnect since a connection attempt is already in progress")
		return
	}

	// A connection attempt is not in progress so we'll start a new one
	s.connectingMu.RUnlock()
	s.connectingMu.Lock()
	s.connecting = true
	s.connectingMu.Unlock()

	s.logger.Infof("connecting to %v ...", s.config.SerialDevice)

	for {
		sc := &serial.Config{Name: s.config.SerialDevice, Baud: s.config.Baud}
		s.logger.Debugf("attempting to open serial port %s at %d baud", s.config.SerialDevice, s.config.Baud)
		s.rwc, err = serial.OpenPort(sc)

		if err != nil {
			s.logger.Errorf("failed to open serial port %s: %v", s.config.SerialDevice, err)
			s.logger.Error("sleeping 30 seconds and trying again")

			// Use a select to respect cancellation during sleep
			select {
			case <-s.ctx.Done():
				s.logger.Info("cancellation request received during retry wait")
				s.connectingMu.Lock()
				s.connecting = false
				s.connectingMu.Unlock()
				return
			case <-time.After(30 * time.Second):
				// Continue to next iteration
			}
		} else {
			// We're connected now so we set connected to true and connecting to false
			s.connectedMu.Lock()
			defer s.connectedMu.Unlock()
			s.connected = true
			s.connectingMu.Lock()
			defer s.connectingMu.Unlock()
			s.connecting = false

			return
		}
	}
}

// connectToNetworkStation connects to a Meteostick over TCP/IP through a
// serial-to-network bridge
func (s *Station) connectToNetworkStation() {
	var err error

	console := fmt.Sprint(s.config.Hostname, ":", s.config.Port)

	s.connectingMu.RLock()
	if s.connecting {
		s.connectingMu.RUnlock()
		log.Info("skipping reconnect since a connection attempt is already in progress")
		return
	}

	// A connection attempt is not in progress so we'll start a new one
	s.connectingMu.RUnlock()
	s.connectingMu.Lock()
	s.connecting = true
	s.connectingMu.Unlock()

	log.Info("connecting to:", console)

	for {
		s.netConn, err = net.DialTimeout("tcp", console, 10*time.Second)

		if err != nil {
			log.Errorf("could not connect to %v: %v", console, err)
			log.Error("sleeping 5 seconds and trying again.")

			// Use a select to respect cancellation during sleep
			select {
			case <-s.ctx.Done():
				s.logger.Info("cancellation request received during retry wait")
				s.connectingMu.Lock()
				s.connecting = false
				s.connectingMu.Unlock()
				return
			case <-time.After(5 * time.Second):
				// Continue to next iteration
			}
		} else {
			// Set read deadline after successful connection
			s.netConn.SetReadDeadline(time.Now().Add(time.Second * 30))

			// We're connected now so we set connected to true and connecting to false
			s.connectedMu.Lock()
			defer s.connectedMu.Unlock()
			s.connected = true
			s.connectingMu.Lock()
			defer s.connectingMu.Unlock()
			s.connecting = false

			// Create an io.ReadWriteCloser for our connection
			s.rwc = io.ReadWriteCloser(s.netConn)
			return
		}
	}
}
