package meteostick

import (
	"testing"

	"github.com/chrissnell/meteostick/pkg/config"
	"github.com/chrissnell/meteostick/pkg/protocol"
)

func TestBuildProtocolConfig(t *testing.T) {
	device := config.DeviceData{
		Name:            "backyard",
		Mode:            "raw",
		ISSChannel:      1,
		LeafSoilChannel: 2,
		RainBucketType:  1,
		WindFormula:     "vue",
		SupercapDivisor: 100,
	}

	cfg, err := buildProtocolConfig(device)
	if err != nil {
		t.Fatalf("buildProtocolConfig: %v", err)
	}
	if cfg.Mode != protocol.ModeRaw {
		t.Errorf("mode = %v, want raw", cfg.Mode)
	}
	if cfg.WindFormula != protocol.WindVantageVue {
		t.Errorf("wind formula = %v, want vue", cfg.WindFormula)
	}
	if cfg.LeafSoilChannel != 2 || cfg.RainBucketType != 1 || cfg.SupercapDivisor != 100 {
		t.Errorf("unexpected translation: %+v", cfg)
	}
}

func TestBuildProtocolConfigDefaults(t *testing.T) {
	cfg, err := buildProtocolConfig(config.DeviceData{Name: "plain"})
	if err != nil {
		t.Fatalf("buildProtocolConfig: %v", err)
	}
	if cfg.Mode != protocol.ModeMachine {
		t.Errorf("mode = %v, want machine by default", cfg.Mode)
	}
	if cfg.WindFormula != protocol.WindVantagePro {
		t.Errorf("wind formula = %v, want pro by default", cfg.WindFormula)
	}
}

func TestBuildProtocolConfigRejectsBadValues(t *testing.T) {
	if _, err := buildProtocolConfig(config.DeviceData{Mode: "binary"}); err == nil {
		t.Error("unknown mode accepted")
	}
	if _, err := buildProtocolConfig(config.DeviceData{WindFormula: "guess"}); err == nil {
		t.Error("unknown wind formula accepted")
	}
	if _, err := buildProtocolConfig(config.DeviceData{ISSChannel: 12}); err == nil {
		t.Error("out-of-range channel accepted")
	}
}

func TestFrequencyCommand(t *testing.T) {
	tests := []struct {
		band string
		cmd  string
	}{
		{"", "m0"},
		{"US", "m0"},
		{"eu", "m1"},
		{"AU", "m2"},
		{"NZ", "m3"},
	}
	for _, tt := range tests {
		cmd, err := frequencyCommand(tt.band)
		if err != nil {
			t.Errorf("frequencyCommand(%q): %v", tt.band, err)
			continue
		}
		if cmd != tt.cmd {
			t.Errorf("frequencyCommand(%q) = %q, want %q", tt.band, cmd, tt.cmd)
		}
	}

	if _, err := frequencyCommand("JP"); err == nil {
		t.Error("unknown band accepted")
	}
}

func deref(t *testing.T, name string, p *float64) float64 {
	t.Helper()
	if p == nil {
		t.Fatalf("%s not set", name)
	}
	return *p
}

func TestMapReading(t *testing.T) {
	s := &Station{config: config.DeviceData{Name: "backyard"}}

	p := &protocol.Reading{Channel: 1, RFSignal: -68, RFMissed: 2}
	p.Observations = []protocol.Observation{
		{Kind: protocol.ObsWindSpeed, Value: 4.5},
		{Kind: protocol.ObsWindDir, Value: 270},
		{Kind: protocol.ObsOutTemp, Value: 21.5},
		{Kind: protocol.ObsRain, Value: 0.4},
		{Kind: protocol.ObsRainCount, Value: 37},
		{Kind: protocol.ObsSoilMoisture, Sensor: 3, Value: 68},
		{Kind: protocol.ObsExtraHumid, Sensor: 2, Value: 55},
		{Kind: protocol.ObsBattery, Value: 1},
	}

	r := s.mapReading(p)
	if r.StationName != "backyard" || r.StationType != "meteostick" {
		t.Errorf("identity = %s/%s", r.StationName, r.StationType)
	}
	if r.Channel != 1 || r.RFSignal != -68 || r.RFMissed != 2 {
		t.Errorf("link fields = %d/%v/%d", r.Channel, r.RFSignal, r.RFMissed)
	}
	if deref(t, "wind_speed", r.WindSpeed) != 4.5 || deref(t, "wind_dir", r.WindDir) != 270 {
		t.Errorf("wind fields = %v/%v", *r.WindSpeed, *r.WindDir)
	}
	if deref(t, "out_temp", r.OutTemp) != 21.5 {
		t.Errorf("out_temp = %v, want 21.5", *r.OutTemp)
	}
	if deref(t, "rain_incremental", r.RainIncremental) != 0.4 {
		t.Errorf("rain_incremental = %v, want 0.4", *r.RainIncremental)
	}
	if deref(t, "soil_moisture_3", r.SoilMoisture3) != 68 {
		t.Errorf("soil_moisture_3 = %v, want 68", *r.SoilMoisture3)
	}
	if deref(t, "extra_humidity_2", r.ExtraHumidity2) != 55 {
		t.Errorf("extra_humidity_2 = %v, want 55", *r.ExtraHumidity2)
	}
	if deref(t, "tx_battery_low", r.TxBatteryLow) != 1 {
		t.Errorf("tx_battery_low = %v, want 1", *r.TxBatteryLow)
	}
	if r.OutHumidity != nil {
		t.Errorf("absent out_humidity mapped to %v", *r.OutHumidity)
	}
	if r.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestMapReadingPreservesZeroValues(t *testing.T) {
	// A frame can legitimately carry zero (0C outside, calm wind); the
	// mapped reading must keep it distinct from "metric not present".
	s := &Station{config: config.DeviceData{Name: "backyard"}}

	p := &protocol.Reading{Channel: 1, RFSignal: -70}
	p.Observations = []protocol.Observation{
		{Kind: protocol.ObsOutTemp, Value: 0},
		{Kind: protocol.ObsBattery, Value: 0},
	}

	r := s.mapReading(p)
	if got := deref(t, "out_temp", r.OutTemp); got != 0 {
		t.Errorf("out_temp = %v, want present 0", got)
	}
	if got := deref(t, "tx_battery_low", r.TxBatteryLow); got != 0 {
		t.Errorf("tx_battery_low = %v, want present 0", got)
	}
	if r.OutHumidity != nil || r.WindSpeed != nil {
		t.Error("absent metrics should stay nil")
	}
}

func TestAssignIndexedIgnoresOutOfRange(t *testing.T) {
	var a, b *float64
	assignIndexed(0, 9, &a, &b)
	assignIndexed(3, 9, &a, &b)
	if a != nil || b != nil {
		t.Errorf("out-of-range sensor wrote a slot: %v/%v", a, b)
	}
	assignIndexed(2, 9, &a, &b)
	if b == nil || *b != 9 {
		t.Errorf("slot 2 = %v, want 9", b)
	}
}
