package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func f64(v float64) *float64 { return &v }

func TestReadingJSONKeepsZeroMeasurements(t *testing.T) {
	r := Reading{
		StationName: "backyard",
		Channel:     1,
		OutTemp:     f64(0),
		OutHumidity: f64(34),
	}

	raw, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(raw)
	if !strings.Contains(body, `"out_temp":0`) {
		t.Errorf("zero out_temp dropped from payload: %s", body)
	}
	if !strings.Contains(body, `"out_humidity":34`) {
		t.Errorf("out_humidity missing from payload: %s", body)
	}
	if strings.Contains(body, "wind_speed") {
		t.Errorf("absent wind_speed serialized: %s", body)
	}

	var back Reading
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.OutTemp == nil || *back.OutTemp != 0 {
		t.Errorf("round-tripped out_temp = %v, want present 0", back.OutTemp)
	}
	if back.WindSpeed != nil {
		t.Errorf("round-tripped wind_speed = %v, want nil", *back.WindSpeed)
	}
}
