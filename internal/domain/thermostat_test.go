package domain_test

import (
	"testing"

	"weback-home/internal/domain"
)

func TestThermostatFromDevice(t *testing.T) {
	dev := domain.Device{
		Name:     "thing-1",
		Nickname: "Bathroom",
		SubType:  domain.SubTypeCK002,
		Status: map[string]any{
			"working_status": "on",
			"air_tem":        float64(215),
			"set_tem":        float64(44),
		},
	}

	th, err := domain.ThermostatFromDevice(dev)
	if err != nil {
		t.Fatalf("ThermostatFromDevice error: %v", err)
	}
	if th.CurrentTemperature != 21.5 {
		t.Errorf("current temperature: got %v, want 21.5", th.CurrentTemperature)
	}
	if th.TargetTemperature != 22 {
		t.Errorf("target temperature: got %v, want 22", th.TargetTemperature)
	}
	if th.Action != domain.HVACActionHeating {
		t.Errorf("action: got %s, want heating", th.Action)
	}
	if th.Mode != domain.HVACModeHeat {
		t.Errorf("mode: got %s, want heat", th.Mode)
	}
	if th.Nickname != "Bathroom" {
		t.Errorf("nickname: got %s, want Bathroom", th.Nickname)
	}
}

func TestThermostatFromDevice_Idle(t *testing.T) {
	dev := domain.Device{
		Name:    "thing-2",
		SubType: domain.SubTypeCK002,
		Status:  map[string]any{"working_status": "off", "air_tem": "180", "set_tem": 36},
	}

	th, err := domain.ThermostatFromDevice(dev)
	if err != nil {
		t.Fatalf("ThermostatFromDevice error: %v", err)
	}
	if th.Action != domain.HVACActionIdle {
		t.Errorf("action: got %s, want idle", th.Action)
	}
	if th.CurrentTemperature != 18 || th.TargetTemperature != 18 {
		t.Errorf("temperatures: got %v/%v, want 18/18", th.CurrentTemperature, th.TargetTemperature)
	}
	if th.Nickname != "thing-2" {
		t.Errorf("nickname fallback: got %s, want thing-2", th.Nickname)
	}
}

func TestThermostatFromDevice_Errors(t *testing.T) {
	cases := []domain.Device{
		{Name: "vac", SubType: "robot-x", Status: map[string]any{}},
		{Name: "nostatus", SubType: domain.SubTypeCK002},
		{Name: "missing", SubType: domain.SubTypeCK002, Status: map[string]any{"air_tem": 1.0}},
	}
	for _, dev := range cases {
		if _, err := domain.ThermostatFromDevice(dev); err == nil {
			t.Errorf("%s: expected error", dev.Name)
		}
	}
}

func TestStatusFromInfo(t *testing.T) {
	nested := map[string]any{"thing_status": map[string]any{"air_tem": 1.0}, "thing_name": "x"}
	if got := domain.StatusFromInfo(nested); got["air_tem"] != 1.0 {
		t.Errorf("nested status: got %v", got)
	}

	flat := map[string]any{"air_tem": 2.0}
	if got := domain.StatusFromInfo(flat); got["air_tem"] != 2.0 {
		t.Errorf("flat status: got %v", got)
	}

	if domain.StatusFromInfo(nil) != nil {
		t.Error("nil info should give nil status")
	}
}
