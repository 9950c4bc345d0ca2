package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type HVACMode string

const (
	HVACModeOff  HVACMode = "off"
	HVACModeHeat HVACMode = "heat"
	HVACModeAuto HVACMode = "auto"
)

type HVACAction string

const (
	HVACActionHeating HVACAction = "heating"
	HVACActionIdle    HVACAction = "idle"
)

// Thermostat is the climate view of a CK-002 status payload.
type Thermostat struct {
	Name               string
	Nickname           string
	Mode               HVACMode
	Action             HVACAction
	CurrentTemperature float64
	TargetTemperature  float64
}

// ThermostatFromDevice decodes a CK-002 status payload. air_tem is reported
// in tenths of a degree and set_tem in half degrees, both Celsius.
func ThermostatFromDevice(d Device) (Thermostat, error) {
	if d.Type() != DeviceTypeThermostat {
		return Thermostat{}, fmt.Errorf("thing %s has unsupported sub_type %q", d.Name, d.SubType)
	}
	if d.Status == nil {
		return Thermostat{}, fmt.Errorf("thing %s has no status", d.Name)
	}

	air, err := numberField(d.Status, "air_tem")
	if err != nil {
		return Thermostat{}, fmt.Errorf("thing %s: %w", d.Name, err)
	}
	set, err := numberField(d.Status, "set_tem")
	if err != nil {
		return Thermostat{}, fmt.Errorf("thing %s: %w", d.Name, err)
	}

	action := HVACActionIdle
	if working, _ := d.Status["working_status"].(string); working == "on" {
		action = HVACActionHeating
	}

	return Thermostat{
		Name:               d.Name,
		Nickname:           d.DisplayName(),
		Mode:               HVACModeHeat,
		Action:             action,
		CurrentTemperature: air / 10,
		TargetTemperature:  set / 2,
	}, nil
}

func numberField(status map[string]any, key string) (float64, error) {
	raw, ok := status[key]
	if !ok {
		return 0, fmt.Errorf("status missing %s", key)
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("status %s: %w", key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("status %s has unexpected type %T", key, raw)
	}
}
