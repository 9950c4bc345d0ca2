package mqtt

import "weback-home/internal/domain"

type StatePayload struct {
	ThingName  string           `json:"thing_name"`
	Nickname   string           `json:"nickname"`
	SubType    string           `json:"sub_type"`
	Type       string           `json:"type"`
	Status     map[string]any   `json:"status"`
	Thermostat *ThermostatState `json:"thermostat,omitempty"`
	UpdatedAt  string           `json:"updated_at"`
}

type ThermostatState struct {
	Mode               string  `json:"mode"`
	Action             string  `json:"action"`
	CurrentTemperature float64 `json:"current_temperature"`
	TargetTemperature  float64 `json:"target_temperature"`
}

// ClimateConfig is a Home Assistant MQTT discovery document for a
// read-only climate entity.
type ClimateConfig struct {
	Name                       string          `json:"name"`
	UniqueID                   string          `json:"unique_id"`
	ObjectID                   string          `json:"object_id"`
	Modes                      []string        `json:"modes"`
	TemperatureUnit            string          `json:"temperature_unit"`
	Precision                  float64         `json:"precision"`
	CurrentTemperatureTopic    string          `json:"current_temperature_topic"`
	CurrentTemperatureTemplate string          `json:"current_temperature_template"`
	TemperatureStateTopic      string          `json:"temperature_state_topic"`
	TemperatureStateTemplate   string          `json:"temperature_state_template"`
	ModeStateTopic             string          `json:"mode_state_topic"`
	ModeStateTemplate          string          `json:"mode_state_template"`
	ActionTopic                string          `json:"action_topic"`
	ActionTemplate             string          `json:"action_template"`
	AvailabilityTopic          string          `json:"availability_topic"`
	Device                     DiscoveryDevice `json:"device"`
}

type DiscoveryDevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
}

func ClimateDiscovery(d domain.Device, topics Topics) ClimateConfig {
	id := d.ObjectID()
	state := topics.State(d.Name)

	return ClimateConfig{
		Name:                       d.DisplayName(),
		UniqueID:                   id,
		ObjectID:                   id,
		Modes:                      []string{string(domain.HVACModeOff), string(domain.HVACModeHeat), string(domain.HVACModeAuto)},
		TemperatureUnit:            "C",
		Precision:                  0.1,
		CurrentTemperatureTopic:    state,
		CurrentTemperatureTemplate: "{{ value_json.thermostat.current_temperature }}",
		TemperatureStateTopic:      state,
		TemperatureStateTemplate:   "{{ value_json.thermostat.target_temperature }}",
		ModeStateTopic:             state,
		ModeStateTemplate:          "{{ value_json.thermostat.mode }}",
		ActionTopic:                state,
		ActionTemplate:             "{{ value_json.thermostat.action }}",
		AvailabilityTopic:          topics.Availability(),
		Device: DiscoveryDevice{
			Identifiers:  []string{id},
			Name:         d.DisplayName(),
			Manufacturer: "WeBack",
			Model:        d.SubType,
		},
	}
}
