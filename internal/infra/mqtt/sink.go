package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"weback-home/internal/domain"
)

type retainedPublisher interface {
	PublishRetained(topic string, payload []byte) error
}

// Sink publishes device state as retained JSON and announces thermostats
// through Home Assistant MQTT discovery, once per device per process.
type Sink struct {
	pub    retainedPublisher
	topics Topics
	logger *slog.Logger

	mu        sync.Mutex
	announced map[string]bool
}

func NewSink(pub retainedPublisher, topics Topics, logger *slog.Logger) *Sink {
	return &Sink{
		pub:       pub,
		topics:    topics,
		logger:    logger,
		announced: make(map[string]bool),
	}
}

func (s *Sink) Name() string {
	return "mqtt"
}

func (s *Sink) Publish(_ context.Context, d domain.Device) error {
	state := StatePayload{
		ThingName: d.Name,
		Nickname:  d.DisplayName(),
		SubType:   d.SubType,
		Type:      string(d.Type()),
		Status:    d.Status,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	if d.Type() == domain.DeviceTypeThermostat {
		t, err := domain.ThermostatFromDevice(d)
		if err != nil {
			s.logger.Error("unreadable thermostat status", "device", d.Name, "error", err)
		} else {
			state.Thermostat = &ThermostatState{
				Mode:               string(t.Mode),
				Action:             string(t.Action),
				CurrentTemperature: t.CurrentTemperature,
				TargetTemperature:  t.TargetTemperature,
			}
			if err := s.announce(d); err != nil {
				return err
			}
		}
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	return s.pub.PublishRetained(s.topics.State(d.Name), payload)
}

func (s *Sink) announce(d domain.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.announced[d.Name] {
		return nil
	}

	payload, err := json.Marshal(ClimateDiscovery(d, s.topics))
	if err != nil {
		return fmt.Errorf("encoding discovery: %w", err)
	}

	if err := s.pub.PublishRetained(s.topics.ClimateConfig(d.ObjectID()), payload); err != nil {
		return fmt.Errorf("publishing discovery: %w", err)
	}

	s.announced[d.Name] = true
	s.logger.Info("announced thermostat", "device", d.Name)
	return nil
}
