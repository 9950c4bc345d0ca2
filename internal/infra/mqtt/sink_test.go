package mqtt_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"weback-home/internal/domain"
	"weback-home/internal/infra/mqtt"
)

type recordedMessage struct {
	topic   string
	payload []byte
}

type fakePublisher struct {
	messages []recordedMessage
	err      error
}

func (f *fakePublisher) PublishRetained(topic string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, recordedMessage{topic: topic, payload: payload})
	return nil
}

func testTopics() mqtt.Topics {
	return mqtt.Topics{Prefix: "weback", DiscoveryPrefix: "homeassistant"}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func thermostat() domain.Device {
	return domain.Device{
		Name:     "ck-002s-AA11",
		Nickname: "Living Room",
		SubType:  "ck-002s",
		Status:   map[string]any{"air_tem": 215.0, "set_tem": 44.0, "working_status": "on"},
	}
}

func TestTopics(t *testing.T) {
	topics := testTopics()

	if got := topics.State("ck-1"); got != "weback/ck-1/state" {
		t.Errorf("State: got %s", got)
	}
	if got := topics.Availability(); got != "weback/status" {
		t.Errorf("Availability: got %s", got)
	}
	if got := topics.ClimateConfig("weback_ck_1"); got != "homeassistant/climate/weback_ck_1/config" {
		t.Errorf("ClimateConfig: got %s", got)
	}
}

func TestSink_PublishThermostat(t *testing.T) {
	pub := &fakePublisher{}
	sink := mqtt.NewSink(pub, testTopics(), testLogger())

	if err := sink.Publish(context.Background(), thermostat()); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if err := sink.Publish(context.Background(), thermostat()); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	if len(pub.messages) != 3 {
		t.Fatalf("messages: got %d, want 3 (one discovery, two states)", len(pub.messages))
	}

	discovery := pub.messages[0]
	if discovery.topic != "homeassistant/climate/weback_ck_002s_aa11/config" {
		t.Errorf("discovery topic: got %s", discovery.topic)
	}
	var cfg mqtt.ClimateConfig
	if err := json.Unmarshal(discovery.payload, &cfg); err != nil {
		t.Fatalf("decoding discovery: %v", err)
	}
	if cfg.Name != "Living Room" || cfg.TemperatureUnit != "C" || cfg.Device.Manufacturer != "WeBack" {
		t.Errorf("discovery: got %+v", cfg)
	}
	if cfg.CurrentTemperatureTopic != "weback/ck-002s-AA11/state" {
		t.Errorf("current temperature topic: got %s", cfg.CurrentTemperatureTopic)
	}

	state := pub.messages[1]
	if state.topic != "weback/ck-002s-AA11/state" {
		t.Errorf("state topic: got %s", state.topic)
	}
	var payload mqtt.StatePayload
	if err := json.Unmarshal(state.payload, &payload); err != nil {
		t.Fatalf("decoding state: %v", err)
	}
	if payload.Thermostat == nil {
		t.Fatal("thermostat block missing")
	}
	if payload.Thermostat.CurrentTemperature != 21.5 || payload.Thermostat.TargetTemperature != 22 {
		t.Errorf("temperatures: got %+v", payload.Thermostat)
	}
	if payload.Thermostat.Action != "heating" || payload.Thermostat.Mode != "heat" {
		t.Errorf("mode/action: got %+v", payload.Thermostat)
	}
}

func TestSink_PublishGenericDevice(t *testing.T) {
	pub := &fakePublisher{}
	sink := mqtt.NewSink(pub, testTopics(), testLogger())

	vacuum := domain.Device{Name: "robot-1", SubType: "robot-x", Status: map[string]any{"working_status": "Charging"}}
	if err := sink.Publish(context.Background(), vacuum); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	if len(pub.messages) != 1 {
		t.Fatalf("messages: got %d, want 1", len(pub.messages))
	}
	var payload mqtt.StatePayload
	if err := json.Unmarshal(pub.messages[0].payload, &payload); err != nil {
		t.Fatalf("decoding state: %v", err)
	}
	if payload.Thermostat != nil {
		t.Error("vacuum should not carry a thermostat block")
	}
	if payload.Type != "vacuum" || payload.Status["working_status"] != "Charging" {
		t.Errorf("payload: got %+v", payload)
	}
}

func TestSink_UnreadableThermostatStillPublishesState(t *testing.T) {
	pub := &fakePublisher{}
	sink := mqtt.NewSink(pub, testTopics(), testLogger())

	d := thermostat()
	d.Status = map[string]any{"working_status": "on"}
	if err := sink.Publish(context.Background(), d); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	if len(pub.messages) != 1 || pub.messages[0].topic != "weback/ck-002s-AA11/state" {
		t.Errorf("messages: got %+v", pub.messages)
	}
}

func TestSink_PublishError(t *testing.T) {
	pub := &fakePublisher{err: mqtt.ErrNotConnected}
	sink := mqtt.NewSink(pub, testTopics(), testLogger())

	err := sink.Publish(context.Background(), thermostat())
	if !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("error: got %v, want ErrNotConnected", err)
	}
}
