package status_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"weback-home/internal/domain"
	"weback-home/internal/infra/status"
	"weback-home/internal/infra/weback"
)

type stubDevices struct {
	devices []domain.Device
}

func (s *stubDevices) Devices() []domain.Device { return s.devices }

func (s *stubDevices) Find(name string) (domain.Device, bool) {
	for _, d := range s.devices {
		if d.Name == name || strings.EqualFold(d.Nickname, name) {
			return d, true
		}
	}
	return domain.Device{}, false
}

type stubSessions struct {
	session weback.Session
	ok      bool
}

func (s *stubSessions) Session() (weback.Session, bool) { return s.session, s.ok }

func newServer(devices []domain.Device, sessions *stubSessions) *status.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := status.MetricsRegistry(weback.MetricsCollectors())
	return status.NewServer(":0", &stubDevices{devices: devices}, sessions, registry, logger)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "192.0.2.10:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_HealthWithSession(t *testing.T) {
	sessions := &stubSessions{
		session: weback.Session{Token: "jwt", Expiry: time.Now().Add(2 * time.Hour)},
		ok:      true,
	}
	srv := newServer([]domain.Device{{Name: "a"}, {Name: "b"}}, sessions)

	rec := get(t, srv.Handler(), "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code: got %d, want %d", rec.Code, http.StatusOK)
	}

	var body struct {
		Status  string `json:"status"`
		Session bool   `json:"session"`
		Devices int    `json:"devices"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Status != "ok" || !body.Session || body.Devices != 2 {
		t.Errorf("unexpected health: %+v", body)
	}
}

func TestServer_HealthWithoutSession(t *testing.T) {
	srv := newServer(nil, &stubSessions{})

	rec := get(t, srv.Handler(), "/health")
	if !strings.Contains(rec.Body.String(), `"status":"degraded"`) {
		t.Errorf("body: got %s, want degraded status", rec.Body.String())
	}
}

func TestServer_Devices(t *testing.T) {
	devices := []domain.Device{{
		Name:     "thermo-1",
		Nickname: "Living room",
		SubType:  domain.SubTypeCK002,
		Status:   map[string]any{"working_status": "on"},
	}}
	srv := newServer(devices, &stubSessions{})

	rec := get(t, srv.Handler(), "/devices")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code: got %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: got %q", ct)
	}

	var body []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(body) != 1 {
		t.Fatalf("devices: got %d, want 1", len(body))
	}
	if body[0]["thing_name"] != "thermo-1" || body[0]["type"] != string(domain.DeviceTypeThermostat) {
		t.Errorf("unexpected device: %v", body[0])
	}
}

func TestServer_DevicesRateLimited(t *testing.T) {
	srv := newServer(nil, &stubSessions{})
	h := srv.Handler()

	for i := 0; i < 30; i++ {
		if rec := get(t, h, "/devices"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: got %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}
	if rec := get(t, h, "/devices"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("status code: got %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
}

func TestServer_Metrics(t *testing.T) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "weback_test_events_total",
		Help: "Test counter.",
	})
	counter.Inc()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := status.MetricsRegistry([]prometheus.Collector{counter})
	srv := status.NewServer(":0", &stubDevices{}, &stubSessions{}, registry, logger)

	rec := get(t, srv.Handler(), "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code: got %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "weback_test_events_total 1") {
		t.Errorf("metrics output missing counter:\n%s", rec.Body.String())
	}
}

func TestServer_StartStop(t *testing.T) {
	srv := newServer(nil, &stubSessions{})

	if err := srv.Start(t.Context()); err != nil {
		t.Fatalf("starting server: %v", err)
	}
	if err := srv.Stop(); err != nil {
		t.Errorf("stopping server: %v", err)
	}
	if err := srv.Stop(); err != nil {
		t.Errorf("second stop: %v", err)
	}
}

func TestServer_DeviceByName(t *testing.T) {
	devices := []domain.Device{{
		Name:     "thermo-1",
		Nickname: "Living room",
		SubType:  domain.SubTypeCK002,
	}}
	srv := newServer(devices, &stubSessions{})

	rec := get(t, srv.Handler(), "/devices/living%20room")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code: got %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["thing_name"] != "thermo-1" {
		t.Errorf("thing_name: got %v, want thermo-1", body["thing_name"])
	}

	if rec := get(t, srv.Handler(), "/devices/kitchen"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown device: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}
