package status

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"weback-home/internal/domain"
	"weback-home/internal/infra/weback"
)

type DeviceSource interface {
	Devices() []domain.Device
	Find(name string) (domain.Device, bool)
}

type SessionSource interface {
	Session() (weback.Session, bool)
}

// Server exposes health, the device list and Prometheus metrics.
type Server struct {
	addr        string
	devices     DeviceSource
	sessions    SessionSource
	logger      *slog.Logger
	mux         *http.ServeMux
	rateLimiter *RateLimiter

	mu      sync.Mutex
	server  *http.Server
	running bool
}

func NewServer(addr string, devices DeviceSource, sessions SessionSource, registry *prometheus.Registry, logger *slog.Logger) *Server {
	s := &Server{
		addr:        addr,
		devices:     devices,
		sessions:    sessions,
		logger:      logger,
		mux:         http.NewServeMux(),
		rateLimiter: NewRateLimiter(30, time.Minute),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /devices", s.rateLimiter.Middleware(s.handleDevices))
	s.mux.HandleFunc("GET /devices/{name}", s.rateLimiter.Middleware(s.handleDevice))
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return s
}

// MetricsRegistry registers every collector group on a fresh registry.
func MetricsRegistry(groups ...[]prometheus.Collector) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	for _, group := range groups {
		for _, collector := range group {
			registry.MustRegister(collector)
		}
	}
	return registry
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info("status server starting", "addr", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("status server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := s.server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}

	s.running = false
	return nil
}

type healthResponse struct {
	Status        string `json:"status"`
	Session       bool   `json:"session"`
	SessionExpiry string `json:"session_expiry,omitempty"`
	Devices       int    `json:"devices"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Devices: len(s.devices.Devices()),
	}

	if session, ok := s.sessions.Session(); ok {
		resp.Session = session.ValidAt(time.Now())
		resp.SessionExpiry = session.Expiry.Format(time.RFC3339)
	}
	if !resp.Session {
		resp.Status = "degraded"
	}

	writeJSON(w, http.StatusOK, resp)
}

type deviceResponse struct {
	ThingName string         `json:"thing_name"`
	Nickname  string         `json:"thing_nickname"`
	SubType   string         `json:"sub_type"`
	Type      string         `json:"type"`
	Status    map[string]any `json:"thing_status"`
}

func (s *Server) handleDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.devices.Devices()
	resp := make([]deviceResponse, 0, len(devices))
	for _, d := range devices {
		resp = append(resp, toDeviceResponse(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDevice looks a device up by thing name or nickname.
func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	d, ok := s.devices.Find(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown device: " + name})
		return
	}
	writeJSON(w, http.StatusOK, toDeviceResponse(d))
}

func toDeviceResponse(d domain.Device) deviceResponse {
	return deviceResponse{
		ThingName: d.Name,
		Nickname:  d.Nickname,
		SubType:   d.SubType,
		Type:      string(d.Type()),
		Status:    d.Status,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
