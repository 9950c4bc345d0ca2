package weback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"weback-home/internal/domain"
)

type DeviceLister interface {
	ListDevices(ctx context.Context) ([]domain.Device, error)
}

// Registry holds the last device list, indexed by thing name.
type Registry struct {
	client DeviceLister
	logger *slog.Logger

	mu      sync.RWMutex
	devices []domain.Device
	index   map[string]int
}

func NewRegistry(client DeviceLister, logger *slog.Logger) *Registry {
	return &Registry{
		client: client,
		logger: logger,
		index:  make(map[string]int),
	}
}

func (r *Registry) Sync(ctx context.Context) error {
	r.logger.Info("syncing devices from WeBack")

	devices, err := r.client.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("fetching devices: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices = devices
	r.index = make(map[string]int, len(devices))
	for i := range r.devices {
		r.index[r.devices[i].Name] = i
	}
	registryDevices.Set(float64(len(r.devices)))

	r.logger.Info("sync complete", "devices", len(r.devices))

	return nil
}

func (r *Registry) Devices() []domain.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.Device, len(r.devices))
	copy(result, r.devices)
	return result
}

// Find looks a device up by thing name, then by nickname ignoring case.
func (r *Registry) Find(name string) (domain.Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i, ok := r.index[name]; ok {
		return r.devices[i], true
	}

	key := strings.ToLower(strings.TrimSpace(name))
	for _, d := range r.devices {
		if strings.ToLower(d.Nickname) == key {
			return d, true
		}
	}

	return domain.Device{}, false
}

// UpdateStatus swaps in a fresh status map for a known device.
func (r *Registry) UpdateStatus(thingName string, status map[string]any) (domain.Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[thingName]
	if !ok {
		return domain.Device{}, false
	}
	r.devices[i].Status = status
	return r.devices[i], true
}

func (r *Registry) Summary() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sb strings.Builder
	for _, d := range r.devices {
		sb.WriteString(fmt.Sprintf("- %s (%s, sub_type: %s, thing: %s)\n", d.DisplayName(), d.Type(), d.SubType, d.Name))
	}
	return sb.String()
}

func (r *Registry) StartPeriodicSync(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.Sync(ctx); err != nil {
					r.logger.Error("periodic sync failed", "error", err)
				}
			}
		}
	}()
}
