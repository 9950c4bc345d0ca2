package application

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"weback-home/internal/domain"
)

// Poller refreshes every known device on a fixed interval and hands the
// fresh state to each sink. Devices are refreshed concurrently so a slow
// device does not hold back the others.
type Poller struct {
	api      DeviceAPI
	registry DeviceRegistry
	sinks    []StateSink
	notifier Notifier
	interval time.Duration
	logger   *slog.Logger
}

func NewPoller(
	api DeviceAPI,
	registry DeviceRegistry,
	sinks []StateSink,
	notifier Notifier,
	interval time.Duration,
	logger *slog.Logger,
) *Poller {
	if notifier == nil {
		notifier = &NoopNotifier{}
	}
	return &Poller{
		api:      api,
		registry: registry,
		sinks:    sinks,
		notifier: notifier,
		interval: interval,
		logger:   logger,
	}
}

// CycleReport summarizes one poll cycle.
type CycleReport struct {
	ID       string
	Devices  int
	Failed   int
	Duration time.Duration
}

// Run logs in, syncs the registry and polls until ctx is done. A failed
// first login is returned to the caller.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.api.Login(ctx); err != nil {
		p.notify(ctx, fmt.Sprintf("WeBack login failed: %v", err))
		return fmt.Errorf("initial login: %w", err)
	}

	p.logger.Info("syncing device registry")
	if err := p.registry.Sync(ctx); err != nil {
		return fmt.Errorf("initial registry sync: %w", err)
	}

	p.logger.Debug("device registry synced", "devices", p.registry.Summary())
	p.logger.Info("poller ready", "interval", p.interval, "sinks", len(p.sinks))
	p.PollOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

func (p *Poller) PollOnce(ctx context.Context) CycleReport {
	start := time.Now()
	report := CycleReport{ID: newCycleID(start)}
	logger := p.logger.With("cycle", report.ID)

	devices := p.registry.Devices()
	report.Devices = len(devices)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for _, d := range devices {
		wg.Add(1)
		go func(d domain.Device) {
			defer wg.Done()
			if err := p.pollDevice(ctx, d, logger); err != nil {
				pollTotal.WithLabelValues("error").Inc()
				logger.Error("device poll failed", "device", d.Name, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			pollTotal.WithLabelValues("ok").Inc()
		}(d)
	}
	wg.Wait()

	report.Failed = failed
	report.Duration = time.Since(start)
	lastCycle.SetToCurrentTime()

	logger.Debug("poll cycle complete",
		"devices", report.Devices,
		"failed", report.Failed,
		"duration", report.Duration,
	)

	if report.Devices > 0 && report.Failed == report.Devices {
		p.notify(ctx, fmt.Sprintf("WeBack: all %d devices failed to refresh", report.Devices))
	}

	return report
}

func (p *Poller) pollDevice(ctx context.Context, d domain.Device, logger *slog.Logger) error {
	info, err := p.api.DeviceInfo(ctx, d.SubType, d.Name)
	if err != nil {
		return fmt.Errorf("fetching device info: %w", err)
	}

	updated, ok := p.registry.UpdateStatus(d.Name, domain.StatusFromInfo(info))
	if !ok {
		return fmt.Errorf("device %s no longer registered", d.Name)
	}

	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, updated); err != nil {
			sinkFailures.WithLabelValues(sink.Name()).Inc()
			logger.Warn("publishing state failed", "device", d.Name, "sink", sink.Name(), "error", err)
		}
	}

	return nil
}

func (p *Poller) notify(ctx context.Context, message string) {
	if err := p.notifier.Notify(ctx, message); err != nil {
		p.logger.Warn("notification failed", "error", err)
	}
}

func newCycleID(now time.Time) string {
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return ulid.Make().String()
	}
	return id.String()
}
