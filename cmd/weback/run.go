package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"weback-home/config"
	"weback-home/internal/application"
	"weback-home/internal/infra/homeassistant"
	"weback-home/internal/infra/influx"
	"weback-home/internal/infra/mqtt"
	"weback-home/internal/infra/pushover"
	"weback-home/internal/infra/status"
	"weback-home/internal/infra/weback"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll every device and publish its state until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, logger)
		},
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	client, err := newWeBackClient(cfg, logger)
	if err != nil {
		return err
	}
	registry := weback.NewRegistry(client, logger)

	sinks, closeSinks, err := buildSinks(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSinks()

	var notifier application.Notifier = &application.NoopNotifier{}
	if cfg.Pushover.Enabled {
		notifier = pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey, logger)
	}

	if cfg.Status.Enabled {
		metrics := status.MetricsRegistry(
			weback.MetricsCollectors(),
			application.MetricsCollectors(),
			[]prometheus.Collector{
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			},
		)
		server := status.NewServer(cfg.Status.Addr, registry, client, metrics, logger)
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting status server: %w", err)
		}
		defer server.Stop()
	}

	if every := cfg.WeBack.SyncEvery(); every > 0 {
		registry.StartPeriodicSync(ctx, every)
	}

	poller := application.NewPoller(client, registry, sinks, notifier, cfg.WeBack.PollEvery(), logger)

	logger.Info("starting weback bridge",
		"poll_interval", cfg.WeBack.PollEvery(),
		"sinks", len(sinks),
	)

	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutting down")
	return nil
}

// buildSinks connects every enabled sink. The returned func closes them.
func buildSinks(cfg *config.Config, logger *slog.Logger) ([]application.StateSink, func(), error) {
	var (
		sinks   []application.StateSink
		closers []func() error
	)
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("closing sink", "error", err)
			}
		}
	}

	if cfg.MQTT.Enabled {
		client, err := mqtt.Connect(cfg.MQTT, logger)
		if err != nil {
			return nil, closeAll, fmt.Errorf("connecting mqtt: %w", err)
		}
		closers = append(closers, client.Close)
		sinks = append(sinks, mqtt.NewSink(client, client.Topics(), logger))
	}

	if cfg.HomeAssistant.Enabled {
		sinks = append(sinks, homeassistant.NewClient(cfg.HomeAssistant.URL, cfg.HomeAssistant.Token, logger))
	}

	if cfg.InfluxDB.Enabled {
		writer, err := influx.Connect(cfg.InfluxDB, logger)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("connecting influxdb: %w", err)
		}
		closers = append(closers, writer.Close)
		sinks = append(sinks, writer)
	}

	if len(sinks) == 0 {
		logger.Warn("no sinks enabled, device state is only logged")
	}
	return sinks, closeAll, nil
}
