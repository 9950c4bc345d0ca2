package influx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"weback-home/config"
	"weback-home/internal/domain"
)

const (
	defaultConnectTimeout = 10 * time.Second
	millisecondsPerSecond = 1000
	measurement           = "weback_thermostat"
)

var (
	ErrDisabled         = errors.New("influxdb: disabled in configuration")
	ErrConnectionFailed = errors.New("influxdb: connection failed")
)

type pointWriter interface {
	WritePoint(point *write.Point)
}

// Writer records thermostat readings. Writes are batched and
// non-blocking; async failures are logged.
type Writer struct {
	client influxdb2.Client
	api    pointWriter
	flush  func()
	logger *slog.Logger
}

func Connect(cfg config.InfluxDBConfig, logger *slog.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 10
	}

	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flushInterval)*millisecondsPerSecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	go logWriteErrors(writeAPI.Errors(), logger)

	return &Writer{
		client: client,
		api:    writeAPI,
		flush:  writeAPI.Flush,
		logger: logger,
	}, nil
}

func newWriter(api pointWriter, logger *slog.Logger) *Writer {
	return &Writer{api: api, flush: func() {}, logger: logger}
}

func (w *Writer) Name() string {
	return "influxdb"
}

// Publish writes one point per thermostat. Other device types are skipped.
func (w *Writer) Publish(_ context.Context, d domain.Device) error {
	if d.Type() != domain.DeviceTypeThermostat {
		return nil
	}

	t, err := domain.ThermostatFromDevice(d)
	if err != nil {
		return fmt.Errorf("reading thermostat: %w", err)
	}

	w.api.WritePoint(thermostatPoint(t, time.Now()))
	return nil
}

func (w *Writer) Close() error {
	if w.client == nil {
		return nil
	}
	w.flush()
	w.client.Close()
	return nil
}

func thermostatPoint(t domain.Thermostat, at time.Time) *write.Point {
	heating := 0
	if t.Action == domain.HVACActionHeating {
		heating = 1
	}

	return write.NewPoint(
		measurement,
		map[string]string{
			"thing_name": t.Name,
			"nickname":   t.Nickname,
		},
		map[string]interface{}{
			"current_temperature": t.CurrentTemperature,
			"target_temperature":  t.TargetTemperature,
			"heating":             heating,
		},
		at,
	)
}

func logWriteErrors(errorsCh <-chan error, logger *slog.Logger) {
	for err := range errorsCh {
		logger.Warn("influxdb write failed", "error", err)
	}
}
