package application

import (
	"context"

	"weback-home/internal/domain"
)

type DeviceAPI interface {
	Login(ctx context.Context) error
	DeviceInfo(ctx context.Context, subType, thingName string) (map[string]any, error)
}

type DeviceRegistry interface {
	Sync(ctx context.Context) error
	Devices() []domain.Device
	UpdateStatus(thingName string, status map[string]any) (domain.Device, bool)
	Summary() string
}

// StateSink receives the latest state of a device after every poll.
type StateSink interface {
	Name() string
	Publish(ctx context.Context, device domain.Device) error
}

type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type NoopNotifier struct{}

func (n *NoopNotifier) Notify(_ context.Context, _ string) error {
	return nil
}
