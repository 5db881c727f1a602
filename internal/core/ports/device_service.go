package ports

import (
	"context"

	"github.com/screentimejourney/dashboard-service/internal/core/domain"
)

// DirectUnlockInput is a dashboard unlock without the surrender ritual. The
// caller must have collected interactive confirmation first.
type DirectUnlockInput struct {
	SubscriberID    string
	DeviceID        string
	Confirmed       bool
	DurationMinutes int
}

// DirectUnlockResult reports the unlock plus the re-fetched authoritative
// state. RelocksAt is the local countdown deadline; the backend remains the
// source of truth for enforcement.
type DirectUnlockResult struct {
	Devices   []domain.Device
	Activity  []ActivityEntry
	RelocksAt int64
}

// DeviceService exposes the enrolled-device surface of the dashboard.
type DeviceService interface {
	// List returns the authoritative device list from the backend.
	List(ctx context.Context, subscriberID string) ([]domain.Device, error)
	DirectUnlock(ctx context.Context, input DirectUnlockInput) (*DirectUnlockResult, error)
	ActivityLog(ctx context.Context, subscriberID string) ([]ActivityEntry, error)
}
