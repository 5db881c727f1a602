package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/screentimejourney/dashboard-service/internal/core/domain"
	"github.com/screentimejourney/dashboard-service/internal/core/ports"
)

// defaultUnlockMinutes is the fixed duration for a direct dashboard unlock.
const defaultUnlockMinutes = 15

// RelockScheduler schedules the local-only flip back to locked after a direct
// unlock's duration elapses. The backend stays the source of truth for actual
// enforcement; this is only the dashboard countdown.
type RelockScheduler interface {
	Schedule(subscriberID, deviceID string, after time.Duration)
}

// DeviceService exposes the enrolled-device surface: authoritative lists from
// the backend with a transient unlock overlay on top. Implements
// ports.DeviceService.
type DeviceService struct {
	backend ports.BackendClient
	relock  RelockScheduler
	log     zerolog.Logger

	mu sync.Mutex
	// unlockedUntil overlays a temporary "unlocked" status per device while a
	// direct unlock's countdown runs.
	unlockedUntil map[string]time.Time
}

func NewDeviceService(backend ports.BackendClient, relock RelockScheduler, log zerolog.Logger) *DeviceService {
	return &DeviceService{
		backend:       backend,
		relock:        relock,
		log:           log,
		unlockedUntil: make(map[string]time.Time),
	}
}

// List returns the backend's device list with the countdown overlay applied.
func (s *DeviceService) List(ctx context.Context, subscriberID string) ([]domain.Device, error) {
	devices, err := s.backend.ListDevices(ctx, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range devices {
		if until, ok := s.unlockedUntil[overlayKey(subscriberID, devices[i].ID)]; ok && until.After(now) {
			devices[i].Status = domain.DeviceUnlocked
		}
	}
	return devices, nil
}

// DirectUnlock is the dashboard unlock without the surrender ritual. It
// refuses to act without the interactive confirmation flag, unlocks for a
// fixed duration, then re-fetches the authoritative device list and activity
// log before reporting back.
func (s *DeviceService) DirectUnlock(ctx context.Context, input ports.DirectUnlockInput) (*ports.DirectUnlockResult, error) {
	if !input.Confirmed {
		return nil, domain.ErrConfirmationRequired
	}

	minutes := input.DurationMinutes
	if minutes <= 0 {
		minutes = defaultUnlockMinutes
	}

	if err := s.backend.UnlockDevice(ctx, input.SubscriberID, input.DeviceID, minutes); err != nil {
		return nil, fmt.Errorf("unlock device: %w", err)
	}

	duration := time.Duration(minutes) * time.Minute
	until := time.Now().Add(duration)

	s.mu.Lock()
	s.unlockedUntil[overlayKey(input.SubscriberID, input.DeviceID)] = until
	s.mu.Unlock()
	s.relock.Schedule(input.SubscriberID, input.DeviceID, duration)

	devices, err := s.List(ctx, input.SubscriberID)
	if err != nil {
		return nil, err
	}
	activity, err := s.ActivityLog(ctx, input.SubscriberID)
	if err != nil {
		// The unlock itself succeeded; a stale log is not worth failing over.
		s.log.Warn().Err(err).Str("subscriber_id", input.SubscriberID).Msg("activity log refresh failed after unlock")
		activity = nil
	}

	s.log.Info().Str("device_id", input.DeviceID).Int("minutes", minutes).Msg("device unlocked")
	return &ports.DirectUnlockResult{
		Devices:   devices,
		Activity:  activity,
		RelocksAt: until.Unix(),
	}, nil
}

// MarkRelocked drops the countdown overlay for a device; invoked by the
// relock scheduler when the unlock duration elapses.
func (s *DeviceService) MarkRelocked(subscriberID, deviceID string) {
	s.mu.Lock()
	delete(s.unlockedUntil, overlayKey(subscriberID, deviceID))
	s.mu.Unlock()
	s.log.Info().Str("device_id", deviceID).Msg("device relocked")
}

// ActivityLog fetches the device activity log from the backend.
func (s *DeviceService) ActivityLog(ctx context.Context, subscriberID string) ([]ports.ActivityEntry, error) {
	entries, err := s.backend.FetchActivityLog(ctx, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("fetch activity log: %w", err)
	}
	return entries, nil
}

func overlayKey(subscriberID, deviceID string) string {
	return subscriberID + "|" + deviceID
}
