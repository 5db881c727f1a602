package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/screentimejourney/dashboard-service/internal/core/domain"
	"github.com/screentimejourney/dashboard-service/internal/core/ports"
)

func TestDirectUnlock_RequiresConfirmation(t *testing.T) {
	backend := newStubBackend()
	svc := NewDeviceService(backend, &stubRelock{}, discardLogger)

	_, err := svc.DirectUnlock(context.Background(), ports.DirectUnlockInput{
		SubscriberID: testSub,
		DeviceID:     "dev_1",
	})
	if !errors.Is(err, domain.ErrConfirmationRequired) {
		t.Errorf("expected ErrConfirmationRequired, got %v", err)
	}
	if backend.unlockCalls != 0 {
		t.Errorf("unlockCalls = %d, nothing may happen without confirmation", backend.unlockCalls)
	}
}

func TestDirectUnlock_OverlaysStatusAndSchedulesRelock(t *testing.T) {
	backend := newStubBackend()
	backend.devices[testSub] = []domain.Device{
		{ID: "dev_1", Name: "Emma's iPhone", Status: domain.DeviceLocked, AddedDate: time.Now()},
		{ID: "dev_2", Name: "MacBook", Status: domain.DeviceMonitoring, AddedDate: time.Now()},
	}
	relock := &stubRelock{}
	svc := NewDeviceService(backend, relock, discardLogger)

	before := time.Now()
	result, err := svc.DirectUnlock(context.Background(), ports.DirectUnlockInput{
		SubscriberID: testSub,
		DeviceID:     "dev_1",
		Confirmed:    true,
	})
	if err != nil {
		t.Fatalf("direct unlock: %v", err)
	}

	var unlocked, other *domain.Device
	for i := range result.Devices {
		switch result.Devices[i].ID {
		case "dev_1":
			unlocked = &result.Devices[i]
		case "dev_2":
			other = &result.Devices[i]
		}
	}
	if unlocked == nil || unlocked.Status != domain.DeviceUnlocked {
		t.Errorf("dev_1 = %+v, want unlocked overlay", unlocked)
	}
	if other == nil || other.Status != domain.DeviceMonitoring {
		t.Errorf("dev_2 = %+v, overlay must not leak to other devices", other)
	}

	wantRelock := before.Add(defaultUnlockMinutes * time.Minute).Unix()
	if result.RelocksAt < wantRelock || result.RelocksAt > wantRelock+5 {
		t.Errorf("RelocksAt = %d, want ~%d", result.RelocksAt, wantRelock)
	}
	if relock.calls != 1 {
		t.Errorf("relock scheduled %d times, want 1", relock.calls)
	}
	if len(result.Activity) == 0 {
		t.Error("expected the refreshed activity log in the result")
	}
}

func TestDirectUnlock_BackendFailureLeavesNoOverlay(t *testing.T) {
	backend := newStubBackend()
	backend.devices[testSub] = []domain.Device{{ID: "dev_1", Status: domain.DeviceLocked, AddedDate: time.Now()}}
	backend.unlockErr = errUnavailable
	relock := &stubRelock{}
	svc := NewDeviceService(backend, relock, discardLogger)

	_, err := svc.DirectUnlock(context.Background(), ports.DirectUnlockInput{
		SubscriberID: testSub,
		DeviceID:     "dev_1",
		Confirmed:    true,
	})
	if err == nil {
		t.Fatal("expected the backend failure to surface")
	}
	if relock.calls != 0 {
		t.Error("no relock may be scheduled for a failed unlock")
	}

	devices, err := svc.List(context.Background(), testSub)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if devices[0].Status != domain.DeviceLocked {
		t.Errorf("Status = %s, want locked with no overlay", devices[0].Status)
	}
}

func TestMarkRelocked_DropsOverlay(t *testing.T) {
	backend := newStubBackend()
	backend.devices[testSub] = []domain.Device{{ID: "dev_1", Status: domain.DeviceLocked, AddedDate: time.Now()}}
	svc := NewDeviceService(backend, &stubRelock{}, discardLogger)

	if _, err := svc.DirectUnlock(context.Background(), ports.DirectUnlockInput{
		SubscriberID: testSub, DeviceID: "dev_1", Confirmed: true,
	}); err != nil {
		t.Fatalf("direct unlock: %v", err)
	}

	svc.MarkRelocked(testSub, "dev_1")

	devices, err := svc.List(context.Background(), testSub)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if devices[0].Status != domain.DeviceLocked {
		t.Errorf("Status = %s after relock, want locked", devices[0].Status)
	}
}
