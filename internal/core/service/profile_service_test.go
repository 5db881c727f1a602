package service

import (
	"context"
	"errors"
	"testing"

	"github.com/screentimejourney/dashboard-service/internal/core/domain"
	"github.com/screentimejourney/dashboard-service/internal/core/ports"
)

func TestCheckUsername_FailedLookupTreatedAsAvailable(t *testing.T) {
	backend := newStubBackend()
	backend.usernameErr = errUnavailable
	svc := NewProfileService(backend, discardLogger)

	available, err := svc.CheckUsername(context.Background(), "focus_emma")
	if err != nil {
		t.Fatalf("availability check must not fail the caller: %v", err)
	}
	if !available {
		t.Error("a failed lookup reports available, the save arbitrates")
	}
}

func TestCheckUsername_ReportsTaken(t *testing.T) {
	backend := newStubBackend()
	backend.usernameTaken = true
	svc := NewProfileService(backend, discardLogger)

	available, err := svc.CheckUsername(context.Background(), "focus_emma")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if available {
		t.Error("expected taken")
	}
}

func TestUpdate_ChangedUsernameRecheckedBeforeSave(t *testing.T) {
	backend := newStubBackend()
	backend.profile = &ports.ProfileData{Username: "old_name", Gender: "female", Phone: "+4791234567"}
	backend.usernameTaken = true
	svc := NewProfileService(backend, discardLogger)

	_, err := svc.Update(context.Background(), ports.UpdateProfileInput{
		SubscriberID: testSub,
		Username:     "new_name",
	})
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if backend.updateCalls != 0 {
		t.Errorf("updateCalls = %d, the taken re-check must stop the save", backend.updateCalls)
	}
}

func TestUpdate_UnchangedUsernameSkipsRecheck(t *testing.T) {
	backend := newStubBackend()
	backend.profile = &ports.ProfileData{Username: "same_name", Gender: "female"}
	backend.usernameTaken = true // would reject if checked
	svc := NewProfileService(backend, discardLogger)

	updated, err := svc.Update(context.Background(), ports.UpdateProfileInput{
		SubscriberID: testSub,
		Username:     "same_name",
		Phone:        "+4791234567",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if backend.usernameCalls != 0 {
		t.Errorf("usernameCalls = %d, an unchanged username needs no re-check", backend.usernameCalls)
	}
	if updated.Phone != "+4791234567" {
		t.Errorf("Phone = %q", updated.Phone)
	}
}

func TestUpdate_EmptyFieldsKeepCurrentValues(t *testing.T) {
	backend := newStubBackend()
	backend.profile = &ports.ProfileData{Username: "emma", Gender: "female", Phone: "+4791234567", Complete: true}
	svc := NewProfileService(backend, discardLogger)

	updated, err := svc.Update(context.Background(), ports.UpdateProfileInput{
		SubscriberID: testSub,
		Gender:       "male",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Username != "emma" || updated.Phone != "+4791234567" {
		t.Errorf("updated = %+v, empty inputs must not erase fields", updated)
	}
	if updated.Gender != "male" {
		t.Errorf("Gender = %q, want male", updated.Gender)
	}
	if !updated.Complete {
		t.Error("Complete flag must survive an edit")
	}
}

func TestUpdate_SaveConflictSurfacesAsUsernameTaken(t *testing.T) {
	backend := newStubBackend()
	backend.profile = &ports.ProfileData{Username: "old_name"}
	backend.updateErr = domain.ErrUsernameTaken
	svc := NewProfileService(backend, discardLogger)

	_, err := svc.Update(context.Background(), ports.UpdateProfileInput{
		SubscriberID: testSub,
		Username:     "new_name",
	})
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken from the save conflict, got %v", err)
	}
}

func TestUpdate_RecheckFailureLetsSaveArbitrate(t *testing.T) {
	backend := newStubBackend()
	backend.profile = &ports.ProfileData{Username: "old_name"}
	backend.usernameErr = errUnavailable
	svc := NewProfileService(backend, discardLogger)

	if _, err := svc.Update(context.Background(), ports.UpdateProfileInput{
		SubscriberID: testSub,
		Username:     "new_name",
	}); err != nil {
		t.Fatalf("a failed re-check must not block the save: %v", err)
	}
	if backend.updateCalls != 1 {
		t.Errorf("updateCalls = %d, want 1", backend.updateCalls)
	}
}

func TestSendPhoneCode_SurfacesBackendFailure(t *testing.T) {
	backend := newStubBackend()
	backend.waSendErr = errUnavailable
	svc := NewProfileService(backend, discardLogger)

	if err := svc.SendPhoneCode(context.Background(), testSub, "+4791234567"); err == nil {
		t.Fatal("a failed code send must surface, the user has to re-trigger it")
	}
	if backend.waSendCalls != 1 {
		t.Errorf("waSendCalls = %d, want 1", backend.waSendCalls)
	}
}

func TestVerifyPhoneCode_SuccessPersistsNumber(t *testing.T) {
	backend := newStubBackend()
	backend.waVerifyOK = true
	svc := NewProfileService(backend, discardLogger)

	verified, err := svc.VerifyPhoneCode(context.Background(), testSub, "+4791234567", "482916")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !verified {
		t.Fatal("expected the code to verify")
	}
	if backend.profile.Phone != "+4791234567" {
		t.Errorf("Phone = %q, the verified number must be saved to the profile", backend.profile.Phone)
	}
}

func TestVerifyPhoneCode_WrongCodeIsNotAnError(t *testing.T) {
	backend := newStubBackend()
	backend.waVerifyOK = false
	svc := NewProfileService(backend, discardLogger)

	verified, err := svc.VerifyPhoneCode(context.Background(), testSub, "+4791234567", "000000")
	if err != nil {
		t.Fatalf("a rejected code renders inline, not as a failure: %v", err)
	}
	if verified {
		t.Fatal("expected rejection")
	}
	if backend.updateCalls != 0 {
		t.Errorf("updateCalls = %d, a rejected code must not touch the profile", backend.updateCalls)
	}
}

func TestVerifyPhoneCode_SaveFailureStillReportsVerified(t *testing.T) {
	backend := newStubBackend()
	backend.waVerifyOK = true
	backend.updateErr = errUnavailable
	svc := NewProfileService(backend, discardLogger)

	verified, err := svc.VerifyPhoneCode(context.Background(), testSub, "+4791234567", "482916")
	if err != nil || !verified {
		t.Fatalf("verified = %v, err = %v; the verification stands even when the save fails", verified, err)
	}
}

func TestUpdateNotifications_ForwardsToggles(t *testing.T) {
	backend := newStubBackend()
	svc := NewProfileService(backend, discardLogger)

	err := svc.UpdateNotifications(context.Background(), testSub, ports.NotificationSettings{WhatsAppEnabled: true})
	if err != nil {
		t.Fatalf("update notifications: %v", err)
	}
	if backend.notified == nil || !backend.notified.WhatsAppEnabled || backend.notified.EmailEnabled {
		t.Errorf("settings forwarded wrong: %+v", backend.notified)
	}
}

func TestCancelSubscription_PassesReason(t *testing.T) {
	backend := newStubBackend()
	svc := NewProfileService(backend, discardLogger)

	if err := svc.CancelSubscription(context.Background(), testSub, "taking a break"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if backend.cancelCalls != 1 {
		t.Errorf("cancelCalls = %d, want 1", backend.cancelCalls)
	}
}
