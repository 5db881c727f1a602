package ports

import (
	"context"
	"io"

	"github.com/screentimejourney/dashboard-service/internal/core/domain"
)

// HMACVerification is the pass/fail outcome of delegating an app-proxy
// signature check to the backend. The backend may also instruct the client to
// redirect; that instruction is followed unconditionally.
type HMACVerification struct {
	Valid       bool
	RedirectURL string
}

// AudioGuide is the result of backend speech synthesis for a PIN.
type AudioGuide struct {
	AudioURL string
	// Pincode echoes the PIN the guide speaks, as registered backend-side.
	Pincode string
}

// SurrenderVerdict is the backend's judgement of a recorded pledge.
type SurrenderVerdict struct {
	Approved bool
	// UnlockPin is set only when approved.
	UnlockPin string
	// Feedback is the rejection message shown to the user.
	Feedback string
}

// ProfileData is the subscriber profile held by the backend.
type ProfileData struct {
	Username string
	Gender   string
	Gene     string
	Phone    string
	Complete bool
}

// ActivityEntry is one row of the device activity log.
type ActivityEntry struct {
	DeviceID  string
	Action    string
	Timestamp int64
}

// UsernameStatus is the outcome of an availability check.
type UsernameStatus struct {
	Available bool
}

// CommitmentVerdict is the backend's evaluation of a typed commitment
// statement. Feedback is shown inline next to the statement field when the
// statement is not accepted.
type CommitmentVerdict struct {
	Approved bool
	Feedback string
}

// NotificationSettings are the subscriber's reminder-channel toggles.
type NotificationSettings struct {
	WhatsAppEnabled bool
	EmailEnabled    bool
}

// BackendClient is the boundary to the external serverless backend. All real
// identity, storage and transcription logic lives behind it; this service only
// orchestrates the calls. Every method is a plain HTTP round trip and respects
// ctx cancellation.
type BackendClient interface {
	// VerifyAppProxyHMAC delegates app-proxy request authenticity to the
	// backend. The client never computes the signature locally.
	VerifyAppProxyHMAC(ctx context.Context, shop, customerID, hmac string) (*HMACVerification, error)

	FetchFlowDescriptor(ctx context.Context, flowID string) (*domain.FlowDescriptor, error)

	// StorePin persists a PIN keyed by a profile identifier. Callers treat
	// failures as best-effort: logged and swallowed, never blocking the user.
	StorePin(ctx context.Context, profileID, pincode string) error

	ListDevices(ctx context.Context, subscriberID string) ([]domain.Device, error)
	UpsertDevice(ctx context.Context, subscriberID string, device *domain.Device) error
	RemoveDevice(ctx context.Context, subscriberID, deviceID string) error
	UnlockDevice(ctx context.Context, subscriberID, deviceID string, durationMinutes int) error
	FindDevice(ctx context.Context, subscriberID, deviceID string) (*domain.Device, error)

	GenerateAudioGuide(ctx context.Context, subscriberID, pincode string) (*AudioGuide, error)

	// ValidateSurrender uploads the recorded pledge (multipart) for scoring.
	ValidateSurrender(ctx context.Context, subscriberID, deviceID string, recording io.Reader, filename string) (*SurrenderVerdict, error)

	FetchMilestoneLadder(ctx context.Context, gender string) ([]domain.MilestoneTier, error)
	// FetchPercentile is explicitly non-critical: callers wrap it in a short
	// timeout and degrade to a cached default on any error.
	FetchPercentile(ctx context.Context, subscriberID string) (float64, error)

	FetchProfile(ctx context.Context, subscriberID string) (*ProfileData, error)
	UpdateProfile(ctx context.Context, subscriberID string, profile *ProfileData) error
	CheckUsername(ctx context.Context, username string) (*UsernameStatus, error)

	// EvaluateCommitment scores a typed commitment statement.
	EvaluateCommitment(ctx context.Context, subscriberID, statement string) (*CommitmentVerdict, error)

	// SendWhatsAppCode asks the backend to message a verification code to the
	// given phone number; VerifyWhatsAppCode checks the code the user typed.
	SendWhatsAppCode(ctx context.Context, subscriberID, phone string) error
	VerifyWhatsAppCode(ctx context.Context, subscriberID, phone, code string) (bool, error)

	UpdateNotificationSettings(ctx context.Context, subscriberID string, settings *NotificationSettings) error

	FetchActivityLog(ctx context.Context, subscriberID string) ([]ActivityEntry, error)
	CancelSubscription(ctx context.Context, subscriberID, reason string) error
}
