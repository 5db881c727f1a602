package ports

import "context"

// UpdateProfileInput carries subscriber profile edits.
type UpdateProfileInput struct {
	SubscriberID string
	Username     string
	Gender       string
	Phone        string
}

// ProfileService manages the subscriber account panel: profile reads, edits
// with the username race-condition guard, phone verification over WhatsApp,
// notification preferences and subscription cancellation.
type ProfileService interface {
	Get(ctx context.Context, subscriberID string) (*ProfileData, error)
	// Update re-checks username availability immediately before saving and
	// routes both a failed re-check and a conflict status from the save call
	// itself back as a username validation error.
	Update(ctx context.Context, input UpdateProfileInput) (*ProfileData, error)
	CheckUsername(ctx context.Context, username string) (bool, error)
	// SendPhoneCode messages a verification code to the number;
	// VerifyPhoneCode checks the typed code and, on success, persists the
	// number as the subscriber's verified phone.
	SendPhoneCode(ctx context.Context, subscriberID, phone string) error
	VerifyPhoneCode(ctx context.Context, subscriberID, phone, code string) (bool, error)
	UpdateNotifications(ctx context.Context, subscriberID string, settings NotificationSettings) error
	CancelSubscription(ctx context.Context, subscriberID, reason string) error
}
