package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/screentimejourney/dashboard-service/internal/core/domain"
	"github.com/screentimejourney/dashboard-service/internal/core/ports"
)

// ProfileService manages the account panel. Implements ports.ProfileService.
type ProfileService struct {
	backend ports.BackendClient
	log     zerolog.Logger
}

func NewProfileService(backend ports.BackendClient, log zerolog.Logger) *ProfileService {
	return &ProfileService{backend: backend, log: log}
}

func (s *ProfileService) Get(ctx context.Context, subscriberID string) (*ports.ProfileData, error) {
	profile, err := s.backend.FetchProfile(ctx, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	return profile, nil
}

// CheckUsername reports availability. A failed check reports available: the
// bias is non-blocking by design, and the mandatory pre-save re-check plus the
// save's own conflict status catch the race it admits.
func (s *ProfileService) CheckUsername(ctx context.Context, username string) (bool, error) {
	status, err := s.backend.CheckUsername(ctx, username)
	if err != nil {
		s.log.Warn().Err(err).Str("username", username).Msg("availability check failed, treating as available")
		return true, nil
	}
	return status.Available, nil
}

// Update saves profile edits. When the username changed, availability is
// re-checked immediately before the save; both a taken re-check and a
// conflict from the save itself surface as ErrUsernameTaken so the caller
// routes back to the username field with a specific message.
func (s *ProfileService) Update(ctx context.Context, input ports.UpdateProfileInput) (*ports.ProfileData, error) {
	current, err := s.backend.FetchProfile(ctx, input.SubscriberID)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	if input.Username != "" && input.Username != current.Username {
		status, err := s.backend.CheckUsername(ctx, input.Username)
		if err == nil && !status.Available {
			return nil, domain.ErrUsernameTaken
		}
		if err != nil {
			s.log.Warn().Err(err).Msg("pre-save username re-check failed, save will arbitrate")
		}
	}

	updated := &ports.ProfileData{
		Username: input.Username,
		Gender:   input.Gender,
		Gene:     current.Gene,
		Phone:    input.Phone,
		Complete: current.Complete,
	}
	if updated.Username == "" {
		updated.Username = current.Username
	}
	if updated.Gender == "" {
		updated.Gender = current.Gender
	}
	if updated.Phone == "" {
		updated.Phone = current.Phone
	}

	if err := s.backend.UpdateProfile(ctx, input.SubscriberID, updated); err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			return nil, domain.ErrUsernameTaken
		}
		return nil, fmt.Errorf("save profile: %w", err)
	}

	s.log.Info().Str("subscriber_id", input.SubscriberID).Msg("profile updated")
	return updated, nil
}

func (s *ProfileService) SendPhoneCode(ctx context.Context, subscriberID, phone string) error {
	if err := s.backend.SendWhatsAppCode(ctx, subscriberID, phone); err != nil {
		return fmt.Errorf("send verification code: %w", err)
	}
	s.log.Info().Str("subscriber_id", subscriberID).Msg("phone verification code sent")
	return nil
}

// VerifyPhoneCode checks the typed code against the backend. On success the
// number is persisted as the subscriber's phone; a save failure after a
// successful verification still reports verified, the number just stays
// unsaved until the next profile edit.
func (s *ProfileService) VerifyPhoneCode(ctx context.Context, subscriberID, phone, code string) (bool, error) {
	verified, err := s.backend.VerifyWhatsAppCode(ctx, subscriberID, phone, code)
	if err != nil {
		return false, fmt.Errorf("verify phone code: %w", err)
	}
	if !verified {
		return false, nil
	}

	current, err := s.backend.FetchProfile(ctx, subscriberID)
	if err != nil {
		s.log.Warn().Err(err).Str("subscriber_id", subscriberID).Msg("profile fetch failed after phone verification")
		return true, nil
	}
	current.Phone = phone
	if err := s.backend.UpdateProfile(ctx, subscriberID, current); err != nil {
		s.log.Warn().Err(err).Str("subscriber_id", subscriberID).Msg("verified phone not persisted")
	}
	return true, nil
}

func (s *ProfileService) UpdateNotifications(ctx context.Context, subscriberID string, settings ports.NotificationSettings) error {
	if err := s.backend.UpdateNotificationSettings(ctx, subscriberID, &settings); err != nil {
		return fmt.Errorf("update notification settings: %w", err)
	}
	s.log.Info().
		Str("subscriber_id", subscriberID).
		Bool("whatsapp", settings.WhatsAppEnabled).
		Bool("email", settings.EmailEnabled).
		Msg("notification settings updated")
	return nil
}

func (s *ProfileService) CancelSubscription(ctx context.Context, subscriberID, reason string) error {
	if err := s.backend.CancelSubscription(ctx, subscriberID, reason); err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}
	s.log.Info().Str("subscriber_id", subscriberID).Msg("subscription cancelled")
	return nil
}
