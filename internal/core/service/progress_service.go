package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/screentimejourney/dashboard-service/internal/core/domain"
	"github.com/screentimejourney/dashboard-service/internal/core/ports"
)

// percentileTimeout is the short leash on the community-percentile lookup.
// The call is explicitly non-critical and must never hold up the dashboard.
const percentileTimeout = 5 * time.Second

// defaultPercentile is served when neither the live lookup nor the cache has
// a value.
const defaultPercentile = 50.0

// PercentileCache holds the last known percentile per subscriber so an
// expired or failed lookup can degrade to it.
type PercentileCache interface {
	Get(ctx context.Context, subscriberID string) (float64, bool)
	Set(ctx context.Context, subscriberID string, value float64)
}

// ProgressService computes the gamified dashboard header. Implements
// ports.ProgressService.
type ProgressService struct {
	backend ports.BackendClient
	cache   PercentileCache
	log     zerolog.Logger
	now     func() time.Time
}

func NewProgressService(backend ports.BackendClient, cache PercentileCache, log zerolog.Logger) *ProgressService {
	return &ProgressService{backend: backend, cache: cache, log: log, now: time.Now}
}

// View assembles milestone progress plus percentile for a subscriber. Ladder
// and percentile failures degrade silently to built-in defaults (logged only);
// profile and device fetches degrade to "no device, unknown gender" rather
// than failing the dashboard.
func (s *ProgressService) View(ctx context.Context, subscriberID string) (*ports.ProgressView, error) {
	gender := ""
	if profile, err := s.backend.FetchProfile(ctx, subscriberID); err == nil {
		gender = profile.Gene
		if gender == "" {
			gender = profile.Gender
		}
	} else {
		s.log.Debug().Err(err).Str("subscriber_id", subscriberID).Msg("profile fetch failed, computing genderless progress")
	}

	var addedAt *time.Time
	if devices, err := s.backend.ListDevices(ctx, subscriberID); err == nil {
		for i := range devices {
			d := devices[i].AddedDate
			if d.IsZero() {
				continue
			}
			if addedAt == nil || d.Before(*addedAt) {
				addedAt = &devices[i].AddedDate
			}
		}
	} else {
		s.log.Debug().Err(err).Str("subscriber_id", subscriberID).Msg("device fetch failed, progress starts at zero")
	}

	ladder := s.fetchLadder(ctx, gender)
	percentile, cached := s.fetchPercentile(ctx, subscriberID)

	return &ports.ProgressView{
		Progress:         domain.ComputeProgress(addedAt, gender, ladder, s.now()),
		Percentile:       percentile,
		PercentileCached: cached,
	}, nil
}

func (s *ProgressService) fetchLadder(ctx context.Context, gender string) []domain.MilestoneTier {
	ladder, err := s.backend.FetchMilestoneLadder(ctx, gender)
	if err != nil || len(ladder) == 0 {
		if err != nil {
			s.log.Debug().Err(err).Msg("milestone ladder fetch failed, using default")
		}
		return domain.DefaultLadder
	}
	return ladder
}

// fetchPercentile races the live lookup against percentileTimeout and falls
// back to the cached value (or the constant default) on expiry or any error.
func (s *ProgressService) fetchPercentile(ctx context.Context, subscriberID string) (value float64, degraded bool) {
	lookupCtx, cancel := context.WithTimeout(ctx, percentileTimeout)
	defer cancel()

	p, err := s.backend.FetchPercentile(lookupCtx, subscriberID)
	if err == nil {
		s.cache.Set(ctx, subscriberID, p)
		return p, false
	}

	s.log.Debug().Err(err).Str("subscriber_id", subscriberID).Msg("percentile lookup degraded to cache")
	if cached, ok := s.cache.Get(ctx, subscriberID); ok {
		return cached, true
	}
	return defaultPercentile, true
}
