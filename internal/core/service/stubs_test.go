package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/screentimejourney/dashboard-service/internal/core/domain"
	"github.com/screentimejourney/dashboard-service/internal/core/ports"
)

var discardLogger = zerolog.Nop()

var errUnavailable = errors.New("backend unavailable")

// ---------------------------------------------------------------------------
// In-memory stub backend
// ---------------------------------------------------------------------------

type stubBackend struct {
	mu sync.Mutex

	devices     map[string][]domain.Device // by subscriber id
	descriptors map[string]*domain.FlowDescriptor
	profile     *ports.ProfileData
	ladder      []domain.MilestoneTier
	percentile  float64

	hmacValid    bool
	hmacRedirect string
	hmacErr      error

	descriptorErr error
	audioErr      error
	unlockErr     error
	removeErr     error
	upsertErr     error
	listErr       error
	storePinErr   error
	percentileErr error
	usernameErr   error
	usernameTaken bool
	updateErr     error

	surrenderVerdict *ports.SurrenderVerdict
	surrenderErr     error

	commitmentVerdict *ports.CommitmentVerdict
	commitmentErr     error

	waSendErr   error
	waVerifyOK  bool
	waVerifyErr error
	notifyErr   error
	notified    *ports.NotificationSettings

	// call counters
	audioCalls      int
	unlockCalls     int
	removeCalls     int
	upsertCalls     int
	listCalls       int
	storePinCalls   int
	surrenderCalls  int
	cancelCalls     int
	updateCalls     int
	usernameCalls   int
	commitmentCalls int
	waSendCalls     int
	waVerifyCalls   int

	// percentileDelay simulates a slow ranking backend.
	percentileDelay time.Duration
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		devices:     make(map[string][]domain.Device),
		descriptors: make(map[string]*domain.FlowDescriptor),
		hmacValid:   true,
		percentile:  72,
		profile:     &ports.ProfileData{Username: "journeyer", Gender: "male", Gene: "male", Complete: true},
	}
}

func (b *stubBackend) VerifyAppProxyHMAC(_ context.Context, _, _, _ string) (*ports.HMACVerification, error) {
	if b.hmacErr != nil {
		return nil, b.hmacErr
	}
	return &ports.HMACVerification{Valid: b.hmacValid, RedirectURL: b.hmacRedirect}, nil
}

func (b *stubBackend) FetchFlowDescriptor(_ context.Context, flowID string) (*domain.FlowDescriptor, error) {
	if b.descriptorErr != nil {
		return nil, b.descriptorErr
	}
	if d, ok := b.descriptors[flowID]; ok {
		return d, nil
	}
	return nil, domain.ErrFlowNotFound
}

func (b *stubBackend) StorePin(_ context.Context, _, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.storePinCalls++
	return b.storePinErr
}

func (b *stubBackend) ListDevices(_ context.Context, subscriberID string) ([]domain.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listCalls++
	if b.listErr != nil {
		return nil, b.listErr
	}
	out := make([]domain.Device, len(b.devices[subscriberID]))
	copy(out, b.devices[subscriberID])
	return out, nil
}

func (b *stubBackend) UpsertDevice(_ context.Context, subscriberID string, device *domain.Device) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.upsertCalls++
	if b.upsertErr != nil {
		return b.upsertErr
	}
	for i, d := range b.devices[subscriberID] {
		if d.ID == device.ID {
			b.devices[subscriberID][i] = *device
			return nil
		}
	}
	b.devices[subscriberID] = append(b.devices[subscriberID], *device)
	return nil
}

func (b *stubBackend) RemoveDevice(_ context.Context, subscriberID, deviceID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeCalls++
	if b.removeErr != nil {
		return b.removeErr
	}
	kept := b.devices[subscriberID][:0]
	for _, d := range b.devices[subscriberID] {
		if d.ID != deviceID {
			kept = append(kept, d)
		}
	}
	b.devices[subscriberID] = kept
	return nil
}

func (b *stubBackend) UnlockDevice(_ context.Context, _, _ string, _ int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unlockCalls++
	return b.unlockErr
}

func (b *stubBackend) FindDevice(_ context.Context, subscriberID, deviceID string) (*domain.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.devices[subscriberID] {
		if d.ID == deviceID {
			clone := d
			return &clone, nil
		}
	}
	return nil, domain.ErrDeviceNotFound
}

func (b *stubBackend) GenerateAudioGuide(_ context.Context, _, pincode string) (*ports.AudioGuide, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.audioCalls++
	if b.audioErr != nil {
		return nil, b.audioErr
	}
	return &ports.AudioGuide{AudioURL: "https://cdn.example.com/guides/" + pincode + ".mp3", Pincode: pincode}, nil
}

func (b *stubBackend) ValidateSurrender(_ context.Context, _, _ string, _ io.Reader, _ string) (*ports.SurrenderVerdict, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.surrenderCalls++
	if b.surrenderErr != nil {
		return nil, b.surrenderErr
	}
	if b.surrenderVerdict != nil {
		return b.surrenderVerdict, nil
	}
	return &ports.SurrenderVerdict{Approved: true, UnlockPin: "4242"}, nil
}

func (b *stubBackend) FetchMilestoneLadder(_ context.Context, _ string) ([]domain.MilestoneTier, error) {
	if b.ladder == nil {
		return nil, errUnavailable
	}
	return b.ladder, nil
}

func (b *stubBackend) FetchPercentile(ctx context.Context, _ string) (float64, error) {
	if b.percentileDelay > 0 {
		select {
		case <-time.After(b.percentileDelay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if b.percentileErr != nil {
		return 0, b.percentileErr
	}
	return b.percentile, nil
}

func (b *stubBackend) FetchProfile(_ context.Context, _ string) (*ports.ProfileData, error) {
	if b.profile == nil {
		return nil, errUnavailable
	}
	clone := *b.profile
	return &clone, nil
}

func (b *stubBackend) UpdateProfile(_ context.Context, _ string, profile *ports.ProfileData) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updateCalls++
	if b.updateErr != nil {
		return b.updateErr
	}
	clone := *profile
	b.profile = &clone
	return nil
}

func (b *stubBackend) CheckUsername(_ context.Context, _ string) (*ports.UsernameStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.usernameCalls++
	if b.usernameErr != nil {
		return nil, b.usernameErr
	}
	return &ports.UsernameStatus{Available: !b.usernameTaken}, nil
}

func (b *stubBackend) EvaluateCommitment(_ context.Context, _, _ string) (*ports.CommitmentVerdict, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commitmentCalls++
	if b.commitmentErr != nil {
		return nil, b.commitmentErr
	}
	if b.commitmentVerdict != nil {
		return b.commitmentVerdict, nil
	}
	return &ports.CommitmentVerdict{Approved: true}, nil
}

func (b *stubBackend) SendWhatsAppCode(_ context.Context, _, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.waSendCalls++
	return b.waSendErr
}

func (b *stubBackend) VerifyWhatsAppCode(_ context.Context, _, _, _ string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.waVerifyCalls++
	if b.waVerifyErr != nil {
		return false, b.waVerifyErr
	}
	return b.waVerifyOK, nil
}

func (b *stubBackend) UpdateNotificationSettings(_ context.Context, _ string, settings *ports.NotificationSettings) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.notifyErr != nil {
		return b.notifyErr
	}
	clone := *settings
	b.notified = &clone
	return nil
}

func (b *stubBackend) FetchActivityLog(_ context.Context, _ string) ([]ports.ActivityEntry, error) {
	return []ports.ActivityEntry{{DeviceID: "dev_1", Action: "unlock", Timestamp: time.Now().Unix()}}, nil
}

func (b *stubBackend) CancelSubscription(_ context.Context, _, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancelCalls++
	return nil
}

// ---------------------------------------------------------------------------
// In-memory run repository
// ---------------------------------------------------------------------------

type stubRunRepo struct {
	mu   sync.Mutex
	runs map[string]*domain.FlowRun
}

func newStubRunRepo() *stubRunRepo {
	return &stubRunRepo{runs: make(map[string]*domain.FlowRun)}
}

func (r *stubRunRepo) Create(_ context.Context, run *domain.FlowRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *run
	r.runs[run.ID] = &clone
	return nil
}

func (r *stubRunRepo) Get(_ context.Context, runID string) (*domain.FlowRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return nil, domain.ErrFlowRunNotFound
	}
	clone := *run
	clone.FormValues = make(map[string]string, len(run.FormValues))
	for k, v := range run.FormValues {
		clone.FormValues[k] = v
	}
	return &clone, nil
}

func (r *stubRunRepo) Update(_ context.Context, run *domain.FlowRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; !ok {
		return domain.ErrFlowRunNotFound
	}
	clone := *run
	r.runs[run.ID] = &clone
	return nil
}

func (r *stubRunRepo) Delete(_ context.Context, runID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runs, runID)
	return nil
}

// ---------------------------------------------------------------------------
// In-memory effect guard and friends
// ---------------------------------------------------------------------------

type memGuard struct {
	mu       sync.Mutex
	inflight map[string]bool
	done     map[string]bool
}

func newMemGuard() *memGuard {
	return &memGuard{inflight: make(map[string]bool), done: make(map[string]bool)}
}

func (g *memGuard) key(runID, effect string) string { return runID + ":" + effect }

func (g *memGuard) Begin(_ context.Context, runID, effect string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inflight[g.key(runID, effect)] {
		return false, nil
	}
	g.inflight[g.key(runID, effect)] = true
	return true, nil
}

func (g *memGuard) End(_ context.Context, runID, effect string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, g.key(runID, effect))
	return nil
}

func (g *memGuard) Done(_ context.Context, runID, effect string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.done[g.key(runID, effect)], nil
}

func (g *memGuard) MarkDone(_ context.Context, runID, effect string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.done[g.key(runID, effect)] = true
	return nil
}

func (g *memGuard) Clear(_ context.Context, _ string) error { return nil }

type stubRelock struct {
	mu    sync.Mutex
	calls int
}

func (r *stubRelock) Schedule(_, _ string, _ time.Duration) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
}

type memPercentileCache struct {
	mu     sync.Mutex
	values map[string]float64
}

func newMemPercentileCache() *memPercentileCache {
	return &memPercentileCache{values: make(map[string]float64)}
}

func (c *memPercentileCache) Get(_ context.Context, subscriberID string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[subscriberID]
	return v, ok
}

func (c *memPercentileCache) Set(_ context.Context, subscriberID string, value float64) {
	c.mu.Lock()
	c.values[subscriberID] = value
	c.mu.Unlock()
}
