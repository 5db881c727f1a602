package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// inflightTTL bounds how long a crashed request can hold an effect latch.
	inflightTTL = 2 * time.Minute
	// doneTTL matches the lifetime of an abandoned run.
	doneTTL = 24 * time.Hour
)

// EffectGuard provides exactly-once step effects backed by Redis. The
// in-flight latch (SET NX) rejects concurrent invocations; the done flag
// survives across requests so a processed effect is never re-run.
// Key format: effect:<run_id>:<effect>:{inflight,done}
type EffectGuard struct {
	client *redis.Client
}

// NewEffectGuard creates an EffectGuard wrapping the given Redis client.
func NewEffectGuard(client *redis.Client) *EffectGuard {
	return &EffectGuard{client: client}
}

// Begin acquires the in-flight latch. Returns false when another request
// already holds it.
func (g *EffectGuard) Begin(ctx context.Context, runID, effect string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.key(runID, effect, "inflight"), "1", inflightTTL).Result()
	if err != nil {
		return false, fmt.Errorf("effect latch: %w", err)
	}
	return ok, nil
}

// End releases the in-flight latch.
func (g *EffectGuard) End(ctx context.Context, runID, effect string) error {
	return g.client.Del(ctx, g.key(runID, effect, "inflight")).Err()
}

// Done reports whether this effect has already been processed for the run.
func (g *EffectGuard) Done(ctx context.Context, runID, effect string) (bool, error) {
	n, err := g.client.Exists(ctx, g.key(runID, effect, "done")).Result()
	if err != nil {
		return false, fmt.Errorf("effect done check: %w", err)
	}
	return n > 0, nil
}

// MarkDone records that this effect has been processed (expires after doneTTL).
func (g *EffectGuard) MarkDone(ctx context.Context, runID, effect string) error {
	return g.client.Set(ctx, g.key(runID, effect, "done"), "1", doneTTL).Err()
}

// Clear drops all guard state for a run.
func (g *EffectGuard) Clear(ctx context.Context, runID string) error {
	iter := g.client.Scan(ctx, 0, fmt.Sprintf("effect:%s:*", runID), 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("effect clear scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return g.client.Del(ctx, keys...).Err()
}

func (g *EffectGuard) key(runID, effect, kind string) string {
	return fmt.Sprintf("effect:%s:%s:%s", runID, effect, kind)
}
