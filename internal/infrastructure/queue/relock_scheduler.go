package queue

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64
)

// RelockSink receives the callback when an unlock countdown elapses.
type RelockSink interface {
	MarkRelocked(subscriberID, deviceID string)
}

type relockJob struct {
	subscriberID string
	deviceID     string
	at           time.Time
}

// RelockScheduler runs unlock countdowns on a fixed set of workers sharded by
// device ID, so repeated unlocks of the same device are handled in order. It
// only flips the dashboard overlay; backend enforcement is independent.
type RelockScheduler struct {
	workers []chan relockJob
	sink    RelockSink
	log     zerolog.Logger
}

// NewRelockScheduler creates a scheduler with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used. Bind must be called before
// the first Schedule.
func NewRelockScheduler(numWorkers int, log zerolog.Logger) *RelockScheduler {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	s := &RelockScheduler{
		workers: make([]chan relockJob, numWorkers),
		log:     log,
	}
	for i := range s.workers {
		s.workers[i] = make(chan relockJob, channelBuffer)
	}
	return s
}

// Bind sets the callback target. Split from the constructor because the
// device service and the scheduler reference each other.
func (s *RelockScheduler) Bind(sink RelockSink) {
	s.sink = sink
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled;
// countdowns pending at shutdown are dropped, which is safe because the
// overlay they would have cleared dies with the process.
func (s *RelockScheduler) Start(ctx context.Context) {
	for i, ch := range s.workers {
		go s.runWorker(ctx, i, ch)
	}
}

// Schedule queues a relock for deviceID after the given duration. The call is
// non-blocking up to channelBuffer capacity.
func (s *RelockScheduler) Schedule(subscriberID, deviceID string, after time.Duration) {
	s.workers[s.shardIndex(deviceID)] <- relockJob{
		subscriberID: subscriberID,
		deviceID:     deviceID,
		at:           time.Now().Add(after),
	}
}

// shardIndex maps a device ID deterministically to a worker index.
func (s *RelockScheduler) shardIndex(deviceID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(deviceID))
	return int(h.Sum32()) % len(s.workers)
}

func (s *RelockScheduler) runWorker(ctx context.Context, id int, ch <-chan relockJob) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-ch:
			if !ok {
				return
			}
			if !s.wait(ctx, job.at) {
				return
			}
			s.sink.MarkRelocked(job.subscriberID, job.deviceID)
			s.log.Debug().
				Str("device_id", job.deviceID).
				Int("worker_id", id).
				Msg("relock countdown elapsed")
		}
	}
}

// wait blocks until at, returning false when ctx is cancelled first.
func (s *RelockScheduler) wait(ctx context.Context, at time.Time) bool {
	d := time.Until(at)
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
