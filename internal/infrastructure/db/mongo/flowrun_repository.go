package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/screentimejourney/dashboard-service/internal/core/domain"
)

const collectionFlowRuns = "flow_runs"

// abandonedRunTTL expires runs the subscriber walked away from without
// completing or cancelling.
const abandonedRunTTL = 24 * time.Hour

// FlowRunRepository persists wizard runs. Implements ports.FlowRunRepository.
type FlowRunRepository struct {
	col *mongo.Collection
}

func NewFlowRunRepository(db *mongo.Database) *FlowRunRepository {
	return &FlowRunRepository{col: db.Collection(collectionFlowRuns)}
}

// Create inserts a new run document.
func (r *FlowRunRepository) Create(ctx context.Context, run *domain.FlowRun) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, run)
	return err
}

// Get retrieves a run by id.
func (r *FlowRunRepository) Get(ctx context.Context, runID string) (*domain.FlowRun, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var run domain.FlowRun
	err := r.col.FindOne(ctx, bson.M{"_id": runID}).Decode(&run)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrFlowRunNotFound
		}
		return nil, err
	}
	return &run, nil
}

// Update replaces the run document.
func (r *FlowRunRepository) Update(ctx context.Context, run *domain.FlowRun) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": run.ID}, run)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrFlowRunNotFound
	}
	return nil
}

// Delete removes the run document. Deleting an absent run is not an error.
func (r *FlowRunRepository) Delete(ctx context.Context, runID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.DeleteOne(ctx, bson.M{"_id": runID})
	return err
}

// EnsureIndexes creates necessary indexes on the flow_runs collection.
func (r *FlowRunRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "subscriber_id", Value: 1}}},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(abandonedRunTTL.Seconds())),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
