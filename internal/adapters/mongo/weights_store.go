package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/core"
)

const weightsCollection = "filter_weights"

type weightsDoc struct {
	UserID    string             `bson:"_id"`
	Weights   map[string]float64 `bson:"weights"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

// WeightsStore persists the per-user relevance weights, one document per
// user keyed by the user id.
type WeightsStore struct {
	coll   *driver.Collection
	logger *zap.Logger
}

// NewWeightsStore creates a new MongoDB weights store.
func NewWeightsStore(db *driver.Database, logger *zap.Logger) *WeightsStore {
	return &WeightsStore{
		coll:   db.Collection(weightsCollection),
		logger: logger,
	}
}

// Get returns the stored weights for the user, or nil when none exist.
func (s *WeightsStore) Get(ctx context.Context, userID string) (*core.FilterWeights, error) {
	var doc weightsDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if err == driver.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load weights for %s: %w", userID, err)
	}
	return &core.FilterWeights{
		UserID:    doc.UserID,
		Weights:   doc.Weights,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

// Put stores the weights, replacing any previous document for the user.
func (s *WeightsStore) Put(ctx context.Context, w *core.FilterWeights) error {
	doc := &weightsDoc{
		UserID:    w.UserID,
		Weights:   w.Weights,
		UpdatedAt: w.UpdatedAt.UTC(),
	}
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"_id": w.UserID},
		doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store weights for %s: %w", w.UserID, err)
	}
	return nil
}
