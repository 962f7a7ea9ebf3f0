package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/core"
)

const feedbackCollection = "feedback"

type feedbackDoc struct {
	EmailIndex string    `bson:"email_index"`
	Query      string    `bson:"query"`
	Action     string    `bson:"action"`
	UserID     string    `bson:"user_id"`
	Timestamp  time.Time `bson:"timestamp"`
}

// FeedbackStore appends feedback records to a MongoDB collection. Records
// are write-once; there is no update or delete path.
type FeedbackStore struct {
	coll   *driver.Collection
	logger *zap.Logger
}

// NewFeedbackStore creates a new MongoDB feedback store.
func NewFeedbackStore(db *driver.Database, logger *zap.Logger) *FeedbackStore {
	return &FeedbackStore{
		coll:   db.Collection(feedbackCollection),
		logger: logger,
	}
}

// EnsureIndexes creates the per-user lookup index.
func (s *FeedbackStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, driver.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create feedback index: %w", err)
	}
	return nil
}

// Insert appends one feedback record.
func (s *FeedbackStore) Insert(ctx context.Context, rec *core.FeedbackRecord) error {
	_, err := s.coll.InsertOne(ctx, &feedbackDoc{
		EmailIndex: rec.EmailIndex,
		Query:      rec.Query,
		Action:     string(rec.Action),
		UserID:     rec.UserID,
		Timestamp:  rec.Timestamp.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}
