package factory

import (
	"context"
	"fmt"

	driver "go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/adapters/mongo"
	"github.com/mailsift/mailsift/internal/config"
)

// Stores bundles the document-store adapters that share one MongoDB client.
type Stores struct {
	Emails   *mongo.EmailStore
	Feedback *mongo.FeedbackStore
	Weights  *mongo.WeightsStore

	client *driver.Client
}

// Close disconnects the shared MongoDB client.
func (s *Stores) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// StoreFactory creates the MongoDB-backed stores
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStores connects to MongoDB, ensures the indexes and returns the
// store adapters.
func (f *StoreFactory) CreateStores() (*Stores, error) {
	ctx := context.Background()

	client, err := mongo.Connect(ctx, f.cfg.GetString("mongo.uri"))
	if err != nil {
		return nil, err
	}
	db := client.Database(f.cfg.GetString("mongo.database"))

	stores := &Stores{
		Emails:   mongo.NewEmailStore(db, f.logger),
		Feedback: mongo.NewFeedbackStore(db, f.logger),
		Weights:  mongo.NewWeightsStore(db, f.logger),
		client:   client,
	}

	if err := stores.Emails.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare email store: %w", err)
	}
	if err := stores.Feedback.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare feedback store: %w", err)
	}

	f.logger.Info("Connected to MongoDB",
		zap.String("database", f.cfg.GetString("mongo.database")))
	return stores, nil
}
