// Package di wires the application with a dependency injection container.
package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/adapters/smtpingest"
	"github.com/mailsift/mailsift/internal/config"
	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/expand"
	"github.com/mailsift/mailsift/internal/export"
	"github.com/mailsift/mailsift/internal/factory"
	"github.com/mailsift/mailsift/internal/filter"
	"github.com/mailsift/mailsift/internal/ingest"
	"github.com/mailsift/mailsift/internal/logging"
	"github.com/mailsift/mailsift/internal/relevance"
	"github.com/mailsift/mailsift/internal/threads"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	providers := []interface{}{
		config.New,
		logging.InitLogger,

		// Factories
		factory.NewLLMFactory,
		factory.NewCacheFactory,
		factory.NewStoreFactory,

		// Adapters
		func(f *factory.LLMFactory) (core.CompletionClient, error) {
			return f.CreateCompletionClient()
		},
		func(f *factory.LLMFactory) (core.EmbeddingProvider, error) {
			return f.CreateEmbeddingProvider()
		},
		func(f *factory.CacheFactory) (core.CacheRepository, error) {
			return f.CreateCacheRepository()
		},
		func(f *factory.StoreFactory) (*factory.Stores, error) {
			return f.CreateStores()
		},
		func(s *factory.Stores) core.EmailStore { return s.Emails },
		func(s *factory.Stores) core.FeedbackStore { return s.Feedback },
		func(s *factory.Stores) core.WeightsStore { return s.Weights },

		// Query pipeline stages
		func(completions core.CompletionClient, cache core.CacheRepository, f *factory.CacheFactory, logger *zap.Logger) (core.TermExtractor, error) {
			ttl, err := f.GetCacheTTL()
			if err != nil {
				return nil, err
			}
			return expand.NewPromptTermExtractor(completions, cache, f.IsCacheEnabled(), ttl, logger), nil
		},
		func(completions core.CompletionClient, cache core.CacheRepository, f *factory.CacheFactory, logger *zap.Logger) (core.TermExpander, error) {
			ttl, err := f.GetCacheTTL()
			if err != nil {
				return nil, err
			}
			return expand.NewExpander(completions, cache, f.IsCacheEnabled(), ttl, logger), nil
		},
		func(cfg *config.Config, logger *zap.Logger) core.CandidateFilter {
			return filter.New(cfg.GetSimilarity().FilterThreshold, cfg.GetRetrieval().MinResults, logger)
		},
		func(cfg *config.Config, logger *zap.Logger) core.ThreadBuilder {
			cluster := cfg.GetCluster()
			return threads.NewBuilder(cluster.Epsilon, cluster.MinPoints, cfg.GetSimilarity().MergeThreshold, logger)
		},
		func() core.FeatureScorer { return relevance.Extractor{} },

		// Services
		func(
			embedder core.EmbeddingProvider,
			store core.EmailStore,
			weights core.WeightsStore,
			extractor core.TermExtractor,
			expander core.TermExpander,
			candidateFilter core.CandidateFilter,
			builder core.ThreadBuilder,
			scorer core.FeatureScorer,
			cache core.CacheRepository,
			f *factory.CacheFactory,
			cfg *config.Config,
			logger *zap.Logger,
		) (*core.ThreadsService, error) {
			ttl, err := f.GetCacheTTL()
			if err != nil {
				return nil, err
			}
			return core.NewThreadsService(
				embedder, store, weights,
				extractor, expander, candidateFilter, builder, scorer,
				cache, f.IsCacheEnabled(), ttl,
				cfg.GetRetrieval().MaxCandidates,
				logger), nil
		},
		relevance.NewRegistry,
		relevance.NewFeedbackService,
		export.NewService,

		// Ingestion
		func(store core.EmailStore, cfg *config.Config, logger *zap.Logger) *threads.Resolver {
			similarity := cfg.GetSimilarity()
			return threads.NewResolver(store, similarity.LinkThreshold, similarity.LinkWindow, logger)
		},
		func(store core.EmailStore, embedder core.EmbeddingProvider, resolver *threads.Resolver, cfg *config.Config, logger *zap.Logger) *ingest.Service {
			return ingest.NewService(
				store, embedder, resolver,
				cfg.GetInt("ingest.summary_length"),
				cfg.GetInt("ingest.max_relevant_terms"),
				logger)
		},
		func(service *ingest.Service, cfg *config.Config, logger *zap.Logger) *smtpingest.Server {
			return smtpingest.NewServer(
				service,
				cfg.GetString("ingest.listen_address"),
				int64(cfg.GetInt("ingest.max_message_bytes")),
				logger)
		},
	}

	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return nil, err
		}
	}

	return container, nil
}
