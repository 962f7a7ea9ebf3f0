// mailsift-query runs one query (or one feedback submission) against the
// mail corpus from the command line.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/config"
	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/expand"
	"github.com/mailsift/mailsift/internal/export"
	"github.com/mailsift/mailsift/internal/factory"
	"github.com/mailsift/mailsift/internal/filter"
	"github.com/mailsift/mailsift/internal/logging"
	"github.com/mailsift/mailsift/internal/relevance"
	"github.com/mailsift/mailsift/internal/threads"
)

var (
	// Query flags
	query     = flag.String("query", "", "Free-text query to analyze")
	userID    = flag.String("user", "", "User identifier")
	mailboxes = flag.String("mailboxes", "", "Comma-separated list of mailboxes the user may see")

	// Feedback flags
	feedbackAction = flag.String("feedback", "", "Submit feedback instead of querying (validate or reject)")
	emailIndex     = flag.String("email", "", "Email index the feedback refers to")

	// Export flags
	exportFormat = flag.String("export", "", "Export format (excel or pdf); prints JSON when empty")
	outputFile   = flag.String("output", "", "Output file for the export (defaults to the generated filename)")

	// Provider flags
	provider     = flag.String("provider", "openai", "LLM provider (openai, gemini, bedrock)")
	openaiAPIKey = flag.String("openai-api-key", "", "API key for OpenAI")
	geminiAPIKey = flag.String("gemini-api-key", "", "API key for Google Gemini")

	// Store flags
	mongoURI = flag.String("mongo-uri", "mongodb://localhost:27017", "MongoDB connection URI")
	mongoDB  = flag.String("mongo-db", "mailsift", "MongoDB database name")

	// Misc flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")
)

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var cfg *config.Config
	if *configFile != "" {
		cfg, err = config.New()
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Info("Loaded configuration from file",
			zap.String("file", cfg.GetViper().ConfigFileUsed()))
	} else {
		cfg = createConfigFromFlags()
	}

	user := core.User{ID: *userID}
	if *mailboxes != "" {
		for _, m := range strings.Split(*mailboxes, ",") {
			user.Mailboxes = append(user.Mailboxes, strings.ToLower(strings.TrimSpace(m)))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	stores, err := factory.NewStoreFactory(cfg, logger).CreateStores()
	if err != nil {
		logger.Fatal("Failed to connect to store", zap.Error(err))
	}
	defer stores.Close(context.Background())

	if *feedbackAction != "" {
		submitFeedback(ctx, stores, user, logger)
		return
	}
	if *query == "" {
		logger.Fatal("A query is required (-query)")
	}

	runQuery(ctx, cfg, stores, user, logger)
}

// submitFeedback records one validate/reject judgement and updates the
// user's relevance weights.
func submitFeedback(ctx context.Context, stores *factory.Stores, user core.User, logger *zap.Logger) {
	if *emailIndex == "" {
		logger.Fatal("Feedback requires the email index (-email)")
	}

	// One-shot feedback stays LLM-free; heuristic name extraction applies.
	service := relevance.NewFeedbackService(
		stores.Emails, stores.Feedback, stores.Weights,
		relevance.NewRegistry(), nil, logger)

	action := core.FeedbackAction(*feedbackAction)
	if err := service.Submit(ctx, *emailIndex, *query, action, user); err != nil {
		logger.Fatal("Failed to submit feedback", zap.Error(err))
	}
	logger.Info("Feedback recorded",
		zap.String("email", *emailIndex),
		zap.String("action", *feedbackAction))
}

// runQuery assembles the pipeline, analyzes the query and emits the result.
func runQuery(ctx context.Context, cfg *config.Config, stores *factory.Stores, user core.User, logger *zap.Logger) {
	llmFactory := factory.NewLLMFactory(cfg, logger)
	completions, err := llmFactory.CreateCompletionClient()
	if err != nil {
		logger.Fatal("Failed to create completion client", zap.Error(err))
	}
	embedder, err := llmFactory.CreateEmbeddingProvider()
	if err != nil {
		logger.Fatal("Failed to create embedding provider", zap.Error(err))
	}

	cacheFactory := factory.NewCacheFactory(cfg, logger)
	cacheRepo, err := cacheFactory.CreateCacheRepository()
	if err != nil {
		logger.Fatal("Failed to create cache", zap.Error(err))
	}
	cacheTTL, err := cacheFactory.GetCacheTTL()
	if err != nil {
		logger.Fatal("Invalid cache TTL", zap.Error(err))
	}
	cacheEnabled := cacheFactory.IsCacheEnabled()

	similarity := cfg.GetSimilarity()
	cluster := cfg.GetCluster()
	retrieval := cfg.GetRetrieval()

	service := core.NewThreadsService(
		embedder,
		stores.Emails,
		stores.Weights,
		expand.NewPromptTermExtractor(completions, cacheRepo, cacheEnabled, cacheTTL, logger),
		expand.NewExpander(completions, cacheRepo, cacheEnabled, cacheTTL, logger),
		filter.New(similarity.FilterThreshold, retrieval.MinResults, logger),
		threads.NewBuilder(cluster.Epsilon, cluster.MinPoints, similarity.MergeThreshold, logger),
		relevance.Extractor{},
		cacheRepo,
		cacheEnabled,
		cacheTTL,
		retrieval.MaxCandidates,
		logger,
	)

	result, err := service.Analyze(ctx, *query, user)
	if err != nil {
		logger.Fatal("Query failed", zap.Error(err))
	}

	if *exportFormat == "" {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			logger.Fatal("Failed to encode result", zap.Error(err))
		}
		fmt.Println(string(out))
		return
	}

	exported, err := export.NewService(logger).Export(result.Threads, export.Format(*exportFormat))
	if err != nil {
		logger.Fatal("Failed to export threads", zap.Error(err))
	}
	path := *outputFile
	if path == "" {
		path = exported.Filename
	}
	if err := os.WriteFile(path, exported.Data, 0644); err != nil {
		logger.Fatal("Failed to write export file", zap.Error(err))
	}
	logger.Info("Export written",
		zap.String("file", path),
		zap.Int("threads", len(result.Threads)))
}

// createConfigFromFlags builds an in-memory configuration from the command
// line flags.
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	v.Set("llm.provider", *provider)
	v.Set("embedding.provider", *provider)
	v.Set("openai.api_key", *openaiAPIKey)
	v.Set("gemini.api_key", *geminiAPIKey)
	v.Set("mongo.uri", *mongoURI)
	v.Set("mongo.database", *mongoDB)

	// One-shot invocations keep the cache in memory.
	v.Set("cache.type", "memory")

	return config.NewFromViper(v)
}
