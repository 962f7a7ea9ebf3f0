package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/mailsift/mailsift/internal/textutil"
	"go.uber.org/zap"
)

// ThreadsService runs the query pipeline: term extraction → expansion →
// retrieval → similarity/concordance filtering → clustering → merging →
// ranking. Within one invocation the stages are strictly sequential;
// concurrent invocations are independent.
type ThreadsService struct {
	embedder      EmbeddingProvider
	store         EmailStore
	weightsStore  WeightsStore
	extractor     TermExtractor
	expander      TermExpander
	filter        CandidateFilter
	builder       ThreadBuilder
	scorer        FeatureScorer
	cache         CacheRepository
	cacheEnabled  bool
	cacheTTL      time.Duration
	maxCandidates int
	logger        *zap.Logger
}

// NewThreadsService creates a new threads service
func NewThreadsService(
	embedder EmbeddingProvider,
	store EmailStore,
	weightsStore WeightsStore,
	extractor TermExtractor,
	expander TermExpander,
	filter CandidateFilter,
	builder ThreadBuilder,
	scorer FeatureScorer,
	cache CacheRepository,
	cacheEnabled bool,
	cacheTTL time.Duration,
	maxCandidates int,
	logger *zap.Logger,
) *ThreadsService {
	return &ThreadsService{
		embedder:      embedder,
		store:         store,
		weightsStore:  weightsStore,
		extractor:     extractor,
		expander:      expander,
		filter:        filter,
		builder:       builder,
		scorer:        scorer,
		cache:         cache,
		cacheEnabled:  cacheEnabled,
		cacheTTL:      cacheTTL,
		maxCandidates: maxCandidates,
		logger:        logger,
	}
}

// Analyze clusters the emails matching a free-text query into topical
// threads. Failures inside the pipeline degrade to an empty thread list
// with a machine-readable reason; an error return means the request itself
// was unusable.
func (s *ThreadsService) Analyze(ctx context.Context, query string, user User) (*AnalysisResult, error) {
	if len(user.Mailboxes) == 0 {
		return &AnalysisResult{Reason: ReasonNoMailboxes}, nil
	}

	key := analysisCacheKey(query, user.ID)
	if s.cacheEnabled {
		var cached AnalysisResult
		if ok, err := s.cache.Get(ctx, key, &cached); err == nil && ok {
			s.logger.Debug("Analysis cache hit", zap.String("user", user.ID))
			return &cached, nil
		}
	}

	terms, err := s.extractor.Extract(ctx, query)
	if err != nil {
		s.logger.Warn("Term extraction failed", zap.Error(err))
	}
	groups, names := GroupsFromTerms(terms)
	if len(groups) == 0 && len(names) == 0 {
		return &AnalysisResult{Reason: ReasonNoCandidates}, nil
	}

	groups = s.expander.Expand(ctx, groups)

	queryEmbedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Error("Query embedding failed", zap.Error(err))
		return &AnalysisResult{Reason: ReasonNoEmbedding}, nil
	}

	candidates, err := s.store.Search(ctx, EmailQuery{
		TermGroups: groups,
		Names:      names,
		Mailboxes:  user.Mailboxes,
		Limit:      s.maxCandidates,
	})
	if err != nil {
		s.logger.Error("Candidate retrieval failed", zap.Error(err))
		return &AnalysisResult{Reason: ReasonStoreError}, nil
	}
	if len(candidates) == 0 {
		return &AnalysisResult{Reason: ReasonNoCandidates}, nil
	}

	scored := s.filter.Apply(queryEmbedding, groups, candidates)
	if len(scored) == 0 {
		return &AnalysisResult{Reason: ReasonNoMatch}, nil
	}

	threads := s.builder.Build(scored)
	if len(threads) == 0 {
		return &AnalysisResult{Reason: ReasonNoMatch}, nil
	}

	s.rank(ctx, query, names, user.ID, threads, scored)

	result := &AnalysisResult{Threads: threads}
	if s.cacheEnabled {
		if err := s.cache.Set(ctx, key, result, s.cacheTTL); err != nil {
			s.logger.Error("Failed to cache analysis result", zap.Error(err))
		}
	}
	return result, nil
}

// rank orders threads by their mean member relevance under the user's
// learned feature weights. Ranking is cosmetic: it never drops threads.
func (s *ThreadsService) rank(ctx context.Context, query string, names []string, userID string, threads []Thread, scored []ScoredEmail) {
	weights := s.loadWeights(ctx, userID)

	byIndex := make(map[string]*Email, len(scored))
	for _, c := range scored {
		byIndex[c.Email.Index] = c.Email
	}

	scores := make(map[string]float64, len(threads))
	for _, t := range threads {
		var sum float64
		counted := 0
		for _, m := range t.Members {
			email, ok := byIndex[m.Index]
			if !ok {
				continue
			}
			features := s.scorer.Features(query, names, email, len(t.Members))
			for name, value := range features {
				sum += weights[name] * value
			}
			counted++
		}
		if counted > 0 {
			scores[t.ID] = sum / float64(counted)
		}
	}
	sort.SliceStable(threads, func(i, j int) bool {
		return scores[threads[i].ID] > scores[threads[j].ID]
	})
}

func (s *ThreadsService) loadWeights(ctx context.Context, userID string) map[string]float64 {
	stored, err := s.weightsStore.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to load filter weights, using defaults",
			zap.String("user", userID),
			zap.Error(err))
		return EqualWeights()
	}
	if stored == nil || len(stored.Weights) == 0 {
		return EqualWeights()
	}
	return stored.Weights
}

// analysisCacheKey is deterministic for equivalent queries by the same
// user.
func analysisCacheKey(query, userID string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(textutil.FoldAccents(query))), " ")
	sum := sha256.Sum256([]byte(normalized + "|" + userID))
	return "threads:" + hex.EncodeToString(sum[:])
}
