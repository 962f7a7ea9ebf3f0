package expand

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/textutil"
	"go.uber.org/zap"
)

const extractPromptFormat = `Extract the significant search terms from the user request below.
Respond only with a JSON object mapping each term to an object with:
- frequency: integer, how many times the term appears
- context: string, the phrase the term appeared in
- type: one of "keyword", "name", "date", "place"

Request: %q`

// PromptTermExtractor extracts relevant terms from a natural-language
// prompt, caching by the prompt's content hash. When the completion service
// is unreachable or the response is unusable it degrades to a token
// heuristic instead of failing.
type PromptTermExtractor struct {
	completions  core.CompletionClient
	cache        core.CacheRepository
	cacheEnabled bool
	cacheTTL     time.Duration
	logger       *zap.Logger
}

// NewPromptTermExtractor creates a new prompt term extractor
func NewPromptTermExtractor(
	completions core.CompletionClient,
	cache core.CacheRepository,
	cacheEnabled bool,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *PromptTermExtractor {
	return &PromptTermExtractor{
		completions:  completions,
		cache:        cache,
		cacheEnabled: cacheEnabled,
		cacheTTL:     cacheTTL,
		logger:       logger,
	}
}

// Extract returns the relevant terms of a prompt keyed by lowercase term.
func (x *PromptTermExtractor) Extract(ctx context.Context, prompt string) (map[string]core.RelevantTerm, error) {
	sum := sha256.Sum256([]byte(prompt))
	key := "terms:prompt:" + hex.EncodeToString(sum[:])

	if x.cacheEnabled {
		var cached map[string]core.RelevantTerm
		if ok, err := x.cache.Get(ctx, key, &cached); err == nil && ok {
			return cached, nil
		}
	}

	terms := x.fromCompletion(ctx, prompt)
	if terms == nil {
		terms = HeuristicTerms(prompt)
	}

	if x.cacheEnabled {
		if err := x.cache.Set(ctx, key, terms, x.cacheTTL); err != nil {
			x.logger.Error("Failed to cache prompt terms", zap.Error(err))
		}
	}
	return terms, nil
}

func (x *PromptTermExtractor) fromCompletion(ctx context.Context, prompt string) map[string]core.RelevantTerm {
	raw, err := x.completions.Complete(ctx, fmt.Sprintf(extractPromptFormat, prompt))
	if err != nil {
		x.logger.Warn("Term extraction failed, falling back to token heuristic", zap.Error(err))
		return nil
	}

	var parsed map[string]core.RelevantTerm
	strategy, err := decodeJSON(raw, &parsed)
	if err != nil {
		x.logger.Warn("Term extraction response unparseable, falling back to token heuristic")
		return nil
	}
	if strategy != "raw" {
		x.logger.Debug("Term extraction response needed repair", zap.String("strategy", strategy))
	}

	terms := make(map[string]core.RelevantTerm, len(parsed))
	for term, info := range parsed {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if info.Frequency < 1 {
			info.Frequency = 1
		}
		terms[term] = info
	}
	if len(terms) == 0 {
		return nil
	}
	return terms
}

// HeuristicTerms tokenizes a prompt into relevant terms without any model
// call. Capitalized words are tagged as names.
func HeuristicTerms(prompt string) map[string]core.RelevantTerm {
	terms := make(map[string]core.RelevantTerm)
	for _, word := range strings.Fields(prompt) {
		trimmed := strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if trimmed == "" {
			continue
		}
		kind := "keyword"
		if unicode.IsUpper([]rune(trimmed)[0]) {
			kind = "name"
		}
		lower := strings.ToLower(textutil.FoldAccents(trimmed))
		if textutil.IsStopword(lower) || len([]rune(lower)) < 2 {
			continue
		}
		entry, ok := terms[lower]
		if !ok {
			entry = core.RelevantTerm{Context: prompt, Type: kind}
		}
		entry.Frequency++
		terms[lower] = entry
	}
	return terms
}

