package expand

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/textutil"
	"go.uber.org/zap"
)

const synonymPromptFormat = `You expand search terms for a personal email archive.
List up to %d synonyms or close variants of the term below, in the same
language as the term. Respond only with a JSON array of strings.

Term: %q`

// Expander extends term groups with LLM-suggested synonyms. Expansion
// failures are silent to the caller: the group is returned unexpanded.
type Expander struct {
	completions  core.CompletionClient
	cache        core.CacheRepository
	cacheEnabled bool
	cacheTTL     time.Duration
	maxSynonyms  int
	logger       *zap.Logger
}

// NewExpander creates a new term expander
func NewExpander(
	completions core.CompletionClient,
	cache core.CacheRepository,
	cacheEnabled bool,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *Expander {
	return &Expander{
		completions:  completions,
		cache:        cache,
		cacheEnabled: cacheEnabled,
		cacheTTL:     cacheTTL,
		maxSynonyms:  8,
		logger:       logger,
	}
}

// Expand returns the groups with each extended by synonyms of its terms,
// lower-cased and deduplicated. The original terms stay first.
func (e *Expander) Expand(ctx context.Context, groups []core.TermGroup) []core.TermGroup {
	out := make([]core.TermGroup, len(groups))
	for i, group := range groups {
		seen := make(map[string]struct{}, len(group))
		expanded := make(core.TermGroup, 0, len(group))
		for _, term := range group {
			lower := strings.ToLower(term)
			if _, dup := seen[lower]; dup {
				continue
			}
			seen[lower] = struct{}{}
			expanded = append(expanded, lower)
		}
		for _, term := range group {
			for _, syn := range e.synonyms(ctx, term) {
				if _, dup := seen[syn]; dup {
					continue
				}
				seen[syn] = struct{}{}
				expanded = append(expanded, syn)
			}
		}
		out[i] = expanded
	}
	return out
}

// synonyms returns the cached or freshly generated synonym list for one
// term. Synonyms are language-contextual, not user-scoped, so the cache key
// is the term alone.
func (e *Expander) synonyms(ctx context.Context, term string) []string {
	lower := strings.ToLower(term)
	key := "terms:synonyms:" + lower

	if e.cacheEnabled {
		var cached []string
		if ok, err := e.cache.Get(ctx, key, &cached); err == nil && ok {
			return cached
		}
	}

	raw, err := e.completions.Complete(ctx, fmt.Sprintf(synonymPromptFormat, e.maxSynonyms, term))
	if err != nil {
		e.logger.Warn("Synonym expansion failed, keeping group unexpanded",
			zap.String("term", term),
			zap.Error(err))
		return nil
	}

	var list []string
	strategy, err := decodeJSON(raw, &list)
	if err != nil {
		e.logger.Warn("Synonym response unparseable, keeping group unexpanded",
			zap.String("term", term))
		return nil
	}
	if strategy != "raw" {
		e.logger.Debug("Synonym response needed repair",
			zap.String("term", term),
			zap.String("strategy", strategy))
	}

	seen := map[string]struct{}{lower: {}}
	clean := make([]string, 0, len(list))
	for _, s := range list {
		s = strings.ToLower(strings.TrimSpace(textutil.SanitizeUTF8(s)))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		clean = append(clean, s)
	}

	if e.cacheEnabled {
		if err := e.cache.Set(ctx, key, clean, e.cacheTTL); err != nil {
			e.logger.Error("Failed to cache synonyms", zap.Error(err))
		}
	}
	return clean
}
