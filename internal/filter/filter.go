// Package filter scores retrieved candidates against the query and applies
// the concordance relaxation policy.
package filter

import (
	"sort"
	"strings"

	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/textutil"
	"go.uber.org/zap"
)

// Filter keeps candidates that are embedding-similar to the query and match
// enough term groups. When a full-concordance pass yields fewer than
// minResults candidates, the required group count is relaxed one step at a
// time down to a single group.
type Filter struct {
	minSimilarity float64
	minResults    int
	logger        *zap.Logger
}

// New creates a new candidate filter
func New(minSimilarity float64, minResults int, logger *zap.Logger) *Filter {
	return &Filter{
		minSimilarity: minSimilarity,
		minResults:    minResults,
		logger:        logger,
	}
}

type scored struct {
	email      *core.Email
	similarity float64
	matched    int
}

// Apply returns the qualifying candidates with their similarity and
// concordance annotations. An empty result is a valid outcome, not an
// error.
func (f *Filter) Apply(queryEmbedding []float32, groups []core.TermGroup, candidates []*core.Email) []core.ScoredEmail {
	if len(candidates) == 0 {
		return nil
	}

	// A name-only query carries no term groups: concordance is vacuously
	// satisfied and similarity alone decides.
	if len(groups) == 0 {
		kept := make([]core.ScoredEmail, 0, len(candidates))
		for _, email := range candidates {
			sim := textutil.Cosine(queryEmbedding, email.Embedding)
			if sim <= f.minSimilarity {
				continue
			}
			kept = append(kept, core.ScoredEmail{
				Email:       email,
				Similarity:  sim,
				Concordance: 1.0,
			})
		}
		sort.SliceStable(kept, func(i, j int) bool {
			return kept[i].Similarity > kept[j].Similarity
		})
		return kept
	}

	scoredAll := make([]scored, 0, len(candidates))
	for _, email := range candidates {
		sim := textutil.Cosine(queryEmbedding, email.Embedding)
		if sim <= f.minSimilarity {
			continue
		}
		scoredAll = append(scoredAll, scored{
			email:      email,
			similarity: sim,
			matched:    matchedGroups(groups, email),
		})
	}
	// Best matches first within each relaxation level.
	sort.SliceStable(scoredAll, func(i, j int) bool {
		if scoredAll[i].matched != scoredAll[j].matched {
			return scoredAll[i].matched > scoredAll[j].matched
		}
		return scoredAll[i].similarity > scoredAll[j].similarity
	})

	total := len(groups)
	kept := make([]core.ScoredEmail, 0, len(scoredAll))
	included := make(map[string]struct{}, len(scoredAll))

	take := func(required int) {
		for _, s := range scoredAll {
			if s.matched < required {
				continue
			}
			if _, done := included[s.email.Index]; done {
				continue
			}
			included[s.email.Index] = struct{}{}
			kept = append(kept, core.ScoredEmail{
				Email:       s.email,
				Similarity:  s.similarity,
				Concordance: float64(s.matched) / float64(total),
			})
		}
	}

	// Full concordance first.
	take(total)
	if len(kept) >= f.minResults {
		return kept
	}

	// Relax the required group count until enough candidates accumulate or
	// the floor of one group is exhausted.
	for required := total - 1; required >= 1 && len(kept) < f.minResults; required-- {
		before := len(kept)
		take(required)
		if len(kept) > before {
			f.logger.Debug("Concordance requirement relaxed",
				zap.Int("required_groups", required),
				zap.Int("total_groups", total),
				zap.Int("accumulated", len(kept)))
		}
	}
	return kept
}

// matchedGroups counts the term groups with at least one term found in the
// candidate's subject, summary or body (case-insensitive substring).
func matchedGroups(groups []core.TermGroup, email *core.Email) int {
	haystack := strings.ToLower(textutil.FoldAccents(
		email.Subject + "\n" + email.Summary + "\n" + email.Body))
	matched := 0
	for _, group := range groups {
		for _, term := range group {
			if term == "" {
				continue
			}
			if strings.Contains(haystack, strings.ToLower(textutil.FoldAccents(term))) {
				matched++
				break
			}
		}
	}
	return matched
}
