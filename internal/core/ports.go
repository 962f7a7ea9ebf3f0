package core

import (
	"context"
	"time"
)

// EmbeddingProvider produces fixed-dimension dense vectors for arbitrary
// text. Implementations must be deterministic for identical input and safe
// for concurrent use.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CompletionClient calls an external language-completion service. The raw
// text is returned as-is; callers must parse it defensively.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// EmailQuery describes one candidate retrieval. Mailboxes is mandatory:
// stores must never return documents outside that set.
type EmailQuery struct {
	TermGroups []TermGroup
	Names      []string
	Mailboxes  []string
	Limit      int
}

// EmailStore is the document store holding the mail corpus.
type EmailStore interface {
	// Search returns candidates matching the query, in store order.
	Search(ctx context.Context, q EmailQuery) ([]*Email, error)

	// Upsert inserts or replaces an email keyed by its index.
	Upsert(ctx context.Context, email *Email) error

	// Update applies fields to every email matching the filter and returns
	// the number of affected documents.
	Update(ctx context.Context, match map[string]any, fields map[string]any) (int64, error)

	// FindByIndex returns the email with the given index, or nil.
	FindByIndex(ctx context.Context, index string) (*Email, error)

	// FindByMailbox returns up to limit emails of one mailbox, newest first.
	FindByMailbox(ctx context.Context, mailbox string, limit int) ([]*Email, error)

	// FindBySubjectPrefix returns one email in the mailbox whose normalized
	// subject is a prefix of (or equal to) the given normalized subject,
	// excluding the email with excludeIndex. Returns nil when none match.
	FindBySubjectPrefix(ctx context.Context, mailbox, normalizedSubject, excludeIndex string) (*Email, error)

	// CountThreadSiblings returns how many emails share the thread.
	CountThreadSiblings(ctx context.Context, threadID string) (int64, error)
}

// FeedbackStore persists append-only feedback records.
type FeedbackStore interface {
	Insert(ctx context.Context, rec *FeedbackRecord) error
}

// WeightsStore persists per-user filter weights.
type WeightsStore interface {
	// Get returns the stored weights for the user, or nil when none exist.
	Get(ctx context.Context, userID string) (*FilterWeights, error)
	Put(ctx context.Context, w *FilterWeights) error
}

// CacheRepository memoizes expensive results by a deterministic key.
type CacheRepository interface {
	// Get loads the value stored under key into out. The boolean reports
	// whether a live entry was found.
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Clear removes one entry, or every entry when key is empty.
	Clear(ctx context.Context, key string) error
}

// TermExpander extends term groups with synonyms. Expansion failures are
// non-fatal: a group that cannot be expanded is returned unchanged.
type TermExpander interface {
	Expand(ctx context.Context, groups []TermGroup) []TermGroup
}

// TermExtractor pulls relevant terms and proper names out of a free-text
// prompt.
type TermExtractor interface {
	Extract(ctx context.Context, prompt string) (map[string]RelevantTerm, error)
}

// CandidateFilter scores candidates against the query embedding and term
// groups and applies the concordance relaxation policy.
type CandidateFilter interface {
	Apply(queryEmbedding []float32, groups []TermGroup, candidates []*Email) []ScoredEmail
}

// ThreadBuilder partitions filtered candidates into topical threads.
type ThreadBuilder interface {
	Build(candidates []ScoredEmail) []Thread
}

// FeatureScorer computes the relevance feature map for an (email, query)
// pair, keyed by FeatureNames.
type FeatureScorer interface {
	Features(query string, names []string, email *Email, siblingCount int) map[string]float64
}
