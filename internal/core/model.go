package core

import (
	"hash/fnv"
	"sort"
	"time"
)

// RelevantTerm describes one significant term extracted from an email or a
// prompt, with how often it appeared and a short usage context.
type RelevantTerm struct {
	Frequency int    `json:"frequency"`
	Context   string `json:"context"`
	Type      string `json:"type"`
}

// Email is the stored representation of one message. It is created and
// updated by ingestion only; query-time code treats it as read-only.
type Email struct {
	MessageID      string
	Index          string
	From           string
	To             []string
	Subject        string
	Date           time.Time
	Body           string
	Summary        string
	Embedding      []float32
	RelevantTerms  map[string]RelevantTerm
	ThreadID       string
	InReplyTo      string
	References     []string
	ParentThreadID string
	IsAutomated    bool
	IsNewsletter   bool
	ResolvedPoints int
	PendingPoints  int
	Mailbox        string
}

// IndexFor derives the stable upsert key for a message identifier. The same
// message id always hashes to the same index, which makes re-ingestion
// idempotent.
func IndexFor(messageID string) string {
	h := fnv.New64a()
	h.Write([]byte(messageID))
	const hexdigits = "0123456789abcdef"
	sum := h.Sum64()
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = hexdigits[sum&0xf]
		sum >>= 4
	}
	return string(buf)
}

// TermGroup is one query concept expressed as an OR-set of a term and its
// synonyms.
type TermGroup []string

// GroupsFromTerms converts extracted terms into one single-term group per
// non-name term and collects the extracted names separately. Output order
// is deterministic.
func GroupsFromTerms(terms map[string]RelevantTerm) (groups []TermGroup, names []string) {
	keys := make([]string, 0, len(terms))
	for term := range terms {
		keys = append(keys, term)
	}
	sort.Strings(keys)
	for _, term := range keys {
		if terms[term].Type == "name" {
			names = append(names, term)
			continue
		}
		groups = append(groups, TermGroup{term})
	}
	return groups, names
}

// ScoredEmail is a candidate email annotated with its query-time scores.
type ScoredEmail struct {
	Email       *Email
	Similarity  float64
	Concordance float64
}

// ThreadMember is one email inside a result thread.
type ThreadMember struct {
	Index          string    `json:"index"`
	Subject        string    `json:"subject"`
	Date           time.Time `json:"date"`
	From           string    `json:"from"`
	To             []string  `json:"to"`
	Summary        string    `json:"summary"`
	Concordance    float64   `json:"concordance"`
	Similarity     float64   `json:"similarity"`
	ResolvedPoints int       `json:"resolved_points"`
	PendingPoints  int       `json:"pending_points"`
}

// Thread is a topical group of emails computed for one query. Threads are
// never persisted; they are rebuilt on every invocation.
type Thread struct {
	ID        string         `json:"id"`
	Label     string         `json:"label"`
	Coherence float64        `json:"coherence"`
	Members   []ThreadMember `json:"members"`
}

// FeedbackAction is an explicit user judgement on one result email.
type FeedbackAction string

const (
	ActionValidate FeedbackAction = "validate"
	ActionReject   FeedbackAction = "reject"
)

// FeedbackRecord is one append-only feedback event. Records are never
// mutated or deleted.
type FeedbackRecord struct {
	EmailIndex string
	Query      string
	Action     FeedbackAction
	UserID     string
	Timestamp  time.Time
}

// Feature names of the relevance model, in vector order.
const (
	FeatureTextualSimilarity = "textual_similarity"
	FeatureTermOverlap       = "term_overlap"
	FeatureSubjectSimilarity = "subject_similarity"
	FeatureThreadSize        = "thread_size"
	FeatureNameMatch         = "name_match"
)

// FeatureNames lists the relevance features in their canonical order.
var FeatureNames = []string{
	FeatureTextualSimilarity,
	FeatureTermOverlap,
	FeatureSubjectSimilarity,
	FeatureThreadSize,
	FeatureNameMatch,
}

// FilterWeights is the per-user weighting of the relevance features. The
// weights are non-negative and sum to 1.
type FilterWeights struct {
	UserID    string
	Weights   map[string]float64
	UpdatedAt time.Time
}

// EqualWeights returns the default weighting used before the classifier has
// learned anything useful.
func EqualWeights() map[string]float64 {
	w := make(map[string]float64, len(FeatureNames))
	for _, name := range FeatureNames {
		w[name] = 1.0 / float64(len(FeatureNames))
	}
	return w
}

// User identifies the caller and the mailboxes it may see.
type User struct {
	ID        string
	Mailboxes []string
}

// AnalysisResult is the outcome of one query. When Threads is empty, Reason
// carries a machine-readable cause.
type AnalysisResult struct {
	Threads []Thread `json:"threads"`
	Reason  string   `json:"reason,omitempty"`
}

// Empty-result reasons.
const (
	ReasonNoCandidates = "no_candidates"
	ReasonNoMatch      = "no_similarity_match"
	ReasonNoMailboxes  = "no_mailboxes"
	ReasonNoEmbedding  = "embedding_unavailable"
	ReasonStoreError   = "store_unavailable"
)
