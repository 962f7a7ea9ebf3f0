// Package threads groups emails into conversations: at ingestion time by a
// priority chain of linking signals, at query time by density clustering of
// the filtered candidate set.
package threads

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/textutil"
	"go.uber.org/zap"
)

// Builder partitions filtered candidates into topical threads. Candidates
// carrying an existing thread identifier keep it; the rest are clustered
// over a pairwise cosine-distance matrix.
type Builder struct {
	epsilon        float64
	minPoints      int
	mergeThreshold float64
	logger         *zap.Logger
}

// NewBuilder creates a new thread builder
func NewBuilder(epsilon float64, minPoints int, mergeThreshold float64, logger *zap.Logger) *Builder {
	return &Builder{
		epsilon:        epsilon,
		minPoints:      minPoints,
		mergeThreshold: mergeThreshold,
		logger:         logger,
	}
}

// draft is a thread under construction.
type draft struct {
	id      string
	members []core.ScoredEmail
}

// Build returns the result threads for one query's filtered candidates.
func (b *Builder) Build(candidates []core.ScoredEmail) []core.Thread {
	if len(candidates) == 0 {
		return nil
	}

	// A single candidate is its own thread; clustering is never invoked.
	if len(candidates) == 1 {
		only := candidates[0]
		id := only.Email.ThreadID
		if id == "" {
			id = only.Email.MessageID
		}
		return b.finalize([]draft{{id: id, members: candidates}})
	}

	// Candidates with a pre-existing thread identifier bypass clustering.
	buckets := make(map[string][]core.ScoredEmail)
	var unassigned []core.ScoredEmail
	for _, c := range candidates {
		if c.Email.ThreadID != "" {
			buckets[c.Email.ThreadID] = append(buckets[c.Email.ThreadID], c)
		} else {
			unassigned = append(unassigned, c)
		}
	}

	bucketIDs := make([]string, 0, len(buckets))
	for id := range buckets {
		bucketIDs = append(bucketIDs, id)
	}
	sort.Strings(bucketIDs)

	drafts := make([]draft, 0, len(buckets)+4)
	for _, id := range bucketIDs {
		drafts = append(drafts, draft{id: id, members: buckets[id]})
	}

	if len(unassigned) > 0 {
		drafts = append(drafts, b.cluster(unassigned)...)
	}

	drafts = b.mergeSingletons(drafts)
	return b.finalize(drafts)
}

// cluster runs DBSCAN over the unassigned candidates. Noise points are
// dropped: an email without an existing thread identifier that joins no
// dense group is excluded from the result.
func (b *Builder) cluster(unassigned []core.ScoredEmail) []draft {
	dist := distanceMatrix(unassigned)
	labels := dbscan(dist, b.epsilon, b.minPoints)

	clusters := make(map[int][]core.ScoredEmail)
	noise := 0
	for i, label := range labels {
		if label < 0 {
			noise++
			continue
		}
		clusters[label] = append(clusters[label], unassigned[i])
	}
	if noise > 0 {
		b.logger.Debug("Dropped noise candidates", zap.Int("count", noise))
	}

	labelIDs := make([]int, 0, len(clusters))
	for label := range clusters {
		labelIDs = append(labelIDs, label)
	}
	sort.Ints(labelIDs)

	drafts := make([]draft, 0, len(clusters))
	for _, label := range labelIDs {
		drafts = append(drafts, draft{
			id:      "cluster-" + uuid.NewString(),
			members: clusters[label],
		})
	}
	return drafts
}

// mergeSingletons folds undersized threads into their nearest sufficiently
// similar neighbor thread. A singleton whose best match stays below the
// merge threshold is kept standalone.
func (b *Builder) mergeSingletons(drafts []draft) []draft {
	if len(drafts) <= 1 {
		return drafts
	}

	var kept []draft
	var singles []draft
	for _, d := range drafts {
		if len(d.members) < 2 {
			singles = append(singles, d)
		} else {
			kept = append(kept, d)
		}
	}
	if len(singles) == 0 || len(kept) == 0 {
		return drafts
	}

	for _, single := range singles {
		mean := meanEmbedding(single.members)
		best := -1
		bestSim := b.mergeThreshold
		for i := range kept {
			sim := textutil.Cosine(mean, meanEmbedding(kept[i].members))
			if sim > bestSim {
				bestSim = sim
				best = i
			}
		}
		if best >= 0 {
			kept[best].members = append(kept[best].members, single.members...)
			b.logger.Debug("Merged singleton thread",
				zap.String("into", kept[best].id),
				zap.Float64("similarity", bestSim))
		} else {
			kept = append(kept, single)
		}
	}
	return kept
}

// finalize orders members by date, computes coherence and derives labels.
func (b *Builder) finalize(drafts []draft) []core.Thread {
	threads := make([]core.Thread, 0, len(drafts))
	for _, d := range drafts {
		sort.SliceStable(d.members, func(i, j int) bool {
			return d.members[i].Email.Date.Before(d.members[j].Email.Date)
		})
		members := make([]core.ThreadMember, len(d.members))
		for i, m := range d.members {
			members[i] = core.ThreadMember{
				Index:          m.Email.Index,
				Subject:        m.Email.Subject,
				Date:           m.Email.Date,
				From:           m.Email.From,
				To:             m.Email.To,
				Summary:        m.Email.Summary,
				Concordance:    m.Concordance,
				Similarity:     m.Similarity,
				ResolvedPoints: m.Email.ResolvedPoints,
				PendingPoints:  m.Email.PendingPoints,
			}
		}
		threads = append(threads, core.Thread{
			ID:        d.id,
			Label:     labelFor(d.members),
			Coherence: coherence(d.members),
			Members:   members,
		})
	}
	return threads
}

// labelFor derives a human-readable label: the shared normalized subject
// when every member agrees on one, otherwise the top-3 relevant terms.
func labelFor(members []core.ScoredEmail) string {
	shared := textutil.NormalizeSubject(members[0].Email.Subject)
	unique := shared != ""
	for _, m := range members[1:] {
		if textutil.NormalizeSubject(m.Email.Subject) != shared {
			unique = false
			break
		}
	}
	if unique {
		return shared
	}

	freq := make(map[string]int)
	for _, m := range members {
		for term, info := range m.Email.RelevantTerms {
			freq[term] += info.Frequency
		}
	}
	terms := make([]string, 0, len(freq))
	for term := range freq {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > 3 {
		terms = terms[:3]
	}
	if len(terms) == 0 {
		return shared
	}
	return strings.Join(terms, ", ")
}

// coherence is the mean pairwise cosine similarity among member embeddings.
// A singleton thread is perfectly coherent by definition.
func coherence(members []core.ScoredEmail) float64 {
	if len(members) < 2 {
		return 1.0
	}
	var sum float64
	pairs := 0
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			sum += textutil.Cosine(members[i].Email.Embedding, members[j].Email.Embedding)
			pairs++
		}
	}
	return sum / float64(pairs)
}

// distanceMatrix builds the symmetric 1−cosine matrix with a zero diagonal.
func distanceMatrix(candidates []core.ScoredEmail) [][]float64 {
	n := len(candidates)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := 1 - textutil.Cosine(candidates[i].Email.Embedding, candidates[j].Email.Embedding)
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist
}

func meanEmbedding(members []core.ScoredEmail) []float32 {
	vectors := make([][]float32, 0, len(members))
	for _, m := range members {
		vectors = append(vectors, m.Email.Embedding)
	}
	return textutil.MeanVector(vectors)
}
