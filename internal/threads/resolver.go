package threads

import (
	"context"

	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/textutil"
	"go.uber.org/zap"
)

// Resolver assigns a parent thread to a newly ingested email using a
// priority chain of linking signals. Resolution is deterministic for
// unchanged inputs, so re-running it on an already-linked email does not
// move the email to a different thread.
type Resolver struct {
	store         core.EmailStore
	linkThreshold float64
	linkWindow    int
	logger        *zap.Logger
}

// NewResolver creates a new thread resolver. linkWindow bounds how many of
// the mailbox's newest emails the embedding fallback scans.
func NewResolver(store core.EmailStore, linkThreshold float64, linkWindow int, logger *zap.Logger) *Resolver {
	return &Resolver{
		store:         store,
		linkThreshold: linkThreshold,
		linkWindow:    linkWindow,
		logger:        logger,
	}
}

// Resolve returns the parent thread identifier for the email. The chain, in
// priority order: native provider thread id, In-Reply-To header, stored
// email with a matching normalized-subject prefix in the same mailbox,
// embedding-similar email sharing a correspondent, and finally the email's
// own message id as the root of a new thread.
func (r *Resolver) Resolve(ctx context.Context, email *core.Email, providerThreadID string) string {
	if providerThreadID != "" {
		return providerThreadID
	}

	if email.InReplyTo != "" {
		return r.byReplyHeader(ctx, email)
	}

	if id := r.bySubject(ctx, email); id != "" {
		return id
	}

	if id := r.byEmbedding(ctx, email); id != "" {
		return id
	}

	// Root of a new thread.
	return email.MessageID
}

// byReplyHeader follows the In-Reply-To header: the parent's thread when the
// parent is stored, the header value itself otherwise (the parent, as a
// root, is its own thread).
func (r *Resolver) byReplyHeader(ctx context.Context, email *core.Email) string {
	parent, err := r.store.FindByIndex(ctx, core.IndexFor(email.InReplyTo))
	if err != nil {
		r.logger.Warn("Parent lookup failed, using reply header value",
			zap.String("in_reply_to", email.InReplyTo),
			zap.Error(err))
	}
	if parent != nil && parent.ParentThreadID != "" {
		return parent.ParentThreadID
	}
	return email.InReplyTo
}

func (r *Resolver) bySubject(ctx context.Context, email *core.Email) string {
	normalized := textutil.NormalizeSubject(email.Subject)
	if normalized == "" {
		return ""
	}
	match, err := r.store.FindBySubjectPrefix(ctx, email.Mailbox, normalized, email.Index)
	if err != nil {
		r.logger.Warn("Subject lookup failed", zap.Error(err))
		return ""
	}
	if match == nil {
		return ""
	}
	if match.ParentThreadID != "" {
		return match.ParentThreadID
	}
	return match.MessageID
}

// byEmbedding links to the most similar stored email of the same mailbox,
// provided the similarity clears the link threshold and the two emails
// share an exact from or to address. Only the linkWindow newest emails of
// the mailbox are considered; an older email can never win the comparison.
func (r *Resolver) byEmbedding(ctx context.Context, email *core.Email) string {
	if len(email.Embedding) == 0 {
		return ""
	}
	stored, err := r.store.FindByMailbox(ctx, email.Mailbox, r.linkWindow)
	if err != nil {
		r.logger.Warn("Mailbox scan failed", zap.Error(err))
		return ""
	}

	var best *core.Email
	bestSim := r.linkThreshold
	for _, candidate := range stored {
		if candidate.Index == email.Index {
			continue
		}
		if !sharesCorrespondent(email, candidate) {
			continue
		}
		sim := textutil.Cosine(email.Embedding, candidate.Embedding)
		if sim > bestSim {
			bestSim = sim
			best = candidate
		}
	}
	if best == nil {
		return ""
	}
	r.logger.Debug("Linked thread by embedding",
		zap.String("email", email.Index),
		zap.String("linked_to", best.Index),
		zap.Float64("similarity", bestSim))
	if best.ParentThreadID != "" {
		return best.ParentThreadID
	}
	return best.MessageID
}

// sharesCorrespondent reports whether the two emails share the exact from
// address or any exact to address.
func sharesCorrespondent(a, b *core.Email) bool {
	if a.From != "" && a.From == b.From {
		return true
	}
	for _, at := range a.To {
		if at == "" {
			continue
		}
		for _, bt := range b.To {
			if at == bt {
				return true
			}
		}
	}
	return false
}
