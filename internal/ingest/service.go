// Package ingest parses raw messages into stored emails: body extraction,
// relevant-term mining, embedding and thread linking.
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/textutil"
	"github.com/mailsift/mailsift/internal/threads"
	"go.uber.org/zap"
)

// Service ingests raw RFC 822 messages into the email store. Ingestion is
// idempotent: the upsert key is a stable hash of the message id, and thread
// resolution is deterministic for unchanged inputs.
type Service struct {
	store         core.EmailStore
	embedder      core.EmbeddingProvider
	resolver      *threads.Resolver
	summaryLength int
	maxTerms      int
	logger        *zap.Logger
}

// NewService creates a new ingest service
func NewService(
	store core.EmailStore,
	embedder core.EmbeddingProvider,
	resolver *threads.Resolver,
	summaryLength int,
	maxTerms int,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:         store,
		embedder:      embedder,
		resolver:      resolver,
		summaryLength: summaryLength,
		maxTerms:      maxTerms,
		logger:        logger,
	}
}

// Ingest parses one raw message, links it to a thread and upserts it under
// the given mailbox. providerThreadID carries a native thread identifier
// when the source protocol exposes one; it is empty for SMTP delivery.
func (s *Service) Ingest(ctx context.Context, r io.Reader, mailbox, providerThreadID string) (*core.Email, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	messageID := messageIDOf(msg.Header, "Message-Id")
	if messageID == "" {
		messageID = uuid.NewString() + "@mailsift.local"
	}

	subject := decodeHeaderWord(msg.Header.Get("Subject"))
	from := headerAddresses(msg.Header, "From")
	date, err := msg.Header.Date()
	if err != nil {
		date = time.Now().UTC()
	}

	body := textutil.SanitizeUTF8(extractBody(msg))

	email := &core.Email{
		MessageID:     messageID,
		Index:         core.IndexFor(messageID),
		To:            headerAddresses(msg.Header, "To"),
		Subject:       subject,
		Date:          date,
		Body:          body,
		Summary:       summarize(body, s.summaryLength),
		RelevantTerms: relevantTerms(subject, body, s.maxTerms),
		ThreadID:      providerThreadID,
		InReplyTo:     messageIDOf(msg.Header, "In-Reply-To"),
		References:    referencesOf(msg.Header),
		Mailbox:       mailbox,
	}
	if len(from) > 0 {
		email.From = from[0]
	}

	embedding, err := s.embedder.Embed(ctx, embeddingText(email))
	if err != nil {
		// Without an embedding the email still threads by headers and
		// subject; only the similarity fallback is unavailable.
		s.logger.Warn("Embedding failed during ingestion",
			zap.String("email", email.Index),
			zap.Error(err))
	} else {
		email.Embedding = embedding
	}

	email.ParentThreadID = s.resolver.Resolve(ctx, email, providerThreadID)

	if err := s.store.Upsert(ctx, email); err != nil {
		return nil, fmt.Errorf("failed to store email: %w", err)
	}

	s.logger.Info("Email ingested",
		zap.String("email", email.Index),
		zap.String("mailbox", mailbox),
		zap.String("thread", email.ParentThreadID))
	return email, nil
}

// embeddingText is the canonical text an email is embedded from. It must
// stay stable across re-ingestion so embeddings are deterministic.
func embeddingText(email *core.Email) string {
	return textutil.TruncateText(email.Subject+"\n"+email.Body, 8000)
}

// summarize takes the first non-blank lines of the body up to maxLen bytes.
func summarize(body string, maxLen int) string {
	var b strings.Builder
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(line)
		if b.Len() >= maxLen {
			break
		}
	}
	return strings.TrimSpace(textutil.TruncateText(b.String(), maxLen))
}

// relevantTerms mines the most frequent content tokens of the message.
func relevantTerms(subject, body string, max int) map[string]core.RelevantTerm {
	tokens := textutil.ContentTokens(subject + " " + body)
	if len(tokens) == 0 {
		return map[string]core.RelevantTerm{}
	}

	freq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freq[t]++
	}

	ordered := make([]string, 0, len(freq))
	for t := range freq {
		ordered = append(ordered, t)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if freq[ordered[i]] != freq[ordered[j]] {
			return freq[ordered[i]] > freq[ordered[j]]
		}
		return ordered[i] < ordered[j]
	})
	if len(ordered) > max {
		ordered = ordered[:max]
	}

	terms := make(map[string]core.RelevantTerm, len(ordered))
	for _, t := range ordered {
		terms[t] = core.RelevantTerm{
			Frequency: freq[t],
			Context:   contextSnippet(body, t),
			Type:      "keyword",
		}
	}
	return terms
}

// contextSnippet returns the line of the body where the term first occurs.
func contextSnippet(body, term string) string {
	folded := strings.ToLower(textutil.FoldAccents(body))
	pos := strings.Index(folded, term)
	if pos < 0 {
		return ""
	}
	start := strings.LastIndexByte(folded[:pos], '\n') + 1
	end := strings.IndexByte(folded[pos:], '\n')
	if end < 0 {
		end = len(folded)
	} else {
		end += pos
	}
	return strings.TrimSpace(textutil.TruncateText(body[start:end], 160))
}
