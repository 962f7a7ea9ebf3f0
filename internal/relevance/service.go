package relevance

import (
	"context"
	"fmt"
	"time"

	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/expand"
	"go.uber.org/zap"
)

// FeedbackService records feedback events and drives the online relevance
// model. The record is made durable before any model work: everything after
// the insert is best-effort and degrades to "no weight update performed".
type FeedbackService struct {
	emails    core.EmailStore
	feedback  core.FeedbackStore
	weights   core.WeightsStore
	registry  *Registry
	terms     core.TermExtractor
	extractor Extractor
	logger    *zap.Logger
}

// NewFeedbackService creates a new feedback service. terms may be nil; the
// heuristic name extraction is used then.
func NewFeedbackService(
	emails core.EmailStore,
	feedback core.FeedbackStore,
	weights core.WeightsStore,
	registry *Registry,
	terms core.TermExtractor,
	logger *zap.Logger,
) *FeedbackService {
	return &FeedbackService{
		emails:   emails,
		feedback: feedback,
		weights:  weights,
		registry: registry,
		terms:    terms,
		logger:   logger,
	}
}

// Submit stores one feedback record and updates the user's model. Each call
// inserts a new record; repeated identical feedback is not deduplicated.
func (s *FeedbackService) Submit(ctx context.Context, emailIndex, query string, action core.FeedbackAction, user core.User) error {
	if action != core.ActionValidate && action != core.ActionReject {
		return fmt.Errorf("unknown feedback action %q", action)
	}

	rec := &core.FeedbackRecord{
		EmailIndex: emailIndex,
		Query:      query,
		Action:     action,
		UserID:     user.ID,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.feedback.Insert(ctx, rec); err != nil {
		return fmt.Errorf("failed to store feedback record: %w", err)
	}

	email, err := s.emails.FindByIndex(ctx, emailIndex)
	if err != nil || email == nil {
		s.logger.Warn("Feedback email not loadable, no weight update performed",
			zap.String("email_index", emailIndex),
			zap.Error(err))
		return nil
	}

	siblings := 0
	if email.ParentThreadID != "" {
		if n, err := s.emails.CountThreadSiblings(ctx, email.ParentThreadID); err == nil {
			siblings = int(n)
		}
	}

	features := s.extractor.Features(query, s.queryNames(ctx, query), email, siblings)

	label := 0
	if action == core.ActionValidate {
		label = 1
	}

	weights, ok := s.registry.ForUser(user.ID).Update(features, label)
	if !ok {
		s.logger.Debug("Classifier not yet fit for both classes, keeping prior weights",
			zap.String("user", user.ID))
		return nil
	}

	if err := s.weights.Put(ctx, &core.FilterWeights{
		UserID:    user.ID,
		Weights:   weights,
		UpdatedAt: time.Now().UTC(),
	}); err != nil {
		s.logger.Error("Failed to persist filter weights, no weight update performed",
			zap.String("user", user.ID),
			zap.Error(err))
	}
	return nil
}

// queryNames extracts the proper names of the query the same way the
// ranking path does. The extractor's prompt cache makes the names identical
// to the ones the query was analyzed with; without an extractor, or when it
// fails, the heuristic extraction applies.
func (s *FeedbackService) queryNames(ctx context.Context, query string) []string {
	if s.terms != nil {
		extracted, err := s.terms.Extract(ctx, query)
		if err == nil {
			_, names := core.GroupsFromTerms(extracted)
			return names
		}
		s.logger.Warn("Term extraction failed for feedback, falling back to heuristic names",
			zap.Error(err))
	}
	_, names := core.GroupsFromTerms(expand.HeuristicTerms(query))
	return names
}

// WeightsFor returns the user's persisted weights, or equal weights when
// none exist yet.
func (s *FeedbackService) WeightsFor(ctx context.Context, userID string) map[string]float64 {
	stored, err := s.weights.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to load filter weights, using defaults",
			zap.String("user", userID),
			zap.Error(err))
		return core.EqualWeights()
	}
	if stored == nil || len(stored.Weights) == 0 {
		return core.EqualWeights()
	}
	return stored.Weights
}
