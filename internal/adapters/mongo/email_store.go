// Package mongo implements the document-store ports on MongoDB.
package mongo

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/textutil"
)

const emailCollection = "emails"

// emailDoc is the persisted shape of core.Email. The embedding travels as a
// compressed binary blob and the normalized subject is materialized so
// prefix lookups stay index-friendly.
type emailDoc struct {
	Index             string                       `bson:"_id"`
	MessageID         string                       `bson:"message_id"`
	From              string                       `bson:"from"`
	To                []string                     `bson:"to"`
	Subject           string                       `bson:"subject"`
	NormalizedSubject string                       `bson:"normalized_subject"`
	Date              time.Time                    `bson:"date"`
	Body              string                       `bson:"body"`
	Summary           string                       `bson:"summary"`
	Embedding         primitive.Binary             `bson:"embedding,omitempty"`
	RelevantTerms     map[string]core.RelevantTerm `bson:"relevant_terms"`
	ThreadID          string                       `bson:"thread_id,omitempty"`
	InReplyTo         string                       `bson:"in_reply_to,omitempty"`
	References        []string                     `bson:"references,omitempty"`
	ParentThreadID    string                       `bson:"parent_thread_id,omitempty"`
	IsAutomated       bool                         `bson:"is_automated"`
	IsNewsletter      bool                         `bson:"is_newsletter"`
	ResolvedPoints    int                          `bson:"resolved_points"`
	PendingPoints     int                          `bson:"pending_points"`
	Mailbox           string                       `bson:"mailbox"`
}

// EmailStore implements core.EmailStore on a MongoDB collection.
type EmailStore struct {
	coll   *driver.Collection
	logger *zap.Logger
}

// NewEmailStore creates a new MongoDB email store.
func NewEmailStore(db *driver.Database, logger *zap.Logger) *EmailStore {
	return &EmailStore{
		coll:   db.Collection(emailCollection),
		logger: logger,
	}
}

// EnsureIndexes creates the secondary indexes the store queries rely on.
// Safe to call on every startup; existing indexes are left alone.
func (s *EmailStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []driver.IndexModel{
		{Keys: bson.D{{Key: "mailbox", Value: 1}, {Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "mailbox", Value: 1}, {Key: "normalized_subject", Value: 1}}},
		{Keys: bson.D{{Key: "parent_thread_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create email indexes: %w", err)
	}
	return nil
}

// Search builds one $and of per-group $or clauses: a candidate must match at
// least one term of every group, over subject, summary, body or its mined
// relevant terms. Names match sender or recipients. The mailbox clause is
// always present so a query can never cross user boundaries.
func (s *EmailStore) Search(ctx context.Context, q core.EmailQuery) ([]*core.Email, error) {
	if len(q.Mailboxes) == 0 {
		return nil, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := s.coll.Find(ctx, searchFilter(q), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search emails: %w", err)
	}
	defer cur.Close(ctx)

	return s.decodeAll(ctx, cur)
}

// searchFilter builds the candidate filter for one query.
func searchFilter(q core.EmailQuery) bson.M {
	and := bson.A{bson.M{"mailbox": bson.M{"$in": q.Mailboxes}}}
	for _, group := range q.TermGroups {
		or := bson.A{}
		for _, term := range group {
			pattern := primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
			or = append(or,
				bson.M{"subject": pattern},
				bson.M{"summary": pattern},
				bson.M{"body": pattern},
			)
			if safeTermField(term) {
				or = append(or, bson.M{"relevant_terms." + term: bson.M{"$exists": true}})
			}
		}
		if len(or) > 0 {
			and = append(and, bson.M{"$or": or})
		}
	}
	if len(q.Names) > 0 {
		or := bson.A{}
		for _, name := range q.Names {
			pattern := primitive.Regex{Pattern: regexp.QuoteMeta(name), Options: "i"}
			or = append(or, bson.M{"from": pattern}, bson.M{"to": pattern})
		}
		and = append(and, bson.M{"$or": or})
	}
	return bson.M{"$and": and}
}

// safeTermField reports whether a mined term can be embedded in a document
// field path. A dot or a leading $ would corrupt the path; such terms are
// still covered by the regex clauses.
func safeTermField(term string) bool {
	return term != "" && !strings.HasPrefix(term, "$") && !strings.Contains(term, ".")
}

// Upsert inserts or replaces the email keyed by its index.
func (s *EmailStore) Upsert(ctx context.Context, email *core.Email) error {
	doc, err := toDoc(email)
	if err != nil {
		return err
	}
	_, err = s.coll.ReplaceOne(ctx,
		bson.M{"_id": email.Index},
		doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert email %s: %w", email.Index, err)
	}
	return nil
}

// Update applies fields to every email matching the filter.
func (s *EmailStore) Update(ctx context.Context, match map[string]any, fields map[string]any) (int64, error) {
	res, err := s.coll.UpdateMany(ctx, bson.M(match), bson.M{"$set": bson.M(fields)})
	if err != nil {
		return 0, fmt.Errorf("failed to update emails: %w", err)
	}
	return res.ModifiedCount, nil
}

// FindByIndex returns the email with the given index, or nil.
func (s *EmailStore) FindByIndex(ctx context.Context, index string) (*core.Email, error) {
	var doc emailDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": index}).Decode(&doc)
	if err == driver.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find email %s: %w", index, err)
	}
	return fromDoc(&doc)
}

// FindByMailbox returns up to limit emails of one mailbox, newest first.
func (s *EmailStore) FindByMailbox(ctx context.Context, mailbox string, limit int) ([]*core.Email, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.coll.Find(ctx, bson.M{"mailbox": mailbox}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list mailbox %s: %w", mailbox, err)
	}
	defer cur.Close(ctx)

	return s.decodeAll(ctx, cur)
}

// FindBySubjectPrefix returns the newest email in the mailbox whose
// normalized subject starts with the given normalized subject, excluding the
// caller's own index.
func (s *EmailStore) FindBySubjectPrefix(ctx context.Context, mailbox, normalizedSubject, excludeIndex string) (*core.Email, error) {
	if normalizedSubject == "" {
		return nil, nil
	}
	filter := bson.M{
		"mailbox":            mailbox,
		"_id":                bson.M{"$ne": excludeIndex},
		"normalized_subject": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(normalizedSubject)},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}})

	var doc emailDoc
	err := s.coll.FindOne(ctx, filter, opts).Decode(&doc)
	if err == driver.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find subject match: %w", err)
	}
	return fromDoc(&doc)
}

// CountThreadSiblings returns how many emails share the thread.
func (s *EmailStore) CountThreadSiblings(ctx context.Context, threadID string) (int64, error) {
	if threadID == "" {
		return 0, nil
	}
	n, err := s.coll.CountDocuments(ctx, bson.M{"parent_thread_id": threadID})
	if err != nil {
		return 0, fmt.Errorf("failed to count thread siblings: %w", err)
	}
	return n, nil
}

func (s *EmailStore) decodeAll(ctx context.Context, cur *driver.Cursor) ([]*core.Email, error) {
	var out []*core.Email
	for cur.Next(ctx) {
		var doc emailDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode email: %w", err)
		}
		email, err := fromDoc(&doc)
		if err != nil {
			// A corrupt embedding degrades one candidate, not the query.
			s.logger.Warn("Skipping undecodable email",
				zap.String("email", doc.Index),
				zap.Error(err))
			continue
		}
		out = append(out, email)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor failed: %w", err)
	}
	return out, nil
}

func toDoc(email *core.Email) (*emailDoc, error) {
	compressed, err := compressEmbedding(email.Embedding)
	if err != nil {
		return nil, err
	}
	return &emailDoc{
		Index:             email.Index,
		MessageID:         email.MessageID,
		From:              email.From,
		To:                email.To,
		Subject:           email.Subject,
		NormalizedSubject: textutil.NormalizeSubject(email.Subject),
		Date:              email.Date.UTC(),
		Body:              email.Body,
		Summary:           email.Summary,
		Embedding:         primitive.Binary{Data: compressed},
		RelevantTerms:     email.RelevantTerms,
		ThreadID:          email.ThreadID,
		InReplyTo:         email.InReplyTo,
		References:        email.References,
		ParentThreadID:    email.ParentThreadID,
		IsAutomated:       email.IsAutomated,
		IsNewsletter:      email.IsNewsletter,
		ResolvedPoints:    email.ResolvedPoints,
		PendingPoints:     email.PendingPoints,
		Mailbox:           email.Mailbox,
	}, nil
}

func fromDoc(doc *emailDoc) (*core.Email, error) {
	embedding, err := decompressEmbedding(doc.Embedding.Data)
	if err != nil {
		return nil, err
	}
	return &core.Email{
		MessageID:      doc.MessageID,
		Index:          doc.Index,
		From:           doc.From,
		To:             doc.To,
		Subject:        doc.Subject,
		Date:           doc.Date,
		Body:           doc.Body,
		Summary:        doc.Summary,
		Embedding:      embedding,
		RelevantTerms:  doc.RelevantTerms,
		ThreadID:       doc.ThreadID,
		InReplyTo:      doc.InReplyTo,
		References:     doc.References,
		ParentThreadID: doc.ParentThreadID,
		IsAutomated:    doc.IsAutomated,
		IsNewsletter:   doc.IsNewsletter,
		ResolvedPoints: doc.ResolvedPoints,
		PendingPoints:  doc.PendingPoints,
		Mailbox:        doc.Mailbox,
	}, nil
}
