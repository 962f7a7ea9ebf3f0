// Package smtpingest receives messages over SMTP and feeds them to the
// ingest pipeline. It is meant to sit behind an MTA that relays a copy of
// each delivered message.
package smtpingest

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/ingest"
)

// Server is the SMTP ingestion listener.
type Server struct {
	service         *ingest.Service
	logger          *zap.Logger
	listenAddr      string
	maxMessageBytes int64
	server          *smtp.Server
}

// NewServer creates a new SMTP ingestion server
func NewServer(
	service *ingest.Service,
	listenAddr string,
	maxMessageBytes int64,
	logger *zap.Logger,
) *Server {
	return &Server{
		service:         service,
		logger:          logger,
		listenAddr:      listenAddr,
		maxMessageBytes: maxMessageBytes,
	}
}

// Start starts the SMTP listener in a background goroutine.
func (s *Server) Start() error {
	s.server = smtp.NewServer(&smtpBackend{ingest: s})

	s.server.Addr = s.listenAddr
	s.server.Domain = "localhost"
	s.server.ReadTimeout = 30 * time.Second
	s.server.WriteTimeout = 30 * time.Second
	s.server.MaxMessageBytes = s.maxMessageBytes
	s.server.MaxRecipients = 50
	s.server.AllowInsecureAuth = true

	s.logger.Info("SMTP ingestion listener starting", zap.String("address", s.listenAddr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				s.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop stops the SMTP listener
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	ingest *Server
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{
		ingest:     b.ingest,
		recipients: make([]string, 0),
	}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	ingest     *Server
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = make([]string, 0)
}

// AuthPlain handles PLAIN authentication (not needed for ingestion)
func (s *smtpSession) AuthPlain(_ []byte) error {
	return smtp.ErrAuthUnsupported
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data ingests the message once per recipient mailbox. The RCPT address is
// the mailbox: each recipient sees the message in its own corpus.
func (s *smtpSession) Data(r io.Reader) error {
	rawData, err := io.ReadAll(r)
	if err != nil {
		s.ingest.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	for _, recipient := range s.recipients {
		mailbox := strings.ToLower(strings.TrimSpace(recipient))
		// SMTP delivery carries no native thread identifier.
		email, err := s.ingest.service.Ingest(ctx, bytes.NewReader(rawData), mailbox, "")
		if err != nil {
			s.ingest.logger.Error("Failed to ingest email",
				zap.String("mailbox", mailbox),
				zap.String("sender", s.sender),
				zap.Error(err))
			// Other recipients still get their copy.
			continue
		}
		s.ingest.logger.Debug("Ingested over SMTP",
			zap.String("email", email.Index),
			zap.String("mailbox", mailbox))
	}

	return nil
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
