package smtpd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/mikey/llm-email-classifier/internal/config"
	"github.com/mikey/llm-email-classifier/internal/core"
	"github.com/mikey/llm-email-classifier/internal/whitelist"
	"go.uber.org/zap"
)

const (
	defaultLabelHeader = "X-Email-Classification"
	defaultScoreHeader = "X-Email-Classification-Score"
	maxMessageBytes    = 30 * 1024 * 1024
	maxRecipients      = 50
)

// Classifier is the part of the classification service the listener uses
type Classifier interface {
	Classify(ctx context.Context, raw []byte, fileName string) *core.ClassificationResult
}

// Deliverer hands a processed message to the next hop
type Deliverer interface {
	Deliver(ctx context.Context, sender string, recipients []string, data []byte) error
}

// Server is an SMTP content filter: every message it receives is classified,
// stamped with the result headers and handed to the deliverer.
type Server struct {
	service        Classifier
	trusted        *whitelist.Checker
	relay          Deliverer
	logger         *zap.Logger
	listenAddr     string
	labelHeader    string
	scoreHeader    string
	errorHeader    string
	requestTimeout time.Duration

	mu       sync.Mutex
	server   *smtp.Server
	listener net.Listener
}

// NewServer creates a new SMTP intake. relay may be nil, in which case
// processed messages are only logged.
func NewServer(
	service Classifier,
	cfg config.SMTPConfig,
	requestTimeout time.Duration,
	trusted *whitelist.Checker,
	relay Deliverer,
	logger *zap.Logger,
) *Server {
	labelHeader := cfg.LabelHeader
	if labelHeader == "" {
		labelHeader = defaultLabelHeader
	}
	scoreHeader := cfg.ScoreHeader
	if scoreHeader == "" {
		scoreHeader = defaultScoreHeader
	}
	if trusted == nil {
		trusted = whitelist.NewChecker(nil, logger)
	}

	return &Server{
		service:        service,
		trusted:        trusted,
		relay:          relay,
		logger:         logger,
		listenAddr:     cfg.ListenAddress,
		labelHeader:    labelHeader,
		scoreHeader:    scoreHeader,
		errorHeader:    labelHeader + "-Error",
		requestTimeout: requestTimeout,
	}
}

// Start binds the listen address and accepts SMTP sessions in the background
func (s *Server) Start() error {
	server := smtp.NewServer(&backend{server: s})
	server.Addr = s.listenAddr
	server.Domain = "localhost"
	server.ReadTimeout = 30 * time.Second
	server.WriteTimeout = 30 * time.Second
	server.MaxMessageBytes = maxMessageBytes
	server.MaxRecipients = maxRecipients

	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.listenAddr, err)
	}

	s.mu.Lock()
	s.server = server
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("SMTP intake starting", zap.String("address", ln.Addr().String()))

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			s.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound address, or an empty string before Start
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop closes the listener and every open session
func (s *Server) Stop() error {
	s.mu.Lock()
	server := s.server
	s.mu.Unlock()

	if server == nil {
		return nil
	}
	s.logger.Info("Stopping SMTP intake")
	return server.Close()
}

// Process classifies one message and returns it with the result headers
// prepended. Messages from trusted domains are returned unchanged.
func (s *Server) Process(ctx context.Context, sender string, raw []byte) ([]byte, *core.ClassificationResult) {
	if s.trusted.IsWhitelisted(sender) {
		s.logger.Info("Skipping classification for trusted sender", zap.String("from", sender))
		return raw, nil
	}

	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	result := s.service.Classify(ctx, raw, "smtp-"+uuid.NewString())

	var stamped bytes.Buffer
	if result.HasLabel() {
		writeHeader(&stamped, s.labelHeader, result.Label)
		writeHeader(&stamped, s.scoreHeader, fmt.Sprintf("%.4f", result.TopScore()))
	}
	if result.Failed() {
		writeHeader(&stamped, s.errorHeader, result.Error)
	}
	stamped.Write(raw)

	return stamped.Bytes(), result
}

// writeHeader writes a single-line header; line breaks in the value are
// folded into spaces so the value cannot inject further headers.
func writeHeader(w *bytes.Buffer, name, value string) {
	value = strings.Join(strings.Fields(value), " ")
	fmt.Fprintf(w, "%s: %s\r\n", name, value)
}

type backend struct {
	server *Server
}

// NewSession creates a new SMTP session
func (b *backend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &session{server: b.server}, nil
}

// session implements the go-smtp Session interface
type session struct {
	server     *Server
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *session) Reset() {
	s.sender = ""
	s.recipients = nil
}

// Mail sets the sender address
func (s *session) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *session) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data classifies the message and forwards it
func (s *session) Data(r io.Reader) error {
	logger := s.server.logger

	raw, err := io.ReadAll(r)
	if err != nil {
		logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	ctx := context.Background()
	data, result := s.server.Process(ctx, s.sender, raw)

	if s.server.relay == nil {
		logger.Warn("Forwarding disabled, message not relayed", zap.String("from", s.sender))
	} else if err := s.server.relay.Deliver(ctx, s.sender, s.recipients, data); err != nil {
		logger.Error("Failed to forward message",
			zap.Error(err),
			zap.String("from", s.sender))
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 4, 1},
			Message:      "Downstream delivery failed, try again later",
		}
	}

	fields := []zap.Field{
		zap.String("from", s.sender),
		zap.Int("recipients", len(s.recipients)),
	}
	if result != nil {
		fields = append(fields,
			zap.String("classification", result.Label),
			zap.Float64("score", result.TopScore()),
			zap.String("error", result.Error),
			zap.String("model", result.ModelVersion))
	}
	logger.Info("Processed message", fields...)

	return nil
}

// Logout handles SMTP logout
func (s *session) Logout() error {
	return nil
}
