package smtpd

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"
)

const (
	dialTimeout    = 10 * time.Second
	sessionTimeout = 30 * time.Second
)

// Relay forwards processed messages to a downstream MTA
type Relay struct {
	addr   string
	logger *zap.Logger
}

// NewRelay creates a relay to host:port
func NewRelay(host string, port int, logger *zap.Logger) *Relay {
	return &Relay{
		addr:   net.JoinHostPort(host, strconv.Itoa(port)),
		logger: logger,
	}
}

// Deliver sends one message to the downstream MTA. A rejected recipient
// aborts the transaction before DATA, so no recipient receives a partial copy.
func (r *Relay) Deliver(ctx context.Context, sender string, recipients []string, data []byte) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", r.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", r.addr, err)
	}

	deadline := time.Now().Add(sessionTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			// Nothing has been sent yet, so the whole message can be retried
			if resetErr := c.Reset(); resetErr != nil {
				r.logger.Debug("RSET failed", zap.Error(resetErr))
			}
			return fmt.Errorf("RCPT TO %s failed: %w", recipient, err)
		}
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send message data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		r.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}
