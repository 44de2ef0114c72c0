package mimeparser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/mikey/llm-email-classifier/internal/core"
	"go.uber.org/zap"
)

const (
	defaultContentType = "text/plain"
	maxNestingDepth    = 32
)

// Parser is a core.MessageParser backed by go-message. It decodes transfer
// encodings and charsets, and walks nested multipart containers.
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a new MIME parser
func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger}
}

// ErrTruncatedHeader is returned when the input ends inside the header block
var ErrTruncatedHeader = errors.New("message ends inside the header block")

// Parse reads raw message bytes. Unreadable or truncated headers and an
// undecodable top-level transfer encoding are errors; undecodable leaf parts
// are reported through MessagePart.Err.
func (p *Parser) Parse(raw []byte) (*core.ParsedMessage, error) {
	if truncatedHeader(raw) {
		return nil, ErrTruncatedHeader
	}

	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}

	header := mail.Header{Header: entity.Header}
	msg := &core.ParsedMessage{
		Subject:   headerText(header, "Subject"),
		Sender:    headerText(header, "From"),
		Recipient: headerText(header, "To"),
	}

	if err != nil {
		// Unknown top-level charset: headers are usable, the body is not
		msg.Parts = append(msg.Parts, core.MessagePart{ContentType: mediaType(entity.Header), Err: err})
		return msg, nil
	}

	msg.Parts = p.walk(entity, msg.Parts, 0)
	return msg, nil
}

func (p *Parser) walk(entity *message.Entity, parts []core.MessagePart, depth int) []core.MessagePart {
	if mr := entity.MultipartReader(); mr != nil {
		if depth >= maxNestingDepth {
			p.logger.Warn("Multipart nesting too deep, ignoring container", zap.Int("depth", depth))
			return parts
		}
		for {
			part, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				return parts
			}
			if err != nil {
				if part != nil && (message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)) {
					parts = append(parts, core.MessagePart{ContentType: mediaType(part.Header), Err: err})
					continue
				}
				p.logger.Warn("Failed to read multipart body", zap.Error(err))
				return parts
			}
			parts = p.walk(part, parts, depth+1)
		}
	}

	contentType := mediaType(entity.Header)
	if !strings.HasPrefix(contentType, "text/") {
		return append(parts, core.MessagePart{ContentType: contentType})
	}

	body, err := io.ReadAll(entity.Body)
	if err != nil {
		p.logger.Debug("Skipping undecodable part",
			zap.String("content_type", contentType),
			zap.Error(err))
		return append(parts, core.MessagePart{ContentType: contentType, Err: err})
	}
	return append(parts, core.MessagePart{ContentType: contentType, Text: string(body)})
}

// truncatedHeader reports whether raw stops in the middle of a header line:
// no blank line ends the header block and the last line is unterminated.
func truncatedHeader(raw []byte) bool {
	if len(raw) == 0 || raw[0] == '\n' || bytes.HasPrefix(raw, []byte("\r\n")) {
		return false
	}
	if bytes.Contains(raw, []byte("\n\n")) || bytes.Contains(raw, []byte("\n\r\n")) {
		return false
	}
	return raw[len(raw)-1] != '\n'
}

// mediaType returns the lower-cased media type, defaulting to text/plain when
// the header is absent or invalid.
func mediaType(h message.Header) string {
	if h.Get("Content-Type") == "" {
		return defaultContentType
	}
	t, _, err := h.ContentType()
	if err != nil || t == "" {
		return defaultContentType
	}
	return strings.ToLower(t)
}

// headerText decodes RFC 2047 encoded words, falling back to the raw value
func headerText(h mail.Header, key string) string {
	value, err := h.Text(key)
	if err != nil {
		return h.Get(key)
	}
	return value
}
