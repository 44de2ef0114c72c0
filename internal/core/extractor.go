package core

import (
	"strings"

	"github.com/mikey/llm-email-classifier/internal/utils"
	"github.com/samber/lo"
)

const (
	contentTypePlain = "text/plain"
	contentTypeHTML  = "text/html"
	partSeparator    = "\n\n"
)

// ExtractBody returns the best-effort plain-text body of a parsed message.
// Plain text parts win as a whole; HTML parts are only used, reduced to text,
// when no plain text part decoded. Parts that failed to decode are skipped.
func ExtractBody(msg *ParsedMessage) string {
	if msg == nil {
		return ""
	}

	var plain, markup []string
	for _, part := range msg.Parts {
		if part.Err != nil {
			continue
		}
		switch strings.ToLower(part.ContentType) {
		case contentTypePlain:
			plain = append(plain, part.Text)
		case contentTypeHTML:
			markup = append(markup, part.Text)
		}
	}

	if len(plain) > 0 {
		return strings.TrimSpace(strings.Join(plain, partSeparator))
	}

	reduced := lo.FilterMap(markup, func(m string, _ int) (string, bool) {
		text := utils.HTMLToText(m)
		return text, text != ""
	})
	return strings.TrimSpace(strings.Join(reduced, partSeparator))
}

// CombineText joins subject and body into the text handed to the prompt builder
func CombineText(subject, body string) string {
	return strings.TrimSpace(subject + partSeparator + body)
}
