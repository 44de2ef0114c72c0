package mimeparser

import (
	"strings"
	"testing"

	"github.com/mikey/llm-email-classifier/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

const plainMessage = `From: Alice <alice@example.com>
To: bob@example.com
Subject: Lunch tomorrow?
Content-Type: text/plain; charset=utf-8

Are we still on for lunch?
`

const alternativeMessage = `From: shop@example.com
To: bob@example.com
Subject: Offer
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="XYZ"

--XYZ
Content-Type: text/plain; charset=utf-8

A
--XYZ
Content-Type: text/html; charset=utf-8

<p>B</p>
--XYZ--
`

const htmlOnlyMessage = `From: news@example.com
Subject: Newsletter
Content-Type: text/html; charset=utf-8
Content-Transfer-Encoding: quoted-printable

<p>Hello<br>World</p>
`

const nestedMessage = `From: a@example.com
Subject: =?UTF-8?B?SGVsbG8gw6l0w6k=?=
Content-Type: multipart/mixed; boundary="outer"

--outer
Content-Type: multipart/alternative; boundary="inner"

--inner
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: base64

SW5uZXIgdGV4dA==
--inner--
--outer
Content-Type: application/pdf
Content-Disposition: attachment; filename="doc.pdf"

%PDF-1.4
--outer--
`

func TestParsePlain(t *testing.T) {
	msg, err := NewParser(zap.NewNop()).Parse(crlf(plainMessage))
	require.NoError(t, err)

	assert.Equal(t, "Lunch tomorrow?", msg.Subject)
	assert.Equal(t, "Alice <alice@example.com>", msg.Sender)
	assert.Equal(t, "bob@example.com", msg.Recipient)
	require.Len(t, msg.Parts, 1)
	assert.Equal(t, "text/plain", msg.Parts[0].ContentType)
	assert.Contains(t, msg.Parts[0].Text, "Are we still on for lunch?")
	assert.Equal(t, "Are we still on for lunch?", core.ExtractBody(msg))
}

func TestParseAlternativePrefersPlain(t *testing.T) {
	msg, err := NewParser(zap.NewNop()).Parse(crlf(alternativeMessage))
	require.NoError(t, err)

	require.Len(t, msg.Parts, 2)
	assert.Equal(t, "A", core.ExtractBody(msg))
}

func TestParseHTMLOnly(t *testing.T) {
	msg, err := NewParser(zap.NewNop()).Parse(crlf(htmlOnlyMessage))
	require.NoError(t, err)

	body := core.ExtractBody(msg)
	assert.Contains(t, body, "Hello")
	assert.Contains(t, body, "World")
	assert.Contains(t, body, "\n")
	assert.NotContains(t, body, "<")
	assert.NotContains(t, body, ">")
}

func TestParseNestedMultipart(t *testing.T) {
	msg, err := NewParser(zap.NewNop()).Parse(crlf(nestedMessage))
	require.NoError(t, err)

	assert.Equal(t, "Hello été", msg.Subject)
	require.Len(t, msg.Parts, 2)
	assert.Equal(t, "text/plain", msg.Parts[0].ContentType)
	assert.Equal(t, "Inner text", msg.Parts[0].Text)
	assert.Equal(t, "application/pdf", msg.Parts[1].ContentType)
	assert.Empty(t, msg.Parts[1].Text)
}

func TestParseMissingHeaders(t *testing.T) {
	msg, err := NewParser(zap.NewNop()).Parse(crlf("Content-Type: text/plain\n\nbody only\n"))
	require.NoError(t, err)

	assert.Empty(t, msg.Subject)
	assert.Empty(t, msg.Sender)
	assert.Empty(t, msg.Recipient)
	assert.Equal(t, "body only", core.ExtractBody(msg))
}

func TestParseMalformed(t *testing.T) {
	_, err := NewParser(zap.NewNop()).Parse(crlf("Subject: broken\nthis line is not a header\n\nbody\n"))
	assert.Error(t, err)
}

func TestParseIsIdempotent(t *testing.T) {
	parser := NewParser(zap.NewNop())
	raw := crlf(nestedMessage)

	first, err := parser.Parse(raw)
	require.NoError(t, err)
	second, err := parser.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, core.ExtractBody(first), core.ExtractBody(second))
}

const badPlainPartsMessage = `From: shop@example.com
Subject: Offer
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="XYZ"

--XYZ
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: x-bogus

A
--XYZ
Content-Type: text/plain; charset=x-unknown-zz

A
--XYZ
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: base64

@@@@
--XYZ
Content-Type: text/html; charset=utf-8

<p>B</p>
--XYZ--
`

func TestParseUnknownTransferEncoding(t *testing.T) {
	_, err := NewParser(zap.NewNop()).Parse(crlf("Subject: x\nContent-Transfer-Encoding: x-bogus\n\nbody\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "x-bogus")
}

func TestParseUndecodablePartsFallBackToHTML(t *testing.T) {
	msg, err := NewParser(zap.NewNop()).Parse(crlf(badPlainPartsMessage))
	require.NoError(t, err)

	require.Len(t, msg.Parts, 4)
	for _, part := range msg.Parts[:3] {
		assert.Equal(t, "text/plain", part.ContentType)
		assert.Error(t, part.Err)
	}
	assert.NoError(t, msg.Parts[3].Err)
	assert.Equal(t, "B", core.ExtractBody(msg))
}

func TestParseUnknownTopLevelCharset(t *testing.T) {
	raw := crlf("From: a@example.com\nSubject: Greetings\nContent-Type: text/plain; charset=x-unknown-zz\n\nhello\n")

	msg, err := NewParser(zap.NewNop()).Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "Greetings", msg.Subject)
	assert.Equal(t, "a@example.com", msg.Sender)
	require.Len(t, msg.Parts, 1)
	assert.Error(t, msg.Parts[0].Err)
	assert.Empty(t, core.ExtractBody(msg))
}

func TestParseTruncatedHeader(t *testing.T) {
	parser := NewParser(zap.NewNop())

	_, err := parser.Parse([]byte("Subject: Hello\r\nFrom: a@b"))
	assert.ErrorIs(t, err, ErrTruncatedHeader)

	msg, err := parser.Parse([]byte("Subject: Hello\r\nFrom: a@b\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", msg.Subject)
}
