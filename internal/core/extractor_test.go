package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractBody(t *testing.T) {
	tests := []struct {
		name  string
		parts []MessagePart
		want  string
	}{
		{
			name: "plain parts joined",
			parts: []MessagePart{
				{ContentType: "text/plain", Text: "  first"},
				{ContentType: "text/plain", Text: "second  "},
			},
			want: "first\n\nsecond",
		},
		{
			name: "plain wins over html",
			parts: []MessagePart{
				{ContentType: "text/plain", Text: "A"},
				{ContentType: "text/html", Text: "<p>B</p>"},
			},
			want: "A",
		},
		{
			name: "html fallback",
			parts: []MessagePart{
				{ContentType: "text/html", Text: "<p>Hello<br>World</p>"},
			},
			want: "Hello\nWorld",
		},
		{
			name: "blank html dropped",
			parts: []MessagePart{
				{ContentType: "text/html", Text: "<div> </div>"},
				{ContentType: "text/html", Text: "<b>kept</b>"},
			},
			want: "kept",
		},
		{
			name: "undecodable part skipped",
			parts: []MessagePart{
				{ContentType: "text/plain", Err: errors.New("bad charset")},
				{ContentType: "text/html", Text: "<i>fallback</i>"},
			},
			want: "fallback",
		},
		{
			name: "attachments ignored",
			parts: []MessagePart{
				{ContentType: "application/pdf", Text: "%PDF"},
				{ContentType: "image/png", Text: "binary"},
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractBody(&ParsedMessage{Parts: tt.parts}))
		})
	}
}

func TestExtractBodyNil(t *testing.T) {
	assert.Equal(t, "", ExtractBody(nil))
}

func TestCombineText(t *testing.T) {
	assert.Equal(t, "Subject\n\nBody", CombineText("Subject", "Body"))
	assert.Equal(t, "Body", CombineText("", "Body"))
	assert.Equal(t, "Subject", CombineText("Subject", ""))
	assert.Equal(t, "", CombineText(" ", " "))
}
