package utils

import (
	"html"
	"regexp"
	"strings"
)

var (
	scriptBlockRe   = regexp.MustCompile(`(?is)<script[\s\S]*?</script>`)
	styleBlockRe    = regexp.MustCompile(`(?is)<style[\s\S]*?</style>`)
	lineBreakRe     = regexp.MustCompile(`(?i)<br\s*/?>`)
	paragraphEndRe  = regexp.MustCompile(`(?i)</p>`)
	anyTagRe        = regexp.MustCompile(`<[^>]+>`)
	inlineSpaceRe   = regexp.MustCompile(`[\t\r\f]+`)
	blankLineRunsRe = regexp.MustCompile(`\n[\s\p{Zs}]*\n[\s\p{Zs}]*\n+`)
)

// HTMLToText reduces HTML markup to readable plain text. The conversion is
// lossy: script and style blocks are dropped, line and paragraph breaks are
// kept, every other tag becomes a space and entities are decoded.
func HTMLToText(markup string) string {
	if markup == "" {
		return ""
	}

	text := scriptBlockRe.ReplaceAllString(markup, " ")
	text = styleBlockRe.ReplaceAllString(text, " ")
	text = lineBreakRe.ReplaceAllString(text, "\n")
	text = paragraphEndRe.ReplaceAllString(text, "\n\n")
	text = anyTagRe.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	text = inlineSpaceRe.ReplaceAllString(text, " ")
	text = blankLineRunsRe.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
