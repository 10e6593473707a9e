// ABOUTME: Markdown rendering for outgoing Matrix messages via goldmark
// ABOUTME: Adds an HTML formatted body only when Markdown changed the text

package matrix

import (
	"bytes"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"maunium.net/go/mautrix/event"
)

var markdown = goldmark.New()

// renderHTML converts Markdown to HTML. ok is false when the result is just
// the escaped text in a single paragraph, so no formatted body is needed.
func renderHTML(text string) (string, bool) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return "", false
	}
	out := strings.TrimSpace(buf.String())

	plain := "<p>" + html.EscapeString(text) + "</p>"
	if out == plain || out == "" {
		return "", false
	}
	if strings.Count(out, "<p>") == 1 && strings.HasPrefix(out, "<p>") && strings.HasSuffix(out, "</p>") {
		out = strings.TrimSuffix(strings.TrimPrefix(out, "<p>"), "</p>")
	}
	return out, true
}

func textContent(text string) *event.MessageEventContent {
	content := &event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    text,
	}
	if formatted, ok := renderHTML(text); ok {
		content.Format = event.FormatHTML
		content.FormattedBody = formatted
	}
	return content
}
