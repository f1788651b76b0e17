package filter

import (
	"context"
	"strings"

	"golang.org/x/net/html"

	"github.com/agentcloak/mailproxy/types"
)

const htmlWrapWidth = 120

// Sanitizer produces a plaintext-only, control-character-free message
// (spec.md §4.2). It always returns Pass — sanitization is declared
// part of normalization, not a redaction policy, even when it changes
// the text.
type Sanitizer struct{}

// NewSanitizer constructs the sanitizer stage.
func NewSanitizer() *Sanitizer { return &Sanitizer{} }

func (*Sanitizer) Name() string { return "sanitizer" }

func (s *Sanitizer) Process(_ context.Context, msg types.EmailMessage, _ types.FilterConfig) Verdict {
	out := msg.Clone()

	if out.HTMLBody != "" && out.Body == "" {
		out.Body = htmlToText(out.HTMLBody)
	}
	out.HTMLBody = ""

	out.Body = stripInvisible(out.Body)
	out.Subject = stripInvisible(out.Subject)
	out.Snippet = stripInvisible(out.Snippet)

	return Verdict{Action: ActionPass, Message: out}
}

// htmlToText converts an HTML body to wrapped plaintext: links whose
// href equals their visible text are rendered bare (no duplicate URL),
// img/style/script subtrees are skipped entirely, and the result is
// word-wrapped at htmlWrapWidth columns.
func htmlToText(body string) string {
	node, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return body
	}
	var b strings.Builder
	walkHTML(node, &b)
	return wrapText(collapseBlankLines(b.String()), htmlWrapWidth)
}

func walkHTML(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "img":
			return
		case "br":
			b.WriteByte('\n')
			return
		case "a":
			writeLink(n, b)
			return
		case "p", "div", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6":
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walkHTML(c, b)
			}
			b.WriteString("\n\n")
			return
		}
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkHTML(c, b)
	}
}

func writeLink(n *html.Node, b *strings.Builder) {
	href := attr(n, "href")
	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkHTML(c, &text)
	}
	linkText := strings.TrimSpace(text.String())
	if href == "" || href == linkText {
		b.WriteString(linkText)
		return
	}
	b.WriteString(linkText)
	b.WriteString(" (")
	b.WriteString(href)
	b.WriteString(")")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, trimmed)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func wrapText(s string, width int) string {
	paragraphs := strings.Split(s, "\n")
	wrapped := make([]string, 0, len(paragraphs))
	for _, para := range paragraphs {
		wrapped = append(wrapped, wrapLine(para, width))
	}
	return strings.Join(wrapped, "\n")
}

func wrapLine(line string, width int) string {
	words := strings.Fields(line)
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	lineLen := 0
	for i, word := range words {
		if i > 0 {
			if lineLen+1+len(word) > width {
				b.WriteByte('\n')
				lineLen = 0
			} else {
				b.WriteByte(' ')
				lineLen++
			}
		}
		b.WriteString(word)
		lineLen += len(word)
	}
	return b.String()
}
