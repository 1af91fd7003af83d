// Package sanitize turns model-generated text into plain text that is safe to
// store and to show in chat replies and the live feed.
package sanitize

import (
	"bytes"
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	blockBreakRe = regexp.MustCompile(`<br\s*/?>|</?p>|</?div>|</?pre>|</?li>|</?h[1-6]>`)
	blankLinesRe = regexp.MustCompile(`\n\s*\n+`)
	spacesRe     = regexp.MustCompile(`[ \t]+`)
)

// Policy strips markdown and HTML from text.
type Policy struct {
	policy   *bluemonday.Policy
	markdown goldmark.Markdown
}

func NewPolicy() *Policy {
	return &Policy{
		policy:   bluemonday.StrictPolicy(),
		markdown: goldmark.New(),
	}
}

// Text renders markdown, drops every tag and unescapes entities. Paragraph
// breaks survive as single blank lines.
func (p *Policy) Text(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := p.markdown.Convert([]byte(text), &buf); err != nil {
		return strings.TrimSpace(text)
	}

	out := blockBreakRe.ReplaceAllString(buf.String(), "\n")
	out = p.policy.Sanitize(out)
	out = html.UnescapeString(out)
	out = spacesRe.ReplaceAllString(out, " ")
	out = blankLinesRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// Line is Text collapsed onto one line, for names and titles.
func (p *Policy) Line(text string) string {
	return strings.Join(strings.Fields(p.Text(text)), " ")
}

var (
	defaultOnce   sync.Once
	defaultPolicy *Policy
)

func policy() *Policy {
	defaultOnce.Do(func() { defaultPolicy = NewPolicy() })
	return defaultPolicy
}

// Text applies the shared policy.
func Text(text string) string { return policy().Text(text) }

// Line applies the shared policy.
func Line(text string) string { return policy().Line(text) }
