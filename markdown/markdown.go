// Package markdown renders entry bodies from Markdown to sanitized HTML.
package markdown

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
	bm "github.com/microcosm-cc/bluemonday"
	bf "github.com/russross/blackfriday"
)

var policy = newPolicy()

func newPolicy() *bm.Policy {
	p := bm.UGCPolicy()
	p.AllowAttrs("class").Matching(bm.SpaceSeparatedTokens).OnElements("code", "pre", "span", "div")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// HTML converts md to HTML and strips anything the UGC policy does not
// allow.
func HTML(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	out := bf.MarkdownCommon([]byte(md))
	return string(policy.SanitizeBytes(out))
}

// Markdown returns a templ.Component that renders md as HTML.
func Markdown(md string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, HTML(md))
		return err
	})
}

// Excerpt returns the first paragraph of md as plain text, cut to max
// runes on a word boundary.
func Excerpt(md string, max int) string {
	var para []string
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if len(para) > 0 {
				break
			}
			continue
		}
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "```") {
			if len(para) > 0 {
				break
			}
			continue
		}
		para = append(para, line)
	}
	text := bm.StrictPolicy().Sanitize(string(bf.MarkdownBasic([]byte(strings.Join(para, " ")))))
	text = strings.TrimSpace(text)
	r := []rune(text)
	if max <= 0 || len(r) <= max {
		return text
	}
	cut := string(r[:max])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
