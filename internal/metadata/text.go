package metadata

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
)

// htmlTagPattern detects strings that carry HTML markup.
var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)

func containsHTML(s string) bool {
	return htmlTagPattern.MatchString(strings.ToLower(s))
}

// CleanDescription converts an HTML description to Markdown.
// Plain text is returned trimmed but otherwise unchanged.
func CleanDescription(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !containsHTML(s) {
		return html.UnescapeString(s)
	}

	markdown, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return PlainText(s)
	}
	return strings.TrimSpace(markdown)
}

// PlainText strips all markup and collapses whitespace.
func PlainText(s string) string {
	if s == "" {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return collapseWhitespace(html.UnescapeString(htmlTagRegex.ReplaceAllString(s, " ")))
	}

	var buf strings.Builder
	extractText(doc, &buf)
	return collapseWhitespace(buf.String())
}

func extractText(n *html.Node, buf *strings.Builder) {
	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
	}
	if n.Type == html.ElementNode {
		switch n.Data {
		case "p", "div", "br", "li", "h1", "h2", "h3", "h4", "h5", "h6":
			buf.WriteString(" ")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, buf)
	}
}

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}
