package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// CleanedContent is readable text recovered from raw page HTML.
type CleanedContent struct {
	Title     string
	Text      string
	Truncated bool
}

// skippedElements are tags whose subtrees carry no readable content.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"svg":      true,
	"head":     true,
	"template": true,
}

// blockElements introduce a line break between text runs.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "header": true, "footer": true,
	"table": true, "ul": true, "ol": true, "blockquote": true, "pre": true,
}

// cleanHTML parses raw page HTML and recovers readable text, dropping
// scripts, styles, and markup noise. Output is bounded to maxLength
// characters.
func cleanHTML(raw string, maxLength int) (*CleanedContent, error) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	result := &CleanedContent{Title: findTitle(doc)}

	var builder strings.Builder
	result.Truncated = collectText(doc, &builder, maxLength)
	result.Text = strings.TrimSpace(builder.String())

	if result.Truncated {
		result.Text += fmt.Sprintf("\n[content truncated at %d characters]", maxLength)
	}
	return result, nil
}

// collectText walks the tree appending text content. Returns true when
// output was truncated at maxLength.
func collectText(n *html.Node, builder *strings.Builder, maxLength int) bool {
	if builder.Len() >= maxLength {
		return true
	}

	switch n.Type {
	case html.CommentNode:
		return false
	case html.ElementNode:
		if skippedElements[strings.ToLower(n.Data)] {
			return false
		}
	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if text != "" {
			if builder.Len() > 0 && !strings.HasSuffix(builder.String(), "\n") {
				builder.WriteByte(' ')
			}
			remaining := maxLength - builder.Len()
			if len(text) > remaining {
				builder.WriteString(text[:remaining])
				return true
			}
			builder.WriteString(text)
		}
		return false
	}

	truncated := false
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if collectText(child, builder, maxLength) {
			truncated = true
			break
		}
	}

	if n.Type == html.ElementNode && blockElements[strings.ToLower(n.Data)] {
		if builder.Len() > 0 && !strings.HasSuffix(builder.String(), "\n") && builder.Len() < maxLength {
			builder.WriteByte('\n')
		}
	}
	return truncated
}

// findTitle returns the document's <title> text, if any.
func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && strings.ToLower(n.Data) == "title" {
		if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			return strings.TrimSpace(n.FirstChild.Data)
		}
		return ""
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if title := findTitle(child); title != "" {
			return title
		}
	}
	return ""
}
