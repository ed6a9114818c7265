// Package format reduces email bodies to plain text for prompt building.
package format

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// blockTags force a line break around their content when flattened.
var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "table": true, "ul": true, "ol": true,
}

// skippedTags contribute no visible text.
var skippedTags = map[string]bool{
	"script": true, "style": true, "head": true, "title": true,
}

// HTML2Text flattens an HTML document into plain text, dropping markup,
// scripts and styles, and collapsing runs of blank lines. Unparseable input
// is returned as-is.
func HTML2Text(raw []byte) string {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return string(raw)
	}

	var b strings.Builder
	flatten(doc, &b)

	return collapseBlankLines(b.String())
}

func flatten(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode && skippedTags[n.Data] {
		return
	}
	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			if b.Len() > 0 && !endsWithSpace(b) {
				b.WriteByte(' ')
			}
			b.WriteString(text)
		}
		return
	}

	if n.Type == html.ElementNode && n.Data == "br" {
		b.WriteByte('\n')
		return
	}

	isBlock := n.Type == html.ElementNode && blockTags[n.Data]
	if isBlock {
		ensureNewline(b)
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		flatten(child, b)
	}

	if isBlock {
		ensureNewline(b)
	}
}

func ensureNewline(b *strings.Builder) {
	if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteByte('\n')
	}
}

func endsWithSpace(b *strings.Builder) bool {
	s := b.String()
	return s[len(s)-1] == ' ' || s[len(s)-1] == '\n'
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}
