package fetcher

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// Elements dropped before text extraction: images, tables and non-content markup.
const strippedSelector = "script, style, noscript, template, svg, canvas, img, picture, figure, video, audio, iframe, object, embed, table, form, button, input, select, textarea"

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"dd": true, "div": true, "dl": true, "dt": true, "footer": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "header": true,
	"hr": true, "li": true, "main": true, "nav": true, "ol": true, "p": true,
	"pre": true, "section": true, "ul": true,
}

var inlineSpace = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)

// HTMLToText extracts the readable text of an HTML page. The main content is
// isolated with readability; the whole body is used when that yields nothing.
// Links keep their anchor text only; images and tables are dropped.
func HTMLToText(body []byte, pageURL *url.URL) (string, error) {
	if article, err := readability.FromReader(bytes.NewReader(body), pageURL); err == nil && article.Content != "" {
		text, err := stripToText([]byte(article.Content))
		if err == nil && text != "" {
			return text, nil
		}
	}

	return stripToText(body)
}

func stripToText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find(strippedSelector).Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var sb strings.Builder
	for _, n := range root.Nodes {
		writeText(&sb, n)
	}
	return normalize(sb.String()), nil
}

func writeText(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		sb.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(sb, c)
	}
	if block {
		sb.WriteByte('\n')
	}
}

// normalize collapses inline whitespace and runs of blank lines.
func normalize(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		line = strings.TrimSpace(inlineSpace.ReplaceAllString(line, " "))
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
