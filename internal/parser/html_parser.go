// Package parser provides HTML content extraction for the admission pipeline.
// It pulls raw anchor hrefs and visible text out of fetched documents.
package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// strippedElements never contribute visible text
const strippedElements = "script,style,noscript,template"

// HTMLExtractor extracts links and text from HTML documents.
// It holds no state and is safe for concurrent use.
type HTMLExtractor struct{}

// NewHTMLExtractor creates a new HTML extractor
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{}
}

// ExtractLinks returns the href values of all <a> elements in document order.
// Values are trimmed but not resolved; fragment-only, javascript: and empty
// hrefs are skipped, and repeated values are returned once.
func (e *HTMLExtractor) ExtractLinks(body []byte, baseURL string) ([]string, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}

	links := []string{}
	seen := make(map[string]struct{})
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href, ok := hrefOf(n); ok {
				if _, dup := seen[href]; !dup {
					seen[href] = struct{}{}
					links = append(links, href)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links, nil
}

// ExtractText returns the visible text of the document with runs of
// whitespace collapsed to single spaces.
func (e *HTMLExtractor) ExtractText(body []byte) (string, error) {
	doc, err := loadQuery(body)
	if err != nil {
		return "", err
	}
	doc.Find(strippedElements).Remove()

	var parts []string
	for _, root := range doc.Nodes {
		collectText(root, &parts)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " "), nil
}

// Title returns the trimmed content of the first <title> element.
func (e *HTMLExtractor) Title(body []byte) string {
	doc, err := loadQuery(body)
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
}

func hrefOf(n *html.Node) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key != "href" {
			continue
		}
		href := strings.TrimSpace(attr.Val)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return "", false
		}
		return href, true
	}
	return "", false
}

func collectText(n *html.Node, parts *[]string) {
	switch n.Type {
	case html.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			*parts = append(*parts, text)
		}
		return
	case html.CommentNode, html.DoctypeNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// decode converts body to UTF-8 using BOM and <meta charset> sniffing.
func decode(body []byte) (io.Reader, error) {
	r, err := charset.NewReader(bytes.NewReader(body), "")
	if err != nil {
		return nil, fmt.Errorf("failed to detect charset: %w", err)
	}
	return r, nil
}

func parseDocument(body []byte) (*html.Node, error) {
	r, err := decode(body)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

func loadQuery(body []byte) (*goquery.Document, error) {
	r, err := decode(body)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}
