// Package webtext reduces a web page to the visible text a reader would
// see, bounded to a size that fits comfortably inside an LLM prompt.
package webtext

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"
)

const (
	fetchTimeout = 15 * time.Second

	// MaxTextBytes bounds what a single page contributes to a prompt.
	MaxTextBytes = 6000
)

// elements whose text content is never visible prose
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"svg":      true,
	"head":     true,
}

// Fetcher downloads pages for text extraction.
type Fetcher struct {
	client *resty.Client
}

func NewFetcher() *Fetcher {
	return &Fetcher{client: resty.New().SetTimeout(fetchTimeout)}
}

// UseDefaultClient reroutes requests through http.DefaultClient so tests
// can intercept them with a stub transport.
func (f *Fetcher) UseDefaultClient() {
	f.client = resty.NewWithClient(http.DefaultClient)
}

// Fetch downloads the page at url and returns its visible text.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode())
	}

	return Extract(resp.String())
}

// Extract parses an HTML document and returns its visible text with
// whitespace collapsed and length bounded to MaxTextBytes.
func Extract(htmlText string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var parts []string
	for _, node := range root.Nodes {
		collectText(node, &parts)
	}

	text := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	if len(text) > MaxTextBytes {
		cut := MaxTextBytes
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = strings.TrimRight(text[:cut], " ")
	}

	return text, nil
}

func collectText(node *html.Node, parts *[]string) {
	if node.Type == html.ElementNode && skippedElements[node.Data] {
		return
	}
	if node.Type == html.TextNode {
		*parts = append(*parts, node.Data)
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, parts)
	}
}
