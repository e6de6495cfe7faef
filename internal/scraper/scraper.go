// Package scraper fetches web pages and extracts their paragraph text.
package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; web-rag-agent/1.0)"
	maxBodyBytes     = 5 << 20
)

// FetchError reports a failed page fetch: transport error, timeout or non-2xx status.
type FetchError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

type Client struct {
	httpClient *http.Client
	userAgent  string
	logger     *zap.Logger
}

// NewClient returns a Client whose requests give up after timeout.
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  defaultUserAgent,
		logger:     logger,
	}
}

// Fetch GETs url and returns the body, capped at 5MB and decoded to UTF-8
// from the charset in Content-Type (or a <meta> declaration when the header
// has none).
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", resp.Status)}
	}

	reader, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	c.logger.Debug("Fetched page", zap.String("url", url), zap.Int("bytes", len(body)))
	return body, nil
}

// FetchParagraphs fetches url and returns the text of its <p> elements in
// document order.
func (c *Client) FetchParagraphs(ctx context.Context, url string) ([]string, error) {
	body, err := c.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return ExtractParagraphs(body)
}

// ExtractParagraphs returns the text content of every <p> element, with
// internal whitespace collapsed. Empty paragraphs are kept as "".
func ExtractParagraphs(page []byte) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	var paragraphs []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			case "p":
				var sb strings.Builder
				collectText(n, &sb)
				paragraphs = append(paragraphs, strings.Join(strings.Fields(sb.String()), " "))
				return
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return paragraphs, nil
}

func collectText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style":
			return
		case "br":
			sb.WriteString(" ")
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, sb)
	}
}
