package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// maxArticleBytes caps how much of a web page is read before parsing.
const maxArticleBytes = 10 << 20

// FromURL fetches a web article and converts the readable portion
// into a chunked document. The caller supplies the HTTP client so the
// server's outbound-request policy applies.
func FromURL(ctx context.Context, client *http.Client, rawURL, subject string, chunkSize, overlap int) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "edumentor/1.0 (+study material indexer)")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxArticleBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	// resp.Request.URL reflects the final URL after redirects, which
	// readability needs to resolve relative links.
	article, err := readability.FromReader(bytes.NewReader(raw), resp.Request.URL)
	if err != nil {
		return nil, fmt.Errorf("extract article: %w", err)
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = htmlTitle(raw)
	}
	if title == "" {
		title = resp.Request.URL.Host
	}

	text := strings.TrimSpace(article.TextContent)
	chunks := Chunk(text, chunkSize, overlap)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no readable content at %s", rawURL)
	}

	return &Document{
		ID:      NewID(rawURL),
		Subject: subject,
		Source:  rawURL,
		Title:   title,
		Chunks:  chunks,
	}, nil
}

// htmlTitle falls back to the page's <title> tag when readability
// cannot determine one.
func htmlTitle(raw []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
