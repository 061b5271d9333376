// Package feed fetches and parses the source site's RSS feeds into
// normalized items with resolved identity and canonical URLs.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/demyz/dou-jobs-feed/internal/logging"
)

// douIDPattern matches the numeric posting identifier in a canonical
// vacancy URL, e.g. https://jobs.dou.ua/companies/eleks/vacancies/328133/
var douIDPattern = regexp.MustCompile(`/vacancies/(\d+)/`)

// Item is a normalized feed entry. DouID is 0 when no identifier could
// be resolved from the link; such items are unprocessable downstream.
type Item struct {
	DouID       int64
	Link        string // canonical, query-string-free
	Title       string
	Content     string // rich content (content:encoded)
	Snippet     string // short content (description)
	PublishedAt time.Time
}

// Options configures the outbound feed requests
type Options struct {
	UserAgent      string
	AcceptLanguage string
	RequestTimeout time.Duration
}

// Reader fetches RSS feeds over HTTP and parses them with gofeed
type Reader struct {
	client *http.Client
	opts   Options
	parser *gofeed.Parser
	logger logging.Logger
}

// NewReader creates a feed reader
func NewReader(opts Options, logger logging.Logger) *Reader {
	timeout := opts.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Reader{
		client: &http.Client{Timeout: timeout},
		opts:   opts,
		parser: gofeed.NewParser(),
		logger: logger,
	}
}

// Fetch downloads and parses the feed at feedURL. A transport or parse
// failure is terminal for this feed and propagates to the caller; items
// whose identifier cannot be resolved are kept with DouID 0 and a warning
// so the orchestrator can journal them.
func (r *Reader) Fetch(ctx context.Context, feedURL string) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}

	req.Header.Set("User-Agent", r.opts.UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml, */*")
	if r.opts.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", r.opts.AcceptLanguage)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", feedURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch feed %s: unexpected status %d", feedURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed %s: %w", feedURL, err)
	}

	parsed, err := r.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		if entry.Link == "" {
			continue
		}

		link := CleanURL(entry.Link)
		douID, ok := ExtractDouID(link)
		if !ok {
			r.logger.Warn("Could not extract dou id from feed item", map[string]interface{}{
				"link": entry.Link,
				"feed": feedURL,
			})
		}

		items = append(items, Item{
			DouID:       douID,
			Link:        link,
			Title:       entry.Title,
			Content:     entry.Content,
			Snippet:     entry.Description,
			PublishedAt: publishedAt(entry),
		})
	}

	return items, nil
}

// CleanURL strips the query component from a URL, keeping
// scheme, host, and path. Unparseable input is returned unchanged.
func CleanURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}

// ExtractDouID parses the numeric posting identifier from a canonical
// vacancy URL. The second return is false when the URL carries none.
func ExtractDouID(cleanURL string) (int64, bool) {
	match := douIDPattern.FindStringSubmatch(cleanURL)
	if match == nil {
		return 0, false
	}

	id, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// publishedAt resolves an entry's publication time, preferring the
// parsed feed timestamp and defaulting to now when absent.
func publishedAt(entry *gofeed.Item) time.Time {
	if entry.PublishedParsed != nil {
		return *entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil {
		return *entry.UpdatedParsed
	}
	return time.Now()
}
