// Package page fetches a posting's detail page and extracts structured
// fields from its HTML. Extraction is best-effort per field: a missing
// selector degrades to an empty or absent value, never an error. Only
// transport failures propagate.
package page

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/demyz/dou-jobs-feed/internal/logging"
)

// Selectors for the known detail-page layout
const (
	titleSelector       = ".l-vacancy h1.g-h2"
	companySelector     = ".b-compinfo .l-n a:first-child"
	companyLogoSelector = ".b-compinfo .logo img"
	salarySelector      = ".l-vacancy .sh-info .salary"
	descriptionSelector = ".b-typo.vacancy-section"
	descriptionFallback = ".vacancy-section"
	locationsSelector   = ".place-name"
)

// unknownCompanySlug is the sentinel used when the company profile link
// carries no recognizable slug.
const unknownCompanySlug = "unknown"

var companySlugPattern = regexp.MustCompile(`/companies/([^/]+)/`)

// JobPage holds the fields extracted from a posting's detail page
type JobPage struct {
	Title           string
	CompanyName     string
	CompanySlug     string
	CompanyLogoURL  *string
	Salary          *string
	FullDescription string
	Locations       []string
}

// Options configures the outbound page requests
type Options struct {
	UserAgent      string
	AcceptLanguage string
	LangCookie     string
	RequestTimeout time.Duration
}

// Extractor fetches detail pages and extracts structured fields
type Extractor struct {
	client *http.Client
	opts   Options
	logger logging.Logger
}

// NewExtractor creates a page extractor
func NewExtractor(opts Options, logger logging.Logger) *Extractor {
	timeout := opts.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Extractor{
		client: &http.Client{Timeout: timeout},
		opts:   opts,
		logger: logger,
	}
}

// Extract fetches the detail page at pageURL and returns its structured
// fields. Transport failures and non-2xx responses are terminal; a
// reachable but oddly-shaped page still yields a partial result.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (*JobPage, error) {
	doc, err := e.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	company := parseCompany(doc)

	result := &JobPage{
		Title:           parseTitle(doc),
		CompanyName:     company.name,
		CompanySlug:     company.slug,
		CompanyLogoURL:  company.logoURL,
		Salary:          parseSalary(doc),
		FullDescription: parseFullDescription(doc),
		Locations:       parseLocations(doc),
	}

	e.logger.Debug("Job page extracted", map[string]interface{}{
		"url":             pageURL,
		"title":           result.Title,
		"company":         result.CompanyName,
		"has_salary":      result.Salary != nil,
		"has_description": result.FullDescription != "",
		"locations":       len(result.Locations),
	})

	return result, nil
}

// fetch downloads the page with the fixed user agent and the
// language-forcing cookie so the markup stays consistent.
func (e *Extractor) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build page request: %w", err)
	}

	req.Header.Set("User-Agent", e.opts.UserAgent)
	if e.opts.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", e.opts.AcceptLanguage)
	}
	if e.opts.LangCookie != "" {
		req.Header.Set("Cookie", e.opts.LangCookie)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch page %s: unexpected status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page %s: %w", pageURL, err)
	}

	return doc, nil
}

// parseTitle extracts the posting title; empty when the selector misses
func parseTitle(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find(titleSelector).First().Text())
}

type companyInfo struct {
	name    string
	slug    string
	logoURL *string
}

// parseCompany extracts the company name and derives its slug from the
// profile link's path segment. A missing slug falls back to a sentinel
// so the posting still gets an owner.
func parseCompany(doc *goquery.Document) companyInfo {
	link := doc.Find(companySelector).First()

	info := companyInfo{
		name: strings.TrimSpace(link.Text()),
		slug: unknownCompanySlug,
	}

	if href, ok := link.Attr("href"); ok {
		if match := companySlugPattern.FindStringSubmatch(href); match != nil {
			info.slug = match[1]
		}
	}

	if src, ok := doc.Find(companyLogoSelector).First().Attr("src"); ok && src != "" {
		info.logoURL = &src
	}

	return info
}

// parseSalary extracts the salary text; nil when the posting has none
func parseSalary(doc *goquery.Document) *string {
	salary := strings.TrimSpace(doc.Find(salarySelector).First().Text())
	if salary == "" {
		return nil
	}
	return &salary
}

// parseFullDescription extracts the inner HTML of the primary content
// block, trying the fallback selector before giving up with an empty
// string.
func parseFullDescription(doc *goquery.Document) string {
	for _, selector := range []string{descriptionSelector, descriptionFallback} {
		section := doc.Find(selector).First()
		if section.Length() == 0 {
			continue
		}
		if html, err := section.Html(); err == nil {
			return strings.TrimSpace(html)
		}
	}
	return ""
}

// parseLocations splits the free-text location header on commas,
// trimming and de-duplicating while keeping first-occurrence order.
func parseLocations(doc *goquery.Document) []string {
	text := strings.TrimSpace(doc.Find(locationsSelector).First().Text())
	if text == "" {
		return nil
	}

	seen := make(map[string]bool)
	var locations []string
	for _, part := range strings.Split(text, ",") {
		location := strings.TrimSpace(part)
		if location == "" || seen[location] {
			continue
		}
		seen[location] = true
		locations = append(locations, location)
	}

	return locations
}
