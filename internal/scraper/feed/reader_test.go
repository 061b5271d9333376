package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demyz/dou-jobs-feed/internal/logging"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel>
<title>Вакансії</title>
<item>
<title>Senior Go Engineer at Acme</title>
<link>https://jobs.dou.ua/companies/acme/vacancies/328133/?utm_source=rss</link>
<description>Short summary</description>
<content:encoded><![CDATA[<p>Full rich description</p>]]></content:encoded>
<pubDate>Mon, 04 Aug 2025 10:00:00 +0300</pubDate>
</item>
<item>
<title>Company news</title>
<link>https://jobs.dou.ua/companies/acme/</link>
<description>Not a vacancy</description>
<pubDate>Mon, 04 Aug 2025 09:00:00 +0300</pubDate>
</item>
</channel>
</rss>`

func TestCleanURL(t *testing.T) {
	cases := map[string]string{
		"https://jobs.dou.ua/vacancies/1/?utm_source=rss&utm_medium=feed": "https://jobs.dou.ua/vacancies/1/",
		"https://jobs.dou.ua/vacancies/2/#section":                        "https://jobs.dou.ua/vacancies/2/",
		"https://jobs.dou.ua/vacancies/3/":                                "https://jobs.dou.ua/vacancies/3/",
	}

	for input, want := range cases {
		assert.Equal(t, want, CleanURL(input))
	}
}

func TestCleanURLUnparseableInputPassesThrough(t *testing.T) {
	raw := "http://[broken"
	assert.Equal(t, raw, CleanURL(raw))
}

func TestExtractDouID(t *testing.T) {
	id, ok := ExtractDouID("https://jobs.dou.ua/companies/eleks/vacancies/328133/")
	require.True(t, ok)
	assert.Equal(t, int64(328133), id)
}

func TestExtractDouIDMissing(t *testing.T) {
	id, ok := ExtractDouID("https://jobs.dou.ua/companies/eleks/")
	assert.False(t, ok)
	assert.Equal(t, int64(0), id)
}

func TestFetchParsesAndNormalizesItems(t *testing.T) {
	var gotUserAgent, gotAcceptLanguage string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		gotAcceptLanguage = r.Header.Get("Accept-Language")
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	reader := NewReader(Options{
		UserAgent:      "test-agent",
		AcceptLanguage: "en-GB,en-US;q=0.9,en;q=0.8",
		RequestTimeout: 5 * time.Second,
	}, logging.GetGlobalLogger())

	items, err := reader.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "test-agent", gotUserAgent)
	assert.Equal(t, "en-GB,en-US;q=0.9,en;q=0.8", gotAcceptLanguage)

	first := items[0]
	assert.Equal(t, int64(328133), first.DouID)
	assert.Equal(t, "https://jobs.dou.ua/companies/acme/vacancies/328133/", first.Link)
	assert.Equal(t, "Senior Go Engineer at Acme", first.Title)
	assert.Equal(t, "<p>Full rich description</p>", first.Content)
	assert.Equal(t, "Short summary", first.Snippet)
	assert.False(t, first.PublishedAt.IsZero())

	// Items without a resolvable identifier are kept with DouID 0
	second := items[1]
	assert.Equal(t, int64(0), second.DouID)
}

func TestFetchPropagatesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	reader := NewReader(Options{RequestTimeout: 5 * time.Second}, logging.GetGlobalLogger())

	_, err := reader.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 503")
}

func TestFetchPropagatesParseErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not xml at all"))
	}))
	defer server.Close()

	reader := NewReader(Options{RequestTimeout: 5 * time.Second}, logging.GetGlobalLogger())

	_, err := reader.Fetch(context.Background(), server.URL)
	require.Error(t, err)
}
