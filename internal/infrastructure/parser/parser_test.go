package parser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"SentimentVision/internal/config"
	"SentimentVision/internal/domain"
	"SentimentVision/internal/scanner"
)

func testFetcher(retries int) *PoliteFetcher {
	return NewPoliteFetcher(config.FetchingConfig{
		UserAgent:      "TestBot/1.0",
		RequestTimeout: 5 * time.Second,
		RetryAttempts:  retries,
		RetryDelay:     time.Millisecond,
	}, 0, nil, nil)
}

var paragraph = strings.Repeat("The plant expanded production and hired local workers. ", 12)

func articlePage(title string) string {
	return fmt.Sprintf(`<html lang="en"><head><title>%s</title>
	<meta property="og:image" content="https://img.example/lead.jpg">
	<meta name="author" content="Jane Reporter">
	<meta property="article:published_time" content="2026-02-03T10:00:00Z">
	<script>var tracking = true;</script></head>
	<body><nav>Home | About</nav><article><h1>%s</h1><p>%s</p><p>Second paragraph.</p></article>
	<footer>Copyright</footer></body></html>`, title, title, paragraph)
}

func TestPoliteFetcherRetriesAndSetsUserAgent(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "TestBot/1.0" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	page, err := testFetcher(2).Get(context.Background(), server.URL+"/x")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	assert.Equal(t, string(page.Body), "ok")
	assert.Equal(t, calls.Load(), int32(2))
}

func TestPoliteFetcherGivesUpAfterRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testFetcher(2).Get(context.Background(), server.URL)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusNotFound {
		t.Fatalf("expected 404 status error, got %v", err)
	}
	assert.Equal(t, calls.Load(), int32(3))
}

func TestPoliteFetcherSpacesRequestsPerHost(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	f := NewPoliteFetcher(config.FetchingConfig{PerDomainDelay: 50 * time.Millisecond}, 0, nil, nil)
	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := f.Get(context.Background(), server.URL); err != nil {
			t.Fatalf("Get error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Fatalf("expected at least two delays, took %v", elapsed)
	}
}

func TestExtractHTML(t *testing.T) {
	t.Parallel()

	got, err := ExtractHTML([]byte(articlePage("Plant expands")))
	if err != nil {
		t.Fatalf("ExtractHTML error: %v", err)
	}
	assert.Equal(t, got.Title, "Plant expands")
	assert.Equal(t, got.Author, "Jane Reporter")
	assert.Equal(t, got.ImageURL, "https://img.example/lead.jpg")
	assert.Equal(t, got.Language, "en")
	if got.PublishedAt == nil || !got.PublishedAt.Equal(time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected published date %v", got.PublishedAt)
	}
	if strings.Contains(got.ContentText, "tracking") || strings.Contains(got.ContentText, "Home | About") {
		t.Fatalf("boilerplate leaked into content: %q", got.ContentText)
	}
	if !strings.HasSuffix(got.ContentText, "\nSecond paragraph.") {
		t.Fatalf("unexpected content: %q", got.ContentText)
	}
	assert.Equal(t, got.WordCount, len(strings.Fields(got.ContentText)))
}

func TestHTMLToText(t *testing.T) {
	t.Parallel()

	got := HTMLToText(`<p>First <b>bold</b> tail</p><script>x()</script><p>Second</p>`)
	assert.Equal(t, got, "First\nbold\ntail\nSecond")
	assert.Equal(t, HTMLToText("  "), "")
}

func TestDiscoverLinks(t *testing.T) {
	t.Parallel()

	listing := `<html><body>
	<div class="news-list">
	  <a href="/2026/03/plant-opens">Plant opens</a>
	  <a href="https://other.example/2026/x">Elsewhere</a>
	  <a href="mailto:press@example.org">Mail</a>
	</div>
	<article><a href="/2026/03/wind-farm#comments">Wind farm</a></article>
	<article><a href="/2026/03/plant-opens">Duplicate</a></article>
	<a href="/about">About</a>
	</body></html>`

	links, err := DiscoverLinks("https://example.org/news", []byte(listing))
	if err != nil {
		t.Fatalf("DiscoverLinks error: %v", err)
	}
	assert.Equal(t, links, []string{
		"https://example.org/2026/03/wind-farm",
		"https://example.org/2026/03/plant-opens",
	})
}

func newSite(t *testing.T, feed string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, strings.ReplaceAll(feed, "{{base}}", server.URL))
	})
	mux.HandleFunc("/news", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="story-list">
		<a href="/2026/a">A</a><a href="/2026/b">B</a><a href="/2026/thin">Thin</a></div></body></html>`)
	})
	mux.HandleFunc("/2026/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/thin") {
			fmt.Fprint(w, `<html><body><p>Too short.</p></body></html>`)
			return
		}
		fmt.Fprint(w, articlePage("Page "+r.URL.Path))
	})
	t.Cleanup(server.Close)
	return server
}

const sampleFeed = `<?xml version="1.0"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:media="http://search.yahoo.com/mrss/">
<channel><title>Example</title><language>en-us</language>
<item>
  <title>Inline story</title>
  <link>{{base}}/2026/inline</link>
  <author>desk@example.org (News Desk)</author>
  <pubDate>Tue, 03 Feb 2026 10:00:00 GMT</pubDate>
  <description>&lt;p&gt;Short summary&lt;/p&gt;</description>
  <content:encoded><![CDATA[<p>` + "INLINE_BODY" + `</p>]]></content:encoded>
  <media:thumbnail url="https://img.example/thumb.jpg"/>
</item>
<item>
  <title>Thin story</title>
  <link>{{base}}/2026/thin-feed-entry</link>
  <description>Teaser only</description>
</item>
<item><title>No link</title></item>
</channel></rss>`

func feedFixture() string {
	return strings.Replace(sampleFeed, "INLINE_BODY", paragraph, 1)
}

func TestRSSScannerFillsThinEntries(t *testing.T) {
	t.Parallel()

	server := newSite(t, feedFixture())
	fetcher := testFetcher(0)
	rss := NewRSSScanner(fetcher, NewExtractor(fetcher), FeedOptions{MaxArticles: 10, MinInlineChars: 200, Concurrency: 2}, nil)

	articles, err := rss.Scan(context.Background(), scanner.Request{SourceName: "Example", URL: server.URL + "/feed.xml"})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	assert.Equal(t, len(articles), 2)

	inline := articles[0]
	assert.Equal(t, inline.Title, "Inline story")
	assert.Equal(t, inline.Summary, "Short summary")
	assert.Equal(t, inline.ImageURL, "https://img.example/thumb.jpg")
	assert.Equal(t, inline.Language, "en-us")
	assert.Equal(t, inline.Content(), strings.TrimSpace(paragraph))
	if inline.PublishedAt == nil || inline.PublishedAt.Year() != 2026 {
		t.Fatalf("unexpected published date %v", inline.PublishedAt)
	}

	thin := articles[1]
	if !strings.Contains(thin.Content(), "Second paragraph.") {
		t.Fatalf("thin entry should be filled from the page, got %q", thin.Content())
	}
	assert.Equal(t, thin.Author, "Jane Reporter")
	assert.Equal(t, thin.Title, "Thin story")
}

func TestRSSScannerHonoursLimit(t *testing.T) {
	t.Parallel()

	server := newSite(t, feedFixture())
	fetcher := testFetcher(0)
	rss := NewRSSScanner(fetcher, nil, FeedOptions{MaxArticles: 10}, nil)

	articles, err := rss.Scan(context.Background(), scanner.Request{URL: server.URL + "/feed.xml", Limit: 1})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	assert.Equal(t, len(articles), 1)
}

func TestHTMLScannerKeepsSubstantialPages(t *testing.T) {
	t.Parallel()

	server := newSite(t, feedFixture())
	fetcher := testFetcher(0)
	html := NewHTMLScanner(fetcher, NewExtractor(fetcher), FeedOptions{MaxArticles: 10, Concurrency: 2}, 50, nil)

	articles, err := html.Scan(context.Background(), scanner.Request{URL: server.URL + "/news"})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	assert.Equal(t, len(articles), 2)
	assert.Equal(t, articles[0].URL, server.URL+"/2026/a")
	assert.Equal(t, articles[1].Title, "Page /2026/b")
}

func TestSearchScannerFallsBackToHTML(t *testing.T) {
	t.Parallel()

	server := newSite(t, feedFixture())
	fetcher := testFetcher(0)
	extractor := NewExtractor(fetcher)
	opts := FeedOptions{MaxArticles: 10, MinInlineChars: 200}
	search := NewSearchScanner(
		NewRSSScanner(fetcher, extractor, opts, nil),
		NewHTMLScanner(fetcher, extractor, opts, 50, nil),
		nil,
	)

	articles, err := search.Scan(context.Background(), scanner.Request{URL: server.URL + "/news"})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	assert.Equal(t, len(articles), 2)

	articles, err = search.Scan(context.Background(), scanner.Request{URL: server.URL + "/feed.xml"})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	assert.Equal(t, articles[0].Title, "Inline story")
}

func TestStrategySourceStampsSourceMetadata(t *testing.T) {
	t.Parallel()

	server := newSite(t, feedFixture())
	fetcher := testFetcher(0)
	reg := scanner.NewRegistry(NewRSSScanner(fetcher, nil, FeedOptions{}, nil))
	src := NewStrategySource(reg, 5, nil)

	articles, err := src.Fetch(context.Background(), domain.Source{ID: 11, Name: "Example", Type: domain.SourceRSS, URL: server.URL + "/feed.xml"})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	for _, a := range articles {
		assert.Equal(t, a.SourceID, int64(11))
		assert.Equal(t, a.MediaTier, domain.DefaultMediaTier)
	}

	if _, err := src.Fetch(context.Background(), domain.Source{Name: "x", Type: domain.SourceHTML}); err == nil {
		t.Fatalf("expected error for unregistered source type")
	}
}
