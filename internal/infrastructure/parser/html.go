package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"SentimentVision/internal/domain"
	"SentimentVision/internal/ports"
	"SentimentVision/internal/scanner"
)

// listingHints mark containers that usually hold article lists.
var listingHints = []string{"article", "story", "news", "post", "feed", "list"}

// minStructuredLinks is the count below which discovery falls back to every same-host link.
const minStructuredLinks = 3

// HTMLScanner discovers article links on a listing page and extracts each one.
type HTMLScanner struct {
	fetcher   *PoliteFetcher
	extractor ports.ContentExtractor
	opts      FeedOptions
	minWords  int
	logger    *slog.Logger
}

var _ scanner.Scanner = (*HTMLScanner)(nil)

// NewHTMLScanner wires the fetcher and extractor. Pages with minWords words or fewer are dropped.
func NewHTMLScanner(fetcher *PoliteFetcher, extractor ports.ContentExtractor, opts FeedOptions, minWords int, logger *slog.Logger) *HTMLScanner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &HTMLScanner{fetcher: fetcher, extractor: extractor, opts: opts, minWords: minWords, logger: logger}
}

// Name identifies the strategy inside the registry.
func (s *HTMLScanner) Name() string {
	return string(domain.SourceHTML)
}

// Scan reads the listing page at req.URL.
func (s *HTMLScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	page, err := s.fetcher.Get(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	links, err := DiscoverLinks(req.URL, page.Body)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.opts.MaxArticles
	}
	if limit > 0 && len(links) > limit {
		links = links[:limit]
	}

	found := make([]*domain.Article, len(links))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, link := range links {
		g.Go(func() error {
			extracted, err := s.extractor.Extract(gctx, link)
			if err != nil {
				s.logger.Warn("failed to extract article", "url", link, "error", err)
				return nil
			}
			if extracted.ContentText == "" || extracted.WordCount <= s.minWords {
				return nil
			}
			article := domain.Article{URL: link}
			mergeExtracted(&article, extracted)
			found[i] = &article
			return nil
		})
	}
	_ = g.Wait()

	articles := make([]domain.Article, 0, len(found))
	for _, a := range found {
		if a != nil {
			articles = append(articles, *a)
		}
	}
	s.logger.Debug("listing scanned", "source", req.SourceName, "links", len(links), "articles", len(articles))
	return articles, nil
}

// DiscoverLinks returns absolute same-host article links from a listing page in document order.
func DiscoverLinks(pageURL string, html []byte) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url %q: %w", pageURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing %s: %w", pageURL, err)
	}

	var hrefs []string
	doc.Find("article a[href]").Each(func(_ int, a *goquery.Selection) {
		hrefs = append(hrefs, a.AttrOr("href", ""))
	})
	doc.Find("main, section, div").Each(func(_ int, c *goquery.Selection) {
		if !hasListingHint(c.AttrOr("class", "")) {
			return
		}
		c.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			hrefs = append(hrefs, a.AttrOr("href", ""))
		})
	})

	links := resolveLinks(base, hrefs, false)
	if len(links) < minStructuredLinks {
		var all []string
		doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			all = append(all, a.AttrOr("href", ""))
		})
		links = resolveLinks(base, append(hrefs, all...), true)
	}
	return links, nil
}

func resolveLinks(base *url.URL, hrefs []string, deepOnly bool) []string {
	seen := make(map[string]struct{}, len(hrefs))
	var out []string
	for _, href := range hrefs {
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil || href == "" {
			continue
		}
		full := base.ResolveReference(ref)
		full.Fragment = ""
		if full.Scheme != "http" && full.Scheme != "https" {
			continue
		}
		if !strings.EqualFold(full.Host, base.Host) {
			continue
		}
		if deepOnly && strings.Count(full.Path, "/") < 2 {
			continue
		}
		s := full.String()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func hasListingHint(class string) bool {
	class = strings.ToLower(class)
	if class == "" {
		return false
	}
	for _, hint := range listingHints {
		if strings.Contains(class, hint) {
			return true
		}
	}
	return false
}
