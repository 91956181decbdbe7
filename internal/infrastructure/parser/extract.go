package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"SentimentVision/internal/domain"
	"SentimentVision/internal/ports"
)

// boilerplate is removed before reading article text.
const boilerplate = "script, style, noscript, nav, header, footer, aside, form, iframe, svg"

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// Extractor downloads article pages and reads their content with goquery.
type Extractor struct {
	fetcher *PoliteFetcher
}

var _ ports.ContentExtractor = (*Extractor)(nil)

// NewExtractor wires the fetcher used for article pages.
func NewExtractor(fetcher *PoliteFetcher) *Extractor {
	return &Extractor{fetcher: fetcher}
}

// Extract fetches pageURL and returns its readable content.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (domain.Extracted, error) {
	page, err := e.fetcher.Get(ctx, pageURL)
	if err != nil {
		return domain.Extracted{}, err
	}
	return ExtractHTML(page.Body)
}

// ExtractHTML reads title, metadata and body text from an HTML document.
func ExtractHTML(html []byte) (domain.Extracted, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return domain.Extracted{}, fmt.Errorf("parse document: %w", err)
	}

	out := domain.Extracted{
		Title:    firstNonEmpty(meta(doc, "og:title"), doc.Find("title").First().Text(), doc.Find("h1").First().Text()),
		Author:   firstNonEmpty(meta(doc, "author"), meta(doc, "article:author")),
		ImageURL: meta(doc, "og:image"),
		Language: strings.TrimSpace(doc.Find("html").AttrOr("lang", "")),
	}
	if published := firstNonEmpty(
		meta(doc, "article:published_time"),
		meta(doc, "date"),
		doc.Find("time[datetime]").First().AttrOr("datetime", ""),
	); published != "" {
		out.PublishedAt = parseDate(published)
	}

	doc.Find(boilerplate).Remove()
	out.ContentText = bodyText(doc)
	out.WordCount = len(strings.Fields(out.ContentText))
	return out, nil
}

// HTMLToText flattens an HTML fragment to newline-separated text.
func HTMLToText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	var parts []string
	collectText(doc.Selection, &parts)
	return strings.Join(parts, "\n")
}

func bodyText(doc *goquery.Document) string {
	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var paragraphs []string
	root.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := strings.Join(strings.Fields(p.Text()), " "); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) > 0 {
		return strings.Join(paragraphs, "\n")
	}

	var parts []string
	collectText(root, &parts)
	return strings.Join(parts, "\n")
}

func collectText(s *goquery.Selection, parts *[]string) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			if text := strings.TrimSpace(c.Text()); text != "" {
				*parts = append(*parts, text)
			}
		case "script", "style", "noscript", "#comment":
		default:
			collectText(c, parts)
		}
	})
}

func meta(doc *goquery.Document, key string) string {
	sel := doc.Find(fmt.Sprintf(`meta[property=%q], meta[name=%q]`, key, key)).First()
	return strings.TrimSpace(sel.AttrOr("content", ""))
}

func parseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
