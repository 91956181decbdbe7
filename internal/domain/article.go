package domain

import (
	"strings"
	"time"
)

// Article is a core entity describing a gathered news item for one client.
type Article struct {
	ID          int64
	ClientID    int64
	SourceID    int64
	URL         string
	Title       string
	Author      string
	PublishedAt *time.Time
	ContentText *string
	Summary     string
	ImageURL    string
	WordCount   int
	Language    string
	MediaTier   int
}

// Content returns the extracted body or an empty string when none was stored.
func (a Article) Content() string {
	if a.ContentText == nil {
		return ""
	}
	return *a.ContentText
}

// TaggingText joins title and body the way tag matching expects it.
func (a Article) TaggingText() string {
	return strings.TrimSpace(a.Title + " " + a.Content())
}

// Extracted is the result of downloading and cleaning one article page.
type Extracted struct {
	Title       string
	Author      string
	PublishedAt *time.Time
	ContentText string
	ImageURL    string
	Language    string
	WordCount   int
}

// ClientContext names the company whose perspective sentiment is judged from.
type ClientContext struct {
	Name       string
	Industries []string
}

// IsZero reports whether the context is unusable for contextual scoring.
func (c ClientContext) IsZero() bool {
	return strings.TrimSpace(c.Name) == ""
}

// ScoringArticle is an article joined with its client, as read by the analyzer.
type ScoringArticle struct {
	ID          int64
	Title       string
	ContentText *string
	Client      ClientContext
}

// Text prefers full content, then title, then nothing.
func (a ScoringArticle) Text() string {
	if a.ContentText != nil && *a.ContentText != "" {
		return *a.ContentText
	}
	return a.Title
}

// Client is a tracked company.
type Client struct {
	ID          int64
	Name        string
	Industries  []string
	Competitors []string
	Sources     []Source
}

// Context converts the client into the scoring perspective.
func (c Client) Context() ClientContext {
	return ClientContext{Name: c.Name, Industries: c.Industries}
}

// Keywords lists lowercase terms used to route global-feed articles to the client.
func (c Client) Keywords() []string {
	out := make([]string, 0, 1+len(c.Industries)+len(c.Competitors))
	out = append(out, strings.ToLower(c.Name))
	for _, v := range c.Industries {
		out = append(out, strings.ToLower(v))
	}
	for _, v := range c.Competitors {
		out = append(out, strings.ToLower(v))
	}
	return out
}

// SourceType enumerates fetch strategies.
type SourceType string

const (
	SourceRSS    SourceType = "rss"
	SourceHTML   SourceType = "html"
	SourceSearch SourceType = "search"
)

// DefaultMediaTier is used for client sources without an explicit tier.
const DefaultMediaTier = 3

// Source is a feed or page an article can come from.
type Source struct {
	ID        int64
	ClientID  *int64
	Name      string
	Type      SourceType
	URL       string
	MediaTier int
	Global    bool
}

// FetchStatus enumerates fetch_log outcomes.
type FetchStatus string

const (
	FetchSuccess FetchStatus = "success"
	FetchError   FetchStatus = "error"
	FetchSkipped FetchStatus = "skipped"
)

// FetchLog is one audited source fetch.
type FetchLog struct {
	SourceID   int64
	StartedAt  time.Time
	FinishedAt time.Time
	Found      int
	New        int
	Status     FetchStatus
	Error      string
}
