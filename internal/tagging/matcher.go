package tagging

import (
	"regexp"
	"strings"
	"sync"

	"SentimentVision/internal/domain"
)

// shortKeywordLen is the longest keyword matched on word boundaries.
const shortKeywordLen = 3

// nonWord is a keyword boundary; RE2's \b only knows ASCII word characters.
const nonWord = `[^\p{L}\p{N}_]`

// Matcher finds keyword tags in article text.
type Matcher struct {
	mu    sync.Mutex
	cache map[string]*regexp.Regexp
}

// NewMatcher returns a matcher with an empty pattern cache.
func NewMatcher() *Matcher {
	return &Matcher{cache: make(map[string]*regexp.Regexp)}
}

// Match returns one hit per enabled keyword tag found in text.
// Keywords of up to three characters must match as whole words so that
// "AI" does not fire inside "said"; longer keywords match as substrings.
func (m *Matcher) Match(text string, tags []domain.Tag) []domain.TagMatch {
	if strings.TrimSpace(text) == "" || len(tags) == 0 {
		return nil
	}
	lower := strings.ToLower(text)

	var matches []domain.TagMatch
	for _, tag := range tags {
		if !tag.Enabled || tag.MatchMethod != domain.MatchKeyword {
			continue
		}
		for _, keyword := range tag.Keywords {
			kw := strings.ToLower(strings.TrimSpace(keyword))
			if kw == "" {
				continue
			}
			if m.contains(lower, kw) {
				matches = append(matches, domain.TagMatch{
					TagID:          tag.ID,
					TagName:        tag.Name,
					TagType:        tag.Type,
					MatchedKeyword: keyword,
					Confidence:     1.0,
					MatchMethod:    domain.MatchKeyword,
				})
				break
			}
		}
	}
	return matches
}

func (m *Matcher) contains(lower, kw string) bool {
	if len([]rune(kw)) > shortKeywordLen {
		return strings.Contains(lower, kw)
	}
	return m.pattern(kw).MatchString(lower)
}

func (m *Matcher) pattern(kw string) *regexp.Regexp {
	m.mu.Lock()
	defer m.mu.Unlock()
	if re, ok := m.cache[kw]; ok {
		return re
	}
	re := regexp.MustCompile(`(?:^|` + nonWord + `)` + regexp.QuoteMeta(kw) + `(?:$|` + nonWord + `)`)
	m.cache[kw] = re
	return re
}
