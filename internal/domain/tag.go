package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTag is returned when a tag violates catalog invariants.
var ErrInvalidTag = errors.New("invalid tag")

// TagType partitions tags into the two denormalized article columns.
type TagType string

const (
	TagESG    TagType = "esg"
	TagCustom TagType = "custom"
)

// TagScope controls which clients a tag applies to.
type TagScope string

const (
	ScopeGlobal TagScope = "global"
	ScopeClient TagScope = "client"
)

// MatchMethod selects the matcher responsible for a tag.
type MatchMethod string

const (
	MatchKeyword MatchMethod = "keyword"
	MatchAI      MatchMethod = "ai"
)

// DefaultTagColor is applied when a tag is created without one.
const DefaultTagColor = "#6366f1"

// Tag is a topical label defined by keywords.
type Tag struct {
	ID          int64
	Name        string
	Type        TagType
	Scope       TagScope
	ClientID    *int64
	Keywords    []string
	MatchMethod MatchMethod
	Color       string
	Enabled     bool
}

// AppliesTo reports whether the tag is usable for the client.
func (t Tag) AppliesTo(clientID int64) bool {
	if !t.Enabled {
		return false
	}
	switch t.Scope {
	case ScopeGlobal:
		return true
	case ScopeClient:
		return t.ClientID != nil && *t.ClientID == clientID
	default:
		return false
	}
}

// Validate checks the scope/client pairing and keyword list.
func (t Tag) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTag)
	}
	switch t.Type {
	case TagESG, TagCustom:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTag, t.Type)
	}
	switch t.Scope {
	case ScopeGlobal:
		if t.ClientID != nil {
			return fmt.Errorf("%w: global tag %q must not reference a client", ErrInvalidTag, t.Name)
		}
	case ScopeClient:
		if t.ClientID == nil {
			return fmt.Errorf("%w: client tag %q requires a client", ErrInvalidTag, t.Name)
		}
	default:
		return fmt.Errorf("%w: unknown scope %q", ErrInvalidTag, t.Scope)
	}
	switch t.MatchMethod {
	case MatchKeyword, MatchAI:
	default:
		return fmt.Errorf("%w: unknown match method %q", ErrInvalidTag, t.MatchMethod)
	}
	for _, kw := range t.Keywords {
		if strings.TrimSpace(kw) != "" {
			return nil
		}
	}
	return fmt.Errorf("%w: tag %q has no keywords", ErrInvalidTag, t.Name)
}

// TagMatch is one tag hit on an article.
type TagMatch struct {
	TagID          int64
	TagName        string
	TagType        TagType
	MatchedKeyword string
	Confidence     float64
	MatchMethod    MatchMethod
}

// TagAssignment is what gets written for a tagged article.
type TagAssignment struct {
	Matches []TagMatch
	ESG     []string
	Custom  []string
}

// Names lists every assigned tag name in match order.
func (a TagAssignment) Names() []string {
	names := make([]string, 0, len(a.Matches))
	for _, m := range a.Matches {
		names = append(names, m.TagName)
	}
	return names
}

// TagFilter narrows catalog listings.
type TagFilter struct {
	Scope    TagScope
	ClientID *int64
}

// TagUpdate carries optional field changes; nil fields are left untouched.
type TagUpdate struct {
	Name     *string
	Keywords []string
	Enabled  *bool
	Color    *string
}

// IsEmpty reports whether the update changes nothing.
func (u TagUpdate) IsEmpty() bool {
	return u.Name == nil && u.Keywords == nil && u.Enabled == nil && u.Color == nil
}
