package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"SentimentVision/internal/domain"
	"SentimentVision/internal/ports"
)

var errNotFound = errors.New("not found")

// memoryStore is an in-memory stand-in for the Postgres repository.
type memoryStore struct {
	mu       sync.Mutex
	nextID   int64
	clients  map[string]int64
	sources  map[string]int64
	articles []domain.Article
	fetches  []domain.FetchLog
	scores   map[int64]domain.ScoreResult
	tagged   map[int64][]string
	cleared  []int64
	tags     []domain.Tag

	saveErr map[int64]error
}

var (
	_ ports.ClientRepository = (*memoryStore)(nil)
	_ ports.SourceRepository = (*memoryStore)(nil)
	_ ports.ArticleWriter    = (*memoryStore)(nil)
	_ ports.ScoreStore       = (*memoryStore)(nil)
	_ ports.TagTargetStore   = (*memoryStore)(nil)
	_ ports.RefetchStore     = (*memoryStore)(nil)
	_ ports.TagRepository    = (*memoryStore)(nil)
)

func newMemoryStore() *memoryStore {
	return &memoryStore{
		clients: map[string]int64{},
		sources: map[string]int64{},
		scores:  map[int64]domain.ScoreResult{},
		tagged:  map[int64][]string{},
		saveErr: map[int64]error{},
	}
}

func (m *memoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryStore) SyncClients(_ context.Context, clients []domain.Client) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int64{}
	for _, c := range clients {
		if _, ok := m.clients[c.Name]; !ok {
			m.clients[c.Name] = m.id()
		}
		out[c.Name] = m.clients[c.Name]
	}
	return out, nil
}

func (m *memoryStore) ClientIDByName(_ context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.clients[name]
	if !ok {
		return 0, fmt.Errorf("client %q: %w", name, errNotFound)
	}
	return id, nil
}

func (m *memoryStore) syncSources(prefix string, sources []domain.Source) map[string]int64 {
	out := map[string]int64{}
	for _, s := range sources {
		key := prefix + s.URL
		if _, ok := m.sources[key]; !ok {
			m.sources[key] = m.id()
		}
		out[s.URL] = m.sources[key]
	}
	return out
}

func (m *memoryStore) SyncSources(_ context.Context, clientID int64, sources []domain.Source) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncSources(fmt.Sprint(clientID, "|"), sources), nil
}

func (m *memoryStore) SyncGlobalSources(_ context.Context, sources []domain.Source) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncSources("global|", sources), nil
}

func (m *memoryStore) LogFetch(_ context.Context, entry domain.FetchLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches = append(m.fetches, entry)
	return nil
}

func (m *memoryStore) StoreArticle(_ context.Context, a domain.Article) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.articles {
		if existing.ClientID == a.ClientID && existing.URL == a.URL {
			return 0, false, nil
		}
	}
	a.ID = m.id()
	m.articles = append(m.articles, a)
	return a.ID, true, nil
}

func (m *memoryStore) UnscoredArticles(_ context.Context, limit int) ([]domain.ScoringArticle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ScoringArticle
	for _, a := range m.articles {
		if _, ok := m.scores[a.ID]; ok {
			continue
		}
		out = append(out, domain.ScoringArticle{
			ID:          a.ID,
			Title:       a.Title,
			ContentText: a.ContentText,
			Client:      domain.ClientContext{Name: m.clientName(a.ClientID)},
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memoryStore) clientName(id int64) string {
	for name, cid := range m.clients {
		if cid == id {
			return name
		}
	}
	return ""
}

func (m *memoryStore) SaveScore(_ context.Context, articleID int64, result domain.ScoreResult, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.saveErr[articleID]; err != nil {
		return err
	}
	m.scores[articleID] = result
	return nil
}

func (m *memoryStore) withContent(clientID int64, limit int, skipTagged bool) []domain.Article {
	var out []domain.Article
	for _, a := range m.articles {
		if clientID != 0 && a.ClientID != clientID {
			continue
		}
		if a.Content() == "" {
			continue
		}
		if _, ok := m.tagged[a.ID]; ok && skipTagged {
			continue
		}
		out = append(out, a)
		if len(out) == limit {
			break
		}
	}
	return out
}

func (m *memoryStore) UntaggedArticles(_ context.Context, clientID int64, limit int) ([]domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.withContent(clientID, limit, true), nil
}

func (m *memoryStore) TaggableArticles(_ context.Context, clientID int64, limit int) ([]domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.withContent(clientID, limit, false), nil
}

func (m *memoryStore) ClearTags(_ context.Context, clientID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = append(m.cleared, clientID)
	for _, a := range m.articles {
		if clientID == 0 || a.ClientID == clientID {
			delete(m.tagged, a.ID)
		}
	}
	return nil
}

func (m *memoryStore) EmptyArticles(_ context.Context, limit int) ([]domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Article
	for _, a := range m.articles {
		if a.Content() == "" {
			out = append(out, a)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memoryStore) UpdateContent(_ context.Context, article domain.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.articles {
		if m.articles[i].ID == article.ID {
			m.articles[i] = article
			return nil
		}
	}
	return errNotFound
}

func (m *memoryStore) ListTags(_ context.Context, filter domain.TagFilter) ([]domain.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Tag
	for _, t := range m.tags {
		if filter.ClientID != nil && (t.ClientID == nil || *t.ClientID != *filter.ClientID) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *memoryStore) GetTag(_ context.Context, id int64) (domain.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tags {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Tag{}, errNotFound
}

func (m *memoryStore) CreateTag(_ context.Context, tag domain.Tag) (int64, error) {
	if err := tag.Validate(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tag.ID = m.id()
	m.tags = append(m.tags, tag)
	return tag.ID, nil
}

func (m *memoryStore) UpdateTag(_ context.Context, id int64, update domain.TagUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tags {
		if m.tags[i].ID != id {
			continue
		}
		if update.Enabled != nil {
			m.tags[i].Enabled = *update.Enabled
		}
		if update.Keywords != nil {
			m.tags[i].Keywords = update.Keywords
		}
		return nil
	}
	return errNotFound
}

func (m *memoryStore) DeleteTag(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tags {
		if m.tags[i].ID == id {
			m.tags = append(m.tags[:i], m.tags[i+1:]...)
			return nil
		}
	}
	return errNotFound
}

// keywordTagger tags any article whose text contains "carbon" and records calls.
type keywordTagger struct {
	store *memoryStore
	calls []int64
}

func (k *keywordTagger) Tag(_ context.Context, articleID, _ int64, text string) ([]string, error) {
	k.calls = append(k.calls, articleID)
	if !strings.Contains(strings.ToLower(text), "carbon") {
		return nil, nil
	}
	names := []string{"ESG-Environment"}
	k.store.mu.Lock()
	k.store.tagged[articleID] = names
	k.store.mu.Unlock()
	return names, nil
}

// feedSource serves canned articles per source URL.
type feedSource struct {
	articles map[string][]domain.Article
	errs     map[string]error
	calls    []string
}

func (f *feedSource) Fetch(_ context.Context, source domain.Source) ([]domain.Article, error) {
	f.calls = append(f.calls, source.URL)
	if err := f.errs[source.URL]; err != nil {
		return nil, err
	}
	return f.articles[source.URL], nil
}

type fixedExtractor struct {
	pages map[string]domain.Extracted
}

func (f fixedExtractor) Extract(_ context.Context, url string) (domain.Extracted, error) {
	page, ok := f.pages[url]
	if !ok {
		return domain.Extracted{}, fmt.Errorf("fetch %s: status 404", url)
	}
	return page, nil
}

type recordingNotifier struct {
	messages []string
	err      error
}

func (r *recordingNotifier) PublishDigest(_ context.Context, digest string) error {
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, digest)
	return nil
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
