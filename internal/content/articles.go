package content

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"example.com/aievents/internal/domain"
)

var ErrArticleNotFound = errors.New("article not found")

type (
	ArticleQuery struct {
		Category     string
		FeaturedOnly bool
		// Limit caps the result; zero means no cap.
		Limit int
	}

	ArticleStore interface {
		// QueryArticles returns Published articles matching q, newest first.
		QueryArticles(ctx context.Context, q ArticleQuery) ([]domain.Article, error)
		// ArticleBySlug returns the Published article with the given custom
		// slug, or whose compact id ends with suffix when suffix is set.
		ArticleBySlug(ctx context.Context, slug, suffix string) (domain.Article, error)
	}
)

// Newsroom is the read side for articles.
type Newsroom struct {
	store ArticleStore
}

func NewNewsroom(store ArticleStore) *Newsroom { return &Newsroom{store: store} }

func (n *Newsroom) Articles(ctx context.Context, q ArticleQuery) ([]domain.Article, error) {
	out, err := n.store.QueryArticles(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	return out, nil
}

func (n *Newsroom) BySlug(ctx context.Context, slug string) (domain.Article, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Article{}, ErrArticleNotFound
	}
	return n.store.ArticleBySlug(ctx, slug, domain.SlugID(slug))
}

// MemoryArticles keeps articles in process.
type MemoryArticles struct {
	mu       sync.RWMutex
	articles map[string]domain.Article
}

var _ ArticleStore = (*MemoryArticles)(nil)

func NewMemoryArticles() *MemoryArticles {
	return &MemoryArticles{articles: make(map[string]domain.Article)}
}

// Put inserts or replaces an article, assigning an id if it has none.
func (s *MemoryArticles) Put(a domain.Article) string {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles[a.ID] = a
	return a.ID
}

func (s *MemoryArticles) QueryArticles(_ context.Context, q ArticleQuery) ([]domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Article, 0)
	for _, a := range s.articles {
		switch {
		case a.Status != domain.StatusPublished:
		case q.Category != "" && a.Category != q.Category:
		case q.FeaturedOnly && !a.Featured:
		default:
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PublishedDate == out[j].PublishedDate {
			return out[i].ID > out[j].ID
		}
		return out[i].PublishedDate > out[j].PublishedDate
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MemoryArticles) ArticleBySlug(_ context.Context, slug, _ string) (domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var byID *domain.Article
	for _, a := range s.articles {
		if a.Status != domain.StatusPublished {
			continue
		}
		if a.Slug == slug {
			return a, nil
		}
		if byID == nil && a.MatchesSlug(slug) {
			a := a
			byID = &a
		}
	}
	if byID != nil {
		return *byID, nil
	}
	return domain.Article{}, ErrArticleNotFound
}
