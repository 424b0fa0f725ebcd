package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"example.com/aievents/internal/content"
	"example.com/aievents/internal/domain"
)

type ArticleStore struct {
	db *DB
}

var _ content.ArticleStore = (*ArticleStore)(nil)

func NewArticleStore(db *DB) *ArticleStore { return &ArticleStore{db: db} }

const articleColumns = `id::text, COALESCE(slug, ''), title, content, excerpt, published_date,
author, category, tags, COALESCE(image_url, ''), status, featured`

func (s *ArticleStore) QueryArticles(ctx context.Context, q content.ArticleQuery) ([]domain.Article, error) {
	sql, args := buildArticlesQuery(q)

	rows, err := s.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Article, 0)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// articleBySlugSQL prefers an exact custom slug over an id suffix match.
// Both comparisons are literal.
const articleBySlugSQL = "SELECT " + articleColumns + ` FROM articles
WHERE status = $1
  AND (slug = $2 OR ($3 <> '' AND right(replace(id::text, '-', ''), char_length($3)) = $3))
ORDER BY (slug IS NOT DISTINCT FROM $2) DESC
LIMIT 1`

func (s *ArticleStore) ArticleBySlug(ctx context.Context, slug, suffix string) (domain.Article, error) {
	row := s.db.Pool.QueryRow(ctx, articleBySlugSQL, string(domain.StatusPublished), slug, suffix)
	a, err := scanArticle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Article{}, content.ErrArticleNotFound
	}
	return a, err
}

func buildArticlesQuery(q content.ArticleQuery) (string, []any) {
	conds := []string{"status = $1"}
	args := []any{string(domain.StatusPublished)}

	if q.Category != "" {
		args = append(args, q.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if q.FeaturedOnly {
		conds = append(conds, "featured")
	}

	sql := "SELECT " + articleColumns + " FROM articles WHERE " +
		strings.Join(conds, " AND ") + " ORDER BY published_date DESC, id DESC"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return sql, args
}

func scanArticle(row pgx.Row) (domain.Article, error) {
	var (
		a      domain.Article
		status string
	)
	err := row.Scan(&a.ID, &a.Slug, &a.Title, &a.Content, &a.Excerpt, &a.PublishedDate,
		&a.Author, &a.Category, &a.Tags, &a.ImageURL, &status, &a.Featured)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return a, err
		}
		return a, fmt.Errorf("scan article: %w", err)
	}
	a.Status = domain.Status(status)
	a.Normalize()
	return a, nil
}
