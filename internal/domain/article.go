package domain

import "strings"

// DefaultArticleCategory is used when an article has none.
const DefaultArticleCategory = "Industry News"

// Article is a news item published alongside the event directory.
type Article struct {
	ID            string   `json:"id"`
	Slug          string   `json:"slug"`
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	Excerpt       string   `json:"excerpt"`
	PublishedDate string   `json:"publishedDate"`
	Author        string   `json:"author"`
	Category      string   `json:"category"`
	Tags          []string `json:"tags"`
	ImageURL      string   `json:"imageUrl,omitempty"`
	Status        Status   `json:"status"`
	Featured      bool     `json:"featured"`
}

// Normalize fills the derived fields: a generated slug when no custom one
// is set, the default category and a non-nil tag list.
func (a *Article) Normalize() {
	if strings.TrimSpace(a.Slug) == "" {
		a.Slug = Slug(a.Title, a.ID)
	}
	if a.Category == "" {
		a.Category = DefaultArticleCategory
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	if a.Status == "" {
		a.Status = StatusDraft
	}
}

// MatchesSlug reports whether slug names this article, either as its custom
// slug or through the id suffix of a generated one.
func (a *Article) MatchesSlug(slug string) bool {
	if slug == a.Slug {
		return true
	}
	suffix := SlugID(slug)
	return suffix != "" && strings.HasSuffix(strings.ReplaceAll(a.ID, "-", ""), suffix)
}
