package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArticle_NormalizeDefaults(t *testing.T) {
	a := Article{ID: "6f1d2c3b-4a5e-4f60-9a1b-2c3d4e5f6a7b", Title: "AI Act: What Changes?"}
	a.Normalize()

	assert.Equal(t, "ai-act-what-changes-2c3d4e5f6a7b", a.Slug)
	assert.Equal(t, DefaultArticleCategory, a.Category)
	assert.Equal(t, []string{}, a.Tags)
	assert.Equal(t, StatusDraft, a.Status)

	custom := Article{ID: "6f1d2c3b-4a5e-4f60-9a1b-2c3d4e5f6a7b", Slug: "ai-act", Category: "Policy"}
	custom.Normalize()
	assert.Equal(t, "ai-act", custom.Slug)
	assert.Equal(t, "Policy", custom.Category)
}

func TestArticle_MatchesSlug(t *testing.T) {
	a := Article{ID: "6f1d2c3b-4a5e-4f60-9a1b-2c3d4e5f6a7b", Slug: "ai-act"}

	assert.True(t, a.MatchesSlug("ai-act"))
	assert.True(t, a.MatchesSlug("anything-2c3d4e5f6a7b"))
	assert.False(t, a.MatchesSlug("anything-000000000000"))
	assert.False(t, a.MatchesSlug("act"))
	assert.False(t, a.MatchesSlug("x-____________"))
}
