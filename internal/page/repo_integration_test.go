package page_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sitekb/internal/page"
	"sitekb/internal/testutils"
)

func TestPageRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := testutils.NewIntegrationSuite(t)
	s.Setup()
	defer s.Teardown()

	repo := page.NewPostgresRepo(s.DB)
	ctx := context.Background()

	p := page.Page{
		URL:       "https://example.org/about",
		Title:     "About Us",
		Markdown:  "# About Us\n\nFirst crawl.",
		CrawledAt: 1756500000,
	}
	require.NoError(t, repo.Upsert(ctx, p))

	// Recrawl replaces the row instead of duplicating it.
	p.Title = "About Us (updated)"
	p.Markdown = "# About Us\n\nSecond crawl."
	p.CrawledAt = 1756586400
	require.NoError(t, repo.Upsert(ctx, p))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := repo.Get(ctx, p.URL)
	require.NoError(t, err)
	assert.Equal(t, "About Us (updated)", got.Title)
	assert.Equal(t, int64(1756586400), got.CrawledAt)

	pages, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, p.URL, pages[0].URL)
}
