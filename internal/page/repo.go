package page

import (
	"context"
	"database/sql"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Upsert inserts or fully replaces the record for p.URL.
func (r *PostgresRepo) Upsert(ctx context.Context, p Page) error {
	query := `INSERT INTO pages (url, title, markdown, crawled_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (url) DO UPDATE SET
			title = EXCLUDED.title,
			markdown = EXCLUDED.markdown,
			crawled_at = EXCLUDED.crawled_at`
	_, err := r.db.ExecContext(ctx, query, p.URL, p.Title, p.Markdown, p.CrawledAt)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, url string) (*Page, error) {
	p := &Page{}
	query := `SELECT url, title, markdown, crawled_at FROM pages WHERE url = $1`
	err := r.db.QueryRowContext(ctx, query, url).Scan(&p.URL, &p.Title, &p.Markdown, &p.CrawledAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages`).Scan(&count)
	return count, err
}

func (r *PostgresRepo) List(ctx context.Context) ([]Page, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT url, title, markdown, crawled_at FROM pages ORDER BY url`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.URL, &p.Title, &p.Markdown, &p.CrawledAt); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}
