package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/timelov/admin-api/internal/models"
)

const pageColumns = `
	id, slug, title, meta_description, content, status, created_by,
	created_at, updated_at, published_at, deleted_at
`

// PageRepository persists CMS pages. Deletes are soft: rows keep their
// deleted_at timestamp and all reads filter on it.
type PageRepository struct {
	db *sqlx.DB
}

// NewPageRepository constructs a PageRepository.
func NewPageRepository(db *sqlx.DB) *PageRepository {
	return &PageRepository{db: db}
}

// List returns non-deleted pages, optionally narrowed by status.
func (r *PageRepository) List(ctx context.Context, status models.PageStatus) ([]models.Page, error) {
	pages := []models.Page{}
	if status != "" {
		err := r.db.SelectContext(ctx, &pages, `
			SELECT `+pageColumns+` FROM pages
			WHERE deleted_at IS NULL AND status = $1
			ORDER BY created_at DESC
		`, status)
		return pages, err
	}
	err := r.db.SelectContext(ctx, &pages, `
		SELECT `+pageColumns+` FROM pages
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
	`)
	return pages, err
}

// GetByID fetches a live page by id.
func (r *PageRepository) GetByID(ctx context.Context, id string) (*models.Page, error) {
	var page models.Page
	err := r.db.GetContext(ctx, &page, `
		SELECT `+pageColumns+` FROM pages
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// SlugExists reports whether a live page already claims the slug.
func (r *PageRepository) SlugExists(ctx context.Context, slug string, excludeID string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM pages
		WHERE slug = $1 AND deleted_at IS NULL AND id <> $2
	`, slug, excludeID)
	return n > 0, err
}

// Create inserts a page.
func (r *PageRepository) Create(ctx context.Context, page *models.Page) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO pages (id, slug, title, meta_description, content, status, created_by, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, page.ID, page.Slug, page.Title, page.MetaDescription, page.Content, page.Status, page.CreatedBy, page.PublishedAt).
		Scan(&page.CreatedAt, &page.UpdatedAt)
}

// Update rewrites the mutable fields of a page.
func (r *PageRepository) Update(ctx context.Context, page *models.Page) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE pages
		SET slug = $2, title = $3, meta_description = $4, content = $5,
		    status = $6, published_at = $7, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, page.ID, page.Slug, page.Title, page.MetaDescription, page.Content, page.Status, page.PublishedAt)
	return err
}

// SoftDelete stamps deleted_at; the row is retained for recovery.
func (r *PageRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE pages SET deleted_at = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id, at)
	return err
}

// CountByStatus returns total and published counts of live pages.
func (r *PageRepository) CountByStatus(ctx context.Context) (total, published int, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'published')
		FROM pages WHERE deleted_at IS NULL
	`).Scan(&total, &published)
	return
}
