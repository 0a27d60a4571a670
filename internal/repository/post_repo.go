package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/timelov/admin-api/internal/models"
)

const postColumns = `
	id, slug, title, excerpt, content, featured_image_url, category, tags,
	status, created_by, created_at, updated_at, published_at, deleted_at
`

// PostRepository persists blog posts with soft deletes.
type PostRepository struct {
	db *sqlx.DB
}

// NewPostRepository constructs a PostRepository.
func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db: db}
}

// List returns non-deleted posts, optionally narrowed by status and category.
func (r *PostRepository) List(ctx context.Context, status models.PostStatus, category string) ([]models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE deleted_at IS NULL`
	args := []interface{}{}
	if status != "" {
		args = append(args, status)
		query += ` AND status = $1`
	}
	if category != "" {
		args = append(args, category)
		if len(args) == 1 {
			query += ` AND category = $1`
		} else {
			query += ` AND category = $2`
		}
	}
	query += ` ORDER BY created_at DESC`

	posts := []models.Post{}
	err := r.db.SelectContext(ctx, &posts, query, args...)
	return posts, err
}

// GetByID fetches a live post by id.
func (r *PostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := r.db.GetContext(ctx, &post, `
		SELECT `+postColumns+` FROM posts
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// SlugExists reports whether a live post already claims the slug.
func (r *PostRepository) SlugExists(ctx context.Context, slug string, excludeID string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM posts
		WHERE slug = $1 AND deleted_at IS NULL AND id <> $2
	`, slug, excludeID)
	return n > 0, err
}

// Create inserts a post.
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO posts (id, slug, title, excerpt, content, featured_image_url,
		                   category, tags, status, created_by, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`, post.ID, post.Slug, post.Title, post.Excerpt, post.Content, post.FeaturedImageURL,
		post.Category, post.Tags, post.Status, post.CreatedBy, post.PublishedAt).
		Scan(&post.CreatedAt, &post.UpdatedAt)
}

// Update rewrites the mutable fields of a post.
func (r *PostRepository) Update(ctx context.Context, post *models.Post) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE posts
		SET slug = $2, title = $3, excerpt = $4, content = $5, featured_image_url = $6,
		    category = $7, tags = $8, status = $9, published_at = $10, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, post.ID, post.Slug, post.Title, post.Excerpt, post.Content, post.FeaturedImageURL,
		post.Category, post.Tags, post.Status, post.PublishedAt)
	return err
}

// SoftDelete stamps deleted_at.
func (r *PostRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE posts SET deleted_at = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id, at)
	return err
}

// CountByStatus returns total and published counts of live posts.
func (r *PostRepository) CountByStatus(ctx context.Context) (total, published int, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'published')
		FROM posts WHERE deleted_at IS NULL
	`).Scan(&total, &published)
	return
}
