package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/timelov/admin-api/internal/models"
)

const widgetColumns = `
	id, name, integration_type, section, config, embed_code, is_active,
	sort_order, created_by, created_at, updated_at, deleted_at
`

// WidgetRepository persists third-party integration widgets.
type WidgetRepository struct {
	db *sqlx.DB
}

// NewWidgetRepository constructs a WidgetRepository.
func NewWidgetRepository(db *sqlx.DB) *WidgetRepository {
	return &WidgetRepository{db: db}
}

// List returns non-deleted widgets ordered by section and sort order.
// When activeOnly is set, inactive widgets are skipped.
func (r *WidgetRepository) List(ctx context.Context, activeOnly bool) ([]models.Widget, error) {
	widgets := []models.Widget{}
	query := `
		SELECT ` + widgetColumns + ` FROM widgets
		WHERE deleted_at IS NULL`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY section, sort_order, created_at`
	err := r.db.SelectContext(ctx, &widgets, query)
	return widgets, err
}

// GetByID fetches a live widget by id.
func (r *WidgetRepository) GetByID(ctx context.Context, id string) (*models.Widget, error) {
	var widget models.Widget
	err := r.db.GetContext(ctx, &widget, `
		SELECT `+widgetColumns+` FROM widgets
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return nil, err
	}
	return &widget, nil
}

// Create inserts a widget.
func (r *WidgetRepository) Create(ctx context.Context, widget *models.Widget) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO widgets (id, name, integration_type, section, config,
		                     embed_code, is_active, sort_order, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, widget.ID, widget.Name, widget.IntegrationType, widget.Section, widget.Config,
		widget.EmbedCode, widget.IsActive, widget.SortOrder, widget.CreatedBy).
		Scan(&widget.CreatedAt, &widget.UpdatedAt)
}

// Update rewrites the mutable fields of a widget.
func (r *WidgetRepository) Update(ctx context.Context, widget *models.Widget) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE widgets
		SET name = $2, integration_type = $3, section = $4, config = $5,
		    embed_code = $6, is_active = $7, sort_order = $8, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, widget.ID, widget.Name, widget.IntegrationType, widget.Section, widget.Config,
		widget.EmbedCode, widget.IsActive, widget.SortOrder)
	return err
}

// SoftDelete stamps deleted_at.
func (r *WidgetRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE widgets SET deleted_at = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id, at)
	return err
}

// CountByStatus returns total and active counts of live widgets.
func (r *WidgetRepository) CountByStatus(ctx context.Context) (total, active int, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_active)
		FROM widgets WHERE deleted_at IS NULL
	`).Scan(&total, &active)
	return
}
