package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/timelov/admin-api/internal/models"
)

// SettingRepository persists keyed site-settings documents.
type SettingRepository struct {
	db *sqlx.DB
}

// NewSettingRepository constructs a SettingRepository.
func NewSettingRepository(db *sqlx.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// List returns all settings documents.
func (r *SettingRepository) List(ctx context.Context) ([]models.Setting, error) {
	settings := []models.Setting{}
	err := r.db.SelectContext(ctx, &settings, `
		SELECT id, key, value, updated_by, created_at, updated_at
		FROM settings ORDER BY key
	`)
	return settings, err
}

// GetByKey fetches one settings document.
func (r *SettingRepository) GetByKey(ctx context.Context, key string) (*models.Setting, error) {
	var setting models.Setting
	err := r.db.GetContext(ctx, &setting, `
		SELECT id, key, value, updated_by, created_at, updated_at
		FROM settings WHERE key = $1
	`, key)
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// Upsert creates or replaces the document for a key and returns the stored row.
func (r *SettingRepository) Upsert(ctx context.Context, key string, value models.JSONMap, updatedBy string) (*models.Setting, error) {
	var setting models.Setting
	err := r.db.GetContext(ctx, &setting, `
		INSERT INTO settings (id, key, value, updated_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_by = EXCLUDED.updated_by, updated_at = NOW()
		RETURNING id, key, value, updated_by, created_at, updated_at
	`, uuid.New().String(), key, value, updatedBy)
	if err != nil {
		return nil, err
	}
	return &setting, nil
}
