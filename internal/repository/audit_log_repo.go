package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/timelov/admin-api/internal/models"
)

// AuditLogRepository persists the append-only audit trail. There are no
// update or delete methods on purpose.
type AuditLogRepository struct {
	db *sqlx.DB
}

// NewAuditLogRepository constructs an AuditLogRepository.
func NewAuditLogRepository(db *sqlx.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Insert appends one audit entry.
func (r *AuditLogRepository) Insert(ctx context.Context, entry *models.AuditLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, admin_id, admin_email, action, entity_type, entity_id,
			old_values, new_values, ip_address, user_agent, additional_info, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		entry.ID, entry.AdminID, entry.AdminEmail, entry.Action, entry.EntityType, entry.EntityID,
		entry.OldValues, entry.NewValues, entry.IPAddress, entry.UserAgent, entry.AdditionalInfo, entry.CreatedAt,
	)
	return err
}

// List returns audit entries newest first, narrowed by the filter.
func (r *AuditLogRepository) List(ctx context.Context, f *models.AuditLogFilter) ([]models.AuditLog, error) {
	where, args := buildAuditWhere(f)

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	skip := f.Skip
	if skip < 0 {
		skip = 0
	}

	args = append(args, limit, skip)
	query := fmt.Sprintf(`
		SELECT id, admin_id, admin_email, action, entity_type, entity_id,
		       old_values, new_values, ip_address, user_agent, additional_info, created_at
		FROM audit_logs
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	logs := []models.AuditLog{}
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, err
	}
	return logs, nil
}

// Count returns the total number of entries matching the filter.
func (r *AuditLogRepository) Count(ctx context.Context, f *models.AuditLogFilter) (int, error) {
	where, args := buildAuditWhere(f)
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM audit_logs `+where, args...)
	return n, err
}

// ActionCount pairs an enumerated value with how often it occurs.
type ActionCount struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}

// CountByAction groups entries by action, most frequent first.
func (r *AuditLogRepository) CountByAction(ctx context.Context) ([]ActionCount, error) {
	rows := []ActionCount{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT action AS key, COUNT(*) AS count
		FROM audit_logs
		GROUP BY action
		ORDER BY count DESC
	`)
	return rows, err
}

// CountByEntityType groups entries by entity type, most frequent first.
func (r *AuditLogRepository) CountByEntityType(ctx context.Context) ([]ActionCount, error) {
	rows := []ActionCount{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT entity_type AS key, COUNT(*) AS count
		FROM audit_logs
		GROUP BY entity_type
		ORDER BY count DESC
	`)
	return rows, err
}

// Recent returns the n newest entries for the dashboard feed.
func (r *AuditLogRepository) Recent(ctx context.Context, n int) ([]models.AuditLog, error) {
	logs := []models.AuditLog{}
	err := r.db.SelectContext(ctx, &logs, `
		SELECT id, admin_id, admin_email, action, entity_type, entity_id,
		       old_values, new_values, ip_address, user_agent, additional_info, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1
	`, n)
	return logs, err
}

func buildAuditWhere(f *models.AuditLogFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Action != "" {
		add("action = $%d", string(f.Action))
	}
	if f.EntityType != "" {
		add("entity_type = $%d", string(f.EntityType))
	}
	if f.AdminID != "" {
		add("admin_id = $%d", f.AdminID)
	}
	if f.StartDate != nil {
		add("created_at >= $%d", *f.StartDate)
	}
	if f.EndDate != nil {
		add("created_at <= $%d", *f.EndDate)
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}
