package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// AuditAction enumerates every action the panel records. The set is closed:
// repositories serialize the string value, services only construct entries
// through these constants.
type AuditAction string

const (
	// Auth actions
	AuditLoginSuccess         AuditAction = "login_success"
	AuditLoginFailed          AuditAction = "login_failed"
	AuditLogout               AuditAction = "logout"
	AuditTokenRefresh         AuditAction = "token_refresh"
	AuditPasswordResetRequest AuditAction = "password_reset_request"
	AuditPasswordResetSuccess AuditAction = "password_reset_success"

	// Page actions
	AuditPageCreate AuditAction = "page_create"
	AuditPageUpdate AuditAction = "page_update"
	AuditPageDelete AuditAction = "page_delete"

	// Post actions
	AuditPostCreate AuditAction = "post_create"
	AuditPostUpdate AuditAction = "post_update"
	AuditPostDelete AuditAction = "post_delete"

	// Widget actions
	AuditWidgetCreate AuditAction = "widget_create"
	AuditWidgetUpdate AuditAction = "widget_update"
	AuditWidgetDelete AuditAction = "widget_delete"

	// Settings actions
	AuditSettingsUpdate AuditAction = "settings_update"
)

// EntityType enumerates the kinds of entities audit entries can reference.
type EntityType string

const (
	EntityAuth    EntityType = "auth"
	EntityPage    EntityType = "page"
	EntityPost    EntityType = "post"
	EntityWidget  EntityType = "widget"
	EntitySetting EntityType = "setting"
	EntityUser    EntityType = "user"
)

// JSONMap holds opaque before/after snapshots stored as JSONB.
type JSONMap map[string]interface{}

// Value implements driver.Valuer for database storage.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for database retrieval.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan JSONMap")
	}
	return json.Unmarshal(bytes, m)
}

// AuditLog is an immutable record of a security-relevant or content-changing
// action. Entries are append-only; nothing updates or deletes them.
// AdminID/AdminEmail are nil when the actor is unauthenticated (e.g. a failed
// login against an unknown email).
type AuditLog struct {
	ID             string      `db:"id" json:"id"`
	AdminID        *string     `db:"admin_id" json:"admin_id,omitempty"`
	AdminEmail     *string     `db:"admin_email" json:"admin_email,omitempty"`
	Action         AuditAction `db:"action" json:"action"`
	EntityType     EntityType  `db:"entity_type" json:"entity_type"`
	EntityID       *string     `db:"entity_id" json:"entity_id,omitempty"`
	OldValues      JSONMap     `db:"old_values" json:"old_values,omitempty"`
	NewValues      JSONMap     `db:"new_values" json:"new_values,omitempty"`
	IPAddress      string      `db:"ip_address" json:"ip_address"`
	UserAgent      *string     `db:"user_agent" json:"user_agent,omitempty"`
	AdditionalInfo JSONMap     `db:"additional_info" json:"additional_info,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
}

// AuditLogFilter narrows audit log listings.
type AuditLogFilter struct {
	Action     AuditAction
	EntityType EntityType
	AdminID    string
	StartDate  *time.Time
	EndDate    *time.Time
	Limit      int
	Skip       int
}
