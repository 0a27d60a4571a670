package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/timelov/admin-api/internal/models"
)

// auditStore is the persistence half of the audit recorder.
type auditStore interface {
	Insert(ctx context.Context, entry *models.AuditLog) error
}

// RequestMeta carries the client attribution recorded with every audit entry.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// AuditService appends immutable audit records. A failed write is logged and
// swallowed: auditing must never convert a successful operation into an error.
type AuditService struct {
	store auditStore
	now   func() time.Time
}

// NewAuditService constructs an AuditService.
func NewAuditService(store auditStore) *AuditService {
	return &AuditService{store: store, now: time.Now}
}

// Record appends one audit entry, filling in id and timestamp.
func (s *AuditService) Record(ctx context.Context, entry *models.AuditLog) {
	entry.ID = uuid.New().String()
	entry.CreatedAt = s.now()

	if err := s.store.Insert(ctx, entry); err != nil {
		log.Error().Err(err).
			Str("action", string(entry.Action)).
			Str("entity_type", string(entry.EntityType)).
			Msg("failed to write audit log")
	}
}

// RecordAction is a convenience wrapper for content-management handlers: it
// builds the entry from the acting admin, entity reference and snapshots.
func (s *AuditService) RecordAction(
	ctx context.Context,
	action models.AuditAction,
	entityType models.EntityType,
	adminID, adminEmail string,
	entityID string,
	oldValues, newValues models.JSONMap,
	meta RequestMeta,
) {
	entry := &models.AuditLog{
		Action:     action,
		EntityType: entityType,
		IPAddress:  meta.IP,
		OldValues:  oldValues,
		NewValues:  newValues,
	}
	if adminID != "" {
		entry.AdminID = &adminID
	}
	if adminEmail != "" {
		entry.AdminEmail = &adminEmail
	}
	if entityID != "" {
		entry.EntityID = &entityID
	}
	if meta.UserAgent != "" {
		entry.UserAgent = &meta.UserAgent
	}
	s.Record(ctx, entry)
}
