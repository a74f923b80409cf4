package repository

import (
	"context"

	"github.com/vibast-solutions/ms-go-fees/app/entity"
)

type AuditLogRepository struct {
	db DBTX
}

func NewAuditLogRepository(db DBTX) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Create(ctx context.Context, entry *entity.AuditLog) error {
	query := `
		INSERT INTO audit_logs (id, action, entity_type, entity_id, actor_ref, details_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		nullableStringValue(entry.ActorRef),
		entry.DetailsJSON,
		entry.CreatedAt,
	)
	return err
}

// NewAuditDetails encodes audit details as a JSON object.
func NewAuditDetails(details map[string]interface{}) (string, error) {
	return serializeDetails(details)
}
