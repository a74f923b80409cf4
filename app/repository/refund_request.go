package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-fees/app/entity"
)

var ErrRefundRequestAlreadyExists = errors.New("refund request already exists for order")

type RefundRequestRepository struct {
	db DBTX
}

func NewRefundRequestRepository(db DBTX) *RefundRequestRepository {
	return &RefundRequestRepository{db: db}
}

const refundRequestColumns = `
	id, order_id, organizer_id, requested_amount, currency, reason, status, escalated,
	is_connect_order, processor_ref, processed_by, decided_by, notes, version, created_at, updated_at
`

func (r *RefundRequestRepository) Create(ctx context.Context, refund *entity.RefundRequest) error {
	query := `
		INSERT INTO refund_requests (
			id, order_id, organizer_id, requested_amount, currency, reason, status, escalated,
			is_connect_order, processor_ref, processed_by, decided_by, notes, version, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		refund.ID,
		refund.OrderID,
		refund.OrganizerID,
		refund.RequestedAmount,
		refund.Currency,
		refund.Reason,
		string(refund.Status),
		refund.Escalated,
		refund.IsConnectOrder,
		nullableStringValue(refund.ProcessorRef),
		nullableActorValue(refund.ProcessedBy),
		nullableStringValue(refund.DecidedBy),
		nullableStringValue(refund.Notes),
		refund.Version,
		refund.CreatedAt,
		refund.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrRefundRequestAlreadyExists
		}
		return err
	}

	return nil
}

// Update applies the refund's mutable columns guarded by its version.
func (r *RefundRequestRepository) Update(ctx context.Context, refund *entity.RefundRequest) error {
	query := `
		UPDATE refund_requests SET
			status = ?,
			escalated = ?,
			processor_ref = ?,
			processed_by = ?,
			decided_by = ?,
			notes = ?,
			version = version + 1,
			updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		string(refund.Status),
		refund.Escalated,
		nullableStringValue(refund.ProcessorRef),
		nullableActorValue(refund.ProcessedBy),
		nullableStringValue(refund.DecidedBy),
		nullableStringValue(refund.Notes),
		refund.UpdatedAt,
		refund.ID,
		refund.Version,
	)
	if err != nil {
		return err
	}

	ok, err := affectedOne(result)
	if err != nil {
		return err
	}
	if !ok {
		return ErrVersionConflict
	}

	refund.Version++
	return nil
}

func (r *RefundRequestRepository) FindByID(ctx context.Context, id string) (*entity.RefundRequest, error) {
	query := `SELECT ` + refundRequestColumns + ` FROM refund_requests WHERE id = ?`
	return r.findOne(ctx, query, id)
}

func (r *RefundRequestRepository) FindByOrderID(ctx context.Context, orderID string) (*entity.RefundRequest, error) {
	query := `SELECT ` + refundRequestColumns + ` FROM refund_requests WHERE order_id = ?`
	return r.findOne(ctx, query, orderID)
}

func (r *RefundRequestRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.RefundRequest, error) {
	refund := &entity.RefundRequest{}
	var status string
	var processorRef, processedBy, decidedBy, notes sql.NullString

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&refund.ID,
		&refund.OrderID,
		&refund.OrganizerID,
		&refund.RequestedAmount,
		&refund.Currency,
		&refund.Reason,
		&status,
		&refund.Escalated,
		&refund.IsConnectOrder,
		&processorRef,
		&processedBy,
		&decidedBy,
		&notes,
		&refund.Version,
		&refund.CreatedAt,
		&refund.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	refund.Status = entity.RefundStatus(status)
	refund.ProcessorRef = stringPtrFromNull(processorRef)
	refund.DecidedBy = stringPtrFromNull(decidedBy)
	refund.Notes = stringPtrFromNull(notes)
	if processedBy.Valid {
		actor := entity.Actor(processedBy.String)
		refund.ProcessedBy = &actor
	}

	return refund, nil
}

func nullableActorValue(v *entity.Actor) interface{} {
	if v == nil {
		return nil
	}
	return string(*v)
}
