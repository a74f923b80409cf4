package repository

import (
	"context"

	"github.com/vibast-solutions/ms-go-fees/app/entity"
)

type PayoutRepository struct {
	db DBTX
}

func NewPayoutRepository(db DBTX) *PayoutRepository {
	return &PayoutRepository{db: db}
}

// Save inserts the payout or, when the provider payout id is already known,
// updates its status.
func (r *PayoutRepository) Save(ctx context.Context, payout *entity.Payout) error {
	insert := `
		INSERT INTO payouts (id, provider_payout_id, organizer_id, amount, currency, status, failure_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, insert,
		payout.ID,
		payout.ProviderPayoutID,
		payout.OrganizerID,
		payout.Amount,
		payout.Currency,
		string(payout.Status),
		nullableStringValue(payout.FailureReason),
		payout.CreatedAt,
		payout.UpdatedAt,
	)
	if err == nil || !isDuplicateEntryError(err) {
		return err
	}

	update := `
		UPDATE payouts SET status = ?, failure_reason = ?, updated_at = ?
		WHERE provider_payout_id = ?
	`
	_, err = r.db.ExecContext(ctx, update,
		string(payout.Status),
		nullableStringValue(payout.FailureReason),
		payout.UpdatedAt,
		payout.ProviderPayoutID,
	)
	return err
}
