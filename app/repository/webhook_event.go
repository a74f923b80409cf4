package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-fees/app/entity"
)

var ErrWebhookEventAlreadyExists = errors.New("webhook event already recorded")

type WebhookEventRepository struct {
	db DBTX
}

func NewWebhookEventRepository(db DBTX) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

const webhookEventColumns = `
	id, external_id, provider, event_type, payload_json, attempts, last_error, outcome,
	received_at, claimed_at, processed_at
`

// Create inserts the event with its claim already taken. The unique key on
// external_id turns concurrent duplicate deliveries into ErrWebhookEventAlreadyExists.
func (r *WebhookEventRepository) Create(ctx context.Context, event *entity.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (
			id, external_id, provider, event_type, payload_json, attempts, received_at, claimed_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.ExternalID,
		event.Provider,
		event.EventType,
		event.PayloadJSON,
		event.Attempts,
		event.ReceivedAt,
		nullableTimeValue(event.ClaimedAt),
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrWebhookEventAlreadyExists
		}
		return err
	}

	return nil
}

func (r *WebhookEventRepository) FindByExternalID(ctx context.Context, provider, externalID string) (*entity.WebhookEvent, error) {
	query := `SELECT ` + webhookEventColumns + ` FROM webhook_events WHERE provider = ? AND external_id = ?`

	event, err := scanWebhookEvent(r.db.QueryRowContext(ctx, query, provider, externalID))
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return event, nil
}

// Claim takes the processing lease on an unprocessed event whose previous
// claim, if any, started before staleBefore.
func (r *WebhookEventRepository) Claim(ctx context.Context, id string, now, staleBefore time.Time) (bool, error) {
	query := `
		UPDATE webhook_events
		SET claimed_at = ?, attempts = attempts + 1
		WHERE id = ?
		  AND processed_at IS NULL
		  AND (claimed_at IS NULL OR claimed_at < ?)
	`

	result, err := r.db.ExecContext(ctx, query, now, id, staleBefore)
	if err != nil {
		return false, err
	}
	return affectedOne(result)
}

// Release drops the claim after a failed attempt so a redelivery can retry.
func (r *WebhookEventRepository) Release(ctx context.Context, id string, lastError string) error {
	query := `
		UPDATE webhook_events
		SET claimed_at = NULL, last_error = ?
		WHERE id = ? AND processed_at IS NULL
	`

	_, err := r.db.ExecContext(ctx, query, lastError, id)
	return err
}

// MarkProcessed sets processed_at once; later calls report false.
func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, id string, outcome entity.WebhookOutcome, now time.Time) (bool, error) {
	query := `
		UPDATE webhook_events
		SET processed_at = ?, outcome = ?, claimed_at = NULL, last_error = NULL
		WHERE id = ? AND processed_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, now, string(outcome), id)
	if err != nil {
		return false, err
	}
	return affectedOne(result)
}

// ListUnprocessed returns events received before receivedBefore that are
// not processed and not under a live claim.
func (r *WebhookEventRepository) ListUnprocessed(ctx context.Context, receivedBefore, staleBefore time.Time, limit int32) ([]*entity.WebhookEvent, error) {
	query := `
		SELECT ` + webhookEventColumns + `
		FROM webhook_events
		WHERE processed_at IS NULL
		  AND received_at < ?
		  AND (claimed_at IS NULL OR claimed_at < ?)
		ORDER BY received_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, receivedBefore, staleBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.WebhookEvent, 0)
	for rows.Next() {
		item, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func scanWebhookEvent(scan rowScanner) (*entity.WebhookEvent, error) {
	event := &entity.WebhookEvent{}
	var lastError, outcome sql.NullString
	var claimedAt, processedAt sql.NullTime

	err := scan.Scan(
		&event.ID,
		&event.ExternalID,
		&event.Provider,
		&event.EventType,
		&event.PayloadJSON,
		&event.Attempts,
		&lastError,
		&outcome,
		&event.ReceivedAt,
		&claimedAt,
		&processedAt,
	)
	if err != nil {
		return nil, err
	}

	event.LastError = stringPtrFromNull(lastError)
	event.ClaimedAt = timePtrFromNull(claimedAt)
	event.ProcessedAt = timePtrFromNull(processedAt)
	if outcome.Valid {
		o := entity.WebhookOutcome(outcome.String)
		event.Outcome = &o
	}

	return event, nil
}
