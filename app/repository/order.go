package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-fees/app/entity"
)

var ErrOrderAlreadyExists = errors.New("order already exists")

type OrderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	query := `
		INSERT INTO orders (
			id, organizer_id, event_ref, payer_ref, subtotal, ticket_count, currency,
			provider, service_fee, processing_fee, is_connect_order, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		order.ID,
		order.OrganizerID,
		order.EventRef,
		order.PayerRef,
		order.Subtotal,
		order.TicketCount,
		order.Currency,
		string(order.Provider),
		order.ServiceFee,
		order.ProcessingFee,
		order.IsConnectOrder,
		order.CreatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrOrderAlreadyExists
		}
		return err
	}

	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	query := `
		SELECT id, organizer_id, event_ref, payer_ref, subtotal, ticket_count, currency,
			provider, service_fee, processing_fee, is_connect_order, created_at
		FROM orders
		WHERE id = ?
	`

	order := &entity.Order{}
	var provider string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.OrganizerID,
		&order.EventRef,
		&order.PayerRef,
		&order.Subtotal,
		&order.TicketCount,
		&order.Currency,
		&provider,
		&order.ServiceFee,
		&order.ProcessingFee,
		&order.IsConnectOrder,
		&order.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	order.Provider = entity.PaymentProvider(provider)

	return order, nil
}
