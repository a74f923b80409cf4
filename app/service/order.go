package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-fees/app/clock"
	"github.com/vibast-solutions/ms-go-fees/app/entity"
	"github.com/vibast-solutions/ms-go-fees/app/factory"
	"github.com/vibast-solutions/ms-go-fees/app/repository"
)

type orderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	FindByID(ctx context.Context, id string) (*entity.Order, error)
}

type CreateOrderInput struct {
	// ID is optional; callers may pass their own id to make retries idempotent.
	ID          string
	OrganizerID string
	EventRef    string
	PayerRef    string
	Currency    string
	Provider    string
	Subtotal    decimal.Decimal
	TicketCount int64
}

type OrderService struct {
	orders     orderRepository
	organizers organizerReader
	resolver   parameterResolver
	clock      clock.Clock
	logger     logrus.FieldLogger
}

func NewOrderService(orders orderRepository, organizers organizerReader, resolver parameterResolver, clk clock.Clock) *OrderService {
	return &OrderService{
		orders:     orders,
		organizers: organizers,
		resolver:   resolver,
		clock:      clk,
		logger:     factory.NewModuleLogger("order-service"),
	}
}

// CreateOrder snapshots the fee breakdown and the connect flag at creation.
// Neither is recomputed when the organizer's settings change later.
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*entity.Order, error) {
	organizerID := strings.TrimSpace(input.OrganizerID)
	if organizerID == "" {
		return nil, fmt.Errorf("%w: organizer_id is required", ErrInvalidRequest)
	}
	provider, err := parseProvider(input.Provider)
	if err != nil {
		return nil, err
	}

	organizer, err := s.organizers.FindByID(ctx, organizerID)
	if err != nil {
		return nil, err
	}
	if organizer == nil {
		return nil, ErrOrganizerNotFound
	}

	params, err := s.resolver.Resolve(ctx, organizer.ID, input.Currency)
	if err != nil {
		return nil, err
	}
	breakdown, err := computeFees(input.Subtotal, input.TicketCount, params, provider)
	if err != nil {
		return nil, err
	}

	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = uuid.NewString()
	}

	order := &entity.Order{
		ID:             id,
		OrganizerID:    organizer.ID,
		EventRef:       strings.TrimSpace(input.EventRef),
		PayerRef:       strings.TrimSpace(input.PayerRef),
		Subtotal:       input.Subtotal,
		TicketCount:    input.TicketCount,
		Currency:       params.Currency(),
		Provider:       provider,
		ServiceFee:     breakdown.ServiceFee,
		ProcessingFee:  breakdown.ProcessingFee,
		IsConnectOrder: organizer.ConnectStatus == entity.ConnectActive,
		CreatedAt:      s.clock.Now(),
	}
	if err := s.orders.Create(ctx, order); err != nil {
		if errors.Is(err, repository.ErrOrderAlreadyExists) {
			return nil, ErrOrderAlreadyExists
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":         order.ID,
		"organizer_id":     order.OrganizerID,
		"is_connect_order": order.IsConnectOrder,
		"custom_fees":      params.IsCustom(),
	}).Info("Order created")

	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*entity.Order, error) {
	order, err := s.orders.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}
