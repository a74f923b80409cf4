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
	"github.com/vibast-solutions/ms-go-fees/app/publisher"
	"github.com/vibast-solutions/ms-go-fees/app/repository"
)

type Decision string

const (
	DecisionApprove  Decision = "approve"
	DecisionReject   Decision = "reject"
	DecisionEscalate Decision = "escalate"
	DecisionProcess  Decision = "process"
)

func ParseDecision(raw string) (Decision, bool) {
	switch d := Decision(strings.ToLower(strings.TrimSpace(raw))); d {
	case DecisionApprove, DecisionReject, DecisionEscalate, DecisionProcess:
		return d, true
	}
	return "", false
}

func ParseActor(raw string) (entity.Actor, bool) {
	switch a := entity.Actor(strings.ToLower(strings.TrimSpace(raw))); a {
	case entity.ActorPlatform, entity.ActorOrganizer:
		return a, true
	}
	return "", false
}

type refundRequestRepository interface {
	Create(ctx context.Context, refund *entity.RefundRequest) error
	Update(ctx context.Context, refund *entity.RefundRequest) error
	FindByID(ctx context.Context, id string) (*entity.RefundRequest, error)
	FindByOrderID(ctx context.Context, orderID string) (*entity.RefundRequest, error)
}

type orderReader interface {
	FindByID(ctx context.Context, id string) (*entity.Order, error)
}

type RouteRefundInput struct {
	OrderID  string
	Amount   decimal.Decimal
	Reason   string
	ActorRef string
}

type DecideInput struct {
	RefundID string
	Decision Decision
	Actor    entity.Actor
	// ActorOrganizerID is the organizer an organizer-acting caller acts for.
	ActorOrganizerID string
	ActorRef         string
	ProcessorRef     string
	Notes            string
}

type RefundService struct {
	refunds    refundRequestRepository
	orders     orderReader
	notifier   notifier
	audit      auditTrail
	clock      clock.Clock
	maxRetries int
	logger     logrus.FieldLogger
}

func NewRefundService(
	refunds refundRequestRepository,
	orders orderReader,
	audits auditLogRepository,
	notifier notifier,
	clk clock.Clock,
	maxRetries int,
) *RefundService {
	logger := factory.NewModuleLogger("refund-service")
	return &RefundService{
		refunds:    refunds,
		orders:     orders,
		notifier:   notifier,
		audit:      auditTrail{repo: audits, clock: clk, logger: logger},
		clock:      clk,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// RouteRefund opens the single refund request an order may have. The
// connect flag is copied from the order and decides who may process it.
func (s *RefundService) RouteRefund(ctx context.Context, input RouteRefundInput) (*entity.RefundRequest, error) {
	orderID := strings.TrimSpace(input.OrderID)
	if orderID == "" {
		return nil, fmt.Errorf("%w: order_id is required", ErrInvalidRequest)
	}
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidRequest)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if input.Amount.GreaterThan(order.Total()) {
		return nil, fmt.Errorf("%w: amount exceeds order total %s", ErrInvalidRequest, order.Total().StringFixed(2))
	}

	existing, err := s.refunds.FindByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrRefundAlreadyExists
	}

	now := s.clock.Now()
	refund := &entity.RefundRequest{
		ID:              uuid.NewString(),
		OrderID:         order.ID,
		OrganizerID:     order.OrganizerID,
		RequestedAmount: input.Amount.Round(2),
		Currency:        order.Currency,
		Reason:          strings.TrimSpace(input.Reason),
		Status:          entity.RefundPending,
		IsConnectOrder:  order.IsConnectOrder,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.refunds.Create(ctx, refund); err != nil {
		if errors.Is(err, repository.ErrRefundRequestAlreadyExists) {
			return nil, ErrRefundAlreadyExists
		}
		return nil, err
	}

	s.audit.record(ctx, "refund_requested", "refund_request", refund.ID, input.ActorRef, map[string]interface{}{
		"order_id": order.ID,
		"amount":   refund.RequestedAmount.StringFixed(2),
		"currency": refund.Currency,
	})

	return refund, nil
}

func (s *RefundService) GetRefund(ctx context.Context, id string) (*entity.RefundRequest, error) {
	refund, err := s.refunds.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if refund == nil {
		return nil, ErrRefundNotFound
	}
	return refund, nil
}

// Decide applies one decision to a refund request. Rejected decisions return
// a *TransitionError carrying the current status.
func (s *RefundService) Decide(ctx context.Context, input DecideInput) (*entity.RefundRequest, error) {
	if _, ok := ParseDecision(string(input.Decision)); !ok {
		return nil, fmt.Errorf("%w: unknown decision %q", ErrInvalidRequest, input.Decision)
	}
	if _, ok := ParseActor(string(input.Actor)); !ok {
		return nil, fmt.Errorf("%w: unknown actor %q", ErrInvalidRequest, input.Actor)
	}
	if input.Decision == DecisionProcess && strings.TrimSpace(input.ProcessorRef) == "" {
		return nil, fmt.Errorf("%w: processor_ref is required to process a refund", ErrInvalidRequest)
	}

	var (
		refund  *entity.RefundRequest
		changed bool
	)
	err := retryOnConflict(ctx, s.maxRetries, func() error {
		current, err := s.GetRefund(ctx, input.RefundID)
		if err != nil {
			return err
		}
		changed, err = applyDecision(current, input)
		if err != nil {
			return err
		}
		refund = current
		if !changed {
			return nil
		}
		current.UpdatedAt = s.clock.Now()
		return s.refunds.Update(ctx, current)
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return refund, nil
	}

	s.audit.record(ctx, "refund_"+decisionAuditSuffix(input.Decision), "refund_request", refund.ID, input.ActorRef, map[string]interface{}{
		"actor":            string(input.Actor),
		"status":           string(refund.Status),
		"escalated":        refund.Escalated,
		"is_connect_order": refund.IsConnectOrder,
	})
	s.logger.WithFields(logrus.Fields{
		"refund_id": refund.ID,
		"decision":  input.Decision,
		"actor":     input.Actor,
		"status":    refund.Status,
	}).Info("Refund decision applied")

	if input.Decision == DecisionProcess {
		s.notifyProcessed(ctx, refund)
	}

	return refund, nil
}

// applyDecision mutates refund in place. Status checks run before actor
// checks so an out-of-order process is an invalid transition for any actor.
func applyDecision(refund *entity.RefundRequest, input DecideInput) (bool, error) {
	reject := func(reason error) error {
		return &TransitionError{
			Current:   refund.Status,
			Escalated: refund.Escalated,
			Attempted: input.Decision,
			Actor:     input.Actor,
			reason:    reason,
		}
	}

	if input.Actor == entity.ActorOrganizer && strings.TrimSpace(input.ActorOrganizerID) != refund.OrganizerID {
		return false, reject(ErrActorNotAllowed)
	}
	if refund.Status.Terminal() {
		return false, reject(ErrInvalidTransition)
	}

	switch input.Decision {
	case DecisionApprove:
		if refund.Status != entity.RefundPending {
			return false, reject(ErrInvalidTransition)
		}
		refund.Status = entity.RefundApproved
	case DecisionReject:
		if refund.Status != entity.RefundPending {
			return false, reject(ErrInvalidTransition)
		}
		refund.Status = entity.RefundRejected
	case DecisionEscalate:
		if refund.Escalated {
			return false, nil
		}
		refund.Escalated = true
	case DecisionProcess:
		if refund.Status != entity.RefundApproved {
			return false, reject(ErrInvalidTransition)
		}
		if processingActor(refund.IsConnectOrder) != input.Actor {
			return false, reject(ErrActorNotAllowed)
		}
		processorRef := strings.TrimSpace(input.ProcessorRef)
		actor := input.Actor
		refund.Status = entity.RefundProcessed
		refund.ProcessorRef = &processorRef
		refund.ProcessedBy = &actor
	}

	refund.DecidedBy = optionalString(input.ActorRef)
	if notes := optionalString(input.Notes); notes != nil {
		refund.Notes = notes
	}
	return true, nil
}

// processingActor returns who owns the processed transition. Connect order
// funds sit with the organizer, so only the organizer can return them.
func processingActor(isConnectOrder bool) entity.Actor {
	if isConnectOrder {
		return entity.ActorOrganizer
	}
	return entity.ActorPlatform
}

func decisionAuditSuffix(d Decision) string {
	switch d {
	case DecisionApprove:
		return "approved"
	case DecisionReject:
		return "rejected"
	case DecisionEscalate:
		return "escalated"
	default:
		return "processed"
	}
}

func (s *RefundService) notifyProcessed(ctx context.Context, refund *entity.RefundRequest) {
	order, err := s.orders.FindByID(ctx, refund.OrderID)
	if err != nil || order == nil {
		s.logger.WithError(err).WithField("refund_id", refund.ID).Warn("Order lookup failed, refund notification skipped")
		return
	}

	s.notifier.Notify(ctx, publisher.Notification{
		Type:         publisher.NotificationRefundProcessed,
		RecipientRef: order.PayerRef,
		TemplateData: map[string]interface{}{
			"refund_id": refund.ID,
			"order_id":  order.ID,
			"event_ref": order.EventRef,
			"amount":    refund.RequestedAmount.StringFixed(2),
			"currency":  refund.Currency,
		},
	})
}
