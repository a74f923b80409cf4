package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type CreateRefundRequest struct {
	OrderID  string          `json:"order_id"`
	Amount   decimal.Decimal `json:"amount"`
	Reason   string          `json:"reason"`
	ActorRef string          `json:"actor_ref"`
}

func NewCreateRefundRequestFromContext(ctx echo.Context) (*CreateRefundRequest, error) {
	var body CreateRefundRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.OrderID = strings.TrimSpace(body.OrderID)
	body.Reason = strings.TrimSpace(body.Reason)
	body.ActorRef = strings.TrimSpace(body.ActorRef)
	return &body, nil
}

func (r *CreateRefundRequest) Validate() error {
	if r.OrderID == "" {
		return errors.New("order_id is required")
	}
	if !r.Amount.IsPositive() {
		return errors.New("amount must be > 0")
	}
	return nil
}

type DecideRefundRequest struct {
	RefundID     string `json:"-"`
	Decision     string `json:"decision"`
	Actor        string `json:"actor"`
	OrganizerID  string `json:"organizer_id"`
	ActorRef     string `json:"actor_ref"`
	ProcessorRef string `json:"processor_ref"`
	Notes        string `json:"notes"`
}

func NewDecideRefundRequestFromContext(ctx echo.Context) (*DecideRefundRequest, error) {
	var body DecideRefundRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.RefundID = strings.TrimSpace(ctx.Param("id"))
	body.Decision = strings.ToLower(strings.TrimSpace(body.Decision))
	body.Actor = strings.ToLower(strings.TrimSpace(body.Actor))
	body.OrganizerID = strings.TrimSpace(body.OrganizerID)
	body.ActorRef = strings.TrimSpace(body.ActorRef)
	body.ProcessorRef = strings.TrimSpace(body.ProcessorRef)
	body.Notes = strings.TrimSpace(body.Notes)
	return &body, nil
}

func (r *DecideRefundRequest) Validate() error {
	if r.RefundID == "" {
		return errors.New("refund id is required")
	}
	switch r.Decision {
	case "approve", "reject", "escalate", "process":
	default:
		return errors.New("decision must be approve, reject, escalate, or process")
	}
	switch r.Actor {
	case "platform":
	case "organizer":
		if r.OrganizerID == "" {
			return errors.New("organizer_id is required for organizer actor")
		}
	default:
		return errors.New("actor must be platform or organizer")
	}
	if r.Decision == "process" && r.ProcessorRef == "" {
		return errors.New("processor_ref is required to process a refund")
	}
	return nil
}

type RefundResponse struct {
	ID              string  `json:"id"`
	OrderID         string  `json:"order_id"`
	OrganizerID     string  `json:"organizer_id"`
	RequestedAmount string  `json:"requested_amount"`
	Currency        string  `json:"currency"`
	Reason          string  `json:"reason"`
	Status          string  `json:"status"`
	Escalated       bool    `json:"escalated"`
	IsConnectOrder  bool    `json:"is_connect_order"`
	ProcessorRef    string  `json:"processor_ref,omitempty"`
	ProcessedBy     string  `json:"processed_by,omitempty"`
	DecidedBy       string  `json:"decided_by,omitempty"`
	Notes           *string `json:"notes,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

type RefundEnvelopeResponse struct {
	Refund *RefundResponse `json:"refund"`
}
