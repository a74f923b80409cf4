package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	ID          string          `json:"id"`
	OrganizerID string          `json:"organizer_id"`
	EventRef    string          `json:"event_ref"`
	PayerRef    string          `json:"payer_ref"`
	Currency    string          `json:"currency"`
	Provider    string          `json:"provider"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	TicketCount int64           `json:"ticket_count"`
}

func NewCreateOrderRequestFromContext(ctx echo.Context) (*CreateOrderRequest, error) {
	var body CreateOrderRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.ID = strings.TrimSpace(body.ID)
	body.OrganizerID = strings.TrimSpace(body.OrganizerID)
	body.EventRef = strings.TrimSpace(body.EventRef)
	body.PayerRef = strings.TrimSpace(body.PayerRef)
	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.Provider = strings.ToLower(strings.TrimSpace(body.Provider))
	if body.Provider == "" {
		body.Provider = "stripe"
	}

	return &body, nil
}

func (r *CreateOrderRequest) Validate() error {
	if r.OrganizerID == "" {
		return errors.New("organizer_id is required")
	}
	if r.EventRef == "" {
		return errors.New("event_ref is required")
	}
	if r.PayerRef == "" {
		return errors.New("payer_ref is required")
	}
	if !validCurrency(r.Currency) {
		return errors.New("currency must be 3 letters")
	}
	if r.Subtotal.IsNegative() {
		return errors.New("subtotal must be >= 0")
	}
	if r.TicketCount <= 0 {
		return errors.New("ticket_count must be > 0")
	}
	return nil
}

type OrderResponse struct {
	ID             string `json:"id"`
	OrganizerID    string `json:"organizer_id"`
	EventRef       string `json:"event_ref"`
	PayerRef       string `json:"payer_ref"`
	Subtotal       string `json:"subtotal"`
	TicketCount    int64  `json:"ticket_count"`
	Currency       string `json:"currency"`
	Provider       string `json:"provider"`
	ServiceFee     string `json:"service_fee"`
	ProcessingFee  string `json:"processing_fee"`
	Total          string `json:"total"`
	IsConnectOrder bool   `json:"is_connect_order"`
	CreatedAt      string `json:"created_at"`
}

type OrderEnvelopeResponse struct {
	Order *OrderResponse `json:"order"`
}
