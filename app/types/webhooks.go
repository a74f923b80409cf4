package types

import (
	"errors"
	"io"
	"strings"

	"github.com/labstack/echo/v4"
)

const maxWebhookBodyBytes = 1 << 20

// WebhookRequest is a raw provider delivery. The body is kept byte for byte
// because the signature covers it.
type WebhookRequest struct {
	Provider  string
	Signature string
	Payload   []byte
}

func NewWebhookRequestFromContext(ctx echo.Context) (*WebhookRequest, error) {
	provider := strings.ToLower(strings.TrimSpace(ctx.Param("provider")))
	signature := strings.TrimSpace(ctx.Request().Header.Get("Stripe-Signature"))
	if signature == "" {
		signature = strings.TrimSpace(ctx.Request().Header.Get("X-Provider-Signature"))
	}

	payload, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxWebhookBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(payload) > maxWebhookBodyBytes {
		return nil, errors.New("webhook body too large")
	}

	return &WebhookRequest{Provider: provider, Signature: signature, Payload: payload}, nil
}

func (r *WebhookRequest) Validate() error {
	if r.Provider == "" {
		return errors.New("provider is required")
	}
	if r.Signature == "" {
		return errors.New("provider signature is required")
	}
	if len(r.Payload) == 0 {
		return errors.New("payload is required")
	}
	return nil
}

type WebhookResponse struct {
	Received  bool   `json:"received"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
	Accepted  bool   `json:"accepted"`
	Outcome   string `json:"outcome,omitempty"`
}
