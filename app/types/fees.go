package types

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type QuoteFeesRequest struct {
	OrganizerID string          `json:"organizer_id"`
	Currency    string          `json:"currency"`
	Provider    string          `json:"provider"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	TicketCount int64           `json:"ticket_count"`
}

func NewQuoteFeesRequestFromContext(ctx echo.Context) (*QuoteFeesRequest, error) {
	var body QuoteFeesRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.normalize()
	return &body, nil
}

func (r *QuoteFeesRequest) normalize() {
	r.OrganizerID = strings.TrimSpace(r.OrganizerID)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	r.Provider = strings.ToLower(strings.TrimSpace(r.Provider))
	if r.Provider == "" {
		r.Provider = "stripe"
	}
}

func (r *QuoteFeesRequest) Validate() error {
	if !validCurrency(r.Currency) {
		return errors.New("currency must be 3 letters")
	}
	if r.Subtotal.IsNegative() {
		return errors.New("subtotal must be >= 0")
	}
	if r.TicketCount < 0 {
		return errors.New("ticket_count must be >= 0")
	}
	return nil
}

type GetFeeParametersRequest struct {
	OrganizerID string
	Currency    string
}

func NewGetFeeParametersRequestFromContext(ctx echo.Context) (*GetFeeParametersRequest, error) {
	return newGetFeeParametersRequest(ctx.QueryParam("organizer_id"), ctx.QueryParam("currency")), nil
}

func newGetFeeParametersRequest(organizerID, currency string) *GetFeeParametersRequest {
	return &GetFeeParametersRequest{
		OrganizerID: strings.TrimSpace(organizerID),
		Currency:    strings.ToUpper(strings.TrimSpace(currency)),
	}
}

func (r *GetFeeParametersRequest) Validate() error {
	if !validCurrency(r.Currency) {
		return errors.New("currency must be 3 letters")
	}
	return nil
}

// UpdateFeeFieldRequest changes one fee column. Key is the currency for
// country configs and the organizer id for overrides.
type UpdateFeeFieldRequest struct {
	Key      string          `json:"-"`
	Field    string          `json:"field"`
	Value    json.RawMessage `json:"value"`
	ActorRef string          `json:"actor_ref"`
}

func NewUpdateCountryFeeFieldRequestFromContext(ctx echo.Context) (*UpdateFeeFieldRequest, error) {
	req, err := bindUpdateFeeField(ctx)
	if err != nil {
		return nil, err
	}
	req.Key = strings.ToUpper(strings.TrimSpace(ctx.Param("currency")))
	return req, nil
}

func NewUpdateOrganizerFeeFieldRequestFromContext(ctx echo.Context) (*UpdateFeeFieldRequest, error) {
	req, err := bindUpdateFeeField(ctx)
	if err != nil {
		return nil, err
	}
	req.Key = strings.TrimSpace(ctx.Param("id"))
	return req, nil
}

func bindUpdateFeeField(ctx echo.Context) (*UpdateFeeFieldRequest, error) {
	var body UpdateFeeFieldRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Field = strings.ToLower(strings.TrimSpace(body.Field))
	body.ActorRef = strings.TrimSpace(body.ActorRef)
	return &body, nil
}

func (r *UpdateFeeFieldRequest) Validate() error {
	if r.Key == "" {
		return errors.New("path key is required")
	}
	if r.Field == "" {
		return errors.New("field is required")
	}
	if len(r.Value) == 0 {
		return errors.New("value is required")
	}
	if _, _, err := r.RawValue(); err != nil {
		return err
	}
	return nil
}

// RawValue returns the value as text, accepting JSON strings, numbers,
// booleans and null.
func (r *UpdateFeeFieldRequest) RawValue() (string, bool, error) {
	trimmed := strings.TrimSpace(string(r.Value))
	if trimmed == "null" {
		return "", true, nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(r.Value, &s); err != nil {
			return "", false, errors.New("value is not a valid string")
		}
		return strings.TrimSpace(s), false, nil
	}
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return "", false, errors.New("value must be a scalar")
	}
	return trimmed, false, nil
}

type ProviderRateResponse struct {
	Percent string `json:"percent"`
	Fixed   string `json:"fixed"`
}

type FeeParametersResponse struct {
	Currency                 string                          `json:"currency"`
	ServiceFeePercent        string                          `json:"service_fee_percent"`
	ServiceFeeFixedPerTicket string                          `json:"service_fee_fixed_per_ticket"`
	ServiceFeeCap            *string                         `json:"service_fee_cap"`
	FixedFeePerOrder         string                          `json:"fixed_fee_per_order"`
	ProviderRates            map[string]ProviderRateResponse `json:"provider_rates"`
	IsCustom                 bool                            `json:"is_custom"`
}

type FeeParametersEnvelopeResponse struct {
	Parameters *FeeParametersResponse `json:"parameters"`
}

type QuoteResponse struct {
	Currency      string `json:"currency"`
	Provider      string `json:"provider"`
	Subtotal      string `json:"subtotal"`
	ServiceFee    string `json:"service_fee"`
	ProcessingFee string `json:"processing_fee"`
	TotalFee      string `json:"total_fee"`
	BuyerTotal    string `json:"buyer_total"`
	IsCustom      bool   `json:"is_custom"`
}

type QuoteEnvelopeResponse struct {
	Quote *QuoteResponse `json:"quote"`
}
