package mapper

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-fees/app/entity"
	"github.com/vibast-solutions/ms-go-fees/app/fees"
	"github.com/vibast-solutions/ms-go-fees/app/service"
	"github.com/vibast-solutions/ms-go-fees/app/types"
)

func ParametersToResponse(params fees.Parameters) *types.FeeParametersResponse {
	rates := make(map[string]types.ProviderRateResponse, len(entity.KnownPaymentProviders))
	for _, p := range entity.KnownPaymentProviders {
		rate, ok := params.ProviderRate(p)
		if !ok {
			continue
		}
		rates[string(p)] = types.ProviderRateResponse{
			Percent: rate.Percent.String(),
			Fixed:   money(rate.Fixed),
		}
	}

	var feeCap *string
	if c := params.ServiceFeeCap(); c.Valid {
		v := money(c.Decimal)
		feeCap = &v
	}

	return &types.FeeParametersResponse{
		Currency:                 params.Currency(),
		ServiceFeePercent:        params.ServiceFeePercent().String(),
		ServiceFeeFixedPerTicket: money(params.ServiceFeeFixedPerTicket()),
		ServiceFeeCap:            feeCap,
		FixedFeePerOrder:         money(params.FixedFeePerOrder()),
		ProviderRates:            rates,
		IsCustom:                 params.IsCustom(),
	}
}

func QuoteToResponse(quote *service.Quote) *types.QuoteResponse {
	if quote == nil {
		return nil
	}
	return &types.QuoteResponse{
		Currency:      quote.Currency,
		Provider:      string(quote.Provider),
		Subtotal:      money(quote.Subtotal),
		ServiceFee:    money(quote.Breakdown.ServiceFee),
		ProcessingFee: money(quote.Breakdown.ProcessingFee),
		TotalFee:      money(quote.Breakdown.TotalFee),
		BuyerTotal:    money(quote.Breakdown.BuyerTotal),
		IsCustom:      quote.Parameters.IsCustom(),
	}
}

func OrderToResponse(item *entity.Order) *types.OrderResponse {
	if item == nil {
		return nil
	}
	return &types.OrderResponse{
		ID:             item.ID,
		OrganizerID:    item.OrganizerID,
		EventRef:       item.EventRef,
		PayerRef:       item.PayerRef,
		Subtotal:       money(item.Subtotal),
		TicketCount:    item.TicketCount,
		Currency:       item.Currency,
		Provider:       string(item.Provider),
		ServiceFee:     money(item.ServiceFee),
		ProcessingFee:  money(item.ProcessingFee),
		Total:          money(item.Total()),
		IsConnectOrder: item.IsConnectOrder,
		CreatedAt:      formatTime(item.CreatedAt),
	}
}

func RefundToResponse(item *entity.RefundRequest) *types.RefundResponse {
	if item == nil {
		return nil
	}
	resp := &types.RefundResponse{
		ID:              item.ID,
		OrderID:         item.OrderID,
		OrganizerID:     item.OrganizerID,
		RequestedAmount: money(item.RequestedAmount),
		Currency:        item.Currency,
		Reason:          item.Reason,
		Status:          string(item.Status),
		Escalated:       item.Escalated,
		IsConnectOrder:  item.IsConnectOrder,
		ProcessorRef:    derefString(item.ProcessorRef),
		DecidedBy:       derefString(item.DecidedBy),
		Notes:           item.Notes,
		CreatedAt:       formatTime(item.CreatedAt),
		UpdatedAt:       formatTime(item.UpdatedAt),
	}
	if item.ProcessedBy != nil {
		resp.ProcessedBy = string(*item.ProcessedBy)
	}
	return resp
}

func OrganizerToResponse(item *entity.Organizer) *types.OrganizerResponse {
	if item == nil {
		return nil
	}
	return &types.OrganizerResponse{
		ID:                  item.ID,
		UserRef:             item.UserRef,
		Active:              item.Active,
		VerificationStatus:  string(item.VerificationStatus),
		IdentityStatus:      string(item.IdentityStatus),
		ConnectStatus:       string(item.ConnectStatus),
		PayoutAccountRef:    derefString(item.PayoutAccountRef),
		EffectivelyVerified: item.EffectivelyVerified(),
		VerifiedAt:          formatTimePtr(item.VerifiedAt),
		ConnectActivatedAt:  formatTimePtr(item.ConnectActivatedAt),
		UpdatedAt:           formatTime(item.UpdatedAt),
	}
}

func WebhookResultToResponse(result *service.IngestResult) *types.WebhookResponse {
	if result == nil {
		return nil
	}
	return &types.WebhookResponse{
		Received:  true,
		EventID:   result.EventID,
		Duplicate: result.Duplicate,
		Accepted:  result.Accepted,
		Outcome:   string(result.Outcome),
	}
}

func money(v decimal.Decimal) string {
	return v.StringFixed(2)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
