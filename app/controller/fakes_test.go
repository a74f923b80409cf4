package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-fees/app/clock"
	"github.com/vibast-solutions/ms-go-fees/app/entity"
	"github.com/vibast-solutions/ms-go-fees/app/fees"
	"github.com/vibast-solutions/ms-go-fees/app/publisher"
	"github.com/vibast-solutions/ms-go-fees/app/repository"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestClock() *clock.Manual {
	return clock.NewManual(testNow)
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	return e
}

type staticCountries map[string]entity.CountryFeeConfig

func (s staticCountries) Get(_ context.Context, currency string) (entity.CountryFeeConfig, error) {
	cfg, ok := s[fees.NormalizeCurrency(currency)]
	if !ok {
		return entity.CountryFeeConfig{}, fmt.Errorf("%w: %s", fees.ErrCurrencyNotConfigured, currency)
	}
	return cfg, nil
}

type staticOverrides map[string]*entity.OrganizerFeeOverride

func (s staticOverrides) FindByOrganizerID(_ context.Context, organizerID string) (*entity.OrganizerFeeOverride, error) {
	return s[organizerID], nil
}

func usdCountry() entity.CountryFeeConfig {
	return entity.CountryFeeConfig{
		Currency:          "USD",
		CountryCode:       "US",
		ServiceFeePercent: dec("0.05"),
		ProviderRates: map[entity.PaymentProvider]entity.ProviderRate{
			entity.ProviderStripe:   {Percent: dec("0.029"), Fixed: dec("0.30")},
			entity.ProviderPaystack: {Percent: dec("0.015"), Fixed: dec("1.00")},
		},
	}
}

func newTestResolver() *fees.Resolver {
	return fees.NewResolver(staticCountries{"USD": usdCountry()}, staticOverrides{})
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate() {}

type controllerFeeWriter struct {
	updateFieldFn func(ctx context.Context, key, field string, value interface{}, now time.Time) error
}

func (w *controllerFeeWriter) UpdateField(ctx context.Context, key, field string, value interface{}, now time.Time) error {
	if w.updateFieldFn != nil {
		return w.updateFieldFn(ctx, key, field, value, now)
	}
	return nil
}

type controllerAuditRepo struct{}

func (controllerAuditRepo) Create(context.Context, *entity.AuditLog) error {
	return nil
}

type controllerNotifier struct{}

func (controllerNotifier) Notify(context.Context, publisher.Notification) {}

type controllerPayoutRepo struct{}

func (controllerPayoutRepo) Save(context.Context, *entity.Payout) error {
	return nil
}

type controllerOrganizerRepo struct {
	mu         sync.Mutex
	organizers map[string]*entity.Organizer
}

func newControllerOrganizerRepo(items ...*entity.Organizer) *controllerOrganizerRepo {
	r := &controllerOrganizerRepo{organizers: map[string]*entity.Organizer{}}
	for _, item := range items {
		copyItem := *item
		r.organizers[item.ID] = &copyItem
	}
	return r
}

func (r *controllerOrganizerRepo) Create(_ context.Context, organizer *entity.Organizer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.organizers[organizer.ID]; ok {
		return repository.ErrOrganizerAlreadyExists
	}
	copyItem := *organizer
	r.organizers[organizer.ID] = &copyItem
	return nil
}

func (r *controllerOrganizerRepo) FindByID(_ context.Context, id string) (*entity.Organizer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.organizers[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *controllerOrganizerRepo) FindByPayoutAccountRef(_ context.Context, accountRef string) (*entity.Organizer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.organizers {
		if item.PayoutAccountRef != nil && *item.PayoutAccountRef == accountRef {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r *controllerOrganizerRepo) UpdateState(_ context.Context, organizer *entity.Organizer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.organizers[organizer.ID]
	if !ok || stored.Version != organizer.Version {
		return repository.ErrVersionConflict
	}
	organizer.Version++
	copyItem := *organizer
	r.organizers[organizer.ID] = &copyItem
	return nil
}

func newOrganizer(id string) *entity.Organizer {
	return &entity.Organizer{
		ID:                 id,
		UserRef:            "user-" + id,
		Active:             true,
		VerificationStatus: entity.VerificationUnverified,
		IdentityStatus:     entity.IdentityNone,
		ConnectStatus:      entity.ConnectNone,
		Version:            1,
		CreatedAt:          testNow,
		UpdatedAt:          testNow,
	}
}

type controllerOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*entity.Order
}

func newControllerOrderRepo(items ...*entity.Order) *controllerOrderRepo {
	r := &controllerOrderRepo{orders: map[string]*entity.Order{}}
	for _, item := range items {
		copyItem := *item
		r.orders[item.ID] = &copyItem
	}
	return r
}

func (r *controllerOrderRepo) Create(_ context.Context, order *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; ok {
		return repository.ErrOrderAlreadyExists
	}
	copyItem := *order
	r.orders[order.ID] = &copyItem
	return nil
}

func (r *controllerOrderRepo) FindByID(_ context.Context, id string) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

type controllerRefundRepo struct {
	mu      sync.Mutex
	refunds map[string]*entity.RefundRequest
}

func newControllerRefundRepo(items ...*entity.RefundRequest) *controllerRefundRepo {
	r := &controllerRefundRepo{refunds: map[string]*entity.RefundRequest{}}
	for _, item := range items {
		copyItem := *item
		r.refunds[item.ID] = &copyItem
	}
	return r
}

func (r *controllerRefundRepo) Create(_ context.Context, refund *entity.RefundRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.refunds {
		if item.OrderID == refund.OrderID {
			return repository.ErrRefundRequestAlreadyExists
		}
	}
	copyItem := *refund
	r.refunds[refund.ID] = &copyItem
	return nil
}

func (r *controllerRefundRepo) Update(_ context.Context, refund *entity.RefundRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.refunds[refund.ID]
	if !ok || stored.Version != refund.Version {
		return repository.ErrVersionConflict
	}
	refund.Version++
	copyItem := *refund
	r.refunds[refund.ID] = &copyItem
	return nil
}

func (r *controllerRefundRepo) FindByID(_ context.Context, id string) (*entity.RefundRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.refunds[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *controllerRefundRepo) FindByOrderID(_ context.Context, orderID string) (*entity.RefundRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.refunds {
		if item.OrderID == orderID {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

type controllerWebhookRepo struct {
	mu     sync.Mutex
	events map[string]*entity.WebhookEvent
}

func newControllerWebhookRepo() *controllerWebhookRepo {
	return &controllerWebhookRepo{events: map[string]*entity.WebhookEvent{}}
}

func (r *controllerWebhookRepo) Create(_ context.Context, event *entity.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.events {
		if item.Provider == event.Provider && item.ExternalID == event.ExternalID {
			return repository.ErrWebhookEventAlreadyExists
		}
	}
	copyItem := *event
	r.events[event.ID] = &copyItem
	return nil
}

func (r *controllerWebhookRepo) FindByExternalID(_ context.Context, provider, externalID string) (*entity.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.events {
		if item.Provider == provider && item.ExternalID == externalID {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r *controllerWebhookRepo) Claim(_ context.Context, id string, now, staleBefore time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.events[id]
	if !ok || item.ProcessedAt != nil {
		return false, nil
	}
	if item.ClaimedAt != nil && !item.ClaimedAt.Before(staleBefore) {
		return false, nil
	}
	claimedAt := now
	item.ClaimedAt = &claimedAt
	return true, nil
}

func (r *controllerWebhookRepo) Release(_ context.Context, id string, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item, ok := r.events[id]; ok {
		item.ClaimedAt = nil
	}
	return nil
}

func (r *controllerWebhookRepo) MarkProcessed(_ context.Context, id string, outcome entity.WebhookOutcome, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.events[id]
	if !ok || item.ProcessedAt != nil {
		return false, nil
	}
	processedAt := now
	item.ProcessedAt = &processedAt
	item.Outcome = &outcome
	item.ClaimedAt = nil
	return true, nil
}

func (r *controllerWebhookRepo) ListUnprocessed(context.Context, time.Time, time.Time, int32) ([]*entity.WebhookEvent, error) {
	return []*entity.WebhookEvent{}, nil
}
