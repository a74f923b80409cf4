package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-fees/app/clock"
	"github.com/vibast-solutions/ms-go-fees/app/entity"
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

type fakeOrganizerRepo struct {
	mu         sync.Mutex
	organizers map[string]*entity.Organizer
	updates    int
	// conflicts makes the next N UpdateState calls fail with a version
	// conflict after running beforeConflict, which may mutate the stored row.
	conflicts      int
	beforeConflict func(stored *entity.Organizer)
}

func newFakeOrganizerRepo(items ...*entity.Organizer) *fakeOrganizerRepo {
	r := &fakeOrganizerRepo{organizers: map[string]*entity.Organizer{}}
	for _, item := range items {
		copyItem := *item
		r.organizers[item.ID] = &copyItem
	}
	return r
}

func (r *fakeOrganizerRepo) Create(_ context.Context, organizer *entity.Organizer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.organizers[organizer.ID]; ok {
		return repository.ErrOrganizerAlreadyExists
	}
	copyItem := *organizer
	r.organizers[organizer.ID] = &copyItem
	return nil
}

func (r *fakeOrganizerRepo) FindByID(_ context.Context, id string) (*entity.Organizer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.organizers[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *fakeOrganizerRepo) FindByPayoutAccountRef(_ context.Context, accountRef string) (*entity.Organizer, error) {
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

func (r *fakeOrganizerRepo) UpdateState(_ context.Context, organizer *entity.Organizer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.organizers[organizer.ID]
	if !ok {
		return repository.ErrVersionConflict
	}
	if r.conflicts > 0 {
		r.conflicts--
		if r.beforeConflict != nil {
			r.beforeConflict(stored)
		}
		stored.Version++
		return repository.ErrVersionConflict
	}
	if stored.Version != organizer.Version {
		return repository.ErrVersionConflict
	}
	r.updates++
	organizer.Version++
	copyItem := *organizer
	r.organizers[organizer.ID] = &copyItem
	return nil
}

func (r *fakeOrganizerRepo) get(id string) *entity.Organizer {
	r.mu.Lock()
	defer r.mu.Unlock()
	copyItem := *r.organizers[id]
	return &copyItem
}

type fakePayoutRepo struct {
	mu      sync.Mutex
	payouts map[string]*entity.Payout
}

func newFakePayoutRepo() *fakePayoutRepo {
	return &fakePayoutRepo{payouts: map[string]*entity.Payout{}}
}

func (r *fakePayoutRepo) Save(_ context.Context, payout *entity.Payout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copyItem := *payout
	if existing, ok := r.payouts[payout.ProviderPayoutID]; ok {
		existing.Status = payout.Status
		existing.FailureReason = payout.FailureReason
		return nil
	}
	r.payouts[payout.ProviderPayoutID] = &copyItem
	return nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*entity.AuditLog
}

func (r *fakeAuditRepo) Create(_ context.Context, entry *entity.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copyItem := *entry
	r.entries = append(r.entries, &copyItem)
	return nil
}

func (r *fakeAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry.Action)
	}
	return out
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []publisher.Notification
}

func (n *fakeNotifier) Notify(_ context.Context, notification publisher.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
}

func (n *fakeNotifier) count(notificationType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, item := range n.sent {
		if item.Type == notificationType {
			total++
		}
	}
	return total
}

func (n *fakeNotifier) last() publisher.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[len(n.sent)-1]
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*entity.Order
}

func newFakeOrderRepo(items ...*entity.Order) *fakeOrderRepo {
	r := &fakeOrderRepo{orders: map[string]*entity.Order{}}
	for _, item := range items {
		copyItem := *item
		r.orders[item.ID] = &copyItem
	}
	return r
}

func (r *fakeOrderRepo) Create(_ context.Context, order *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; ok {
		return repository.ErrOrderAlreadyExists
	}
	copyItem := *order
	r.orders[order.ID] = &copyItem
	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id string) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

type fakeRefundRepo struct {
	mu        sync.Mutex
	refunds   map[string]*entity.RefundRequest
	conflicts int
}

func newFakeRefundRepo() *fakeRefundRepo {
	return &fakeRefundRepo{refunds: map[string]*entity.RefundRequest{}}
}

func (r *fakeRefundRepo) Create(_ context.Context, refund *entity.RefundRequest) error {
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

func (r *fakeRefundRepo) Update(_ context.Context, refund *entity.RefundRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.refunds[refund.ID]
	if !ok {
		return repository.ErrVersionConflict
	}
	if r.conflicts > 0 {
		r.conflicts--
		stored.Version++
		return repository.ErrVersionConflict
	}
	if stored.Version != refund.Version {
		return repository.ErrVersionConflict
	}
	refund.Version++
	copyItem := *refund
	r.refunds[refund.ID] = &copyItem
	return nil
}

func (r *fakeRefundRepo) FindByID(_ context.Context, id string) (*entity.RefundRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.refunds[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *fakeRefundRepo) FindByOrderID(_ context.Context, orderID string) (*entity.RefundRequest, error) {
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

type fakeWebhookRepo struct {
	mu     sync.Mutex
	events map[string]*entity.WebhookEvent
	// markFailures makes the next MarkProcessed calls fail.
	markFailures int
}

func newFakeWebhookRepo() *fakeWebhookRepo {
	return &fakeWebhookRepo{events: map[string]*entity.WebhookEvent{}}
}

func (r *fakeWebhookRepo) Create(_ context.Context, event *entity.WebhookEvent) error {
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

func (r *fakeWebhookRepo) FindByExternalID(_ context.Context, provider, externalID string) (*entity.WebhookEvent, error) {
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

func (r *fakeWebhookRepo) Claim(_ context.Context, id string, now, staleBefore time.Time) (bool, error) {
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
	item.Attempts++
	return true, nil
}

func (r *fakeWebhookRepo) Release(_ context.Context, id string, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item, ok := r.events[id]; ok && item.ProcessedAt == nil {
		item.ClaimedAt = nil
		msg := lastError
		item.LastError = &msg
	}
	return nil
}

func (r *fakeWebhookRepo) MarkProcessed(_ context.Context, id string, outcome entity.WebhookOutcome, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markFailures > 0 {
		r.markFailures--
		return false, errors.New("connection reset")
	}
	item, ok := r.events[id]
	if !ok || item.ProcessedAt != nil {
		return false, nil
	}
	processedAt := now
	item.ProcessedAt = &processedAt
	item.Outcome = &outcome
	item.ClaimedAt = nil
	item.LastError = nil
	return true, nil
}

func (r *fakeWebhookRepo) ListUnprocessed(_ context.Context, receivedBefore, staleBefore time.Time, limit int32) ([]*entity.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*entity.WebhookEvent, 0)
	for _, item := range r.events {
		if item.ProcessedAt != nil || !item.ReceivedAt.Before(receivedBefore) {
			continue
		}
		if item.ClaimedAt != nil && !item.ClaimedAt.Before(staleBefore) {
			continue
		}
		copyItem := *item
		items = append(items, &copyItem)
		if int32(len(items)) >= limit {
			break
		}
	}
	return items, nil
}

func (r *fakeWebhookRepo) byExternalID(externalID string) *entity.WebhookEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.events {
		if item.ExternalID == externalID {
			copyItem := *item
			return &copyItem
		}
	}
	return nil
}
