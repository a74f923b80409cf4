package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-fees/app/clock"
	"github.com/vibast-solutions/ms-go-fees/app/entity"
	"github.com/vibast-solutions/ms-go-fees/app/factory"
	"github.com/vibast-solutions/ms-go-fees/app/provider"
	"github.com/vibast-solutions/ms-go-fees/app/repository"
)

type webhookEventRepository interface {
	Create(ctx context.Context, event *entity.WebhookEvent) error
	FindByExternalID(ctx context.Context, provider, externalID string) (*entity.WebhookEvent, error)
	Claim(ctx context.Context, id string, now, staleBefore time.Time) (bool, error)
	Release(ctx context.Context, id string, lastError string) error
	MarkProcessed(ctx context.Context, id string, outcome entity.WebhookOutcome, now time.Time) (bool, error)
	ListUnprocessed(ctx context.Context, receivedBefore, staleBefore time.Time, limit int32) ([]*entity.WebhookEvent, error)
}

type providerRegistry interface {
	Get(code string) (provider.Provider, error)
}

type organizerLifecycle interface {
	ApplyIdentityEvent(ctx context.Context, event IdentityEvent) (bool, error)
	ApplyConnectAccountUpdate(ctx context.Context, event ConnectAccountEvent) (bool, error)
	RecordPayout(ctx context.Context, event PayoutEvent) error
}

type WebhookConfig struct {
	AckTimeout time.Duration
	ClaimTTL   time.Duration
	BatchSize  int32
}

type IngestInput struct {
	Provider  string
	Signature string
	Payload   []byte
}

// IngestResult describes how a delivery was handled. Accepted means the
// event is stored and still being processed after the ack deadline.
type IngestResult struct {
	EventID   string
	Kind      provider.EventKind
	Duplicate bool
	Accepted  bool
	Outcome   entity.WebhookOutcome
}

type eventHandler func(ctx context.Context, event *provider.Event) (entity.WebhookOutcome, error)

type WebhookService struct {
	events    webhookEventRepository
	providers providerRegistry
	lifecycle organizerLifecycle
	clock     clock.Clock
	cfg       WebhookConfig
	handlers  map[provider.EventKind]eventHandler
	logger    logrus.FieldLogger
	inflight  sync.WaitGroup
}

func NewWebhookService(
	events webhookEventRepository,
	providers providerRegistry,
	lifecycle organizerLifecycle,
	clk clock.Clock,
	cfg WebhookConfig,
) *WebhookService {
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = 2 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	s := &WebhookService{
		events:    events,
		providers: providers,
		lifecycle: lifecycle,
		clock:     clk,
		cfg:       cfg,
		logger:    factory.NewModuleLogger("webhook-service"),
	}
	s.handlers = map[provider.EventKind]eventHandler{
		provider.EventKindIdentityVerified:      s.handleIdentity,
		provider.EventKindIdentityRequiresInput: s.handleIdentity,
		provider.EventKindIdentityCanceled:      s.handleIdentity,
		provider.EventKindIdentityProcessing:    s.handleIdentity,
		provider.EventKindConnectAccountUpdated: s.handleConnectAccount,
		provider.EventKindPayoutPaid:            s.handlePayout,
		provider.EventKindPayoutFailed:          s.handlePayout,
	}
	return s
}

// Ingest authenticates, records and processes one provider delivery.
// Redeliveries of a processed event are successful no-ops.
func (s *WebhookService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	p, err := s.providers.Get(input.Provider)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotSupported) {
			return nil, ErrProviderUnsupported
		}
		return nil, err
	}

	event, err := p.VerifyAndParse(ctx, input.Payload, input.Signature)
	if err != nil {
		switch {
		case errors.Is(err, provider.ErrInvalidSignature):
			return nil, ErrSignatureRejected
		case errors.Is(err, provider.ErrMalformedPayload):
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return nil, err
	}

	result := &IngestResult{EventID: event.ExternalID, Kind: event.Kind}
	logger := s.logger.WithFields(logrus.Fields{
		"provider":   p.Code(),
		"event_id":   event.ExternalID,
		"event_type": event.Type,
	})

	record, err := s.recordOrClaim(ctx, p.Code(), event, input.Payload)
	if err != nil {
		return nil, err
	}
	if record == nil {
		result.Duplicate = true
		return result, nil
	}
	if record.Processed() {
		result.Duplicate = true
		if record.Outcome != nil {
			result.Outcome = *record.Outcome
		}
		logger.Debug("Duplicate webhook delivery ignored")
		return result, nil
	}

	if s.cfg.AckTimeout <= 0 {
		outcome, err := s.process(ctx, record, event)
		if err != nil {
			return nil, err
		}
		result.Outcome = outcome
		return result, nil
	}

	type processed struct {
		outcome entity.WebhookOutcome
		err     error
	}
	done := make(chan processed, 1)
	bgCtx := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		outcome, err := s.process(bgCtx, record, event)
		done <- processed{outcome: outcome, err: err}
	}()

	timer := time.NewTimer(s.cfg.AckTimeout)
	defer timer.Stop()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		result.Outcome = r.outcome
	case <-timer.C:
		logger.Warn("Webhook processing exceeded ack deadline, continuing in background")
		result.Accepted = true
	case <-ctx.Done():
		result.Accepted = true
	}

	return result, nil
}

// Wait blocks until background processing started by Ingest has finished.
func (s *WebhookService) Wait() {
	s.inflight.Wait()
}

// recordOrClaim persists a first delivery with its claim taken. For a
// redelivery it returns the stored row, claimed when still unprocessed, or
// nil when another worker holds a live claim.
func (s *WebhookService) recordOrClaim(ctx context.Context, providerCode string, event *provider.Event, payload []byte) (*entity.WebhookEvent, error) {
	now := s.clock.Now()
	record := &entity.WebhookEvent{
		ID:          uuid.NewString(),
		ExternalID:  event.ExternalID,
		Provider:    providerCode,
		EventType:   event.Type,
		PayloadJSON: string(payload),
		Attempts:    1,
		ReceivedAt:  now,
		ClaimedAt:   &now,
	}

	err := s.events.Create(ctx, record)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, repository.ErrWebhookEventAlreadyExists) {
		return nil, err
	}

	existing, err := s.events.FindByExternalID(ctx, providerCode, event.ExternalID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("webhook event %s reported as duplicate but not found", event.ExternalID)
	}
	if existing.Processed() {
		return existing, nil
	}

	claimed, err := s.events.Claim(ctx, existing.ID, now, now.Add(-s.cfg.ClaimTTL))
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, nil
	}
	return existing, nil
}

// process dispatches a claimed event and marks it processed. Events that can
// never succeed are dropped; any other failure releases the claim so the
// provider or the reprocess job can retry.
func (s *WebhookService) process(ctx context.Context, record *entity.WebhookEvent, event *provider.Event) (entity.WebhookOutcome, error) {
	logger := s.logger.WithFields(logrus.Fields{
		"event_id":   record.ExternalID,
		"event_type": record.EventType,
		"kind":       event.Kind,
	})

	outcome := entity.WebhookOutcomeIgnored
	handler, ok := s.handlers[event.Kind]
	if ok {
		var err error
		outcome, err = handler(ctx, event)
		if err != nil {
			if !errors.Is(err, ErrMissingCorrelation) && !errors.Is(err, ErrInvalidRequest) {
				if releaseErr := s.events.Release(ctx, record.ID, truncate(err.Error(), 1024)); releaseErr != nil {
					logger.WithError(releaseErr).Error("Webhook claim release failed")
				}
				logger.WithError(err).Error("Webhook processing failed")
				return "", err
			}
			logger.WithError(err).Warn("Webhook event dropped")
			outcome = entity.WebhookOutcomeDropped
		}
	} else {
		logger.Info("Webhook event type not handled, ignored")
	}

	marked, err := s.events.MarkProcessed(ctx, record.ID, outcome, s.clock.Now())
	if err != nil {
		if releaseErr := s.events.Release(ctx, record.ID, truncate(err.Error(), 1024)); releaseErr != nil {
			logger.WithError(releaseErr).Error("Webhook claim release failed")
		}
		logger.WithError(err).Error("Webhook mark processed failed")
		return "", err
	}
	if !marked {
		logger.Debug("Webhook event was already marked processed")
	}
	return outcome, nil
}

var identityStatusByKind = map[provider.EventKind]entity.IdentityStatus{
	provider.EventKindIdentityVerified:      entity.IdentityVerified,
	provider.EventKindIdentityRequiresInput: entity.IdentityRequiresInput,
	provider.EventKindIdentityCanceled:      entity.IdentityCanceled,
	provider.EventKindIdentityProcessing:    entity.IdentityProcessing,
}

func (s *WebhookService) handleIdentity(ctx context.Context, event *provider.Event) (entity.WebhookOutcome, error) {
	changed, err := s.lifecycle.ApplyIdentityEvent(ctx, IdentityEvent{
		OrganizerID:      event.OrganizerID,
		Status:           identityStatusByKind[event.Kind],
		SessionID:        event.SessionID,
		SessionCreatedAt: event.SessionCreatedAt,
		Reason:           event.InputReason,
	})
	return outcomeFor(changed), err
}

func (s *WebhookService) handleConnectAccount(ctx context.Context, event *provider.Event) (entity.WebhookOutcome, error) {
	if event.Account == nil || strings.TrimSpace(event.Account.ID) == "" {
		return "", fmt.Errorf("%w: account payload missing", ErrInvalidRequest)
	}
	changed, err := s.lifecycle.ApplyConnectAccountUpdate(ctx, ConnectAccountEvent{
		OrganizerID:    event.OrganizerID,
		AccountID:      event.Account.ID,
		ChargesEnabled: event.Account.ChargesEnabled,
		PayoutsEnabled: event.Account.PayoutsEnabled,
	})
	return outcomeFor(changed), err
}

func (s *WebhookService) handlePayout(ctx context.Context, event *provider.Event) (entity.WebhookOutcome, error) {
	if event.Payout == nil {
		return "", fmt.Errorf("%w: payout payload missing", ErrInvalidRequest)
	}
	status := entity.PayoutCompleted
	if event.Kind == provider.EventKindPayoutFailed {
		status = entity.PayoutFailed
	}
	err := s.lifecycle.RecordPayout(ctx, PayoutEvent{
		OrganizerID:      event.OrganizerID,
		AccountID:        event.Payout.AccountID,
		ProviderPayoutID: event.Payout.ID,
		Amount:           event.Payout.Amount,
		Currency:         event.Payout.Currency,
		Status:           status,
		FailureReason:    event.Payout.FailureMessage,
	})
	return entity.WebhookOutcomeApplied, err
}

func outcomeFor(changed bool) entity.WebhookOutcome {
	if changed {
		return entity.WebhookOutcomeApplied
	}
	return entity.WebhookOutcomeIgnored
}
