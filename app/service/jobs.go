package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-fees/app/entity"
)

// RunReprocessBatch retries stored webhook events that were never marked
// processed, such as deliveries whose background processing died with the
// process or whose claim was released after a failure.
func (s *WebhookService) RunReprocessBatch(ctx context.Context) error {
	now := s.clock.Now()
	staleBefore := now.Add(-s.cfg.ClaimTTL)
	items, err := s.events.ListUnprocessed(ctx, now.Add(-s.cfg.AckTimeout), staleBefore, s.cfg.BatchSize)
	if err != nil {
		return err
	}

	var firstErr error
	for _, item := range items {
		if item == nil {
			continue
		}

		claimed, err := s.events.Claim(ctx, item.ID, now, staleBefore)
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		if !claimed {
			continue
		}

		p, err := s.providers.Get(item.Provider)
		if err != nil {
			firstErr = keepFirstErr(firstErr, s.dropUnreadable(ctx, item, err))
			continue
		}
		event, err := p.Parse([]byte(item.PayloadJSON))
		if err != nil {
			firstErr = keepFirstErr(firstErr, s.dropUnreadable(ctx, item, err))
			continue
		}

		if _, err := s.process(ctx, item, event); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

func (s *WebhookService) dropUnreadable(ctx context.Context, item *entity.WebhookEvent, cause error) error {
	s.logger.WithError(cause).WithFields(logrus.Fields{
		"event_id": item.ExternalID,
		"provider": item.Provider,
	}).Warn("Stored webhook event cannot be replayed, dropped")

	if _, err := s.events.MarkProcessed(ctx, item.ID, entity.WebhookOutcomeDropped, s.clock.Now()); err != nil {
		return fmt.Errorf("mark unreadable event %s: %w", item.ExternalID, err)
	}
	return nil
}
