package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-fees/app/clock"
	"github.com/vibast-solutions/ms-go-fees/app/entity"
	"github.com/vibast-solutions/ms-go-fees/app/publisher"
	"github.com/vibast-solutions/ms-go-fees/app/repository"
)

const (
	defaultMaxRetries = 5
	defaultBatchSize  = int32(100)
)

type notifier interface {
	Notify(ctx context.Context, notification publisher.Notification)
}

type auditLogRepository interface {
	Create(ctx context.Context, entry *entity.AuditLog) error
}

// auditTrail appends audit rows after the state change they describe has been
// committed. Failures are logged and never undo the change.
type auditTrail struct {
	repo   auditLogRepository
	clock  clock.Clock
	logger logrus.FieldLogger
}

func (a auditTrail) record(ctx context.Context, action, entityType, entityID, actorRef string, details map[string]interface{}) {
	if a.repo == nil {
		return
	}

	detailsJSON, err := repository.NewAuditDetails(details)
	if err != nil {
		a.logger.WithError(err).WithField("action", action).Warn("Audit details could not be encoded")
		detailsJSON = "{}"
	}

	err = a.repo.Create(ctx, &entity.AuditLog{
		ID:          uuid.NewString(),
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		ActorRef:    optionalString(actorRef),
		DetailsJSON: detailsJSON,
		CreatedAt:   a.clock.Now(),
	})
	if err != nil {
		a.logger.WithError(err).WithFields(logrus.Fields{
			"action":    action,
			"entity_id": entityID,
		}).Warn("Audit entry not written")
	}
}

// retryOnConflict reruns fn while it reports a version conflict, up to
// maxRetries attempts. fn must reread the row on every call.
func retryOnConflict(ctx context.Context, maxRetries int, fn func() error) error {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 1; ; attempt++ {
		err := fn()
		if !errors.Is(err, repository.ErrVersionConflict) {
			return err
		}
		if attempt >= maxRetries {
			return fmt.Errorf("%w: %w", ErrConcurrentUpdate, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
}

func optionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}

func truncate(v string, limit int) string {
	if len(v) <= limit {
		return v
	}
	return v[:limit]
}
