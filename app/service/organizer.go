package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-fees/app/clock"
	"github.com/vibast-solutions/ms-go-fees/app/entity"
	"github.com/vibast-solutions/ms-go-fees/app/factory"
	"github.com/vibast-solutions/ms-go-fees/app/publisher"
	"github.com/vibast-solutions/ms-go-fees/app/repository"
)

type organizerRepository interface {
	Create(ctx context.Context, organizer *entity.Organizer) error
	FindByID(ctx context.Context, id string) (*entity.Organizer, error)
	FindByPayoutAccountRef(ctx context.Context, accountRef string) (*entity.Organizer, error)
	UpdateState(ctx context.Context, organizer *entity.Organizer) error
}

type payoutRepository interface {
	Save(ctx context.Context, payout *entity.Payout) error
}

// IdentityEvent is an identity verification session update for one organizer.
type IdentityEvent struct {
	OrganizerID      string
	Status           entity.IdentityStatus
	SessionID        string
	// SessionCreatedAt orders sessions; zero means unknown.
	SessionCreatedAt time.Time
	Reason           string
}

// ConnectAccountEvent is a payout account update. OrganizerID may be empty,
// in which case the organizer is found by AccountID.
type ConnectAccountEvent struct {
	OrganizerID    string
	AccountID      string
	ChargesEnabled bool
	PayoutsEnabled bool
}

type PayoutEvent struct {
	OrganizerID      string
	AccountID        string
	ProviderPayoutID string
	Amount           decimal.Decimal
	Currency         string
	Status           entity.PayoutStatus
	FailureReason    string
}

type OrganizerService struct {
	organizers organizerRepository
	payouts    payoutRepository
	notifier   notifier
	audit      auditTrail
	clock      clock.Clock
	maxRetries int
	logger     logrus.FieldLogger
}

func NewOrganizerService(
	organizers organizerRepository,
	payouts payoutRepository,
	audits auditLogRepository,
	notifier notifier,
	clk clock.Clock,
	maxRetries int,
) *OrganizerService {
	logger := factory.NewModuleLogger("organizer-service")
	return &OrganizerService{
		organizers: organizers,
		payouts:    payouts,
		notifier:   notifier,
		audit:      auditTrail{repo: audits, clock: clk, logger: logger},
		clock:      clk,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

type RegisterOrganizerInput struct {
	ID       string
	UserRef  string
	ActorRef string
}

// RegisterOrganizer provisions an organizer with no identity or payout
// account progress.
func (s *OrganizerService) RegisterOrganizer(ctx context.Context, input RegisterOrganizerInput) (*entity.Organizer, error) {
	userRef := strings.TrimSpace(input.UserRef)
	if userRef == "" {
		return nil, fmt.Errorf("%w: user ref is required", ErrInvalidRequest)
	}
	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = uuid.NewString()
	}

	now := s.clock.Now()
	organizer := &entity.Organizer{
		ID:                 id,
		UserRef:            userRef,
		Active:             true,
		VerificationStatus: entity.VerificationUnverified,
		IdentityStatus:     entity.IdentityNone,
		ConnectStatus:      entity.ConnectNone,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.organizers.Create(ctx, organizer); err != nil {
		if errors.Is(err, repository.ErrOrganizerAlreadyExists) {
			return nil, ErrOrganizerExists
		}
		return nil, err
	}

	s.audit.record(ctx, "organizer_registered", "organizer", organizer.ID, input.ActorRef, map[string]interface{}{
		"user_ref": userRef,
	})
	return organizer, nil
}

func (s *OrganizerService) GetOrganizer(ctx context.Context, id string) (*entity.Organizer, error) {
	organizer, err := s.organizers.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if organizer == nil {
		return nil, ErrOrganizerNotFound
	}
	return organizer, nil
}

// identityEffects describes what committing an identity transition triggers.
type identityEffects struct {
	changed              bool
	notifyVerified       bool
	notifyActionRequired bool
}

// ApplyIdentityEvent moves the organizer's identity state according to the
// event and reports whether anything changed. Verified organizers are never
// demoted.
func (s *OrganizerService) ApplyIdentityEvent(ctx context.Context, event IdentityEvent) (bool, error) {
	organizerID := strings.TrimSpace(event.OrganizerID)
	if organizerID == "" {
		return false, ErrMissingCorrelation
	}

	var (
		organizer *entity.Organizer
		effects   identityEffects
	)
	err := retryOnConflict(ctx, s.maxRetries, func() error {
		current, err := s.GetOrganizer(ctx, organizerID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		effects = applyIdentityTransition(current, event, now)
		if !effects.changed {
			organizer = current
			return nil
		}
		current.UpdatedAt = now
		if err := s.organizers.UpdateState(ctx, current); err != nil {
			return err
		}
		organizer = current
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrganizerNotFound) {
			return false, fmt.Errorf("%w: %w", ErrMissingCorrelation, err)
		}
		return false, err
	}

	if effects.notifyVerified {
		s.notifier.Notify(ctx, publisher.Notification{
			Type:         publisher.NotificationKYCVerified,
			RecipientRef: organizer.UserRef,
			TemplateData: map[string]interface{}{"organizer_id": organizer.ID},
		})
		s.audit.record(ctx, "kyc_auto_verified", "organizer", organizer.ID, "", map[string]interface{}{
			"method":     "stripe_identity",
			"session_id": event.SessionID,
		})
	}
	if effects.notifyActionRequired {
		s.notifier.Notify(ctx, publisher.Notification{
			Type:         publisher.NotificationKYCActionRequired,
			RecipientRef: organizer.UserRef,
			TemplateData: map[string]interface{}{
				"organizer_id": organizer.ID,
				"reason":       event.Reason,
			},
		})
	}

	if effects.changed {
		s.logger.WithFields(logrus.Fields{
			"organizer_id":    organizer.ID,
			"identity_status": organizer.IdentityStatus,
		}).Info("Identity state updated")
	}

	return effects.changed, nil
}

// applyIdentityTransition mutates o for event. Events from a session other
// than the recorded one only apply when that session was created later;
// verified is the exception and always wins.
func applyIdentityTransition(o *entity.Organizer, event IdentityEvent, now time.Time) identityEffects {
	sessionID := strings.TrimSpace(event.SessionID)
	createdAt := event.SessionCreatedAt

	switch event.Status {
	case entity.IdentityVerified:
		effects := identityEffects{}
		if o.IdentityStatus != entity.IdentityVerified || o.VerificationStatus != entity.VerificationVerified {
			o.IdentityStatus = entity.IdentityVerified
			o.VerificationStatus = entity.VerificationVerified
			effects.changed = true
		}
		if o.VerifiedAt == nil {
			o.VerifiedAt = &now
			effects.changed = true
		}
		if sessionID != "" && !sameSession(o.IdentitySessionID, sessionID) {
			adoptSession(o, sessionID, createdAt)
			effects.changed = true
		}
		if o.VerifiedNotifiedAt == nil {
			o.VerifiedNotifiedAt = &now
			effects.changed = true
			effects.notifyVerified = true
		}
		return effects

	case entity.IdentityRequiresInput:
		if o.IdentityStatus == entity.IdentityVerified || staleSession(o, sessionID, createdAt) {
			return identityEffects{}
		}
		o.IdentityStatus = entity.IdentityRequiresInput
		if sessionID != "" {
			adoptSession(o, sessionID, createdAt)
		}
		return identityEffects{changed: true, notifyActionRequired: true}

	case entity.IdentityProcessing:
		if o.IdentityStatus == entity.IdentityVerified || staleSession(o, sessionID, createdAt) {
			return identityEffects{}
		}
		if o.IdentityStatus == entity.IdentityProcessing && (sessionID == "" || sameSession(o.IdentitySessionID, sessionID)) {
			return identityEffects{}
		}
		o.IdentityStatus = entity.IdentityProcessing
		if sessionID != "" {
			adoptSession(o, sessionID, createdAt)
		}
		return identityEffects{changed: true}

	case entity.IdentityCanceled:
		if staleSession(o, sessionID, createdAt) {
			return identityEffects{}
		}
		switch o.IdentityStatus {
		case entity.IdentityNone:
		case entity.IdentityProcessing:
			if o.IdentitySessionID != nil && !sameSession(o.IdentitySessionID, sessionID) {
				return identityEffects{}
			}
		default:
			return identityEffects{}
		}
		o.IdentityStatus = entity.IdentityCanceled
		if sessionID != "" {
			adoptSession(o, sessionID, createdAt)
		}
		return identityEffects{changed: true}
	}

	return identityEffects{}
}

func sameSession(recorded *string, sessionID string) bool {
	return recorded != nil && *recorded == sessionID
}

// staleSession reports whether sessionID belongs to a session that is not
// newer than the one already recorded on o.
func staleSession(o *entity.Organizer, sessionID string, createdAt time.Time) bool {
	if sessionID == "" || o.IdentitySessionID == nil || *o.IdentitySessionID == sessionID {
		return false
	}
	if createdAt.IsZero() {
		return true
	}
	return o.IdentitySessionCreatedAt != nil && !createdAt.After(*o.IdentitySessionCreatedAt)
}

func adoptSession(o *entity.Organizer, sessionID string, createdAt time.Time) {
	o.IdentitySessionID = &sessionID
	if createdAt.IsZero() {
		o.IdentitySessionCreatedAt = nil
		return
	}
	created := createdAt.UTC()
	o.IdentitySessionCreatedAt = &created
}

// ApplyConnectAccountUpdate records the payout account and promotes the
// connect status. Connect status never moves backwards.
func (s *OrganizerService) ApplyConnectAccountUpdate(ctx context.Context, event ConnectAccountEvent) (bool, error) {
	accountID := strings.TrimSpace(event.AccountID)
	fullyEnabled := event.ChargesEnabled && event.PayoutsEnabled

	var (
		organizer *entity.Organizer
		changed   bool
		activated bool
	)
	err := retryOnConflict(ctx, s.maxRetries, func() error {
		current, err := s.correlate(ctx, event.OrganizerID, accountID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		changed, activated = false, false

		if accountID != "" && !sameSession(current.PayoutAccountRef, accountID) {
			current.PayoutAccountRef = &accountID
			changed = true
		}
		switch {
		case fullyEnabled && current.ConnectStatus != entity.ConnectActive:
			current.ConnectStatus = entity.ConnectActive
			current.ConnectActivatedAt = &now
			changed, activated = true, true
		case !fullyEnabled && current.ConnectStatus == entity.ConnectNone:
			current.ConnectStatus = entity.ConnectPending
			changed = true
		}

		organizer = current
		if !changed {
			return nil
		}
		current.UpdatedAt = now
		return s.organizers.UpdateState(ctx, current)
	})
	if err != nil {
		return false, err
	}

	if activated {
		s.notifier.Notify(ctx, publisher.Notification{
			Type:         publisher.NotificationConnectActivated,
			RecipientRef: organizer.UserRef,
			TemplateData: map[string]interface{}{
				"organizer_id": organizer.ID,
				"account_id":   accountID,
			},
		})
		s.audit.record(ctx, "stripe_connect_activated", "organizer", organizer.ID, "", map[string]interface{}{
			"account_id": accountID,
		})
		s.logger.WithField("organizer_id", organizer.ID).Info("Connect account activated")
	}

	return changed, nil
}

// RecordPayout stores the latest payout status reported by the provider.
func (s *OrganizerService) RecordPayout(ctx context.Context, event PayoutEvent) error {
	if strings.TrimSpace(event.ProviderPayoutID) == "" {
		return fmt.Errorf("%w: payout id is required", ErrInvalidRequest)
	}

	organizer, err := s.correlate(ctx, event.OrganizerID, event.AccountID)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	payout := &entity.Payout{
		ID:               uuid.NewString(),
		ProviderPayoutID: strings.TrimSpace(event.ProviderPayoutID),
		OrganizerID:      organizer.ID,
		Amount:           event.Amount,
		Currency:         strings.ToUpper(strings.TrimSpace(event.Currency)),
		Status:           event.Status,
		FailureReason:    optionalString(event.FailureReason),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.payouts.Save(ctx, payout); err != nil {
		return err
	}

	if event.Status == entity.PayoutFailed {
		s.notifier.Notify(ctx, publisher.Notification{
			Type:         publisher.NotificationPayoutFailed,
			RecipientRef: organizer.UserRef,
			TemplateData: map[string]interface{}{
				"organizer_id": organizer.ID,
				"payout_id":    payout.ProviderPayoutID,
				"amount":       payout.Amount.StringFixed(2),
				"currency":     payout.Currency,
				"reason":       event.FailureReason,
			},
		})
	}
	return nil
}

// SetVerificationStatus records a manual review decision.
func (s *OrganizerService) SetVerificationStatus(ctx context.Context, organizerID string, status entity.VerificationStatus, actorRef string) (*entity.Organizer, error) {
	switch status {
	case entity.VerificationUnverified, entity.VerificationInReview, entity.VerificationVerified, entity.VerificationRejected:
	default:
		return nil, fmt.Errorf("%w: unknown verification status %q", ErrInvalidRequest, status)
	}

	var (
		organizer *entity.Organizer
		previous  entity.VerificationStatus
	)
	err := retryOnConflict(ctx, s.maxRetries, func() error {
		current, err := s.GetOrganizer(ctx, organizerID)
		if err != nil {
			return err
		}
		organizer = current
		previous = current.VerificationStatus
		if previous == status {
			return nil
		}

		now := s.clock.Now()
		current.VerificationStatus = status
		if status == entity.VerificationVerified && current.VerifiedAt == nil {
			current.VerifiedAt = &now
		}
		current.UpdatedAt = now
		return s.organizers.UpdateState(ctx, current)
	})
	if err != nil {
		return nil, err
	}
	if previous == status {
		return organizer, nil
	}

	s.audit.record(ctx, "kyc_manual_review", "organizer", organizer.ID, actorRef, map[string]interface{}{
		"previous_status": string(previous),
		"status":          string(status),
	})
	if status == entity.VerificationVerified || status == entity.VerificationRejected {
		s.notifier.Notify(ctx, publisher.Notification{
			Type:         publisher.NotificationVerificationReviewDone,
			RecipientRef: organizer.UserRef,
			TemplateData: map[string]interface{}{
				"organizer_id": organizer.ID,
				"status":       string(status),
			},
		})
	}

	return organizer, nil
}

// correlate finds the organizer an event belongs to, preferring the explicit
// organizer id over the payout account reference.
func (s *OrganizerService) correlate(ctx context.Context, organizerID, accountID string) (*entity.Organizer, error) {
	organizerID = strings.TrimSpace(organizerID)
	accountID = strings.TrimSpace(accountID)

	var (
		organizer *entity.Organizer
		err       error
	)
	switch {
	case organizerID != "":
		organizer, err = s.organizers.FindByID(ctx, organizerID)
	case accountID != "":
		organizer, err = s.organizers.FindByPayoutAccountRef(ctx, accountID)
	default:
		return nil, ErrMissingCorrelation
	}
	if err != nil {
		return nil, err
	}
	if organizer == nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingCorrelation, ErrOrganizerNotFound)
	}
	return organizer, nil
}
