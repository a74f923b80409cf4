package service

import (
	"errors"
	"fmt"

	"github.com/vibast-solutions/ms-go-fees/app/entity"
)

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrOrganizerNotFound   = errors.New("organizer not found")
	ErrOrganizerExists     = errors.New("organizer already exists")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderAlreadyExists  = errors.New("order already exists")
	ErrRefundNotFound      = errors.New("refund request not found")
	ErrRefundAlreadyExists = errors.New("refund request already exists for order")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrActorNotAllowed     = errors.New("actor not allowed to perform decision")
	ErrMissingCorrelation  = errors.New("event cannot be correlated to an organizer")
	ErrProviderUnsupported = errors.New("provider is not supported")
	ErrSignatureRejected   = errors.New("webhook signature rejected")
	ErrUnknownFeeField     = errors.New("unknown fee field")
	ErrConcurrentUpdate    = errors.New("gave up after repeated concurrent updates")
)

// TransitionError reports a refund decision the current state does not allow.
// It unwraps to ErrInvalidTransition or ErrActorNotAllowed.
type TransitionError struct {
	Current   entity.RefundStatus
	Escalated bool
	Attempted Decision
	Actor     entity.Actor
	reason    error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%v: %s by %s from status %s", e.reason, e.Attempted, e.Actor, e.Current)
}

func (e *TransitionError) Unwrap() error {
	return e.reason
}
