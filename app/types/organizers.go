package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
)

type RegisterOrganizerRequest struct {
	ID       string `json:"id"`
	UserRef  string `json:"user_ref"`
	ActorRef string `json:"actor_ref"`
}

func NewRegisterOrganizerRequestFromContext(ctx echo.Context) (*RegisterOrganizerRequest, error) {
	var body RegisterOrganizerRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.ID = strings.TrimSpace(body.ID)
	body.UserRef = strings.TrimSpace(body.UserRef)
	body.ActorRef = strings.TrimSpace(body.ActorRef)
	return &body, nil
}

func (r *RegisterOrganizerRequest) Validate() error {
	if r.UserRef == "" {
		return errors.New("user_ref is required")
	}
	if len(r.ID) > 64 {
		return errors.New("id must be at most 64 characters")
	}
	return nil
}

type SetVerificationStatusRequest struct {
	OrganizerID string `json:"-"`
	Status      string `json:"status"`
	ActorRef    string `json:"actor_ref"`
}

func NewSetVerificationStatusRequestFromContext(ctx echo.Context) (*SetVerificationStatusRequest, error) {
	var body SetVerificationStatusRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.OrganizerID = strings.TrimSpace(ctx.Param("id"))
	body.Status = strings.ToLower(strings.TrimSpace(body.Status))
	body.ActorRef = strings.TrimSpace(body.ActorRef)
	return &body, nil
}

func (r *SetVerificationStatusRequest) Validate() error {
	if r.OrganizerID == "" {
		return errors.New("organizer id is required")
	}
	switch r.Status {
	case "unverified", "in_review", "verified", "rejected":
	default:
		return errors.New("status must be unverified, in_review, verified, or rejected")
	}
	if r.ActorRef == "" {
		return errors.New("actor_ref is required")
	}
	return nil
}

type OrganizerResponse struct {
	ID                  string `json:"id"`
	UserRef             string `json:"user_ref"`
	Active              bool   `json:"active"`
	VerificationStatus  string `json:"verification_status"`
	IdentityStatus      string `json:"identity_status"`
	ConnectStatus       string `json:"connect_status"`
	PayoutAccountRef    string `json:"payout_account_ref,omitempty"`
	EffectivelyVerified bool   `json:"effectively_verified"`
	VerifiedAt          string `json:"verified_at,omitempty"`
	ConnectActivatedAt  string `json:"connect_activated_at,omitempty"`
	UpdatedAt           string `json:"updated_at"`
}

type OrganizerEnvelopeResponse struct {
	Organizer *OrganizerResponse `json:"organizer"`
}
