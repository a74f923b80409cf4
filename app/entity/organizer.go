package entity

import "time"

type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationInReview   VerificationStatus = "in_review"
	VerificationVerified   VerificationStatus = "verified"
	VerificationRejected   VerificationStatus = "rejected"
)

type IdentityStatus string

const (
	IdentityNone          IdentityStatus = "none"
	IdentityProcessing    IdentityStatus = "processing"
	IdentityRequiresInput IdentityStatus = "requires_input"
	IdentityVerified      IdentityStatus = "verified"
	IdentityCanceled      IdentityStatus = "canceled"
)

type ConnectStatus string

const (
	ConnectNone    ConnectStatus = "none"
	ConnectPending ConnectStatus = "pending"
	ConnectActive  ConnectStatus = "active"
)

type Organizer struct {
	ID                       string
	UserRef                  string
	Active                   bool
	VerificationStatus       VerificationStatus
	IdentityStatus           IdentityStatus
	IdentitySessionID        *string
	// IdentitySessionCreatedAt is the provider creation time of IdentitySessionID.
	IdentitySessionCreatedAt *time.Time
	ConnectStatus            ConnectStatus
	PayoutAccountRef         *string
	VerifiedAt               *time.Time
	VerifiedNotifiedAt       *time.Time
	ConnectActivatedAt       *time.Time
	Version                  int64
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// EffectivelyVerified reports whether the organizer counts as verified.
// An active connect account substitutes for identity verification.
func (o *Organizer) EffectivelyVerified() bool {
	return o.ConnectStatus == ConnectActive ||
		o.IdentityStatus == IdentityVerified ||
		o.VerificationStatus == VerificationVerified
}
