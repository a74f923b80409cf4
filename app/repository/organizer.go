package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-fees/app/entity"
)

var (
	ErrOrganizerNotFound      = errors.New("organizer not found")
	ErrOrganizerAlreadyExists = errors.New("organizer already exists")
)

type OrganizerRepository struct {
	db DBTX
}

func NewOrganizerRepository(db DBTX) *OrganizerRepository {
	return &OrganizerRepository{db: db}
}

const organizerColumns = `
	id, user_ref, is_active, verification_status, identity_status, identity_session_id,
	identity_session_created_at, connect_status, payout_account_ref, verified_at,
	verified_notified_at, connect_activated_at, version, created_at, updated_at
`

func (r *OrganizerRepository) Create(ctx context.Context, organizer *entity.Organizer) error {
	query := `
		INSERT INTO organizers (
			id, user_ref, is_active, verification_status, identity_status, identity_session_id,
			identity_session_created_at, connect_status, payout_account_ref, verified_at,
			verified_notified_at, connect_activated_at, version, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		organizer.ID,
		organizer.UserRef,
		organizer.Active,
		string(organizer.VerificationStatus),
		string(organizer.IdentityStatus),
		nullableStringValue(organizer.IdentitySessionID),
		nullableTimeValue(organizer.IdentitySessionCreatedAt),
		string(organizer.ConnectStatus),
		nullableStringValue(organizer.PayoutAccountRef),
		nullableTimeValue(organizer.VerifiedAt),
		nullableTimeValue(organizer.VerifiedNotifiedAt),
		nullableTimeValue(organizer.ConnectActivatedAt),
		organizer.Version,
		organizer.CreatedAt,
		organizer.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrOrganizerAlreadyExists
		}
		return err
	}

	return nil
}

// UpdateState writes the lifecycle columns when the stored version still
// matches organizer.Version, then bumps the version in memory.
func (r *OrganizerRepository) UpdateState(ctx context.Context, organizer *entity.Organizer) error {
	query := `
		UPDATE organizers SET
			is_active = ?,
			verification_status = ?,
			identity_status = ?,
			identity_session_id = ?,
			identity_session_created_at = ?,
			connect_status = ?,
			payout_account_ref = ?,
			verified_at = ?,
			verified_notified_at = ?,
			connect_activated_at = ?,
			version = version + 1,
			updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		organizer.Active,
		string(organizer.VerificationStatus),
		string(organizer.IdentityStatus),
		nullableStringValue(organizer.IdentitySessionID),
		nullableTimeValue(organizer.IdentitySessionCreatedAt),
		string(organizer.ConnectStatus),
		nullableStringValue(organizer.PayoutAccountRef),
		nullableTimeValue(organizer.VerifiedAt),
		nullableTimeValue(organizer.VerifiedNotifiedAt),
		nullableTimeValue(organizer.ConnectActivatedAt),
		organizer.UpdatedAt,
		organizer.ID,
		organizer.Version,
	)
	if err != nil {
		return err
	}

	ok, err := affectedOne(result)
	if err != nil {
		return err
	}
	if !ok {
		return ErrVersionConflict
	}

	organizer.Version++
	return nil
}

func (r *OrganizerRepository) FindByID(ctx context.Context, id string) (*entity.Organizer, error) {
	query := `SELECT ` + organizerColumns + ` FROM organizers WHERE id = ?`
	return r.findOne(ctx, query, id)
}

func (r *OrganizerRepository) FindByPayoutAccountRef(ctx context.Context, accountRef string) (*entity.Organizer, error) {
	query := `SELECT ` + organizerColumns + ` FROM organizers WHERE payout_account_ref = ? LIMIT 1`
	return r.findOne(ctx, query, accountRef)
}

func (r *OrganizerRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.Organizer, error) {
	organizer := &entity.Organizer{}
	if err := scanOrganizer(r.db.QueryRowContext(ctx, query, args...), organizer); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return organizer, nil
}

func scanOrganizer(scan rowScanner, organizer *entity.Organizer) error {
	var verificationStatus, identityStatus, connectStatus string
	var identitySessionID, payoutAccountRef sql.NullString
	var sessionCreatedAt, verifiedAt, verifiedNotifiedAt, connectActivatedAt sql.NullTime

	err := scan.Scan(
		&organizer.ID,
		&organizer.UserRef,
		&organizer.Active,
		&verificationStatus,
		&identityStatus,
		&identitySessionID,
		&sessionCreatedAt,
		&connectStatus,
		&payoutAccountRef,
		&verifiedAt,
		&verifiedNotifiedAt,
		&connectActivatedAt,
		&organizer.Version,
		&organizer.CreatedAt,
		&organizer.UpdatedAt,
	)
	if err != nil {
		return err
	}

	organizer.VerificationStatus = entity.VerificationStatus(verificationStatus)
	organizer.IdentityStatus = entity.IdentityStatus(identityStatus)
	organizer.ConnectStatus = entity.ConnectStatus(connectStatus)
	organizer.IdentitySessionID = stringPtrFromNull(identitySessionID)
	organizer.IdentitySessionCreatedAt = timePtrFromNull(sessionCreatedAt)
	organizer.PayoutAccountRef = stringPtrFromNull(payoutAccountRef)
	organizer.VerifiedAt = timePtrFromNull(verifiedAt)
	organizer.VerifiedNotifiedAt = timePtrFromNull(verifiedNotifiedAt)
	organizer.ConnectActivatedAt = timePtrFromNull(connectActivatedAt)

	return nil
}
