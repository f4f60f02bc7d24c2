package domain

import "time"

// RecoveryRequest is a time-boxed password-reset link issued by an admin for
// a tenant owner. Only the SHA-256 hash of the token is stored; the link is
// returned to the issuing admin exactly once.
type RecoveryRequest struct {
	ID             string     `db:"id" json:"id"`
	TenantID       string     `db:"tenant_id" json:"tenant_id"`
	OwnerAccountID string     `db:"owner_account_id" json:"owner_account_id"`
	TokenHash      string     `db:"token_hash" json:"-"`
	ExpiresAt      time.Time  `db:"expires_at" json:"expires_at"`
	IssuedBy       string     `db:"issued_by" json:"issued_by"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	RevokedAt      *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	RevokedBy      *string    `db:"revoked_by" json:"revoked_by,omitempty"`
	RevokeReason   *string    `db:"revoke_reason" json:"revoke_reason,omitempty"`
	RedeemedAt     *time.Time `db:"redeemed_at" json:"redeemed_at,omitempty"`
}

// Redeemable reports whether the link may still be redeemed at instant now.
// Expiry, revocation, and prior redemption are all checked server side; the
// link's own expiry is never the only gate.
func (r *RecoveryRequest) Redeemable(now time.Time) bool {
	if r == nil {
		return false
	}
	if r.RevokedAt != nil || r.RedeemedAt != nil {
		return false
	}
	return now.Before(r.ExpiresAt)
}
