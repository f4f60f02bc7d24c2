package domain

import "time"

// OwnerAccount is a login identity for a tenant owner.
type OwnerAccount struct {
	ID            string     `db:"id" json:"id"`
	Email         string     `db:"email" json:"email"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	EmailVerified bool       `db:"email_verified" json:"email_verified"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	LastLoginAt   *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
}

// ProfileRole distinguishes owners from staff and platform admins.
type ProfileRole string

const (
	ProfileOwner ProfileRole = "owner"
	ProfileStaff ProfileRole = "staff"
	ProfileAdmin ProfileRole = "admin"
)

// Profile mirrors an account's public-facing identity. It is keyed by the
// account's own id rather than a synthetic key, so there is exactly one
// profile per account by construction.
type Profile struct {
	AccountID   string      `db:"account_id" json:"account_id"`
	Email       string      `db:"email" json:"email"`
	DisplayName string      `db:"display_name" json:"display_name"`
	Role        ProfileRole `db:"role" json:"role"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}
