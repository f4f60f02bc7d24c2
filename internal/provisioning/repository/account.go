package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/blunari/blunari-backend/internal/provisioning/domain"
	"github.com/blunari/blunari-backend/pkg/database"
)

// AccountRepository handles owner account and profile persistence
type AccountRepository struct {
	db *database.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// GetByEmail retrieves an owner account by email. Returns (nil, nil) when no
// account exists.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.OwnerAccount, error) {
	return getAccountByEmail(ctx, r.db, email)
}

// GetByEmailTx is GetByEmail within an open transaction.
func (r *AccountRepository) GetByEmailTx(ctx context.Context, tx *sqlx.Tx, email string) (*domain.OwnerAccount, error) {
	return getAccountByEmail(ctx, tx, email)
}

func getAccountByEmail(ctx context.Context, q sqlx.QueryerContext, email string) (*domain.OwnerAccount, error) {
	var acct domain.OwnerAccount
	query := `
		SELECT id, email, password_hash, email_verified, created_at, last_login_at
		FROM owner_accounts
		WHERE email = $1
	`

	if err := sqlx.GetContext(ctx, q, &acct, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &acct, nil
}

// CreateTx inserts an owner account inside the provisioning transaction.
// ON CONFLICT DO NOTHING makes concurrent creation race-safe: when another
// transaction won the insert, no row comes back and the caller falls back to
// the reuse-existing path by re-reading.
func (r *AccountRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, email, passwordHash string) (*domain.OwnerAccount, bool, error) {
	id := uuid.New().String()

	query := `
		INSERT INTO owner_accounts (id, email, password_hash, email_verified)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (email) DO NOTHING
		RETURNING id, email, password_hash, email_verified, created_at, last_login_at
	`

	var acct domain.OwnerAccount
	err := tx.QueryRowxContext(ctx, query, id, email, passwordHash).StructScan(&acct)
	if err == nil {
		return &acct, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	// Lost the race: the account already exists, reuse it.
	existing, err := getAccountByEmail(ctx, tx, email)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		// Visible to the constraint but not to us yet; the caller retries.
		return nil, false, sql.ErrNoRows
	}
	return existing, false, nil
}

// UpsertProfileTx inserts or updates the profile row for an account, keyed by
// the account's own id.
func (r *AccountRepository) UpsertProfileTx(ctx context.Context, tx *sqlx.Tx, profile *domain.Profile) error {
	query := `
		INSERT INTO profiles (account_id, email, display_name, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			role = EXCLUDED.role,
			updated_at = NOW()
	`

	_, err := tx.ExecContext(ctx, query,
		profile.AccountID,
		profile.Email,
		profile.DisplayName,
		profile.Role,
	)
	return err
}

// GetProfile retrieves the profile for an account.
func (r *AccountRepository) GetProfile(ctx context.Context, accountID string) (*domain.Profile, error) {
	var p domain.Profile
	query := `
		SELECT account_id, email, display_name, role, created_at, updated_at
		FROM profiles
		WHERE account_id = $1
	`

	if err := r.db.GetContext(ctx, &p, query, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &p, nil
}

// SetPassword replaces an account's password hash. Used by recovery-link
// redemption.
func (r *AccountRepository) SetPassword(ctx context.Context, tx *sqlx.Tx, accountID, passwordHash string) error {
	query := `UPDATE owner_accounts SET password_hash = $2 WHERE id = $1`
	res, err := tx.ExecContext(ctx, query, accountID, passwordHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
