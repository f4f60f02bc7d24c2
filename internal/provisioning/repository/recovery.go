package repository

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/blunari/blunari-backend/internal/provisioning/domain"
	"github.com/blunari/blunari-backend/pkg/database"
)

// RecoveryRepository handles recovery-link and rate-limit persistence
type RecoveryRepository struct {
	db *database.DB
}

// NewRecoveryRepository creates a new recovery repository
func NewRecoveryRepository(db *database.DB) *RecoveryRepository {
	return &RecoveryRepository{db: db}
}

// generateSecureToken generates a cryptographically secure token and the hash
// under which it is stored. The raw token leaves the server exactly once.
func generateSecureToken() (string, string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", err
	}
	token := base64.URLEncoding.EncodeToString(bytes)

	hash := sha256.Sum256([]byte(token))
	tokenHash := hex.EncodeToString(hash[:])

	return token, tokenHash, nil
}

// HashToken hashes a presented token for lookup.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// IncrementRateLimitTx atomically bumps the counter for (subject, window) and
// returns the post-increment count. Increment and read are one statement, so
// two near-simultaneous issuances cannot both observe "under limit".
func (r *RecoveryRepository) IncrementRateLimitTx(ctx context.Context, tx *sqlx.Tx, subject string, windowStart time.Time) (int, error) {
	query := `
		INSERT INTO rate_limits (subject, window_start, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (subject, window_start) DO UPDATE SET count = rate_limits.count + 1
		RETURNING count
	`

	var count int
	if err := tx.QueryRowxContext(ctx, query, subject, windowStart).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CreateTx inserts a recovery request inside the issuance transaction and
// returns the raw token. Only its hash is persisted.
func (r *RecoveryRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, req *domain.RecoveryRequest) (string, error) {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	token, tokenHash, err := generateSecureToken()
	if err != nil {
		return "", err
	}
	req.TokenHash = tokenHash

	query := `
		INSERT INTO recovery_requests (id, tenant_id, owner_account_id, token_hash, expires_at, issued_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err = tx.QueryRowxContext(ctx, query,
		req.ID,
		req.TenantID,
		req.OwnerAccountID,
		req.TokenHash,
		req.ExpiresAt,
		req.IssuedBy,
	).Scan(&req.CreatedAt)
	if err != nil {
		return "", err
	}

	return token, nil
}

// GetByID retrieves a recovery request, or (nil, nil) when absent.
func (r *RecoveryRepository) GetByID(ctx context.Context, id string) (*domain.RecoveryRequest, error) {
	var req domain.RecoveryRequest
	query := `
		SELECT id, tenant_id, owner_account_id, token_hash, expires_at, issued_by,
		       created_at, revoked_at, revoked_by, revoke_reason, redeemed_at
		FROM recovery_requests
		WHERE id = $1
	`

	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &req, nil
}

// GetByTokenHashTx looks up a recovery request by the hash of a presented
// token, within the redemption transaction, locking the row so concurrent
// redemptions serialize.
func (r *RecoveryRepository) GetByTokenHashTx(ctx context.Context, tx *sqlx.Tx, tokenHash string) (*domain.RecoveryRequest, error) {
	var req domain.RecoveryRequest
	query := `
		SELECT id, tenant_id, owner_account_id, token_hash, expires_at, issued_by,
		       created_at, revoked_at, revoked_by, revoke_reason, redeemed_at
		FROM recovery_requests
		WHERE token_hash = $1
		FOR UPDATE
	`

	if err := tx.GetContext(ctx, &req, query, tokenHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &req, nil
}

// Revoke marks a request revoked with who/when/why. Returns true when the
// request had already been revoked.
func (r *RecoveryRepository) Revoke(ctx context.Context, id, revokedBy, reason string) (bool, error) {
	query := `
		UPDATE recovery_requests
		SET revoked_at = NOW(), revoked_by = $2, revoke_reason = $3
		WHERE id = $1 AND revoked_at IS NULL
	`

	res, err := r.db.ExecContext(ctx, query, id, revokedBy, reason)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	// Zero rows means it was already revoked (existence is checked upstream).
	return n == 0, nil
}

// MarkRedeemedTx records redemption within the redemption transaction.
func (r *RecoveryRepository) MarkRedeemedTx(ctx context.Context, tx *sqlx.Tx, id string) error {
	query := `UPDATE recovery_requests SET redeemed_at = NOW() WHERE id = $1 AND redeemed_at IS NULL`
	res, err := tx.ExecContext(ctx, query, id)
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
