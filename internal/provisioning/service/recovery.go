package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/blunari/blunari-backend/internal/provisioning/domain"
	"github.com/blunari/blunari-backend/internal/provisioning/events"
	"github.com/blunari/blunari-backend/internal/provisioning/repository"
	"github.com/blunari/blunari-backend/pkg/config"
	"github.com/blunari/blunari-backend/pkg/database"
	"github.com/blunari/blunari-backend/pkg/errors"
	"github.com/blunari/blunari-backend/pkg/logger"
	"github.com/blunari/blunari-backend/pkg/messaging"
)

// RecoveryService issues, revokes, and redeems owner recovery links.
type RecoveryService struct {
	db           *database.DB
	tenantRepo   *repository.TenantRepository
	accountRepo  *repository.AccountRepository
	recoveryRepo *repository.RecoveryRepository
	auditRepo    *repository.AuditRepository
	publisher    *events.TenantEventPublisher
	cfg          *config.RecoveryConfig
	logger       *logger.Logger
	now          func() time.Time
}

// NewRecoveryService creates a new recovery service
func NewRecoveryService(
	db *database.DB,
	tenantRepo *repository.TenantRepository,
	accountRepo *repository.AccountRepository,
	recoveryRepo *repository.RecoveryRepository,
	auditRepo *repository.AuditRepository,
	publisher *events.TenantEventPublisher,
	cfg *config.RecoveryConfig,
	log *logger.Logger,
) *RecoveryService {
	return &RecoveryService{
		db:           db,
		tenantRepo:   tenantRepo,
		accountRepo:  accountRepo,
		recoveryRepo: recoveryRepo,
		auditRepo:    auditRepo,
		publisher:    publisher,
		cfg:          cfg,
		logger:       log,
		now:          time.Now,
	}
}

// IssueResult is returned to the issuing admin. The recovery link appears here
// exactly once and is never retrievable again.
type IssueResult struct {
	RequestID    string `json:"requestId"`
	OwnerEmail   string `json:"ownerEmail"`
	RecoveryLink string `json:"recoveryLink"`
	ExpiresAt    string `json:"expiresAt"`
	Message      string `json:"message"`
}

// RevokeResult reports the outcome of a revocation.
type RevokeResult struct {
	RequestID      string `json:"revokedRequestId"`
	AlreadyRevoked bool   `json:"alreadyRevoked"`
}

// RedeemResult confirms a completed password reset.
type RedeemResult struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Issue creates a recovery link for the owner of a tenant. Both rate limit
// counters increment inside the same transaction as the request row, so a
// denied issuance rolls back without consuming quota for the request row and
// an allowed one commits both counters atomically.
func (s *RecoveryService) Issue(ctx context.Context, tenantID string, admin *domain.Employee) (*IssueResult, error) {
	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, errors.Internal("tenant lookup failed")
	}
	if tenant == nil {
		return nil, errors.NotFound("tenant")
	}

	ap, err := s.tenantRepo.GetProvisioningByTenantID(ctx, tenantID)
	if err != nil {
		return nil, errors.Internal("provisioning lookup failed")
	}
	if ap == nil {
		return nil, errors.NotFound("owner account for tenant")
	}

	now := s.now()
	windowStart := now.Truncate(s.cfg.RateLimitWindow)
	retryAfter := int(windowStart.Add(s.cfg.RateLimitWindow).Sub(now).Seconds())

	req := &domain.RecoveryRequest{
		TenantID:       tenantID,
		OwnerAccountID: ap.OwnerAccountID,
		ExpiresAt:      now.Add(s.cfg.LinkTTL),
		IssuedBy:       admin.ID,
	}

	var token string
	txErr := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		tenantCount, err := s.recoveryRepo.IncrementRateLimitTx(ctx, tx, "tenant:"+tenantID, windowStart)
		if err != nil {
			return err
		}
		if tenantCount > s.cfg.MaxPerTenant {
			return errors.RateLimit(retryAfter)
		}

		adminCount, err := s.recoveryRepo.IncrementRateLimitTx(ctx, tx, "admin:"+admin.ID, windowStart)
		if err != nil {
			return err
		}
		if adminCount > s.cfg.MaxPerAdmin {
			return errors.RateLimit(retryAfter)
		}

		token, err = s.recoveryRepo.CreateTx(ctx, tx, req)
		return err
	})
	if txErr != nil {
		var appErr *errors.AppError
		if errors.As(txErr, &appErr) {
			if appErr.Code == errors.CodeRateLimit {
				s.audit(ctx, admin, "recovery.issue", tenantID, domain.AuditOutcomeDenied, domain.AuditSeverityWarning, map[string]interface{}{
					"reason": "rate limit exceeded",
				})
			}
			return nil, appErr
		}
		s.logger.Error().Err(txErr).Str("tenant_id", tenantID).Msg("recovery issuance failed")
		return nil, errors.Internal("failed to issue recovery link")
	}

	s.audit(ctx, admin, "recovery.issue", tenantID, domain.AuditOutcomeSuccess, domain.AuditSeverityInfo, map[string]interface{}{
		"request_id":  req.ID,
		"owner_email": ap.OwnerEmail,
		"expires_at":  req.ExpiresAt,
	})

	if s.publisher != nil {
		s.publisher.RecoveryLinkIssued(ctx, &messaging.RecoveryLinkIssuedEvent{
			RequestID:  req.ID,
			TenantID:   tenantID,
			OwnerEmail: ap.OwnerEmail,
			IssuedBy:   admin.ID,
			ExpiresAt:  req.ExpiresAt,
		})
	}

	return &IssueResult{
		RequestID:    req.ID,
		OwnerEmail:   ap.OwnerEmail,
		RecoveryLink: s.recoveryLink(token),
		ExpiresAt:    req.ExpiresAt.UTC().Format(time.RFC3339),
		Message:      fmt.Sprintf("Recovery link issued for %s. It expires in %s and can be used once.", ap.OwnerEmail, s.cfg.LinkTTL),
	}, nil
}

// Revoke invalidates an issued recovery link before its expiry. Revoking an
// already revoked link is reported, not an error.
func (s *RecoveryService) Revoke(ctx context.Context, requestID, reason string, admin *domain.Employee) (*RevokeResult, error) {
	req, err := s.recoveryRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, errors.Internal("recovery request lookup failed")
	}
	if req == nil {
		return nil, errors.NotFound("recovery request")
	}

	if reason == "" {
		reason = "revoked by administrator"
	}

	alreadyRevoked, err := s.recoveryRepo.Revoke(ctx, requestID, admin.ID, reason)
	if err != nil {
		s.logger.Error().Err(err).Str("request_id", requestID).Msg("recovery revocation failed")
		return nil, errors.Internal("failed to revoke recovery link")
	}

	s.audit(ctx, admin, "recovery.revoke", req.TenantID, domain.AuditOutcomeSuccess, domain.AuditSeverityInfo, map[string]interface{}{
		"request_id":      requestID,
		"reason":          reason,
		"already_revoked": alreadyRevoked,
	})

	if s.publisher != nil && !alreadyRevoked {
		s.publisher.RecoveryLinkRevoked(ctx, &messaging.RecoveryLinkRevokedEvent{
			RequestID: requestID,
			TenantID:  req.TenantID,
			RevokedBy: admin.ID,
			Reason:    reason,
		})
	}

	return &RevokeResult{RequestID: requestID, AlreadyRevoked: alreadyRevoked}, nil
}

// Redeem exchanges a valid recovery token for a password reset. The row lock
// taken by the token lookup serializes concurrent redemptions of the same
// link; the loser sees redeemed_at set and gets a token error.
func (s *RecoveryService) Redeem(ctx context.Context, token, newPassword string) (*RedeemResult, error) {
	if err := ValidateNewPassword(newPassword); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Internal("failed to process password")
	}

	tokenHash := repository.HashToken(token)

	var ownerEmail string
	txErr := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		req, err := s.recoveryRepo.GetByTokenHashTx(ctx, tx, tokenHash)
		if err != nil {
			return err
		}
		if req == nil {
			return errors.TokenInvalid()
		}
		if !req.Redeemable(s.now()) {
			// Revoked and redeemed tokens are indistinguishable from unknown
			// ones; only plain expiry reports itself.
			if req.RevokedAt == nil && req.RedeemedAt == nil {
				return errors.TokenExpired()
			}
			return errors.TokenInvalid()
		}

		if err := s.accountRepo.SetPassword(ctx, tx, req.OwnerAccountID, string(hash)); err != nil {
			return err
		}
		if err := s.recoveryRepo.MarkRedeemedTx(ctx, tx, req.ID); err != nil {
			return err
		}

		acct, err := getAccountEmailTx(ctx, tx, req.OwnerAccountID)
		if err != nil {
			return err
		}
		ownerEmail = acct

		s.auditSystem(ctx, "recovery.redeem", req.TenantID, map[string]interface{}{
			"request_id": req.ID,
		})
		return nil
	})
	if txErr != nil {
		var appErr *errors.AppError
		if errors.As(txErr, &appErr) {
			return nil, appErr
		}
		s.logger.Error().Err(txErr).Msg("recovery redemption failed")
		return nil, errors.Internal("failed to redeem recovery link")
	}

	return &RedeemResult{
		Email:   ownerEmail,
		Message: "Password updated. Sign in with your new password.",
	}, nil
}

// ValidateNewPassword enforces the minimum bar for an owner-chosen password.
func ValidateNewPassword(password string) error {
	if len(password) < 12 {
		return errors.Validation(map[string]string{
			"password": "must be at least 12 characters",
		})
	}
	if len(password) > 128 {
		return errors.Validation(map[string]string{
			"password": "must be at most 128 characters",
		})
	}
	return nil
}

func (s *RecoveryService) recoveryLink(token string) string {
	return fmt.Sprintf("%s/recover?token=%s", s.cfg.BaseURL, url.QueryEscape(token))
}

func (s *RecoveryService) audit(ctx context.Context, admin *domain.Employee, action, tenantID, outcome, severity string, details map[string]interface{}) {
	resourceType := "tenant"
	entry := &domain.AuditLog{
		ActorID:      &admin.AccountID,
		ActorEmail:   admin.Email,
		Action:       action,
		ResourceType: &resourceType,
		ResourceID:   &tenantID,
		Outcome:      outcome,
		Severity:     severity,
		Details:      details,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("failed to write audit entry")
	}
}

// auditSystem records an action with no administrative actor, such as an owner
// redeeming their own link.
func (s *RecoveryService) auditSystem(ctx context.Context, action, tenantID string, details map[string]interface{}) {
	resourceType := "tenant"
	entry := &domain.AuditLog{
		Action:       action,
		ResourceType: &resourceType,
		ResourceID:   &tenantID,
		Outcome:      domain.AuditOutcomeSuccess,
		Details:      details,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("failed to write audit entry")
	}
}

func getAccountEmailTx(ctx context.Context, tx *sqlx.Tx, accountID string) (string, error) {
	var email string
	if err := tx.GetContext(ctx, &email, `SELECT email FROM owner_accounts WHERE id = $1`, accountID); err != nil {
		return "", err
	}
	return email, nil
}
