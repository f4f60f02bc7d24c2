package notifications

import (
	"context"
	"time"

	"github.com/blunari/blunari-backend/pkg/logger"
)

// WelcomeEmail is the message sent to a tenant owner after provisioning. It
// never contains the temporary password; that is shown to the admin once.
type WelcomeEmail struct {
	To         string
	TenantName string
	Slug       string
	LoginURL   string
	OwnerIsNew bool
}

// RecoveryNotice tells a tenant owner that a recovery link was issued or
// revoked on their account.
type RecoveryNotice struct {
	To        string
	Revoked   bool
	ExpiresAt time.Time
}

// Mailer delivers transactional email.
type Mailer interface {
	SendWelcome(ctx context.Context, email *WelcomeEmail) error
	SendRecoveryNotice(ctx context.Context, notice *RecoveryNotice) error
}

// LogMailer writes outgoing mail to the log instead of delivering it. Used in
// development and as the fallback when no provider is configured.
type LogMailer struct {
	logger *logger.Logger
}

// NewLogMailer creates a log-backed mailer
func NewLogMailer(log *logger.Logger) *LogMailer {
	return &LogMailer{logger: log}
}

// SendWelcome logs the welcome email.
func (m *LogMailer) SendWelcome(ctx context.Context, email *WelcomeEmail) error {
	m.logger.Info().
		Str("to", email.To).
		Str("tenant", email.TenantName).
		Str("login_url", email.LoginURL).
		Bool("owner_is_new", email.OwnerIsNew).
		Msg("welcome email")
	return nil
}

// SendRecoveryNotice logs the recovery notice.
func (m *LogMailer) SendRecoveryNotice(ctx context.Context, notice *RecoveryNotice) error {
	m.logger.Info().
		Str("to", notice.To).
		Bool("revoked", notice.Revoked).
		Msg("recovery notice email")
	return nil
}
