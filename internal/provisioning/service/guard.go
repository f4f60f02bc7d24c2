package service

import (
	"context"

	"github.com/blunari/blunari-backend/internal/provisioning/domain"
	"github.com/blunari/blunari-backend/internal/provisioning/repository"
	"github.com/blunari/blunari-backend/pkg/errors"
	"github.com/blunari/blunari-backend/pkg/logger"
)

// Guard gates privileged administrative operations on the employee table.
type Guard struct {
	employeeRepo *repository.EmployeeRepository
	auditRepo    *repository.AuditRepository
	logger       *logger.Logger
}

// NewGuard creates a new authorization guard
func NewGuard(employeeRepo *repository.EmployeeRepository, auditRepo *repository.AuditRepository, log *logger.Logger) *Guard {
	return &Guard{
		employeeRepo: employeeRepo,
		auditRepo:    auditRepo,
		logger:       log,
	}
}

// Authorize resolves the caller to an employee record and verifies they hold
// an elevated role with active status. Role and status comparisons go through
// the domain's closed enumerations; no string literals are compared here.
//
// A caller with no employee record at all is a deny, not an error. Every deny
// is audit-logged with the identity, the attempted action, and what was found.
func (g *Guard) Authorize(ctx context.Context, accountID, action string) (*domain.Employee, error) {
	emp, err := g.employeeRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		g.logger.Error().Err(err).Str("account_id", accountID).Msg("employee lookup failed")
		return nil, errors.Internal("authorization check failed")
	}

	if emp == nil {
		g.deny(ctx, accountID, "", action, map[string]interface{}{
			"reason": "no employee record",
		})
		return nil, errors.Forbidden()
	}

	if !emp.CanProvision() {
		g.deny(ctx, accountID, emp.Email, action, map[string]interface{}{
			"reason": "role or status not permitted",
			"role":   string(emp.Role),
			"status": string(emp.Status),
		})
		return nil, errors.Forbidden()
	}

	return emp, nil
}

func (g *Guard) deny(ctx context.Context, accountID, email, action string, details map[string]interface{}) {
	g.logger.Warn().
		Str("account_id", accountID).
		Str("action", action).
		Msg("privileged action denied")

	entry := &domain.AuditLog{
		ActorID:    &accountID,
		ActorEmail: email,
		Action:     action,
		Outcome:    domain.AuditOutcomeDenied,
		Severity:   domain.AuditSeverityWarning,
		Details:    details,
	}
	if err := g.auditRepo.Create(ctx, entry); err != nil {
		g.logger.Error().Err(err).Msg("failed to write audit entry for denied action")
	}
}
