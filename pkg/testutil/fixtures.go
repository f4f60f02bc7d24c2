package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/blunari/blunari-backend/internal/provisioning/domain"
)

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Employee creates an active SUPER_ADMIN employee fixture
func (f *FixtureFactory) Employee(opts ...func(*domain.Employee)) *domain.Employee {
	seq := f.nextSeq()

	emp := &domain.Employee{
		ID:        uuid.New().String(),
		AccountID: uuid.New().String(),
		Email:     fmt.Sprintf("admin%d@blunari.app", seq),
		Name:      fmt.Sprintf("Admin %d", seq),
		Role:      domain.RoleSuperAdmin,
		Status:    domain.StatusActive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(emp)
	}
	return emp
}

// WithRole sets the employee role
func WithRole(role domain.EmployeeRole) func(*domain.Employee) {
	return func(e *domain.Employee) {
		e.Role = role
	}
}

// WithStatus sets the employee status
func WithStatus(status domain.EmployeeStatus) func(*domain.Employee) {
	return func(e *domain.Employee) {
		e.Status = status
	}
}

// Tenant creates a tenant fixture
func (f *FixtureFactory) Tenant(opts ...func(*domain.Tenant)) *domain.Tenant {
	seq := f.nextSeq()
	contact := fmt.Sprintf("owner%d@example.com", seq)

	tenant := &domain.Tenant{
		ID:           uuid.New().String(),
		Name:         fmt.Sprintf("Test Restaurant %d", seq),
		Slug:         fmt.Sprintf("test-restaurant-%d", seq),
		Timezone:     "UTC",
		Currency:     "USD",
		Status:       domain.TenantActive,
		ContactEmail: &contact,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	for _, opt := range opts {
		opt(tenant)
	}
	return tenant
}

// WithSlug sets the tenant slug
func WithSlug(slug string) func(*domain.Tenant) {
	return func(t *domain.Tenant) {
		t.Slug = slug
	}
}

// OwnerAccount creates an owner account fixture with a bcrypt password hash
func (f *FixtureFactory) OwnerAccount(opts ...func(*domain.OwnerAccount)) *domain.OwnerAccount {
	seq := f.nextSeq()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123!"), bcrypt.MinCost)

	acct := &domain.OwnerAccount{
		ID:            uuid.New().String(),
		Email:         fmt.Sprintf("owner%d@example.com", seq),
		PasswordHash:  string(hash),
		EmailVerified: true,
		CreatedAt:     time.Now(),
	}

	for _, opt := range opts {
		opt(acct)
	}
	return acct
}

// RecoveryRequest creates a redeemable recovery request fixture
func (f *FixtureFactory) RecoveryRequest(tenantID, ownerAccountID string, opts ...func(*domain.RecoveryRequest)) *domain.RecoveryRequest {
	req := &domain.RecoveryRequest{
		ID:             uuid.New().String(),
		TenantID:       tenantID,
		OwnerAccountID: ownerAccountID,
		TokenHash:      fmt.Sprintf("%064d", f.nextSeq()),
		ExpiresAt:      time.Now().Add(5 * time.Minute),
		IssuedBy:       uuid.New().String(),
		CreatedAt:      time.Now(),
	}

	for _, opt := range opts {
		opt(req)
	}
	return req
}

// Expired marks a recovery request fixture as already expired
func Expired() func(*domain.RecoveryRequest) {
	return func(r *domain.RecoveryRequest) {
		r.ExpiresAt = time.Now().Add(-time.Minute)
	}
}

// Revoked marks a recovery request fixture as revoked
func Revoked() func(*domain.RecoveryRequest) {
	return func(r *domain.RecoveryRequest) {
		now := time.Now()
		by := uuid.New().String()
		reason := "test revocation"
		r.RevokedAt = &now
		r.RevokedBy = &by
		r.RevokeReason = &reason
	}
}
