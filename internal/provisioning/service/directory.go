package service

import (
	"context"

	"github.com/blunari/blunari-backend/internal/provisioning/domain"
	"github.com/blunari/blunari-backend/internal/provisioning/repository"
	"github.com/blunari/blunari-backend/pkg/errors"
	"github.com/blunari/blunari-backend/pkg/logger"
)

// DirectoryService serves the admin tenant directory.
type DirectoryService struct {
	tenantRepo *repository.TenantRepository
	auditRepo  *repository.AuditRepository
	logger     *logger.Logger
}

// NewDirectoryService creates a new directory service
func NewDirectoryService(tenantRepo *repository.TenantRepository, auditRepo *repository.AuditRepository, log *logger.Logger) *DirectoryService {
	return &DirectoryService{
		tenantRepo: tenantRepo,
		auditRepo:  auditRepo,
		logger:     log,
	}
}

// List returns a page of the tenant directory. Tenants with no provisioning
// record still appear, with the owner columns empty.
func (s *DirectoryService) List(ctx context.Context, page, perPage int) ([]*repository.TenantListing, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 25
	}

	listings, total, err := s.tenantRepo.List(ctx, page, perPage)
	if err != nil {
		s.logger.Error().Err(err).Msg("tenant directory query failed")
		return nil, 0, errors.Internal("failed to list tenants")
	}
	return listings, total, nil
}

// Get returns a single tenant with its provisioning record, when one exists.
func (s *DirectoryService) Get(ctx context.Context, id string) (*domain.Tenant, *domain.AutoProvisioning, error) {
	tenant, err := s.tenantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, errors.Internal("tenant lookup failed")
	}
	if tenant == nil {
		return nil, nil, errors.NotFound("tenant")
	}

	ap, err := s.tenantRepo.GetProvisioningByTenantID(ctx, id)
	if err != nil {
		return nil, nil, errors.Internal("provisioning lookup failed")
	}

	return tenant, ap, nil
}

// SetStatus suspends or reactivates a tenant and audits the change.
func (s *DirectoryService) SetStatus(ctx context.Context, id string, status domain.TenantStatus, admin *domain.Employee) (*domain.Tenant, error) {
	if !status.Valid() {
		return nil, errors.Validation(map[string]string{
			"status": "must be one of: active, suspended",
		})
	}

	tenant, err := s.tenantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Internal("tenant lookup failed")
	}
	if tenant == nil {
		return nil, errors.NotFound("tenant")
	}

	if tenant.Status != status {
		if err := s.tenantRepo.UpdateStatus(ctx, id, status); err != nil {
			s.logger.Error().Err(err).Str("tenant_id", id).Msg("tenant status update failed")
			return nil, errors.Internal("failed to update tenant status")
		}
		tenant.Status = status
	}

	resourceType := "tenant"
	entry := &domain.AuditLog{
		ActorID:      &admin.AccountID,
		ActorEmail:   admin.Email,
		Action:       "tenant.status.change",
		ResourceType: &resourceType,
		ResourceID:   &id,
		Outcome:      domain.AuditOutcomeSuccess,
		Details: map[string]interface{}{
			"status": string(status),
		},
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Error().Err(err).Msg("failed to write audit entry")
	}

	return tenant, nil
}
