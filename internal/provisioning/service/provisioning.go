package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

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

// ProvisioningService creates tenants and everything they need to function.
type ProvisioningService struct {
	db          *database.DB
	tenantRepo  *repository.TenantRepository
	accountRepo *repository.AccountRepository
	jobRepo     *repository.JobRepository
	auditRepo   *repository.AuditRepository
	publisher   *events.TenantEventPublisher
	cfg         *config.ProvisioningConfig
	logger      *logger.Logger
}

// NewProvisioningService creates a new provisioning service
func NewProvisioningService(
	db *database.DB,
	tenantRepo *repository.TenantRepository,
	accountRepo *repository.AccountRepository,
	jobRepo *repository.JobRepository,
	auditRepo *repository.AuditRepository,
	publisher *events.TenantEventPublisher,
	cfg *config.ProvisioningConfig,
	log *logger.Logger,
) *ProvisioningService {
	return &ProvisioningService{
		db:          db,
		tenantRepo:  tenantRepo,
		accountRepo: accountRepo,
		jobRepo:     jobRepo,
		auditRepo:   auditRepo,
		publisher:   publisher,
		cfg:         cfg,
		logger:      log,
	}
}

// TenantBasics carries the tenant attributes collected by the admin wizard.
type TenantBasics struct {
	Name         string  `json:"name" validate:"required,min=2,max=120"`
	Slug         string  `json:"slug" validate:"omitempty,max=50"`
	Timezone     string  `json:"timezone" validate:"omitempty,timezone"`
	Currency     string  `json:"currency" validate:"omitempty,len=3"`
	ContactEmail *string `json:"contactEmail" validate:"omitempty,email"`
	ContactPhone *string `json:"contactPhone" validate:"omitempty,max=32"`
	Website      *string `json:"website" validate:"omitempty,url"`
}

// OwnerSpec identifies the tenant's designated owner. The owner's login
// email is a distinct field from the tenant's business contact email.
type OwnerSpec struct {
	Email string `json:"email" validate:"required,email"`
}

// ProvisionRequest is the body of POST /provision.
type ProvisionRequest struct {
	Basics         TenantBasics       `json:"basics" validate:"required"`
	Owner          OwnerSpec          `json:"owner" validate:"required"`
	Seed           *domain.SeedConfig `json:"seed,omitempty"`
	IdempotencyKey *string            `json:"idempotencyKey,omitempty" validate:"omitempty,min=8,max=128"`
}

// OwnerCredentials are returned exactly once, when a new owner account was
// created during provisioning. They are never retrievable afterwards.
type OwnerCredentials struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	TemporaryPassword bool   `json:"temporaryPassword"`
}

// ProvisionResponse is the success body of POST /provision.
type ProvisionResponse struct {
	TenantID         string            `json:"tenantId"`
	Slug             string            `json:"slug"`
	PrimaryURL       string            `json:"primaryUrl"`
	OwnerCredentials *OwnerCredentials `json:"ownerCredentials,omitempty"`

	// Replayed marks an idempotent replay so the handler can answer 200
	// instead of 201. Not part of the response body.
	Replayed bool `json:"-"`
}

// Provision atomically creates a tenant with its provisioning record, default
// configuration, owner account, and owner profile. Everything inside the
// transaction commits together or not at all.
func (s *ProvisioningService) Provision(ctx context.Context, req *ProvisionRequest, admin *domain.Employee) (*ProvisionResponse, error) {
	slug := strings.TrimSpace(strings.ToLower(req.Basics.Slug))
	if slug == "" {
		slug = DeriveSlug(req.Basics.Name)
	}
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}

	// Replay of a completed request: return the original result, create
	// nothing. The unique constraint on the key column covers the race where
	// two retries arrive before either commits.
	if req.IdempotencyKey != nil {
		prior, err := s.tenantRepo.GetByIdempotencyKey(ctx, *req.IdempotencyKey)
		if err != nil {
			return nil, errors.Internal("idempotency lookup failed")
		}
		if prior != nil {
			return s.replayResponse(prior), nil
		}
	}

	// Friendly pre-check against the tenants table itself. The unique
	// constraint remains the authoritative check under concurrency.
	exists, err := s.tenantRepo.SlugExists(ctx, slug)
	if err != nil {
		return nil, errors.Internal("slug lookup failed")
	}
	if exists {
		return nil, errors.DuplicateSlug(slug)
	}

	password, err := GeneratePassword()
	if err != nil {
		return nil, errors.Internal("failed to generate credentials")
	}
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Internal("failed to generate credentials")
	}

	tenant := &domain.Tenant{
		Name:         req.Basics.Name,
		Slug:         slug,
		Timezone:     defaultString(req.Basics.Timezone, "UTC"),
		Currency:     defaultString(req.Basics.Currency, "USD"),
		Status:       domain.TenantActive,
		ContactPhone: req.Basics.ContactPhone,
		Website:      req.Basics.Website,
	}
	// The business contact email defaults to the owner's login email but
	// remains its own field; the two may diverge later.
	if req.Basics.ContactEmail != nil {
		tenant.ContactEmail = req.Basics.ContactEmail
	} else {
		contact := req.Owner.Email
		tenant.ContactEmail = &contact
	}

	var (
		ownerCreated bool
		ownerAccount *domain.OwnerAccount
		job          *domain.BackgroundJob
	)

	txErr := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		acct, created, err := s.accountRepo.CreateTx(ctx, tx, req.Owner.Email, string(passwordHash))
		if err != nil {
			return err
		}
		ownerAccount = acct
		ownerCreated = created

		if err := s.tenantRepo.InsertTx(ctx, tx, tenant); err != nil {
			return err
		}

		ap := &domain.AutoProvisioning{
			TenantID:       tenant.ID,
			AdminID:        admin.ID,
			OwnerAccountID: acct.ID,
			OwnerEmail:     acct.Email,
			Slug:           slug,
			IdempotencyKey: req.IdempotencyKey,
			OwnerCreated:   created,
		}
		if err := s.tenantRepo.InsertAutoProvisioningTx(ctx, tx, ap); err != nil {
			return err
		}

		if err := s.tenantRepo.InsertBusinessHoursTx(ctx, tx, domain.DefaultBusinessHours(tenant.ID)); err != nil {
			return err
		}

		partySize := domain.DefaultPartySizeConfig(tenant.ID)
		if req.Seed != nil && req.Seed.MaxPartySize > 0 {
			partySize.MinSize = maxInt(req.Seed.MinPartySize, 1)
			partySize.MaxSize = req.Seed.MaxPartySize
			partySize.DefaultSize = maxInt(req.Seed.DefaultPartySize, partySize.MinSize)
		}
		if err := s.tenantRepo.InsertPartySizeConfigTx(ctx, tx, &partySize); err != nil {
			return err
		}

		if req.Seed != nil && req.Seed.TableCount > 0 {
			tables := seedTables(tenant.ID, req.Seed)
			if err := s.tenantRepo.InsertTablesTx(ctx, tx, tables); err != nil {
				return err
			}
		}

		profile := &domain.Profile{
			AccountID:   acct.ID,
			Email:       acct.Email,
			DisplayName: displayNameFromEmail(acct.Email),
			Role:        domain.ProfileOwner,
		}
		if err := s.accountRepo.UpsertProfileTx(ctx, tx, profile); err != nil {
			return err
		}

		payload, _ := json.Marshal(messaging.TenantProvisionedEvent{
			TenantID:   tenant.ID,
			Slug:       slug,
			Name:       tenant.Name,
			OwnerEmail: acct.Email,
			OwnerIsNew: created,
		})
		job = &domain.BackgroundJob{
			Kind:     domain.JobWelcomeEmail,
			TenantID: &tenant.ID,
			Payload:  payload,
		}
		return s.jobRepo.EnqueueTx(ctx, tx, job)
	})

	if txErr != nil {
		return nil, s.provisionFailed(ctx, req, admin, slug, txErr)
	}

	s.audit(ctx, admin, "tenant.provision", "tenant", tenant.ID, domain.AuditOutcomeSuccess, map[string]interface{}{
		"slug":          slug,
		"owner_email":   ownerAccount.Email,
		"owner_created": ownerCreated,
	})

	if s.publisher != nil {
		s.publisher.TenantProvisioned(ctx, &messaging.TenantProvisionedEvent{
			TenantID:      tenant.ID,
			Slug:          slug,
			Name:          tenant.Name,
			OwnerEmail:    ownerAccount.Email,
			OwnerIsNew:    ownerCreated,
			ProvisionedBy: admin.ID,
			JobID:         job.ID,
		})
	}

	s.logger.Info().
		Str("tenant_id", tenant.ID).
		Str("slug", slug).
		Bool("owner_created", ownerCreated).
		Msg("tenant provisioned")

	resp := &ProvisionResponse{
		TenantID:   tenant.ID,
		Slug:       slug,
		PrimaryURL: s.primaryURL(slug),
	}
	if ownerCreated {
		resp.OwnerCredentials = &OwnerCredentials{
			Email:             ownerAccount.Email,
			Password:          password,
			TemporaryPassword: true,
		}
	}
	return resp, nil
}

// provisionFailed classifies a transaction error, writes the audit entry, and
// returns the client-facing error. The rollback already happened.
func (s *ProvisioningService) provisionFailed(ctx context.Context, req *ProvisionRequest, admin *domain.Employee, slug string, txErr error) error {
	// A concurrent retry with the same idempotency key won the insert race;
	// the caller gets the winner's result instead of a conflict.
	if req.IdempotencyKey != nil && database.IsUniqueViolation(txErr, database.ConstraintIdempotencyKey) {
		prior, err := s.tenantRepo.GetByIdempotencyKey(ctx, *req.IdempotencyKey)
		if err == nil && prior != nil {
			return &replayError{response: s.replayResponse(prior)}
		}
	}

	s.audit(ctx, admin, "tenant.provision", "tenant", "", domain.AuditOutcomeFailed, map[string]interface{}{
		"slug": slug,
	})

	if appErr := database.MapPQError(txErr); appErr != nil {
		return appErr
	}

	var appErr *errors.AppError
	if errors.As(txErr, &appErr) {
		return appErr
	}

	s.logger.Error().Err(txErr).Str("slug", slug).Msg("provisioning transaction failed")
	return errors.Internal("provisioning failed")
}

// replayError smuggles an idempotent replay result out of the error path.
// Handlers unwrap it via AsReplay.
type replayError struct {
	response *ProvisionResponse
}

func (e *replayError) Error() string { return "idempotent replay" }

// AsReplay returns the replay response carried by err, if any.
func AsReplay(err error) (*ProvisionResponse, bool) {
	var re *replayError
	if errors.As(err, &re) {
		return re.response, true
	}
	return nil, false
}

func (s *ProvisioningService) replayResponse(prior *domain.AutoProvisioning) *ProvisionResponse {
	// Credentials are never part of a replay: they were returned exactly
	// once, in the response of the call that created the account.
	return &ProvisionResponse{
		TenantID:   prior.TenantID,
		Slug:       prior.Slug,
		PrimaryURL: s.primaryURL(prior.Slug),
		Replayed:   true,
	}
}

func (s *ProvisioningService) primaryURL(slug string) string {
	return fmt.Sprintf("https://%s.%s", slug, s.cfg.BaseDomain)
}

func (s *ProvisioningService) audit(ctx context.Context, admin *domain.Employee, action, resourceType, resourceID, outcome string, details map[string]interface{}) {
	entry := &domain.AuditLog{
		ActorID:    &admin.AccountID,
		ActorEmail: admin.Email,
		Action:     action,
		Outcome:    outcome,
		Details:    details,
	}
	if resourceType != "" {
		entry.ResourceType = &resourceType
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("failed to write audit entry")
	}
}

func seedTables(tenantID string, seed *domain.SeedConfig) []domain.RestaurantTable {
	capacity := seed.TableCapacity
	if capacity <= 0 {
		capacity = 4
	}
	tables := make([]domain.RestaurantTable, 0, seed.TableCount)
	for i := 1; i <= seed.TableCount; i++ {
		tables = append(tables, domain.RestaurantTable{
			TenantID: tenantID,
			Name:     fmt.Sprintf("Table %d", i),
			Capacity: capacity,
		})
	}
	return tables
}

func displayNameFromEmail(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

func defaultString(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
