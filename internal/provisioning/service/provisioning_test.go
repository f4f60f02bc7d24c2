package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blunari/blunari-backend/internal/provisioning/domain"
	"github.com/blunari/blunari-backend/internal/provisioning/repository"
	"github.com/blunari/blunari-backend/internal/provisioning/service"
	"github.com/blunari/blunari-backend/pkg/config"
	"github.com/blunari/blunari-backend/pkg/database"
	"github.com/blunari/blunari-backend/pkg/errors"
	"github.com/blunari/blunari-backend/pkg/logger"
	"github.com/blunari/blunari-backend/pkg/testutil"
)

func newProvisioningService(t *testing.T) (*service.ProvisioningService, *testutil.MockDB) {
	mockDB := testutil.NewMockDB(t)
	log := logger.New("test", "test")
	db := database.FromSqlx(mockDB.DB, log)

	cfg := &config.ProvisioningConfig{
		BaseDomain:     "blunari.app",
		RequestTimeout: 30 * time.Second,
	}

	svc := service.NewProvisioningService(
		db,
		repository.NewTenantRepository(db),
		repository.NewAccountRepository(db),
		repository.NewJobRepository(db),
		repository.NewAuditRepository(db),
		nil, // events are best-effort and not under test here
		cfg,
		log,
	)
	return svc, mockDB
}

func activeAdmin() *domain.Employee {
	return &domain.Employee{
		ID:        uuid.New().String(),
		AccountID: uuid.New().String(),
		Email:     "admin@blunari.app",
		Name:      "Test Admin",
		Role:      domain.RoleSuperAdmin,
		Status:    domain.StatusActive,
	}
}

func expectSlugFree(mockDB *testutil.MockDB) {
	mockDB.ExpectQuery("SELECT COUNT(*) FROM tenants WHERE slug = $1").
		WillReturnRows(testutil.MockRows("count").AddRow(0))
}

// expectProvisionTx sets up the full in-transaction statement sequence for a
// seedless provision where the owner account does not exist yet.
func expectProvisionTx(mockDB *testutil.MockDB, ownerEmail string) {
	mockDB.ExpectBegin()

	mockDB.ExpectQuery("INSERT INTO owner_accounts").
		WillReturnRows(testutil.MockRows("id", "email", "password_hash", "email_verified", "created_at", "last_login_at").
			AddRow(uuid.New().String(), ownerEmail, "$2a$10$hash", true, time.Now(), nil))

	mockDB.ExpectQuery("INSERT INTO tenants").
		WillReturnRows(testutil.MockRows("created_at", "updated_at").AddRow(time.Now(), time.Now()))

	mockDB.ExpectQuery("INSERT INTO auto_provisioning").
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))

	for i := 0; i < 7; i++ {
		mockDB.ExpectExec("INSERT INTO business_hours").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	mockDB.ExpectExec("INSERT INTO party_size_configs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	mockDB.ExpectExec("INSERT INTO profiles").
		WillReturnResult(sqlmock.NewResult(0, 1))

	mockDB.ExpectQuery("INSERT INTO background_jobs").
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))

	mockDB.ExpectCommit()
}

func TestProvisioningService_Provision(t *testing.T) {
	ctx := context.Background()

	t.Run("provisions tenant with new owner and returns credentials once", func(t *testing.T) {
		svc, mockDB := newProvisioningService(t)
		defer mockDB.Close()

		expectSlugFree(mockDB)
		expectProvisionTx(mockDB, "owner@example.com")
		expectAuditInsert(mockDB)

		resp, err := svc.Provision(ctx, &service.ProvisionRequest{
			Basics: service.TenantBasics{Name: "Joe's Pizza & Pasta"},
			Owner:  service.OwnerSpec{Email: "owner@example.com"},
		}, activeAdmin())
		require.NoError(t, err)

		assert.Equal(t, "joes-pizza-pasta", resp.Slug)
		assert.Equal(t, "https://joes-pizza-pasta.blunari.app", resp.PrimaryURL)
		assert.NotEmpty(t, resp.TenantID)

		require.NotNil(t, resp.OwnerCredentials)
		assert.Equal(t, "owner@example.com", resp.OwnerCredentials.Email)
		assert.Len(t, resp.OwnerCredentials.Password, 20)
		assert.True(t, resp.OwnerCredentials.TemporaryPassword)

		mockDB.ExpectationsWereMet(t)
	})

	t.Run("reuses existing owner account without returning credentials", func(t *testing.T) {
		svc, mockDB := newProvisioningService(t)
		defer mockDB.Close()

		expectSlugFree(mockDB)
		mockDB.ExpectBegin()

		// ON CONFLICT DO NOTHING returns no row, the repository re-reads.
		mockDB.ExpectQuery("INSERT INTO owner_accounts").
			WillReturnRows(testutil.MockRows("id", "email", "password_hash", "email_verified", "created_at", "last_login_at"))
		mockDB.ExpectQuery("SELECT id, email, password_hash, email_verified, created_at, last_login_at").
			WillReturnRows(testutil.MockRows("id", "email", "password_hash", "email_verified", "created_at", "last_login_at").
				AddRow(uuid.New().String(), "owner@example.com", "$2a$10$hash", true, time.Now(), nil))

		mockDB.ExpectQuery("INSERT INTO tenants").
			WillReturnRows(testutil.MockRows("created_at", "updated_at").AddRow(time.Now(), time.Now()))
		mockDB.ExpectQuery("INSERT INTO auto_provisioning").
			WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))
		for i := 0; i < 7; i++ {
			mockDB.ExpectExec("INSERT INTO business_hours").WillReturnResult(sqlmock.NewResult(0, 1))
		}
		mockDB.ExpectExec("INSERT INTO party_size_configs").WillReturnResult(sqlmock.NewResult(0, 1))
		mockDB.ExpectExec("INSERT INTO profiles").WillReturnResult(sqlmock.NewResult(0, 1))
		mockDB.ExpectQuery("INSERT INTO background_jobs").
			WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))
		mockDB.ExpectCommit()
		expectAuditInsert(mockDB)

		resp, err := svc.Provision(ctx, &service.ProvisionRequest{
			Basics: service.TenantBasics{Name: "Second Venue"},
			Owner:  service.OwnerSpec{Email: "owner@example.com"},
		}, activeAdmin())
		require.NoError(t, err)

		assert.Nil(t, resp.OwnerCredentials, "existing owner must never get new credentials")
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("rejects invalid derived slug before touching the database", func(t *testing.T) {
		svc, mockDB := newProvisioningService(t)
		defer mockDB.Close()

		_, err := svc.Provision(ctx, &service.ProvisionRequest{
			Basics: service.TenantBasics{Name: "ab"},
			Owner:  service.OwnerSpec{Email: "owner@example.com"},
		}, activeAdmin())

		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, errors.CodeValidation, appErr.Code)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("rejects reserved slug", func(t *testing.T) {
		svc, mockDB := newProvisioningService(t)
		defer mockDB.Close()

		_, err := svc.Provision(ctx, &service.ProvisionRequest{
			Basics: service.TenantBasics{Name: "Tavern", Slug: "admin"},
			Owner:  service.OwnerSpec{Email: "owner@example.com"},
		}, activeAdmin())

		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, errors.CodeValidation, appErr.Code)
		assert.Contains(t, appErr.Details["slug"], "reserved")
	})

	t.Run("returns duplicate slug from pre-check", func(t *testing.T) {
		svc, mockDB := newProvisioningService(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("SELECT COUNT(*) FROM tenants WHERE slug = $1").
			WillReturnRows(testutil.MockRows("count").AddRow(1))

		_, err := svc.Provision(ctx, &service.ProvisionRequest{
			Basics: service.TenantBasics{Name: "Joe's Pizza"},
			Owner:  service.OwnerSpec{Email: "owner@example.com"},
		}, activeAdmin())

		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, errors.CodeDuplicateSlug, appErr.Code)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("maps a lost slug race to duplicate slug and rolls back", func(t *testing.T) {
		svc, mockDB := newProvisioningService(t)
		defer mockDB.Close()

		expectSlugFree(mockDB)
		mockDB.ExpectBegin()
		mockDB.ExpectQuery("INSERT INTO owner_accounts").
			WillReturnRows(testutil.MockRows("id", "email", "password_hash", "email_verified", "created_at", "last_login_at").
				AddRow(uuid.New().String(), "owner@example.com", "$2a$10$hash", true, time.Now(), nil))
		mockDB.ExpectQuery("INSERT INTO tenants").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "tenants_slug_key"})
		mockDB.ExpectRollback()
		expectAuditInsert(mockDB)

		_, err := svc.Provision(ctx, &service.ProvisionRequest{
			Basics: service.TenantBasics{Name: "Joe's Pizza"},
			Owner:  service.OwnerSpec{Email: "owner@example.com"},
		}, activeAdmin())

		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, errors.CodeDuplicateSlug, appErr.Code)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("replays a completed idempotent request without creating anything", func(t *testing.T) {
		svc, mockDB := newProvisioningService(t)
		defer mockDB.Close()

		key := "retry-key-12345"
		tenantID := uuid.New().String()
		mockDB.ExpectQuery("SELECT id, tenant_id, admin_id, owner_account_id, owner_email, slug, idempotency_key, owner_created, created_at").
			WithArgs(key).
			WillReturnRows(testutil.MockRows("id", "tenant_id", "admin_id", "owner_account_id", "owner_email", "slug", "idempotency_key", "owner_created", "created_at").
				AddRow(uuid.New().String(), tenantID, uuid.New().String(), uuid.New().String(), "owner@example.com", "joes-pizza", key, true, time.Now()))

		resp, err := svc.Provision(ctx, &service.ProvisionRequest{
			Basics:         service.TenantBasics{Name: "Joe's Pizza"},
			Owner:          service.OwnerSpec{Email: "owner@example.com"},
			IdempotencyKey: &key,
		}, activeAdmin())
		require.NoError(t, err)

		assert.True(t, resp.Replayed)
		assert.Equal(t, tenantID, resp.TenantID)
		assert.Equal(t, "joes-pizza", resp.Slug)
		assert.Nil(t, resp.OwnerCredentials, "credentials are returned exactly once, never on replay")
		mockDB.ExpectationsWereMet(t)
	})
}
