package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blunari/blunari-backend/internal/provisioning/domain"
	"github.com/blunari/blunari-backend/internal/provisioning/repository"
	"github.com/blunari/blunari-backend/internal/provisioning/service"
	"github.com/blunari/blunari-backend/pkg/database"
	"github.com/blunari/blunari-backend/pkg/errors"
	"github.com/blunari/blunari-backend/pkg/logger"
	"github.com/blunari/blunari-backend/pkg/testutil"
)

func newGuard(t *testing.T) (*service.Guard, *testutil.MockDB) {
	mockDB := testutil.NewMockDB(t)
	log := logger.New("test", "test")
	db := database.FromSqlx(mockDB.DB, log)

	guard := service.NewGuard(
		repository.NewEmployeeRepository(db),
		repository.NewAuditRepository(db),
		log,
	)
	return guard, mockDB
}

func employeeRows(accountID string, role domain.EmployeeRole, status domain.EmployeeStatus) *sqlmock.Rows {
	return testutil.MockRows("id", "account_id", "email", "name", "role", "status", "created_at", "updated_at").
		AddRow(uuid.New().String(), accountID, "admin@blunari.app", "Test Admin", role, status, time.Now(), time.Now())
}

func expectAuditInsert(mockDB *testutil.MockDB) {
	mockDB.ExpectQuery("INSERT INTO audit_logs").
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))
}

func TestGuard_Authorize(t *testing.T) {
	ctx := context.Background()

	t.Run("allows active super admin", func(t *testing.T) {
		guard, mockDB := newGuard(t)
		defer mockDB.Close()

		accountID := uuid.New().String()
		mockDB.ExpectQuery("SELECT id, account_id, email, name, role, status, created_at, updated_at").
			WithArgs(accountID).
			WillReturnRows(employeeRows(accountID, domain.RoleSuperAdmin, domain.StatusActive))

		emp, err := guard.Authorize(ctx, accountID, "tenant.provision")
		require.NoError(t, err)
		require.NotNil(t, emp)
		assert.Equal(t, domain.RoleSuperAdmin, emp.Role)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("allows active admin", func(t *testing.T) {
		guard, mockDB := newGuard(t)
		defer mockDB.Close()

		accountID := uuid.New().String()
		mockDB.ExpectQuery("SELECT id, account_id, email, name, role, status, created_at, updated_at").
			WithArgs(accountID).
			WillReturnRows(employeeRows(accountID, domain.RoleAdmin, domain.StatusActive))

		_, err := guard.Authorize(ctx, accountID, "tenant.provision")
		require.NoError(t, err)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("denies caller without employee record and audits it", func(t *testing.T) {
		guard, mockDB := newGuard(t)
		defer mockDB.Close()

		accountID := uuid.New().String()
		mockDB.ExpectQuery("SELECT id, account_id, email, name, role, status, created_at, updated_at").
			WithArgs(accountID).
			WillReturnRows(testutil.MockRows("id", "account_id", "email", "name", "role", "status", "created_at", "updated_at"))
		expectAuditInsert(mockDB)

		emp, err := guard.Authorize(ctx, accountID, "tenant.provision")
		require.Error(t, err)
		assert.Nil(t, emp)

		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, errors.CodeForbidden, appErr.Code)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("denies non-elevated role", func(t *testing.T) {
		guard, mockDB := newGuard(t)
		defer mockDB.Close()

		accountID := uuid.New().String()
		mockDB.ExpectQuery("SELECT id, account_id, email, name, role, status, created_at, updated_at").
			WithArgs(accountID).
			WillReturnRows(employeeRows(accountID, domain.RoleViewer, domain.StatusActive))
		expectAuditInsert(mockDB)

		_, err := guard.Authorize(ctx, accountID, "tenant.provision")
		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, errors.CodeForbidden, appErr.Code)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("denies suspended admin", func(t *testing.T) {
		guard, mockDB := newGuard(t)
		defer mockDB.Close()

		accountID := uuid.New().String()
		mockDB.ExpectQuery("SELECT id, account_id, email, name, role, status, created_at, updated_at").
			WithArgs(accountID).
			WillReturnRows(employeeRows(accountID, domain.RoleAdmin, domain.StatusSuspended))
		expectAuditInsert(mockDB)

		_, err := guard.Authorize(ctx, accountID, "tenant.provision")
		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, errors.CodeForbidden, appErr.Code)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("surfaces lookup failure as internal error", func(t *testing.T) {
		guard, mockDB := newGuard(t)
		defer mockDB.Close()

		accountID := uuid.New().String()
		mockDB.ExpectQuery("SELECT id, account_id, email, name, role, status, created_at, updated_at").
			WithArgs(accountID).
			WillReturnError(assert.AnError)

		_, err := guard.Authorize(ctx, accountID, "tenant.provision")
		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, errors.CodeInternal, appErr.Code)
		mockDB.ExpectationsWereMet(t)
	})
}
