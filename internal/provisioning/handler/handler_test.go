package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blunari/blunari-backend/internal/provisioning/handler"
	"github.com/blunari/blunari-backend/internal/provisioning/repository"
	"github.com/blunari/blunari-backend/internal/provisioning/service"
	"github.com/blunari/blunari-backend/pkg/config"
	"github.com/blunari/blunari-backend/pkg/database"
	"github.com/blunari/blunari-backend/pkg/httputil"
	"github.com/blunari/blunari-backend/pkg/logger"
	"github.com/blunari/blunari-backend/pkg/testutil"
)

func newTestHandler(t *testing.T) (*handler.Handler, *testutil.MockDB) {
	mockDB := testutil.NewMockDB(t)
	log := logger.New("test", "test")
	db := database.FromSqlx(mockDB.DB, log)

	tenantRepo := repository.NewTenantRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	jobRepo := repository.NewJobRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	recoveryRepo := repository.NewRecoveryRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)

	guard := service.NewGuard(employeeRepo, auditRepo, log)
	provisioning := service.NewProvisioningService(db, tenantRepo, accountRepo, jobRepo, auditRepo, nil,
		&config.ProvisioningConfig{BaseDomain: "blunari.app"}, log)
	recovery := service.NewRecoveryService(db, tenantRepo, accountRepo, recoveryRepo, auditRepo, nil,
		&config.RecoveryConfig{
			BaseURL:         "https://admin.blunari.app",
			LinkTTL:         5 * time.Minute,
			RateLimitWindow: time.Hour,
			MaxPerTenant:    5,
			MaxPerAdmin:     20,
		}, log)
	directory := service.NewDirectoryService(tenantRepo, auditRepo, log)

	return handler.NewHandler(guard, provisioning, recovery, directory, log), mockDB
}

func adminRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	ctx := httputil.WithAccountContext(req.Context(), "account-123", "admin@blunari.app")
	return req.WithContext(ctx)
}

func expectActiveAdmin(mockDB *testutil.MockDB) {
	rows := sqlmock.NewRows([]string{"id", "account_id", "email", "name", "role", "status", "created_at", "updated_at"}).
		AddRow(uuid.New().String(), "account-123", "admin@blunari.app", "Test Admin", "SUPER_ADMIN", "ACTIVE", time.Now(), time.Now())
	mockDB.ExpectQuery("FROM employees").WillReturnRows(rows)
}

func expectUnknownCaller(mockDB *testutil.MockDB) {
	mockDB.ExpectQuery("FROM employees").
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "email", "name", "role", "status", "created_at", "updated_at"}))
	mockDB.ExpectQuery("INSERT INTO audit_logs").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	var resp httputil.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestProvision_AuthorizationBeforeBody(t *testing.T) {
	h, mockDB := newTestHandler(t)
	defer mockDB.Close()

	// The body is deliberately garbage. An unauthorized caller must see a 403
	// from the guard, never a parse error that hints at the payload shape.
	expectUnknownCaller(mockDB)
	req := adminRequest(http.MethodPost, "/provision", "{not json")
	rec := httptest.NewRecorder()

	h.Provision(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "FORBIDDEN", resp.Error.Code)
	mockDB.ExpectationsWereMet(t)
}

func TestProvision_InvalidPayload(t *testing.T) {
	h, mockDB := newTestHandler(t)
	defer mockDB.Close()

	expectActiveAdmin(mockDB)
	req := adminRequest(http.MethodPost, "/provision", `{"basics": {"timezone": "UTC"}, "owner": {}}`)
	rec := httptest.NewRecorder()

	h.Provision(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	mockDB.ExpectationsWereMet(t)
}

func TestCredentials_ActionDispatch(t *testing.T) {
	t.Run("unknown action fails validation", func(t *testing.T) {
		h, mockDB := newTestHandler(t)
		defer mockDB.Close()

		expectActiveAdmin(mockDB)
		req := adminRequest(http.MethodPost, "/tenant-owner-credentials", `{"action": "rotate-keys"}`)
		rec := httptest.NewRecorder()

		h.Credentials(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("issue without tenantId is rejected", func(t *testing.T) {
		h, mockDB := newTestHandler(t)
		defer mockDB.Close()

		expectActiveAdmin(mockDB)
		req := adminRequest(http.MethodPost, "/tenant-owner-credentials", `{"action": "issue-recovery"}`)
		rec := httptest.NewRecorder()

		h.Credentials(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeEnvelope(t, rec)
		require.NotNil(t, resp.Error)
		assert.Contains(t, resp.Error.Details, "tenantId")
	})

	t.Run("revoke without requestId is rejected", func(t *testing.T) {
		h, mockDB := newTestHandler(t)
		defer mockDB.Close()

		expectActiveAdmin(mockDB)
		req := adminRequest(http.MethodPost, "/tenant-owner-credentials", `{"action": "revoke-recovery"}`)
		rec := httptest.NewRecorder()

		h.Credentials(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeEnvelope(t, rec)
		require.NotNil(t, resp.Error)
		assert.Contains(t, resp.Error.Details, "requestId")
	})

	t.Run("non-uuid tenantId fails validation", func(t *testing.T) {
		h, mockDB := newTestHandler(t)
		defer mockDB.Close()

		expectActiveAdmin(mockDB)
		req := adminRequest(http.MethodPost, "/tenant-owner-credentials",
			`{"action": "issue-recovery", "tenantId": "not-a-uuid"}`)
		rec := httptest.NewRecorder()

		h.Credentials(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRedeem(t *testing.T) {
	t.Run("requires token and password", func(t *testing.T) {
		h, mockDB := newTestHandler(t)
		defer mockDB.Close()

		// No auth context on purpose: redemption is public.
		req := httptest.NewRequest(http.MethodPost, "/recover", strings.NewReader(`{"token": "abc"}`))
		rec := httptest.NewRecorder()

		h.Redeem(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("short password never touches the database", func(t *testing.T) {
		h, mockDB := newTestHandler(t)
		defer mockDB.Close()

		req := httptest.NewRequest(http.MethodPost, "/recover",
			strings.NewReader(`{"token": "abc", "newPassword": "short"}`))
		rec := httptest.NewRecorder()

		h.Redeem(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockDB.ExpectationsWereMet(t)
	})
}

func TestListTenants(t *testing.T) {
	h, mockDB := newTestHandler(t)
	defer mockDB.Close()

	expectActiveAdmin(mockDB)
	mockDB.ExpectQuery("SELECT COUNT(*) FROM tenants").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))

	ownerEmail := "owner@example.com"
	listingRows := sqlmock.NewRows([]string{
		"id", "name", "slug", "timezone", "currency", "status",
		"contact_email", "contact_phone", "website", "created_at", "updated_at",
		"owner_email", "admin_id",
	}).AddRow(
		uuid.New().String(), "Joe's Pizza", "joes-pizza", "UTC", "USD", "active",
		ownerEmail, nil, nil, time.Now(), time.Now(),
		ownerEmail, uuid.New().String(),
	)
	mockDB.ExpectQuery("LEFT JOIN auto_provisioning").WillReturnRows(listingRows)

	req := adminRequest(http.MethodGet, "/tenants?page=1&per_page=10", "")
	rec := httptest.NewRecorder()

	h.ListTenants(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(1), resp.Meta.Total)
	assert.Equal(t, 10, resp.Meta.PerPage)
	assert.Equal(t, 1, resp.Meta.TotalPages)
	mockDB.ExpectationsWereMet(t)
}

func TestSetTenantStatus_InvalidStatus(t *testing.T) {
	h, mockDB := newTestHandler(t)
	defer mockDB.Close()

	expectActiveAdmin(mockDB)

	router := chi.NewRouter()
	router.Put("/tenants/{id}/status", h.SetTenantStatus)

	req := adminRequest(http.MethodPut, "/tenants/"+uuid.New().String()+"/status", `{"status": "deleted"}`)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTenant_NotFound(t *testing.T) {
	h, mockDB := newTestHandler(t)
	defer mockDB.Close()

	expectActiveAdmin(mockDB)
	mockDB.ExpectQuery("FROM tenants").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	router := chi.NewRouter()
	router.Get("/tenants/{id}", h.GetTenant)

	req := adminRequest(http.MethodGet, "/tenants/"+uuid.New().String(), "")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// Exercises the whole redemption path through the handler with an expired
// token so the public endpoint's error mapping is covered end to end.
func TestRedeem_ExpiredToken(t *testing.T) {
	h, mockDB := newTestHandler(t)
	defer mockDB.Close()

	requestID := uuid.New().String()
	tenantID := uuid.New().String()
	accountID := uuid.New().String()
	issuedBy := uuid.New().String()

	mockDB.ExpectBegin()
	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "owner_account_id", "token_hash", "expires_at", "issued_by",
		"created_at", "revoked_at", "revoked_by", "revoke_reason", "redeemed_at",
	}).AddRow(
		requestID, tenantID, accountID, strings.Repeat("a", 64), time.Now().Add(-time.Hour), issuedBy,
		time.Now().Add(-2*time.Hour), nil, nil, nil, nil,
	)
	mockDB.ExpectQuery("FOR UPDATE").WillReturnRows(rows)
	mockDB.ExpectRollback()

	body := `{"token": "` + strings.Repeat("x", 43) + `", "newPassword": "a-long-enough-password"}`
	req := httptest.NewRequest(http.MethodPost, "/recover", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Redeem(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "expired")
	mockDB.ExpectationsWereMet(t)
}
