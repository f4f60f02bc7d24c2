package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blunari/blunari-backend/internal/auth/jwt"
	"github.com/blunari/blunari-backend/internal/auth/middleware"
	"github.com/blunari/blunari-backend/pkg/config"
	"github.com/blunari/blunari-backend/pkg/httputil"
)

func newManager() *jwt.Manager {
	return jwt.NewManager(&config.JWTConfig{
		Secret:       "test-secret",
		AccessExpiry: 15 * time.Minute,
		Issuer:       "blunari",
	})
}

func echoIdentity(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"account_id": httputil.GetAccountID(r.Context()),
		"email":      httputil.GetAccountEmail(r.Context()),
	})
}

func TestAuthenticate(t *testing.T) {
	manager := newManager()
	handler := middleware.Authenticate(manager)(http.HandlerFunc(echoIdentity))

	t.Run("valid bearer token passes identity through", func(t *testing.T) {
		token, _, err := manager.Generate("account-123", "admin@blunari.app", "Test Admin")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Data map[string]string `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "account-123", body.Data["account_id"])
		assert.Equal(t, "admin@blunari.app", body.Data["email"])
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
