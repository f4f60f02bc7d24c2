package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/blunari/blunari-backend/internal/provisioning/domain"
	"github.com/blunari/blunari-backend/internal/provisioning/service"
	"github.com/blunari/blunari-backend/pkg/errors"
	"github.com/blunari/blunari-backend/pkg/httputil"
	"github.com/blunari/blunari-backend/pkg/logger"
)

// Recovery actions accepted by the credentials endpoint.
const (
	ActionIssueRecovery  = "issue-recovery"
	ActionRevokeRecovery = "revoke-recovery"
)

// Handler handles HTTP requests for tenant provisioning and recovery
type Handler struct {
	guard        *service.Guard
	provisioning *service.ProvisioningService
	recovery     *service.RecoveryService
	directory    *service.DirectoryService
	log          *logger.Logger
}

// NewHandler creates a new provisioning handler
func NewHandler(
	guard *service.Guard,
	provisioning *service.ProvisioningService,
	recovery *service.RecoveryService,
	directory *service.DirectoryService,
	log *logger.Logger,
) *Handler {
	return &Handler{
		guard:        guard,
		provisioning: provisioning,
		recovery:     recovery,
		directory:    directory,
		log:          log,
	}
}

// Provision handles POST /provision
func (h *Handler) Provision(w http.ResponseWriter, r *http.Request) {
	// Authorization runs before the body is even parsed: an unauthorized
	// caller learns nothing about what a valid payload looks like.
	admin, err := h.guard.Authorize(r.Context(), httputil.GetAccountID(r.Context()), "tenant.provision")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	var req service.ProvisionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if req.Seed != nil {
		if err := httputil.Validate(req.Seed); err != nil {
			httputil.Error(w, r, err)
			return
		}
	}

	resp, err := h.provisioning.Provision(r.Context(), &req, admin)
	if err != nil {
		if replay, ok := service.AsReplay(err); ok {
			httputil.JSON(w, http.StatusOK, replay)
			return
		}
		httputil.Error(w, r, err)
		return
	}

	if resp.Replayed {
		httputil.JSON(w, http.StatusOK, resp)
		return
	}
	httputil.Created(w, resp)
}

type credentialsRequest struct {
	TenantID  string `json:"tenantId" validate:"omitempty,uuid"`
	Action    string `json:"action" validate:"required,oneof=issue-recovery revoke-recovery"`
	RequestID string `json:"requestId" validate:"omitempty,uuid"`
	Reason    string `json:"reason" validate:"omitempty,max=500"`
}

// Credentials handles POST /tenant-owner-credentials, the admin entry point
// for issuing and revoking owner recovery links.
func (h *Handler) Credentials(w http.ResponseWriter, r *http.Request) {
	admin, err := h.guard.Authorize(r.Context(), httputil.GetAccountID(r.Context()), "recovery.manage")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	var req credentialsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	switch req.Action {
	case ActionIssueRecovery:
		if req.TenantID == "" {
			httputil.Error(w, r, errors.Validation(map[string]string{
				"tenantId": "this field is required",
			}))
			return
		}
		result, err := h.recovery.Issue(r.Context(), req.TenantID, admin)
		if err != nil {
			httputil.Error(w, r, err)
			return
		}
		httputil.JSON(w, http.StatusOK, result)

	case ActionRevokeRecovery:
		if req.RequestID == "" {
			httputil.Error(w, r, errors.Validation(map[string]string{
				"requestId": "this field is required",
			}))
			return
		}
		result, err := h.recovery.Revoke(r.Context(), req.RequestID, req.Reason, admin)
		if err != nil {
			httputil.Error(w, r, err)
			return
		}
		httputil.JSON(w, http.StatusOK, result)

	default:
		httputil.Error(w, r, errors.Validation(map[string]string{
			"action": "must be one of: issue-recovery revoke-recovery",
		}))
	}
}

type redeemRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// Redeem handles POST /recover. This is the only unauthenticated endpoint:
// the owner following the link has no session yet. The token itself is the
// credential.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	result, err := h.recovery.Redeem(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// ListTenants handles GET /tenants
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	if _, err := h.guard.Authorize(r.Context(), httputil.GetAccountID(r.Context()), "tenant.view"); err != nil {
		httputil.Error(w, r, err)
		return
	}

	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 25)

	listings, total, err := h.directory.List(r.Context(), page, perPage)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	httputil.JSONWithMeta(w, http.StatusOK, listings, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// GetTenant handles GET /tenants/{id}
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	if _, err := h.guard.Authorize(r.Context(), httputil.GetAccountID(r.Context()), "tenant.view"); err != nil {
		httputil.Error(w, r, err)
		return
	}

	tenant, ap, err := h.directory.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"tenant":       tenant,
		"provisioning": ap,
	})
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=active suspended"`
}

// SetTenantStatus handles PUT /tenants/{id}/status
func (h *Handler) SetTenantStatus(w http.ResponseWriter, r *http.Request) {
	admin, err := h.guard.Authorize(r.Context(), httputil.GetAccountID(r.Context()), "tenant.status.change")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	var req statusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	tenant, err := h.directory.SetStatus(r.Context(), chi.URLParam(r, "id"), domain.TenantStatus(req.Status), admin)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, tenant)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
