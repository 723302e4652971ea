package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"clinicq/internal/locks/service"
	"clinicq/pkg/auth"
	"clinicq/pkg/config"
	httputil "clinicq/pkg/http"
	"clinicq/pkg/middleware"
)

// LockAdminHandler exposes an on-demand expiry sweep.
type LockAdminHandler struct {
	manager *service.LockManager
	gate    *middleware.RoleGate
	cfg     *config.Config
}

func NewLockAdminHandler(manager *service.LockManager, gate *middleware.RoleGate, cfg *config.Config) *LockAdminHandler {
	return &LockAdminHandler{
		manager: manager,
		gate:    gate,
		cfg:     cfg,
	}
}

func (h *LockAdminHandler) Sweep(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	result, err := h.manager.ExpireSweep(r.Context(), h.cfg.Clock().UTC())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.cfg.Log.Error("failed to write error response", "handler", "Sweep", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.cfg.Log.Error("failed to write success response", "handler", "Sweep", "operation", "WriteSuccess", "error", err)
	}
}

func (h *LockAdminHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/admin/locks/sweep", h.gate.Require(h.Sweep, auth.RoleAdmin))
}
