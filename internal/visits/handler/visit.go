package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"clinicq/internal/visits/service"
	"clinicq/pkg/auth"
	apperrors "clinicq/pkg/errors"
	httputil "clinicq/pkg/http"
	"clinicq/pkg/logger"
	"clinicq/pkg/middleware"
	"clinicq/pkg/model"
)

type VisitHandler struct {
	service service.VisitService
	gate    *middleware.RoleGate
	log     *logger.Logger
}

func NewVisitHandler(service service.VisitService, gate *middleware.RoleGate, log *logger.Logger) *VisitHandler {
	return &VisitHandler{
		service: service,
		gate:    gate,
		log:     log,
	}
}

func (h *VisitHandler) CheckIn(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CheckIn", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	visit, err := h.service.CheckInAppointment(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CheckIn", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, visit); err != nil {
		h.log.Error("failed to write created response", "handler", "CheckIn", "operation", "WriteCreated", "error", err)
	}
}

func (h *VisitHandler) WalkIn(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.WalkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "WalkIn", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	visit, err := h.service.CheckInWalkIn(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "WalkIn", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, visit); err != nil {
		h.log.Error("failed to write created response", "handler", "WalkIn", "operation", "WriteCreated", "error", err)
	}
}

func (h *VisitHandler) Today(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Today", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	visits, totalCount, err := h.service.ListToday(r.Context(), ps.ByName("hospitalId"), limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Today", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, visits, totalCount, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "Today", "operation", "WritePaginated", "error", err)
	}
}

func (h *VisitHandler) SearchByToken(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	token, err := httputil.QueryInt(r, "token", 0)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "SearchByToken", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	visit, err := h.service.FindByToken(r.Context(), ps.ByName("hospitalId"), int64(token))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "SearchByToken", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, visit); err != nil {
		h.log.Error("failed to write success response", "handler", "SearchByToken", "operation", "WriteSuccess", "error", err)
	}
}

func (h *VisitHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/visits/check-in", h.gate.Require(h.CheckIn, auth.RoleReceptionist, auth.RoleAdmin))
	router.POST("/api/v1/visits/walk-in", h.gate.Require(h.WalkIn, auth.RoleReceptionist, auth.RoleAdmin))

	router.GET("/api/v1/visits/today/:hospitalId", h.gate.Require(h.Today, auth.RoleDoctor, auth.RoleAdmin))
	router.GET("/api/v1/visits/search/:hospitalId", h.gate.Require(h.SearchByToken, auth.RoleDoctor, auth.RolePharmacist, auth.RoleAdmin))
}
