package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"clinicq/internal/slots/repository"
	"clinicq/internal/slots/service"
	"clinicq/pkg/auth"
	apperrors "clinicq/pkg/errors"
	httputil "clinicq/pkg/http"
	"clinicq/pkg/logger"
	"clinicq/pkg/middleware"
	"clinicq/pkg/model"
)

type SlotHandler struct {
	service service.SlotService
	gate    *middleware.RoleGate
	log     *logger.Logger
}

func NewSlotHandler(service service.SlotService, gate *middleware.RoleGate, log *logger.Logger) *SlotHandler {
	return &SlotHandler{
		service: service,
		gate:    gate,
		log:     log,
	}
}

// Route dispatches GET /slots/{hospitalId} and GET /slots/window/{hospitalId}.
// httprouter cannot mount a static segment beside a wildcard, so both hang off
// one catch-all.
func (h *SlotHandler) Route(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	parts := strings.Split(strings.Trim(ps.ByName("path"), "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		h.List(w, r, httprouter.Params{{Key: "hospitalId", Value: parts[0]}})
	case len(parts) == 2 && parts[0] == "window" && parts[1] != "":
		h.Window(w, r, httprouter.Params{{Key: "hospitalId", Value: parts[1]}})
	default:
		if writeErr := httputil.WriteError(w, apperrors.NotFound("Route")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Route", "operation", "WriteError", "error", writeErr)
		}
	}
}

func (h *SlotHandler) List(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	views, err := h.service.ListViews(r.Context(), ps.ByName("hospitalId"), r.URL.Query().Get("date"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "List", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, views); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotHandler) Window(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	days, err := httputil.QueryInt(r, "days", 0)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Window", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	window, err := h.service.Window(r.Context(), ps.ByName("hospitalId"), r.URL.Query().Get("from"), days)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Window", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, window); err != nil {
		h.log.Error("failed to write success response", "handler", "Window", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotHandler) Generate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.SlotGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Generate", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	result, err := h.service.Generate(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Generate", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, result); err != nil {
		h.log.Error("failed to write created response", "handler", "Generate", "operation", "WriteCreated", "error", err)
	}
}

func (h *SlotHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	query := r.URL.Query()
	filter := repository.SlotFilter{
		HospitalID: query.Get("hospitalId"),
		Date:       query.Get("date"),
	}

	slots, totalCount, err := h.service.GetAll(r.Context(), filter, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, slots, totalCount, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *SlotHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Delete", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *SlotHandler) DeleteByDate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	deleted, err := h.service.DeleteByDate(r.Context(), ps.ByName("hospitalId"), ps.ByName("date"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "DeleteByDate", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, map[string]int64{"deleted": deleted}); err != nil {
		h.log.Error("failed to write success response", "handler", "DeleteByDate", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/slots/*path", h.Route)

	router.POST("/api/v1/admin/slots/generate", h.gate.Require(h.Generate, auth.RoleAdmin))
	router.GET("/api/v1/admin/slots", h.gate.Require(h.GetAll, auth.RoleAdmin))
	router.DELETE("/api/v1/admin/slots/:id", h.gate.Require(h.Delete, auth.RoleAdmin))
	router.DELETE("/api/v1/admin/slots-by-date/:hospitalId/:date", h.gate.Require(h.DeleteByDate, auth.RoleAdmin))
}
