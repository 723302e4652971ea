package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"clinicq/internal/bookings/service"
	"clinicq/pkg/auth"
	apperrors "clinicq/pkg/errors"
	httputil "clinicq/pkg/http"
	"clinicq/pkg/locale"
	"clinicq/pkg/logger"
	"clinicq/pkg/middleware"
	"clinicq/pkg/model"
)

type BookingHandler struct {
	service service.BookingService
	gate    *middleware.RoleGate
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, gate *middleware.RoleGate, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		gate:    gate,
		log:     log,
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) Lock(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.LockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Lock", apperrors.InvalidInput("Invalid request body"))
		return
	}
	if req.SessionID == "" {
		req.SessionID = r.Header.Get(middleware.SessionIDHeader)
	}

	grant, err := h.service.Lock(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Lock", err)
		return
	}

	if err := httputil.WriteCreated(w, grant); err != nil {
		h.log.Error("failed to write created response", "handler", "Lock", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) ReleaseLock(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.ReleaseLock(r.Context(), ps.ByName("lockId")); err != nil {
		h.writeError(w, "ReleaseLock", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Confirm", apperrors.InvalidInput("Invalid request body"))
		return
	}

	booking, err := h.service.ConfirmBooking(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Confirm", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	query := r.URL.Query()
	filter := model.BookingFilter{
		HospitalID: query.Get("hospitalId"),
		FromDate:   query.Get("fromDate"),
		Date:       query.Get("date"),
		Mode:       query.Get("mode"),
		Status:     query.Get("status"),
	}
	for _, day := range []string{filter.FromDate, filter.Date} {
		if day != "" && !locale.ValidDay(day) {
			h.writeError(w, "GetAll", apperrors.InvalidInput("dates must be in YYYY-MM-DD format"))
			return
		}
	}

	bookings, totalCount, err := h.service.ListUpcoming(r.Context(), filter, limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, totalCount, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) Analysis(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	from := r.URL.Query().Get("from")
	if from != "" && !locale.ValidDay(from) {
		h.writeError(w, "Analysis", apperrors.InvalidInput("from must be in YYYY-MM-DD format"))
		return
	}

	counts, err := h.service.Analysis(r.Context(), from)
	if err != nil {
		h.writeError(w, "Analysis", err)
		return
	}

	if err := httputil.WriteSuccess(w, counts); err != nil {
		h.log.Error("failed to write success response", "handler", "Analysis", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Today(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	bookings, err := h.service.Today(r.Context(), ps.ByName("hospitalId"), r.URL.Query().Get("mode"))
	if err != nil {
		h.writeError(w, "Today", err)
		return
	}

	if err := httputil.WriteSuccess(w, bookings); err != nil {
		h.log.Error("failed to write success response", "handler", "Today", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.Cancel(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/slots/lock", h.Lock)
	router.DELETE("/api/v1/slots/lock/:lockId", h.ReleaseLock)
	router.POST("/api/v1/confirm", h.Confirm)

	router.GET("/api/v1/admin/bookings", h.gate.Require(h.GetAll, auth.RoleAdmin))
	router.GET("/api/v1/admin/bookings/analysis", h.gate.Require(h.Analysis, auth.RoleAdmin))
	router.GET("/api/v1/admin/bookings/today/:hospitalId", h.gate.Require(h.Today, auth.RoleAdmin, auth.RoleReceptionist))
	router.GET("/api/v1/admin/bookings/id/:id", h.gate.Require(h.GetByID, auth.RoleAdmin))
	router.POST("/api/v1/admin/bookings/id/:id/cancel", h.gate.Require(h.Cancel, auth.RoleAdmin))
}
