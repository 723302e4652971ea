package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"clinicq/pkg/auth"
	apperrors "clinicq/pkg/errors"
	"clinicq/pkg/logger"
	"clinicq/pkg/middleware"
	"clinicq/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const testSecret = "test-secret"

type mockBookingService struct {
	lockFunc         func(ctx context.Context, req *model.LockRequest) (*model.LockGrant, error)
	confirmFunc      func(ctx context.Context, req *model.ConfirmRequest) (*model.Booking, error)
	listUpcomingFunc func(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)
	todayFunc        func(ctx context.Context, hospitalID, mode string) ([]*model.Booking, error)
}

func (m *mockBookingService) ListSlots(ctx context.Context, hospitalID, date string) ([]model.SlotView, error) {
	return []model.SlotView{}, nil
}

func (m *mockBookingService) Lock(ctx context.Context, req *model.LockRequest) (*model.LockGrant, error) {
	return m.lockFunc(ctx, req)
}

func (m *mockBookingService) ReleaseLock(ctx context.Context, lockID string) error {
	return nil
}

func (m *mockBookingService) ConfirmBooking(ctx context.Context, req *model.ConfirmRequest) (*model.Booking, error) {
	return m.confirmFunc(ctx, req)
}

func (m *mockBookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	return nil, apperrors.NotFoundWithID("Booking", id)
}

func (m *mockBookingService) GetByLockID(ctx context.Context, lockID string) (*model.Booking, error) {
	return nil, apperrors.NotFound("Booking")
}

func (m *mockBookingService) ListUpcoming(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	if m.listUpcomingFunc != nil {
		return m.listUpcomingFunc(ctx, filter, limit, offset)
	}
	return []*model.Booking{}, 0, nil
}

func (m *mockBookingService) Today(ctx context.Context, hospitalID, mode string) ([]*model.Booking, error) {
	if m.todayFunc != nil {
		return m.todayFunc(ctx, hospitalID, mode)
	}
	return []*model.Booking{}, nil
}

func (m *mockBookingService) Analysis(ctx context.Context, fromDate string) ([]model.BookingCount, error) {
	return []model.BookingCount{}, nil
}

func (m *mockBookingService) Cancel(ctx context.Context, id string) (*model.Booking, error) {
	return nil, nil
}

func newRouter(svc *mockBookingService) *httprouter.Router {
	log := logger.New(logger.Config{
		Level:     "info",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
	gate := middleware.NewRoleGate(auth.NewJWTAuthorizer(testSecret, "clinicq"), log)

	router := httprouter.New()
	NewBookingHandler(svc, gate, log).RegisterRoutes(router)
	return router
}

func bearer(t *testing.T, roles ...string) string {
	t.Helper()
	token, err := auth.NewJWTAuthorizer(testSecret, "clinicq").IssueToken("staff-1", roles, time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return "Bearer " + token
}

func TestLock(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		sessionHeader  string
		lockErr        error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "granted",
			body:           `{"slotId":"64b7f0c2a1b2c3d4e5f60718","sessionId":"s1"}`,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "session from header",
			body:           `{"slotId":"64b7f0c2a1b2c3d4e5f60718"}`,
			sessionHeader:  "s1",
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "slot full",
			body:           `{"slotId":"64b7f0c2a1b2c3d4e5f60718","sessionId":"s1"}`,
			lockErr:        apperrors.Full("64b7f0c2a1b2c3d4e5f60718"),
			expectedStatus: http.StatusConflict,
			expectedCode:   apperrors.CodeFull,
		},
		{
			name:           "storage down",
			body:           `{"slotId":"64b7f0c2a1b2c3d4e5f60718","sessionId":"s1"}`,
			lockErr:        apperrors.StorageUnavailable(nil),
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   apperrors.CodeStorageUnavailable,
		},
		{
			name:           "malformed body",
			body:           `{"slotId":`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apperrors.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var received *model.LockRequest
			svc := &mockBookingService{
				lockFunc: func(ctx context.Context, req *model.LockRequest) (*model.LockGrant, error) {
					received = req
					if tt.lockErr != nil {
						return nil, tt.lockErr
					}
					return &model.LockGrant{LockID: "l1", SlotID: req.SlotID, ExpiresAt: time.Now().Add(10 * time.Minute)}, nil
				},
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/slots/lock", strings.NewReader(tt.body))
			if tt.sessionHeader != "" {
				req.Header.Set(middleware.SessionIDHeader, tt.sessionHeader)
			}
			rr := httptest.NewRecorder()
			newRouter(svc).ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
			if tt.expectedCode != "" {
				var body apperrors.ErrorResponse
				if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
					t.Fatalf("failed to decode error body: %v", err)
				}
				if body.Code != tt.expectedCode {
					t.Errorf("expected code %s, got %s", tt.expectedCode, body.Code)
				}
			}
			if received != nil && received.SessionID != "s1" {
				t.Errorf("expected session s1, got %q", received.SessionID)
			}
		})
	}
}

func TestConfirm_ExpiredLock(t *testing.T) {
	svc := &mockBookingService{
		confirmFunc: func(ctx context.Context, req *model.ConfirmRequest) (*model.Booking, error) {
			return nil, apperrors.Expired(req.LockID)
		},
	}

	body := `{"lockId":"5f0c2f8e-3d0b-4a8e-9a51-6c8f1f2b7d10","bookingDetails":{"patientName":"Asha","patientPhone":"+919876543210"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/confirm", strings.NewReader(body))
	rr := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusGone {
		t.Errorf("expected status %d, got %d", http.StatusGone, rr.Code)
	}
}

func TestAdminRoutes_RequireRole(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		authorization  string
		expectedStatus int
	}{
		{name: "no token", path: "/api/v1/admin/bookings", expectedStatus: http.StatusUnauthorized},
		{name: "receptionist on admin list", path: "/api/v1/admin/bookings", authorization: "receptionist", expectedStatus: http.StatusForbidden},
		{name: "admin list", path: "/api/v1/admin/bookings", authorization: "admin", expectedStatus: http.StatusOK},
		{name: "receptionist on today", path: "/api/v1/admin/bookings/today/h1", authorization: "receptionist", expectedStatus: http.StatusOK},
		{name: "bad date filter", path: "/api/v1/admin/bookings?date=03-02-2026", authorization: "admin", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.authorization != "" {
				req.Header.Set("Authorization", bearer(t, tt.authorization))
			}
			rr := httptest.NewRecorder()
			newRouter(&mockBookingService{}).ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestGetAll_PassesFilterAndPagination(t *testing.T) {
	var (
		receivedFilter model.BookingFilter
		receivedLimit  int
		receivedOffset int64
	)
	svc := &mockBookingService{
		listUpcomingFunc: func(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
			receivedFilter, receivedLimit, receivedOffset = filter, limit, offset
			return []*model.Booking{{ID: "b1"}}, 11, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/bookings?hospitalId=h1&mode=offline&limit=5&offset=10", nil)
	req.Header.Set("Authorization", bearer(t, auth.RoleAdmin))
	rr := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if receivedFilter.HospitalID != "h1" || receivedFilter.Mode != "offline" {
		t.Errorf("unexpected filter %+v", receivedFilter)
	}
	if receivedLimit != 5 || receivedOffset != 10 {
		t.Errorf("expected limit=5 offset=10, got limit=%d offset=%d", receivedLimit, receivedOffset)
	}

	var body struct {
		TotalCount int64 `json:"totalCount"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.TotalCount != 11 {
		t.Errorf("expected totalCount 11, got %d", body.TotalCount)
	}
}
