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

type mockVisitService struct {
	checkInFunc     func(ctx context.Context, req *model.CheckInRequest) (*model.Visit, error)
	walkInFunc      func(ctx context.Context, req *model.WalkInRequest) (*model.Visit, error)
	listTodayFunc   func(ctx context.Context, hospitalID string, limit int, offset int64) ([]*model.Visit, int64, error)
	findByTokenFunc func(ctx context.Context, hospitalID string, token int64) (*model.Visit, error)
}

func (m *mockVisitService) CheckInAppointment(ctx context.Context, req *model.CheckInRequest) (*model.Visit, error) {
	return m.checkInFunc(ctx, req)
}

func (m *mockVisitService) CheckInWalkIn(ctx context.Context, req *model.WalkInRequest) (*model.Visit, error) {
	return m.walkInFunc(ctx, req)
}

func (m *mockVisitService) ListToday(ctx context.Context, hospitalID string, limit int, offset int64) ([]*model.Visit, int64, error) {
	if m.listTodayFunc != nil {
		return m.listTodayFunc(ctx, hospitalID, limit, offset)
	}
	return []*model.Visit{}, 0, nil
}

func (m *mockVisitService) FindByToken(ctx context.Context, hospitalID string, token int64) (*model.Visit, error) {
	if m.findByTokenFunc != nil {
		return m.findByTokenFunc(ctx, hospitalID, token)
	}
	return nil, apperrors.NotFound("Visit")
}

func newRouter(svc *mockVisitService) *httprouter.Router {
	log := logger.New(logger.Config{
		Level:     "info",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
	gate := middleware.NewRoleGate(auth.NewJWTAuthorizer(testSecret, "clinicq"), log)

	router := httprouter.New()
	NewVisitHandler(svc, gate, log).RegisterRoutes(router)
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

func TestCheckIn(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		roles          []string
		serviceErr     error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "receptionist checks in",
			body:           `{"bookingId":"64b7f0c2a1b2c3d4e5f60718","patientId":"p1"}`,
			roles:          []string{auth.RoleReceptionist},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "already checked in",
			body:           `{"bookingId":"64b7f0c2a1b2c3d4e5f60718","patientId":"p1"}`,
			roles:          []string{auth.RoleAdmin},
			serviceErr:     apperrors.Conflict("Booking is not confirmed"),
			expectedStatus: http.StatusConflict,
			expectedCode:   apperrors.CodeConflict,
		},
		{
			name:           "malformed body",
			body:           `{"bookingId":`,
			roles:          []string{auth.RoleReceptionist},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apperrors.CodeInvalidInput,
		},
		{
			name:           "no token",
			body:           `{"bookingId":"64b7f0c2a1b2c3d4e5f60718","patientId":"p1"}`,
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockVisitService{
				checkInFunc: func(ctx context.Context, req *model.CheckInRequest) (*model.Visit, error) {
					if tt.serviceErr != nil {
						return nil, tt.serviceErr
					}
					return &model.Visit{
						ID:        "v1",
						BookingID: req.BookingID,
						PatientID: req.PatientID,
						Token:     7,
						Source:    model.VisitSourceAppointment,
						Status:    model.VisitWaiting,
					}, nil
				},
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/visits/check-in", strings.NewReader(tt.body))
			if len(tt.roles) > 0 {
				req.Header.Set("Authorization", bearer(t, tt.roles...))
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
		})
	}
}

func TestWalkIn_PassesRequestThrough(t *testing.T) {
	var received *model.WalkInRequest
	svc := &mockVisitService{
		walkInFunc: func(ctx context.Context, req *model.WalkInRequest) (*model.Visit, error) {
			received = req
			return &model.Visit{ID: "v2", HospitalID: req.HospitalID, Token: 3, Source: model.VisitSourceWalkIn}, nil
		},
	}

	body := `{"hospitalId":"h1","patientId":"p9","doctorId":"d2"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/visits/walk-in", strings.NewReader(body))
	req.Header.Set("Authorization", bearer(t, auth.RoleReceptionist))
	rr := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}
	if received == nil || received.HospitalID != "h1" || received.PatientID != "p9" || received.DoctorID != "d2" {
		t.Errorf("unexpected request passed to service: %+v", received)
	}
}

func TestToday(t *testing.T) {
	tests := []struct {
		name           string
		roles          []string
		query          string
		expectedStatus int
		expectedLimit  int
		expectedOffset int64
	}{
		{name: "doctor", roles: []string{auth.RoleDoctor}, query: "?limit=5&offset=10", expectedStatus: http.StatusOK, expectedLimit: 5, expectedOffset: 10},
		{name: "admin with defaults", roles: []string{auth.RoleAdmin}, expectedStatus: http.StatusOK, expectedLimit: 10},
		{name: "receptionist", roles: []string{auth.RoleReceptionist}, expectedStatus: http.StatusForbidden},
		{name: "bad limit", roles: []string{auth.RoleDoctor}, query: "?limit=x", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotHospital string
			var gotLimit int
			var gotOffset int64
			svc := &mockVisitService{
				listTodayFunc: func(ctx context.Context, hospitalID string, limit int, offset int64) ([]*model.Visit, int64, error) {
					gotHospital, gotLimit, gotOffset = hospitalID, limit, offset
					return []*model.Visit{{ID: "v1", HospitalID: hospitalID, Token: 1}}, 1, nil
				},
			}

			req := httptest.NewRequest(http.MethodGet, "/api/v1/visits/today/h1"+tt.query, nil)
			req.Header.Set("Authorization", bearer(t, tt.roles...))
			rr := httptest.NewRecorder()
			newRouter(svc).ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
			if tt.expectedStatus != http.StatusOK {
				return
			}
			if gotHospital != "h1" || gotLimit != tt.expectedLimit || gotOffset != tt.expectedOffset {
				t.Errorf("service got hospital=%s limit=%d offset=%d", gotHospital, gotLimit, gotOffset)
			}

			var body struct {
				Data       []model.Visit `json:"data"`
				TotalCount int64         `json:"totalCount"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if len(body.Data) != 1 || body.TotalCount != 1 {
				t.Errorf("unexpected page: %+v", body)
			}
		})
	}
}

func TestSearchByToken(t *testing.T) {
	tests := []struct {
		name           string
		roles          []string
		query          string
		expectedStatus int
		expectedCode   string
	}{
		{name: "pharmacist finds token", roles: []string{auth.RolePharmacist}, query: "?token=4", expectedStatus: http.StatusOK},
		{name: "doctor finds token", roles: []string{auth.RoleDoctor}, query: "?token=4", expectedStatus: http.StatusOK},
		{name: "token not issued", roles: []string{auth.RoleDoctor}, query: "?token=9", expectedStatus: http.StatusNotFound, expectedCode: apperrors.CodeNotFound},
		{name: "non numeric token", roles: []string{auth.RoleDoctor}, query: "?token=four", expectedStatus: http.StatusBadRequest, expectedCode: apperrors.CodeInvalidInput},
		{name: "receptionist", roles: []string{auth.RoleReceptionist}, query: "?token=4", expectedStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockVisitService{
				findByTokenFunc: func(ctx context.Context, hospitalID string, token int64) (*model.Visit, error) {
					if hospitalID != "h1" || token != 4 {
						return nil, apperrors.NotFound("Visit")
					}
					return &model.Visit{ID: "v4", HospitalID: hospitalID, Token: token}, nil
				},
			}

			req := httptest.NewRequest(http.MethodGet, "/api/v1/visits/search/h1"+tt.query, nil)
			req.Header.Set("Authorization", bearer(t, tt.roles...))
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
		})
	}
}
