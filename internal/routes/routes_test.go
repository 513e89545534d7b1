package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crm-system/internal/controllers"
	"crm-system/internal/entities"
	"crm-system/pkg/customvalidator"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/middleware"
	"crm-system/pkg/service"
	"crm-system/pkg/utils"
)

type stubUsers map[uint64]*entities.User

func (s stubUsers) GetAuthUser(_ context.Context, id uint64) (*entities.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, apperrors.ErrNotFound
}

// newRouter mounts every route over nil services; only requests that stop
// in middleware or validation may be sent through it.
func newRouter(t *testing.T, redisUp bool) (*echo.Echo, service.JWTService) {
	t.Helper()
	logger := zap.NewNop()
	v, err := customvalidator.New()
	require.NoError(t, err)

	e := echo.New()
	e.Validator = utils.NewValidator(v)

	jwtSvc := service.NewJWTService("routes-secret", time.Hour, time.Hour)
	users := stubUsers{7: {ID: 7, ClientID: 1, Role: entities.RoleAgent, IsActive: true}}
	authMW := middleware.NewAuthMiddleware(jwtSvc, users, logger)

	redisPing := func(context.Context) error { return nil }
	if !redisUp {
		redisPing = func(context.Context) error { return errors.New("connection refused") }
	}

	RegisterRoutes(e, Controllers{
		Auth:       controllers.NewAuthController(nil, logger),
		Lead:       controllers.NewLeadController(nil, logger),
		LeadImport: controllers.NewLeadImportController(nil, 10, logger),
		Customer:   controllers.NewCustomerController(nil, logger),
		Task:       controllers.NewTaskController(nil, logger),
		Calendar:   controllers.NewCalendarEventController(nil, logger),
		Attendance: controllers.NewAttendanceController(nil, logger),
		User:       controllers.NewUserController(nil, logger),
		Report:     controllers.NewReportController(nil, logger),
		Health: controllers.NewHealthController(map[string]controllers.Pinger{
			"postgres": func(context.Context) error { return nil },
			"redis":    redisPing,
		}, logger),
	}, authMW, logger)
	return e, jwtSvc
}

func TestRegisterRoutes_AllEndpointsMounted(t *testing.T) {
	e, _ := newRouter(t, true)

	mounted := map[string]bool{}
	for _, r := range e.Routes() {
		mounted[r.Method+" "+r.Path] = true
	}

	expected := []string{
		"POST /api/auth/login",
		"POST /api/auth/refresh",
		"GET /api/auth/me",
		"GET /api/leads",
		"POST /api/leads",
		"GET /api/leads/:id",
		"PUT /api/leads/:id",
		"PATCH /api/leads/:id/status",
		"DELETE /api/leads/:id",
		"POST /api/leads/import/excel",
		"GET /api/leads/template/excel",
		"GET /api/customers",
		"POST /api/customers",
		"GET /api/customers/:id",
		"GET /api/tasks",
		"POST /api/tasks",
		"GET /api/tasks/:id",
		"PUT /api/tasks/:id",
		"DELETE /api/tasks/:id",
		"GET /api/calendar/events",
		"POST /api/calendar/events",
		"PUT /api/calendar/events/:id",
		"DELETE /api/calendar/events/:id",
		"POST /api/attendance/clock-in",
		"PATCH /api/attendance/clock-out",
		"POST /api/attendance/clock-out",
		"GET /api/attendance/status",
		"GET /api/attendance/history",
		"GET /api/attendance/report",
		"GET /api/users",
		"POST /api/users",
		"GET /api/users/:id",
		"PUT /api/users/:id",
		"DELETE /api/users/:id",
		"GET /api/reports/leads",
		"GET /health",
		"GET /metrics",
	}
	for _, route := range expected {
		assert.True(t, mounted[route], "missing route %s", route)
	}
}

func TestSecureGroup_RequiresToken(t *testing.T) {
	e, _ := newRouter(t, true)

	for _, path := range []string{"/api/leads", "/api/tasks", "/api/attendance/status", "/api/reports/leads", "/api/auth/me"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestLogin_IsPublic(t *testing.T) {
	e, _ := newRouter(t, true)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"not-an-email"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	// Validation ran, so the auth middleware did not.
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserAdminRoutes_RejectAgents(t *testing.T) {
	e, jwtSvc := newRouter(t, true)
	access, _, err := jwtSvc.GenerateTokens(7, 1, string(entities.RoleAgent))
	require.NoError(t, err)

	for _, r := range []struct{ method, path string }{
		{http.MethodPost, "/api/users"},
		{http.MethodDelete, "/api/users/9"},
	} {
		req := httptest.NewRequest(r.method, r.path, strings.NewReader(`{}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+access)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, r.method+" "+r.path)
	}
}

func TestHealth(t *testing.T) {
	t.Run("all dependencies up", func(t *testing.T) {
		e, _ := newRouter(t, true)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("redis down", func(t *testing.T) {
		e, _ := newRouter(t, false)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "redis")
	})
}
