package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordReminderSync(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.RecordReminderSync("create", nil)
	m.RecordReminderSync("create", nil)
	m.RecordReminderSync("update", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReminderSync.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReminderSync.WithLabelValues("update", "error")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordReminderSync("create", nil)
		m.RecordImportRows(3, 1)
		m.RecordOrphansSwept(2)
		m.RecordLoginAttempt("failed")
	})
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/v1/leads/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/leads/42", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/leads/:id", "204")))
}
