package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors. All Record methods are safe on a nil receiver.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	LoginAttempts      *prometheus.CounterVec
	ReminderSync       *prometheus.CounterVec
	ImportRows         *prometheus.CounterVec
	RemindersNotified  *prometheus.CounterVec
	OrphansSwept       prometheus.Counter
	AttendanceSessions *prometheus.CounterVec

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
}

// New registers on the default registry, which is what /metrics serves.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		LoginAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_login_attempts_total",
				Help: "Login attempts by outcome",
			},
			[]string{"status"}, // success, failed, locked
		),
		ReminderSync: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_reminder_sync_total",
				Help: "Lead callback to reminder reconciliation results",
			},
			[]string{"operation", "result"},
		),
		ImportRows: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_import_rows_total",
				Help: "Spreadsheet import rows by outcome",
			},
			[]string{"result"}, // imported, failed
		),
		RemindersNotified: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_reminders_notified_total",
				Help: "Reminder notifications dispatched",
			},
			[]string{"channel"},
		),
		OrphansSwept: f.NewCounter(prometheus.CounterOpts{
			Name: "crm_orphan_reminders_swept_total",
			Help: "Reminder events removed because their lead no longer exists",
		}),
		AttendanceSessions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_attendance_events_total",
				Help: "Clock-in and clock-out events",
			},
			[]string{"event"},
		),
		CacheHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache_type"},
		),
		CacheMisses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache_type"},
		),
	}
}

// Middleware records request count and latency keyed by the route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			status := strconv.Itoa(c.Response().Status)
			path := c.Path()
			m.HTTPRequestsTotal.WithLabelValues(c.Request().Method, path, status).Inc()
			m.HTTPRequestDuration.WithLabelValues(c.Request().Method, path, status).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

func (m *Metrics) RecordLoginAttempt(status string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordReminderSync(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ReminderSync.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) RecordImportRows(imported, failed int) {
	if m == nil {
		return
	}
	m.ImportRows.WithLabelValues("imported").Add(float64(imported))
	m.ImportRows.WithLabelValues("failed").Add(float64(failed))
}

func (m *Metrics) RecordReminderNotified(channel string) {
	if m == nil {
		return
	}
	m.RemindersNotified.WithLabelValues(channel).Inc()
}

func (m *Metrics) RecordOrphansSwept(n int64) {
	if m == nil {
		return
	}
	m.OrphansSwept.Add(float64(n))
}

func (m *Metrics) RecordAttendance(event string) {
	if m == nil {
		return
	}
	m.AttendanceSessions.WithLabelValues(event).Inc()
}

func (m *Metrics) RecordCacheHit(cacheType string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(cacheType).Inc()
}

func (m *Metrics) RecordCacheMiss(cacheType string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(cacheType).Inc()
}
