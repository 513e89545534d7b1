package routes

import (
	"context"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"crm-system/internal/controllers"
	"crm-system/internal/repositories"
	"crm-system/internal/services"
	"crm-system/pkg/config"
	"crm-system/pkg/metrics"
	"crm-system/pkg/middleware"
	"crm-system/pkg/service"
)

type Dependencies struct {
	DB      *pgxpool.Pool
	Redis   *redis.Client
	JWT     service.JWTService
	Metrics *metrics.Metrics
	Config  *config.Config
	Logger  *zap.Logger
}

// Controllers is everything the router mounts. Built by InitRouter, or by
// hand in tests.
type Controllers struct {
	Auth       *controllers.AuthController
	Lead       *controllers.LeadController
	LeadImport *controllers.LeadImportController
	Customer   *controllers.CustomerController
	Task       *controllers.TaskController
	Calendar   *controllers.CalendarEventController
	Attendance *controllers.AttendanceController
	User       *controllers.UserController
	Report     *controllers.ReportController
	Health     *controllers.HealthController
}

func InitRouter(e *echo.Echo, deps Dependencies) {
	logger := deps.Logger
	logger.Info("InitRouter: building routes")

	// Repositories
	txManager := repositories.NewTxManager(deps.DB)
	cacheRepo := repositories.NewRedisCacheRepository(deps.Redis)
	userRepo := repositories.NewUserRepository(deps.DB, logger.Named("user_repo"))
	leadRepo := repositories.NewLeadRepository(deps.DB, logger.Named("lead_repo"))
	customerRepo := repositories.NewCustomerRepository(deps.DB, logger.Named("customer_repo"))
	eventRepo := repositories.NewCalendarEventRepository(deps.DB, logger.Named("event_repo"))
	taskRepo := repositories.NewTaskRepository(deps.DB, logger.Named("task_repo"))
	attendanceRepo := repositories.NewAttendanceRepository(deps.DB, logger.Named("attendance_repo"))
	reportRepo := repositories.NewReportRepository(deps.DB, logger.Named("report_repo"))

	// Services
	cfg := deps.Config
	authService := services.NewAuthService(userRepo, cacheRepo, deps.JWT, cfg.Auth, deps.Metrics, logger.Named("auth"))
	reminders := services.NewReminderSync(eventRepo, deps.Metrics, logger.Named("reminder_sync"))
	leadService := services.NewLeadService(leadRepo, userRepo, reminders, txManager, logger.Named("lead"))
	importService := services.NewLeadImportService(
		leadRepo, customerRepo, reminders, txManager, deps.Metrics, cfg.Import.PhoneRegion, logger.Named("lead_import"),
	)
	customerService := services.NewCustomerService(customerRepo, cfg.Import.PhoneRegion, logger.Named("customer"))
	taskService := services.NewTaskService(taskRepo, userRepo, logger.Named("task"))
	eventService := services.NewCalendarEventService(eventRepo, leadRepo, logger.Named("calendar"))
	attendanceService := services.NewAttendanceService(
		attendanceRepo, userRepo, txManager, deps.Metrics, nil, logger.Named("attendance"),
	)
	userService := services.NewUserService(userRepo, authService, logger.Named("user"))
	reportService := services.NewReportService(reportRepo, logger.Named("report"))

	// Controllers
	ctrls := Controllers{
		Auth:       controllers.NewAuthController(authService, logger.Named("auth")),
		Lead:       controllers.NewLeadController(leadService, logger.Named("lead")),
		LeadImport: controllers.NewLeadImportController(importService, cfg.Import.MaxSizeMB, logger.Named("lead_import")),
		Customer:   controllers.NewCustomerController(customerService, logger.Named("customer")),
		Task:       controllers.NewTaskController(taskService, logger.Named("task")),
		Calendar:   controllers.NewCalendarEventController(eventService, logger.Named("calendar")),
		Attendance: controllers.NewAttendanceController(attendanceService, logger.Named("attendance")),
		User:       controllers.NewUserController(userService, logger.Named("user")),
		Report:     controllers.NewReportController(reportService, logger.Named("report")),
		Health: controllers.NewHealthController(map[string]controllers.Pinger{
			"postgres": deps.DB.Ping,
			"redis":    func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() },
		}, logger.Named("health")),
	}

	authMW := middleware.NewAuthMiddleware(deps.JWT, authService, logger.Named("auth_mw"))
	RegisterRoutes(e, ctrls, authMW, logger)

	logger.Info("InitRouter: routes ready")
}

// RegisterRoutes mounts the public endpoints and the authenticated /api group.
func RegisterRoutes(e *echo.Echo, c Controllers, authMW *middleware.AuthMiddleware, logger *zap.Logger) {
	e.GET("/health", c.Health.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/", func(ctx echo.Context) error {
		return ctx.String(http.StatusOK, "crm-system")
	})

	api := e.Group("/api")
	runAuthRouter(api, c.Auth, authMW)

	secureGroup := api.Group("", authMW.Auth)
	runLeadRouter(secureGroup, c.Lead, c.LeadImport)
	runCustomerRouter(secureGroup, c.Customer)
	runTaskRouter(secureGroup, c.Task)
	runCalendarRouter(secureGroup, c.Calendar)
	runAttendanceRouter(secureGroup, c.Attendance)
	runUserRouter(secureGroup, c.User, logger)
	runReportRouter(secureGroup, c.Report)
}
