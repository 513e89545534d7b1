package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"crm-system/internal/jobs"
	"crm-system/internal/repositories"
	"crm-system/internal/routes"
	"crm-system/pkg/config"
	"crm-system/pkg/customvalidator"
	"crm-system/pkg/database/migrations"
	"crm-system/pkg/database/postgresql"
	apperrors "crm-system/pkg/errors"
	applogger "crm-system/pkg/logger"
	"crm-system/pkg/mailer"
	"crm-system/pkg/metrics"
	"crm-system/pkg/middleware"
	"crm-system/pkg/service"
	"crm-system/pkg/utils"
	"crm-system/seeders"
)

func main() {
	cfg := config.New()
	logger := applogger.NewLogger(cfg.LogLevel, cfg.IsProduction())
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConn, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN, logger)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer dbConn.Close()

	if err := migrations.Up(ctx, dbConn); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis connection failed", zap.Error(err), zap.String("address", cfg.Redis.Address))
	}

	userRepo := repositories.NewUserRepository(dbConn, logger.Named("user_repo"))
	seeder := seeders.New(repositories.NewClientRepository(dbConn, logger), userRepo, logger.Named("seeder"))
	if err := seeder.SeedDefaults(ctx, cfg.Seeder); err != nil {
		logger.Fatal("seeding failed", zap.Error(err))
	}

	appMetrics := metrics.New()

	e := echo.New()
	e.HideBanner = true
	e.Debug = !cfg.IsProduction()

	v, err := customvalidator.New()
	if err != nil {
		logger.Fatal("validator setup failed", zap.Error(err))
	}
	e.Validator = utils.NewValidator(v)

	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				httpErr := apperrors.NewHttpError(http.StatusInternalServerError, "Internal server error", err, nil)
				_ = utils.ErrorResponse(c, httpErr, logger)
			}
			return err
		},
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		ExposeHeaders:    []string{echo.HeaderContentDisposition, middleware.RequestIDHeader},
	}))
	e.Use(middleware.RequestLogger(logger.Named("http")))
	e.Use(appMetrics.Middleware())
	e.Use(echomw.BodyLimit("12M"))

	jwtSvc := service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)

	routes.InitRouter(e, routes.Dependencies{
		DB:      dbConn,
		Redis:   redisClient,
		JWT:     jwtSvc,
		Metrics: appMetrics,
		Config:  cfg,
		Logger:  logger,
	})

	eventRepo := repositories.NewCalendarEventRepository(dbConn, logger.Named("event_repo"))
	cronManager := jobs.NewCronManager(logger.Named("jobs"))
	notifier := jobs.NewReminderNotifier(
		eventRepo, userRepo, mailer.NewMailer(cfg.SMTP, logger.Named("mailer")), appMetrics, nil, logger.Named("reminder_notifier"),
	)
	sweeper := jobs.NewOrphanSweeper(eventRepo, appMetrics, logger.Named("orphan_sweeper"))
	if err := cronManager.SetupJobs(cfg.Jobs, notifier, sweeper); err != nil {
		logger.Fatal("cron setup failed", zap.Error(err))
	}
	cronManager.Start()

	go func() {
		addr := ":" + cfg.Server.Port
		logger.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Server.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	cronManager.Stop(shutdownCtx)
}
