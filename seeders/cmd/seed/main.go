package main

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"

	"crm-system/internal/repositories"
	"crm-system/pkg/config"
	"crm-system/pkg/database/migrations"
	"crm-system/pkg/database/postgresql"
	applogger "crm-system/pkg/logger"
	"crm-system/seeders"
)

func main() {
	migrate := flag.Bool("migrate", true, "apply pending migrations before seeding")
	flag.Parse()

	cfg := config.New()
	logger := applogger.NewLogger(cfg.LogLevel, cfg.IsProduction())
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN, logger)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	if *migrate {
		if err := migrations.Up(ctx, pool); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
	}

	s := seeders.New(
		repositories.NewClientRepository(pool, logger),
		repositories.NewUserRepository(pool, logger),
		logger.Named("seeder"),
	)
	if err := s.SeedDefaults(ctx, cfg.Seeder); err != nil {
		logger.Fatal("seeding failed", zap.Error(err))
	}
	logger.Info("seeding finished")
}
