package main

import (
	"fmt"

	mysqlrepo "collections-backend/internal/adapter/repository/mysql"
	"collections-backend/internal/config"
	"collections-backend/internal/infrastructure/db"
	"collections-backend/internal/logger"
	"collections-backend/internal/metrics"
	lockuc "collections-backend/internal/usecase/lock"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app holds what every subcommand needs: configuration, logger, database and the
// lock manager over it.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *gorm.DB
	metrics *metrics.Metrics
	locks   *lockuc.Manager
}

func newApp(v *viper.Viper) (*app, error) {
	cfg, err := config.LoadFrom(v)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	gdb, err := db.OpenGorm(cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	mt := metrics.New("collections")
	return &app{
		cfg:     cfg,
		log:     log,
		db:      gdb,
		metrics: mt,
		locks: lockuc.NewManager(mysqlrepo.NewLockStore(gdb), log,
			lockuc.WithMetrics(mt),
			lockuc.WithDefaultTimeout(cfg.LockDefaultTimeout),
		),
	}, nil
}

func (a *app) migrate() error {
	if err := db.Migrate(a.db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	a.log.Info("schema migrated")
	return nil
}

func (a *app) sweeper() *lockuc.Sweeper {
	return lockuc.NewSweeper(a.locks, a.cfg.LockSweepInterval, a.log)
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}
