package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	httpadp "collections-backend/internal/adapter/http"
	"collections-backend/internal/adapter/middleware"
	mysqlrepo "collections-backend/internal/adapter/repository/mysql"
	loanDomain "collections-backend/internal/domain/loan"
	"collections-backend/internal/infrastructure/cache"
	loanuc "collections-backend/internal/usecase/loan"
	lockuc "collections-backend/internal/usecase/lock"
	paymentuc "collections-backend/internal/usecase/payment"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func runServer(parent context.Context, v *viper.Viper) error {
	a, err := newApp(v)
	if err != nil {
		return err
	}
	defer a.close()
	log := a.log

	log.Info("starting collections service",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("db_driver", a.cfg.DBDriver),
	)
	if err := a.migrate(); err != nil {
		return err
	}

	rdb, err := cache.OpenRedis(a.cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer rdb.Close()

	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}

	runner := lockuc.NewRunner(a.locks, log, a.metrics)
	tx := mysqlrepo.NewGormUoW(a.db)
	loans := loanuc.NewUsecase(mysqlrepo.NewLoanRepository(a.db), tx, runner,
		loanuc.WithLogger(log),
		loanuc.WithMora(loanDomain.DailyRateMora(a.cfg.MoraDailyRate)),
		loanuc.WithComplexTimeout(a.cfg.LockComplexTimeout),
	)
	payments := paymentuc.NewUsecase(mysqlrepo.NewPaymentRepository(a.db), tx, runner, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = httpadp.NewValidator()
	e.Use(
		echomw.Recover(),
		middleware.Metrics(a.metrics),
		echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
			LogMethod:   true,
			LogURI:      true,
			LogStatus:   true,
			LogLatency:  true,
			LogError:    true,
			HandleError: true,
			LogValuesFunc: func(_ echo.Context, rv echomw.RequestLoggerValues) error {
				log.Info("request",
					zap.String("method", rv.Method),
					zap.String("uri", rv.URI),
					zap.Int("status", rv.Status),
					zap.Duration("latency", rv.Latency),
					zap.Error(rv.Error),
				)
				return nil
			},
		}),
	)
	httpadp.RegisterRoutes(e, httpadp.Routes{
		Health:      httpadp.NewHandler(sqlDB),
		Loans:       httpadp.NewLoanHandler(loans, log),
		Payments:    httpadp.NewPaymentHandler(payments, log),
		Locks:       httpadp.NewLockHandler(a.locks, log),
		Metrics:     a.metrics.Handler(),
		Idempotency: middleware.IdempotencyMiddleware(rdb, a.cfg.IdempotencyTTL(), log),
	})

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		a.sweeper().Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		addr := ":" + a.cfg.AppPort
		log.Info("listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			stop()
			<-sweepDone
			return fmt.Errorf("http server: %w", err)
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
		return err
	}
	<-sweepDone
	log.Info("service stopped gracefully")
	return nil
}
