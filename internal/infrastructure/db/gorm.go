package db

import (
	"fmt"
	"time"

	"collections-backend/internal/config"
	loanDomain "collections-backend/internal/domain/loan"
	lockDomain "collections-backend/internal/domain/lock"
	paymentDomain "collections-backend/internal/domain/payment"
	"collections-backend/internal/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NowFunc is the clock GORM stamps created_at/updated_at with. Microsecond
// precision matches the datetime(6) columns, so a stamp read back compares equal
// to the one written.
func NowFunc() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// OpenGorm connects to the driver selected by cfg.DBDriver and tunes the pool.
func OpenGorm(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch cfg.DBDriver {
	case config.DriverSQLite:
		dial = sqlite.Open(cfg.SQLitePath + "?_busy_timeout=5000&_foreign_keys=on")
	default:
		dial = mysql.Open(cfg.MySQLDSN())
	}

	db, err := OpenGormWithDialector(dial, log)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DBDriver == config.DriverSQLite {
		// one writer at a time; sqlite serialises anyway
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(30)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	}
	logger.OrNop(log).Info("gorm: connected", zap.String("driver", cfg.DBDriver))
	return db, nil
}

// OpenGormWithDialector opens dial and pings it once.
func OpenGormWithDialector(dial gorm.Dialector, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(dial, &gorm.Config{
		Logger:               newGormLogger(logger.OrNop(log)),
		TranslateError:       true,
		NowFunc:              NowFunc,
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// newGormLogger routes GORM's SQL log through zap at warn level.
func newGormLogger(log *zap.Logger) gormlogger.Interface {
	return gormlogger.New(
		zap.NewStdLog(log.Named("gorm")),
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}

// Models lists every table the service owns, in creation order.
func Models() []any {
	return []any{
		&loanDomain.Loan{},
		&loanDomain.Installment{},
		&paymentDomain.Payment{},
		&lockDomain.Entry{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
