package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	AppPort string

	DBDriver string // mysql | sqlite

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	SQLitePath string

	RedisAddr string
	RedisDB   int

	IdempTTLSecs int

	LockDefaultTimeout time.Duration
	LockComplexTimeout time.Duration
	LockSweepInterval  time.Duration

	MoraDailyRate decimal.Decimal

	LogLevel  string
	LogFormat string
}

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// New returns a viper instance with every default set and env lookup enabled:
// key "mysql.host" reads MYSQL_HOST.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("app.port", "8080")
	v.SetDefault("db.driver", DriverMySQL)
	v.SetDefault("mysql.host", "mysql")
	v.SetDefault("mysql.port", "3306")
	v.SetDefault("mysql.db", "collections")
	v.SetDefault("mysql.user", "collections")
	v.SetDefault("mysql.pass", "collections")
	v.SetDefault("sqlite.path", "collections.db")
	v.SetDefault("redis.addr", "redis:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("idempotency.ttl_seconds", 300)
	v.SetDefault("lock.default_timeout", "300s")
	v.SetDefault("lock.complex_timeout", "600s")
	v.SetDefault("lock.sweep_interval", "60s")
	v.SetDefault("mora.daily_rate", "0.001")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	return v
}

// Load reads defaults, an optional ./config.yaml and the environment.
func Load() (*Config, error) { return LoadFrom(New()) }

// LoadFrom is Load over a caller-prepared instance, e.g. one with CLI flags bound.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var notFound viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return FromViper(v)
}

func FromViper(v *viper.Viper) (*Config, error) {
	c := &Config{
		AppPort:      v.GetString("app.port"),
		DBDriver:     strings.ToLower(v.GetString("db.driver")),
		MySQLHost:    v.GetString("mysql.host"),
		MySQLPort:    v.GetString("mysql.port"),
		MySQLDB:      v.GetString("mysql.db"),
		MySQLUser:    v.GetString("mysql.user"),
		MySQLPass:    v.GetString("mysql.pass"),
		SQLitePath:   v.GetString("sqlite.path"),
		RedisAddr:    v.GetString("redis.addr"),
		RedisDB:      v.GetInt("redis.db"),
		IdempTTLSecs: v.GetInt("idempotency.ttl_seconds"),
		LogLevel:     strings.ToLower(v.GetString("log.level")),
		LogFormat:    strings.ToLower(v.GetString("log.format")),
	}

	var err error
	if c.LockDefaultTimeout, err = duration(v, "lock.default_timeout"); err != nil {
		return nil, err
	}
	if c.LockComplexTimeout, err = duration(v, "lock.complex_timeout"); err != nil {
		return nil, err
	}
	if c.LockSweepInterval, err = duration(v, "lock.sweep_interval"); err != nil {
		return nil, err
	}
	if c.MoraDailyRate, err = decimal.NewFromString(v.GetString("mora.daily_rate")); err != nil {
		return nil, fmt.Errorf("invalid mora.daily_rate: %w", err)
	}
	return c, nil
}

// duration accepts Go durations ("300s", "5m") or a bare number of seconds.
func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func (c *Config) Validate() error {
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if p, err := strconv.Atoi(c.AppPort); err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid APP_PORT %q", c.AppPort)
	}

	switch c.DBDriver {
	case DriverMySQL:
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		// ensure port is valid
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("missing SQLITE_PATH")
		}
	default:
		return fmt.Errorf("invalid DB_DRIVER %q (must be mysql or sqlite)", c.DBDriver)
	}

	if c.IdempTTLSecs <= 0 {
		return fmt.Errorf("invalid IDEMPOTENCY_TTL_SECONDS %d", c.IdempTTLSecs)
	}
	if c.LockDefaultTimeout <= 0 || c.LockComplexTimeout <= 0 {
		return fmt.Errorf("lock timeouts must be positive (default %s, complex %s)", c.LockDefaultTimeout, c.LockComplexTimeout)
	}
	if c.LockSweepInterval <= 0 {
		return fmt.Errorf("invalid LOCK_SWEEP_INTERVAL %s", c.LockSweepInterval)
	}
	if c.MoraDailyRate.IsNegative() {
		return fmt.Errorf("invalid MORA_DAILY_RATE %s", c.MoraDailyRate)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q (must be debug, info, warn, or error)", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q (must be json or console)", c.LogFormat)
	}
	return nil
}

func (c *Config) IdempotencyTTL() time.Duration { return time.Duration(c.IdempTTLSecs) * time.Second }

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME; loc=UTC keeps lock expiry comparisons in one zone
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
