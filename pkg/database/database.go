package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	pkglog "github.com/weiawesome/wes-io-live/pkg/log"
)

// Config selects the SQL driver and pool settings. Host-based fields apply
// to postgres and mysql, FilePath to sqlite.
type Config struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	TimeZone        string `mapstructure:"timezone"`
	FilePath        string `mapstructure:"file_path"`
	LogLevel        string `mapstructure:"log_level"`
	SlowQuery       int    `mapstructure:"slow_query_ms"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // minutes
}

// Dialector builds the gorm dialector for cfg.Driver.
func (cfg *Config) Dialector() (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres":
		tz := cfg.TimeZone
		if tz == "" {
			tz = "UTC"
		}
		return postgres.New(postgres.Config{
			DSN: fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
				cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode, tz),
			PreferSimpleProtocol: true,
		}), nil
	case "mysql":
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)), nil
	case "sqlite":
		if cfg.FilePath == "" {
			return sqlite.Open("file::memory:?cache=shared"), nil
		}
		return sqlite.Open(cfg.FilePath), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// New opens the database and applies the pool settings. SQL logging goes
// through the process logger.
func New(cfg *Config) (*gorm.DB, error) {
	dialector, err := cfg.Dialector()
	if err != nil {
		return nil, err
	}

	slow := 200 * time.Millisecond
	if cfg.SlowQuery > 0 {
		slow = time.Duration(cfg.SlowQuery) * time.Millisecond
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(gormWriter{pkglog.L()}, logger.Config{
			SlowThreshold:             slow,
			LogLevel:                  gormLevel(cfg.LogLevel),
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	}
	return db, nil
}

// AutoMigrate creates or updates the tables for models.
func AutoMigrate(db *gorm.DB, models ...any) error {
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// gormWriter routes gorm's printf-style output into zerolog.
type gormWriter struct {
	logger zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.logger.Info().Str(pkglog.FieldLogType, "sql").Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func gormLevel(s string) logger.LogLevel {
	switch strings.ToLower(s) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	}
	return logger.Warn
}
