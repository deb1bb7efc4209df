// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and schema migrations.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/event-campaigns/internal/domain"
)

// Option tweaks OpenSQLite.
type Option func(*options)

type options struct {
	tracing  bool
	maxConns int
	logLevel logger.LogLevel
}

// WithTracing registers the OpenTelemetry GORM plugin so every query becomes
// a span under the caller's context.
func WithTracing() Option { return func(o *options) { o.tracing = true } }

// WithMaxOpenConns overrides the pool size (default 10).
func WithMaxOpenConns(n int) Option { return func(o *options) { o.maxConns = n } }

// WithLogLevel sets the GORM logger level (default Warn).
func WithLogLevel(l logger.LogLevel) Option { return func(o *options) { o.logLevel = l } }

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
// Connection-scoped PRAGMAs are passed in the DSN so every pooled
// connection gets them.
func OpenSQLite(path string, opts ...Option) (*gorm.DB, error) {
	o := options{maxConns: 10, logLevel: logger.Warn}
	for _, fn := range opts {
		fn(&o)
	}

	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(dsnWithPragmas(path)), &gorm.Config{
		Logger: logger.Default.LogMode(o.logLevel),
	})
	if err != nil {
		return nil, err
	}

	// Database-wide PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")

	if o.tracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, fmt.Errorf("gorm tracing: %w", err)
		}
	}

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(o.maxConns)
		sqlDB.SetMaxIdleConns(o.maxConns)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

func dsnWithPragmas(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
}

// AutoMigrate creates or updates every table the campaign engine uses,
// including the event and guest tables normally owned by the host app.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Event{},
		&domain.Recipient{},
		&domain.Schedule{},
		&domain.DeliveryLogEntry{},
		&domain.CreditAccount{},
		&domain.Idempotency{},
	)
}
