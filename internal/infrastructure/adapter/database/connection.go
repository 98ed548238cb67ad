package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/core"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/infrastructure/adapter/model"
)

// Connection holds the database handle and its configuration
type Connection struct {
	DB     *gorm.DB
	Config *Config
}

// NewConnection establishes a database connection with the given
// configuration, retrying transient connect failures.
func NewConnection(config *Config, logger core.Logger) (*Connection, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	gormLogLevel := gormlogger.Warn
	switch config.LogLevel {
	case "debug", "info":
		gormLogLevel = gormlogger.Info
	case "error":
		gormLogLevel = gormlogger.Error
	}
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLogLevel),
	}

	var db *gorm.DB
	retryConfig := RetryConfig{
		MaxRetries:    config.RetryAttempts,
		RetryInterval: config.RetryDelay,
		MaxInterval:   10 * time.Second,
		JitterFactor:  0.2,
	}
	err := RetryOnTransientError(context.Background(), retryConfig, logger, func() error {
		opened, openErr := gorm.Open(postgres.Open(config.DSN()), gormConfig)
		if openErr != nil {
			return fmt.Errorf("connecting to database: %w", openErr)
		}
		db = opened
		return nil
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	conn := &Connection{DB: db, Config: config}
	if config.AutoMigrate {
		if err := conn.Migrate(); err != nil {
			return nil, err
		}
	}
	return conn, nil
}

// Migrate creates or updates the schema for all pipeline tables
func (c *Connection) Migrate() error {
	err := c.DB.AutoMigrate(
		&model.LedgerTransaction{},
		&model.FormQueueEntry{},
		&model.FormResponseRow{},
		&model.DirectoryUser{},
	)
	if err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool
func (c *Connection) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return fmt.Errorf("getting database handle: %w", err)
	}
	return sqlDB.Close()
}
