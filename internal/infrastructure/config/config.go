package config

import (
	"time"

	"github.com/meadowbrook-ops/invoice-pipeline/internal/infrastructure/adapter/database"
)

// Config holds all configuration for the application
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    database.Config `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Logger      LoggerConfig    `mapstructure:"logger"`
	Pipeline    PipelineConfig  `mapstructure:"pipeline"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"readTimeout"`       // seconds
	WriteTimeout      time.Duration `mapstructure:"writeTimeout"`      // seconds
	IdleTimeout       time.Duration `mapstructure:"idleTimeout"`       // seconds
	ReadHeaderTimeout time.Duration `mapstructure:"readHeaderTimeout"` // seconds
	ShutdownTimeout   time.Duration `mapstructure:"shutdownTimeout"`   // seconds
}

// RedisConfig contains settings for the lock and claim backend. With
// Enabled false the pipeline falls back to in-process locks, which is
// only safe when a single instance runs.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggerConfig contains logger settings
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	TimeFormat string `mapstructure:"timeFormat"`
	CallerInfo bool   `mapstructure:"callerInfo"`
}

// PipelineConfig contains invoice pipeline settings
type PipelineConfig struct {
	Allocator  AllocatorConfig  `mapstructure:"allocator"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	Batching   BatchingConfig   `mapstructure:"batching"`
	Renderer   RendererConfig   `mapstructure:"renderer"`
	Export     ExportConfig     `mapstructure:"export"`
}

// AllocatorConfig contains invoice ID allocation settings
type AllocatorConfig struct {
	MaxAttempts      int           `mapstructure:"maxAttempts"`
	DailyMax         int           `mapstructure:"dailyMax"`
	LockTTL          time.Duration `mapstructure:"lockTtl"`        // seconds
	ClaimTTL         time.Duration `mapstructure:"claimTtl"`       // minutes
	OverallTimeout   time.Duration `mapstructure:"overallTimeout"` // seconds
	ScanWindow       time.Duration `mapstructure:"scanWindow"`     // minutes
	ScanCacheTTL     time.Duration `mapstructure:"scanCacheTtl"`   // seconds
	Reprocessing     bool          `mapstructure:"reprocessing"`
	BackoffInitialMs int           `mapstructure:"backoffInitialMs"`
	BackoffMaxMs     int           `mapstructure:"backoffMaxMs"`
}

// EnrichmentConfig contains enrichment engine settings
type EnrichmentConfig struct {
	MaxLineItems         int           `mapstructure:"maxLineItems"`
	MaxDescriptionLength int           `mapstructure:"maxDescriptionLength"`
	MaxAmount            string        `mapstructure:"maxAmount"`
	FallbackWindow       time.Duration `mapstructure:"fallbackWindow"` // minutes
	OrderTotalTTL        time.Duration `mapstructure:"orderTotalTtl"`  // seconds
}

// BatchingConfig contains batch splitting settings
type BatchingConfig struct {
	MaxItemsPerBatch int `mapstructure:"maxItemsPerBatch"`
}

// RendererConfig contains invoice renderer client settings
type RendererConfig struct {
	BaseURL string        `mapstructure:"baseUrl"`
	Timeout time.Duration `mapstructure:"timeout"` // seconds
}

// ExportConfig contains run report export settings
type ExportConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
}
