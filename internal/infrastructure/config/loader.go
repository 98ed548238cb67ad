package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment constants
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// ConfigPaths defines the paths to look for config files
var ConfigPaths = []string{
	"./configs",
	"../configs",
	"../../configs",
}

// DotEnvPaths defines the paths to look for .env files
var DotEnvPaths = []string{
	".env",
	"./configs/.env",
	"../configs/.env",
}

// LoadConfig loads configuration from file based on the environment
func LoadConfig() (*Config, error) {
	// .env is optional; missing files are fine
	loadDotEnvFile()

	env := getEnvironment()

	v := viper.New()
	v.SetConfigName(env)
	v.SetConfigType("yaml")
	for _, path := range ConfigPaths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	v.SetEnvPrefix("IP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	processEnvOverrides(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.Environment = env
	processDurations(&config)

	return &config, nil
}

// loadDotEnvFile attempts to load environment variables from .env files
func loadDotEnvFile() {
	for _, path := range DotEnvPaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// setDefaults sets default values for non-critical configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 15)       // seconds
	v.SetDefault("server.writeTimeout", 30)      // seconds
	v.SetDefault("server.idleTimeout", 60)       // seconds
	v.SetDefault("server.readHeaderTimeout", 10) // seconds
	v.SetDefault("server.shutdownTimeout", 10)   // seconds

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 10)
	v.SetDefault("database.connMaxLifetime", 30) // minutes
	v.SetDefault("database.connMaxIdleTime", 15) // minutes
	v.SetDefault("database.queryTimeout", 5)     // seconds
	v.SetDefault("database.logLevel", "warn")
	v.SetDefault("database.retryAttempts", 3)
	v.SetDefault("database.retryDelay", 1) // seconds
	v.SetDefault("database.autoMigrate", false)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.callerInfo", true)

	v.SetDefault("pipeline.allocator.maxAttempts", 8)
	v.SetDefault("pipeline.allocator.dailyMax", 99)
	v.SetDefault("pipeline.allocator.lockTtl", 30)          // seconds
	v.SetDefault("pipeline.allocator.claimTtl", 1440)       // minutes
	v.SetDefault("pipeline.allocator.overallTimeout", 45)   // seconds
	v.SetDefault("pipeline.allocator.scanWindow", 4320)     // minutes
	v.SetDefault("pipeline.allocator.scanCacheTtl", 15)     // seconds
	v.SetDefault("pipeline.allocator.reprocessing", false)
	v.SetDefault("pipeline.allocator.backoffInitialMs", 50)
	v.SetDefault("pipeline.allocator.backoffMaxMs", 2000)

	v.SetDefault("pipeline.enrichment.maxLineItems", 25)
	v.SetDefault("pipeline.enrichment.maxDescriptionLength", 500)
	v.SetDefault("pipeline.enrichment.maxAmount", "50000")
	v.SetDefault("pipeline.enrichment.fallbackWindow", 1440) // minutes
	v.SetDefault("pipeline.enrichment.orderTotalTtl", 300)   // seconds

	v.SetDefault("pipeline.batching.maxItemsPerBatch", 25)

	v.SetDefault("pipeline.renderer.baseUrl", "http://localhost:9090")
	v.SetDefault("pipeline.renderer.timeout", 30) // seconds

	v.SetDefault("pipeline.export.enabled", true)
	v.SetDefault("pipeline.export.directory", "./reports")
}

// getEnvironment determines the environment from IP_ENV
func getEnvironment() string {
	env := os.Getenv("IP_ENV")
	if env == "" {
		env = Development
	}
	return strings.ToLower(env)
}

// processEnvOverrides ensures environment variables override config values
// for sensitive settings
func processEnvOverrides(v *viper.Viper) {
	if dbHost := os.Getenv("IP_DB_HOST"); dbHost != "" {
		v.Set("database.host", dbHost)
	}
	if dbPort := os.Getenv("IP_DB_PORT"); dbPort != "" {
		v.Set("database.port", dbPort)
	}
	if dbUser := os.Getenv("IP_DB_USERNAME"); dbUser != "" {
		v.Set("database.username", dbUser)
	}
	if dbPass := os.Getenv("IP_DB_PASSWORD"); dbPass != "" {
		v.Set("database.password", dbPass)
	}
	if dbName := os.Getenv("IP_DB_NAME"); dbName != "" {
		v.Set("database.database", dbName)
	}
	if redisAddr := os.Getenv("IP_REDIS_ADDR"); redisAddr != "" {
		v.Set("redis.addr", redisAddr)
	}
	if redisPass := os.Getenv("IP_REDIS_PASSWORD"); redisPass != "" {
		v.Set("redis.password", redisPass)
	}
	if rendererURL := os.Getenv("IP_RENDERER_BASE_URL"); rendererURL != "" {
		v.Set("pipeline.renderer.baseUrl", rendererURL)
	}
	if logLevel := os.Getenv("IP_LOGGER_LEVEL"); logLevel != "" {
		v.Set("logger.level", logLevel)
	}
}

// processDurations converts duration fields from their raw numeric values
func processDurations(config *Config) {
	config.Server.ReadTimeout *= time.Second
	config.Server.WriteTimeout *= time.Second
	config.Server.IdleTimeout *= time.Second
	config.Server.ReadHeaderTimeout *= time.Second
	config.Server.ShutdownTimeout *= time.Second

	config.Database.ConnMaxLifetime *= time.Minute
	config.Database.ConnMaxIdleTime *= time.Minute
	config.Database.QueryTimeout *= time.Second
	config.Database.RetryDelay *= time.Second

	config.Pipeline.Allocator.LockTTL *= time.Second
	config.Pipeline.Allocator.ClaimTTL *= time.Minute
	config.Pipeline.Allocator.OverallTimeout *= time.Second
	config.Pipeline.Allocator.ScanWindow *= time.Minute
	config.Pipeline.Allocator.ScanCacheTTL *= time.Second

	config.Pipeline.Enrichment.FallbackWindow *= time.Minute
	config.Pipeline.Enrichment.OrderTotalTTL *= time.Second

	config.Pipeline.Renderer.Timeout *= time.Second
}
