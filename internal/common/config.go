package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Pipeline PipelineConfig
	Export   ExportConfig
}

// DatabaseConfig holds the narrow store contract settings.
type DatabaseConfig struct {
	DSN         string
	DialTimeout time.Duration
}

// PipelineConfig holds extraction and reconciliation tuning. Tolerances are
// configuration, not hardcoded: defaults follow the currency minor unit.
type PipelineConfig struct {
	AbsoluteTolerance  float64 // currency minor units, default 0.02
	RelativeTolerance  float64 // fraction of expected, default 0.005
	MinorMultiplier    float64 // secondary band for MinorDiscrepancy, default 5
	GrossMultiplier    float64 // document-level rejection band, default 10
	WarningConfidence  float64 // chosen candidates below this warn, default 0.60
	FallbackDamping    float64 // confidence penalty for loose patterns, default 0.85
	RowYTolerance      float64 // max y distance for fragments on one row, default 4
}

// ExportConfig holds report/export settings.
type ExportConfig struct {
	OutputPath string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:         getEnv("FISCAL_DB_DSN", "file:fiscaloliv.db"),
			DialTimeout: getEnvAsDuration("FISCAL_DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Pipeline: PipelineConfig{
			AbsoluteTolerance: getEnvAsFloat64("FISCAL_ABS_TOLERANCE", 0.02),
			RelativeTolerance: getEnvAsFloat64("FISCAL_REL_TOLERANCE", 0.005),
			MinorMultiplier:   getEnvAsFloat64("FISCAL_MINOR_MULTIPLIER", 5),
			GrossMultiplier:   getEnvAsFloat64("FISCAL_GROSS_MULTIPLIER", 10),
			WarningConfidence: getEnvAsFloat64("FISCAL_WARN_CONFIDENCE", 0.60),
			FallbackDamping:   getEnvAsFloat64("FISCAL_FALLBACK_DAMPING", 0.85),
			RowYTolerance:     getEnvAsFloat64("FISCAL_ROW_Y_TOLERANCE", 4),
		},
		Export: ExportConfig{
			OutputPath: getEnv("FISCAL_EXPORT_PATH", ""),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "FISCAL_DB_DSN is required", ErrInvalidInput)
	}
	if c.Pipeline.AbsoluteTolerance < 0 || c.Pipeline.RelativeTolerance < 0 {
		return NewAppError("CONFIG_ERROR", "tolerances must be non-negative", ErrInvalidInput)
	}
	if c.Pipeline.WarningConfidence < 0 || c.Pipeline.WarningConfidence > 1 {
		return NewAppError("CONFIG_ERROR", "FISCAL_WARN_CONFIDENCE must be within [0,1]", ErrInvalidInput)
	}
	if c.Pipeline.FallbackDamping <= 0 || c.Pipeline.FallbackDamping >= 1 {
		return NewAppError("CONFIG_ERROR", "FISCAL_FALLBACK_DAMPING must be within (0,1)", ErrInvalidInput)
	}
	return nil
}
