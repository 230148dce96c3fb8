package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server ServerConfig
	Watch  WatchConfig
	OCR    OCRConfig
	Sink   SinkConfig
}

// ServerConfig holds control-surface configuration
type ServerConfig struct {
	Port     string // "0" binds an ephemeral port and prints HTTP_PORT=<n>
	LogLevel string
}

// WatchConfig holds ingestion-controller configuration
type WatchConfig struct {
	SettleDelay   time.Duration // wait before touching a freshly arrived file
	StopTimeout   time.Duration // bounded wait for watcher teardown
	MaxConcurrent int64         // cap on simultaneous pipeline runs
	LogCapacity   int           // bounded activity-log size
}

// OCRConfig holds text-extraction configuration
type OCRConfig struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for pages lacking a text layer, default 300
	MaxPages      int    // 0 = no limit
}

// SinkConfig holds remote-sink configuration
type SinkConfig struct {
	CredentialsPath string // service-account JSON for the Sheets backend
	WorksheetName   string // sheet/tab receiving rows, default "Sheet1"
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     getEnv("PORT", "8080"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Watch: WatchConfig{
			SettleDelay:   getEnvAsDuration("WATCH_SETTLE_DELAY", time.Second),
			StopTimeout:   getEnvAsDuration("WATCH_STOP_TIMEOUT", 3*time.Second),
			MaxConcurrent: int64(getEnvAsInt("WATCH_MAX_CONCURRENT", 4)),
			LogCapacity:   getEnvAsInt("WATCH_LOG_CAPACITY", 100),
		},
		OCR: OCRConfig{
			Pdftotext:     getEnv("OCR_PDFTOTEXT", "pdftotext"),
			Pdftoppm:      getEnv("OCR_PDFTOPPM", "pdftoppm"),
			Tesseract:     getEnv("OCR_TESSERACT", "tesseract"),
			TesseractLang: getEnv("OCR_LANG", "eng"),
			DPI:           getEnvAsInt("OCR_DPI", 300),
			MaxPages:      getEnvAsInt("OCR_MAX_PAGES", 0),
		},
		Sink: SinkConfig{
			CredentialsPath: getEnv("SINK_CREDENTIALS_PATH", "credentials.json"),
			WorksheetName:   getEnv("SINK_WORKSHEET", "Sheet1"),
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

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
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
	if c.Server.Port == "" {
		return NewAppError("CONFIG_ERROR", "PORT is required", nil)
	}
	if c.Watch.MaxConcurrent <= 0 {
		return NewAppError("CONFIG_ERROR", "WATCH_MAX_CONCURRENT must be positive", nil)
	}
	if c.Watch.LogCapacity <= 0 {
		return NewAppError("CONFIG_ERROR", "WATCH_LOG_CAPACITY must be positive", nil)
	}
	if c.OCR.DPI < 200 {
		return NewAppError("CONFIG_ERROR", "OCR_DPI must be at least 200", nil)
	}
	return nil
}
