package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DevSecretKey is used when SECRET_KEY is unset outside production.
const DevSecretKey = "dev-secret-key-change-in-production"

// Config holds all application configuration
type Config struct {
	Environment string
	Log         LogConfig
	Database    DatabaseConfig
	Server      ServerConfig
	Auth        AuthConfig
	OCR         OCRConfig
	Extract     ExtractConfig
}

// LogConfig selects the slog handler built by the binaries
type LogConfig struct {
	Level  string // debug|info|warn|error
	Format string // text|json
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL             string // postgres://... or a sqlite file path / DSN
	DataPath        string // directory for the default sqlite file
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds listener addresses
type ServerConfig struct {
	HTTPAddr       string
	GRPCAddr       string
	MaxUploadBytes int64
}

// AuthConfig holds token settings
type AuthConfig struct {
	SecretKey      string
	TokenExpiresIn time.Duration
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine        string // exec|native
	Pdftotext     string
	Pdftoppm      string
	Tesseract     string
	TesseractLang string
	TessdataDir   string
	DPI           int
	MaxPages      int
	MaxPixels     int
	PSM           int // tesseract page segmentation mode, 0 keeps its default
	OEM           int // tesseract engine mode, 0 keeps its default
}

// ExtractConfig holds field extraction settings
type ExtractConfig struct {
	NameSplitPolicy string
	Timeout         time.Duration
	MinTextChars    int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			DataPath:        getEnv("DATA_PATH", "./data"),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			HTTPAddr:       getEnv("HTTP_ADDR", ":8000"),
			GRPCAddr:       getEnv("GRPC_ADDR", ":9090"),
			MaxUploadBytes: getEnvAsInt64("MAX_UPLOAD_BYTES", 20<<20),
		},
		Auth: AuthConfig{
			SecretKey:      getEnv("SECRET_KEY", ""),
			TokenExpiresIn: time.Duration(getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		},
		OCR: OCRConfig{
			Engine:        getEnv("OCR_ENGINE", "exec"),
			Pdftotext:     getEnv("PDFTOTEXT", "pdftotext"),
			Pdftoppm:      getEnv("PDFTOPPM", "pdftoppm"),
			Tesseract:     getEnv("TESSERACT", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			DPI:           getEnvAsInt("OCR_DPI", 300),
			MaxPages:      getEnvAsInt("OCR_MAX_PAGES", 0),
			MaxPixels:     getEnvAsInt("OCR_MAX_PIXELS", 0),
			PSM:           getEnvAsInt("OCR_PSM", 0),
			OEM:           getEnvAsInt("OCR_OEM", 0),
		},
		Extract: ExtractConfig{
			NameSplitPolicy: getEnv("NAME_SPLIT_POLICY", "last"),
			Timeout:         getEnvAsDuration("EXTRACT_TIMEOUT", 2*time.Minute),
			MinTextChars:    getEnvAsInt("MIN_TEXT_CHARS", 1),
		},
	}
}

// IsProduction reports whether internals must be hidden from API errors.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// DatabaseURL returns DATABASE_URL or the default sqlite file under DATA_PATH.
func (c *Config) DatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return filepath.Join(c.Database.DataPath, "orders.db")
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
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

// Validate checks the loaded configuration and fills the dev secret outside
// production. It returns true in the second value when the dev secret was used.
func (c *Config) Validate() (usedDevSecret bool, err error) {
	if c.Auth.SecretKey == "" {
		if c.IsProduction() {
			return false, NewAppError("CONFIG_ERROR", "SECRET_KEY is required in production", ErrInvalidInput)
		}
		c.Auth.SecretKey = DevSecretKey
		usedDevSecret = true
	}
	if c.Auth.TokenExpiresIn <= 0 {
		return usedDevSecret, NewAppError("CONFIG_ERROR", "ACCESS_TOKEN_EXPIRE_MINUTES must be positive", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return usedDevSecret, NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return usedDevSecret, NewAppError("CONFIG_ERROR", "MAX_UPLOAD_BYTES must be positive", ErrInvalidInput)
	}
	switch c.OCR.Engine {
	case "exec", "native":
	default:
		return usedDevSecret, NewAppError("CONFIG_ERROR", fmt.Sprintf("OCR_ENGINE must be exec or native, got %q", c.OCR.Engine), ErrInvalidInput)
	}
	if c.OCR.PSM < 0 || c.OCR.PSM > 13 {
		return usedDevSecret, NewAppError("CONFIG_ERROR", fmt.Sprintf("OCR_PSM must be between 0 and 13, got %d", c.OCR.PSM), ErrInvalidInput)
	}
	if c.OCR.OEM < 0 || c.OCR.OEM > 3 {
		return usedDevSecret, NewAppError("CONFIG_ERROR", fmt.Sprintf("OCR_OEM must be between 0 and 3, got %d", c.OCR.OEM), ErrInvalidInput)
	}
	switch strings.ToLower(c.Extract.NameSplitPolicy) {
	case "last", "first":
	default:
		return usedDevSecret, NewAppError("CONFIG_ERROR", fmt.Sprintf("NAME_SPLIT_POLICY must be last or first, got %q", c.Extract.NameSplitPolicy), ErrInvalidInput)
	}
	if c.Extract.Timeout <= 0 {
		return usedDevSecret, NewAppError("CONFIG_ERROR", "EXTRACT_TIMEOUT must be positive", ErrInvalidInput)
	}
	return usedDevSecret, nil
}
