package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Corpus   CorpusConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
	LogLevel slog.Level
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // "pgx" or "sqlite"
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr       string
	GRPCAddr       string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// CorpusConfig points at the reference corpora used for calibration and few-shot prompts.
type CorpusConfig struct {
	DataDir  string // data*/result* text samples per document type
	ImageDir string // image*/result* samples per document type
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine             string // "textract" or "tesseract"
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	TesseractLang      string
	TessdataDir        string
	WorkDir            string
	DPI                int
}

// LLMConfig holds configuration for both extraction backends.
type LLMConfig struct {
	OpenAIModel   string
	OpenAIKey     string
	OpenAIBaseURL string
	GeminiModel   string
	GeminiKey     string
	Temperature   float32
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// PipelineConfig tunes the orchestrator.
type PipelineConfig struct {
	PageWorkers int
}

// LoadConfig loads configuration from environment variables. A .env file in the
// working directory is applied first without overriding variables already set.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("config.dotenv.load_error", "error", err)
	}
	return &Config{
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "pgx"),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:       getEnv("HTTP_ADDR", ":8000"),
			GRPCAddr:       getEnv("GRPC_ADDR", ":8081"),
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 3*time.Minute),
			MaxBodyBytes:   int64(getEnvAsInt("MAX_BODY_MB", 25)) << 20,
		},
		Corpus: CorpusConfig{
			DataDir:  getEnv("DATA_INJECT_DIR", "./data_inject"),
			ImageDir: getEnv("IMAGE_INJECT_DIR", "./image_inject"),
		},
		OCR: OCRConfig{
			Engine:             strings.ToLower(getEnv("OCR_ENGINE", "textract")),
			AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
			AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			TesseractLang:      getEnv("TESSERACT_LANG", "spa"),
			TessdataDir:        getEnv("TESSDATA_PREFIX", ""),
			WorkDir:            getEnv("WORK_DIR", os.TempDir()),
			DPI:                getEnvAsInt("PDF_DPI", 300),
		},
		LLM: LLMConfig{
			OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIKey:     getEnv("OPEN_AI_API_KEY", getEnv("OPENAI_API_KEY", "")),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash-lite"),
			GeminiKey:     getEnv("GEMINI_API_KEY", ""),
			Temperature:   getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:       getEnvAsDuration("LLM_TIMEOUT", 90*time.Second),
			RatePerSecond: getEnvAsFloat64("LLM_RATE_PER_SECOND", 2),
			Burst:         getEnvAsInt("LLM_BURST", 4),
		},
		Pipeline: PipelineConfig{
			PageWorkers: getEnvAsInt("PAGE_WORKERS", 4),
		},
		LogLevel: parseLevel(getEnv("LOG_LEVEL", "info")),
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
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

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate checks the settings the extraction service cannot start without.
func (c *Config) Validate() error {
	if c.LLM.OpenAIKey == "" {
		return NewAppError(CodeConfig, "OPEN_AI_API_KEY is required", ErrInvalidInput)
	}
	if c.LLM.GeminiKey == "" {
		return NewAppError(CodeConfig, "GEMINI_API_KEY is required", ErrInvalidInput)
	}
	if c.Corpus.DataDir == "" || c.Corpus.ImageDir == "" {
		return NewAppError(CodeConfig, "DATA_INJECT_DIR and IMAGE_INJECT_DIR are required", ErrInvalidInput)
	}
	switch c.OCR.Engine {
	case "textract", "tesseract":
	default:
		return NewAppError(CodeConfig, "OCR_ENGINE must be textract or tesseract", ErrInvalidInput)
	}
	switch c.Database.Driver {
	case "pgx", "sqlite":
	default:
		return NewAppError(CodeConfig, "DB_DRIVER must be pgx or sqlite", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError(CodeConfig, "HTTP_ADDR is required", ErrInvalidInput)
	}
	return nil
}
