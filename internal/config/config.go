package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Port        string // PORT
	LogLevel    string // LOG_LEVEL
	DatabaseURL string // DATABASE_URL
	Store       string // STORE: postgres | memory
	UploadDir   string // UPLOAD_DIR
	FFmpegPath  string // FFMPEG_PATH
	EncoderMode string // ENCODER_MODE: recode | transmux
	SecretKey   string // SECRET_KEY, для подписи сессий (пока не используется)
	MaxUploadMB int64  // MAX_UPLOAD_MB
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	maxUpload, err := strconv.ParseInt(getEnv("MAX_UPLOAD_MB", "2048"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("config: MAX_UPLOAD_MB: %w", err)
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Store:       strings.ToLower(getEnv("STORE", StorePostgres)),
		UploadDir:   getEnv("UPLOAD_DIR", "uploads"),
		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		EncoderMode: strings.ToLower(getEnv("ENCODER_MODE", "recode")),
		SecretKey:   getEnv("SECRET_KEY", "watchparty-secret"),
		MaxUploadMB: maxUpload,
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for STORE=postgres")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("config: unknown STORE %q", c.Store)
	}
	switch c.EncoderMode {
	case "recode", "transmux":
	default:
		return fmt.Errorf("config: unknown ENCODER_MODE %q", c.EncoderMode)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("config: invalid MAX_UPLOAD_MB %d", c.MaxUploadMB)
	}
	if c.UploadDir == "" {
		return errors.New("config: UPLOAD_DIR is empty")
	}
	return nil
}

func (c *Config) Addr() string { return ":" + c.Port }

func (c *Config) MaxUploadBytes() int64 { return c.MaxUploadMB << 20 }

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
