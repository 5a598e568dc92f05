package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Segmentation defaults
	DefaultStrategy     string
	DefaultTargetTokens int
	DefaultMinTokens    int
	ParentTokenBudget   int
	BoundaryLevels      []int

	// Advanced-repair overrides
	AdvancedMaxFactor   float64
	AdvancedMergeFactor float64
	NumberingMaxLen     int
	NumberingDigitRatio float64
	NumberingLookahead  int

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		APIKey: os.Getenv("KNOWFLOW_API_KEY"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		DefaultStrategy:     envOr("DEFAULT_STRATEGY", "smart"),
		DefaultTargetTokens: envInt("DEFAULT_TARGET_TOKENS", 512),
		DefaultMinTokens:    envInt("DEFAULT_MIN_TOKENS", 64),
		ParentTokenBudget:   envInt("PARENT_TOKEN_BUDGET", 2048),
		BoundaryLevels:      envIntList("BOUNDARY_LEVELS", []int{1, 2, 3}),

		AdvancedMaxFactor:   envFloat("ADVANCED_MAX_FACTOR", 1.5),
		AdvancedMergeFactor: envFloat("ADVANCED_MERGE_FACTOR", 1.2),
		NumberingMaxLen:     envInt("NUMBERING_MAX_LEN", 12),
		NumberingDigitRatio: envFloat("NUMBERING_DIGIT_RATIO", 0.6),
		NumberingLookahead:  envInt("NUMBERING_LOOKAHEAD", 3),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.DefaultTargetTokens <= 0 {
		cfg.DefaultTargetTokens = 512
	}
	if cfg.DefaultMinTokens <= 0 {
		cfg.DefaultMinTokens = 64
	}
	// Parents must hold at least one child's budget.
	if cfg.ParentTokenBudget < cfg.DefaultTargetTokens {
		cfg.ParentTokenBudget = 4 * cfg.DefaultTargetTokens
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("KNOWFLOW_API_KEY is required")
	}
	switch c.DefaultStrategy {
	case "basic", "smart", "advanced":
	default:
		return fmt.Errorf("DEFAULT_STRATEGY must be basic, smart or advanced, got %q", c.DefaultStrategy)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envIntList(key string, fallback []int) []int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []int
	for _, part := range strings.Split(v, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil && n >= 1 && n <= 6 {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
