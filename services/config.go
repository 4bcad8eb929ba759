// services/config.go
package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config carries every knob the services need. It is built once in main
// from the environment; evaluator, token derivation and aggregation only
// ever see this struct, never os.Getenv.
type Config struct {
	Season   string
	Location *time.Location

	// IncludePending widens aggregation from approved-only to
	// approved-or-pending card claims.
	IncludePending bool

	StorageDir string
	PublishDir string

	SubmitKey string
	AdminKey  string

	PublishInterval time.Duration
	PreprocessAt    string // HH:MM local time for the daily reviewer packet
}

// PolicyName is the aggregation policy label written into the snapshot.
func (c *Config) PolicyName() string {
	if c.IncludePending {
		return "approved_or_pending"
	}
	return "approved_only"
}

// LoadConfig reads the environment into a Config. Only main calls this.
func LoadConfig() (*Config, error) {
	tzName := envOr("BINGO_TIMEZONE", "Asia/Seoul")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid BINGO_TIMEZONE %q: %w", tzName, err)
	}

	storageDir := envOr("BINGO_STORAGE_DIR", "./data")
	publishDir := envOr("BINGO_PUBLISH_DIR", filepath.Join(storageDir, "publish"))

	interval := 15 * time.Minute
	if raw := os.Getenv("BINGO_PUBLISH_INTERVAL_MIN"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			return nil, fmt.Errorf("invalid BINGO_PUBLISH_INTERVAL_MIN %q", raw)
		}
		interval = time.Duration(minutes) * time.Minute
	}

	return &Config{
		Season:          envOr("BINGO_SEASON", "2026S1"),
		Location:        loc,
		IncludePending:  envBool("BINGO_INCLUDE_PENDING"),
		StorageDir:      storageDir,
		PublishDir:      publishDir,
		SubmitKey:       os.Getenv("BINGO_SUBMIT_KEY"),
		AdminKey:        os.Getenv("BINGO_ADMIN_KEY"),
		PublishInterval: interval,
		PreprocessAt:    envOr("BINGO_PREPROCESS_AT", "01:00"),
	}, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
