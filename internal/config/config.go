package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/dfryer1193/timecapsule/shared/db/sqlite"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	defaultPort          = 8080
	defaultDataDir       = "./data"
	defaultMaxExports    = 2
	defaultThumbCache    = 128
	defaultLogLevel      = zerolog.InfoLevel
	defaultSelfieKeep    = 60
	defaultExportKeep    = 30
	defaultMaxUploadSize = 20 << 20
)

// Config is the server configuration, read from the environment.
type Config struct {
	Port    int
	DataDir string
	SQLite  *sqlite.SQLiteConfig

	MaxConcurrentExports int
	DiskBackedCanvas     bool
	ThumbnailCacheSize   int
	MaxUploadBytes       int64

	// default retention used by the cleanup endpoint when the request names none
	SelfieKeepDays int
	ExportKeepDays int

	LogLevel zerolog.Level
}

// Load seeds the environment from envFiles (".env" when none are given),
// ignoring files that do not exist, and reads the configuration from it.
// Variables already set in the environment win over file values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{
		DataDir: stringEnv("TIMECAPSULE_DATA_DIR", defaultDataDir),
		SQLite:  sqlite.NewSQLiteConfig(),
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	cfg.Port, err = intEnv("TIMECAPSULE_PORT", defaultPort, 1)
	collect(err)
	cfg.MaxConcurrentExports, err = intEnv("TIMECAPSULE_MAX_EXPORTS", defaultMaxExports, 1)
	collect(err)
	cfg.ThumbnailCacheSize, err = intEnv("TIMECAPSULE_THUMB_CACHE", defaultThumbCache, 1)
	collect(err)
	cfg.SelfieKeepDays, err = intEnv("TIMECAPSULE_SELFIE_KEEP_DAYS", defaultSelfieKeep, 0)
	collect(err)
	cfg.ExportKeepDays, err = intEnv("TIMECAPSULE_EXPORT_KEEP_DAYS", defaultExportKeep, 0)
	collect(err)
	maxUpload, err := intEnv("TIMECAPSULE_MAX_UPLOAD_BYTES", defaultMaxUploadSize, 1)
	collect(err)
	cfg.MaxUploadBytes = int64(maxUpload)
	cfg.DiskBackedCanvas, err = boolEnv("TIMECAPSULE_DISK_CANVAS", false)
	collect(err)

	cfg.LogLevel = defaultLogLevel
	if raw := os.Getenv("TIMECAPSULE_LOG_LEVEL"); raw != "" {
		cfg.LogLevel, err = zerolog.ParseLevel(strings.ToLower(raw))
		collect(err)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func stringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def, minimum int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if v < minimum {
		return 0, fmt.Errorf("%s must be at least %d, got %d", key, minimum, v)
	}
	return v, nil
}

func boolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
