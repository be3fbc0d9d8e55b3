package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultAPIBaseURL      = "http://127.0.0.1:8000"
	DefaultRequestTimeout  = 30 * time.Second
	DefaultLogLevel        = "info"
	DefaultLogBackend      = "slog"
	DefaultSearchRateLimit = 5.0
	DefaultSearchBurst     = 2

	dbFileName = "writedesk.db"
)

// Config holds runtime settings for the WriteDesk CLI.
//
// Fields:
//   - APIBaseURL: root of the WriteDesk HTTP API.
//   - RequestTimeout: upper bound for a single API request.
//   - DBPath: local SQLite file holding the persisted session.
//   - LogLevel / LogBackend: see logging.New.
//   - SearchRateLimit / SearchBurst: search calls per second and burst.
//   - MetricsAddr: address of the Prometheus endpoint; empty disables it.
//   - Ephemeral: keep the session in memory only.
type Config struct {
	APIBaseURL      string
	RequestTimeout  time.Duration
	DBPath          string
	LogLevel        string
	LogBackend      string
	SearchRateLimit float64
	SearchBurst     int
	MetricsAddr     string
	Ephemeral       bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = DefaultAPIBaseURL
	c.RequestTimeout = DefaultRequestTimeout
	c.DBPath = defaultDBPath()
	c.LogLevel = DefaultLogLevel
	c.LogBackend = DefaultLogBackend
	c.SearchRateLimit = DefaultSearchRateLimit
	c.SearchBurst = DefaultSearchBurst
	c.MetricsAddr = ""
	c.Ephemeral = false
}

// defaultDBPath puts the database in the user's config directory, or in the
// working directory when there is none.
func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return dbFileName
	}
	return filepath.Join(dir, "writedesk", dbFileName)
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
