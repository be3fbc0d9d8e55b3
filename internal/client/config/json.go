package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/writedesk/internal/flagx"
	"github.com/dmitrijs2005/writedesk/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations are
// timex.Duration so the file may say "30s" or integer nanoseconds.
type JsonConfig struct {
	APIBaseURL      string         `json:"api_base_url"`
	RequestTimeout  timex.Duration `json:"request_timeout"`
	DBPath          string         `json:"db_path"`
	LogLevel        string         `json:"log_level"`
	LogBackend      string         `json:"log_backend"`
	SearchRateLimit float64        `json:"search_rate_limit"`
	SearchBurst     int            `json:"search_burst"`
	MetricsAddr     string         `json:"metrics_addr"`
	Ephemeral       bool           `json:"ephemeral"`
}

// parseJson overlays Config with the values set in the JSON file named by
// -c/-config or $WRITEDESK_CONFIG. Keys missing from the file keep their
// current value. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.DBPath != "" {
		cfg.DBPath = jc.DBPath
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
	if jc.LogBackend != "" {
		cfg.LogBackend = jc.LogBackend
	}
	if jc.SearchRateLimit > 0 {
		cfg.SearchRateLimit = jc.SearchRateLimit
	}
	if jc.SearchBurst > 0 {
		cfg.SearchBurst = jc.SearchBurst
	}
	if jc.MetricsAddr != "" {
		cfg.MetricsAddr = jc.MetricsAddr
	}
	if jc.Ephemeral {
		cfg.Ephemeral = true
	}
}
