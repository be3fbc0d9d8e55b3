// Package config loads runtime configuration for the WriteDesk CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c/-config, or $WRITEDESK_CONFIG.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string    API base URL
//	-t int       request timeout (seconds)
//	-d string    local database path
//	-l string    log level
//	-m string    metrics listen address
//	-ephemeral   keep the session in memory only
//
// # JSON schema
//
//	{
//	  "api_base_url": "https://api.writedesk.example",
//	  "request_timeout": "30s",
//	  "db_path": "/home/me/.config/writedesk/writedesk.db",
//	  "log_level": "debug",
//	  "log_backend": "zap",
//	  "search_rate_limit": 5,
//	  "search_burst": 2,
//	  "metrics_addr": "127.0.0.1:9102",
//	  "ephemeral": false
//	}
package config
