// Package config loads threadline's configuration.
//
// # Resolution Order
//
//  1. Built-in defaults (Default)
//  2. ~/.config/threadline/config.toml, or the path passed to Load
//  3. THREADLINE_* environment variables
//
// A missing config file is not an error. Empty or whitespace-only values in
// the file keep the default.
//
// # File Format
//
//	server_url       = "http://127.0.0.1:8000"
//	media_url        = "https://threadline.sheline.me/"
//	username         = "alice"
//	latitude         = 40.71
//	longitude        = -74.0
//	timeout          = "10s"
//	max_retries      = 3
//	poll_interval    = "30s"
//	location_timeout = "15s"
//	feed_page_size   = 10
//	log_level        = "info"
//	log_file         = "~/.local/state/threadline/threadline.log"
//
// Durations use Go syntax ("500ms", "1m"). Paths starting with ~ expand
// to the home directory.
//
// # Environment
//
//	THREADLINE_SERVER_URL  THREADLINE_MEDIA_URL  THREADLINE_USERNAME
//	THREADLINE_LAT         THREADLINE_LON        THREADLINE_LOG_LEVEL
//
// Latitude and longitude must be set together. Without them the client
// has no location source and recommendation fetches fail with a
// LocationUnavailable error.
package config
