package config

import "os"

const (
	EnvAPIURL      = "PVAULT_API_URL"
	EnvDataDir     = "PVAULT_DATA_DIR"
	EnvDownloadDir = "PVAULT_DOWNLOAD_DIR"
)

// parseEnv overlays non-empty environment variables.
func parseEnv(cfg *Config) {
	if v, ok := os.LookupEnv(EnvAPIURL); ok && v != "" {
		cfg.APIBaseURL = v
	}
	if v, ok := os.LookupEnv(EnvDataDir); ok && v != "" {
		cfg.DataDir = v
	}
	if v, ok := os.LookupEnv(EnvDownloadDir); ok && v != "" {
		cfg.DownloadDest = v
	}
}
