package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/pvault/internal/client/api"
	"github.com/dmitrijs2005/pvault/internal/client/download"
)

// Config holds runtime settings for the PVault CLI.
type Config struct {
	APIBaseURL     string
	DataDir        string
	DownloadDest   string
	RequestTimeout time.Duration
	LogLevel       string

	RequestsPerSecond float64
	Burst             int

	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = api.DefaultBaseURL
	c.DataDir = defaultDataDir()
	c.DownloadDest = "downloads"
	c.RequestTimeout = api.DefaultTimeout
	c.LogLevel = "info"
	c.RequestsPerSecond = 5
	c.Burst = 5
	c.S3Region = "us-east-1"
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "pvault")
	}
	return ".pvault"
}

// S3 returns the settings used when downloads go to a bucket.
func (c *Config) S3() download.S3Config {
	return download.S3Config{
		Region:    c.S3Region,
		Endpoint:  c.S3Endpoint,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
	}
}

// LoadConfig builds a Config from defaults, then the JSON file, then the
// environment, then flags found in args (usually os.Args[1:]). Later
// sources take precedence.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	parseEnv(cfg)
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
