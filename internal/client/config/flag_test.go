package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected  *Config
		name      string
		args      []string
		expectErr bool
	}{
		{
			name: "all flags",
			args: []string{"-a", "http://127.0.0.1:9090/api", "-d", "/tmp/pv", "-o", "out", "-t", "10", "-l", "warn"},
			expected: &Config{
				APIBaseURL:     "http://127.0.0.1:9090/api",
				DataDir:        "/tmp/pv",
				DownloadDest:   "out",
				RequestTimeout: 10 * time.Second,
				LogLevel:       "warn",
			},
		},
		{
			name:     "foreign flags are ignored",
			args:     []string{"-c", "cfg.json", "-t", "3", "--verbose"},
			expected: &Config{RequestTimeout: 3 * time.Second},
		},
		{name: "incorrect timeout", args: []string{"-t", "abc"}, expectErr: true},
		{name: "non-positive timeout", args: []string{"-t", "0"}, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{RequestTimeout: time.Second}
			err := parseFlags(cfg, tt.args)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.expected, cfg); diff != "" {
				t.Fatalf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
