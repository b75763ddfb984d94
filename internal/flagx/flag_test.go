package flagx

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-c", "conf.json", "-a", "http://localhost:8080/api"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "long flag with equals",
			args:         []string{"--config=alt.json", "-a", "http://localhost"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"--config=alt.json"},
		},
		{
			name:         "unknown flags ignored",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "flag without value at end is kept",
			args:         []string{"-o"},
			allowedFlags: []string{"-o"},
			want:         []string{"-o"},
		},
		{
			name:         "next dash token is not a value",
			args:         []string{"-c", "-t", "5"},
			allowedFlags: []string{"-c", "-t"},
			want:         []string{"-c", "-t", "5"},
		},
		{
			name:         "url values with equals inside survive",
			args:         []string{"-a=http://h/api?x=1"},
			allowedFlags: []string{"-a"},
			want:         []string{"-a=http://h/api?x=1"},
		},
		{
			name:         "repeated flag preserved in order",
			args:         []string{"-o", "one", "-o", "two"},
			allowedFlags: []string{"-o"},
			want:         []string{"-o", "one", "-o", "two"},
		},
		{
			name:         "empty args",
			args:         []string{},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowedFlags)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("FilterArgs() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestConfigPath(t *testing.T) {
	t.Run("short -c", func(t *testing.T) {
		t.Setenv(ConfigEnvName, "")
		assert.Equal(t, "/path/short.json", ConfigPath([]string{"-c", "/path/short.json"}))
	})

	t.Run("long -config mixed with other flags", func(t *testing.T) {
		t.Setenv(ConfigEnvName, "")
		assert.Equal(t, "/path/long.json", ConfigPath([]string{"-a", "http://x", "-config", "/path/long.json"}))
	})

	t.Run("last wins", func(t *testing.T) {
		t.Setenv(ConfigEnvName, "")
		assert.Equal(t, "/2.json", ConfigPath([]string{"-c", "/1.json", "-config", "/2.json"}))
	})

	t.Run("env fallback", func(t *testing.T) {
		t.Setenv(ConfigEnvName, "/env.json")
		assert.Equal(t, "/env.json", ConfigPath([]string{"-l", "debug"}))
	})

	t.Run("flag beats env", func(t *testing.T) {
		t.Setenv(ConfigEnvName, "/env.json")
		assert.Equal(t, "/flag.json", ConfigPath([]string{"-c", "/flag.json"}))
	})

	t.Run("nothing given", func(t *testing.T) {
		t.Setenv(ConfigEnvName, "")
		assert.Empty(t, ConfigPath(nil))
	})
}
