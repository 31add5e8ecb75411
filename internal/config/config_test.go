package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Replication.ServerID = 101
	cfg.Replication.BaseDN = "dc=example,dc=com"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Empty(t, cfg.LDAP.Address)
	assert.Equal(t, 5*1024*1024, cfg.LDAP.MaxElementSize)
	assert.Equal(t, ":8989", cfg.Replication.Address)
	assert.Equal(t, 1, cfg.Replication.GroupID)
	assert.Equal(t, 8, cfg.Replication.ProtocolVersion)
	assert.Equal(t, 10*time.Second, cfg.Replication.HeartbeatInterval)
	assert.Equal(t, 100, cfg.Replication.WindowSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Replication.ProbeInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Assured.Timeout)

	// Server ID and base DN have no sensible default.
	errs := ValidateConfig(cfg)
	require.Len(t, errs, 2)
	assert.Equal(t, "replication.serverID", errs[0].(ValidationError).Field)
	assert.Equal(t, "replication.baseDN", errs[1].(ValidationError).Field)
}

func TestParseConfig(t *testing.T) {
	data := []byte(`
ldap:
  maxElementSize: 1024
replication:
  serverID: 7
  address: "0.0.0.0:18989"
  url: "rs7.example.com:18989"
  baseDN: "dc=example,dc=com"
  groupID: 3
  generationID: 4242
  protocolVersion: 4
  heartbeatInterval: 2s
  windowSize: 10
logging:
  level: debug
  format: text
assured:
  timeout: 750ms
`)

	cfg, err := ParseConfig(data)
	require.NoError(t, err)

	assert.Equal(t, 1024, cfg.LDAP.MaxElementSize)
	assert.Empty(t, cfg.LDAP.Address)
	assert.Equal(t, 7, cfg.Replication.ServerID)
	assert.Equal(t, "rs7.example.com:18989", cfg.Replication.AdvertisedURL())
	assert.Equal(t, 3, cfg.Replication.GroupID)
	assert.Equal(t, int64(4242), cfg.Replication.GenerationID)
	assert.Equal(t, 4, cfg.Replication.ProtocolVersion)
	assert.Equal(t, 2*time.Second, cfg.Replication.HeartbeatInterval)
	assert.Equal(t, 10, cfg.Replication.WindowSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Replication.ProbeInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 750*time.Millisecond, cfg.Assured.Timeout)
	assert.Empty(t, ValidateConfig(cfg))
}

func TestParseConfig_Empty(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", "replication: [serverID"},
		{"unknown key", "replication:\n  serverId: 7\n"},
		{"unknown section", "storage:\n  dataDir: /tmp\n"},
		{"wrong type", "replication:\n  windowSize: many\n"},
		{"bad duration", "replication:\n  heartbeatInterval: soon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data))
			assert.ErrorIs(t, err, ErrInvalidYAML)
		})
	}
}

func TestParseConfig_EnvSubstitution(t *testing.T) {
	t.Setenv("OBAREPL_TEST_SERVER_ID", "55")
	t.Setenv("OBAREPL_TEST_EMPTY", "")

	cfg, err := ParseConfig([]byte(`
replication:
  serverID: ${OBAREPL_TEST_SERVER_ID}
  baseDN: "${OBAREPL_TEST_UNSET:-dc=example,dc=com}"
  address: "${OBAREPL_TEST_EMPTY:-:7989}"
`))
	require.NoError(t, err)

	assert.Equal(t, 55, cfg.Replication.ServerID)
	assert.Equal(t, "dc=example,dc=com", cfg.Replication.BaseDN)
	assert.Equal(t, ":7989", cfg.Replication.Address)
	assert.Equal(t, ":7989", cfg.Replication.AdvertisedURL())
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "obarepl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("replication:\n  serverID: 9\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Replication.ServerID)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestValidateConfig(t *testing.T) {
	logDir := t.TempDir()

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"server ID zero", func(c *Config) { c.Replication.ServerID = 0 }, "replication.serverID"},
		{"server ID too large", func(c *Config) { c.Replication.ServerID = 70000 }, "replication.serverID"},
		{"missing address", func(c *Config) { c.Replication.Address = "" }, "replication.address"},
		{"address without port", func(c *Config) { c.Replication.Address = "localhost" }, "replication.address"},
		{"bad base DN", func(c *Config) { c.Replication.BaseDN = "not a dn" }, "replication.baseDN"},
		{"group ID zero", func(c *Config) { c.Replication.GroupID = 0 }, "replication.groupID"},
		{"group ID too large", func(c *Config) { c.Replication.GroupID = 128 }, "replication.groupID"},
		{"negative generation", func(c *Config) { c.Replication.GenerationID = -1 }, "replication.generationID"},
		{"version zero", func(c *Config) { c.Replication.ProtocolVersion = 0 }, "replication.protocolVersion"},
		{"version nine", func(c *Config) { c.Replication.ProtocolVersion = 9 }, "replication.protocolVersion"},
		{"version wraps", func(c *Config) { c.Replication.ProtocolVersion = 264 }, "replication.protocolVersion"},
		{"negative heartbeat", func(c *Config) { c.Replication.HeartbeatInterval = -time.Second }, "replication.heartbeatInterval"},
		{"zero window", func(c *Config) { c.Replication.WindowSize = 0 }, "replication.windowSize"},
		{"negative probe", func(c *Config) { c.Replication.ProbeInterval = -1 }, "replication.probeInterval"},
		{"negative threshold", func(c *Config) { c.Replication.DegradedStatusThreshold = -1 }, "replication.degradedStatusThreshold"},
		{"negative element size", func(c *Config) { c.LDAP.MaxElementSize = -1 }, "ldap.maxElementSize"},
		{"bad ldap address", func(c *Config) { c.LDAP.Address = "ldap" }, "ldap.address"},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"relative output", func(c *Config) { c.Logging.Output = "obarepl.log" }, "logging.output"},
		{"missing output dir", func(c *Config) { c.Logging.Output = filepath.Join(logDir, "nope", "x.log") }, "logging.output"},
		{"bad metrics address", func(c *Config) { c.Metrics.Address = "metrics" }, "metrics.address"},
		{"zero assured timeout", func(c *Config) { c.Assured.Timeout = 0 }, "assured.timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			errs := ValidateConfig(cfg)
			require.Len(t, errs, 1, "%v", errs)
			var verr ValidationError
			require.True(t, errors.As(errs[0], &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidateConfig_Accepts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"defaults", func(*Config) {}},
		{"oldest version", func(c *Config) { c.Replication.ProtocolVersion = 1 }},
		{"heartbeats off", func(c *Config) { c.Replication.HeartbeatInterval = 0 }},
		{"metrics off with no address", func(c *Config) { c.Metrics.Enabled = false; c.Metrics.Address = "" }},
		{"stderr output", func(c *Config) { c.Logging.Output = "stderr" }},
		{"file output", func(c *Config) { c.Logging.Output = filepath.Join(t.TempDir(), "obarepl.log") }},
		{"upper case level", func(c *Config) { c.Logging.Level = "WARN" }},
		{"ldap address", func(c *Config) { c.LDAP.Address = "ldap.example.com:389" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Empty(t, ValidateConfig(cfg))
		})
	}
}

func TestValidationError(t *testing.T) {
	err := ValidationError{Field: "replication.windowSize", Message: "must be positive"}
	assert.EqualError(t, err, "replication.windowSize: must be positive")
}

func TestNewWatcher_Errors(t *testing.T) {
	noop := func(*Config, *Config) {}

	_, err := NewWatcher(&WatcherConfig{OnChange: noop})
	assert.ErrorIs(t, err, ErrMissingConfigFile)

	_, err = NewWatcher(&WatcherConfig{FilePath: "/tmp/obarepl.yaml"})
	assert.ErrorIs(t, err, ErrMissingOnChange)

	_, err = NewWatcher(&WatcherConfig{FilePath: filepath.Join(t.TempDir(), "missing.yaml"), OnChange: noop})
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestWatcher_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obarepl.yaml")
	write := func(body string) {
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	}
	write("replication:\n  serverID: 1\n  baseDN: dc=example,dc=com\n  windowSize: 10\n")

	var mu sync.Mutex
	var changes [][2]*Config
	w, err := NewWatcher(&WatcherConfig{
		FilePath:     path,
		PollInterval: 5 * time.Millisecond,
		Debounce:     5 * time.Millisecond,
		OnChange: func(oldCfg, newCfg *Config) {
			mu.Lock()
			defer mu.Unlock()
			changes = append(changes, [2]*Config{oldCfg, newCfg})
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, w.Current().Replication.WindowSize)

	w.Start()
	w.Start()
	assert.True(t, w.IsRunning())
	defer w.Stop()

	// Invalid versions are skipped.
	write("replication:\n  serverID: 1\n  baseDN: dc=example,dc=com\n  windowSize: 0\n")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 10, w.Current().Replication.WindowSize)

	write("replication:\n  serverID: 1\n  baseDN: dc=example,dc=com\n  windowSize: 250\n")
	require.Eventually(t, func() bool {
		return w.Current().Replication.WindowSize == 250
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	require.Len(t, changes, 1)
	assert.Equal(t, 10, changes[0][0].Replication.WindowSize)
	assert.Equal(t, 250, changes[0][1].Replication.WindowSize)
	mu.Unlock()

	w.Stop()
	assert.False(t, w.IsRunning())
}
