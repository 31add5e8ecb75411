package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/obarepl/internal/config"
	"github.com/KilimcininKorOglu/obarepl/internal/logging"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no args", []string{"obarepl"}, 1},
		{"help command", []string{"obarepl", "help"}, 0},
		{"short help flag", []string{"obarepl", "-h"}, 0},
		{"long help flag", []string{"obarepl", "--help"}, 0},
		{"unknown command", []string{"obarepl", "unknown"}, 1},
		{"version", []string{"obarepl", "version"}, 0},
		{"version short", []string{"obarepl", "version", "-short"}, 0},
		{"version help", []string{"obarepl", "version", "-help"}, 0},
		{"version bad flag", []string{"obarepl", "version", "-long"}, 1},
		{"serve help", []string{"obarepl", "serve", "-h"}, 0},
		{"decode help", []string{"obarepl", "decode", "-help"}, 0},
		{"decode", []string{"obarepl", "decode", "08343200"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, run(tt.args))
		})
	}
}

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	printVersion(&buf, true)
	assert.Equal(t, version+"\n", buf.String())

	buf.Reset()
	printVersion(&buf, false)
	assert.Contains(t, buf.String(), "obarepl version "+version)
	assert.Contains(t, buf.String(), "Protocol:   V8")
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestServeCmd_Errors(t *testing.T) {
	invalid := writeFile(t, "invalid.yaml", "replication:\n  serverID: 1\n  baseDN: dc=example,dc=com\n  windowSize: 0\n")
	malformed := writeFile(t, "malformed.yaml", "replication: [\n")

	tests := []struct {
		name string
		args []string
	}{
		{"missing config", []string{"-config", filepath.Join(t.TempDir(), "missing.yaml"), "-env-file", ""}},
		{"malformed config", []string{"-config", malformed, "-env-file", ""}},
		{"invalid config", []string{"-config", invalid, "-env-file", ""}},
		{"defaults need a server ID", []string{"-env-file", ""}},
		{"missing env file", []string{"-env-file", filepath.Join(t.TempDir(), "missing.env")}},
		{"bad flag", []string{"-port", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, 1, serveCmd(tt.args))
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := writeFile(t, "test.env", "OBAREPL_TEST_ENV_FILE=loaded\n")
	t.Cleanup(func() { os.Unsetenv("OBAREPL_TEST_ENV_FILE") })

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "loaded", os.Getenv("OBAREPL_TEST_ENV_FILE"))

	assert.NoError(t, loadEnvFile(""))
	assert.Error(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestLoadServeConfig(t *testing.T) {
	path := writeFile(t, "obarepl.yaml", "replication:\n  serverID: 5\n  baseDN: dc=example,dc=com\n")

	cfg, err := loadServeConfig(path, serveOverrides{})
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Replication.ServerID)
	assert.Equal(t, ":8989", cfg.Replication.Address)

	cfg, err = loadServeConfig(path, serveOverrides{address: ":18989", serverID: 9, logLevel: "debug"})
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Replication.ServerID)
	assert.Equal(t, ":18989", cfg.Replication.Address)
	assert.Equal(t, "debug", cfg.Logging.Level)

	cfg, err = loadServeConfig("", serveOverrides{serverID: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Replication.ServerID)

	_, err = loadServeConfig(filepath.Join(t.TempDir(), "missing.yaml"), serveOverrides{})
	assert.ErrorIs(t, err, config.ErrFileNotFound)
}

func TestServe_StopsOnContext(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Address = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- serve(ctx, cfg, "", logging.NewNop()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestServe_MetricsListenFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	cfg := testConfig()
	cfg.Metrics.Address = busy.Addr().String()

	errc := make(chan error, 1)
	go func() { errc <- serve(context.Background(), cfg, "", logging.NewNop()) }()

	select {
	case err := <-errc:
		assert.ErrorContains(t, err, "metrics server")
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not fail")
	}
}

func TestServe_ListenFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	cfg := testConfig()
	cfg.Replication.Address = busy.Addr().String()
	cfg.Metrics.Enabled = false

	err = serve(context.Background(), cfg, "", logging.NewNop())
	assert.ErrorContains(t, err, "failed to listen")
}
