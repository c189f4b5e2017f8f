package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	// Empty values are ignored by the loader.
	for _, name := range []string{"HOST", "PORT", "ENV", "LOG_FORMAT", "PROTOCOL", "MAX_BODY_BYTES", "SOCKET_RECV_BUFFER", "SOCKET_SEND_BUFFER"} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, ProtocolHTTP1, cfg.Protocol)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, int64(4<<20), cfg.MaxBodyBytes)
	assert.Zero(t, cfg.SocketRecvBuffer)
	assert.Zero(t, cfg.SocketSendBuffer)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowOrigins)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowMethods)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowHeaders)
	assert.Equal(t, 3600, cfg.CORS.MaxAge)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("IDLE_TIMEOUT", "5s")
	t.Setenv("CORS_MAX_AGE", "60")
	t.Setenv("SOCKET_RECV_BUFFER", "65536")

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, 65536, cfg.SocketRecvBuffer)

	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 5*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 60, cfg.CORS.MaxAge)
}

func TestLoadInvalidPort(t *testing.T) {
	t.Setenv("PORT", "70000")

	_, err := Load(Options{})
	assert.Error(t, err)
}

func TestLoadOverridesWinOverEnv(t *testing.T) {
	t.Setenv("PORT", "9090")

	cfg, err := Load(Options{Overrides: map[string]any{"port": 7070}})
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "host: 10.0.0.1\nport: 8181\nprotocol: h2c\ncors:\n  allow_origins: [\"https://example.com\"]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(Options{File: path})
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1:8181", cfg.Addr())
	assert.Equal(t, ProtocolH2C, cfg.Protocol)
	assert.Equal(t, []string{"https://example.com"}, cfg.CORS.AllowOrigins)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowMethods)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(Options{File: filepath.Join(t.TempDir(), "absent.yaml")})
	assert.Error(t, err)
}

func TestLoadDotEnvFillsUnsetVars(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=9191\nHOST=127.0.0.2\n"), 0o644))
	t.Setenv("HOST", "127.0.0.3")
	// PORT must be unset so the dotenv entry applies; restore afterwards.
	t.Setenv("PORT", "")
	require.NoError(t, os.Unsetenv("PORT"))

	cfg, err := Load(Options{DotEnv: path})
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Port)
	assert.Equal(t, "127.0.0.3", cfg.Host)
}

func TestLoadMissingDotEnvIsIgnored(t *testing.T) {
	_, err := Load(Options{DotEnv: filepath.Join(t.TempDir(), ".env")})
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{Host: "h", Port: 1, Protocol: ProtocolHTTP1, LogFormat: "json", MaxBodyBytes: 1}
	}

	cfg := base()
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Host = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Protocol = "spdy"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.MaxBodyBytes = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.SocketSendBuffer = -1
	assert.Error(t, cfg.Validate())
}
