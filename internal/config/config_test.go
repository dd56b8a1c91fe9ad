package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"changemgmt/internal/config"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_CONN", "postgres://localhost/changes")
	t.Setenv("JWT_SIGNING_KEY", "secret")

	c, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:8080", c.ServerAddress)
	require.Equal(t, 24*time.Hour, c.SessionDuration)
	require.True(t, c.CookieSecure)
	require.Equal(t, 587, c.SMTP.Port)
	require.Equal(t, "Change Management System", c.SMTP.SenderName)
	require.Equal(t, "info", c.Log.Level)
	require.Equal(t, "/metrics", c.Metrics.Path)
	require.False(t, c.Admin.Configured())
	require.False(t, c.Mailgun.Configured())
	require.NoError(t, c.Validate())
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("ADMIN_USERNAME=root\nADMIN_PASSWORD=Secr3t!pw\nSMTP_PORT=2525\n"), 0o600))

	// godotenv never overrides variables that are already set.
	t.Setenv("SMTP_PORT", "465")
	t.Setenv("ADMIN_USERNAME", "")
	os.Unsetenv("ADMIN_USERNAME")
	t.Setenv("ADMIN_PASSWORD", "")
	os.Unsetenv("ADMIN_PASSWORD")

	c, err := config.Load(file, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	require.Equal(t, "root", c.Admin.Username)
	require.True(t, c.Admin.Configured())
	require.Equal(t, 465, c.SMTP.Port)
}

func TestValidate(t *testing.T) {
	t.Run("missing connection string", func(t *testing.T) {
		c := &config.Configuration{JWTSigningKey: "k", SessionDuration: time.Hour}
		require.ErrorIs(t, c.Validate(), config.ErrMissingPostgresConn)
	})
	t.Run("missing signing key", func(t *testing.T) {
		c := &config.Configuration{PostgresConn: "x", SessionDuration: time.Hour}
		require.ErrorIs(t, c.Validate(), config.ErrMissingSigningKey)
	})
	t.Run("bad metrics path", func(t *testing.T) {
		c := &config.Configuration{PostgresConn: "x", JWTSigningKey: "k", SessionDuration: time.Hour}
		c.Metrics.Enabled = true
		c.Metrics.Path = "metrics"
		require.Error(t, c.Validate())
	})
}

func TestLoadEnvCountsExistingFiles(t *testing.T) {
	n, err := config.LoadEnv([]string{filepath.Join(t.TempDir(), "nope")})
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestLoadEnvLocalOverridesBaseFile(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, ".env")
	local := filepath.Join(dir, ".env.local")
	require.NoError(t, os.WriteFile(base, []byte("CHANGEMGMT_TEST_LEVEL=info\nCHANGEMGMT_TEST_ADDR=base\nCHANGEMGMT_TEST_FIXED=base\n"), 0o600))
	require.NoError(t, os.WriteFile(local, []byte("CHANGEMGMT_TEST_LEVEL=debug\nCHANGEMGMT_TEST_FIXED=local\n"), 0o600))

	for _, key := range []string{"CHANGEMGMT_TEST_LEVEL", "CHANGEMGMT_TEST_ADDR"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv("CHANGEMGMT_TEST_FIXED", "process")

	n, err := config.LoadEnv([]string{base, local})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, "debug", os.Getenv("CHANGEMGMT_TEST_LEVEL"))
	require.Equal(t, "base", os.Getenv("CHANGEMGMT_TEST_ADDR"))
	require.Equal(t, "process", os.Getenv("CHANGEMGMT_TEST_FIXED"))
}
