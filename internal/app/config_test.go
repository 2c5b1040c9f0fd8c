package app

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequiredSecrets(t *testing.T) {
	t.Helper()

	t.Setenv("ACCESS_TOKEN_SECRET", "access-secret")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh-secret")
	t.Setenv("TWOFA_TOKEN_SECRET", "twofa-secret")
	t.Setenv("SECRET_KEY", strings.Repeat("ab", 32))
}

func TestLoadConfig(t *testing.T) {
	setRequiredSecrets(t)

	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig(nil)
		require.NoError(t, err)
		require.Equal(t, 8080, cfg.Port)
		require.Equal(t, "taskforge.db", cfg.DatabaseFile)
		require.Equal(t, "Task Management", cfg.TOTPIssuer)
		require.Equal(t, 10*time.Second, cfg.ShutdownGracePeriod)
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("SHUTDOWN_GRACE_PERIOD", "30s")

		cfg, err := LoadConfig(nil)
		require.NoError(t, err)
		require.Equal(t, 9090, cfg.Port)
		require.Equal(t, 30*time.Second, cfg.ShutdownGracePeriod)
	})

	t.Run("flags beat env", func(t *testing.T) {
		t.Setenv("PORT", "9090")

		cfg, err := LoadConfig([]string{"--port", "7070", "--database", "other.db"})
		require.NoError(t, err)
		require.Equal(t, 7070, cfg.Port)
		require.Equal(t, "other.db", cfg.DatabaseFile)
	})

	t.Run("cipher key decodes", func(t *testing.T) {
		cfg, err := LoadConfig(nil)
		require.NoError(t, err)

		key, err := cfg.CipherKey()
		require.NoError(t, err)
		require.Len(t, key, 32)
	})
}

func TestLoadConfigValidation(t *testing.T) {
	t.Run("missing token secret", func(t *testing.T) {
		setRequiredSecrets(t)
		t.Setenv("ACCESS_TOKEN_SECRET", "")

		_, err := LoadConfig(nil)
		require.Error(t, err)
	})

	t.Run("non-hex cipher key", func(t *testing.T) {
		setRequiredSecrets(t)
		t.Setenv("SECRET_KEY", "zz")

		_, err := LoadConfig(nil)
		require.Error(t, err)
	})

	t.Run("short cipher key", func(t *testing.T) {
		setRequiredSecrets(t)
		t.Setenv("SECRET_KEY", "abcd")

		_, err := LoadConfig(nil)
		require.Error(t, err)
	})
}
