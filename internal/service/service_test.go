package service

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/store"
	"github.com/taskforge/taskforge/internal/store/drivers/sqlite"
	"github.com/taskforge/taskforge/pkg/cryptox"
	"github.com/taskforge/taskforge/pkg/jwtx"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func newTestSigner(t *testing.T, secret string, ttl time.Duration) jwtx.Signer {
	t.Helper()

	s, err := jwtx.NewSigner(secret, ttl)
	require.NoError(t, err)
	return s
}

func newAuthService(t *testing.T, st store.Store) *AuthService {
	t.Helper()

	return &AuthService{
		Store:   st,
		Access:  newTestSigner(t, "test-access-secret", 10*time.Minute),
		Refresh: newTestSigner(t, "test-refresh-secret", 7*24*time.Hour),
		Pending: newTestSigner(t, "test-pending-secret", time.Hour),
	}
}

func newTestCipher(t *testing.T) *cryptox.SecretCipher {
	t.Helper()

	c, err := cryptox.NewSecretCipher(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	return c
}

func newMFAService(t *testing.T, st store.Store) *MFAService {
	t.Helper()

	return &MFAService{
		Store:  st,
		Cipher: newTestCipher(t),
		Issuer: "Task Management",
	}
}

func registerTestUser(t *testing.T, st store.Store, email, password string) domain.User {
	t.Helper()

	svc := &UserService{Store: st}
	u, err := svc.Register(context.Background(), "alice", nil, email, password)
	require.NoError(t, err)
	return u
}
