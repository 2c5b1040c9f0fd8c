package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
	"github.com/taskforge/taskforge/internal/service"
	"github.com/taskforge/taskforge/internal/store"
	"github.com/taskforge/taskforge/internal/store/drivers/sqlite"
	"github.com/taskforge/taskforge/pkg/cryptox"
	"github.com/taskforge/taskforge/pkg/jwtx"
)

type testEnv struct {
	router *Router
	store  store.Store
	mfa    *service.MFAService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	newSigner := func(secret string, ttl time.Duration) jwtx.Signer {
		s, err := jwtx.NewSigner(secret, ttl)
		require.NoError(t, err)
		return s
	}

	cipher, err := cryptox.NewSecretCipher(bytes.Repeat([]byte{9}, 32))
	require.NoError(t, err)

	auth := &service.AuthService{
		Store:   st,
		Access:  newSigner("test-access", 10*time.Minute),
		Refresh: newSigner("test-refresh", 7*24*time.Hour),
		Pending: newSigner("test-pending", time.Hour),
	}
	mfa := &service.MFAService{Store: st, Cipher: cipher, Issuer: "Task Management"}

	logger := slog.New(slog.DiscardHandler)
	router := NewRouter("test", 7*24*time.Hour, st, logger)
	router.AuthService = auth
	router.UserService = &service.UserService{Store: st}
	router.MFAService = mfa
	router.TaskService = &service.TaskService{Store: st}
	router.ApplyRoutes()

	return &testEnv{router: router, store: st, mfa: mfa}
}

// doJSON sends a JSON request through the router. Each call carries a caller
// supplied IP so the per-IP rate limits do not interfere across tests.
func (e *testEnv) doJSON(t *testing.T, method, path, ip string, body any, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Real-IP", ip)
	for _, opt := range opts {
		opt(req)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// invalidTOTPCode returns a six digit code that is not valid for the secret
// in any window the validator accepts right now.
func invalidTOTPCode(t *testing.T, secret string) string {
	t.Helper()

	valid := map[string]bool{}
	for _, offset := range []time.Duration{-30 * time.Second, 0, 30 * time.Second} {
		code, err := totp.GenerateCode(secret, time.Now().Add(offset))
		require.NoError(t, err)
		valid[code] = true
	}
	for _, candidate := range []string{"000000", "111111", "222222", "333333"} {
		if !valid[candidate] {
			return candidate
		}
	}
	t.Fatal("all candidate codes collided with valid ones")
	return ""
}

func taskPath(id int64) string {
	return "/v1/tasks/" + strconv.FormatInt(id, 10)
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (e *testEnv) register(t *testing.T, ip, email string) {
	t.Helper()

	rec := e.doJSON(t, http.MethodPost, "/v1/auth/register", ip, map[string]any{
		"name":     "alice",
		"email":    email,
		"password": "Secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
}

func (e *testEnv) login(t *testing.T, ip, email string) (string, *http.Cookie) {
	t.Helper()

	rec := e.doJSON(t, http.MethodPost, "/v1/auth/login", ip, map[string]any{
		"email":    email,
		"password": "Secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	access, _ := body["accessToken"].(string)
	require.NotEmpty(t, access)

	for _, c := range rec.Result().Cookies() {
		if c.Name == refreshCookieName {
			require.True(t, c.HttpOnly)
			return access, c
		}
	}
	t.Fatal("refresh cookie not set")
	return "", nil
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	env.register(t, "10.1.0.1", "alice@example.com")

	t.Run("duplicate email", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodPost, "/v1/auth/register", "10.1.0.2", map[string]any{
			"name":     "imposter",
			"email":    "alice@example.com",
			"password": "Other4567",
		})
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Equal(t, "duplicate_email", decodeBody(t, rec)["error"])
	})

	t.Run("invalid payload", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodPost, "/v1/auth/register", "10.1.0.3", map[string]any{
			"name":     "bob",
			"email":    "not-an-email",
			"password": "Secret123",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("successful login", func(t *testing.T) {
		env.login(t, "10.1.0.4", "alice@example.com")
	})

	t.Run("unknown email", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodPost, "/v1/auth/login", "10.1.0.5", map[string]any{
			"email":    "ghost@example.com",
			"password": "Secret123",
		})
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, "user_not_found", decodeBody(t, rec)["error"])
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodPost, "/v1/auth/login", "10.1.0.6", map[string]any{
			"email":    "alice@example.com",
			"password": "wrongpass",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "invalid_credentials", decodeBody(t, rec)["error"])
	})
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "10.2.0.1", "alice@example.com")
	_, refreshCookie := env.login(t, "10.2.0.2", "alice@example.com")

	t.Run("valid cookie", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodPost, "/v1/auth/refresh", "10.2.0.3", nil, func(r *http.Request) {
			r.AddCookie(refreshCookie)
		})
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotEmpty(t, decodeBody(t, rec)["accessToken"])
	})

	t.Run("missing cookie", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodPost, "/v1/auth/refresh", "10.2.0.4", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "missing_refresh_token", decodeBody(t, rec)["error"])
	})

	t.Run("garbage cookie", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodPost, "/v1/auth/refresh", "10.2.0.5", nil, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: refreshCookieName, Value: "garbage"})
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "token_malformed", decodeBody(t, rec)["error"])
	})
}

func TestTwoFAFlow(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "10.3.0.1", "alice@example.com")
	access, _ := env.login(t, "10.3.0.2", "alice@example.com")

	// Step 1: enroll, receiving the QR PNG.
	rec := env.doJSON(t, http.MethodPost, "/v1/auth/2fa/enroll", "10.3.0.3", nil, withBearer(access))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	require.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG\r\n\x1a\n")))

	// Recover the TOTP secret the way an authenticator app would, so the
	// test can compute valid codes.
	user, err := env.store.Users().GetUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	encrypted, err := env.store.Users().GetTwoFASecret(context.Background(), user.ID)
	require.NoError(t, err)
	secret, err := env.mfa.Cipher.Decrypt(encrypted)
	require.NoError(t, err)

	// Step 2: a wrong code does not complete enrollment.
	rec = env.doJSON(t, http.MethodPost, "/v1/auth/2fa/enroll/verify", "10.3.0.4", map[string]string{
		"code": invalidTOTPCode(t, secret),
	}, withBearer(access))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Step 3: a valid code does.
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	rec = env.doJSON(t, http.MethodPost, "/v1/auth/2fa/enroll/verify", "10.3.0.5", map[string]string{
		"code": code,
	}, withBearer(access))
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Step 4: login now returns a pending token, not an access token.
	rec = env.doJSON(t, http.MethodPost, "/v1/auth/login", "10.3.0.6", map[string]any{
		"email":    "alice@example.com",
		"password": "Secret123",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	authToken, _ := decodeBody(t, rec)["authToken"].(string)
	require.NotEmpty(t, authToken)

	// The pending token never passes the access-token gate.
	rec = env.doJSON(t, http.MethodGet, "/v1/tasks", "10.3.0.7", nil, withBearer(authToken))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Step 5: the second factor releases the real pair.
	code, err = totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	rec = env.doJSON(t, http.MethodPost, "/v1/auth/2fa/verify", "10.3.0.8", map[string]string{
		"code": code,
	}, withBearer(authToken))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, decodeBody(t, rec)["accessToken"])

	var gotCookie bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == refreshCookieName {
			gotCookie = true
		}
	}
	require.True(t, gotCookie)

	// Re-enrollment is rejected once enabled.
	rec = env.doJSON(t, http.MethodPost, "/v1/auth/2fa/enroll", "10.3.0.9", nil, withBearer(access))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestTasksEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "10.4.0.1", "alice@example.com")
	access, _ := env.login(t, "10.4.0.2", "alice@example.com")

	t.Run("requires auth", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodGet, "/v1/tasks", "10.4.0.3", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	// Create.
	rec := env.doJSON(t, http.MethodPost, "/v1/tasks", "10.4.0.4", map[string]any{
		"title":   "write tests",
		"dueDate": "2026-09-15",
	}, withBearer(access))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody(t, rec)
	id := int64(created["id"].(float64))
	require.Equal(t, "write tests", created["title"])

	t.Run("rejects bad due date", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodPost, "/v1/tasks", "10.4.0.5", map[string]any{
			"title":   "oops",
			"dueDate": "15/09/2026",
		}, withBearer(access))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	// List and get.
	rec = env.doJSON(t, http.MethodGet, "/v1/tasks", "10.4.0.6", nil, withBearer(access))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.doJSON(t, http.MethodGet, taskPath(id), "10.4.0.7", nil, withBearer(access))
	require.Equal(t, http.StatusOK, rec.Code)

	// Update.
	rec = env.doJSON(t, http.MethodPut, taskPath(id), "10.4.0.8", map[string]any{
		"title":       "write better tests",
		"description": "cover the edges",
	}, withBearer(access))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "write better tests", decodeBody(t, rec)["title"])

	// Status toggle.
	rec = env.doJSON(t, http.MethodPatch, taskPath(id)+"/status", "10.4.0.9", map[string]any{
		"done": true,
	}, withBearer(access))
	require.Equal(t, http.StatusNoContent, rec.Code)

	t.Run("status requires done field", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodPatch, taskPath(id)+"/status", "10.4.0.10", map[string]any{}, withBearer(access))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	// Delete, then gone.
	rec = env.doJSON(t, http.MethodDelete, taskPath(id), "10.4.0.11", nil, withBearer(access))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.doJSON(t, http.MethodGet, taskPath(id), "10.4.0.12", nil, withBearer(access))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCurrentUser(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "10.6.0.1", "alice@example.com")
	access, _ := env.login(t, "10.6.0.2", "alice@example.com")

	t.Run("returns the authenticated profile", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodGet, "/v1/user", "10.6.0.3", nil, withBearer(access))
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		require.Equal(t, "alice", body["name"])
		require.Equal(t, "alice@example.com", body["email"])
		require.NotZero(t, body["id"])
	})

	t.Run("requires auth", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodGet, "/v1/user", "10.6.0.4", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("vanished user is a not found", func(t *testing.T) {
		// A well-signed token for an id with no row behind it.
		ghost, err := env.router.AuthService.Access.Sign("ghost", 99999)
		require.NoError(t, err)

		rec := env.doJSON(t, http.MethodGet, "/v1/user", "10.6.0.5", nil, withBearer(ghost))
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, "user_not_found", decodeBody(t, rec)["error"])
	})
}

func TestRefreshCookieSecureFlag(t *testing.T) {
	for _, tc := range []struct {
		name   string
		secure bool
	}{
		{"insecure for local development", false},
		{"secure outside development", true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := &AuthHandler{RefreshTokenTTL: time.Hour, SecureCookies: tc.secure}

			rec := httptest.NewRecorder()
			h.setRefreshCookie(rec, "token")

			cookies := rec.Result().Cookies()
			require.Len(t, cookies, 1)
			require.Equal(t, refreshCookieName, cookies[0].Name)
			require.True(t, cookies[0].HttpOnly)
			require.Equal(t, tc.secure, cookies[0].Secure)
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodGet, "/livez", "10.5.0.1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decodeBody(t, rec)["status"])

	rec = env.doJSON(t, http.MethodGet, "/readyz", "10.5.0.2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
