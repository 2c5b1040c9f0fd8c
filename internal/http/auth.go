package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/taskforge/taskforge/internal/service"
	"github.com/taskforge/taskforge/pkg/httpx"
	"github.com/taskforge/taskforge/pkg/jwtx"
	"github.com/taskforge/taskforge/pkg/slogx"
)

// AuthHandler handles registration, login and token refresh.
type AuthHandler struct {
	AuthService *service.AuthService
	UserService *service.UserService

	RefreshTokenTTL time.Duration

	// SecureCookies marks the refresh cookie Secure. Off in dev so plain
	// http still works locally.
	SecureCookies bool
}

const refreshCookieName = "refreshToken"

// setRefreshCookie stores the refresh token in an httpOnly cookie scoped to
// the auth endpoints, so scripts never see it and it only travels where it
// is needed.
func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/v1/auth",
		MaxAge:   int(h.RefreshTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Age      *int   `json:"age" validate:"omitempty,gte=0,lte=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Age   *int   `json:"age,omitempty"`
	Email string `json:"email"`
}

// HandleRegister handles POST /v1/auth/register.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	req, err := bindAndValidate[registerRequest](r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	user, err := h.UserService.Register(ctx, req.Name, req.Age, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "duplicate_email", "An account with this email already exists")
			return
		}
		log.Error("registration failed", "err", err)
		writeServerError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, userResponse{
		ID:    user.ID,
		Name:  user.Name,
		Age:   user.Age,
		Email: user.Email,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles POST /v1/auth/login.
//
// Accounts without 2FA get 200 with an access token and the refresh cookie.
// Accounts with 2FA get 202 with a short-lived auth token and must call the
// 2FA verify endpoint to finish.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	req, err := bindAndValidate[loginRequest](r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	res, err := h.AuthService.Login(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "user_not_found", "No account exists for this email")
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "Email or password is incorrect")
		default:
			log.Error("login failed", "err", err)
			writeServerError(w)
		}
		return
	}

	if res.TwoFARequired {
		httpx.WriteJSON(w, http.StatusAccepted, map[string]string{
			"authToken": res.AuthToken,
		})
		return
	}

	h.setRefreshCookie(w, res.RefreshToken)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"accessToken": res.AccessToken,
	})
}

// HandleRefresh handles POST /v1/auth/refresh.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing_refresh_token", "No refresh token cookie present")
		return
	}

	access, err := h.AuthService.RefreshAccess(cookie.Value)
	if err != nil {
		switch {
		case errors.Is(err, jwtx.ErrExpired):
			writeError(w, http.StatusUnauthorized, "token_expired", "Refresh token has expired, log in again")
		case errors.Is(err, jwtx.ErrNotYetValid):
			writeError(w, http.StatusUnauthorized, "token_not_yet_valid", "Refresh token is not valid yet")
		default:
			writeError(w, http.StatusUnauthorized, "token_malformed", "Refresh token could not be verified")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"accessToken": access,
	})
}
