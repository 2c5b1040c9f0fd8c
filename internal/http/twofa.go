package http

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"github.com/taskforge/taskforge/internal/service"
	"github.com/taskforge/taskforge/pkg/httpx"
	"github.com/taskforge/taskforge/pkg/slogx"
)

// TwoFAHandler handles TOTP enrollment and verification.
type TwoFAHandler struct {
	MFAService  *service.MFAService
	AuthService *service.AuthService
	Auth        *AuthHandler
}

type twoFACodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// HandleEnroll handles POST /v1/auth/2fa/enroll.
//
// Responds with the provisioning QR code as a PNG. Scanning it and then
// confirming a code via the enroll verify endpoint completes enrollment.
func (h *TwoFAHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromCtx(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "Missing authenticated user")
		return
	}
	username, _ := httpx.UsernameFromCtx(ctx)

	var buf bytes.Buffer
	if err := h.MFAService.BeginEnrollment(ctx, userID, username, &buf); err != nil {
		switch {
		case errors.Is(err, service.ErrTwoFAEnabled):
			writeError(w, http.StatusConflict, "twofa_already_enabled", "Two-factor authentication is already enabled")
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "user_not_found", "No such user")
		case errors.Is(err, service.ErrQRGeneration):
			log.Error("qr generation failed", "user_id", userID, "err", err)
			writeError(w, http.StatusInternalServerError, "qr_generation_failed", "Could not render the enrollment QR code")
		default:
			log.Error("enrollment failed", "user_id", userID, "err", err)
			writeServerError(w)
		}
		return
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// HandleEnrollVerify handles POST /v1/auth/2fa/enroll/verify.
//
// A valid code here confirms enrollment and turns 2FA on for the account.
func (h *TwoFAHandler) HandleEnrollVerify(w http.ResponseWriter, r *http.Request) {
	h.verifyCode(w, r, true)
}

// HandleLoginVerify handles POST /v1/auth/2fa/verify.
//
// This is the second step of a 2FA login: the route is gated by the pending
// token from the login response, and a valid code releases the real token
// pair.
func (h *TwoFAHandler) HandleLoginVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromCtx(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "Missing authenticated user")
		return
	}
	username, _ := httpx.UsernameFromCtx(ctx)

	req, err := bindAndValidate[twoFACodeRequest](r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	if err := h.MFAService.VerifyCode(ctx, userID, req.Code, false); err != nil {
		h.writeVerifyError(w, log, userID, err)
		return
	}

	pair, err := h.AuthService.IssuePair(username, userID)
	if err != nil {
		log.Error("token issuance failed", "user_id", userID, "err", err)
		writeServerError(w)
		return
	}

	h.Auth.setRefreshCookie(w, pair.RefreshToken)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"accessToken": pair.AccessToken,
	})
}

func (h *TwoFAHandler) verifyCode(w http.ResponseWriter, r *http.Request, confirmEnrollment bool) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromCtx(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "Missing authenticated user")
		return
	}

	req, err := bindAndValidate[twoFACodeRequest](r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	if err := h.MFAService.VerifyCode(ctx, userID, req.Code, confirmEnrollment); err != nil {
		h.writeVerifyError(w, log, userID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TwoFAHandler) writeVerifyError(w http.ResponseWriter, log *slog.Logger, userID int64, err error) {
	switch {
	case errors.Is(err, service.ErrSecretNotFound):
		writeError(w, http.StatusNotFound, "twofa_secret_not_found", "No two-factor enrollment found for this account")
	case errors.Is(err, service.ErrCodeNotValid):
		writeError(w, http.StatusBadRequest, "twofa_code_not_valid", "The provided code is not valid")
	default:
		log.Error("code verification failed", "user_id", userID, "err", err)
		writeServerError(w)
	}
}
