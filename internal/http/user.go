package http

import (
	"errors"
	"net/http"

	"github.com/taskforge/taskforge/internal/service"
	"github.com/taskforge/taskforge/pkg/httpx"
	"github.com/taskforge/taskforge/pkg/slogx"
)

// UserHandler handles the current-user profile endpoint.
type UserHandler struct {
	UserService *service.UserService
}

// HandleMe handles GET /v1/user, returning the authenticated user's profile.
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromCtx(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "Missing authenticated user")
		return
	}

	user, err := h.UserService.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user_not_found", "No such user")
			return
		}
		log.Error("user lookup failed", "user_id", userID, "err", err)
		writeServerError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, userResponse{
		ID:    user.ID,
		Name:  user.Name,
		Age:   user.Age,
		Email: user.Email,
	})
}
