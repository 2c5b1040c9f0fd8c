package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/taskforge/taskforge/internal/service"
	"github.com/taskforge/taskforge/internal/store"
	"github.com/taskforge/taskforge/pkg/httpx"
	"github.com/taskforge/taskforge/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store           store.Store
	refreshTokenTTL time.Duration

	// SecureCookies is threaded into the auth handlers; set it before
	// ApplyRoutes.
	SecureCookies bool

	AuthService *service.AuthService
	UserService *service.UserService
	MFAService  *service.MFAService
	TaskService *service.TaskService
}

func NewRouter(
	buildVersion string,
	refreshTokenTTL time.Duration,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:             http.NewServeMux(),
		buildVersion:    buildVersion,
		startTime:       time.Now(),
		store:           st,
		refreshTokenTTL: refreshTokenTTL,
		logger:          logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUser()
	r.registerTasks()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	authHandler := &AuthHandler{
		AuthService:     r.AuthService,
		UserService:     r.UserService,
		RefreshTokenTTL: r.refreshTokenTTL,
		SecureCookies:   r.SecureCookies,
	}
	twoFAHandler := &TwoFAHandler{
		MFAService:  r.MFAService,
		AuthService: r.AuthService,
		Auth:        authHandler,
	}

	accessAuthn := httpx.AuthnMiddleware(r.AuthService.Access)
	pendingAuthn := httpx.AuthnMiddleware(r.AuthService.Pending)

	// Public credential endpoints get the strict limit to slow down
	// enumeration and brute force.
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(authHandler.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(authHandler.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(authHandler.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/2fa/enroll",
		httpx.Chain(http.HandlerFunc(twoFAHandler.HandleEnroll),
			accessAuthn,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/2fa/enroll/verify",
		httpx.Chain(http.HandlerFunc(twoFAHandler.HandleEnrollVerify),
			accessAuthn,
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)

	// Guarded by the pending token from the login response, not an access
	// token.
	r.Mux.Handle("POST /v1/auth/2fa/verify",
		httpx.Chain(http.HandlerFunc(twoFAHandler.HandleLoginVerify),
			pendingAuthn,
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerUser() {
	userHandler := &UserHandler{
		UserService: r.UserService,
	}

	r.Mux.Handle("GET /v1/user",
		httpx.Chain(http.HandlerFunc(userHandler.HandleMe),
			httpx.AuthnMiddleware(r.AuthService.Access),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerTasks() {
	tasksHandler := &TasksHandler{
		TaskService: r.TaskService,
	}

	accessAuthn := httpx.AuthnMiddleware(r.AuthService.Access)
	limit := httpx.RateLimitByUser(httpx.LenientLimit)

	r.Mux.Handle("GET /v1/tasks",
		httpx.Chain(http.HandlerFunc(tasksHandler.HandleList), accessAuthn, limit))
	r.Mux.Handle("POST /v1/tasks",
		httpx.Chain(http.HandlerFunc(tasksHandler.HandleCreate), accessAuthn, limit))
	r.Mux.Handle("GET /v1/tasks/{id}",
		httpx.Chain(http.HandlerFunc(tasksHandler.HandleGet), accessAuthn, limit))
	r.Mux.Handle("PUT /v1/tasks/{id}",
		httpx.Chain(http.HandlerFunc(tasksHandler.HandleUpdate), accessAuthn, limit))
	r.Mux.Handle("PATCH /v1/tasks/{id}/status",
		httpx.Chain(http.HandlerFunc(tasksHandler.HandleSetStatus), accessAuthn, limit))
	r.Mux.Handle("DELETE /v1/tasks/{id}",
		httpx.Chain(http.HandlerFunc(tasksHandler.HandleDelete), accessAuthn, limit))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.store, r.startTime, r.buildVersion))
}
