// Package httpapi exposes the fundkeeper JSON API over HTTP. Handlers decode
// requests, call the services and map service errors to status codes; all
// business rules live in the services and the access gate.
package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/fundkeeper/internal/logging"
	"github.com/dmitrijs2005/fundkeeper/internal/server/access"
	"github.com/dmitrijs2005/fundkeeper/internal/server/auth"
	"github.com/dmitrijs2005/fundkeeper/internal/server/config"
	"github.com/dmitrijs2005/fundkeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services bundles what the handlers call into.
type Services struct {
	Users    *services.UserService
	OAuth    *services.OAuthService
	Projects *services.ProjectService
	Funding  *services.FundingService
	Settings *services.SettingsService
	Admin    *services.AdminService
	Images   *services.ImageService
}

// API holds the handler dependencies.
type API struct {
	config   *config.Config
	logger   logging.Logger
	tokens   *auth.TokenService
	gate     *access.Gate
	svc      Services
	validate *validator.Validate
	sessions sessions.Store
	limiter  *ipRateLimiter
}

func NewAPI(cfg *config.Config, logger logging.Logger, tokens *auth.TokenService, gate *access.Gate, svc Services) *API {
	store := sessions.NewCookieStore([]byte(cfg.SecretKey))
	store.Options = &sessions.Options{
		Path:     "/api/auth",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}

	return &API{
		config:   cfg,
		logger:   logger.With("module", "httpapi"),
		tokens:   tokens,
		gate:     gate,
		svc:      svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		sessions: store,
		limiter:  newIPRateLimiter(cfg.LoginRatePerSecond, cfg.LoginBurst),
	}
}

// Routes builds the router with the full middleware chain.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestContext)
	r.Use(peerAddr)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(a.logger))
	r.Use(metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.config.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Timeout(a.config.RequestTimeout))
	r.Use(a.identity)

	r.Get("/healthz", a.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(a.limiter.Handler).Post("/register", a.register)
			r.With(a.limiter.Handler).Post("/login", a.login)
			r.Post("/logout", a.logout)
			r.With(a.requireAuth).Get("/me", a.me)
			r.Get("/google", a.googleStart)
			r.Get("/google/callback", a.googleCallback)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", a.listProjects)
			r.With(a.requireAuth).Post("/", a.createProject)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", a.getProject)
				r.Get("/image", a.projectImage)
				r.Group(func(r chi.Router) {
					r.Use(a.requireAuth)
					r.Put("/", a.updateProject)
					r.Put("/start", a.startProject)
					r.Post("/contribute", a.contribute)
					r.Post("/image", a.uploadProjectImage)
				})
			})
		})

		r.With(a.requireAuth).Get("/user/contributions", a.myContributions)

		r.Route("/admin", func(r chi.Router) {
			r.Use(a.requireAdmin)
			r.Get("/stats", a.adminStats)
			r.Get("/users", a.adminListUsers)
			r.Get("/users/{id}", a.adminGetUser)
			r.Put("/users/{id}", a.adminUpdateUser)
			r.Delete("/users/{id}", a.adminDeleteUser)
			r.Get("/projects", a.adminListProjects)
			r.Get("/projects/{id}", a.adminGetProject)
			r.Put("/projects/{id}", a.adminUpdateProject)
			r.Delete("/projects/{id}", a.adminDeleteProject)
			r.Put("/projects/{id}/status", a.adminSetProjectStatus)
			r.Get("/contributions", a.adminListContributions)
			r.Get("/reconciliation", a.adminReconciliation)
			r.Get("/settings", a.adminGetSettings)
			r.Put("/settings", a.adminPutSettings)
		})
	})

	return r
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) setSession(w http.ResponseWriter, token string) {
	auth.SetSessionCookie(w, token, a.tokens.TTL(), a.config.CookieSecure)
}

// caller returns the id of the authenticated caller. Routes using it sit
// behind requireAuth.
func caller(r *http.Request) int64 {
	claims, _ := access.IdentityFromContext(r.Context())
	if claims == nil {
		return 0
	}
	return claims.UserID
}
