package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"trading-signal-console/internal/domain/model"
	"trading-signal-console/internal/usecase"
)

// RateLimiter is the slice of the redis limiter the web layer needs.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RedeemLimit is the fixed-window budget applied per principal on the
// redemption endpoint.
type RedeemLimit struct {
	Attempts int
	Window   time.Duration
}

type Server struct {
	issuerUC   usecase.KeyIssuerUseCase
	keyAdminUC usecase.KeyAdminUseCase
	redeemerUC usecase.KeyRedeemerUseCase
	groupUC    usecase.GroupUseCase
	accessUC   usecase.AccessUseCase
	auth       *AuthManager
	limiter    RateLimiter
	limit      RedeemLimit
	log        *zerolog.Logger
}

func NewServer(
	issuerUC usecase.KeyIssuerUseCase,
	keyAdminUC usecase.KeyAdminUseCase,
	redeemerUC usecase.KeyRedeemerUseCase,
	groupUC usecase.GroupUseCase,
	accessUC usecase.AccessUseCase,
	auth *AuthManager,
	limiter RateLimiter,
	limit RedeemLimit,
	logger *zerolog.Logger,
) *Server {
	if limit.Attempts <= 0 {
		limit.Attempts = 10
	}
	if limit.Window <= 0 {
		limit.Window = time.Minute
	}
	return &Server{
		issuerUC:   issuerUC,
		keyAdminUC: keyAdminUC,
		redeemerUC: redeemerUC,
		groupUC:    groupUC,
		accessUC:   accessUC,
		auth:       auth,
		limiter:    limiter,
		limit:      limit,
		log:        logger,
	}
}

// Router builds the full API surface. Every privileged route passes through
// the session check, a role check, and the access gate; hiding a tab in the
// UI is never the enforcement point.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(TraceID())
	r.Use(RequestLog(s.log))
	r.Use(Recover(s.log))
	r.Use(Timeout(15 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Authenticate(s.auth))

		// End-user surface.
		r.Post("/redeem", s.handleRedeem)
		r.Get("/access", s.handleAccessCheck)
		r.Get("/access/tabs", s.handleAccessTabs)

		// Administrator surface: admin role plus the admin tab.
		r.Group(func(r chi.Router) {
			r.Use(RequireRole(RoleAdmin))
			r.Use(RequireTab(s.accessUC, model.TabAdmin))

			r.Post("/keys", s.handleGenerateKeys)
			r.Get("/keys", s.handleListKeys)
			r.Get("/keys/{id}", s.handleGetKey)
			r.Post("/keys/{id}/revoke", s.handleRevokeKey)
			r.Get("/groups", s.handleListGroups)
			r.Put("/principals/{id}/group", s.handleAssignGroup)
			r.Get("/grant-audits", s.handleListGrantAudits)
		})

		// Registry edits change what every other admin may do; superadmin only.
		r.Group(func(r chi.Router) {
			r.Use(RequireRole(RoleSuperAdmin))
			r.Use(RequireTab(s.accessUC, model.TabAdmin))

			r.Post("/groups", s.handleCreateGroup)
			r.Delete("/groups/{id}", s.handleDeleteGroup)
			r.Put("/groups/{id}/tabs", s.handleSetGroupTabs)
		})
	})

	return r
}
