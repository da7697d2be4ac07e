package api

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/evep-health/evep/docs" // swagger docs registration
	"github.com/evep-health/evep/internal/entity"
	"github.com/evep-health/evep/internal/guard"
	"github.com/evep-health/evep/internal/obs"
)

func NewRouter(h *Handler, mw *Middleware) http.Handler {
	router := http.NewServeMux()

	router.HandleFunc("/api/health", h.Health)

	router.Handle("POST /api/v1/auth/login", mw.RateLimit(http.HandlerFunc(h.Login)))
	router.HandleFunc("POST /api/v1/auth/refresh", h.Refresh)
	router.Handle("POST /api/v1/auth/logout", mw.Auth(http.HandlerFunc(h.Logout)))
	router.Handle("GET /api/v1/auth/me", mw.Auth(http.HandlerFunc(h.Me)))

	router.Handle("GET /api/v1/access/menu", mw.Auth(http.HandlerFunc(h.Menu)))
	router.Handle("GET /api/v1/access/screening-types", mw.Auth(http.HandlerFunc(h.ScreeningTypes)))
	router.Handle("GET /api/v1/access/check", mw.Auth(http.HandlerFunc(h.CheckAccess)))

	router.Handle("POST /internal/api/sessions/revoke", mw.Auth(mw.Guard(guard.Requirement{
		Roles: []entity.Role{entity.RoleAdmin, entity.RoleSuperAdmin},
	}, http.HandlerFunc(h.ForceLogout))))

	router.Handle("GET /metrics", obs.Handler())
	router.HandleFunc("/api/swagger/", httpSwagger.WrapHandler)

	handler := use(router, mw.Recover, mw.Cors, obs.Instrument, mw.WithIP, mw.WithDeviceID, mw.Log)

	return handler
}

func use(handler http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		handler = mws[i](handler)
	}

	return handler
}
