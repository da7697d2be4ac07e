package api

import (
	"context"
	"crypto/md5" //nolint:gosec // MD5 used for device fingerprinting, not cryptography
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v4/request"
	"golang.org/x/time/rate"

	"github.com/evep-health/evep/internal/entity"
	"github.com/evep-health/evep/internal/guard"
	"github.com/evep-health/evep/pkg/config"
	"github.com/evep-health/evep/pkg/logger"
)

type AuthService interface {
	ValidateToken(ctx context.Context, accessToken string) (entity.User, error)
	VerifySessionHash(ctx context.Context, userID uuid.UUID, hash string) error
}

type Middleware struct {
	auth AuthService
	cfg  config.Config

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewMiddleware(auth AuthService, cfg config.Config) *Middleware {
	return &Middleware{
		auth:     auth,
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (m *Middleware) Cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Origin, Accept, User-Agent, Cache-Control, X-Session-Hash")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) Log(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ctx := logger.SetRequestID(r.Context(), uuid.Must(uuid.NewV4()).String())

		ctx = logger.SetMethod(ctx, r.Method)
		ctx = logger.SetURL(ctx, r.URL.Path)
		ctx = logger.SetUserAgent(ctx, r.UserAgent())
		ctx = logger.SetLogType(ctx, "webrequest")

		ip := entity.IPFromCtx(ctx)
		ctx = logger.SetIP(ctx, ip)

		deviceID := entity.DeviceIDFromCtx(ctx)
		ctx = logger.SetDeviceID(ctx, deviceID)

		slog.InfoContext(ctx, "incoming request")

		next.ServeHTTP(w, r.WithContext(ctx))

		duration := time.Since(start)
		slog.InfoContext(ctx, "request completed", "duration_ms", duration.Milliseconds())
	})
}

func (m *Middleware) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func(ctx context.Context) {
			err := recover()
			if err != nil {
				slog.ErrorContext(ctx, "panic", "error", err, "stack", string(debug.Stack()))
				w.WriteHeader(http.StatusInternalServerError)
			}
		}(r.Context())
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) WithIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := removePort(r.RemoteAddr)

		if xForwardedFor := r.Header.Get("X-Forwarded-For"); xForwardedFor != "" {
			parts := splitAndTrim(xForwardedFor, ",")

			for _, part := range parts {
				part = removePort(part)
				if isValidIP(part) {
					ip = part
					break
				}
			}
		}

		if xRealIP := r.Header.Get("X-Real-IP"); xRealIP != "" {
			xRealIP = removePort(xRealIP)
			if isValidIP(xRealIP) {
				ip = xRealIP
			}
		}

		if !isValidIP(ip) {
			slog.Warn("invalid IP detected, using fallback", "ip", ip, "remote_addr", r.RemoteAddr)
			ip = "unknown"
		}

		ctx := context.WithValue(r.Context(), entity.CtxKeyIP{}, ip)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) WithDeviceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ip := entity.IPFromCtx(ctx)
		deviceID := hashDeviceID(ip, r.UserAgent())

		ctx = context.WithValue(ctx, entity.CtxKeyDeviceID{}, deviceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Auth validates the bearer token, optionally checks the session hash, and
// injects the user snapshot into the request context.
func (m *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ctx = logger.SetLogType(ctx, "auth")

		token, err := request.BearerExtractor{}.ExtractToken(r)
		if err != nil {
			slog.WarnContext(ctx, "auth: bearer token extract failed")
			sendErr(ctx, w, http.StatusUnauthorized, err, "unauthorized")

			return
		}

		user, err := m.auth.ValidateToken(ctx, token)
		if err != nil {
			code, msg := authErrStatus(err)
			slog.WarnContext(ctx, "auth: token validation failed", "error", err)
			sendErr(ctx, w, code, err, msg)

			return
		}

		if m.cfg.Auth.SessionHashRequired {
			hash := r.Header.Get("X-Session-Hash")
			if err := m.auth.VerifySessionHash(ctx, user.ID, hash); err != nil {
				slog.WarnContext(ctx, "auth: session hash rejected", "user_id", user.ID)
				sendErr(ctx, w, http.StatusUnauthorized, err, "unauthorized")

				return
			}
		}

		ctx = logger.SetUserID(ctx, user.ID.String())
		ctx = entity.SetUserToContext(ctx, user)
		ctx = entity.SetTokenToContext(ctx, token)

		ctx = logger.SetLogType(ctx, "webrequest")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Guard binds a guard requirement to a handler. Auth must run first; the
// denial detail (required vs. actual role) is rendered, never hidden behind
// a silent redirect.
func (m *Middleware) Guard(req guard.Requirement, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sess := entity.Session{AccessToken: entity.TokenFromCtx(ctx)}
		if user, ok := entity.UserFromCtx(ctx); ok {
			sess.User = &user
		}

		decision := guard.Evaluate(sess, false, r.URL.Path, req)

		switch decision.State {
		case guard.StateGranted:
			next.ServeHTTP(w, r)
		case guard.StateDeniedUnauthenticated:
			slog.WarnContext(ctx, "guard: unauthenticated", "path", r.URL.Path)
			sendJSON(ctx, w, http.StatusUnauthorized, decision)
		default:
			slog.WarnContext(ctx, "guard: access denied",
				"path", r.URL.Path,
				"state", decision.State,
				"actual_role", decision.ActualRole,
				"required_roles", fmt.Sprintf("%v", decision.RequiredRoles),
			)
			sendJSON(ctx, w, http.StatusForbidden, decision)
		}
	})
}

// RateLimit throttles a handler per client IP.
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := entity.IPFromCtx(ctx)

		if !m.limiterFor(ip).Allow() {
			ctx = logger.SetLogType(ctx, "security")
			slog.WarnContext(ctx, "login rate limit exceeded", "ip", ip)
			sendErr(ctx, w, http.StatusTooManyRequests, entity.ErrTooManyRequests, "too many attempts, try again later")

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) limiterFor(ip string) *rate.Limiter {
	m.limMu.Lock()
	defer m.limMu.Unlock()

	lim, ok := m.limiters[ip]
	if !ok {
		perSecond := float64(m.cfg.Auth.LoginRatePerMinute) / 60.0
		lim = rate.NewLimiter(rate.Limit(perSecond), m.cfg.Auth.LoginRateBurst)
		m.limiters[ip] = lim
	}

	return lim
}

func removePort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return host
}

func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	result := []string{}

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func isValidIP(ip string) bool {
	if ip == "" {
		return false
	}

	parsedIP := net.ParseIP(ip)

	return parsedIP != nil
}

func hashDeviceID(ip, userAgent string) string {
	if ip == "" && userAgent == "" {
		return ""
	}

	data := fmt.Sprintf("%s|%s", ip, userAgent)
	hash := md5.Sum([]byte(data))

	return hex.EncodeToString(hash[:])
}
