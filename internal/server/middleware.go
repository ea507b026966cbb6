package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
)

// AdminSessionCookie carries the admin session token for browser requests.
const AdminSessionCookie = "admin_session"

// AdminAuth decides whether a request comes from an administrator: either
// the internal server-to-server key or an HS256 session token whose role
// claim is admin.
type AdminAuth struct {
	InternalAPIKey string
	JWTSecret      string
}

// Authorize reports whether r carries admin credentials.
func (a AdminAuth) Authorize(r *http.Request) bool {
	token := bearerToken(r)
	if token == "" {
		if c, err := r.Cookie(AdminSessionCookie); err == nil {
			token = strings.TrimSpace(c.Value)
		}
	}
	if token == "" {
		return false
	}

	if a.InternalAPIKey != "" && subtle.ConstantTimeCompare([]byte(token), []byte(a.InternalAPIKey)) == 1 {
		return true
	}
	if a.JWTSecret == "" {
		return false
	}
	return a.adminSession(token)
}

func (a AdminAuth) adminSession(raw string) bool {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(a.JWTSecret), nil
	})
	if err != nil || !tok.Valid {
		return false
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return false
	}
	role, _ := claims["role"].(string)
	return strings.EqualFold(role, "admin")
}

func bearerToken(r *http.Request) string {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return ""
}

// requireAdmin rejects requests without admin credentials.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.deps.Auth.Authorize(r) {
			s.log.Warn().Str("remote_addr", r.RemoteAddr).Str("path", r.URL.Path).Msg("Rejected non-admin request")
			s.respondError(w, http.StatusForbidden, "Forbidden: admin access required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs each request once it completes.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			event := log.Info()
			if status >= 400 {
				event = log.Warn()
			}
			if status >= 500 {
				event = log.Error()
			}
			event.
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("Request completed")
		})
	}
}

// securityHeaders adds security headers to all responses
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
