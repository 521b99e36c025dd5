package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pharmacy/m/domain"
	"pharmacy/m/internal/access"
)

type ctxKey string

const ctxPrincipal ctxKey = "principal"

// principal is the caller as resolved for the current request.
type principal struct {
	ID   int64
	Role domain.Role
}

func principalFromContext(ctx context.Context) (principal, bool) {
	p, ok := ctx.Value(ctxPrincipal).(principal)
	return p, ok && p.ID > 0
}

func identityFromContext(ctx context.Context) (int64, bool) {
	p, ok := principalFromContext(ctx)
	return p.ID, ok
}

// authMiddleware verifies the bearer token and resolves its identity to a
// user that still exists. Tokens of deleted users are rejected like invalid
// ones.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		userID, err := h.tokens.Parse(strings.TrimSpace(header[len("Bearer "):]))
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		role, err := h.gate.Resolve(r.Context(), userID)
		if errors.Is(err, domain.ErrNotFound) {
			respondError(w, http.StatusUnauthorized, "unknown user")
			return
		}
		if err != nil {
			h.respondErr(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), ctxPrincipal, principal{ID: userID, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRoles only lets requests through whose caller holds one of
// allowed. It must run after authMiddleware.
func (h *Handler) requireRoles(allowed ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := principalFromContext(r.Context())
			if !ok {
				respondError(w, http.StatusUnauthorized, "missing identity")
				return
			}
			if err := access.Permits(p.Role, allowed...); err != nil {
				h.respondErr(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// observe logs every request and records its metrics under the matched
// route pattern.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		duration := time.Since(start)

		if h.metrics != nil {
			h.metrics.RecordHTTPRequest(r.Method, route, status, duration)
		}
		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("route", route).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", duration).
			Msg("request")
	})
}
