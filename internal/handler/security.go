package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/luxe-store/internal/domain/auth"
)

// APIKeyHeader carries the caller's API key.
const APIKeyHeader = "api_key"

func apiKey(r *http.Request) string {
	if k := r.Header.Get(APIKeyHeader); k != "" {
		return k
	}
	if v, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// authenticate resolves the API key, if any, to an identity stored in the
// request context. Requests without a key pass through anonymously; a key
// that does not resolve is rejected.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := apiKey(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		id, err := h.authn.Authenticate(ctx, raw)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthorized) {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "Not authorized, token failed"})
				return
			}
			h.fail(w, r, errors.Wrap(err, "authenticate"))
			return
		}

		ctx = auth.WithIdentity(ctx, id)
		ctx = zctx.Base(ctx, zctx.From(ctx).With(zap.String("user_id", id.UserID)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); !ok {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "Not authorized, no token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.FromContext(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "Not authorized, no token"})
			return
		}
		if !id.IsAdmin() {
			writeJSON(w, http.StatusForbidden, errorResponse{Message: "Not authorized as admin"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// identity returns the caller; routes using it are behind requireUser.
func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}
