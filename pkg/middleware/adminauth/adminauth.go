package adminauth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"nails-service/pkg/response"
	"nails-service/pkg/sl"
)

const (
	HeaderName = "X-Admin-Token"
	CookieName = "admin_token"
)

type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (bool, error)
}

// TokenFromRequest prefers the header over the cookie.
func TokenFromRequest(r *http.Request) string {
	if token := r.Header.Get(HeaderName); token != "" {
		return token
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

func New(log *slog.Logger, verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		log := log.With(
			slog.String("component", "middleware/adminauth"),
		)

		fn := func(w http.ResponseWriter, r *http.Request) {
			ok, err := verifier.VerifyToken(r.Context(), TokenFromRequest(r))
			if err != nil {
				log.Error("Failed to verify admin token",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					sl.Err(err),
				)
				w.WriteHeader(http.StatusInternalServerError)
				render.JSON(w, r, response.Error(response.FAILED_REQUEST, "failed to verify session"))
				return
			}

			if !ok {
				log.Warn("unauthorized admin request",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("path", r.URL.Path),
				)
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error(response.UNAUTHORIZED, "Требуется авторизация"))
				return
			}

			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(fn)
	}
}
