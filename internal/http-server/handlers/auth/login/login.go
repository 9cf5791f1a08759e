package login

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"nails-service/api"
	"nails-service/pkg/middleware/adminauth"
	"nails-service/pkg/middleware/throttle"
	"nails-service/pkg/response"
	"nails-service/pkg/sl"
)

type Authenticator interface {
	Login(ctx context.Context, ip, password string) (*api.LoginResponse, error)
}

type CookieOptions struct {
	Secure bool
}

func New(log *slog.Logger, auth Authenticator, cookie CookieOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.auth.login.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req api.LoginRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(response.BAD_REQUEST, "failed to decode request"))
			return
		}

		ip := throttle.ClientIP(r)

		resp, err := auth.Login(r.Context(), ip, req.Password)

		if errors.Is(err, response.ErrTooManyAttempts) {
			log.Warn("too many login attempts", slog.String("ip", ip))
			w.WriteHeader(http.StatusTooManyRequests)
			render.JSON(w, r, response.Error(response.TOO_MANY_ATTEMPTS, "Слишком много попыток, попробуйте через час"))
			return
		}

		if errors.Is(err, response.ErrWrongPassword) {
			log.Warn("wrong admin password", slog.String("ip", ip))
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error(response.UNAUTHORIZED, "Неверный пароль"))
			return
		}

		if err != nil {
			log.Error("Failed to log in", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.FAILED_REQUEST, "failed to log in"))
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     adminauth.CookieName,
			Value:    resp.Token,
			Path:     "/",
			Expires:  resp.ExpiresAt,
			HttpOnly: true,
			Secure:   cookie.Secure,
			SameSite: http.SameSiteStrictMode,
		})

		log.Info("Admin logged in", slog.String("ip", ip))

		render.JSON(w, r, resp)
	}
}
