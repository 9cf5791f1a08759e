package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"nails-service/api"
	"nails-service/pkg/middleware/adminauth"
	"nails-service/pkg/response"
	"nails-service/pkg/sl"
)

type SessionCloser interface {
	Logout(ctx context.Context, token string) error
}

func New(log *slog.Logger, closer SessionCloser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.auth.logout.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if err := closer.Logout(r.Context(), adminauth.TokenFromRequest(r)); err != nil {
			log.Error("Failed to log out", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.FAILED_REQUEST, "failed to log out"))
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     adminauth.CookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})

		log.Info("Admin logged out")

		render.JSON(w, r, api.MessageResponse{Message: "Вы вышли"})
	}
}
