package run

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"nails-service/api"
	"nails-service/pkg/response"
	"nails-service/pkg/sl"
)

type Cleaner interface {
	Cleanup(ctx context.Context) (int, error)
}

func New(log *slog.Logger, cleaner Cleaner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.cleanup.run.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		deleted, err := cleaner.Cleanup(r.Context())
		if err != nil {
			log.Error("Cleanup failed", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.FAILED_REQUEST, "cleanup failed"))
			return
		}

		log.Info("Cleanup finished", slog.Int("deleted", deleted))

		render.JSON(w, r, api.CleanupResponse{
			Message: "Старые записи удалены",
			Deleted: deleted,
		})
	}
}
