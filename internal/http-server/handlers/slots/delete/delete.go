package delete

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"nails-service/api"
	"nails-service/pkg/response"
	"nails-service/pkg/sl"
)

type SlotDeleter interface {
	DeleteSlot(ctx context.Context, id int64) error
}

func New(log *slog.Logger, deleter SlotDeleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.slots.delete.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req api.SlotDeleteRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(response.BAD_REQUEST, "failed to decode request"))
			return
		}

		err := deleter.DeleteSlot(r.Context(), req.SlotID)

		var vErr *response.ValidationError
		if errors.As(err, &vErr) {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(response.VALIDATION_FAILED, vErr.Message))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("slot not found", slog.Int64("id", req.SlotID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(response.NOT_FOUND, "Слот не найден"))
			return
		}

		if errors.Is(err, response.ErrConflict) {
			log.Warn("slot has a booking", slog.Int64("id", req.SlotID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(response.CONFLICT, "На этот слот есть запись, сначала удалите её"))
			return
		}

		if err != nil {
			log.Error("Failed to delete slot", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.FAILED_REQUEST, "failed to delete slot"))
			return
		}

		log.Info("Slot deleted", slog.Int64("id", req.SlotID))

		render.JSON(w, r, api.MessageResponse{Message: "Слот удалён"})
	}
}
