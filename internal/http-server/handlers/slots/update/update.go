package update

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

type SlotUpdater interface {
	UpdateSlot(ctx context.Context, req *api.SlotUpdateRequest) error
}

func New(log *slog.Logger, updater SlotUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.slots.update.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req api.SlotUpdateRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(response.BAD_REQUEST, "failed to decode request"))
			return
		}

		err := updater.UpdateSlot(r.Context(), &req)

		var vErr *response.ValidationError
		if errors.As(err, &vErr) {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(response.VALIDATION_FAILED, vErr.Message))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("slot not found", slog.Int64("id", req.ID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(response.NOT_FOUND, "Слот не найден"))
			return
		}

		if err != nil {
			log.Error("Failed to update slot", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.FAILED_REQUEST, "failed to update slot"))
			return
		}

		log.Info("Slot updated", slog.Int64("id", req.ID), slog.Bool("available", *req.Available))

		render.JSON(w, r, api.MessageResponse{Message: "Слот обновлён"})
	}
}
