package create

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

type SlotCreator interface {
	CreateSlot(ctx context.Context, req *api.SlotCreateRequest) (int64, error)
}

func New(log *slog.Logger, creator SlotCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.slots.create.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req api.SlotCreateRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(response.BAD_REQUEST, "failed to decode request"))
			return
		}

		if req.Date == "" || req.Time == "" {
			log.Error("date or time is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(response.VALIDATION_FAILED, "Укажите дату и время"))
			return
		}

		id, err := creator.CreateSlot(r.Context(), &req)

		var vErr *response.ValidationError
		if errors.As(err, &vErr) {
			log.Warn("invalid slot", slog.String("reason", vErr.Message))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(response.VALIDATION_FAILED, vErr.Message))
			return
		}

		if errors.Is(err, response.ErrSlotExists) {
			log.Warn("slot already exists", slog.String("date", req.Date), slog.String("time", req.Time))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(response.CONFLICT, "Такой слот уже существует"))
			return
		}

		if err != nil {
			log.Error("Failed to create slot", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.FAILED_REQUEST, "failed to create slot"))
			return
		}

		log.Info("Slot created", slog.Int64("id", id))

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, api.SlotCreateResponse{
			ID:      id,
			Message: "Слот добавлен",
		})
	}
}
