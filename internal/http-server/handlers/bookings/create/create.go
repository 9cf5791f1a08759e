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

type BookingCreator interface {
	CreateBooking(ctx context.Context, req *api.BookingRequest) (*api.BookingCreated, error)
}

func New(log *slog.Logger, creator BookingCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.bookings.create.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req api.BookingRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				log.Warn("request body too large", slog.Int64("limit", tooLarge.Limit))
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				render.JSON(w, r, response.Error(response.TOO_LARGE, "Фотографии слишком большие"))
				return
			}

			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(response.BAD_REQUEST, "failed to decode request"))
			return
		}

		// photos are large, keep them out of the log
		log.Info("Request body decoded",
			slog.Int64("slot_id", req.SlotID),
			slog.String("type", req.Type),
			slog.Int("photos", len(req.Photos)),
		)

		booking, err := creator.CreateBooking(r.Context(), &req)

		var vErr *response.ValidationError
		if errors.As(err, &vErr) {
			log.Warn("invalid booking", slog.String("reason", vErr.Message))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(response.VALIDATION_FAILED, vErr.Message))
			return
		}

		if errors.Is(err, response.ErrLocked) {
			log.Error("slot is locked")
			w.WriteHeader(http.StatusLocked)
			render.JSON(w, r, response.Error(response.LOCKED, "Этот слот сейчас бронирует кто-то другой, попробуйте ещё раз"))
			return
		}

		if errors.Is(err, response.ErrSlotNotAvailable) {
			log.Error("slot is not available")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(response.SLOT_NOT_AVAILABLE, "Этот слот уже занят"))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("slot not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(response.NOT_FOUND, "Слот не найден"))
			return
		}

		if err != nil {
			log.Error("Failed to create booking", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.FAILED_REQUEST, "Не удалось создать запись"))
			return
		}

		log.Info("Booking created", slog.Int64("booking_id", booking.BookingID))

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, booking)
	}
}
