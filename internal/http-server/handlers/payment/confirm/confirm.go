package confirm

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

type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, req *api.PaymentRequest) error
}

func New(log *slog.Logger, confirmer PaymentConfirmer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.payment.confirm.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req api.PaymentRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				log.Warn("request body too large", slog.Int64("limit", tooLarge.Limit))
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				render.JSON(w, r, response.Error(response.TOO_LARGE, "Чек слишком большой"))
				return
			}

			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(response.BAD_REQUEST, "failed to decode request"))
			return
		}

		err := confirmer.ConfirmPayment(r.Context(), &req)

		var vErr *response.ValidationError
		if errors.As(err, &vErr) {
			log.Warn("invalid payment", slog.String("reason", vErr.Message))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(response.VALIDATION_FAILED, vErr.Message))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("booking not found", slog.Int64("booking_id", req.BookingID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(response.NOT_FOUND, "Заявка не найдена"))
			return
		}

		if err != nil {
			log.Error("Failed to confirm payment", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.FAILED_REQUEST, "Не удалось отправить чек"))
			return
		}

		log.Info("Payment receipt stored", slog.Int64("booking_id", req.BookingID))

		render.JSON(w, r, api.MessageResponse{Message: "Оплата получена, мастер свяжется с вами"})
	}
}
