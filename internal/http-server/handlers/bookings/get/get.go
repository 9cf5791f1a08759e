package get

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

type BookingLister interface {
	ListBookings(ctx context.Context) ([]api.Booking, error)
}

func New(log *slog.Logger, lister BookingLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.bookings.get.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		bookings, err := lister.ListBookings(r.Context())
		if err != nil {
			log.Error("Failed to list bookings", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.FAILED_REQUEST, "Не удалось загрузить записи"))
			return
		}

		log.Debug("Bookings listed", slog.Int("count", len(bookings)))

		render.JSON(w, r, bookings)
	}
}
