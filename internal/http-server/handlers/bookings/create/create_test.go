package create

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nails-service/api"
	"nails-service/pkg/response"
)

type creatorFunc func(ctx context.Context, req *api.BookingRequest) (*api.BookingCreated, error)

func (f creatorFunc) CreateBooking(ctx context.Context, req *api.BookingRequest) (*api.BookingCreated, error) {
	return f(ctx, req)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCreateBookingHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "created",
			body:       `{"slot_id":1,"name":"Anna","contact":"@anna","type":"not_sure"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "bad json",
			body:       `{"slot_id":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   string(response.BAD_REQUEST),
		},
		{
			name:       "validation",
			body:       `{"slot_id":1}`,
			err:        fmt.Errorf("service.CreateBooking: %w", response.Invalid("Заполните все обязательные поля")),
			wantStatus: http.StatusBadRequest,
			wantCode:   string(response.VALIDATION_FAILED),
		},
		{
			name:       "slot taken",
			body:       `{"slot_id":1,"name":"Anna","contact":"@anna"}`,
			err:        fmt.Errorf("service.CreateBooking: %w", response.ErrSlotNotAvailable),
			wantStatus: http.StatusConflict,
			wantCode:   string(response.SLOT_NOT_AVAILABLE),
		},
		{
			name:       "locked",
			body:       `{"slot_id":1,"name":"Anna","contact":"@anna"}`,
			err:        response.ErrLocked,
			wantStatus: http.StatusLocked,
			wantCode:   string(response.LOCKED),
		},
		{
			name:       "internal",
			body:       `{"slot_id":1,"name":"Anna","contact":"@anna"}`,
			err:        assert.AnError,
			wantStatus: http.StatusInternalServerError,
			wantCode:   string(response.FAILED_REQUEST),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *api.BookingRequest
			h := New(discard(), creatorFunc(func(_ context.Context, req *api.BookingRequest) (*api.BookingCreated, error) {
				got = req
				if tt.err != nil {
					return nil, tt.err
				}
				return &api.BookingCreated{BookingID: 42, Photos: []string{}}, nil
			}))

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(tt.body)))

			require.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantCode != "" {
				var resp response.Response
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, tt.wantCode, resp.Code)
				assert.NotEmpty(t, resp.Error)
				return
			}

			var created api.BookingCreated
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
			assert.Equal(t, int64(42), created.BookingID)
			assert.Equal(t, "Anna", got.Name)
			assert.Equal(t, "not_sure", got.Type)
		})
	}
}

func TestCreateBookingHandler_BodyLimit(t *testing.T) {
	called := false
	h := chimw.RequestSize(256)(New(discard(), creatorFunc(func(context.Context, *api.BookingRequest) (*api.BookingCreated, error) {
		called = true
		return &api.BookingCreated{}, nil
	})))

	body := `{"slot_id":1,"name":"Anna","contact":"@anna","photos":["data:image/png;base64,` + strings.Repeat("A", 4096) + `"]}`

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body)))

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	var resp response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(response.TOO_LARGE), resp.Code)
	assert.False(t, called)
}
