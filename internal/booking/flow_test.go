package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nails-service/api"
	"nails-service/internal/client"
	"nails-service/internal/models"
	"nails-service/internal/notice"
	"nails-service/pkg/response"
)

type fakeAPI struct {
	bookingReqs []*api.BookingRequest
	payments    []int64
	bookingErr  error
	paymentErr  error
}

func (f *fakeAPI) CreateBooking(_ context.Context, req *api.BookingRequest) (*api.BookingCreated, error) {
	f.bookingReqs = append(f.bookingReqs, req)
	if f.bookingErr != nil {
		return nil, f.bookingErr
	}
	return &api.BookingCreated{BookingID: 42}, nil
}

func (f *fakeAPI) ConfirmPayment(_ context.Context, bookingID int64, _ string) error {
	f.payments = append(f.payments, bookingID)
	return f.paymentErr
}

type recorder struct {
	notices []notice.Notice
}

func (r *recorder) Notify(n notice.Notice) { r.notices = append(r.notices, n) }

func (r *recorder) last() notice.Notice {
	if len(r.notices) == 0 {
		return notice.Notice{}
	}
	return r.notices[len(r.notices)-1]
}

var (
	freeSlot  = api.TimeSlot{ID: 1, Date: "2024-06-01", Time: "10:00:00", Available: true}
	takenSlot = api.TimeSlot{ID: 2, Date: "2024-06-01", Time: "11:00:00", Available: false}
	payment   = PaymentInfo{Amount: 300, Card: "2202 2000 0000 0000", SBP: "+7 (999) 999-99-99", Recipient: "Анна"}
)

func TestSelectSlot_UnavailableIsNoop(t *testing.T) {
	f := NewFlow(&fakeAPI{}, nil, payment)

	assert.False(t, f.SelectSlot(takenSlot))
	assert.Equal(t, SelectingSlot, f.State())
	assert.False(t, f.IsOpen())
	_, ok := f.Slot()
	assert.False(t, ok)
}

func TestSubmitBooking_MissingFieldsSendNothing(t *testing.T) {
	tests := []struct {
		name string
		form FormData
	}{
		{"empty name", FormData{Contact: "@anna"}},
		{"empty contact", FormData{Name: "Anna"}},
		{"blank name", FormData{Name: "   ", Contact: "@anna"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAPI{}
			rec := &recorder{}
			f := NewFlow(fake, rec, payment)

			require.True(t, f.SelectSlot(freeSlot))
			f.SetForm(tt.form)

			err := f.SubmitBooking(context.Background())

			assert.ErrorIs(t, err, client.ErrValidation)
			assert.Empty(t, fake.bookingReqs)
			assert.Equal(t, FillingForm, f.State())
			assert.Equal(t, notice.Error, rec.last().Kind)
			assert.Equal(t, "Заполните все обязательные поля", rec.last().Message)
		})
	}
}

func TestSubmitBooking_RemoteFailureKeepsState(t *testing.T) {
	fake := &fakeAPI{bookingErr: &client.APIError{Status: http.StatusConflict, Message: "Этот слот уже занят"}}
	rec := &recorder{}
	f := NewFlow(fake, rec, payment)

	f.SelectSlot(freeSlot)
	f.SetForm(FormData{Name: "Anna", Contact: "@anna"})

	err := f.SubmitBooking(context.Background())
	require.Error(t, err)

	assert.Equal(t, FillingForm, f.State())
	assert.Equal(t, "Anna", f.Form().Name)
	assert.Zero(t, f.BookingID())
	assert.Equal(t, "Этот слот уже занят", rec.last().Message)
}

func TestConfirmEnabledOnlyWithReceipt(t *testing.T) {
	fake := &fakeAPI{}
	f := NewFlow(fake, nil, payment)

	f.SelectSlot(freeSlot)
	f.SetForm(FormData{Name: "Anna", Contact: "@anna"})
	require.NoError(t, f.SubmitBooking(context.Background()))

	info, ok := f.PaymentInfo()
	require.True(t, ok)
	assert.Equal(t, 300, info.Amount)

	assert.False(t, f.CanConfirm())
	assert.ErrorIs(t, f.SubmitPayment(context.Background()), client.ErrValidation)
	assert.Empty(t, fake.payments)

	f.AttachReceipt("data:image/jpeg;base64,AAA")
	assert.True(t, f.CanConfirm())
}

func TestSubmitPayment_FailureKeepsState(t *testing.T) {
	fake := &fakeAPI{paymentErr: client.ErrNetwork}
	rec := &recorder{}
	f := NewFlow(fake, rec, payment)

	f.SelectSlot(freeSlot)
	f.SetForm(FormData{Name: "Anna", Contact: "@anna"})
	require.NoError(t, f.SubmitBooking(context.Background()))
	f.AttachReceipt("data:image/jpeg;base64,AAA")

	require.Error(t, f.SubmitPayment(context.Background()))

	assert.Equal(t, AwaitingPayment, f.State())
	assert.True(t, f.CanConfirm())
	assert.Equal(t, int64(42), f.BookingID())
	assert.Equal(t, "Проблема с подключением", rec.last().Message)
}

func TestSelectSlot_IgnoredWhileAwaitingPayment(t *testing.T) {
	f := NewFlow(&fakeAPI{}, nil, payment)

	f.SelectSlot(freeSlot)
	f.SetForm(FormData{Name: "Anna", Contact: "@anna"})
	require.NoError(t, f.SubmitBooking(context.Background()))

	other := freeSlot
	other.ID = 3
	assert.False(t, f.SelectSlot(other))
	slot, _ := f.Slot()
	assert.Equal(t, int64(1), slot.ID)
}

func TestAddPhotos_CappedAtFive(t *testing.T) {
	f := NewFlow(&fakeAPI{}, nil, payment)

	assert.Equal(t, 3, f.AddPhotos("a", "b", "c"))
	assert.Equal(t, 2, f.AddPhotos("d", "e", "f", "g"))
	assert.Len(t, f.Photos(), MaxPhotos)

	f.RemovePhoto(0)
	f.RemovePhoto(10)
	assert.Equal(t, []string{"b", "c", "d", "e"}, f.Photos())
}

func TestClose_ResetsEverything(t *testing.T) {
	f := NewFlow(&fakeAPI{}, nil, payment)

	f.SelectSlot(freeSlot)
	f.SetForm(FormData{Name: "Anna", Contact: "@anna", Type: models.BookingNoDesign})
	f.AddPhotos("a")
	f.Close()

	assert.False(t, f.IsOpen())
	assert.Equal(t, SelectingSlot, f.State())
	assert.Equal(t, FormData{Type: models.BookingKnowWhatIWant}, f.Form())
	assert.Empty(t, f.Photos())
}

// Full flow against the real client and a fake server.
func TestEndToEnd(t *testing.T) {
	var gotBooking api.BookingRequest
	var gotPayment api.PaymentRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/slots":
			_ = json.NewEncoder(w).Encode([]api.TimeSlot{freeSlot})
		case "/bookings":
			_ = json.NewDecoder(r.Body).Decode(&gotBooking)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(api.BookingCreated{BookingID: 42})
		case "/payment":
			_ = json.NewDecoder(r.Body).Decode(&gotPayment)
			_ = json.NewEncoder(w).Encode(api.MessageResponse{Message: "ok"})
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(response.Error(response.NOT_FOUND, "not found"))
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c := client.New(srv.URL)
	rec := &recorder{}
	f := NewFlow(c, rec, payment)

	slots, err := c.ListSlots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 1)

	require.True(t, f.SelectSlot(slots[0]))
	assert.Equal(t, FillingForm, f.State())
	assert.True(t, f.IsOpen())

	f.SetForm(FormData{Name: "Anna", Contact: "@anna"})
	require.NoError(t, f.SubmitBooking(ctx))

	assert.Equal(t, AwaitingPayment, f.State())
	assert.Equal(t, int64(42), f.BookingID())
	assert.Equal(t, int64(1), gotBooking.SlotID)
	assert.Equal(t, "know_what_i_want", gotBooking.Type)

	assert.False(t, f.CanConfirm())
	f.AttachReceipt("data:image/jpeg;base64,AAA")
	assert.True(t, f.CanConfirm())

	require.NoError(t, f.SubmitPayment(ctx))

	assert.Equal(t, int64(42), gotPayment.BookingID)
	assert.Equal(t, Confirmed, f.State())
	assert.False(t, f.IsOpen())
	assert.Equal(t, FormData{Type: models.BookingKnowWhatIWant}, f.Form())
	assert.Empty(t, f.Photos())
	assert.Zero(t, f.BookingID())
	assert.False(t, f.CanConfirm())
	_, ok := f.Slot()
	assert.False(t, ok)
	assert.Equal(t, notice.Success, rec.last().Kind)
}
