// Package booking drives the client side of a booking: pick a slot, fill in
// the form, create the booking, then attach the prepayment receipt.
package booking

import (
	"context"
	"fmt"
	"strings"

	"nails-service/api"
	"nails-service/internal/client"
	"nails-service/internal/models"
	"nails-service/internal/notice"
)

const MaxPhotos = 5

type State int

const (
	SelectingSlot State = iota
	FillingForm
	AwaitingPayment
	Confirmed
)

func (s State) String() string {
	switch s {
	case SelectingSlot:
		return "selecting_slot"
	case FillingForm:
		return "filling_form"
	case AwaitingPayment:
		return "awaiting_payment"
	case Confirmed:
		return "confirmed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type API interface {
	CreateBooking(ctx context.Context, req *api.BookingRequest) (*api.BookingCreated, error)
	ConfirmPayment(ctx context.Context, bookingID int64, receipt string) error
}

type FormData struct {
	Name    string
	Contact string
	Type    models.BookingType
	Comment string
}

func defaultForm() FormData {
	return FormData{Type: models.BookingKnowWhatIWant}
}

// PaymentInfo is the fixed prepayment instruction shown after a booking is created.
type PaymentInfo struct {
	Amount    int
	Card      string
	SBP       string
	Recipient string
}

// Flow is driven from a single UI goroutine and is not safe for concurrent use.
type Flow struct {
	api      API
	notifier notice.Notifier
	payment  PaymentInfo

	state     State
	open      bool
	slot      *api.TimeSlot
	form      FormData
	photos    []string
	bookingID int64
	receipt   string
}

func NewFlow(a API, n notice.Notifier, payment PaymentInfo) *Flow {
	if n == nil {
		n = notice.Discard
	}

	return &Flow{
		api:      a,
		notifier: n,
		payment:  payment,
		state:    SelectingSlot,
		form:     defaultForm(),
	}
}

func (f *Flow) State() State {
	return f.state
}

func (f *Flow) IsOpen() bool {
	return f.open
}

func (f *Flow) Slot() (api.TimeSlot, bool) {
	if f.slot == nil {
		return api.TimeSlot{}, false
	}
	return *f.slot, true
}

func (f *Flow) Form() FormData {
	return f.form
}

func (f *Flow) SetForm(form FormData) {
	if form.Type == "" {
		form.Type = models.BookingKnowWhatIWant
	}
	f.form = form
}

func (f *Flow) Photos() []string {
	return append([]string(nil), f.photos...)
}

func (f *Flow) BookingID() int64 {
	return f.bookingID
}

// SelectSlot opens the form for an available slot. Unavailable slots, and
// any slot once a booking has been created, are ignored.
func (f *Flow) SelectSlot(slot api.TimeSlot) bool {
	if !slot.Available || f.state == AwaitingPayment {
		return false
	}

	if f.state == Confirmed {
		f.reset()
	}

	f.slot = &slot
	f.state = FillingForm
	f.open = true

	return true
}

// AddPhotos appends design references until MaxPhotos is reached and
// reports how many were accepted.
func (f *Flow) AddPhotos(photos ...string) int {
	accepted := 0
	for _, p := range photos {
		if len(f.photos) >= MaxPhotos {
			break
		}
		f.photos = append(f.photos, p)
		accepted++
	}
	return accepted
}

func (f *Flow) RemovePhoto(idx int) {
	if idx < 0 || idx >= len(f.photos) {
		return
	}
	f.photos = append(f.photos[:idx], f.photos[idx+1:]...)
}

// SubmitBooking creates the booking. Nothing is sent unless a slot, a name
// and a contact are present.
func (f *Flow) SubmitBooking(ctx context.Context) error {
	if f.state != FillingForm {
		return fmt.Errorf("booking.SubmitBooking: unexpected state %s", f.state)
	}

	if f.slot == nil || strings.TrimSpace(f.form.Name) == "" || strings.TrimSpace(f.form.Contact) == "" {
		err := fmt.Errorf("booking.SubmitBooking: %w", client.ErrValidation)
		f.fail("Ошибка", err)
		return err
	}

	created, err := f.api.CreateBooking(ctx, &api.BookingRequest{
		SlotID:  f.slot.ID,
		Name:    strings.TrimSpace(f.form.Name),
		Contact: strings.TrimSpace(f.form.Contact),
		Type:    string(f.form.Type),
		Comment: f.form.Comment,
		Photos:  f.photos,
	})
	if err != nil {
		f.fail("Ошибка", err)
		return fmt.Errorf("booking.SubmitBooking: %w", err)
	}

	f.bookingID = created.BookingID
	f.state = AwaitingPayment

	f.notifier.Notify(notice.Notice{
		Kind:    notice.Success,
		Title:   "Заявка создана!",
		Message: "Теперь внесите предоплату",
	})

	return nil
}

// PaymentInfo is available once the booking exists.
func (f *Flow) PaymentInfo() (PaymentInfo, bool) {
	if f.state != AwaitingPayment {
		return PaymentInfo{}, false
	}
	return f.payment, true
}

func (f *Flow) AttachReceipt(dataURL string) {
	if f.state != AwaitingPayment {
		return
	}
	f.receipt = dataURL
}

// CanConfirm reports whether the final confirm action is enabled.
func (f *Flow) CanConfirm() bool {
	return f.state == AwaitingPayment && f.receipt != ""
}

// SubmitPayment sends the receipt. On success all form state is cleared and
// the dialog closes.
func (f *Flow) SubmitPayment(ctx context.Context) error {
	if f.state != AwaitingPayment {
		return fmt.Errorf("booking.SubmitPayment: unexpected state %s", f.state)
	}

	if f.receipt == "" {
		err := fmt.Errorf("booking.SubmitPayment: %w", client.ErrValidation)
		f.notifier.Notify(notice.Notice{
			Kind:    notice.Error,
			Title:   "Ошибка",
			Message: "Загрузите чек об оплате",
		})
		return err
	}

	if err := f.api.ConfirmPayment(ctx, f.bookingID, f.receipt); err != nil {
		f.fail("Ошибка", err)
		return fmt.Errorf("booking.SubmitPayment: %w", err)
	}

	f.reset()
	f.state = Confirmed

	f.notifier.Notify(notice.Notice{
		Kind:    notice.Success,
		Title:   "Запись подтверждена!",
		Message: "Мастер свяжется с вами в ближайшее время",
	})

	return nil
}

// Close dismisses the dialog and drops everything entered so far. A booking
// already created stays on the server unpaid.
func (f *Flow) Close() {
	f.reset()
}

func (f *Flow) reset() {
	f.state = SelectingSlot
	f.open = false
	f.slot = nil
	f.form = defaultForm()
	f.photos = nil
	f.bookingID = 0
	f.receipt = ""
}

func (f *Flow) fail(title string, err error) {
	f.notifier.Notify(notice.Notice{
		Kind:    notice.Error,
		Title:   title,
		Message: client.Describe(err),
	})
}
