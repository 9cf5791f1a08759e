// Package admin holds the state behind the admin screens: the bookings
// list, the slot calendar and the login form.
package admin

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"nails-service/api"
	"nails-service/internal/calendar"
	"nails-service/internal/client"
	"nails-service/internal/notice"
	"nails-service/internal/session"
	"nails-service/pkg/clock"
)

type BookingsAPI interface {
	ListBookings(ctx context.Context) ([]api.Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
}

type SlotsAPI interface {
	ListSlots(ctx context.Context) ([]api.TimeSlot, error)
	CreateSlot(ctx context.Context, date, slotTime string) (*api.SlotCreateResponse, error)
	DeleteSlot(ctx context.Context, id int64) error
}

type LoginAPI interface {
	AdminLogin(ctx context.Context, password string) (*api.LoginResponse, error)
}

func failure(n notice.Notifier, title string, err error) {
	n.Notify(notice.Notice{Kind: notice.Error, Title: title, Message: client.Describe(err)})
}

func success(n notice.Notifier, title string) {
	n.Notify(notice.Notice{Kind: notice.Success, Title: title})
}

type BookingsPanel struct {
	api      BookingsAPI
	notifier notice.Notifier
	bookings []api.Booking
}

func NewBookingsPanel(a BookingsAPI, n notice.Notifier) *BookingsPanel {
	if n == nil {
		n = notice.Discard
	}
	return &BookingsPanel{api: a, notifier: n}
}

func (p *BookingsPanel) Bookings() []api.Booking {
	return slices.Clone(p.bookings)
}

func (p *BookingsPanel) Refresh(ctx context.Context) error {
	bookings, err := p.api.ListBookings(ctx)
	if err != nil {
		failure(p.notifier, "Не удалось загрузить записи", err)
		return fmt.Errorf("admin.BookingsPanel.Refresh: %w", err)
	}

	p.bookings = bookings
	return nil
}

// Delete drops the booking from the list only after the server confirms it.
func (p *BookingsPanel) Delete(ctx context.Context, id int64) error {
	if err := p.api.DeleteBooking(ctx, id); err != nil {
		failure(p.notifier, "Не удалось удалить запись", err)
		return fmt.Errorf("admin.BookingsPanel.Delete: %w", err)
	}

	p.bookings = slices.DeleteFunc(p.bookings, func(b api.Booking) bool { return b.ID == id })
	success(p.notifier, "Запись удалена")

	return nil
}

// QuickAddTimes are the one-click slot times offered for the selected day.
var QuickAddTimes = []string{
	"10:00", "11:00", "12:00", "13:00", "14:00",
	"15:00", "16:00", "17:00", "18:00", "19:00",
}

type SlotsPanel struct {
	api      SlotsAPI
	notifier notice.Notifier
	slots    []api.TimeSlot
	grouped  calendar.Grouped
	selected string
}

// NewSlotsPanel starts with today selected.
func NewSlotsPanel(a SlotsAPI, n notice.Notifier, clk clock.Clock) *SlotsPanel {
	if n == nil {
		n = notice.Discard
	}
	return &SlotsPanel{
		api:      a,
		notifier: n,
		grouped:  calendar.GroupByDate(nil),
		selected: calendar.DateKey(clk.Now()),
	}
}

func (p *SlotsPanel) Refresh(ctx context.Context) error {
	slots, err := p.api.ListSlots(ctx)
	if err != nil {
		failure(p.notifier, "Не удалось загрузить слоты", err)
		return fmt.Errorf("admin.SlotsPanel.Refresh: %w", err)
	}

	p.slots = slots
	p.grouped = calendar.GroupByDate(slots)
	return nil
}

// SelectDate takes the day of a calendar tile in local time.
func (p *SlotsPanel) SelectDate(day time.Time) {
	p.selected = calendar.DateKey(day)
}

func (p *SlotsPanel) SelectedDate() string {
	return p.selected
}

func (p *SlotsPanel) SlotsForSelectedDate() []api.TimeSlot {
	return slices.Clone(p.grouped.ByDate[p.selected])
}

// HasSlots marks calendar tiles that carry at least one slot.
func (p *SlotsPanel) HasSlots(day time.Time) bool {
	return p.grouped.Has(calendar.DateKey(day))
}

// AddSlot creates a slot at slotTime ("HH:MM") on the selected date and reloads.
func (p *SlotsPanel) AddSlot(ctx context.Context, slotTime string) error {
	slotTime = strings.TrimSpace(slotTime)
	if slotTime == "" {
		err := fmt.Errorf("admin.SlotsPanel.AddSlot: %w", client.ErrValidation)
		p.notifier.Notify(notice.Notice{Kind: notice.Error, Title: "Ошибка", Message: "Укажите время"})
		return err
	}

	if _, err := p.api.CreateSlot(ctx, p.selected, slotTime); err != nil {
		failure(p.notifier, "Не удалось добавить слот", err)
		return fmt.Errorf("admin.SlotsPanel.AddSlot: %w", err)
	}

	success(p.notifier, "Слот добавлен")

	return p.Refresh(ctx)
}

func (p *SlotsPanel) QuickAdd(ctx context.Context, slotTime string) error {
	if !slices.Contains(QuickAddTimes, slotTime) {
		return fmt.Errorf("admin.SlotsPanel.QuickAdd: %w: %q is not a quick-add time", client.ErrValidation, slotTime)
	}
	return p.AddSlot(ctx, slotTime)
}

// Delete removes the slot locally once the server has deleted it.
func (p *SlotsPanel) Delete(ctx context.Context, id int64) error {
	if err := p.api.DeleteSlot(ctx, id); err != nil {
		failure(p.notifier, "Не удалось удалить слот", err)
		return fmt.Errorf("admin.SlotsPanel.Delete: %w", err)
	}

	p.slots = slices.DeleteFunc(p.slots, func(s api.TimeSlot) bool { return s.ID == id })
	p.grouped = calendar.GroupByDate(p.slots)
	success(p.notifier, "Слот удалён")

	return nil
}

type Login struct {
	api      LoginAPI
	sessions *session.Manager
	notifier notice.Notifier
}

func NewLogin(a LoginAPI, sessions *session.Manager, n notice.Notifier) *Login {
	if n == nil {
		n = notice.Discard
	}
	return &Login{api: a, sessions: sessions, notifier: n}
}

// Submit rejects an empty password without a request, otherwise exchanges
// the password for a session and stores it.
func (l *Login) Submit(ctx context.Context, password string) error {
	const op = "admin.Login.Submit"

	if password == "" {
		l.notifier.Notify(notice.Notice{Kind: notice.Error, Title: "Ошибка", Message: "Введите пароль"})
		return fmt.Errorf("%s: %w", op, client.ErrValidation)
	}

	resp, err := l.api.AdminLogin(ctx, password)
	if err != nil {
		failure(l.notifier, "Ошибка входа", err)
		return fmt.Errorf("%s: %w", op, err)
	}

	if !resp.Success || resp.Token == "" {
		err := &client.APIError{Status: 401, Message: "Неверный пароль"}
		failure(l.notifier, "Ошибка входа", err)
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := l.sessions.Save(session.Session{Token: resp.Token, ExpiresAt: resp.ExpiresAt}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	success(l.notifier, "Вход выполнен")
	return nil
}
