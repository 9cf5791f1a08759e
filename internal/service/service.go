package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"nails-service/api"
	"nails-service/internal/calendar"
	"nails-service/internal/lock"
	"nails-service/internal/models"
	"nails-service/internal/notify/telegram"
	"nails-service/internal/storage/images"
	"nails-service/pkg/clock"
	"nails-service/pkg/password"
	"nails-service/pkg/response"
	"nails-service/pkg/sl"
)

const (
	MaxPhotos        = 5
	maxNameLen       = 100
	maxContactLen    = 100
	maxCommentLen    = 500
	bookingListLimit = 50
	slotLockTTL      = 10 * time.Second
)

type Store interface {
	// Slots
	ListSlotsFrom(ctx context.Context, fromDate string) ([]models.Slot, error)
	CreateSlot(ctx context.Context, date, slotTime string) (int64, error)
	SetSlotAvailability(ctx context.Context, id int64, available bool) error
	DeleteSlot(ctx context.Context, id int64) error

	// Bookings
	CreateBooking(ctx context.Context, booking *models.Booking) (int64, error)
	AddBookingPhotos(ctx context.Context, bookingID int64, urls []string) error
	ListBookings(ctx context.Context, limit int) ([]models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
	AttachReceipt(ctx context.Context, id int64, receiptURL string) error
	MarkTelegramSent(ctx context.Context, id int64) error

	// Cleanup
	ListBookingsBefore(ctx context.Context, cutoffDate string) ([]models.ExpiredBooking, error)
	PurgeBookings(ctx context.Context, expired []models.ExpiredBooking) (int, error)

	// Admin sessions
	CreateSession(ctx context.Context, session models.AdminSession) error
	GetSession(ctx context.Context, token string) (*models.AdminSession, error)
	DeleteSession(ctx context.Context, token string) error
}

type ImageStore interface {
	SaveBookingPhoto(bookingID int64, idx int, data string) (string, error)
	SaveReceipt(bookingID int64, data string) (string, error)
	RemoveBooking(bookingID int64) error
}

type Notifier interface {
	NotifyBooking(ctx context.Context, booking *models.Booking) error
}

// LoginAttempts counts login attempts per client. Hit increments and
// returns the new count in one step.
type LoginAttempts interface {
	Hit(ctx context.Context, ip string) (int, error)
	Reset(ctx context.Context, ip string) error
}

type Options struct {
	PasswordHash     string
	SessionTTL       time.Duration
	MaxLoginAttempts int
	RetentionDays    int
}

type Service struct {
	log      *slog.Logger
	store    Store
	locker   lock.Locker
	images   ImageStore
	notifier Notifier
	attempts LoginAttempts
	clock    clock.Clock
	opts     Options
}

func NewService(
	log *slog.Logger,
	store Store,
	locker lock.Locker,
	images ImageStore,
	notifier Notifier,
	attempts LoginAttempts,
	clk clock.Clock,
	opts Options,
) *Service {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 7 * 24 * time.Hour
	}
	if opts.MaxLoginAttempts <= 0 {
		opts.MaxLoginAttempts = 10
	}
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = 1
	}

	return &Service{
		log:      log.With(slog.String("component", "service")),
		store:    store,
		locker:   locker,
		images:   images,
		notifier: notifier,
		attempts: attempts,
		clock:    clk,
		opts:     opts,
	}
}

func (s *Service) today() string {
	return calendar.DateKey(s.clock.Now())
}

// Slots

func (s *Service) ListSlots(ctx context.Context) ([]api.TimeSlot, error) {
	const op = "service.ListSlots"

	slots, err := s.store.ListSlotsFrom(ctx, s.today())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]api.TimeSlot, 0, len(slots))
	for _, slot := range slots {
		result = append(result, toTimeSlot(slot))
	}

	return result, nil
}

func (s *Service) CreateSlot(ctx context.Context, req *api.SlotCreateRequest) (int64, error) {
	const op = "service.CreateSlot"

	date, err := calendar.ParseDate(req.Date)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, response.Invalid("дата должна быть в формате ГГГГ-ММ-ДД"))
	}

	slotTime, err := calendar.NormalizeTime(req.Time)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, response.Invalid("время должно быть в формате ЧЧ:ММ"))
	}

	if calendar.DateKey(date) < s.today() {
		return 0, fmt.Errorf("%s: %w", op, response.Invalid("нельзя добавить слот в прошлом"))
	}

	id, err := s.store.CreateSlot(ctx, calendar.DateKey(date), slotTime)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Service) UpdateSlot(ctx context.Context, req *api.SlotUpdateRequest) error {
	const op = "service.UpdateSlot"

	if req.ID <= 0 || req.Available == nil {
		return fmt.Errorf("%s: %w", op, response.Invalid("нужны id и available"))
	}

	if err := s.store.SetSlotAvailability(ctx, req.ID, *req.Available); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Service) DeleteSlot(ctx context.Context, id int64) error {
	const op = "service.DeleteSlot"

	if id <= 0 {
		return fmt.Errorf("%s: %w", op, response.Invalid("не указан слот"))
	}

	if err := s.store.DeleteSlot(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Bookings

func (s *Service) CreateBooking(ctx context.Context, req *api.BookingRequest) (*api.BookingCreated, error) {
	const op = "service.CreateBooking"

	booking, err := validateBooking(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	release, err := s.locker.Lock(ctx, lock.SlotKey(req.SlotID), slotLockTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: lock error: %w", op, err)
	}
	if release == nil {
		return nil, fmt.Errorf("%s: %w", op, response.ErrLocked)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("failed to release slot lock", slog.Int64("slot_id", req.SlotID), sl.Err(err))
		}
	}()

	bookingID, err := s.store.CreateBooking(ctx, booking)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	urls := make([]string, 0, len(req.Photos))
	for idx, photo := range req.Photos {
		url, err := s.images.SaveBookingPhoto(bookingID, idx, photo)
		if err != nil {
			s.rollbackBooking(ctx, bookingID)
			if errors.Is(err, images.ErrInvalidImage) || errors.Is(err, images.ErrTooLarge) {
				return nil, fmt.Errorf("%s: %w", op, response.Invalid(fmt.Sprintf("фото %d не удалось прочитать", idx+1)))
			}
			return nil, fmt.Errorf("%s: save photo: %w", op, err)
		}
		urls = append(urls, url)
	}

	if err := s.store.AddBookingPhotos(ctx, bookingID, urls); err != nil {
		s.rollbackBooking(ctx, bookingID)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &api.BookingCreated{
		BookingID: bookingID,
		Photos:    urls,
		Message:   "Заявка создана",
	}, nil
}

// rollbackBooking frees the slot claimed by a half-created booking.
func (s *Service) rollbackBooking(ctx context.Context, bookingID int64) {
	ctx = context.WithoutCancel(ctx)

	if err := s.store.DeleteBooking(ctx, bookingID); err != nil {
		s.log.Error("failed to roll back booking", slog.Int64("booking_id", bookingID), sl.Err(err))
	}
	if err := s.images.RemoveBooking(bookingID); err != nil {
		s.log.Warn("failed to remove booking files", slog.Int64("booking_id", bookingID), sl.Err(err))
	}
}

func validateBooking(req *api.BookingRequest) (*models.Booking, error) {
	name := strings.TrimSpace(req.Name)
	contact := strings.TrimSpace(req.Contact)

	if req.SlotID <= 0 || name == "" || contact == "" {
		return nil, response.Invalid("Заполните все обязательные поля")
	}

	if utf8.RuneCountInString(name) > maxNameLen {
		return nil, response.Invalid("Имя слишком длинное")
	}

	if utf8.RuneCountInString(contact) > maxContactLen {
		return nil, response.Invalid("Контакт слишком длинный")
	}

	bookingType := models.BookingType(req.Type)
	if bookingType == "" {
		bookingType = models.BookingKnowWhatIWant
	}
	if !bookingType.Valid() {
		return nil, response.Invalid("Неизвестный тип записи")
	}

	if len(req.Photos) > MaxPhotos {
		return nil, response.Invalid(fmt.Sprintf("Можно приложить не более %d фото", MaxPhotos))
	}

	comment := strings.TrimSpace(req.Comment)
	if utf8.RuneCountInString(comment) > maxCommentLen {
		comment = string([]rune(comment)[:maxCommentLen])
	}

	return &models.Booking{
		SlotID:        req.SlotID,
		ClientName:    name,
		ClientContact: contact,
		Type:          bookingType,
		Comment:       comment,
		PaymentStatus: models.PaymentPending,
	}, nil
}

func (s *Service) ListBookings(ctx context.Context) ([]api.Booking, error) {
	const op = "service.ListBookings"

	bookings, err := s.store.ListBookings(ctx, bookingListLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]api.Booking, 0, len(bookings))
	for i := range bookings {
		result = append(result, toBooking(&bookings[i]))
	}

	return result, nil
}

func (s *Service) DeleteBooking(ctx context.Context, id int64) error {
	const op = "service.DeleteBooking"

	if id <= 0 {
		return fmt.Errorf("%s: %w", op, response.Invalid("Не указан ID заявки"))
	}

	if err := s.store.DeleteBooking(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.images.RemoveBooking(id); err != nil {
		s.log.Warn("failed to remove booking files", slog.Int64("booking_id", id), sl.Err(err))
	}

	return nil
}

// Payment

// ConfirmPayment stores the receipt and notifies the master. A failed
// notification is logged; the receipt stays attached.
func (s *Service) ConfirmPayment(ctx context.Context, req *api.PaymentRequest) error {
	const op = "service.ConfirmPayment"

	if req.BookingID <= 0 || strings.TrimSpace(req.ReceiptURL) == "" {
		return fmt.Errorf("%s: %w", op, response.Invalid("Загрузите чек об оплате"))
	}

	booking, err := s.store.GetBooking(ctx, req.BookingID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	url, err := s.images.SaveReceipt(booking.ID, req.ReceiptURL)
	if err != nil {
		if errors.Is(err, images.ErrInvalidImage) || errors.Is(err, images.ErrTooLarge) {
			return fmt.Errorf("%s: %w", op, response.Invalid("Не удалось прочитать чек"))
		}
		return fmt.Errorf("%s: save receipt: %w", op, err)
	}

	if err := s.store.AttachReceipt(ctx, booking.ID, url); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	booking.ReceiptURL = &url
	booking.PaymentStatus = models.PaymentReceiptUploaded

	if err := s.notifier.NotifyBooking(ctx, booking); err != nil {
		if errors.Is(err, telegram.ErrDisabled) {
			return nil
		}
		s.log.Error("failed to notify master", slog.Int64("booking_id", booking.ID), sl.Err(err))
		return nil
	}

	if err := s.store.MarkTelegramSent(ctx, booking.ID); err != nil {
		s.log.Warn("failed to mark booking as sent", slog.Int64("booking_id", booking.ID), sl.Err(err))
	}

	return nil
}

// Admin auth

func (s *Service) Login(ctx context.Context, ip, pass string) (*api.LoginResponse, error) {
	const op = "service.Login"

	attempts, err := s.attempts.Hit(ctx, ip)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if attempts > s.opts.MaxLoginAttempts {
		return nil, fmt.Errorf("%s: %w", op, response.ErrTooManyAttempts)
	}

	if err := password.Compare(s.opts.PasswordHash, pass); err != nil {
		if errors.Is(err, password.ErrComparisonFailed) || errors.Is(err, password.ErrInvalidPassword) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrWrongPassword)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.attempts.Reset(ctx, ip); err != nil {
		s.log.Warn("failed to reset login attempts", slog.String("ip", ip), sl.Err(err))
	}

	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.clock.Now()
	session := models.AdminSession{
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.SessionTTL),
	}

	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &api.LoginResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// VerifyToken reports whether token belongs to a live admin session.
// Expired sessions are removed.
func (s *Service) VerifyToken(ctx context.Context, token string) (bool, error) {
	const op = "service.VerifyToken"

	if token == "" {
		return false, nil
	}

	session, err := s.store.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if s.clock.Now().After(session.ExpiresAt) {
		if err := s.store.DeleteSession(ctx, token); err != nil {
			s.log.Warn("failed to delete expired session", sl.Err(err))
		}
		return false, nil
	}

	return true, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	const op = "service.Logout"

	if err := s.store.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Cleanup

// Cleanup removes bookings (with their slots and files) whose slot date is
// older than the retention period.
func (s *Service) Cleanup(ctx context.Context) (int, error) {
	const op = "service.Cleanup"

	cutoff := calendar.DateKey(s.clock.Now().AddDate(0, 0, -s.opts.RetentionDays))

	expired, err := s.store.ListBookingsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	deleted, err := s.store.PurgeBookings(ctx, expired)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	for _, e := range expired {
		if err := s.images.RemoveBooking(e.BookingID); err != nil {
			s.log.Warn("failed to remove booking files", slog.Int64("booking_id", e.BookingID), sl.Err(err))
		}
	}

	return deleted, nil
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func toTimeSlot(slot models.Slot) api.TimeSlot {
	return api.TimeSlot{
		ID:        slot.ID,
		Date:      slot.Date,
		Time:      slot.Time,
		Available: slot.Available,
	}
}

func toBooking(b *models.Booking) api.Booking {
	photos := b.Photos
	if photos == nil {
		photos = []string{}
	}

	return api.Booking{
		ID:            b.ID,
		SlotID:        b.SlotID,
		Name:          b.ClientName,
		Contact:       b.ClientContact,
		Type:          string(b.Type),
		Comment:       b.Comment,
		Photos:        photos,
		ReceiptURL:    b.ReceiptURL,
		PaymentStatus: string(b.PaymentStatus),
		Date:          b.SlotDate,
		Time:          b.SlotTime,
		CreatedAt:     b.CreatedAt,
	}
}
