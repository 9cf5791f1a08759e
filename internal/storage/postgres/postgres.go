package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"nails-service/internal/models"
	"nails-service/pkg/response"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

type Storage struct {
	db *sql.DB
}

func New(storagePath string) (*Storage, error) {
	const op = "storage.postgres.New"

	db, err := sql.Open("postgres", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

func (s *Storage) Migrate(ctx context.Context) error {
	const op = "storage.postgres.Migrate"

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// #### slots ####

func (s *Storage) ListSlotsFrom(ctx context.Context, fromDate string) ([]models.Slot, error) {
	const op = "storage.postgres.ListSlotsFrom"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, slot_date::text, slot_time::text, is_available
		FROM time_slots
		WHERE slot_date >= $1::date
		ORDER BY slot_date, slot_time`, fromDate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	slots := make([]models.Slot, 0)
	for rows.Next() {
		var slot models.Slot
		if err := rows.Scan(&slot.ID, &slot.Date, &slot.Time, &slot.Available); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return slots, nil
}

func (s *Storage) CreateSlot(ctx context.Context, date, slotTime string) (int64, error) {
	const op = "storage.postgres.CreateSlot"

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO time_slots (slot_date, slot_time, is_available)
		VALUES ($1::date, $2::time, true)
		ON CONFLICT (slot_date, slot_time) DO NOTHING
		RETURNING id`, date, slotTime).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", op, response.ErrSlotExists)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) SetSlotAvailability(ctx context.Context, id int64, available bool) error {
	const op = "storage.postgres.SetSlotAvailability"

	res, err := s.db.ExecContext(ctx, `UPDATE time_slots SET is_available=$1 WHERE id=$2`, available, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectAffected(op, res)
}

func (s *Storage) DeleteSlot(ctx context.Context, id int64) error {
	const op = "storage.postgres.DeleteSlot"

	res, err := s.db.ExecContext(ctx, `DELETE FROM time_slots WHERE id=$1`, id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == codeForeignKeyViolation {
			return fmt.Errorf("%s: %w", op, response.ErrConflict)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectAffected(op, res)
}

// #### bookings ####

// CreateBooking claims the slot and inserts the booking in one transaction.
func (s *Storage) CreateBooking(ctx context.Context, booking *models.Booking) (int64, error) {
	const op = "storage.postgres.CreateBooking"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin tx: %w", op, err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE time_slots
		SET is_available = false
		WHERE id = $1 AND is_available = true`, booking.SlotID)
	if err != nil {
		return 0, fmt.Errorf("%s: claim slot: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if n == 0 {
		var exists bool
		err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM time_slots WHERE id=$1)`, booking.SlotID).Scan(&exists)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		if !exists {
			return 0, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, response.ErrSlotNotAvailable)
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO bookings
		(slot_id, client_name, client_contact, booking_type, comment, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		booking.SlotID,
		booking.ClientName,
		booking.ClientContact,
		string(booking.Type),
		booking.Comment,
		string(models.PaymentPending),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: insert booking: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", op, err)
	}

	return id, nil
}

func (s *Storage) AddBookingPhotos(ctx context.Context, bookingID int64, urls []string) error {
	const op = "storage.postgres.AddBookingPhotos"

	if len(urls) == 0 {
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO booking_photos (booking_id, photo_url, position)
		SELECT $1, u.url, u.pos
		FROM unnest($2::text[]) WITH ORDINALITY AS u(url, pos)`,
		bookingID, pq.Array(urls))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) ListBookings(ctx context.Context, limit int) ([]models.Booking, error) {
	const op = "storage.postgres.ListBookings"

	rows, err := s.db.QueryContext(ctx, bookingSelect+`
		ORDER BY b.created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	bookings := make([]models.Booking, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		bookings = append(bookings, *booking)
		ids = append(ids, booking.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	photos, err := s.photosFor(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i := range bookings {
		bookings[i].Photos = photos[bookings[i].ID]
	}

	return bookings, nil
}

func (s *Storage) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	const op = "storage.postgres.GetBooking"

	row := s.db.QueryRowContext(ctx, bookingSelect+` WHERE b.id = $1`, id)

	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	photos, err := s.photosFor(ctx, []int64{id})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	booking.Photos = photos[id]

	return booking, nil
}

// DeleteBooking removes the booking with its photos and frees the slot.
func (s *Storage) DeleteBooking(ctx context.Context, id int64) error {
	const op = "storage.postgres.DeleteBooking"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	var slotID int64
	err = tx.QueryRowContext(ctx, `SELECT slot_id FROM bookings WHERE id=$1 FOR UPDATE`, id).Scan(&slotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM booking_photos WHERE booking_id=$1`, id); err != nil {
		return fmt.Errorf("%s: delete photos: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id=$1`, id); err != nil {
		return fmt.Errorf("%s: delete booking: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE time_slots SET is_available=true WHERE id=$1`, slotID); err != nil {
		return fmt.Errorf("%s: free slot: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	return nil
}

func (s *Storage) AttachReceipt(ctx context.Context, id int64, receiptURL string) error {
	const op = "storage.postgres.AttachReceipt"

	res, err := s.db.ExecContext(ctx, `
		UPDATE bookings
		SET receipt_url=$1, payment_status=$2
		WHERE id=$3`, receiptURL, string(models.PaymentReceiptUploaded), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectAffected(op, res)
}

func (s *Storage) MarkTelegramSent(ctx context.Context, id int64) error {
	const op = "storage.postgres.MarkTelegramSent"

	res, err := s.db.ExecContext(ctx, `UPDATE bookings SET telegram_sent=true WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectAffected(op, res)
}

// #### cleanup ####

func (s *Storage) ListBookingsBefore(ctx context.Context, cutoffDate string) ([]models.ExpiredBooking, error) {
	const op = "storage.postgres.ListBookingsBefore"

	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, ts.id
		FROM bookings b
		JOIN time_slots ts ON b.slot_id = ts.id
		WHERE ts.slot_date < $1::date`, cutoffDate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	expired := make([]models.ExpiredBooking, 0)
	for rows.Next() {
		var e models.ExpiredBooking
		if err := rows.Scan(&e.BookingID, &e.SlotID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		expired = append(expired, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return expired, nil
}

// PurgeBookings deletes the bookings, their photos and their slots.
func (s *Storage) PurgeBookings(ctx context.Context, expired []models.ExpiredBooking) (int, error) {
	const op = "storage.postgres.PurgeBookings"

	if len(expired) == 0 {
		return 0, nil
	}

	bookingIDs := make([]int64, 0, len(expired))
	slotIDs := make([]int64, 0, len(expired))
	for _, e := range expired {
		bookingIDs = append(bookingIDs, e.BookingID)
		slotIDs = append(slotIDs, e.SlotID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin tx: %w", op, err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM booking_photos WHERE booking_id = ANY($1)`, pq.Array(bookingIDs)); err != nil {
		return 0, fmt.Errorf("%s: delete photos: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ANY($1)`, pq.Array(bookingIDs))
	if err != nil {
		return 0, fmt.Errorf("%s: delete bookings: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM time_slots WHERE id = ANY($1)`, pq.Array(slotIDs)); err != nil {
		return 0, fmt.Errorf("%s: delete slots: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", op, err)
	}

	return int(n), nil
}

// #### admin sessions ####

// CreateSession stores a new session and drops expired ones.
func (s *Storage) CreateSession(ctx context.Context, session models.AdminSession) error {
	const op = "storage.postgres.CreateSession"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM admin_sessions WHERE expires_at < $1`, session.CreatedAt); err != nil {
		return fmt.Errorf("%s: purge: %w", op, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO admin_sessions (token, created_at, expires_at)
		VALUES ($1, $2, $3)`, session.Token, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == codeUniqueViolation {
			return fmt.Errorf("%s: %w", op, response.ErrConflict)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	return nil
}

func (s *Storage) GetSession(ctx context.Context, token string) (*models.AdminSession, error) {
	const op = "storage.postgres.GetSession"

	var session models.AdminSession
	err := s.db.QueryRowContext(ctx, `
		SELECT token, created_at, expires_at
		FROM admin_sessions WHERE token=$1`, token).
		Scan(&session.Token, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &session, nil
}

func (s *Storage) DeleteSession(ctx context.Context, token string) error {
	const op = "storage.postgres.DeleteSession"

	if _, err := s.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE token=$1`, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// #### helpers ####

const bookingSelect = `
	SELECT b.id, b.slot_id, b.client_name, b.client_contact, b.booking_type, b.comment,
	       b.payment_status, b.receipt_url, b.telegram_sent, b.created_at,
	       ts.slot_date::text, ts.slot_time::text
	FROM bookings b
	JOIN time_slots ts ON b.slot_id = ts.id`

type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(row scanner) (*models.Booking, error) {
	var b models.Booking
	var bookingType, paymentStatus string
	var receipt sql.NullString

	err := row.Scan(
		&b.ID,
		&b.SlotID,
		&b.ClientName,
		&b.ClientContact,
		&bookingType,
		&b.Comment,
		&paymentStatus,
		&receipt,
		&b.TelegramSent,
		&b.CreatedAt,
		&b.SlotDate,
		&b.SlotTime,
	)
	if err != nil {
		return nil, err
	}

	b.Type = models.BookingType(bookingType)
	b.PaymentStatus = models.PaymentStatus(paymentStatus)
	if receipt.Valid {
		b.ReceiptURL = &receipt.String
	}

	return &b, nil
}

func (s *Storage) photosFor(ctx context.Context, bookingIDs []int64) (map[int64][]string, error) {
	photos := make(map[int64][]string, len(bookingIDs))
	if len(bookingIDs) == 0 {
		return photos, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT booking_id, photo_url
		FROM booking_photos
		WHERE booking_id = ANY($1)
		ORDER BY booking_id, position`, pq.Array(bookingIDs))
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var id int64
		var url string
		if err := rows.Scan(&id, &url); err != nil {
			return nil, err
		}
		photos[id] = append(photos[id], url)
	}

	return photos, rows.Err()
}

func expectAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return nil
}
