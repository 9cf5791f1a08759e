package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"nails-service/internal/models"
	"nails-service/pkg/response"
)

// StorageSuite runs against a real database named by NAILS_TEST_DATABASE_URL.
type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorage(t *testing.T) {
	dsn := os.Getenv("NAILS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("NAILS_TEST_DATABASE_URL is not set")
	}

	storage, err := New(dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = storage.Close() })

	suite.Run(t, &StorageSuite{storage: storage, ctx: context.Background()})
}

func (s *StorageSuite) SetupTest() {
	s.Require().NoError(s.storage.Migrate(s.ctx))
	_, err := s.storage.db.ExecContext(s.ctx,
		`TRUNCATE booking_photos, bookings, time_slots, admin_sessions RESTART IDENTITY CASCADE`)
	s.Require().NoError(err)
}

func (s *StorageSuite) booking(slotID int64) *models.Booking {
	return &models.Booking{
		SlotID:        slotID,
		ClientName:    "Anna",
		ClientContact: "@anna",
		Type:          models.BookingNotSure,
	}
}

func (s *StorageSuite) TestSlots() {
	id, err := s.storage.CreateSlot(s.ctx, "2024-06-01", "10:00:00")
	s.Require().NoError(err)

	_, err = s.storage.CreateSlot(s.ctx, "2024-06-01", "10:00:00")
	s.ErrorIs(err, response.ErrSlotExists)

	_, err = s.storage.CreateSlot(s.ctx, "2024-05-01", "10:00:00")
	s.Require().NoError(err)

	slots, err := s.storage.ListSlotsFrom(s.ctx, "2024-05-30")
	s.Require().NoError(err)
	s.Require().Len(slots, 1)
	s.Equal(models.Slot{ID: id, Date: "2024-06-01", Time: "10:00:00", Available: true}, slots[0])

	s.Require().NoError(s.storage.SetSlotAvailability(s.ctx, id, false))
	s.ErrorIs(s.storage.SetSlotAvailability(s.ctx, 999, false), response.ErrNotFound)

	s.Require().NoError(s.storage.DeleteSlot(s.ctx, id))
	s.ErrorIs(s.storage.DeleteSlot(s.ctx, id), response.ErrNotFound)
}

func (s *StorageSuite) TestBookingLifecycle() {
	slotID, err := s.storage.CreateSlot(s.ctx, "2024-06-01", "10:00:00")
	s.Require().NoError(err)

	id, err := s.storage.CreateBooking(s.ctx, s.booking(slotID))
	s.Require().NoError(err)

	_, err = s.storage.CreateBooking(s.ctx, s.booking(slotID))
	s.ErrorIs(err, response.ErrSlotNotAvailable)

	_, err = s.storage.CreateBooking(s.ctx, s.booking(999))
	s.ErrorIs(err, response.ErrNotFound)

	s.ErrorIs(s.storage.DeleteSlot(s.ctx, slotID), response.ErrConflict)

	s.Require().NoError(s.storage.AddBookingPhotos(s.ctx, id, []string{"/uploads/a.jpg", "/uploads/b.jpg"}))
	s.Require().NoError(s.storage.AttachReceipt(s.ctx, id, "/uploads/r.jpg"))
	s.Require().NoError(s.storage.MarkTelegramSent(s.ctx, id))

	b, err := s.storage.GetBooking(s.ctx, id)
	s.Require().NoError(err)
	s.Equal([]string{"/uploads/a.jpg", "/uploads/b.jpg"}, b.Photos)
	s.Equal(models.PaymentReceiptUploaded, b.PaymentStatus)
	s.Equal("2024-06-01", b.SlotDate)
	s.Equal("10:00:00", b.SlotTime)
	s.True(b.TelegramSent)
	s.Require().NotNil(b.ReceiptURL)

	list, err := s.storage.ListBookings(s.ctx, 50)
	s.Require().NoError(err)
	s.Len(list, 1)

	s.Require().NoError(s.storage.DeleteBooking(s.ctx, id))
	s.ErrorIs(s.storage.DeleteBooking(s.ctx, id), response.ErrNotFound)

	slots, err := s.storage.ListSlotsFrom(s.ctx, "2024-06-01")
	s.Require().NoError(err)
	s.True(slots[0].Available)
}

func (s *StorageSuite) TestCleanup() {
	oldSlot, err := s.storage.CreateSlot(s.ctx, "2024-05-01", "10:00:00")
	s.Require().NoError(err)
	newSlot, err := s.storage.CreateSlot(s.ctx, "2024-06-01", "10:00:00")
	s.Require().NoError(err)

	oldID, err := s.storage.CreateBooking(s.ctx, s.booking(oldSlot))
	s.Require().NoError(err)
	_, err = s.storage.CreateBooking(s.ctx, s.booking(newSlot))
	s.Require().NoError(err)
	s.Require().NoError(s.storage.AddBookingPhotos(s.ctx, oldID, []string{"/uploads/a.jpg"}))

	expired, err := s.storage.ListBookingsBefore(s.ctx, "2024-05-29")
	s.Require().NoError(err)
	s.Equal([]models.ExpiredBooking{{BookingID: oldID, SlotID: oldSlot}}, expired)

	n, err := s.storage.PurgeBookings(s.ctx, expired)
	s.Require().NoError(err)
	s.Equal(1, n)

	slots, err := s.storage.ListSlotsFrom(s.ctx, "2000-01-01")
	s.Require().NoError(err)
	s.Len(slots, 1)
}

func (s *StorageSuite) TestSessions() {
	now := time.Now().UTC().Truncate(time.Second)

	s.Require().NoError(s.storage.CreateSession(s.ctx, models.AdminSession{
		Token: "old", CreatedAt: now.Add(-8 * 24 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}))
	s.Require().NoError(s.storage.CreateSession(s.ctx, models.AdminSession{
		Token: "tok", CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))

	_, err := s.storage.GetSession(s.ctx, "old")
	s.ErrorIs(err, response.ErrNotFound)

	sess, err := s.storage.GetSession(s.ctx, "tok")
	s.Require().NoError(err)
	s.True(sess.ExpiresAt.Equal(now.Add(time.Hour)))

	s.ErrorIs(s.storage.CreateSession(s.ctx, models.AdminSession{Token: "tok", CreatedAt: now, ExpiresAt: now}), response.ErrConflict)

	s.Require().NoError(s.storage.DeleteSession(s.ctx, "tok"))
	_, err = s.storage.GetSession(s.ctx, "tok")
	s.ErrorIs(err, response.ErrNotFound)
}
