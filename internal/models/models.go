package models

import "time"

type BookingType string

const (
	BookingKnowWhatIWant BookingType = "know_what_i_want"
	BookingNotSure       BookingType = "not_sure"
	BookingNoDesign      BookingType = "no_design"
)

func (t BookingType) Valid() bool {
	switch t {
	case BookingKnowWhatIWant, BookingNotSure, BookingNoDesign:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending         PaymentStatus = "pending"
	PaymentReceiptUploaded PaymentStatus = "receipt_uploaded"
)

type Slot struct {
	ID        int64  `db:"id"`
	Date      string `db:"slot_date"`
	Time      string `db:"slot_time"`
	Available bool   `db:"is_available"`
}

type Booking struct {
	ID            int64         `db:"id"`
	SlotID        int64         `db:"slot_id"`
	ClientName    string        `db:"client_name"`
	ClientContact string        `db:"client_contact"`
	Type          BookingType   `db:"booking_type"`
	Comment       string        `db:"comment"`
	PaymentStatus PaymentStatus `db:"payment_status"`
	ReceiptURL    *string       `db:"receipt_url"`
	TelegramSent  bool          `db:"telegram_sent"`
	CreatedAt     time.Time     `db:"created_at"`

	// joined from time_slots, kept as text to avoid timezone shifts
	SlotDate string `db:"slot_date"`
	SlotTime string `db:"slot_time"`

	Photos []string
}

type AdminSession struct {
	Token     string    `db:"token"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

// ExpiredBooking is a booking selected by cleanup together with its slot.
type ExpiredBooking struct {
	BookingID int64 `db:"id"`
	SlotID    int64 `db:"slot_id"`
}
