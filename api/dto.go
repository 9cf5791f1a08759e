package api

import "time"

type TimeSlot struct {
	ID        int64  `json:"id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

type SlotCreateRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type SlotCreateResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

type SlotUpdateRequest struct {
	ID        int64 `json:"id"`
	Available *bool `json:"available"`
}

type SlotDeleteRequest struct {
	SlotID int64 `json:"slot_id"`
}

type BookingRequest struct {
	SlotID  int64    `json:"slot_id"`
	Name    string   `json:"name"`
	Contact string   `json:"contact"`
	Type    string   `json:"type"`
	Comment string   `json:"comment"`
	Photos  []string `json:"photos"`
}

type BookingCreated struct {
	BookingID int64    `json:"booking_id"`
	Photos    []string `json:"photos"`
	Message   string   `json:"message,omitempty"`
}

type Booking struct {
	ID            int64     `json:"id"`
	SlotID        int64     `json:"slot_id"`
	Name          string    `json:"name"`
	Contact       string    `json:"contact"`
	Type          string    `json:"type"`
	Comment       string    `json:"comment"`
	Photos        []string  `json:"photos"`
	ReceiptURL    *string   `json:"receipt_url"`
	PaymentStatus string    `json:"payment_status"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	CreatedAt     time.Time `json:"created_at"`
}

type PaymentRequest struct {
	BookingID  int64  `json:"booking_id"`
	ReceiptURL string `json:"receipt_url"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type LoginRequest struct {
	Password string `json:"password"`
}

type LoginResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

type CleanupResponse struct {
	Message string `json:"message"`
	Deleted int    `json:"deleted"`
}
