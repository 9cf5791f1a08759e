// Package client is the typed Go client for the booking API. Every remote
// operation the site and the admin tools need is one method here.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"nails-service/api"
	"nails-service/pkg/middleware/adminauth"
	"nails-service/pkg/response"
)

var (
	// ErrNetwork wraps transport failures: the request never got an HTTP answer.
	ErrNetwork = errors.New("network error")
	// ErrValidation is returned before any request is sent.
	ErrValidation = errors.New("validation failed")
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// TokenSource supplies the admin token attached to requests, empty when logged out.
type TokenSource interface {
	Token() string
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Slots

func (c *Client) ListSlots(ctx context.Context) ([]api.TimeSlot, error) {
	var slots []api.TimeSlot
	if err := c.do(ctx, http.MethodGet, "/slots", nil, &slots); err != nil {
		return nil, fmt.Errorf("client.ListSlots: %w", err)
	}
	return slots, nil
}

func (c *Client) CreateSlot(ctx context.Context, date, slotTime string) (*api.SlotCreateResponse, error) {
	if date == "" || slotTime == "" {
		return nil, validation("date and time are required")
	}

	var resp api.SlotCreateResponse
	req := api.SlotCreateRequest{Date: date, Time: slotTime}
	if err := c.do(ctx, http.MethodPost, "/slots", req, &resp); err != nil {
		return nil, fmt.Errorf("client.CreateSlot: %w", err)
	}
	return &resp, nil
}

func (c *Client) UpdateSlot(ctx context.Context, id int64, available bool) error {
	req := api.SlotUpdateRequest{ID: id, Available: &available}
	if err := c.do(ctx, http.MethodPut, "/slots", req, nil); err != nil {
		return fmt.Errorf("client.UpdateSlot: %w", err)
	}
	return nil
}

func (c *Client) DeleteSlot(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, "/slots", api.SlotDeleteRequest{SlotID: id}, nil); err != nil {
		return fmt.Errorf("client.DeleteSlot: %w", err)
	}
	return nil
}

// Bookings

func (c *Client) CreateBooking(ctx context.Context, req *api.BookingRequest) (*api.BookingCreated, error) {
	if req.SlotID <= 0 || strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Contact) == "" {
		return nil, validation("slot, name and contact are required")
	}

	var resp api.BookingCreated
	if err := c.do(ctx, http.MethodPost, "/bookings", req, &resp); err != nil {
		return nil, fmt.Errorf("client.CreateBooking: %w", err)
	}
	return &resp, nil
}

func (c *Client) ListBookings(ctx context.Context) ([]api.Booking, error) {
	var bookings []api.Booking
	if err := c.do(ctx, http.MethodGet, "/bookings", nil, &bookings); err != nil {
		return nil, fmt.Errorf("client.ListBookings: %w", err)
	}
	return bookings, nil
}

func (c *Client) DeleteBooking(ctx context.Context, id int64) error {
	path := "/bookings?" + url.Values{"id": {strconv.FormatInt(id, 10)}}.Encode()
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("client.DeleteBooking: %w", err)
	}
	return nil
}

// Payment

func (c *Client) ConfirmPayment(ctx context.Context, bookingID int64, receipt string) error {
	if bookingID <= 0 || receipt == "" {
		return validation("booking and receipt are required")
	}

	req := api.PaymentRequest{BookingID: bookingID, ReceiptURL: receipt}
	if err := c.do(ctx, http.MethodPost, "/payment", req, nil); err != nil {
		return fmt.Errorf("client.ConfirmPayment: %w", err)
	}
	return nil
}

// Admin

func (c *Client) AdminLogin(ctx context.Context, password string) (*api.LoginResponse, error) {
	if password == "" {
		return nil, validation("password is required")
	}

	var resp api.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/admin-login", api.LoginRequest{Password: password}, &resp); err != nil {
		return nil, fmt.Errorf("client.AdminLogin: %w", err)
	}
	return &resp, nil
}

func (c *Client) AdminLogout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/admin-logout", nil, nil); err != nil {
		return fmt.Errorf("client.AdminLogout: %w", err)
	}
	return nil
}

func (c *Client) Cleanup(ctx context.Context) (*api.CleanupResponse, error) {
	var resp api.CleanupResponse
	if err := c.do(ctx, http.MethodPost, "/cleanup", nil, &resp); err != nil {
		return nil, fmt.Errorf("client.Cleanup: %w", err)
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set(adminauth.HeaderName, token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{
		Status:  resp.StatusCode,
		Message: http.StatusText(resp.StatusCode),
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body response.Response
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.Code = body.Code
	}

	return apiErr
}

// Describe turns any client error into the short notice shown to the user.
func Describe(err error) string {
	var apiErr *APIError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "Заполните все обязательные поля"
	case errors.Is(err, ErrNetwork):
		return "Проблема с подключением"
	case errors.As(err, &apiErr):
		return apiErr.Message
	default:
		return "Что-то пошло не так"
	}
}
