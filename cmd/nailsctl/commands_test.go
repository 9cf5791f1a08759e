package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nails-service/api"
	"nails-service/pkg/clock"
	"nails-service/pkg/password"
	"nails-service/pkg/response"
)

type fakeServer struct {
	*httptest.Server
	bookings []api.Booking
	slots    []api.TimeSlot
	loggedIn bool

	created  []api.BookingRequest
	payments []api.PaymentRequest
}

func newFakeServer(t *testing.T, now time.Time) *fakeServer {
	t.Helper()

	f := &fakeServer{
		bookings: []api.Booking{
			{ID: 1, Name: "Anna", Contact: "@anna", Type: "not_sure", Date: "2024-06-01", Time: "10:00:00", PaymentStatus: "pending", Photos: []string{}},
		},
	}

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		public := r.URL.Path == "/admin-login" || r.URL.Path == "/payment" ||
			(r.URL.Path == "/slots" && r.Method == http.MethodGet) ||
			(r.URL.Path == "/bookings" && r.Method == http.MethodPost)
		admin := !public
		if admin && r.Header.Get("X-Admin-Token") != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(response.Error(response.UNAUTHORIZED, "Требуется авторизация"))
			return
		}

		switch {
		case r.URL.Path == "/admin-login":
			var req api.LoginRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Password != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(response.Error(response.UNAUTHORIZED, "Неверный пароль"))
				return
			}
			f.loggedIn = true
			_ = json.NewEncoder(w).Encode(api.LoginResponse{Success: true, Token: "tok", ExpiresAt: now.Add(7 * 24 * time.Hour)})
		case r.URL.Path == "/admin-logout":
			f.loggedIn = false
			_ = json.NewEncoder(w).Encode(api.MessageResponse{Message: "ok"})
		case r.URL.Path == "/bookings" && r.Method == http.MethodPost:
			var req api.BookingRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			f.created = append(f.created, req)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(api.BookingCreated{BookingID: 42, Photos: []string{}})
		case r.URL.Path == "/payment":
			var req api.PaymentRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			f.payments = append(f.payments, req)
			_ = json.NewEncoder(w).Encode(api.MessageResponse{Message: "ok"})
		case r.URL.Path == "/bookings" && r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode(f.bookings)
		case r.URL.Path == "/bookings" && r.Method == http.MethodDelete:
			f.bookings = nil
			_ = json.NewEncoder(w).Encode(api.MessageResponse{Message: "ok"})
		case r.URL.Path == "/slots" && r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode(f.slots)
		case r.URL.Path == "/slots" && r.Method == http.MethodPost:
			var req api.SlotCreateRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			id := int64(len(f.slots) + 1)
			f.slots = append(f.slots, api.TimeSlot{ID: id, Date: req.Date, Time: req.Time + ":00", Available: true})
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(api.SlotCreateResponse{ID: id})
		case r.URL.Path == "/cleanup":
			_ = json.NewEncoder(w).Encode(api.CleanupResponse{Message: "done", Deleted: 2})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.Close)

	return f
}

func run(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := newRootCmd(a)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func testApp(t *testing.T, serverURL string, now time.Time) *app {
	color.NoColor = true

	return &app{
		serverURL:   serverURL,
		sessionPath: filepath.Join(t.TempDir(), "session.json"),
		timeout:     5 * time.Second,
		clock:       clock.NewMockClock(now),
		stdin:       strings.NewReader(""),
	}
}

func TestHashPassword(t *testing.T) {
	a := testApp(t, "http://unused", time.Now())

	out, err := run(t, a, "hash-password", "--cost", "4", "secret")
	require.NoError(t, err)
	assert.NoError(t, password.Compare(strings.TrimSpace(out), "secret"))

	a.stdin = strings.NewReader("from-stdin\n")
	out, err = run(t, a, "hash-password", "--cost", "4")
	require.NoError(t, err)
	assert.NoError(t, password.Compare(strings.TrimSpace(out), "from-stdin"))
}

func TestAdminCommandsRequireLogin(t *testing.T) {
	now := time.Date(2024, 5, 30, 12, 0, 0, 0, time.UTC)
	srv := newFakeServer(t, now)
	a := testApp(t, srv.URL, now)

	_, err := run(t, a, "bookings", "list")
	assert.ErrorIs(t, err, errNotLoggedIn)

	_, err = run(t, a, "login", "-p", "wrong")
	assert.Error(t, err)

	_, err = run(t, a, "bookings", "list")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestLoginBookingsLogout(t *testing.T) {
	now := time.Date(2024, 5, 30, 12, 0, 0, 0, time.UTC)
	srv := newFakeServer(t, now)
	a := testApp(t, srv.URL, now)

	_, err := run(t, a, "login", "-p", "secret")
	require.NoError(t, err)
	assert.True(t, srv.loggedIn)

	out, err := run(t, a, "bookings", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "#1")
	assert.Contains(t, out, "01.06.2024 10:00")
	assert.Contains(t, out, "Anna (@anna)")

	_, err = run(t, a, "bookings", "delete", "1")
	require.NoError(t, err)
	assert.Empty(t, srv.bookings)

	out, err = run(t, a, "cleanup")
	require.NoError(t, err)
	assert.Equal(t, "done: 2\n", out)

	_, err = run(t, a, "logout")
	require.NoError(t, err)
	assert.False(t, srv.loggedIn)

	_, err = run(t, a, "bookings", "list")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestSessionExpires(t *testing.T) {
	now := time.Date(2024, 5, 30, 12, 0, 0, 0, time.UTC)
	srv := newFakeServer(t, now)
	a := testApp(t, srv.URL, now)

	_, err := run(t, a, "login", "-p", "secret")
	require.NoError(t, err)

	a.clock.(*clock.MockClock).Add(8 * 24 * time.Hour)

	_, err = run(t, a, "cleanup")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestSlotsAddAndList(t *testing.T) {
	now := time.Date(2024, 5, 30, 12, 0, 0, 0, time.UTC)
	srv := newFakeServer(t, now)
	a := testApp(t, srv.URL, now)

	_, err := run(t, a, "login", "-p", "secret")
	require.NoError(t, err)

	out, err := run(t, a, "slots", "add", "2024-06-01", "10:00", "12:30")
	require.NoError(t, err)
	assert.Equal(t, "#1 10:00\n#2 12:30\n", out)

	out, err = run(t, a, "slots", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "(2024-06-01)")
	assert.Contains(t, out, "12:30  free")

	_, err = run(t, a, "slots", "add", "01.06.2024", "10:00")
	assert.Error(t, err)

	_, err = run(t, a, "slots", "delete", "x")
	assert.Error(t, err)
}

func writePNG(t *testing.T, name string) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestBook(t *testing.T) {
	now := time.Date(2024, 5, 30, 12, 0, 0, 0, time.UTC)
	srv := newFakeServer(t, now)
	srv.slots = []api.TimeSlot{
		{ID: 3, Date: "2024-06-01", Time: "10:00:00", Available: true},
		{ID: 4, Date: "2024-06-01", Time: "12:00:00", Available: false},
	}
	a := testApp(t, srv.URL, now)

	photo := writePNG(t, "idea.png")
	receipt := writePNG(t, "check.png")

	out, err := run(t, a, "book", "3",
		"--name", "Anna", "--contact", "@anna", "--type", "not_sure",
		"--comment", "nude", "--photo", photo, "--receipt", receipt)
	require.NoError(t, err)

	assert.Contains(t, out, "booking #42: 01.06.2024 10:00")
	assert.Contains(t, out, "prepayment: 300 ₽")
	assert.Contains(t, out, "confirmed")

	require.Len(t, srv.created, 1)
	got := srv.created[0]
	assert.Equal(t, int64(3), got.SlotID)
	assert.Equal(t, "Anna", got.Name)
	assert.Equal(t, "not_sure", got.Type)
	assert.Equal(t, "nude", got.Comment)
	require.Len(t, got.Photos, 1)
	assert.True(t, strings.HasPrefix(got.Photos[0], "data:image/png;base64,"))

	require.Len(t, srv.payments, 1)
	assert.Equal(t, int64(42), srv.payments[0].BookingID)
	assert.True(t, strings.HasPrefix(srv.payments[0].ReceiptURL, "data:image/png;base64,"))
}

func TestBook_WithoutReceiptStaysUnpaid(t *testing.T) {
	now := time.Date(2024, 5, 30, 12, 0, 0, 0, time.UTC)
	srv := newFakeServer(t, now)
	srv.slots = []api.TimeSlot{{ID: 3, Date: "2024-06-01", Time: "10:00:00", Available: true}}
	a := testApp(t, srv.URL, now)

	out, err := run(t, a, "book", "3", "--name", "Anna", "--contact", "+79990000000")
	require.NoError(t, err)

	assert.Contains(t, out, "stays unpaid")
	require.Len(t, srv.created, 1)
	assert.Equal(t, "know_what_i_want", srv.created[0].Type)
	assert.Empty(t, srv.payments)
}

func TestBook_Rejections(t *testing.T) {
	now := time.Date(2024, 5, 30, 12, 0, 0, 0, time.UTC)
	srv := newFakeServer(t, now)
	srv.slots = []api.TimeSlot{
		{ID: 3, Date: "2024-06-01", Time: "10:00:00", Available: true},
		{ID: 4, Date: "2024-06-01", Time: "12:00:00", Available: false},
	}
	a := testApp(t, srv.URL, now)

	tests := []struct {
		name string
		args []string
	}{
		{"booked slot", []string{"book", "4", "--name", "Anna", "--contact", "@anna"}},
		{"unknown slot", []string{"book", "9", "--name", "Anna", "--contact", "@anna"}},
		{"missing name", []string{"book", "3", "--contact", "@anna"}},
		{"bad type", []string{"book", "3", "--name", "Anna", "--contact", "@anna", "--type", "gel"}},
		{"not an image", []string{"book", "3", "--name", "Anna", "--contact", "@anna", "--photo", "commands_test.go"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, a, tt.args...)
			assert.Error(t, err)
		})
	}

	assert.Empty(t, srv.created, "nothing reaches the server")
}
