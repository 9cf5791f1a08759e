package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nails-service/internal/models"
)

type fakeSender struct {
	sent    []tgbotapi.Chattable
	failAll bool
	failOn  int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	if f.failAll || (f.failOn > 0 && len(f.sent) == f.failOn) {
		return tgbotapi.Message{}, errors.New("telegram down")
	}
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

type fakeFiles map[string]string

func (f fakeFiles) LocalPath(url string) (string, bool) {
	p, ok := f[url]
	return p, ok
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func sampleBooking() *models.Booking {
	return &models.Booking{
		ID:            42,
		ClientName:    "Anna <b>",
		ClientContact: "@anna",
		Type:          models.BookingNotSure,
		SlotDate:      "2024-06-01",
		SlotTime:      "10:00:00",
		Photos:        []string{"/uploads/bookings/42/photo_0.jpg", "https://cdn.example.com/x.jpg"},
		ReceiptURL:    strPtr("/uploads/receipts/42/r.jpg"),
	}
}

func TestFormatBooking(t *testing.T) {
	text := FormatBooking(sampleBooking())

	assert.Contains(t, text, "Anna &lt;b&gt;")
	assert.Contains(t, text, "01.06.2024")
	assert.Contains(t, text, "10:00\n")
	assert.Contains(t, text, "🤔 Пока не определилась")
	assert.Contains(t, text, "<b>Комментарий:</b> нет")
	assert.Contains(t, text, "✅ чек приложен")

	b := sampleBooking()
	b.ReceiptURL = nil
	b.Comment = "french"
	text = FormatBooking(b)
	assert.Contains(t, text, "⏳ ожидается")
	assert.Contains(t, text, "french")
}

func TestNotifyBooking_SendsCardAndImages(t *testing.T) {
	sender := &fakeSender{}
	files := fakeFiles{
		"/uploads/bookings/42/photo_0.jpg": "/srv/uploads/bookings/42/photo_0.jpg",
		"/uploads/receipts/42/r.jpg":       "/srv/uploads/receipts/42/r.jpg",
	}
	n := New(discard(), sender, 777, files)

	require.NoError(t, n.NotifyBooking(context.Background(), sampleBooking()))
	require.Len(t, sender.sent, 4)

	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(777), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)

	first, ok := sender.sent[1].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Equal(t, tgbotapi.FilePath("/srv/uploads/bookings/42/photo_0.jpg"), first.File)

	second := sender.sent[2].(tgbotapi.PhotoConfig)
	assert.Equal(t, tgbotapi.FileURL("https://cdn.example.com/x.jpg"), second.File)

	receipt := sender.sent[3].(tgbotapi.PhotoConfig)
	assert.Equal(t, tgbotapi.FilePath("/srv/uploads/receipts/42/r.jpg"), receipt.File)
}

func TestNotifyBooking_CardFailureIsReturned(t *testing.T) {
	sender := &fakeSender{failAll: true}
	n := New(discard(), sender, 1, nil)

	err := n.NotifyBooking(context.Background(), sampleBooking())
	assert.Error(t, err)
	assert.Len(t, sender.sent, 1)
}

func TestNotifyBooking_PhotoFailureIsTolerated(t *testing.T) {
	sender := &fakeSender{failOn: 2}
	n := New(discard(), sender, 1, nil)

	assert.NoError(t, n.NotifyBooking(context.Background(), sampleBooking()))
	assert.Len(t, sender.sent, 4)
}

func TestNop_ReportsDisabled(t *testing.T) {
	n := Nop{Log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	err := n.NotifyBooking(context.Background(), &models.Booking{ID: 3})
	assert.ErrorIs(t, err, ErrDisabled)
}
