package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nails-service/internal/calendar"
	"nails-service/internal/models"
	"nails-service/pkg/sl"
)

// Sender is the subset of *tgbotapi.BotAPI used here.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// FileResolver maps a stored image URL to a local file, if it has one.
type FileResolver interface {
	LocalPath(url string) (string, bool)
}

type Notifier struct {
	log    *slog.Logger
	sender Sender
	chatID int64
	files  FileResolver
}

func New(log *slog.Logger, sender Sender, chatID int64, files FileResolver) *Notifier {
	return &Notifier{
		log:    log.With(slog.String("component", "notify/telegram")),
		sender: sender,
		chatID: chatID,
		files:  files,
	}
}

// NewBot connects to the Bot API with token.
func NewBot(token string) (*tgbotapi.BotAPI, error) {
	const op = "notify.telegram.NewBot"

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return bot, nil
}

var typeLabels = map[models.BookingType]string{
	models.BookingKnowWhatIWant: "✅ Знаю, что хочу",
	models.BookingNotSure:       "🤔 Пока не определилась",
	models.BookingNoDesign:      "⭕ Без дизайна",
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeHTML, s)
}

func FormatBooking(b *models.Booking) string {
	label, ok := typeLabels[b.Type]
	if !ok {
		label = string(b.Type)
	}

	comment := "нет"
	if strings.TrimSpace(b.Comment) != "" {
		comment = b.Comment
	}

	payment := "⏳ ожидается"
	if b.ReceiptURL != nil && *b.ReceiptURL != "" {
		payment = "✅ чек приложен"
	}

	var sb strings.Builder
	sb.WriteString("💅 <b>Новая запись!</b>\n\n")
	fmt.Fprintf(&sb, "👤 <b>Имя:</b> %s\n", escape(b.ClientName))
	fmt.Fprintf(&sb, "📱 <b>Контакт:</b> %s\n", escape(b.ClientContact))
	fmt.Fprintf(&sb, "📅 <b>Дата:</b> %s\n", calendar.NumericDate(b.SlotDate))
	fmt.Fprintf(&sb, "🕐 <b>Время:</b> %s\n", calendar.ShortTime(b.SlotTime))
	fmt.Fprintf(&sb, "💡 <b>Сценарий:</b> %s\n", label)
	fmt.Fprintf(&sb, "💬 <b>Комментарий:</b> %s\n", escape(comment))
	fmt.Fprintf(&sb, "💳 <b>Предоплата:</b> %s\n", payment)

	return sb.String()
}

// NotifyBooking sends the booking card, then reference photos and the receipt.
// Only the card is required to succeed.
func (n *Notifier) NotifyBooking(ctx context.Context, b *models.Booking) error {
	const op = "notify.telegram.NotifyBooking"

	msg := tgbotapi.NewMessage(n.chatID, FormatBooking(b))
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	images := append([]string(nil), b.Photos...)
	if b.ReceiptURL != nil && *b.ReceiptURL != "" {
		images = append(images, *b.ReceiptURL)
	}

	for _, url := range images {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}

		photo := tgbotapi.NewPhoto(n.chatID, n.fileFor(url))
		if _, err := n.sender.Send(photo); err != nil {
			n.log.Warn("failed to send photo", slog.Int64("booking_id", b.ID), slog.String("url", url), sl.Err(err))
		}
	}

	return nil
}

func (n *Notifier) fileFor(url string) tgbotapi.RequestFileData {
	if n.files != nil {
		if path, ok := n.files.LocalPath(url); ok {
			return tgbotapi.FilePath(path)
		}
	}
	return tgbotapi.FileURL(url)
}

// ErrDisabled is returned by Nop so callers do not record a delivery.
var ErrDisabled = errors.New("telegram notifications are disabled")

// Nop is used when no bot token is configured.
type Nop struct {
	Log *slog.Logger
}

func (n Nop) NotifyBooking(_ context.Context, b *models.Booking) error {
	n.Log.Info("telegram is not configured, skipping notification", slog.Int64("booking_id", b.ID))
	return ErrDisabled
}
