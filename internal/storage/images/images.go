package images

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/png"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"nails-service/pkg/fileserver"
)

var (
	ErrInvalidImage = errors.New("invalid image")
	ErrTooLarge     = errors.New("image exceeds size limit")
)

const (
	// MaxDecodedSize caps one image payload after base64 decoding.
	MaxDecodedSize = 10 << 20
	// MaxPixels caps the declared dimensions checked before a full decode.
	MaxPixels = 40_000_000
)

// MaxEncodedSize is the request body size that fits n images at the
// payload cap plus the surrounding JSON fields.
func MaxEncodedSize(n int) int64 {
	return int64(n)*int64(base64.StdEncoding.EncodedLen(MaxDecodedSize)) + 64<<10
}

// Store keeps booking photos and payment receipts on local disk. URLs it
// returns live under baseURL, which is mounted behind admin auth.
type Store struct {
	dir     string
	baseURL string
	maxSide int
}

func New(dir, baseURL string, maxSide int) *Store {
	if maxSide <= 0 {
		maxSide = 1600
	}

	return &Store{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSide: maxSide,
	}
}

func (s *Store) SaveBookingPhoto(bookingID int64, idx int, data string) (string, error) {
	name := fmt.Sprintf("photo_%d.jpg", idx)
	return s.save(path.Join("bookings", strconv.FormatInt(bookingID, 10), name), data)
}

func (s *Store) SaveReceipt(bookingID int64, data string) (string, error) {
	name := uuid.NewString() + ".jpg"
	return s.save(path.Join("receipts", strconv.FormatInt(bookingID, 10), name), data)
}

func (s *Store) RemoveBooking(bookingID int64) error {
	const op = "storage.images.RemoveBooking"

	id := strconv.FormatInt(bookingID, 10)
	for _, sub := range []string{"bookings", "receipts"} {
		if err := os.RemoveAll(filepath.Join(s.dir, sub, id)); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

// FileSystem exposes stored files for http.FileServer without directory listings.
func (s *Store) FileSystem() http.FileSystem {
	return fileserver.FilesOnly(http.Dir(s.dir))
}

// LocalPath maps a URL produced by this store back to its file.
func (s *Store) LocalPath(url string) (string, bool) {
	prefix := s.baseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}

	key := strings.TrimPrefix(url, prefix)
	if strings.Contains(key, "..") {
		return "", false
	}

	return filepath.Join(s.dir, filepath.FromSlash(key)), true
}

func (s *Store) save(key, data string) (string, error) {
	const op = "storage.images.save"

	raw, err := DecodeDataURL(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidImage)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return "", fmt.Errorf("%s: %w: %dx%d", op, ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, ErrInvalidImage, err)
	}

	img = imaging.Fit(img, s.maxSide, s.maxSide, imaging.Lanczos)

	fullPath := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("%s: mkdir: %w", op, err)
	}

	out, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("%s: create: %w", op, err)
	}
	defer out.Close()

	if err := imaging.Encode(out, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("%s: encode: %w", op, err)
	}

	return s.baseURL + "/" + key, nil
}

// DecodeDataURL accepts "data:image/...;base64,<payload>" or a bare base64 payload.
func DecodeDataURL(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, ErrInvalidImage
	}

	if strings.HasPrefix(data, "data:") {
		header, payload, ok := strings.Cut(data, ",")
		if !ok || !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
			return nil, ErrInvalidImage
		}
		data = payload
	}

	if base64.StdEncoding.DecodedLen(len(data)) > MaxDecodedSize {
		return nil, ErrTooLarge
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	return raw, nil
}
