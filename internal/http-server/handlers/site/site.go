package site

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"nails-service/api"
	"nails-service/internal/calendar"
	"nails-service/pkg/fileserver"
	"nails-service/pkg/sl"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// StaticPrefix is where Static is mounted.
const StaticPrefix = "/static"

// Static serves the embedded page assets. Mount it under StaticPrefix.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}

	return http.StripPrefix(StaticPrefix, http.FileServer(fileserver.FilesOnly(http.FS(sub))))
}

var page = template.Must(
	template.New("index.html").
		Funcs(template.FuncMap{
			"dayLabel":  calendar.DayLabel,
			"shortTime": calendar.ShortTime,
		}).
		ParseFS(templatesFS, "templates/index.html"),
)

type SlotLister interface {
	ListSlots(ctx context.Context) ([]api.TimeSlot, error)
}

// Payment is the prepayment block shown under the booking section.
type Payment struct {
	Amount    int
	Card      string
	SBP       string
	Recipient string
}

type Portfolio struct {
	Title string
	Image string
}

type viewData struct {
	Days      []day
	Payment   Payment
	Portfolio []Portfolio
	SlotsErr  bool
}

type day struct {
	Date  string
	Slots []api.TimeSlot
}

var defaultPortfolio = []Portfolio{
	{Title: "Нежный френч", Image: StaticPrefix + "/portfolio/french.svg"},
	{Title: "Минимализм", Image: StaticPrefix + "/portfolio/minimal.svg"},
	{Title: "Градиент", Image: StaticPrefix + "/portfolio/ombre.svg"},
	{Title: "Дизайн со стразами", Image: StaticPrefix + "/portfolio/crystals.svg"},
}

func New(log *slog.Logger, lister SlotLister, payment Payment) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.site.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		data := viewData{
			Payment:   payment,
			Portfolio: defaultPortfolio,
		}

		slots, err := lister.ListSlots(r.Context())
		if err != nil {
			// the page still renders, without the schedule
			log.Error("Failed to list slots", sl.Err(err))
			data.SlotsErr = true
		}

		grouped := calendar.GroupByDate(slots)
		for _, date := range grouped.Dates {
			var free []api.TimeSlot
			for _, s := range grouped.ByDate[date] {
				if s.Available {
					free = append(free, s)
				}
			}
			if len(free) > 0 {
				data.Days = append(data.Days, day{Date: date, Slots: free})
			}
		}

		var buf bytes.Buffer
		if err := page.Execute(&buf, data); err != nil {
			log.Error("Failed to render page", sl.Err(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	}
}
