package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"nails-service/api"
	"nails-service/internal/admin"
	"nails-service/internal/booking"
	"nails-service/internal/calendar"
	"nails-service/internal/client"
	"nails-service/internal/models"
	"nails-service/internal/notice"
	"nails-service/internal/session"
	"nails-service/pkg/clock"
	"nails-service/pkg/password"
)

var errNotLoggedIn = errors.New("not logged in, run `nailsctl login` first")

type app struct {
	serverURL   string
	sessionPath string
	timeout     time.Duration

	clock      clock.Clock
	httpClient *http.Client
	stdin      io.Reader
}

func newApp() *app {
	server := os.Getenv("NAILS_SERVER")
	if server == "" {
		server = "http://localhost:8080"
	}

	return &app{
		serverURL: server,
		timeout:   30 * time.Second,
		clock:     clock.NewRealClock(),
		stdin:     os.Stdin,
	}
}

func (a *app) sessions() (*session.Manager, error) {
	path := a.sessionPath
	if path == "" {
		p, err := session.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	m := session.NewManager(session.NewFileStore(path), a.clock)
	if err := m.Load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (a *app) client(tokens client.TokenSource) *client.Client {
	opts := []client.Option{client.WithTokenSource(tokens)}
	if a.httpClient != nil {
		opts = append(opts, client.WithHTTPClient(a.httpClient))
	}
	return client.New(a.serverURL, opts...)
}

// adminClient loads the saved session and refuses to continue without one.
func (a *app) adminClient() (*client.Client, error) {
	m, err := a.sessions()
	if err != nil {
		return nil, err
	}
	if !m.Authenticated() {
		return nil, errNotLoggedIn
	}
	return a.client(m), nil
}

func (a *app) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.timeout)
}

func printer(w io.Writer) notice.Notifier {
	return notice.NotifierFunc(func(n notice.Notice) {
		c := color.New(color.FgCyan)
		switch n.Kind {
		case notice.Success:
			c = color.New(color.FgGreen)
		case notice.Error:
			c = color.New(color.FgRed)
		}

		text := n.Title
		if n.Message != "" {
			text += ": " + n.Message
		}
		c.Fprintln(w, text)
	})
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "nailsctl",
		Short:         "Admin tool for the nail studio booking service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.serverURL, "server", a.serverURL, "Service base URL (or set NAILS_SERVER)")
	root.PersistentFlags().StringVar(&a.sessionPath, "session", a.sessionPath, "Session file (default: user config dir)")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", a.timeout, "Request timeout")

	slotsCmd := &cobra.Command{
		Use:   "slots",
		Short: "Manage time slots",
	}
	slotsCmd.AddCommand(slotsListCmd(a), slotsAddCmd(a), slotsDeleteCmd(a))

	bookingsCmd := &cobra.Command{
		Use:   "bookings",
		Short: "Review and delete bookings",
	}
	bookingsCmd.AddCommand(bookingsListCmd(a), bookingsDeleteCmd(a))

	root.AddCommand(
		hashPasswordCmd(a),
		loginCmd(a),
		logoutCmd(a),
		slotsCmd,
		bookingsCmd,
		cleanupCmd(a),
		bookCmd(a),
	)

	return root
}

func hashPasswordCmd(a *app) *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash to put into ADMIN_PASSWORD_HASH",
		Long: `Hashes the admin password with bcrypt.

Without an argument the password is read from the first line of stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pass string
			if len(args) == 1 {
				pass = args[0]
			} else {
				line, err := bufio.NewReader(a.stdin).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				pass = strings.TrimRight(line, "\r\n")
			}

			hash, err := password.Hash(pass, cost)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	cmd.Flags().IntVar(&cost, "cost", password.DefaultCost, "bcrypt cost")

	return cmd
}

func loginCmd(a *app) *cobra.Command {
	var pass string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as admin and save the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pass == "" {
				pass = os.Getenv("NAILS_ADMIN_PASSWORD")
			}

			m, err := a.sessions()
			if err != nil {
				return err
			}

			ctx, cancel := a.context()
			defer cancel()

			login := admin.NewLogin(a.client(m), m, printer(cmd.ErrOrStderr()))
			if err := login.Submit(ctx, pass); err != nil {
				return err
			}

			s, _ := m.Current()
			fmt.Fprintf(cmd.OutOrStdout(), "session valid until %s\n", s.ExpiresAt.Local().Format(time.DateTime))
			return nil
		},
	}

	cmd.Flags().StringVarP(&pass, "password", "p", "", "Admin password (or set NAILS_ADMIN_PASSWORD)")

	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Close the admin session",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.sessions()
			if err != nil {
				return err
			}

			if m.Authenticated() {
				ctx, cancel := a.context()
				defer cancel()

				// the local session is dropped even if the server is unreachable
				if err := a.client(m).AdminLogout(ctx); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
				}
			}

			if err := m.Logout(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func slotsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List upcoming slots grouped by day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			slots, err := a.client(nil).ListSlots(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			grouped := calendar.GroupByDate(slots)
			if grouped.Len() == 0 {
				fmt.Fprintln(out, "no upcoming slots")
				return nil
			}

			bold := color.New(color.Bold)
			for _, date := range grouped.Dates {
				bold.Fprintf(out, "%s (%s)\n", calendar.DayLabel(date), date)
				for _, s := range grouped.ByDate[date] {
					state := "free"
					if !s.Available {
						state = "booked"
					}
					fmt.Fprintf(out, "  #%-5d %s  %s\n", s.ID, calendar.ShortTime(s.Time), state)
				}
			}
			return nil
		},
	}
}

func slotsAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add DATE TIME...",
		Short: "Add slots on DATE (YYYY-MM-DD) at each TIME (HH:MM)",
		Long: `Adds one slot per TIME on the given day.

Example:
  nailsctl slots add 2024-06-01 10:00 12:30 15:00`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := calendar.ParseDate(args[0])
			if err != nil {
				return fmt.Errorf("invalid date %q, want YYYY-MM-DD", args[0])
			}

			c, err := a.adminClient()
			if err != nil {
				return err
			}

			ctx, cancel := a.context()
			defer cancel()

			panel := admin.NewSlotsPanel(c, printer(cmd.ErrOrStderr()), a.clock)
			panel.SelectDate(day)

			for _, t := range args[1:] {
				if err := panel.AddSlot(ctx, t); err != nil {
					return err
				}
			}

			for _, s := range panel.SlotsForSelectedDate() {
				fmt.Fprintf(cmd.OutOrStdout(), "#%d %s\n", s.ID, calendar.ShortTime(s.Time))
			}
			return nil
		},
	}
}

func slotsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a slot without a booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			c, err := a.adminClient()
			if err != nil {
				return err
			}

			ctx, cancel := a.context()
			defer cancel()

			return admin.NewSlotsPanel(c, printer(cmd.ErrOrStderr()), a.clock).Delete(ctx, id)
		},
	}
}

func bookingsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the latest bookings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.adminClient()
			if err != nil {
				return err
			}

			ctx, cancel := a.context()
			defer cancel()

			panel := admin.NewBookingsPanel(c, printer(cmd.ErrOrStderr()))
			if err := panel.Refresh(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			bookings := panel.Bookings()
			if len(bookings) == 0 {
				fmt.Fprintln(out, "no bookings")
				return nil
			}

			for _, b := range bookings {
				paid := color.YellowString(b.PaymentStatus)
				if b.ReceiptURL != nil {
					paid = color.GreenString(b.PaymentStatus)
				}
				fmt.Fprintf(out, "#%d  %s %s  %s (%s)  %s  photos: %d  %s\n",
					b.ID, calendar.NumericDate(b.Date), calendar.ShortTime(b.Time),
					b.Name, b.Contact, b.Type, len(b.Photos), paid)
				if b.Comment != "" {
					fmt.Fprintf(out, "     %s\n", b.Comment)
				}
			}
			return nil
		},
	}
}

func bookingsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a booking and free its slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			c, err := a.adminClient()
			if err != nil {
				return err
			}

			ctx, cancel := a.context()
			defer cancel()

			return admin.NewBookingsPanel(c, printer(cmd.ErrOrStderr())).Delete(ctx, id)
		},
	}
}

func cleanupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete past bookings and their slots now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.adminClient()
			if err != nil {
				return err
			}

			ctx, cancel := a.context()
			defer cancel()

			resp, err := c.Cleanup(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", resp.Message, resp.Deleted)
			return nil
		},
	}
}

// readImage loads a local image file as a data URL.
func readImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", path, ct)
	}

	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func bookCmd(a *app) *cobra.Command {
	var (
		form    booking.FormData
		kind    string
		photos  []string
		receipt string
		amount  int
	)

	cmd := &cobra.Command{
		Use:   "book SLOT_ID",
		Short: "Book a free slot on behalf of a client",
		Long: `Books a slot the way the website does: the slot must be free, name and
contact are required, up to 5 design photos can be attached.

With --receipt the prepayment receipt is sent right away and the booking is
confirmed. Without it the booking stays unpaid.

Example:
  nailsctl book 12 --name Анна --contact @anna --photo idea.jpg --receipt check.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			form.Type = models.BookingType(kind)
			if !form.Type.Valid() {
				return fmt.Errorf("invalid type %q", kind)
			}

			ctx, cancel := a.context()
			defer cancel()

			c := a.client(nil)

			slots, err := c.ListSlots(ctx)
			if err != nil {
				return err
			}

			var slot *api.TimeSlot
			for i := range slots {
				if slots[i].ID == id {
					slot = &slots[i]
					break
				}
			}
			if slot == nil {
				return fmt.Errorf("slot #%d not found", id)
			}

			out := cmd.OutOrStdout()
			flow := booking.NewFlow(c, printer(cmd.ErrOrStderr()), booking.PaymentInfo{Amount: amount})

			if !flow.SelectSlot(*slot) {
				return fmt.Errorf("slot #%d is already booked", id)
			}
			flow.SetForm(form)

			for _, p := range photos {
				img, err := readImage(p)
				if err != nil {
					return err
				}
				if flow.AddPhotos(img) == 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "skipping %s: at most %d photos\n", p, booking.MaxPhotos)
				}
			}

			if err := flow.SubmitBooking(ctx); err != nil {
				return err
			}

			fmt.Fprintf(out, "booking #%d: %s %s\n", flow.BookingID(),
				calendar.NumericDate(slot.Date), calendar.ShortTime(slot.Time))
			if info, ok := flow.PaymentInfo(); ok {
				fmt.Fprintf(out, "prepayment: %d ₽\n", info.Amount)
			}

			if receipt == "" {
				fmt.Fprintln(out, "no receipt given, the booking stays unpaid")
				return nil
			}

			img, err := readImage(receipt)
			if err != nil {
				return err
			}
			flow.AttachReceipt(img)

			if err := flow.SubmitPayment(ctx); err != nil {
				return err
			}

			fmt.Fprintln(out, "confirmed")
			return nil
		},
	}

	cmd.Flags().StringVar(&form.Name, "name", "", "Client name")
	cmd.Flags().StringVar(&form.Contact, "contact", "", "Phone, Telegram or Instagram")
	cmd.Flags().StringVar(&kind, "type", string(models.BookingKnowWhatIWant), "know_what_i_want, not_sure or no_design")
	cmd.Flags().StringVar(&form.Comment, "comment", "", "Comment for the master")
	cmd.Flags().StringArrayVar(&photos, "photo", nil, "Design photo file, repeatable")
	cmd.Flags().StringVar(&receipt, "receipt", "", "Prepayment receipt image file")
	cmd.Flags().IntVar(&amount, "amount", 300, "Prepayment amount shown to the client")

	return cmd
}
