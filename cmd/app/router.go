package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"nails-service/internal/config"
	authLogin "nails-service/internal/http-server/handlers/auth/login"
	authLogout "nails-service/internal/http-server/handlers/auth/logout"
	bookingCreate "nails-service/internal/http-server/handlers/bookings/create"
	bookingDelete "nails-service/internal/http-server/handlers/bookings/delete"
	bookingGet "nails-service/internal/http-server/handlers/bookings/get"
	cleanupRun "nails-service/internal/http-server/handlers/cleanup/run"
	paymentConfirm "nails-service/internal/http-server/handlers/payment/confirm"
	"nails-service/internal/http-server/handlers/site"
	slotCreate "nails-service/internal/http-server/handlers/slots/create"
	slotDelete "nails-service/internal/http-server/handlers/slots/delete"
	slotGet "nails-service/internal/http-server/handlers/slots/get"
	slotUpdate "nails-service/internal/http-server/handlers/slots/update"
	svc "nails-service/internal/service"
	"nails-service/internal/storage/images"
	"nails-service/pkg/middleware/adminauth"
	"nails-service/pkg/middleware/mwLogger"
	"nails-service/pkg/middleware/realip"
	"nails-service/pkg/middleware/secure"
	"nails-service/pkg/middleware/throttle"
)

// API is everything the HTTP layer needs from the service.
type API interface {
	slotGet.SlotLister
	slotCreate.SlotCreator
	slotUpdate.SlotUpdater
	slotDelete.SlotDeleter
	bookingCreate.BookingCreator
	bookingGet.BookingLister
	bookingDelete.BookingDeleter
	paymentConfirm.PaymentConfirmer
	cleanupRun.Cleaner
	authLogin.Authenticator
	authLogout.SessionCloser
	adminauth.TokenVerifier
}

func newRouter(log *slog.Logger, cfg *config.Config, service API, imageStore *images.Store) (http.Handler, error) {
	const op = "main.newRouter"

	trustedProxies, err := realip.ParsePrefixes(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("%s: trusted_proxies: %w", op, err)
	}

	limiter := throttle.New(cfg.Throttle.PerMinute, cfg.Throttle.Burst)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(realip.New(trustedProxies))
	router.Use(mwLogger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(secure.Headers)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendDomain},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", adminauth.HeaderName},
		AllowCredentials: true,
	}).Handler)

	// Site
	router.Get("/", site.New(log, service, site.Payment{
		Amount:    cfg.Payment.Amount,
		Card:      cfg.Payment.Card,
		SBP:       cfg.Payment.SBP,
		Recipient: cfg.Payment.Recipient,
	}))
	router.Handle(site.StaticPrefix+"/*", site.Static())

	// Public API
	router.Get("/slots", slotGet.New(log, service))
	router.With(limiter.Middleware(log), chimw.RequestSize(images.MaxEncodedSize(svc.MaxPhotos))).
		Post("/bookings", bookingCreate.New(log, service))
	router.With(limiter.Middleware(log), chimw.RequestSize(images.MaxEncodedSize(1))).
		Post("/payment", paymentConfirm.New(log, service))
	router.With(limiter.Middleware(log)).Post("/admin-login", authLogin.New(log, service, authLogin.CookieOptions{
		Secure: cfg.Admin.SecureCookie,
	}))

	// Admin API
	router.Group(func(r chi.Router) {
		r.Use(adminauth.New(log, service))

		r.Post("/slots", slotCreate.New(log, service))
		r.Put("/slots", slotUpdate.New(log, service))
		r.Delete("/slots", slotDelete.New(log, service))

		r.Get("/bookings", bookingGet.New(log, service))
		r.Delete("/bookings", bookingDelete.New(log, service))

		r.Post("/cleanup", cleanupRun.New(log, service))
		r.Post("/admin-logout", authLogout.New(log, service))

		// client photos and payment receipts
		r.Handle(cfg.Uploads.BaseURL+"/*", http.StripPrefix(cfg.Uploads.BaseURL, http.FileServer(imageStore.FileSystem())))
	})

	return router, nil
}
