package main

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"tripdesk/internal/adapters/amadeus"
	"tripdesk/internal/adapters/duffel"
	server "tripdesk/internal/adapters/http_server"
	"tripdesk/internal/adapters/observability"
	redisad "tripdesk/internal/adapters/redis"
	"tripdesk/internal/adapters/sms"
	"tripdesk/internal/app"
	"tripdesk/internal/domain"
	"tripdesk/internal/shared"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// store
	store := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	// providers
	amadeusCl, err := amadeus.New(cfg.AmadeusBase, cfg.AmadeusKey, cfg.AmadeusSecret, cfg.ProviderRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("amadeus client init failed")
	}
	duffelCl, err := duffel.New(cfg.DuffelBase, cfg.DuffelKey, cfg.ProviderRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("duffel client init failed")
	}

	// SMS gateway is optional; without it OTP delivery is log-only.
	var sender domain.SMSSender
	if cfg.SMSAPIURL != "" {
		smsCl, err := sms.New(cfg.SMSAPIURL, cfg.SMSSenderID, cfg.SMSAPIKey)
		if err != nil {
			log.Fatal().Err(err).Msg("sms client init failed")
		}
		sender = smsCl
	}

	// the in-memory OTP fallback only runs in dev; with it enabled,
	// codes outlive their store expiry for the life of the process
	var fallback *app.DevOTPStore
	if cfg.AppEnv == "dev" || cfg.AppEnv == "development" {
		fallback = app.NewDevOTPStore()
	}

	// services
	users := app.NewUserService(store)
	otp := app.NewOTPService(store, sender, fallback, int(cfg.OTPTTL.Seconds()))
	search := app.NewSearchService(amadeusCl, duffelCl, store, cfg.SearchTTL)
	bookings := app.NewBookingService(store)
	wizard := app.NewWizardService(store, bookings, amadeusCl, duffelCl, int(cfg.WizardTTL.Seconds()))

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Users:    users,
		OTP:      otp,
		Search:   search,
		Bookings: bookings,
		Wizard:   wizard,
	})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
