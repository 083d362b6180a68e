package main

import (
	"context"
	"flag"
	"time"

	"github.com/rs/zerolog/log"

	"tripdesk/internal/adapters/observability"
	"tripdesk/internal/adapters/sms"
	"tripdesk/internal/shared"
)

// smscheck sends one test message through the configured SMS gateway so
// credentials and sender id can be verified before a deploy.
func main() {
	to := flag.String("to", "", "destination phone number")
	body := flag.String("body", "TripDesk gateway check", "message body")
	flag.Parse()

	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv)

	if *to == "" {
		log.Fatal().Msg("-to is required")
	}

	cl, err := sms.New(cfg.SMSAPIURL, cfg.SMSSenderID, cfg.SMSAPIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("sms client init failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := cl.Send(ctx, *to, *body); err != nil {
		log.Fatal().Err(err).Str("to", sms.FormatNumber(*to)).Msg("send failed")
	}
	log.Info().Str("to", sms.FormatNumber(*to)).Msg("send ok")
}
