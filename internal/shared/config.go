package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	RedisAddr string
	RedisDB   int
	RedisPass string

	AmadeusBase   string
	AmadeusKey    string
	AmadeusSecret string

	DuffelBase string
	DuffelKey  string

	SMSAPIURL   string
	SMSSenderID string
	SMSAPIKey   string

	ProviderRPS int
	OTPTTL      time.Duration
	SearchTTL   time.Duration
	WizardTTL   time.Duration
}

func Load() Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),

		RedisAddr: env("REDIS_ADDR", "localhost:6379"),
		RedisDB:   atoi("REDIS_DB", 0),
		RedisPass: env("REDIS_PASSWORD", ""),

		AmadeusBase:   env("AMADEUS_BASE_URL", "https://test.api.amadeus.com"),
		AmadeusKey:    env("AMADEUS_API_KEY", ""),
		AmadeusSecret: env("AMADEUS_API_SECRET", ""),

		DuffelBase: env("DUFFEL_BASE_URL", "https://api.duffel.com/air"),
		DuffelKey:  env("DUFFEL_API_KEY", ""),

		SMSAPIURL:   env("SMS_API_URL", ""),
		SMSSenderID: env("SMS_SENDER_ID", "TripDesk"),
		SMSAPIKey:   env("SMS_API_KEY", ""),

		ProviderRPS: atoi("PROVIDER_RPS", 5),
		OTPTTL:      time.Duration(atoi("OTP_TTL_SECONDS", 300)) * time.Second,
		SearchTTL:   time.Duration(atoi("SEARCH_TTL_SECONDS", 900)) * time.Second,
		WizardTTL:   time.Duration(atoi("WIZARD_TTL_SECONDS", 3600)) * time.Second,
	}
	if c.AmadeusKey == "" || c.AmadeusSecret == "" {
		log.Warn().Msg("AMADEUS_API_KEY / AMADEUS_API_SECRET are empty")
	}
	if c.DuffelKey == "" {
		log.Warn().Msg("DUFFEL_API_KEY is empty")
	}
	if c.SMSAPIURL == "" {
		log.Warn().Msg("SMS_API_URL is empty; OTP delivery will be log-only")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
