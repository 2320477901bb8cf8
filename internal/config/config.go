package config

import (
	"crypto/rsa"
	"encoding/base64"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/maisha0055/Shohojogi-sub000/internal/utils"
)

const (
	OrganizationName = "Shohojogi"
	AppName          = "dispatch-service"
)

type Config struct {
	AppName string
	AppPort string
	AppUrl  string

	// Database
	DBUrl         string
	MigrationsURL string

	// Twilio / SendGrid for offline notifications. Empty credentials leave
	// the corresponding client nil and sends become no-ops.
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioFromPhone   string
	SendGridAPIKey    string
	SendGridFromEmail string

	// Auth
	RSAPrivateKey *rsa.PrivateKey
	RSAPublicKey  *rsa.PublicKey

	// How long seen job notifications are kept before the purge job
	// deletes them.
	NotificationRetention time.Duration
}

func LoadConfig() *Config {
	utils.Logger.Info("Loading config for app: ", AppName)

	appPort := os.Getenv("APP_PORT")
	if appPort == "" {
		utils.Logger.Fatal("APP_PORT env var is missing")
	}
	appUrl := os.Getenv("APP_URL")
	if appUrl == "" {
		utils.Logger.Fatal("APP_URL env var is missing")
	}
	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		utils.Logger.Fatal("DB_URL env var is missing")
	}

	migrationsURL := os.Getenv("MIGRATIONS_URL")
	if migrationsURL == "" {
		migrationsURL = "file://migrations"
	}

	pubB64 := os.Getenv("RSA_PUBLIC_KEY_BASE64")
	if pubB64 == "" {
		utils.Logger.Fatal("RSA_PUBLIC_KEY_BASE64 env var is missing")
	}
	pubPEM, err := base64.StdEncoding.DecodeString(pubB64)
	if err != nil {
		utils.Logger.WithError(err).Fatal("RSA_PUBLIC_KEY_BASE64 is not valid base64")
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to parse RSA public key")
	}

	// The private key only matters where this service mints tokens (local
	// development and seeding). Production verification needs the public
	// key alone.
	var privKey *rsa.PrivateKey
	if privB64 := os.Getenv("RSA_PRIVATE_KEY_BASE64"); privB64 != "" {
		privPEM, err := base64.StdEncoding.DecodeString(privB64)
		if err != nil {
			utils.Logger.WithError(err).Fatal("RSA_PRIVATE_KEY_BASE64 is not valid base64")
		}
		privKey, err = jwt.ParseRSAPrivateKeyFromPEM(privPEM)
		if err != nil {
			utils.Logger.WithError(err).Fatal("Failed to parse RSA private key")
		}
	}

	twilioSID := os.Getenv("TWILIO_ACCOUNT_SID")
	twilioToken := os.Getenv("TWILIO_AUTH_TOKEN")
	twilioFrom := os.Getenv("TWILIO_FROM_PHONE")
	if twilioSID == "" || twilioToken == "" {
		utils.Logger.Warn("Twilio credentials missing; SMS notifications are disabled")
	}

	sgAPIKey := os.Getenv("SENDGRID_API_KEY")
	sgFrom := os.Getenv("SENDGRID_FROM_EMAIL")
	if sgAPIKey == "" {
		utils.Logger.Warn("SENDGRID_API_KEY missing; email notifications are disabled")
	}
	if sgFrom == "" {
		sgFrom = "no-reply@shohojogi.app"
	}

	retention := 30 * 24 * time.Hour
	if raw := os.Getenv("NOTIFICATION_RETENTION"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			utils.Logger.WithError(err).Fatal("NOTIFICATION_RETENTION is not a valid duration")
		}
		retention = parsed
	}

	return &Config{
		AppName:               AppName,
		AppPort:               appPort,
		AppUrl:                appUrl,
		DBUrl:                 dbURL,
		MigrationsURL:         migrationsURL,
		TwilioAccountSID:      twilioSID,
		TwilioAuthToken:       twilioToken,
		TwilioFromPhone:       twilioFrom,
		SendGridAPIKey:        sgAPIKey,
		SendGridFromEmail:     sgFrom,
		RSAPrivateKey:         privKey,
		RSAPublicKey:          pubKey,
		NotificationRetention: retention,
	}
}
