package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type App struct {
	Env  string `envconfig:"APP_ENV" default:"production"`
	Port string `envconfig:"PORT" default:"5000"`

	// Database
	MongoURI   string `envconfig:"MONGO_URI"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBHost     string `envconfig:"DB_HOST" default:"cluster0.rzk36ti.mongodb.net"`
	DBName     string `envconfig:"DB_NAME" default:"endlessEssentials"`

	// Tokens
	TokenSecret string `envconfig:"ACCESS_TOKEN_SECRET" required:"true"`

	// Payments
	StripeSecretKey string `envconfig:"STRIPE_SECRET_KEY"`

	// Events and tracing
	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"essentials"`
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// HTTP
	RateBurst      int      `envconfig:"RATE_LIMIT_BURST" default:"60"`
	RatePerSec     int      `envconfig:"RATE_LIMIT_PER_SEC" default:"30"`
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// Load reads an optional .env file and then the process environment.
func Load() (App, error) {
	_ = godotenv.Load()
	var c App
	if err := envconfig.Process("", &c); err != nil {
		return App{}, err
	}
	if strings.TrimSpace(c.TokenSecret) == "" {
		return App{}, errors.New("ACCESS_TOKEN_SECRET must not be empty")
	}
	return c, nil
}

// Addr is the listen address derived from Port.
func (c App) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// DatabaseURI returns MONGO_URI if set, otherwise an Atlas SRV URI built from the credentials.
// An empty result means no database is configured.
func (c App) DatabaseURI() string {
	if c.MongoURI != "" {
		return c.MongoURI
	}
	if c.DBUser == "" || c.DBPassword == "" {
		return ""
	}
	return fmt.Sprintf("mongodb+srv://%s@%s/?retryWrites=true&w=majority",
		url.UserPassword(c.DBUser, c.DBPassword).String(), c.DBHost)
}
