package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config captures all tunable parameters for the dispatch service process.
// Values are primarily loaded from environment variables with sane defaults
// so the binary can run locally without excessive setup.
type Config struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RedisAddr     string
	RedisPassword string

	KafkaBrokers    []string
	KafkaGroup      string
	DeadLetterTopic string

	BookingRequestTopic string
	RideCancelTopic     string
	RideStartTopic      string
	RideCompletedTopic  string
	PaymentTopic        string
	DocExpiredTopic     string

	DriverOutcomeTopic string
	AssignmentTopic    string
	UserNotifyTopic    string
	BookingStatusTopic string

	JWTSecret string

	OfferTimeout  time.Duration
	SkipStagger   time.Duration
	DedupWindow   time.Duration
	StateGraceTTL time.Duration
	OfferTTLSlack time.Duration

	HeartbeatTTL  time.Duration
	SweepInterval time.Duration

	PGDSN         string
	RunMigrations bool

	StripeAPIKey string

	LogLevel string
}

func defaults() Config {
	return Config{
		HTTPAddr:        ":8080",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,

		KafkaGroup:      "ride-dispatch",
		DeadLetterTopic: "dispatch.dlq",

		BookingRequestTopic: "booking.request",
		RideCancelTopic:     "ride.cancel",
		RideStartTopic:      "ride.start",
		RideCompletedTopic:  "ride.completed",
		PaymentTopic:        "payment.completed",
		DocExpiredTopic:     "driver.doc.expired",

		DriverOutcomeTopic: "driver.rejection",
		AssignmentTopic:    "driver.acceptance",
		UserNotifyTopic:    "user.notification",
		BookingStatusTopic: "booking.status.update",

		OfferTimeout:  30 * time.Second,
		SkipStagger:   time.Second,
		DedupWindow:   10 * time.Minute,
		StateGraceTTL: 2 * time.Minute,
		OfferTTLSlack: 30 * time.Second,

		HeartbeatTTL:  120 * time.Second,
		SweepInterval: 2 * time.Minute,

		LogLevel: "info",
	}
}

// Load builds the config from the environment, accumulating every invalid
// value into a single joined error.
func Load() (Config, error) {
	cfg := defaults()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaGroup, "KAFKA_GROUP")
	setStringFromEnv(&cfg.DeadLetterTopic, "KAFKA_DLQ_TOPIC")

	setStringFromEnv(&cfg.BookingRequestTopic, "TOPIC_BOOKING_REQUEST")
	setStringFromEnv(&cfg.RideCancelTopic, "TOPIC_RIDE_CANCEL")
	setStringFromEnv(&cfg.RideStartTopic, "TOPIC_RIDE_START")
	setStringFromEnv(&cfg.RideCompletedTopic, "TOPIC_RIDE_COMPLETED")
	setStringFromEnv(&cfg.PaymentTopic, "TOPIC_PAYMENT_COMPLETED")
	setStringFromEnv(&cfg.DocExpiredTopic, "TOPIC_DOC_EXPIRED")
	setStringFromEnv(&cfg.DriverOutcomeTopic, "TOPIC_DRIVER_OUTCOME")
	setStringFromEnv(&cfg.AssignmentTopic, "TOPIC_ASSIGNMENT")
	setStringFromEnv(&cfg.UserNotifyTopic, "TOPIC_USER_NOTIFY")
	setStringFromEnv(&cfg.BookingStatusTopic, "TOPIC_BOOKING_STATUS")

	cfg.JWTSecret = os.Getenv("JWT_SECRET")

	setDurationFromEnv(&cfg.OfferTimeout, "DISPATCH_OFFER_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.SkipStagger, "DISPATCH_SKIP_STAGGER", &errs)
	setDurationFromEnv(&cfg.DedupWindow, "DISPATCH_DEDUP_WINDOW", &errs)
	setDurationFromEnv(&cfg.StateGraceTTL, "DISPATCH_STATE_GRACE_TTL", &errs)
	setDurationFromEnv(&cfg.OfferTTLSlack, "DISPATCH_OFFER_TTL_SLACK", &errs)

	setDurationFromEnv(&cfg.HeartbeatTTL, "PRESENCE_HEARTBEAT_TTL", &errs)
	setDurationFromEnv(&cfg.SweepInterval, "PRESENCE_SWEEP_INTERVAL", &errs)

	cfg.PGDSN = os.Getenv("PG_DSN")
	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")

	cfg.StripeAPIKey = os.Getenv("STRIPE_API_KEY")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if cfg.OfferTimeout <= 0 {
		errs = append(errs, fmt.Errorf("DISPATCH_OFFER_TIMEOUT must be > 0"))
	}
	if cfg.DedupWindow <= 0 {
		errs = append(errs, fmt.Errorf("DISPATCH_DEDUP_WINDOW must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
