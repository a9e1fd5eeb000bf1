package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/example/ride-dispatch/internal/auth"
	"github.com/example/ride-dispatch/internal/config"
	"github.com/example/ride-dispatch/internal/dispatch"
	"github.com/example/ride-dispatch/internal/events"
	"github.com/example/ride-dispatch/internal/httpapi"
	"github.com/example/ride-dispatch/internal/journal"
	"github.com/example/ride-dispatch/internal/logging"
	"github.com/example/ride-dispatch/internal/notify"
	"github.com/example/ride-dispatch/internal/payments"
	"github.com/example/ride-dispatch/internal/presence"
	"github.com/example/ride-dispatch/internal/relay"
	"github.com/example/ride-dispatch/internal/store"
)

func main() {
	cfg, err := config.Load()
	log := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage. Redis is the production path; the in-memory fallback keeps
	// local runs working without infrastructure.
	var (
		bookings  store.BookingStore
		gate      store.IdempotencyGate
		redisDir  *presence.RedisDirectory
		directory presence.Directory
	)
	if cfg.RedisAddr != "" {
		rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rc.Close()
		if err := rc.Ping(ctx).Err(); err != nil {
			log.Error("redis unreachable", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		bookings = store.NewRedisStore(rc)
		gate = store.NewRedisGate(rc)
		redisDir = presence.NewRedisDirectory(rc, cfg.HeartbeatTTL)
		directory = redisDir
	} else {
		log.Warn("REDIS_ADDR not set, using in-process state")
		bookings = store.NewMemoryStore()
		gate = store.NewMemoryGate()
		directory = presence.NewMemoryDirectory(cfg.HeartbeatTTL)
	}

	// Outcome journal. Optional; dispatch never depends on it.
	var jnl journal.Journal = journal.Nop{}
	if cfg.PGDSN != "" {
		pg, err := journal.NewPostgres(cfg.PGDSN)
		if err != nil {
			log.Error("postgres journal unavailable", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		if cfg.RunMigrations {
			if err := pg.Migrate(ctx); err != nil {
				log.Error("journal migration failed", "error", err)
				os.Exit(1)
			}
			log.Info("journal migration applied")
		}
		jnl = pg
	}

	var captor payments.Captor = payments.Nop{}
	if cfg.StripeAPIKey != "" {
		captor = payments.NewStripeCaptor(cfg.StripeAPIKey)
	}

	registry := notify.NewRegistry()

	producer := events.NewProducer(cfg.KafkaBrokers, events.Topics{
		DriverOutcome: cfg.DriverOutcomeTopic,
		Assignment:    cfg.AssignmentTopic,
		UserNotify:    cfg.UserNotifyTopic,
		BookingStatus: cfg.BookingStatusTopic,
	})
	defer producer.Close()

	engine := dispatch.NewEngine(bookings, gate, directory, registry, producer, jnl, dispatch.Options{
		OfferTimeout:  cfg.OfferTimeout,
		SkipStagger:   cfg.SkipStagger,
		DedupWindow:   cfg.DedupWindow,
		StateGraceTTL: cfg.StateGraceTTL,
		OfferTTLSlack: cfg.OfferTTLSlack,
	}, log)

	rel := relay.New(registry, directory, captor, log)

	consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroup, cfg.DeadLetterTopic,
		events.Routes(cfg, engine, rel, log), log)
	defer consumer.Close()
	go consumer.Run(ctx)

	if redisDir != nil {
		sweeper := presence.NewSweeper(redisDir, cfg.SweepInterval, log)
		go sweeper.Run(ctx)
	}

	api := httpapi.NewServer(engine, registry, directory, auth.NewVerifier(cfg.JWTSecret), log)
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		log.Info("ride-dispatch listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
}
