package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	goredis "github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ticket-relay/internal/admin/admin_api"
	"ticket-relay/internal/auth"
	"ticket-relay/internal/config"
	"ticket-relay/internal/counter"
	counterdb "ticket-relay/internal/counter/db"
	counterredis "ticket-relay/internal/counter/redis"
	"ticket-relay/internal/database/migrations"
	"ticket-relay/internal/kafka"
	"ticket-relay/internal/logger"
	"ticket-relay/internal/notify"
	"ticket-relay/internal/webhook/webhook_api"
)

func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (counter.Store, func(), error) {
	switch cfg.Store.Engine {
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info("STORE", "Redis connection successful")
		return counterredis.NewStore(client), func() { _ = client.Close() }, nil

	case "postgres":
		if cfg.Store.PostgresDSN == "" {
			return nil, nil, fmt.Errorf("POSTGRES_DSN not set")
		}
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Store.PostgresDSN)))
		if err := sqldb.PingContext(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		log.Info("STORE", "Postgres connection successful")

		bunDB := bun.NewDB(sqldb, pgdialect.New())
		runner := migrations.NewRunner(bunDB, migrations.Options{
			Dir:         cfg.Store.MigrationsDir,
			AutoMigrate: cfg.Store.AutoMigrate,
		})
		if err := runner.Run(); err != nil {
			return nil, nil, err
		}
		return &counterdb.DB{Bun: bunDB}, func() { _ = bunDB.Close() }, nil

	default:
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		bunDB := bun.NewDB(sqldb, sqlitedialect.New())
		store := &counterdb.DB{Bun: bunDB}
		if err := store.CreateSchema(ctx); err != nil {
			return nil, nil, err
		}
		log.Info("STORE", fmt.Sprintf("SQLite store at %s", cfg.Store.SQLitePath))
		return store, func() { _ = bunDB.Close() }, nil
	}
}

func main() {
	_ = godotenv.Load() // Loads .env file if present

	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	if cfg.Auth.AdminToken == "" {
		log.Fatal("CONFIG", "ADMIN_API_TOKEN not set")
	}

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("STORE", err.Error())
	}
	defer closeStore()

	var publisher counter.SalePublisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		publisher = producer
		log.Info("KAFKA", fmt.Sprintf("Publishing sales to %s", cfg.Kafka.Topic))
	}

	pusher := notify.NewPushover(cfg.Pushover.Token, cfg.Pushover.User, log)
	if cfg.Pushover.Token == "" || cfg.Pushover.User == "" {
		log.Warn("NOTIFY", "Pushover credentials not set, notifications disabled")
	}

	service := counter.NewCounterService(store, pusher, publisher, log,
		cfg.Webhook.IgnoredEvents, cfg.Store.Timeout)

	webhookHandler := &webhook_api.Handler{Counters: service}
	adminHandler := &admin_api.Handler{Counters: service}

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		if cfg.Auth.WebhookToken != "" {
			r.Use(auth.RequireToken(cfg.Auth.WebhookToken))
		}
		r.Post("/webhook", webhookHandler.HandleSale)
	})
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireToken(cfg.Auth.AdminToken))
		r.Get("/tickets", adminHandler.ListCounters)
		r.Get("/stats", adminHandler.ListCounters)
		r.Post("/set", adminHandler.SetTotal)
		r.Post("/reset", adminHandler.ResetCounters)
		r.Post("/delete", adminHandler.DeleteCounter)
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("Ticket relay on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_ = server.Shutdown(ctxShutdown)
	log.Info("SERVER", "Ticket relay shutdown complete")
}
