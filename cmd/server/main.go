package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"smartparking/internal/api"
	"smartparking/internal/config"
	"smartparking/internal/db"
	"smartparking/internal/logger"
	"smartparking/internal/repository"
	"smartparking/internal/service"
	"smartparking/internal/syncbus"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := openStore(ctx, cfg, log)

	bus := syncbus.New(syncbus.DefaultQueueSize, log.Named("syncbus"))
	defer bus.Close()

	engine := service.NewReservationService(
		repository.NewInventoryRepository(),
		repository.NewLedgerRepository(),
		bus,
		service.WithLogger(log.Named("reservations")),
	)

	jobs := service.NewJobService(engine, store, log.Named("jobs"))
	if err := jobs.LoadSnapshot(ctx); err != nil {
		log.Fatal("failed to restore state", zap.Error(err))
	}
	if err := jobs.Start(cfg.ExpirySchedule, cfg.SnapshotSchedule); err != nil {
		log.Fatal("failed to start jobs", zap.Error(err))
	}

	users := repository.NewUserRepository()
	seeds, err := cfg.ParseSeedUsers()
	if err != nil {
		log.Fatal("invalid SEED_USERS", zap.Error(err))
	}
	for _, u := range seeds {
		if err := users.CreateUser(u.Email, u.Password, db.Role(u.Role), u.Phone); err != nil {
			log.Warn("seed user skipped", zap.String("email", u.Email), zap.Error(err))
		}
	}
	authSvc := service.NewAuthService(users, cfg.JWTSecret, cfg.TokenTTL)

	receipts := service.NewReceiptFormatter()
	sender := service.NewSenderService(engine, users, receipts,
		service.NewSendGridMailer(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName, log.Named("sendgrid")),
		service.NewTwilioTexter(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber, log.Named("twilio")),
		log.Named("notify"))
	go sender.Run(ctx, bus.Subscribe())

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal("failed to connect to Redis", zap.Error(err))
		}
		relay := syncbus.NewRedisRelay(client, cfg.Redis.Channel, bus, log.Named("relay"))
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.Error("sync relay stopped", zap.Error(err))
			}
		}()
	}

	router := api.NewRouter(api.Deps{
		Reservations: engine,
		Admin:        service.NewAdminService(engine, jobs),
		Auth:         authSvc,
		Receipts:     receipts,
		Logger:       log.Named("http"),
	})
	handler := handlers.CORS(
		handlers.AllowedOrigins(cfg.CORSOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)(handlers.RecoveryHandler(handlers.PrintRecoveryStack(cfg.IsDevelopment()))(router))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		log.Info("server running", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	if err := jobs.Stop(shutdownCtx); err != nil {
		log.Warn("jobs did not stop in time", zap.Error(err))
	}
	if err := jobs.SaveSnapshot(shutdownCtx); err != nil {
		log.Error("final snapshot failed", zap.Error(err))
	}
	log.Info("server exited")
}

// openStore connects to Postgres when DATABASE_URL is set and falls back to
// an in-memory store otherwise.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) repository.Store {
	if cfg.DatabaseURL == "" {
		log.Info("DATABASE_URL not set, state is kept in memory")
		return repository.NewMemoryStore(repository.Snapshot{})
	}
	conn, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to open DB", zap.Error(err))
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		log.Fatal("failed to connect to DB", zap.Error(err))
	}
	store := repository.NewPostgresStore(conn)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal("failed to prepare schema", zap.Error(err))
	}
	return store
}
