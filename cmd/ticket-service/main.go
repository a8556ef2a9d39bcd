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
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"abitickets/internal/auth"
	"abitickets/internal/config"
	"abitickets/internal/kafka"
	"abitickets/internal/logger"
	"abitickets/internal/notifier"
	"abitickets/internal/order"
	"abitickets/internal/order/api"
	"abitickets/internal/order/db"
	"abitickets/internal/tickets"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	// --- PostgreSQL Setup ---
	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN))
	sqldb := sql.OpenDB(connector)
	defer sqldb.Close()

	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to Postgres: %v", err))
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	store := &db.DB{
		Bun:               bunDB,
		OrderPrefix:       cfg.Tickets.OrderPrefix,
		FirstTicketNumber: cfg.Tickets.FirstTicketNumber,
	}
	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), cfg.Database.Timeout)
	if err := store.Migrate(migrateCtx); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migration failed: %v", err))
	}
	cancelMigrate()

	// --- Access Guard ---
	guard, err := auth.NewGuard(cfg.Auth.CredentialsFile, log)
	if err != nil {
		log.Fatal("AUTH", fmt.Sprintf("Failed to load credentials: %v", err))
	}

	// --- Kafka ---
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicExists(cfg.Kafka.Brokers, cfg.Kafka.Topic); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic bootstrap failed: %v", err))
		}
	}
	producer := kafka.NewProducer(cfg.Kafka)
	defer producer.Close()

	// --- Ledger + Notifier ---
	mailer := notifier.NewSMTPMailer(cfg.Email, cfg.Tickets)
	service := order.NewOrderService(store, mailer, producer, cfg.Tickets, log)
	handler := &api.Handler{OrderService: service}

	renderer := tickets.NewRenderer(
		getFontPath(),
		cfg.Tickets.EventName,
	)
	sweep := notifier.NewSweep(store, renderer, mailer, cfg.Tickets.SweepInterval, log)

	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	go sweep.Run(sweepCtx)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Server.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/api/verbleibend", handler.Remaining)
	r.Post("/api/tickets", handler.CreateOrder)

	r.Group(func(r chi.Router) {
		r.Use(guard.RequireRole(auth.RolePurchase))
		r.Get("/api/tickets", handler.ListOrders)
		r.Post("/api/tickets/{bestellnummer}/resend-email", handler.ResendEmail)
		r.Post("/api/tickets/{bestellnummer}/send-reminder", handler.SendReminder)
	})

	r.Group(func(r chi.Router) {
		r.Use(guard.RequireRole(auth.RoleScanner))
		r.Post("/api/validate-ticket", handler.ValidateTicket)
	})

	r.Group(func(r chi.Router) {
		r.Use(guard.RequireRole(auth.RoleAdmin))
		r.Patch("/api/tickets/{bestellnummer}/gezahlt", handler.MarkPaid)
		r.Delete("/api/tickets/{id:[0-9]+}", handler.DeleteByID)
		r.Delete("/api/tickets/nummer/{bestellnummer}", handler.DeleteByNumber)
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", "Ticket service on "+cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP error: %v", err))
		}
	}()

	// SIGHUP reloads the credential list without a restart.
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go func() {
		for range reload {
			if err := guard.Reload(); err != nil {
				log.Error("AUTH", fmt.Sprintf("Credential reload failed: %v", err))
			}
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("SERVER", "Shutdown signal received")

	cancelSweep()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("SERVER", fmt.Sprintf("Forced shutdown: %v", err))
	}
	log.Info("SERVER", "Ticket service shutdown complete")
}

func getFontPath() string {
	if path := os.Getenv("TICKET_FONT_PATH"); path != "" {
		return path
	}
	return "./fonts/DejaVuSans.ttf"
}
