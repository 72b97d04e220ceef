package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gsmwallet/server/internal/auth"
	"github.com/gsmwallet/server/internal/clock"
	"github.com/gsmwallet/server/internal/config"
	"github.com/gsmwallet/server/internal/db"
	"github.com/gsmwallet/server/internal/directory"
	"github.com/gsmwallet/server/internal/events"
	httphandler "github.com/gsmwallet/server/internal/http"
	"github.com/gsmwallet/server/internal/http/handlers"
	"github.com/gsmwallet/server/internal/ledger"
	"github.com/gsmwallet/server/internal/repo"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("server/.env")

	cfg, err := config.Load(config.ServiceLedger)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	pool, err := db.OpenPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer pool.Close()

	if err := db.RunPoolMigrations(pool); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	refundPolicy, err := ledger.ParseRefundPolicy(cfg.RefundPolicy)
	if err != nil {
		log.Fatalf("Invalid refund policy: %v", err)
	}

	entries := repo.NewLedgerRepo(pool)
	customers := directory.NewClient(cfg.CustomerServiceURL, cfg.InternalAPIKey)
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL(), clock.System)

	publisher := events.NewPublisher(cfg.RabbitMQURL)
	defer publisher.Close()

	orchestrator := ledger.NewOrchestrator(tokens, customers, entries,
		ledger.WithEvents(events.NewLedgerEvents(publisher, cfg.LedgerEventsExchange)),
		ledger.WithRefundPolicy(refundPolicy),
		ledger.WithTopUpMax(cfg.TopUpLimit()),
	)

	scheduler := ledger.NewScheduler(ledger.NewReconciler(entries, customers, cfg.ReconcileBatch), cfg.ReconcileSchedule)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start reconciliation: %v", err)
	}

	router := httphandler.NewLedgerRouter(httphandler.LedgerRoutes{
		Transactions:   handlers.NewTransactionHandler(orchestrator, entries),
		InternalAPIKey: cfg.InternalAPIKey,
		TrustedProxies: cfg.TrustedProxyPrefixes(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Leaves room for the directory client's own 30s timeout.
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("level=info component=ledger msg=\"ledger service listening\" port=%s policy=%s", cfg.Port, refundPolicy)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("level=error component=ledger msg=\"forced shutdown\" err=%v", err)
	}

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		log.Println("level=warn component=ledger msg=\"reconciliation still running at exit\"")
	}

	log.Println("Server exited")
}
