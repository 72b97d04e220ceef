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
	httphandler "github.com/gsmwallet/server/internal/http"
	"github.com/gsmwallet/server/internal/http/handlers"
	"github.com/gsmwallet/server/internal/middleware"
	"github.com/gsmwallet/server/internal/repo"
)

func main() {
	// Load .env from CWD or server/ so it works from repo root or server/ (env vars override)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("server/.env")

	cfg, err := config.Load(config.ServiceAPI)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	customerRepo := repo.NewCustomerRepo(database)
	otpRepo := repo.NewOtpRepo(database)

	// Initialize auth services
	otpGuard := auth.NewOtpGuard(otpRepo,
		auth.WithChallengeTTL(cfg.ChallengeTTL()),
		auth.WithMaxAttempts(cfg.OTPMaxAttempts),
	)
	tokenService := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL(), clock.System)
	authService := auth.NewAuthService(otpGuard, tokenService)

	phoneLimiter, closeLimiter, err := middleware.NewPhoneLimiter(cfg.RedisURL, cfg.RedisRateLimitPrefix, cfg.OTPRequestLimitPerHour)
	if err != nil {
		log.Fatalf("Failed to init phone limiter: %v", err)
	}
	defer func() {
		if err := closeLimiter(); err != nil {
			log.Printf("level=warn component=api msg=\"close phone limiter\" err=%v", err)
		}
	}()

	router := httphandler.NewCustomerRouter(httphandler.CustomerRoutes{
		Auth:           handlers.NewAuthHandler(authService, phoneLimiter),
		Customers:      handlers.NewCustomerHandler(customerRepo),
		Directory:      handlers.NewDirectoryHandler(directory.NewLocal(customerRepo)),
		InternalAPIKey: cfg.InternalAPIKey,
		TrustedProxies: cfg.TrustedProxyPrefixes(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("level=info component=api msg=\"customer service listening\" port=%s", cfg.Port)
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
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
