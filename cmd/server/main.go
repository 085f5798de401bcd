package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/waitlist/internal/api"
	"github.com/ignite/waitlist/internal/config"
	"github.com/ignite/waitlist/internal/notify"
	"github.com/ignite/waitlist/internal/repository/postgres"
	"github.com/ignite/waitlist/internal/service/signup"
	"github.com/ignite/waitlist/internal/worker"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func main() {
	log.Println("Waitlist signup service (cmd/server)")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	// Postgres
	if cfg.Database.URL == "" {
		log.Fatal("database.url (or DATABASE_URL) is required")
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.Lifetime())

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		cancelPing()
		log.Fatalf("Failed to ping database: %v", err)
	}
	cancelPing()
	log.Println("[db] connected")

	// Redis (optional, rate limiting only)
	var redisClient *redis.Client
	var limiter *api.RateLimiter
	if cfg.Redis.Enabled && cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opt)
		defer redisClient.Close()
		limiter = api.NewRateLimiter(redisClient, cfg.Redis.RatePerMinute)
		log.Printf("[redis] rate limiting enabled (%d/min per IP)", cfg.Redis.RatePerMinute)
	} else {
		log.Println("[redis] not configured, rate limiting disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Notifier (lead-magnet variant only)
	var notifier signup.Notifier
	if cfg.Notify.Enabled {
		sesNotifier, err := notify.NewSESNotifier(ctx, cfg.SES, cfg.Notify)
		if err != nil {
			log.Fatalf("Failed to initialize SES notifier: %v", err)
		}
		notifier = sesNotifier
		log.Printf("[notify] enabled, sending as %s", cfg.Notify.FromEmail)
	} else {
		log.Println("[notify] disabled, plain waitlist mode")
	}

	repo := postgres.NewSignupRepo(db)
	svc := signup.NewService(repo, notifier)

	// Retry sweep for signups whose notification failed on the request path
	if cfg.Notify.Enabled && cfg.Worker.Enabled {
		retryWorker := worker.NewNotifyRetryWorker(svc, repo, cfg.Worker)
		go retryWorker.Start(ctx)
	}

	handlers := api.NewHandlers(svc)
	healthChecker := api.NewHealthChecker(db, redisClient)
	router := api.SetupRoutes(handlers, healthChecker, limiter, cfg)
	server := api.NewServer(cfg.Server, router)

	addr := fmt.Sprintf("%s:%d", host, port)
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] listening on %s", addr)
		errCh <- server.ListenAndServe(addr)
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("[server] received %s, shutting down", sig)
	case err := <-errCh:
		log.Fatalf("[server] listen failed: %v", err)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[server] shutdown error: %v", err)
	}
	log.Println("[server] stopped")
}
