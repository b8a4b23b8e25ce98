package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/mahmudurrahman-beep/network/internal/directory"
	"github.com/mahmudurrahman-beep/network/internal/httpapi"
	"github.com/mahmudurrahman-beep/network/internal/ratelimit"
	"github.com/mahmudurrahman-beep/network/internal/session"
	"github.com/mahmudurrahman-beep/network/internal/typing"
)

func main() {
	config := httpapi.DefaultConfig()

	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		config.ListenAddr = addr
	}
	if v := os.Getenv("READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.ReadTimeout = d
		}
	}
	if v := os.Getenv("WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.WriteTimeout = d
		}
	}

	ttl := typing.DefaultTTL
	if v := os.Getenv("TYPING_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			ttl = d
		}
	}

	// --- Redis ---
	redisAddr := "localhost:6379"
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		redisAddr = v
	}

	sessionStore, err := session.NewStore(redisAddr)
	if err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	rdb := sessionStore.Client()

	// --- Typing store ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store typing.Store
	storeBackend := os.Getenv("TYPING_STORE")
	if storeBackend == "memory" {
		mem := typing.NewMemoryStore(ttl)
		go mem.StartSweeper(ctx, 30*time.Second)
		store = mem
	} else {
		storeBackend = "redis"
		store = typing.NewRedisStore(rdb, ttl)
	}

	// --- Directory ---
	var dir directory.Directory
	dirBackend := "postgres"
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		db, err := sql.Open("postgres", databaseURL)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		if err := db.PingContext(pingCtx); err != nil {
			pingCancel()
			log.Fatalf("failed to connect to database: %v", err)
		}
		pingCancel()
		defer db.Close()
		dir = directory.NewPostgresDirectory(db)
	} else {
		// No database: every room check fails membership and every DM
		// partner lookup misses. Useful only for probing the API surface.
		log.Printf("WARNING: DATABASE_URL not set, using an empty directory")
		dirBackend = "static (empty)"
		dir = directory.NewStaticDirectory()
	}

	limiter := ratelimit.NewLimiter(rdb)

	log.Printf("network typing service starting")
	log.Printf("  listen_addr:   %s", config.ListenAddr)
	log.Printf("  typing_store:  %s", storeBackend)
	log.Printf("  typing_ttl:    %s", ttl)
	log.Printf("  directory:     %s", dirBackend)
	log.Printf("  redis_addr:    %s", redisAddr)

	server := httpapi.NewServer(config, store, dir, sessionStore, limiter)

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
		if err := sessionStore.Close(); err != nil {
			log.Printf("session store close error: %v", err)
		}
	}()

	if err := server.Start(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
