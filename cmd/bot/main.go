package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/anonpair/chat-bot/internal/audit"
	"github.com/anonpair/chat-bot/internal/config"
	"github.com/anonpair/chat-bot/internal/messaging"
	"github.com/anonpair/chat-bot/internal/metrics"
	"github.com/anonpair/chat-bot/internal/pairing"
	"github.com/anonpair/chat-bot/internal/record"
	"github.com/anonpair/chat-bot/internal/session"
	"github.com/anonpair/chat-bot/internal/telegram"
)

func main() {
	log.Println("Starting anonymous pairing bot...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Redis setup.
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		cancel()
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	cancel()

	// NATS setup.
	natsConfig := messaging.DefaultNATSConfig()
	natsConfig.URL = cfg.NATSURL
	natsConfig.Name = "anonpair-bot"

	natsClient, err := messaging.NewNATSClient(natsConfig)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}

	// Audit store is optional; without a DSN relays are simply not audited.
	var (
		auditDB  *sql.DB
		auditLog pairing.AuditLog
	)
	if cfg.PostgresDSN != "" {
		if err := audit.Migrate(cfg.PostgresDSN); err != nil {
			log.Fatalf("failed to migrate audit schema: %v", err)
		}
		auditDB, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("failed to open Postgres: %v", err)
		}
		auditLog = audit.NewStore(auditDB, audit.NewSuppressor(rdb))
	}

	// Telegram setup.
	api, err := telegram.Connect(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("failed to connect to Telegram: %v", err)
	}
	sender := telegram.NewSender(api)

	// Pairing core.
	store := session.NewStore()
	records := record.NewStore(rdb)

	pairingCfg := pairing.DefaultConfig()
	pairingCfg.SearchWindow = cfg.SearchWindow
	pairingCfg.IdleWindow = cfg.IdleWindow
	pairingCfg.SearchScanInterval = cfg.SearchScanInterval
	pairingCfg.IdleScanInterval = cfg.IdleScanInterval

	svc := pairing.NewService(store, records, sender, sender, natsClient, auditLog, pairingCfg)
	svc.Start()

	ctx, stop := context.WithCancel(context.Background())
	bot := telegram.NewBot(api, svc, records)
	go bot.Run(ctx)

	// Metrics endpoint.
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()

	log.Printf("Anonymous pairing bot running")
	log.Printf("  redis_addr:    %s", cfg.RedisAddr)
	log.Printf("  nats_url:      %s", natsConfig.URL)
	log.Printf("  metrics_addr:  %s", cfg.MetricsAddr)
	log.Printf("  audit_enabled: %t", auditLog != nil)

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received signal %v, shutting down...", sig)

	stop()
	svc.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	metricsSrv.Shutdown(shutdownCtx)
	shutdownCancel()

	natsClient.Close()
	rdb.Close()
	if auditDB != nil {
		auditDB.Close()
	}
}
