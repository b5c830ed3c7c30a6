/*
Package main is the entry point for the TeamChat server.

It is responsible for loading configuration, initializing the global logging system,
connecting the PostgreSQL store and the optional Redis, S3 and Kafka integrations,
starting the chat Hub, serving HTTP, and gracefully handling operating system
interrupt signals (SIGINT, SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"teamchat/internal/app/cache"
	"teamchat/internal/app/chat"
	"teamchat/internal/app/db"
	"teamchat/internal/app/events"
	"teamchat/internal/app/presence"
	"teamchat/internal/app/storage"
	"teamchat/internal/configs"
	"teamchat/internal/handler"
	"teamchat/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("redis", cfg.RedisURL != "").
		Bool("s3", cfg.S3Enabled()).
		Strs("kafka_brokers", cfg.KafkaBrokers).
		Dur("presence_ttl", cfg.PresenceTTL).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to connect to database")
	}
	defer pool.Close()

	var storeOpts []db.StoreOption
	if cfg.S3Enabled() {
		signer, err := storage.NewSigner(ctx, storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3Region:          cfg.S3Region,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize storage signer")
		}
		storeOpts = append(storeOpts, db.WithAssetSigner(signer, db.DefaultAvatarURLTTL))
	}
	store := db.NewStore(pool, storeOpts...)

	var membership chat.MembershipStore = store
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			logx.Fatal(err, "Failed to connect to Redis")
		}
		membership = cache.NewMembershipCache(redisClient, store, cache.Config{TTL: cfg.MembershipCacheTTL})
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err = events.NewKafkaPublisher(cfg.KafkaBrokers, events.KafkaOptions{Topic: cfg.KafkaTopic})
		if err != nil {
			logx.Fatal(err, "Failed to initialize Kafka publisher")
		}
	}

	// Initialize the chat Hub
	hub := chat.NewHub(chat.Options{
		Messages:      store,
		Membership:    membership,
		Publisher:     publisher,
		JWTSecret:     cfg.JWTSecret,
		Presence:      presence.New(cfg.PresenceTTL),
		SweepInterval: cfg.PresenceSweepInterval,
		StoreTimeout:  cfg.StoreTimeout,
		History: chat.HistoryOptions{
			DefaultLimit: cfg.HistoryDefaultLimit,
			MaxLimit:     cfg.HistoryMaxLimit,
			AutoEnroll:   cfg.HistoryAutoEnroll,
		},
		JoinRequiresMembership: cfg.RoomJoinRequiresMembership,
	})
	go hub.Run(ctx)

	// Setup HTTP server and routes
	router, stopLimiters := handler.Router(&handler.AppDeps{
		Hub:    hub,
		Config: cfg,
		Ping:   pool.Ping,
	})
	defer stopLimiters()

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info("TeamChat Server starting", "addr", serverAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	hub.Shutdown()

	if err := publisher.Close(); err != nil {
		logx.Error(err, "Failed to close event publisher")
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logx.Error(err, "Failed to close Redis client")
		}
	}

	logx.Info("Server gracefully stopped.")
}
