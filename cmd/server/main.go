package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"teamquest/internal/app"
	"teamquest/internal/config"
	"teamquest/internal/logger"
	"teamquest/internal/repository"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	log.Info().
		Str("vision", cfg.AI.Models.Vision).
		Str("chat", cfg.AI.Models.Chat).
		Str("validate", cfg.AI.Models.Validate).
		Str("image", cfg.AI.Models.Image).
		Str("image_fallback", cfg.AI.Models.ImageFallback).
		Bool("api_key_set", cfg.AI.IsEnabled()).
		Msg("AI judge config")
	if !cfg.AI.IsEnabled() {
		log.Warn().Msg("GEMINI_API_KEY not set, using mock judge")
	}

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal().Err(err).Msg("failed to ping MongoDB")
	}
	log.Info().Str("database", cfg.MongoDatabase).Msg("connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDatabase)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal().Err(err).Msg("failed to ping Redis")
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")

	a := app.New(ctx, cfg, app.Deps{
		RoomRepo: repository.NewRoomRepo(db),
		Redis:    rdb,
	})
	defer a.Close()

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: a.Router,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("admin", cfg.AdminUsername).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe")
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
