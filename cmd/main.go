// cmd/main.go is the application entry point.
// It wires together all layers, starts the HTTP server and the
// background status sweeper.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/dojoverse/dojo/internal/config"
	"github.com/dojoverse/dojo/internal/database"
	"github.com/dojoverse/dojo/internal/handler"
	"github.com/dojoverse/dojo/internal/repository"
	"github.com/dojoverse/dojo/internal/service"
	"github.com/dojoverse/dojo/internal/session"
	"github.com/dojoverse/dojo/internal/sweep"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx := context.Background()

	pool, err := database.NewPool(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("apply schema")
	}
	log.Info().Msg("connected to postgres")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	sessions := session.NewManager(session.NewRedisStore(redisClient), cfg.Redis.SessionTTL)

	eventRepo := repository.NewEventRepository(pool)
	postRepo := repository.NewPostRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	tagRepo := repository.NewTagRepository(pool)

	eventSvc := service.NewEventService(eventRepo, log)
	feedSvc := service.NewFeedService(postRepo, commentRepo, tagRepo, log)

	authHandler := handler.NewAuthHandler(sessions)
	eventHandler := handler.NewEventHandler(eventSvc)
	feedHandler := handler.NewFeedHandler(feedSvc)

	r := handler.Routes(authHandler, eventHandler, feedHandler, sessions, log)

	// Background sweep: advances expired active events to complete.
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweep.New(eventSvc, cfg.Sweep.Interval, log).Run(sweepCtx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	stopSweep()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}
