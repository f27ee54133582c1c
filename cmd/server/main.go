package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/furkanardicm/bloodshare-sub000/internal/config"
	"github.com/furkanardicm/bloodshare-sub000/internal/database"
	"github.com/furkanardicm/bloodshare-sub000/internal/handler"
	"github.com/furkanardicm/bloodshare-sub000/internal/metrics"
	"github.com/furkanardicm/bloodshare-sub000/internal/middleware"
	"github.com/furkanardicm/bloodshare-sub000/internal/queue"
	"github.com/furkanardicm/bloodshare-sub000/internal/repository"
	"github.com/furkanardicm/bloodshare-sub000/internal/router"
)

func main() {
	// .env is optional; in production configuration comes from real
	// environment variables.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is unavailable; limiter and cache degrade to no-ops

	m := metrics.New()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	requests := repository.NewBloodRequestRepo(db)
	donors := repository.NewDonorRepo(db)
	messages := repository.NewMessageRepo(db)

	authH := handler.NewAuthHandler(cfg, users, tokens, m)
	requestH := handler.NewRequestHandler(requests, donors, m)
	donorH := handler.NewDonorHandler(requests, donors, users, m)
	donorH.PublishEvents = cfg.AMQPURL != ""
	messageH := handler.NewMessageHandler(messages, users, m)
	profileH := handler.NewProfileHandler(users)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, requestH, profileH, rateLimit, cache)
	router.RegisterProtected(e, cfg.JWTSecret, requestH, donorH, messageH, profileH, rateLimit)

	if cfg.AMQPURL != "" {
		go func() {
			if err := queue.StartDonationConsumer(); err != nil {
				log.Printf("donation consumer stopped: %v", err)
			}
		}()
	} else {
		log.Printf("RABBITMQ_URL not set; completion events disabled")
	}

	// Opportunistic cleanup of long-expired refresh tokens.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := tokens.PurgeExpired(ctx, 24*time.Hour); err != nil {
				log.Printf("refresh token purge: %v", err)
			}
			cancel()
		}
	}()

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil {
			log.Printf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}
