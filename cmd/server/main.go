package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/acadbuddy/acadbuddy-api/internal/config"
	"github.com/acadbuddy/acadbuddy-api/internal/database"
	"github.com/acadbuddy/acadbuddy-api/internal/logger"
	"github.com/acadbuddy/acadbuddy-api/internal/realtime"
	"github.com/acadbuddy/acadbuddy-api/internal/repository"
	"github.com/acadbuddy/acadbuddy-api/internal/routes"
	"github.com/acadbuddy/acadbuddy-api/internal/services"
	chatws "github.com/acadbuddy/acadbuddy-api/internal/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return err
	}

	// 2. Connect to Database
	if cfg.DBUrl == "" {
		return errors.New("DB_URL is required")
	}
	pool, err := database.ConnectDB(ctx, cfg.DBUrl, zlog)
	if err != nil {
		return err
	}
	defer pool.Close()

	// 3. Realtime change feed
	feed, publisher, closeFeed, err := buildFeed(cfg, pool, zlog)
	if err != nil {
		return err
	}
	defer closeFeed()

	hub := chatws.NewHub(zlog)
	go hub.Run(ctx)
	go func() {
		if err := feed.Run(ctx, hub.Publish); err != nil {
			zlog.Error("realtime feed stopped", zap.String("driver", cfg.RealtimeDriver), zap.Error(err))
		}
	}()

	// 4. Setup Fiber
	app := fiber.New(fiber.Config{DisableStartupMessage: !cfg.IsDevelopment()})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use("/api", cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	if err := routes.RegisterRoutes(ctx, app, routes.Dependencies{
		Config:    cfg,
		DB:        pool,
		Hub:       hub,
		Publisher: publisher,
		Location:  loc,
		Log:       zlog,
	}); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			zlog.Warn("graceful shutdown failed", zap.Error(err))
		}
	}()

	// 5. Start Server
	zlog.Info("server starting", zap.String("port", cfg.Port), zap.String("realtime", cfg.RealtimeDriver))
	return app.Listen(":" + cfg.Port)
}

// buildFeed picks the change feed. Postgres notifications come from the
// insert trigger so nothing has to publish; the Redis feed is also the
// publisher the chat service writes to.
func buildFeed(cfg *config.Config, pool *pgxpool.Pool, zlog *zap.Logger) (realtime.Feed, services.MessagePublisher, func(), error) {
	if !cfg.RedisFanout() {
		return realtime.NewPostgresFeed(pool, repository.NewMessageRepository(pool), zlog), nil, func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, err
	}
	client := redis.NewClient(opts)
	feed := realtime.NewRedisFeed(client, cfg.RedisPrefix, zlog)
	return feed, feed, func() { _ = client.Close() }, nil
}
