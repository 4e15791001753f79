package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/NaMinhyeok/reservation-management/internal/config"
	"github.com/NaMinhyeok/reservation-management/internal/database"
	"github.com/NaMinhyeok/reservation-management/internal/handler"
	"github.com/NaMinhyeok/reservation-management/internal/middleware"
	"github.com/NaMinhyeok/reservation-management/internal/queue"
	"github.com/NaMinhyeok/reservation-management/internal/repository"
	"github.com/NaMinhyeok/reservation-management/internal/router"
	"github.com/NaMinhyeok/reservation-management/internal/service"
)

func main() {
	// .env is a convenience for local development; deployments set the
	// variables directly, so a missing file is not an error.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("schema: %v", err)
	}
	if cfg.SeedDemo {
		if err := database.SeedDemoData(ctx, db, cfg.BcryptCost); err != nil {
			log.Fatalf("seed: %v", err)
		}
	}

	store := repository.NewStore(db)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)

	// A nil clock means real time; tests inject their own.
	reservations := service.NewReservationService(store, nil)
	schedules := service.NewScheduleService(store, nil)

	authH := handler.NewAuthHandler(cfg, userRepo, tokenRepo)
	resH := handler.NewReservationHandler(reservations)
	schedH := handler.NewScheduleHandler(schedules)

	// Redis backs the rate limiter and the public schedule cache. The
	// client is nil when Redis is unreachable and both middlewares
	// degrade to pass-through.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and caching disabled")
	}

	e := echo.New()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterReservations(e, resH, cfg.JWTSecret)
	router.RegisterSchedules(e, schedH, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	// Consume confirmation events in the background; the consumer owns
	// its own reconnect loop and never takes the API down with it.
	go queue.StartConfirmationConsumer()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
