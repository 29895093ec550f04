package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/exam-reservation/internal/config"
	"github.com/iliyamo/exam-reservation/internal/database"
	"github.com/iliyamo/exam-reservation/internal/handler"
	"github.com/iliyamo/exam-reservation/internal/middleware"
	"github.com/iliyamo/exam-reservation/internal/queue"
	"github.com/iliyamo/exam-reservation/internal/repository"
	"github.com/iliyamo/exam-reservation/internal/router"
	"github.com/iliyamo/exam-reservation/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	policy := config.LoadReservationPolicy()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is unreachable; limiter and cache fail open

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	sessions := repository.NewSessionRepo(db)
	reservations := repository.NewReservationRepo(db)

	svc := service.NewReservationService(
		repository.NewTxRunner(db),
		sessions,
		reservations,
		queue.NewPublisher(),
		policy,
		nil,
	)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	resH := handler.NewReservationHandler(svc)
	adminH := handler.NewAdminSessionHandler(sessions)

	e := echo.New()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterReservations(e, resH, cfg.JWTSecret, config.LoadCacheConfig(), rdb)
	router.RegisterAdminSessions(e, adminH, cfg.JWTSecret)

	// Consume confirmation events in the background; the consumer reconnects
	// on broker failures and never takes the API down with it.
	go func() {
		if err := queue.StartConfirmationConsumer(); err != nil {
			log.Printf("confirmation consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
