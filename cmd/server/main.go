package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/meeting-room-booking/internal/config"
	"github.com/iliyamo/meeting-room-booking/internal/database"
	"github.com/iliyamo/meeting-room-booking/internal/handler"
	"github.com/iliyamo/meeting-room-booking/internal/logger"
	"github.com/iliyamo/meeting-room-booking/internal/metrics"
	"github.com/iliyamo/meeting-room-booking/internal/middleware"
	"github.com/iliyamo/meeting-room-booking/internal/queue"
	"github.com/iliyamo/meeting-room-booking/internal/repository"
	"github.com/iliyamo/meeting-room-booking/internal/router"
	"github.com/iliyamo/meeting-room-booking/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional outside local development

	cfg := config.Load()
	log := logger.Setup(cfg.Env)
	log.Info("starting booking service", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Error("open database", logger.Err(err))
		os.Exit(1)
	}
	defer db.Close()
	if cfg.DBAutoSchema {
		if err := database.EnsureSchema(ctx, db); err != nil {
			log.Error("ensure schema", logger.Err(err))
			os.Exit(1)
		}
	}

	m := metrics.New()

	var events service.EventPublisher = queue.Discard{}
	if cfg.AMQPEnabled {
		pub := queue.NewPublisher(cfg.AMQPURL, log.With(slog.String("component", "publisher")))
		defer pub.Close()
		events = pub

		consumer := &queue.Consumer{URL: cfg.AMQPURL, Dir: "logs", Log: log.With(slog.String("component", "consumer"))}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("event consumer stopped", logger.Err(err))
			}
		}()
	}

	reservationRepo := repository.NewReservationRepo(db, cfg.RoomLockTimeout)
	roomRepo := repository.NewRoomRepo(db)
	participantRepo := repository.NewParticipantRepo(db)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)

	users := service.NewUsers(log, userRepo, cfg.BcryptCost)
	rooms := service.NewRooms(log, roomRepo)
	reservations := service.NewReservations(log, reservationRepo, roomRepo, events, m)
	availability := service.NewAvailability(log, reservationRepo, roomRepo, cfg.Timezone, cfg.WorkdayStart, cfg.WorkdayEnd)
	participants := service.NewParticipants(log, reservationRepo, participantRepo, userRepo, events, m)

	// rate limiting and caching are skipped when Redis is unreachable
	var (
		rateLimit echo.MiddlewareFunc
		cache     *middleware.ResponseCache
	)
	if rdb := config.NewRedisClient(); rdb != nil {
		defer rdb.Close()
		rateLimit = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log)
		cache = middleware.NewResponseCache(config.LoadCacheConfig(), rdb)
	} else {
		log.Warn("redis unavailable, running without rate limit and cache")
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				attrs = append(attrs, logger.Err(v.Error))
			}
			log.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", attrs...)
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(middleware.HTTPMetrics(m))

	router.RegisterRoutes(e, db, m.Handler())
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, log, users, tokenRepo), cfg.JWTSecret, cache)
	g := router.Protected(e, cfg.JWTSecret, rateLimit)
	router.RegisterRooms(g, handler.NewRoomHandler(log, rooms), handler.NewAvailabilityHandler(log, availability), cache)
	router.RegisterReservations(g, handler.NewReservationHandler(log, reservations), handler.NewParticipantHandler(log, participants), cache)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", slog.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", logger.Err(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", logger.Err(err))
	}
}
