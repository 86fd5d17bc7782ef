package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/iliyamo/movie-booking/internal/auth"
	"github.com/iliyamo/movie-booking/internal/booking"
	"github.com/iliyamo/movie-booking/internal/config"
	"github.com/iliyamo/movie-booking/internal/database"
	"github.com/iliyamo/movie-booking/internal/handler"
	"github.com/iliyamo/movie-booking/internal/localstore"
	"github.com/iliyamo/movie-booking/internal/logging"
	"github.com/iliyamo/movie-booking/internal/middleware"
	"github.com/iliyamo/movie-booking/internal/optimistic"
	"github.com/iliyamo/movie-booking/internal/queue"
	"github.com/iliyamo/movie-booking/internal/repository"
	"github.com/iliyamo/movie-booking/internal/router"
	"github.com/iliyamo/movie-booking/internal/service"
	"github.com/iliyamo/movie-booking/internal/session"
	"github.com/iliyamo/movie-booking/internal/tmdb"
	"github.com/iliyamo/movie-booking/internal/utils"
	"github.com/iliyamo/movie-booking/internal/watchlist"
)

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Env, os.Stdout)

	db, err := database.Open(cmd.Context(), cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(cmd.Context(), db); err != nil {
		return err
	}
	logger.Info("schema up to date", slog.Int("statements", len(database.Schema)))
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Env, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		logger.Warn("redis unreachable; cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	e := newEcho(cfg, db, rdb, logger)
	mgr := e.sessions

	if err := mgr.StartSweeper(cfg.SessionSweepInterval); err != nil {
		return err
	}
	defer func() { _ = mgr.StopSweeper() }()

	pruner, err := startTokenPruner(ctx, repository.NewTokenRepo(db), logger)
	if err != nil {
		return err
	}
	defer func() { _ = pruner.Shutdown() }()

	consumer := &queue.Consumer{URL: cfg.RabbitMQURL, LogDir: cfg.BookingLogDir, Logger: logger}
	if cfg.SMTP.Enabled() {
		consumer.Notifier = queue.MailNotifier{Mailer: utils.Mailer{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}}
	}
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("booking consumer stopped", slog.Any("err", err))
		}
	}()

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", slog.String("addr", addr), slog.String("env", cfg.Env),
			slog.String("watchlist_mode", cfg.WatchlistMode))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("err", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// startTokenPruner deletes refresh tokens that expired or were revoked more
// than a day ago, once an hour.
func startTokenPruner(ctx context.Context, tokens *repository.TokenRepo, logger *slog.Logger) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = s.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(func() {
			jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			n, err := tokens.DeleteExpired(jobCtx, time.Now().Add(-24*time.Hour))
			if err != nil {
				logger.Error("prune refresh tokens failed", slog.Any("err", err))
				return
			}
			logger.Info("pruned refresh tokens", slog.Int64("rows", n))
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, err
	}
	s.Start()
	return s, nil
}

type server struct {
	*echo.Echo
	sessions *session.Manager
}

func newEcho(cfg config.Config, db *sql.DB, rdb *redis.Client, logger *slog.Logger) *server {
	runner := optimistic.Runner{Timeout: cfg.RemoteWriteTimeout}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	bookings := repository.NewBookingRepo(db)
	watchlists := repository.NewWatchlistRepo(db)
	publisher := service.NewPublisher(cfg.RabbitMQURL, logger)
	movies := tmdb.NewClient(nil, cfg.TMDBBaseURL, cfg.TMDBAPIKey)

	localRoot := localstore.New(filepath.Clean(cfg.LocalStoreDir))
	mgr := session.NewManager(cfg.SessionTTL, func(id string, a *auth.Session) (session.Watchlist, func(), error) {
		if cfg.WatchlistMode == config.WatchlistLocal {
			fs, err := localRoot.Sub(id)
			if err != nil {
				return nil, nil, err
			}
			release := func() {
				if err := fs.RemoveAll(); err != nil {
					logger.Warn("remove local watchlist failed", slog.String("session_id", id), slog.Any("err", err))
				}
			}
			return watchlist.NewLocal(fs, logger), release, nil
		}
		s := watchlist.NewStore(a, watchlists, runner, logger)
		return s, s.Close, nil
	}, logger)

	checkout := &booking.Checkout{
		UnitPrice: cfg.TicketPrice,
		Theater:   cfg.Theater,
		Creator:   bookings,
		Publisher: publisher,
		Runner:    runner,
		Logger:    logger,
	}
	bookingSvc := &booking.Service{
		Store:     bookings,
		Publisher: publisher,
		Encode:    utils.GenerateQRCode,
		Logger:    logger,
	}

	health := &handler.HealthHandler{DB: db}
	if rdb != nil {
		health.Redis = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logging.Or(c.Request().Context(), logger).LogAttrs(c.Request().Context(), level, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.Any("err", v.Error),
			)
			return nil
		},
	}))

	router.Register(e, router.Handlers{
		Health:    health,
		Auth:      handler.NewAuthHandler(cfg, users, tokens),
		Movies:    handler.NewMovieHandler(movies),
		Booking:   &handler.BookingHandler{Seats: booking.DefaultSeatMap(), Checkout: checkout, Service: bookingSvc, Movies: movies},
		Watchlist: &handler.WatchlistHandler{Movies: movies},
	}, router.Middleware{
		Session:   middleware.ClientSession(mgr, cfg.SessionTTL, cfg.Env == "prod", logger),
		Bearer:    middleware.BearerAuth(cfg.JWTSecret),
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	})

	return &server{Echo: e, sessions: mgr}
}
