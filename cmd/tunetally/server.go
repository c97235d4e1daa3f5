package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"tunetally/internal/app/friends"
	"tunetally/internal/app/rankings"
	"tunetally/internal/app/users"
	"tunetally/internal/app/votes"
	"tunetally/internal/auth"
	"tunetally/internal/config"
	"tunetally/internal/http/middleware"
	"tunetally/internal/httpapi"
	"tunetally/internal/lock"
	"tunetally/internal/store"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("env-file"))
			if err != nil {
				return err
			}
			setupLogging(cfg.Logging)

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	db, err := openDatabase(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	locker, closeLocker, err := newLocker(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer closeLocker()

	dataStore := store.New(db)
	issuer := auth.NewIssuer(cfg.Security.JWTSecret, cfg.Security.TokenTTL)

	userSvc := users.New(dataStore, issuer)
	voteSvc := votes.New(dataStore, locker, votes.WithLocation(cfg.Voting.Location))
	friendSvc := friends.New(dataStore, locker)
	rankingSvc := rankings.New(dataStore, friendSvc, rankings.WithLocation(cfg.Voting.Location))

	api := httpapi.New(
		auth.NewProvider(issuer, userSvc),
		userSvc,
		voteSvc,
		friendSvc,
		rankingSvc,
		httpapi.WithDevLogin(cfg.IsDevelopment()),
	)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           newHandler(cfg, api.Routes()),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("env", cfg.Env).
			Str("vote_timezone", cfg.Voting.Location.String()).
			Bool("redis_locks", cfg.Redis.Enabled()).
			Msg("API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info().Msg("server exited")
	return nil
}

// newHandler wraps the API routes in the shared middleware chain.
func newHandler(cfg *config.Config, routes http.Handler) http.Handler {
	router := mux.NewRouter()
	router.Use(
		mux.MiddlewareFunc(middleware.RequestLogging()),
		mux.MiddlewareFunc(middleware.Recovery()),
		mux.MiddlewareFunc(middleware.CORS(cfg.CORS.AllowedOrigins)),
	)
	if cfg.RateLimit.RPS > 0 {
		router.Use(mux.MiddlewareFunc(middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Middleware()))
	}
	router.PathPrefix("/").Handler(routes)
	return router
}

// newLocker picks a Redis lock shared by every instance when Redis is configured,
// and an in-process lock otherwise.
func newLocker(ctx context.Context, cfg config.RedisConfig) (lock.Locker, func(), error) {
	if !cfg.Enabled() {
		return lock.NewLocal(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	return lock.NewRedis(rdb, "tunetally:lock"), func() { _ = rdb.Close() }, nil
}
