package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/evep-health/evep/internal/api"
	"github.com/evep-health/evep/internal/obs"
	"github.com/evep-health/evep/internal/repository"
	"github.com/evep-health/evep/internal/service"
	"github.com/evep-health/evep/pkg/broker"
	"github.com/evep-health/evep/pkg/config"
	"github.com/evep-health/evep/pkg/logger"
	"github.com/evep-health/evep/pkg/postgres"
)

const (
	ReadTimeout       = 3 * time.Second
	WriteTimeout      = 2 * time.Second
	IdleTimeout       = 60 * time.Second
	ReadHeaderTimeout = 1 * time.Second
)

//nolint:funlen
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.New(".env")
	panicOnErr("load config", err)

	l := logger.New(logger.ParseLevel(cfg.LogLevel))
	slog.SetDefault(l)

	obs.Init()

	pool, err := postgres.ConnectToPostgres(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	panicOnErr("connect to postgres", err)

	defer pool.Close()

	err = postgres.UpMigrations(cfg.PostgresDSN)
	panicOnErr("up migrations", err)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()

	err = rdb.Ping(ctx).Err()
	panicOnErr("connect to redis", err)

	userRepo := repository.NewUserRepository(pool)
	refreshTokenRepo := repository.NewRefreshTokenRepository(pool)
	sessionHashRepo := repository.NewSessionHashRepository(rdb)

	producer := broker.NewProducer(l, cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	s := service.NewService(cfg, userRepo, refreshTokenRepo, sessionHashRepo, producer)

	h := api.NewHandler(s)
	mw := api.NewMiddleware(s, cfg)
	router := api.NewRouter(h, mw)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
		ReadHeaderTimeout: ReadHeaderTimeout,
	}

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		l.Info("http server started", "port", cfg.HTTPPort, "tls", cfg.TLSEnabled())

		var err error
		if cfg.TLSEnabled() {
			server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			err = server.ListenAndServeTLS(cfg.ServerCert, cfg.ServerKey)
		} else {
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Panicf("listen and serve: %s", err)
		}

		l.Debug("http server stopped")
	}()

	wg.Add(1)

	go func() {
		defer wg.Done()

		ticker := time.NewTicker(cfg.Auth.TokenCleanupInterval)
		defer ticker.Stop()

		l := l.With("job", "delete_refresh_tokens")
		for {
			l.Debug("job started")

			err := s.DeleteExpiredTokens(ctx)
			if err != nil {
				l.Error(fmt.Sprintf("job failed: %s", err))
			} else {
				l.Debug("job finished")
			}

			select {
			case <-ctx.Done():
				l.Debug("job stopped by ctx")
				return
			case <-ticker.C:
			}
		}
	}()

	waitSignal(l, cancel, server)
	wg.Wait()
}

func waitSignal(l *slog.Logger, cancel context.CancelFunc, server *http.Server) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	sig := <-ch

	l.Info("got OS signal", "signal", sig.String())

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
	defer shutdownCancel()

	err := server.Shutdown(shutdownCtx)
	if err != nil {
		l.Error("server shutdown", "error", err)
	}
}

func panicOnErr(msg string, err error) {
	if err != nil {
		log.Panicf("%s: %s", msg, err)
	}
}
