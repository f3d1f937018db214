package main

import (
	"context"
	"errors"
	logg "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jaam8/channel_poll_bot/internal/config"
	"github.com/jaam8/channel_poll_bot/internal/repository"
	"github.com/jaam8/channel_poll_bot/internal/tally"
	"github.com/jaam8/channel_poll_bot/pkg/logger"
	"github.com/jaam8/channel_poll_bot/pkg/tarantool"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	cfg, err := config.NewTally()
	if err != nil {
		logg.Fatalf("failed to load config: %s", err)
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		logg.Fatalf("failed to initalize logger: %s", err)
	}
	defer log.Sync()

	var store tally.VoterStore
	switch cfg.Storage {
	case config.StorageMemory:
		log.Warn("using in-memory storage, votes are lost on restart")
		store = repository.NewMemoryStore()
	default:
		conn, err := tarantool.New(cfg.Tarantool)
		if err != nil {
			log.Fatal("failed to connect to Tarantool", zap.Error(err))
		}
		defer conn.CloseGraceful()
		store = repository.New(conn, log)
	}

	service := tally.NewService(store, log, cfg.LockChoice)
	if err = service.Seed(ctx, cfg.Options); err != nil {
		log.Fatal("failed to seed options", zap.Error(err))
	}

	server := &http.Server{
		Addr:              ":" + cfg.RestPort,
		Handler:           tally.NewHandler(service, log).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shutdown server", zap.Error(err))
		}
	}()

	log.Info("tally backend listening", zap.String("addr", server.Addr), zap.String("storage", cfg.Storage))
	if err = server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", zap.Error(err))
		return
	}
	log.Info("server graceful stopped")
}
