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

	"github.com/jaam8/channel_poll_bot/internal/api"
	"github.com/jaam8/channel_poll_bot/internal/backend"
	"github.com/jaam8/channel_poll_bot/internal/config"
	srv "github.com/jaam8/channel_poll_bot/internal/service"
	"github.com/jaam8/channel_poll_bot/pkg/logger"
	"github.com/mattermost/mattermost-server/v6/model"
	"go.uber.org/zap"
)

const (
	wsRetryDelay    = 3 * time.Second
	shutdownTimeout = 5 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		logg.Fatalf("failed to load config: %s", err)
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		logg.Fatalf("failed to initalize logger: %s", err)
	}
	defer log.Sync()

	client := model.NewAPIv4Client(cfg.MmURL)
	client.SetToken(cfg.BotToken)
	user, _, err := client.GetMe("")
	if err != nil {
		log.Fatal("failed to get bot user", zap.Error(err))
	}
	log.Info("logged in to mattermost", zap.String("bot_id", user.Id), zap.String("username", user.Username))

	messenger := api.NewMessenger(client, log, cfg.ActionURL, cfg.ActionSecret)
	tallyClient := backend.New(cfg.BaseURL, cfg.BackendTimeout, log)
	service := srv.New(tallyClient, messenger, log, cfg.ChannelID)
	handler := api.New(service, messenger, log, user.Id, cfg.ChannelID, cfg.ActionSecret)

	server := &http.Server{
		Addr:              ":" + cfg.RestPort,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("action server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("action server failed", zap.Error(err))
		}
	}()

	listen(ctx, log, cfg, handler)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown action server", zap.Error(err))
	}
	log.Info("bot graceful stopped")
}

// listen reconnects the websocket until ctx is done, every event is handled
// in its own goroutine.
func listen(ctx context.Context, log *zap.Logger, cfg *config.Config, handler *api.PollHandler) {
	for {
		ws, err := model.NewWebSocketClient4(cfg.MmWsURL, cfg.BotToken)
		if err != nil {
			log.Warn("failed to connect to websocket, retrying", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(wsRetryDelay):
				continue
			}
		}
		ws.Listen()
		log.Info("websocket connected")

		if done := pump(ctx, log, ws, handler); done {
			ws.Close()
			return
		}
		log.Warn("websocket disconnected, reconnecting")
	}
}

func pump(ctx context.Context, log *zap.Logger, ws *model.WebSocketClient, handler *api.PollHandler) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case event, ok := <-ws.EventChannel:
			if !ok {
				return false
			}
			log.Debug("new event", zap.String("event", event.EventType()))
			go handler.HandleEvent(ctx, event)
		}
	}
}
