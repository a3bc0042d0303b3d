package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chessio/chessio-server/internal/archive"
	appcfg "github.com/chessio/chessio-server/internal/config"
	"github.com/chessio/chessio-server/internal/gateway"
	"github.com/chessio/chessio-server/internal/matchmaking"
	"github.com/chessio/chessio-server/internal/obslog"
	"github.com/chessio/chessio-server/internal/outcome"
	"github.com/chessio/chessio-server/internal/playerstore"
	"github.com/chessio/chessio-server/internal/relay"
	"github.com/chessio/chessio-server/internal/session"
	"github.com/chessio/chessio-server/internal/translate"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis url parse", zap.Error(err))
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("redis ping", zap.Error(err))
	}

	store, err := playerstore.NewMongo(context.Background(), cfg.MongoURL, cfg.MongoDB)
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}

	var arch outcome.Archiver
	var archRepo *archive.Repository
	if cfg.DatabaseURL != "" {
		archRepo, err = archive.NewRepository(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("archive connect", zap.Error(err))
		}
		arch = archRepo
	}

	var translator translate.Translator
	if cfg.TranslateBaseURL != "" {
		translator = translate.NewClient(cfg.TranslateBaseURL,
			translate.WithTimeout(time.Duration(cfg.TranslateTimeoutMS)*time.Millisecond))
	}

	sessions := session.NewManager(rdb, time.Duration(cfg.SessionTTLSec)*time.Second)
	mm := matchmaking.NewService(rdb, store)
	resolver := outcome.NewResolver(sessions, store, arch)
	chat := relay.NewChatRelay(sessions, translator)

	hub := gateway.NewHub()
	handlers := gateway.NewHandlers(hub, store, mm, sessions, resolver, chat)
	server := gateway.NewServer(hub, handlers, cfg.AllowedOrigins)

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Router(),
	}

	go func() {
		logger.Info("server_listen", zap.String("addr", cfg.ListenAddr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http serve", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("server_shutdown")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(sctx)
	_ = store.Close(sctx)
	if archRepo != nil {
		_ = archRepo.Close()
	}
	_ = rdb.Close()
}
