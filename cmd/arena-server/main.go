package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcfg "github.com/kapu/chess-arena-go/internal/config"
	"github.com/kapu/chess-arena-go/internal/history"
	"github.com/kapu/chess-arena-go/internal/match"
	"github.com/kapu/chess-arena-go/internal/msgcat"
	"github.com/kapu/chess-arena-go/internal/obslog"
	"github.com/kapu/chess-arena-go/internal/outcome"
	"github.com/kapu/chess-arena-go/internal/records"
	"github.com/kapu/chess-arena-go/internal/room"
	"github.com/kapu/chess-arena-go/internal/rules"
	"github.com/kapu/chess-arena-go/internal/server"
	"github.com/kapu/chess-arena-go/internal/session"
	"go.uber.org/zap"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer obslog.Sync()

	catalog, err := msgcat.New(cfg.MsgTemplateDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	// Counters live in Postgres when configured; otherwise keep them in
	// process memory so the service runs standalone.
	var recorder records.Recorder
	var repo *records.Repository
	if cfg.DatabaseURL != "" {
		repo, err = records.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("records repository error: %v", err)
		}
		recorder = repo
	} else {
		obslog.L().Warn("records_memory_fallback")
		recorder = records.NewMemoryRecorder()
	}

	oracle := rules.NewChessOracle()
	registry := room.NewRegistry(room.SystemRandom{}, cfg.MaxConcurrentRooms)
	queue := match.NewQueue(registry, oracle, room.SystemRandom{}, cfg.DefaultDurationMin)
	resolver := outcome.NewResolver(registry, recorder, catalog)

	var archive *history.Archive
	if cfg.RedisURL != "" {
		archive, err = history.NewArchive(cfg.RedisURL)
		if err != nil {
			log.Fatalf("history archive error: %v", err)
		}
		resolver.AttachArchive(archive)
	}

	handler := session.NewHandler(registry, queue, oracle, resolver, catalog, cfg.DefaultDurationMin)
	srv := server.New(cfg.ListenAddr, handler)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		obslog.L().Info("server_shutdown", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	if archive != nil {
		_ = archive.Close()
	}
	if repo != nil {
		_ = repo.Close()
	}
}
