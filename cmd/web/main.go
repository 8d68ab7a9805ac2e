package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/minaorangina/horserace/internal/config"
	"github.com/minaorangina/horserace/server"
	"github.com/minaorangina/horserace/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger, err := zcfg.Build()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var snapshots store.SnapshotStore = store.NewInMemorySnapshotStore()
	if cfg.DatabaseURL != "" {
		pg, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()

		if cfg.AutoMigrate {
			if err := pg.Migrate(ctx); err != nil {
				return err
			}
			logger.Info("schema migrated")
		}
		snapshots = pg
	} else {
		logger.Warn("DATABASE_URL not set, snapshots are kept in memory")
	}

	s := server.NewServer(server.Options{
		Snapshots:      snapshots,
		Logger:         logger,
		Timing:         cfg.Timing(),
		DeckSeed:       cfg.DeckSeed,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	s.Addr = cfg.Addr
	defer s.CloseRaces()

	errs := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}
