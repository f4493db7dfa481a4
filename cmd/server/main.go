package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/chandana0511/tambola-backend/internal/archive"
	"github.com/chandana0511/tambola-backend/internal/config"
	"github.com/chandana0511/tambola-backend/internal/httpapi"
	"github.com/chandana0511/tambola-backend/internal/hub"
	"github.com/chandana0511/tambola-backend/internal/identity"
	"github.com/chandana0511/tambola-backend/internal/logger"
	"github.com/chandana0511/tambola-backend/internal/room"
	"github.com/chandana0511/tambola-backend/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	var arch *archive.Archive
	if cfg.DatabaseURL != "" {
		arch, err = archive.Open(cfg.DatabaseURL, log)
		if err != nil {
			log.Fatal("open winner archive", zap.Error(err))
		}
		log.Info("winner archive enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := store.NewMemory()
	ids := identity.NewProvider()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	svc := room.NewService(st, ids, arch, log, rng)
	h := hub.NewHub(ctx, svc, st, log)

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(svc, ids, arch, h, log),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		h.Inbox() <- hub.ShutdownHub{}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
	log.Info("shutdown complete")
}
